// Package config handles configuration for the server component: defaults,
// an optional .env file, a JSON overlay, environment variables and finally
// command-line flags, each layer overriding the previous one.
package config

import (
	"fmt"
	"os"
	"time"
)

// Storage drivers understood by the server.
const (
	DriverMemory   = "memory"
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
)

// Config holds runtime settings for the eventhub server.
//
// Fields:
//   - HTTPAddr / GRPCAddr: bind addresses for the JSON API and the gRPC health endpoint.
//   - StorageDriver: one of memory, postgres, sqlite; DatabaseDSN is ignored for memory.
//   - SecretKey: HMAC secret for signing JWTs (HS256). Do not use the default in prod.
//   - AccessTokenValidityDuration: access token lifetime.
//   - CORSOrigins: origins allowed to call the API from a browser.
//   - SeedDemoData: load demo users and events into an empty store on start.
//   - SignupDevCode: echo the SMS verification code in the register response.
//     Only for deployments without an SMS gateway.
//   - AdminUsername / AdminPassword: bootstrap admin created by the seed step.
//   - KafkaBrokers: when set, notifications go to Kafka instead of the in-process bus.
//   - S3*: object storage settings for event image uploads.
type Config struct {
	HTTPAddr                    string        `env:"EVENTHUB_HTTP_ADDR"`
	GRPCAddr                    string        `env:"EVENTHUB_GRPC_ADDR"`
	StorageDriver               string        `env:"EVENTHUB_STORAGE_DRIVER"`
	DatabaseDSN                 string        `env:"EVENTHUB_DATABASE_DSN"`
	SecretKey                   string        `env:"EVENTHUB_SECRET_KEY"`
	AccessTokenValidityDuration time.Duration `env:"EVENTHUB_ACCESS_TOKEN_TTL"`
	CORSOrigins                 []string      `env:"EVENTHUB_CORS_ORIGINS" envSeparator:","`
	SeedDemoData                bool          `env:"EVENTHUB_SEED_DEMO_DATA"`
	SignupDevCode               bool          `env:"EVENTHUB_SIGNUP_DEV_CODE"`
	AdminUsername               string        `env:"EVENTHUB_ADMIN_USERNAME"`
	AdminPassword               string        `env:"EVENTHUB_ADMIN_PASSWORD"`
	KafkaBrokers                []string      `env:"EVENTHUB_KAFKA_BROKERS" envSeparator:","`
	HealthCheckInterval         time.Duration `env:"EVENTHUB_HEALTH_CHECK_INTERVAL"`
	LogLevel                    string        `env:"EVENTHUB_LOG_LEVEL"`
	S3RootUser                  string        `env:"EVENTHUB_S3_ROOT_USER"`
	S3RootPassword              string        `env:"EVENTHUB_S3_ROOT_PASSWORD"`
	S3Bucket                    string        `env:"EVENTHUB_S3_BUCKET"`
	S3Region                    string        `env:"EVENTHUB_S3_REGION"`
	S3BaseEndpoint              string        `env:"EVENTHUB_S3_BASE_ENDPOINT"`
}

// LoadDefaults populates Config with development defaults.
// NOTE: These values are insecure for production and should be overridden.
func (c *Config) LoadDefaults() {
	c.HTTPAddr = ":8080"
	c.GRPCAddr = ":50051"
	c.StorageDriver = DriverMemory
	c.DatabaseDSN = ""
	c.SecretKey = "change-me-in-production"
	c.AccessTokenValidityDuration = 24 * time.Hour
	c.CORSOrigins = []string{"http://localhost:3000", "http://localhost:3001"}
	c.SeedDemoData = true
	c.SignupDevCode = true
	c.AdminUsername = "admin"
	c.AdminPassword = "admin123"
	c.KafkaBrokers = nil
	c.HealthCheckInterval = 10 * time.Second
	c.LogLevel = "info"
	c.S3RootUser = "admin"
	c.S3RootPassword = "secretpassword"
	c.S3Bucket = "events"
	c.S3Region = "us-east-1"
	c.S3BaseEndpoint = "http://127.0.0.1:9000/"
}

// Validate rejects combinations the server cannot start with.
func (c *Config) Validate() error {
	switch c.StorageDriver {
	case DriverMemory:
	case DriverPostgres, DriverSQLite:
		if c.DatabaseDSN == "" {
			return fmt.Errorf("storage driver %q requires a database DSN", c.StorageDriver)
		}
	default:
		return fmt.Errorf("unknown storage driver %q", c.StorageDriver)
	}
	if c.SecretKey == "" {
		return fmt.Errorf("secret key must not be empty")
	}
	if c.AccessTokenValidityDuration <= 0 {
		return fmt.Errorf("access token validity must be positive")
	}
	return nil
}

// Load builds a Config from args (without the program name) and the
// process environment.
func Load(args []string) (*Config, error) {
	cfg := &Config{}
	cfg.LoadDefaults()

	if err := loadDotEnv(args); err != nil {
		return nil, err
	}
	if err := parseJson(cfg, args); err != nil {
		return nil, err
	}
	if err := parseEnv(cfg); err != nil {
		return nil, err
	}
	if err := parseFlags(cfg, args); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadConfig is Load over os.Args; it panics on a bad configuration, which
// only happens at process start.
func LoadConfig() *Config {
	cfg, err := Load(os.Args[1:])
	if err != nil {
		panic(err)
	}
	return cfg
}
