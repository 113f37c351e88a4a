package config

import (
	"errors"
	"fmt"
	"io/fs"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"

	"github.com/dmitrijs2005/eventhub/internal/flagx"
)

const defaultEnvFile = ".env"

// loadDotEnv exports variables from the dotenv file named by -env (".env"
// by default) into the process environment. Variables that are already set
// win over the file. A missing default file is not an error.
func loadDotEnv(args []string) error {
	path := flagx.EnvFileFlag(args, defaultEnvFile)

	err := godotenv.Load(path)
	if err == nil {
		return nil
	}
	if path == defaultEnvFile && errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	return fmt.Errorf("load env file %s: %w", path, err)
}

// parseEnv overlays fields that carry an env tag and whose variable is set.
func parseEnv(cfg *Config) error {
	if err := env.Parse(cfg); err != nil {
		return fmt.Errorf("parse env: %w", err)
	}
	return nil
}
