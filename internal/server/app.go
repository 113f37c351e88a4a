// Package server wires configuration, storage, services and transports into
// a running eventhub process and handles graceful shutdown.
package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/dmitrijs2005/eventhub/internal/filex"
	"github.com/dmitrijs2005/eventhub/internal/logging"
	"github.com/dmitrijs2005/eventhub/internal/server/config"
	gs "github.com/dmitrijs2005/eventhub/internal/server/grpc"
	"github.com/dmitrijs2005/eventhub/internal/server/httpapi"
	"github.com/dmitrijs2005/eventhub/internal/server/notify"
	"github.com/dmitrijs2005/eventhub/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/eventhub/internal/server/seed"
	"github.com/dmitrijs2005/eventhub/internal/server/services"
)

const shutdownTimeout = 10 * time.Second

type App struct {
	config   *config.Config
	logger   logging.Logger
	store    repomanager.Store
	bus      *notify.Bus
	recorder *notify.Recorder
	router   http.Handler
	seeder   *seed.Seeder
}

// OpenStore builds the store selected by cfg.StorageDriver.
func OpenStore(ctx context.Context, cfg *config.Config) (repomanager.Store, error) {
	switch cfg.StorageDriver {
	case config.DriverMemory:
		return repomanager.NewMemoryStore(), nil
	case config.DriverSQLite:
		if err := filex.EnsureParentDir(cfg.DatabaseDSN); err != nil {
			return nil, err
		}
	}
	return repomanager.OpenSQLStore(ctx, cfg.StorageDriver, cfg.DatabaseDSN)
}

func NewApp(ctx context.Context, c *config.Config, logger logging.Logger) (*App, error) {
	if logger == nil {
		logger = logging.NewJSONLogger(os.Stdout, c.LogLevel)
	}

	store, err := OpenStore(ctx, c)
	if err != nil {
		return nil, fmt.Errorf("db init error: %w", err)
	}

	bus, err := notify.NewBus(c.KafkaBrokers, logger)
	if err != nil {
		_ = store.Close()
		return nil, fmt.Errorf("notification bus: %w", err)
	}

	users := services.NewUserService(store, c.SecretKey, c.AccessTokenValidityDuration, logger)
	catalog := services.NewCatalogService(store, logger)
	recorder := notify.NewRecorder(notify.DefaultKeep, logger)

	router := httpapi.NewRouter(httpapi.Deps{
		Store:            store,
		Users:            users,
		Signup:           services.NewSignupService(store, users, bus, logger),
		Catalog:          catalog,
		Registrations:    services.NewRegistrationService(store, bus, logger),
		Admin:            services.NewAdminService(store, logger),
		Images:           services.NewImageService(catalog, c, logger),
		Notices:          recorder,
		CORSOrigins:      c.CORSOrigins,
		ExposeSignupCode: c.SignupDevCode,
		Log:              logger,
	})

	return &App{
		config:   c,
		logger:   logger,
		store:    store,
		bus:      bus,
		recorder: recorder,
		router:   router,
		seeder:   seed.New(store, users, catalog, logger),
	}, nil
}

func (app *App) initSignalHandler(ctx context.Context, cancelFunc context.CancelFunc) {
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)

	go func() {
		defer signal.Stop(sigs)
		select {
		case s := <-sigs:
			app.logger.Info(ctx, "Signal received", "signal", s.String())
			cancelFunc()
		case <-ctx.Done():
		}
	}()
}

func (app *App) startHTTPServer(ctx context.Context) error {
	listen, err := net.Listen("tcp", app.config.HTTPAddr)
	if err != nil {
		return err
	}

	srv := &http.Server{
		Handler:           app.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		<-ctx.Done()
		app.logger.Info(ctx, "Stopping HTTP server...")
		sctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(sctx); err != nil {
			app.logger.Error(ctx, "http shutdown", "error", err)
		}
	}()

	app.logger.Info(ctx, "Starting HTTP server", "address", listen.Addr().String())

	if err := srv.Serve(listen); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (app *App) startGRPCServer(ctx context.Context) error {
	s := gs.NewGRPCServer(app.config.GRPCAddr, app.logger, app.store, app.config.HealthCheckInterval)
	return s.Run(ctx)
}

// Run seeds the store, starts the notification recorder and both servers,
// and blocks until ctx is cancelled, a signal arrives or a server fails.
// The first server error is returned; cancellation at any stage, seeding
// included, is a clean stop.
func (app *App) Run(ctx context.Context) error {
	ctx, cancelFunc := context.WithCancel(ctx)
	defer cancelFunc()

	app.logger.Info(ctx, "Starting app...", "storage", app.config.StorageDriver)
	defer app.close(ctx)

	if _, err := app.seeder.Run(ctx, seedOptions(app)); err != nil {
		if ctx.Err() != nil {
			app.logger.Info(ctx, "Stopped during seeding", "error", err)
			return nil
		}
		return fmt.Errorf("seed: %w", err)
	}

	if err := app.recorder.Start(ctx, app.bus.Subscriber()); err != nil {
		if ctx.Err() != nil {
			return nil
		}
		return fmt.Errorf("notification recorder: %w", err)
	}

	app.initSignalHandler(ctx, cancelFunc)

	var (
		wg       sync.WaitGroup
		errOnce  sync.Once
		firstErr error
	)
	fail := func(err error) {
		errOnce.Do(func() { firstErr = err })
		cancelFunc()
	}

	wg.Add(2)
	go func() {
		defer wg.Done()
		if err := app.startHTTPServer(ctx); err != nil {
			app.logger.Error(ctx, "http server", "error", err)
			fail(err)
		}
	}()
	go func() {
		defer wg.Done()
		if err := app.startGRPCServer(ctx); err != nil {
			app.logger.Error(ctx, "grpc server", "error", err)
			fail(err)
		}
	}()

	wg.Wait()
	return firstErr
}

func seedOptions(app *App) seed.Options {
	return seed.Options{
		AdminUsername: app.config.AdminUsername,
		AdminPassword: app.config.AdminPassword,
		DemoData:      app.config.SeedDemoData,
	}
}

func (app *App) close(ctx context.Context) {
	if err := app.bus.Close(); err != nil {
		app.logger.Warn(ctx, "close notification bus", "error", err)
	}
	if err := app.store.Close(); err != nil {
		app.logger.Warn(ctx, "close store", "error", err)
	}
	app.logger.Info(ctx, "App stopped")
}
