package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	httpapi "github.com/aussiebroadwan/liftlog/internal/auth/http"
	"github.com/aussiebroadwan/liftlog/internal/auth/service"
	"github.com/aussiebroadwan/liftlog/internal/auth/store"
	"github.com/aussiebroadwan/liftlog/internal/auth/store/drivers/memory"
	"github.com/aussiebroadwan/liftlog/internal/auth/store/drivers/sqlite"
	"github.com/aussiebroadwan/liftlog/pkg/cryptox"
	"github.com/aussiebroadwan/liftlog/pkg/slogx"
)

const (
	// BuildVersion should be set at build time via ldflags.
	BuildVersion = "v0.1.0"
)

// Application wires the auth service together: storage, services and the
// HTTP server.
type Application struct {
	cfg    Config
	logger *slog.Logger

	db        store.Store
	transient store.Transient

	tokenService         *service.TokenService
	otpService           *service.OTPService
	signedPayloadService *service.SignedPayloadService
	principalService     *service.PrincipalService
	housekeepingService  *service.HousekeepingService

	server *http.Server
	router *httpapi.Router
}

// New creates a new Application instance with all dependencies initialized.
func New(cfg Config) (*Application, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	app := &Application{
		cfg: cfg,
		logger: slogx.New(slogx.Config{
			Service: "liftlog-auth",
			Version: BuildVersion,
			Env:     cfg.Env,
			Level:   cfg.LogLevel,
			Format:  cfg.LogFormat,
		}),
	}

	if err := app.initDatabase(); err != nil {
		return nil, err
	}
	if err := app.initServices(); err != nil {
		_ = app.db.Close()
		return nil, err
	}
	app.initHTTP()

	return app, nil
}

// Handler exposes the configured router, mainly for in-process tests.
func (app *Application) Handler() http.Handler {
	return app.router
}

// Run starts the application and blocks until shutdown is requested.
func (app *Application) Run() error {
	app.housekeepingService.Start()

	app.logger.Info("auth service starting",
		"port", app.cfg.Port,
		"version", BuildVersion,
		"challenge_store", app.cfg.ChallengeStore,
	)

	serverErrors := make(chan error, 1)
	go func() {
		serverErrors <- app.server.ListenAndServe()
	}()

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-serverErrors:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			app.housekeepingService.Stop()
			_ = app.db.Close()
			return fmt.Errorf("server failed: %w", err)
		}
	case sig := <-shutdown:
		app.logger.Info("shutdown signal received", "signal", sig)

		if err := app.Shutdown(); err != nil {
			return fmt.Errorf("graceful shutdown failed: %w", err)
		}
	}

	return nil
}

// Shutdown gracefully shuts down the application.
func (app *Application) Shutdown() error {
	app.logger.Info("shutting down auth service...")

	ctx, cancel := context.WithTimeout(context.Background(), app.cfg.ShutdownGracePeriod)
	defer cancel()

	if err := app.server.Shutdown(ctx); err != nil {
		app.logger.Error("graceful server shutdown failed", "error", err)
		if err := app.server.Close(); err != nil {
			app.logger.Error("error closing server", "error", err)
		}
	}

	app.housekeepingService.Stop()

	if err := app.db.Close(); err != nil {
		app.logger.Error("error closing database", "error", err)
		return err
	}

	app.logger.Info("auth service stopped")
	return nil
}

// initDatabase opens the principal database and picks where outstanding
// challenges live.
func (app *Application) initDatabase() error {
	db, err := sqlite.NewStore(app.cfg.DatabaseFile)
	if err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}
	app.db = db

	if err := db.ApplyMigrations(); err != nil {
		_ = db.Close()
		return fmt.Errorf("failed to apply database migrations: %w", err)
	}
	app.logger.Info("database migrations applied successfully", "file", app.cfg.DatabaseFile)

	switch app.cfg.ChallengeStore {
	case ChallengeStoreSQLite:
		app.transient = db
	default:
		app.transient = memory.New()
	}
	return nil
}

func (app *Application) initServices() error {
	tokens, err := service.NewTokenService(service.TokenConfig{
		Issuer:        app.cfg.Issuer,
		AccessSecret:  []byte(app.cfg.AccessSecret),
		RefreshSecret: []byte(app.cfg.RefreshSecret),
		AccessTTL:     app.cfg.AccessTTL,
		RefreshTTL:    app.cfg.RefreshTTL,
	}, app.db.Principals())
	if err != nil {
		return fmt.Errorf("failed to initialize token service: %w", err)
	}
	app.tokenService = tokens

	app.otpService = &service.OTPService{
		Principals:    app.db.Principals(),
		Registrations: app.transient.Registrations(),
		Challenges: &service.ChallengeService{
			Challenges: app.transient.Challenges(),
			TTL:        app.cfg.ChallengeTTL,
		},
		Tokens:          tokens,
		Deliverer:       service.LogDeliverer{},
		RegistrationTTL: app.cfg.RegistrationTTL,
		Tx:              app.db,
		TxRegistrations: app.cfg.ChallengeStore == ChallengeStoreSQLite,
	}

	app.signedPayloadService = &service.SignedPayloadService{
		Principals: app.db.Principals(),
		Tx:         app.db,
		Tokens:     tokens,
		Secret:     cryptox.PayloadSecret(app.cfg.ProviderToken),
		MaxAge:     app.cfg.SignedPayloadMaxAge,
	}

	app.principalService = &service.PrincipalService{Principals: app.db.Principals()}

	app.housekeepingService = service.NewHousekeepingService(
		app.transient,
		app.logger,
		app.cfg.HousekeepingInterval,
	)
	return nil
}

// initHTTP initializes the HTTP router and server.
func (app *Application) initHTTP() {
	router := httpapi.NewRouter(
		BuildVersion,
		app.db,
		app.cfg.ChallengeStore,
		httpapi.CookieConfig{
			Secure: app.cfg.CookieSecure(),
			MaxAge: app.cfg.RefreshTTL,
		},
		app.logger,
	)

	router.TokenService = app.tokenService
	router.OTPService = app.otpService
	router.SignedPayloadService = app.signedPayloadService
	router.PrincipalService = app.principalService
	router.ApplyRoutes()

	app.router = router

	app.server = &http.Server{
		Addr:              fmt.Sprintf(":%d", app.cfg.Port),
		Handler:           router,
		ReadHeaderTimeout: 3 * time.Second,
	}
}
