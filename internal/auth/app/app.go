package app

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	httpapi "github.com/skillbase/skillbase/internal/auth/http"
	"github.com/skillbase/skillbase/internal/auth/mail"
	"github.com/skillbase/skillbase/internal/auth/service"
	"github.com/skillbase/skillbase/internal/auth/store"
	"github.com/skillbase/skillbase/internal/auth/store/drivers/sqlite"
	"github.com/skillbase/skillbase/pkg/cryptox"
	"github.com/skillbase/skillbase/pkg/jwtx"
	"github.com/skillbase/skillbase/pkg/slogx"
)

const (
	// BuildVersion should be set at build time via ldflags. Later problem
	BuildVersion = "v0.1.0"
)

// Application encapsulates the auth service with all its dependencies
type Application struct {
	cfg    Config
	logger *slog.Logger

	// Core dependencies
	db    store.Store
	codec *jwtx.Codec

	// Services
	tokenService        *service.TokenService
	authService         *service.AuthService
	userService         *service.UserService
	mfaService          *service.MFAService
	passwordService     *service.PasswordService
	socialService       *service.SocialService
	adminService        *service.AdminService
	auditService        *service.AuditService
	seedService         *service.SeedService
	housekeepingService *service.HousekeepingService

	// HTTP server
	server *http.Server
	router *httpapi.Router
}

// New creates a new Application instance with all dependencies initialized
func New(cfg Config) (*Application, error) {
	app := &Application{
		cfg: cfg,
		logger: slogx.New(slogx.Config{
			Service: "auth-service",
			Version: BuildVersion,
			Env:     cfg.Env,
			Level:   cfg.LogLevel,
			Format:  cfg.LogFormat,
		}),
	}

	// Set pepper path for password hashing
	cryptox.SetPepperPath(app.cfg.PepperFile)

	codec, err := jwtx.NewCodec(cfg.Issuer, map[jwtx.Purpose]string{
		jwtx.PurposeAccess:        cfg.AccessSecret,
		jwtx.PurposeRefresh:       cfg.RefreshSecret,
		jwtx.PurposeMFAChallenge:  cfg.MFASecret,
		jwtx.PurposePasswordReset: cfg.ResetSecret,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to initialize token codec: %w", err)
	}
	app.codec = codec

	if err := app.initDatabase(); err != nil {
		return nil, err
	}

	app.initServices()

	// Seed default roles and, when configured, the owner account before
	// taking traffic.
	if err := app.seedService.Run(context.Background(), service.OwnerConfig{
		Email:    cfg.OwnerEmail,
		Name:     cfg.OwnerName,
		Password: cfg.OwnerPassword,
	}); err != nil {
		_ = app.db.Close()
		return nil, fmt.Errorf("failed to seed database: %w", err)
	}

	app.initHTTP()

	return app, nil
}

// Run starts the application and blocks until shutdown is requested
func (app *Application) Run() error {
	// Start housekeeping service
	app.housekeepingService.Start()

	app.logger.Info("auth service starting", "port", app.cfg.Port, "version", BuildVersion)

	// Start server in a goroutine
	serverErrors := make(chan error, 1)
	go func() {
		serverErrors <- app.server.ListenAndServe()
	}()

	// Setup signal handling for graceful shutdown
	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)

	// Block until we receive a shutdown signal or server error
	select {
	case err := <-serverErrors:
		if err != nil && err != http.ErrServerClosed {
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

// Shutdown gracefully shuts down the application
func (app *Application) Shutdown() error {
	app.logger.Info("shutting down auth service...")

	// Give outstanding requests a deadline for completion
	ctx, cancel := context.WithTimeout(context.Background(), app.cfg.ShutdownGracePeriod)
	defer cancel()

	// Shutdown the HTTP server
	if err := app.server.Shutdown(ctx); err != nil {
		app.logger.Error("graceful server shutdown failed", "error", err)
		if err := app.server.Close(); err != nil {
			app.logger.Error("error closing server", "error", err)
		}
	}

	// Stop the housekeeping service
	app.housekeepingService.Stop()

	// Close database connection
	if err := app.db.Close(); err != nil {
		app.logger.Error("error closing database", "error", err)
		return err
	}

	app.logger.Info("auth service stopped")
	return nil
}

// initDatabase initializes the database and applies migrations
func (app *Application) initDatabase() error {
	host := fmt.Sprintf("file:%s?_busy_timeout=5000&_journal_mode=WAL", app.cfg.DatabaseFile)
	db, err := sqlite.NewStore(host)
	if err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}
	app.db = db

	if err := db.ApplyMigrations(); err != nil {
		_ = db.Close()
		return fmt.Errorf("failed to apply database migrations: %w", err)
	}

	app.logger.Info("database migrations applied successfully")
	return nil
}

// initServices initializes all business logic services
func (app *Application) initServices() {
	app.auditService = &service.AuditService{Store: app.db}

	app.tokenService = &service.TokenService{
		Store:      app.db,
		Codec:      app.codec,
		Audit:      app.auditService,
		Issuer:     app.cfg.Issuer,
		AccessTTL:  jwtx.DefaultAccessTokenTTL,
		RefreshTTL: jwtx.DefaultRefreshTokenTTL,
	}

	var mailer mail.Mailer
	if app.cfg.MailAPIEndpoint != "" && app.cfg.MailAPIKey != "" {
		mailer = mail.NewAPIMailer(app.cfg.MailAPIEndpoint, app.cfg.MailAPIKey, app.cfg.MailFrom)
	} else {
		app.logger.Warn("mail API not configured, reset emails will be logged only")
		mailer = &mail.LogMailer{Logger: app.logger}
	}

	app.authService = &service.AuthService{
		Store:  app.db,
		Tokens: app.tokenService,
		Audit:  app.auditService,
		Codec:  app.codec,
		Mailer: mailer,
		Issuer: app.cfg.Issuer,
	}

	app.userService = &service.UserService{Store: app.db}

	app.mfaService = &service.MFAService{
		Store:  app.db,
		Tokens: app.tokenService,
		Audit:  app.auditService,
		Issuer: app.cfg.Issuer,
	}

	app.passwordService = &service.PasswordService{
		Store:           app.db,
		Tokens:          app.tokenService,
		Audit:           app.auditService,
		Codec:           app.codec,
		Mailer:          mailer,
		Issuer:          app.cfg.Issuer,
		FrontendBaseURL: app.cfg.FrontendBaseURL,
	}

	app.socialService = &service.SocialService{
		Store:    app.db,
		Tokens:   app.tokenService,
		Audit:    app.auditService,
		Verifier: service.NewHTTPIdentityVerifier(),
	}

	app.adminService = &service.AdminService{
		Store:  app.db,
		Tokens: app.tokenService,
		Audit:  app.auditService,
	}

	app.seedService = &service.SeedService{Store: app.db}

	app.housekeepingService = service.NewHousekeepingService(
		app.db,
		app.logger,
		app.cfg.HousekeepingInterval,
	)
}

// initHTTP initializes the HTTP router and server
func (app *Application) initHTTP() {
	router := httpapi.NewRouter(
		app.codec,
		BuildVersion,
		app.cfg.SecureCookies,
		app.db,
		app.logger,
	)

	// Wire services to router
	router.TokenService = app.tokenService
	router.AuthService = app.authService
	router.UserService = app.userService
	router.MFAService = app.mfaService
	router.PasswordService = app.passwordService
	router.SocialService = app.socialService
	router.AdminService = app.adminService
	router.AuditService = app.auditService
	router.ApplyRoutes()

	app.router = router

	// Initialize HTTP server
	app.server = &http.Server{
		Addr:              fmt.Sprintf(":%d", app.cfg.Port),
		Handler:           router,
		ReadHeaderTimeout: 3 * time.Second,
	}
}
