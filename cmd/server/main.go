package main

import (
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/getsentry/sentry-go"
	sentryfiber "github.com/getsentry/sentry-go/fiber"

	"github.com/echotune/echotune-backend/internal/config"
	"github.com/echotune/echotune-backend/internal/database"
	"github.com/echotune/echotune-backend/internal/handlers"
	"github.com/echotune/echotune-backend/internal/logging"
	"github.com/echotune/echotune-backend/internal/mail"
	"github.com/echotune/echotune-backend/internal/middleware"
	"github.com/echotune/echotune-backend/internal/payment"
	"github.com/echotune/echotune-backend/internal/routes"
	"github.com/echotune/echotune-backend/internal/services"
	"github.com/echotune/echotune-backend/internal/store"
	"github.com/echotune/echotune-backend/internal/token"
	"github.com/gofiber/fiber/v2"
	fiberlogger "github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"
)

func main() {
	// Structured logging (JSON to stdout)
	logging.Setup()

	cfg := config.Load()

	if cfg.JWTSecret == "" {
		slog.Error("JWT_SECRET environment variable is required")
		os.Exit(1)
	}
	if cfg.DBPassword == "" {
		slog.Error("DB_PASSWORD environment variable is required")
		os.Exit(1)
	}

	// Database
	if err := database.Connect(cfg); err != nil {
		slog.Error("database connection failed", "error", err)
		os.Exit(1)
	}
	if err := database.Migrate(); err != nil {
		slog.Error("migration failed", "error", err)
		os.Exit(1)
	}

	// PostgreSQL log handler (ERROR+ async batch)
	dbLogHandler := logging.NewDBHandler(database.DB)
	slog.SetDefault(slog.New(logging.NewFanoutHandler(
		slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}),
		dbLogHandler,
	)))

	// Log cleanup (30-day retention)
	cleanupDone := make(chan struct{})
	logging.StartCleanup(database.DB, cleanupDone)

	// Collaborators; each falls back to a disabled stand-in when its
	// configuration is absent so the rest of the system keeps working.
	var mailer mail.Mailer
	if cfg.SMTPUser != "" {
		smtp, err := mail.NewSMTPMailer(cfg.SMTPHost, cfg.SMTPPort, cfg.SMTPUser, cfg.SMTPPass, cfg.MailFrom)
		if err != nil {
			slog.Error("smtp mailer init failed", "error", err)
			os.Exit(1)
		}
		mailer = smtp
	} else {
		slog.Warn("SMTP not configured; verification emails disabled")
		mailer = mail.Disabled{}
	}

	var gateway payment.Gateway
	if cfg.StripeSecretKey != "" {
		gateway = payment.NewStripeGateway(cfg.StripeSecretKey)
	} else {
		slog.Warn("Stripe not configured; checkout runs in mock mode")
		gateway = payment.Disabled{}
	}

	issuer := token.NewJWTIssuer(cfg.JWTSecret, cfg.JWTExpiry)

	var google services.GoogleVerifier
	if cfg.GoogleClientID != "" {
		google = services.NewGoogleJWKSClient(cfg.GoogleClientID)
	}

	// Stores and services
	accounts := store.NewGormAccountStore(database.DB)
	assets := store.NewGormAssetStore(database.DB)
	purchases := store.NewGormPurchaseStore(database.DB)
	authService := services.NewAuthService(accounts, mailer, issuer, google, cfg)
	checkoutService := services.NewCheckoutService(purchases, assets, gateway, cfg.AllowMockConfirm)
	entitlementService := services.NewEntitlementService(assets, purchases)
	catalogService := services.NewCatalogService(database.DB)
	libraryService := services.NewLibraryService(database.DB)
	ownerService := services.NewOwnerService(database.DB)
	piracyService := services.NewPiracyService(database.DB)

	// Handlers
	authHandler := handlers.NewAuthHandler(authService)
	healthHandler := handlers.NewHealthHandler()
	checkoutHandler := handlers.NewCheckoutHandler(checkoutService, entitlementService)
	webhookHandler := handlers.NewWebhookHandler(checkoutService, cfg.StripeWebhookSecret)
	catalogHandler := handlers.NewCatalogHandler(catalogService)
	libraryHandler := handlers.NewLibraryHandler(libraryService)
	ownerHandler := handlers.NewOwnerHandler(ownerService, catalogService)
	piracyHandler := handlers.NewPiracyHandler(piracyService)

	// Sentry error tracking
	if dsn := os.Getenv("SENTRY_DSN"); dsn != "" {
		if err := sentry.Init(sentry.ClientOptions{
			Dsn:              dsn,
			EnableTracing:    true,
			TracesSampleRate: 0.2,
			Environment:      os.Getenv("APP_ENV"),
		}); err != nil {
			slog.Error("sentry init failed", "error", err)
		} else {
			defer sentry.Flush(2 * time.Second)
		}
	}

	// Fiber app
	app := fiber.New(fiber.Config{
		BodyLimit:    4 * 1024 * 1024,
		ErrorHandler: customErrorHandler,
	})

	// Sentry middleware
	app.Use(sentryfiber.New(sentryfiber.Options{
		Repanic:         true,
		WaitForDelivery: false,
	}))

	// Global middleware
	app.Use(recover.New())
	app.Use(requestid.New())
	app.Use(fiberlogger.New(fiberlogger.Config{
		Format: "${time} | ${status} | ${latency} | ${ip} | ${method} | ${path}\n",
	}))
	app.Use(middleware.CORS(cfg))
	app.Use(func(c *fiber.Ctx) error {
		c.Set("X-Content-Type-Options", "nosniff")
		c.Set("X-Frame-Options", "DENY")
		c.Set("X-XSS-Protection", "1; mode=block")
		return c.Next()
	})

	// Routes
	routes.Setup(app, cfg, database.DB,
		authHandler, healthHandler, checkoutHandler, webhookHandler,
		catalogHandler, libraryHandler, ownerHandler, piracyHandler)

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		slog.Info("server starting", "port", cfg.Port)
		if err := app.Listen(":" + cfg.Port); err != nil {
			slog.Error("server failed to start", "error", err)
			os.Exit(1)
		}
	}()

	<-quit
	slog.Info("shutting down server...")

	close(cleanupDone)
	dbLogHandler.Stop()
	sentry.Flush(2 * time.Second)

	if err := app.Shutdown(); err != nil {
		slog.Error("server shutdown error", "error", err)
	}

	// Close database connections
	if sqlDB, err := database.DB.DB(); err == nil {
		if err := sqlDB.Close(); err != nil {
			slog.Error("database close error", "error", err)
		}
	}

	slog.Info("server stopped")
}

func customErrorHandler(c *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError
	message := "Internal server error"
	if e, ok := err.(*fiber.Error); ok {
		code = e.Code
		message = e.Message
	}

	// Only expose error details for client errors (4xx), not server errors (5xx)
	if code >= 500 {
		slog.Error("unhandled server error", "method", c.Method(), "path", c.Path(), "error", err.Error())
		message = "Internal server error"
	}

	return c.Status(code).JSON(fiber.Map{
		"error":   true,
		"message": message,
	})
}
