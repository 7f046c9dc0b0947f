package main

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/getsentry/sentry-go"
	sentryfiber "github.com/getsentry/sentry-go/fiber"
	"github.com/redis/go-redis/v9"

	"github.com/ahmetcoskunkizilkaya/incident-backend/internal/apperr"
	"github.com/ahmetcoskunkizilkaya/incident-backend/internal/authz"
	"github.com/ahmetcoskunkizilkaya/incident-backend/internal/config"
	"github.com/ahmetcoskunkizilkaya/incident-backend/internal/database"
	"github.com/ahmetcoskunkizilkaya/incident-backend/internal/dto"
	"github.com/ahmetcoskunkizilkaya/incident-backend/internal/handlers"
	"github.com/ahmetcoskunkizilkaya/incident-backend/internal/logging"
	"github.com/ahmetcoskunkizilkaya/incident-backend/internal/middleware"
	"github.com/ahmetcoskunkizilkaya/incident-backend/internal/ratelimit"
	"github.com/ahmetcoskunkizilkaya/incident-backend/internal/routes"
	"github.com/ahmetcoskunkizilkaya/incident-backend/internal/services"
	"github.com/ahmetcoskunkizilkaya/incident-backend/internal/storage"
	"github.com/ahmetcoskunkizilkaya/incident-backend/internal/tenant"
	"github.com/gofiber/fiber/v2"
	fiberlogger "github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"
)

// Multipart overhead on top of the per-file limit.
const formOverhead = 1 << 20

func main() {
	cfg := config.Load()

	// Structured logging (JSON to stdout)
	logging.Setup(cfg.Debug)

	if cfg.JWTSecret == "" {
		slog.Error("JWT_SECRET environment variable is required")
		os.Exit(1)
	}
	if cfg.DBPassword == "" {
		slog.Error("DB_PASSWORD environment variable is required")
		os.Exit(1)
	}

	// Organization registry. Without a file, tenant ids are not checked.
	registry := tenant.NewRegistry()
	if cfg.TenantsConfigPath != "" {
		loaded, err := tenant.LoadFromFile(cfg.TenantsConfigPath)
		if err != nil {
			slog.Error("failed to load organization registry", "path", cfg.TenantsConfigPath, "error", err)
			os.Exit(1)
		}
		registry = loaded
	}
	slog.Info("organization registry loaded", "organizations", registry.Len())

	// Databases
	if err := database.Connect(cfg); err != nil {
		slog.Error("database connection failed", "error", err)
		os.Exit(1)
	}
	if err := database.Migrate(database.DB); err != nil {
		slog.Error("migration failed", "error", err)
		os.Exit(1)
	}
	if err := database.ConnectAnalytics(cfg); err != nil {
		slog.Error("analytics database connection failed", "error", err)
		os.Exit(1)
	}

	// PostgreSQL log handler (ERROR+ async batch)
	pgLogHandler := logging.NewPGHandler(database.DB)
	slog.SetDefault(slog.New(logging.NewMultiHandler(
		logging.StdoutHandler(cfg.Debug),
		pgLogHandler,
	)))

	cleanupDone := make(chan struct{})
	logging.StartCleanup(database.DB, cfg.LogRetentionDays, cleanupDone)

	// Login throttling: Redis when configured so lockouts survive restarts
	// and are shared between replicas.
	var attempts ratelimit.AttemptStore = ratelimit.NewMemoryStore()
	var redisClient *redis.Client
	if cfg.RedisAddr != "" {
		redisClient = redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		err := redisClient.Ping(ctx).Err()
		cancel()
		if err != nil {
			slog.Error("redis connection failed", "addr", cfg.RedisAddr, "error", err)
			os.Exit(1)
		}
		attempts = ratelimit.NewRedisStore(redisClient)
	}
	limiter := ratelimit.NewLoginLimiter(attempts, cfg.LoginMaxAttempts, cfg.LoginLockout)

	// Blob storage
	store, err := newBlobStore(cfg)
	if err != nil {
		slog.Error("blob storage init failed", "backend", cfg.BlobBackend, "error", err)
		os.Exit(1)
	}
	signer := storage.NewURLSigner([]byte(cfg.DownloadSigningKey), cfg.PublicBaseURL, cfg.DownloadURLTTL)

	policy := authz.NewPolicy(nil)

	// Services
	authService := services.NewAuthService(database.DB, cfg, limiter, registry)
	userService := services.NewUserService(database.DB, policy, registry)
	reportService := services.NewReportService(database.DB, store, signer, services.ReportServiceConfig{
		MaxUploadBytes:     cfg.MaxUploadBytes,
		MaxParallelUploads: cfg.MaxParallelUploads,
		BlobTimeout:        cfg.BlobTimeout,
		DBTimeout:          cfg.DBTimeout,
		PublicBaseURL:      cfg.PublicBaseURL,
	})
	analyticsService := services.NewAnalyticsService(database.Analytics, cfg.AnalyticsHotTable, cfg.AnalyticsColdTable, cfg.AnalyticsExportLimit)

	// Handlers
	h := routes.Handlers{
		Auth:      handlers.NewAuthHandler(authService, userService, cfg.Debug),
		Reports:   handlers.NewReportHandler(reportService, policy, registry, cfg.Debug),
		Users:     handlers.NewUserHandler(userService, cfg.Debug),
		Analytics: handlers.NewAnalyticsHandler(analyticsService, cfg.Debug),
		Files:     handlers.NewFileHandler(reportService, signer, cfg.Debug),
		Health:    handlers.NewHealthHandler(database.DB, database.Analytics, registry),
	}

	// Sentry error tracking
	if cfg.SentryDSN != "" {
		if err := sentry.Init(sentry.ClientOptions{
			Dsn:              cfg.SentryDSN,
			EnableTracing:    true,
			TracesSampleRate: 0.2,
			Environment:      cfg.AppEnv,
		}); err != nil {
			slog.Error("sentry init failed", "error", err)
		} else {
			defer sentry.Flush(2 * time.Second)
		}
	}

	// Fiber app
	app := fiber.New(fiber.Config{
		BodyLimit:    bodyLimit(cfg),
		ErrorHandler: customErrorHandler(cfg.Debug),
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
		Format: "${time} | ${status} | ${latency} | ${ip} | ${method} | ${path} | ${locals:requestid}\n",
	}))
	app.Use(middleware.Metrics())
	app.Use(middleware.CORS(cfg))
	app.Use(func(c *fiber.Ctx) error {
		c.Set("X-Content-Type-Options", "nosniff")
		c.Set("X-Frame-Options", "DENY")
		c.Set("X-XSS-Protection", "1; mode=block")
		return c.Next()
	})

	// Routes
	routes.Setup(app, cfg, database.DB, policy, h)

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		slog.Info("server starting", "port", cfg.Port, "blob_backend", cfg.BlobBackend)
		if err := app.Listen(":" + cfg.Port); err != nil {
			slog.Error("server failed to start", "error", err)
			os.Exit(1)
		}
	}()

	<-quit
	slog.Info("shutting down server...")

	if err := app.ShutdownWithTimeout(30 * time.Second); err != nil {
		slog.Error("server shutdown error", "error", err)
	}

	close(cleanupDone)
	pgLogHandler.Stop()
	sentry.Flush(2 * time.Second)

	if redisClient != nil {
		if err := redisClient.Close(); err != nil {
			slog.Error("redis close error", "error", err)
		}
	}

	// Close database connections
	closeDB := func(name string, db interface{ Close() error }) {
		if err := db.Close(); err != nil {
			slog.Error("database close error", "db", name, "error", err)
		}
	}
	if sqlDB, err := database.DB.DB(); err == nil {
		closeDB("ops", sqlDB)
	}
	if database.Analytics != database.DB {
		if sqlDB, err := database.Analytics.DB(); err == nil {
			closeDB("analytics", sqlDB)
		}
	}

	slog.Info("server stopped")
}

func newBlobStore(cfg *config.Config) (storage.BlobStore, error) {
	switch cfg.BlobBackend {
	case "ftp":
		store := storage.NewFTPStore(cfg.FTPHost, cfg.FTPPort, cfg.FTPUser, cfg.FTPPassword, cfg.BlobContainer, cfg.BlobTimeout)
		ctx, cancel := context.WithTimeout(context.Background(), cfg.BlobTimeout)
		defer cancel()
		if err := store.EnsureContainer(ctx); err != nil {
			return nil, err
		}
		return store, nil
	case "local", "":
		return storage.NewLocalStore(cfg.BlobLocalDir, cfg.BlobContainer)
	default:
		return nil, errors.New("unknown blob backend " + cfg.BlobBackend)
	}
}

// bodyLimit leaves room for the largest report the upload pool accepts.
func bodyLimit(cfg *config.Config) int {
	files := int64(cfg.MaxParallelUploads)
	if files < 1 {
		files = 1
	}
	limit := cfg.MaxUploadBytes*files + formOverhead
	if limit > 1<<30 {
		limit = 1 << 30
	}
	return int(limit)
}

func customErrorHandler(debug bool) fiber.ErrorHandler {
	return func(c *fiber.Ctx, err error) error {
		code := fiber.StatusInternalServerError
		kind := apperr.KindUnexpected
		message := apperr.PublicMessage(err, debug)

		var fe *fiber.Error
		var ae *apperr.Error
		switch {
		case errors.As(err, &fe):
			code = fe.Code
			message = fe.Message
			switch {
			case code == fiber.StatusRequestEntityTooLarge:
				kind = apperr.KindValidation
			case code == fiber.StatusTooManyRequests:
				kind = apperr.KindRateLimited
			case code == fiber.StatusNotFound:
				kind = apperr.KindNotFound
			case code < 500:
				kind = apperr.KindValidation
			}
		case errors.As(err, &ae):
			kind = ae.Kind
			code = apperr.Status(kind)
		}

		// Only expose error details for client errors (4xx), not server errors (5xx)
		if code >= 500 {
			slog.Error("unhandled server error", "method", c.Method(), "path", c.Path(), "error", err.Error())
			if !debug {
				message = "Internal server error"
			}
		}

		return c.Status(code).JSON(dto.ErrorResponse{
			Error:   true,
			Message: message,
			Kind:    string(kind),
		})
	}
}
