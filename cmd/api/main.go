// Package main is the entrypoint for the Cubbyhole API server.
package main

import (
	"context"
	"log/slog"
	"net/url"
	"os"
	"regexp"
	"strings"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/cubbyhole/cubbyhole/internal/auth"
	"github.com/cubbyhole/cubbyhole/internal/cache"
	"github.com/cubbyhole/cubbyhole/internal/config"
	"github.com/cubbyhole/cubbyhole/internal/handler"
	"github.com/cubbyhole/cubbyhole/internal/metrics"
	"github.com/cubbyhole/cubbyhole/internal/middleware"
	"github.com/cubbyhole/cubbyhole/internal/repository"
	"github.com/cubbyhole/cubbyhole/internal/server"
	"github.com/cubbyhole/cubbyhole/internal/service"
	"github.com/cubbyhole/cubbyhole/internal/storage"
	"github.com/cubbyhole/cubbyhole/internal/worker"
)

func main() {
	ctx := context.Background()

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	// Initialize logger
	logger := initLogger(cfg)

	// Initialize database
	repo, err := repository.New(ctx, cfg.DatabaseURL)
	if err != nil {
		logger.Error(
			"failed to connect to database",
			slog.String("error", sanitizeError(err, cfg.DatabaseURL)),
			slog.String("database_url", redactURL(cfg.DatabaseURL)),
		)
		os.Exit(1)
	}
	defer repo.Close()
	logger.Info("connected to database")

	// Run schema migrations
	if err := repository.Migrate(ctx, cfg.DatabaseURL); err != nil {
		logger.Error(
			"failed to run migrations",
			slog.String("error", sanitizeError(err, cfg.DatabaseURL)),
		)
		os.Exit(1)
	}
	logger.Info("migrations applied")

	// Initialize cache
	cacheClient, err := cache.New(ctx, cfg.RedisURL)
	if err != nil {
		logger.Error(
			"failed to connect to Redis",
			slog.String("error", sanitizeError(err, cfg.RedisURL)),
			slog.String("redis_url", redactURL(cfg.RedisURL)),
		)
		os.Exit(1)
	}
	defer cacheClient.Close()
	logger.Info("connected to Redis")

	// Initialize object store
	store, err := storage.New(ctx, storage.Config{
		Endpoint:     cfg.S3Endpoint,
		Region:       cfg.S3Region,
		Bucket:       cfg.S3Bucket,
		AccessKey:    cfg.S3AccessKey,
		SecretKey:    cfg.S3SecretKey,
		UsePathStyle: cfg.S3UsePathStyle,
	})
	if err != nil {
		logger.Error("failed to initialize object store",
			slog.String("error", sanitizeError(err, cfg.S3SecretKey)),
			slog.String("bucket", cfg.S3Bucket),
		)
		os.Exit(1)
	}
	logger.Info("connected to object store", "bucket", cfg.S3Bucket)

	// Initialize services
	metricsRecorder := metrics.NewNoop()
	tokenIssuer := auth.NewTokenIssuer([]byte(cfg.SessionSecret), cfg.SessionTTL)
	authService := service.NewAuthService(repo, tokenIssuer, metricsRecorder)
	vaultService := service.NewVaultService(repo, store, cacheClient, metricsRecorder, logger)

	// Initialize handlers
	h := handler.New()
	healthHandler := handler.NewHealthHandler(repo, cacheClient, store)
	authHandler := handler.NewAuthHandler(authService, logger, cfg.SessionCookieSecure())
	vaultHandler := handler.NewVaultHandler(vaultService, logger)

	// Setup router
	r := setupRouter(h, healthHandler, authHandler, vaultHandler, tokenIssuer, cacheClient, cfg, logger)

	// Create server
	srv := server.New(
		r,
		cfg.AppPort,
		cfg.ReadTimeout,
		cfg.WriteTimeout,
		cfg.ShutdownTimeout,
		logger,
	)

	// Start the orphan janitor; it retries file deletes whose object
	// removal failed at request time.
	janitor := worker.NewJanitor(repo, store, logger, metricsRecorder, cfg.JanitorInterval, cfg.JanitorBatchSize)
	janitor.Start(ctx)
	srv.OnShutdown("janitor", janitor.Shutdown)

	logger.Info("starting server",
		"port", cfg.AppPort,
		"env", cfg.AppEnv,
	)

	if err := srv.Run(); err != nil {
		logger.Error("server error", "error", err)
		os.Exit(1)
	}
}

// initLogger initializes the slog logger based on configuration.
func initLogger(cfg *config.Config) *slog.Logger {
	var h slog.Handler

	level := parseLogLevel(cfg.LogLevel)

	opts := &slog.HandlerOptions{
		Level: level,
	}

	if cfg.LogFormat == "json" {
		h = slog.NewJSONHandler(os.Stdout, opts)
	} else {
		h = slog.NewTextHandler(os.Stdout, opts)
	}

	logger := slog.New(h)
	slog.SetDefault(logger)

	return logger
}

// parseLogLevel converts string log level to slog.Level.
func parseLogLevel(level string) slog.Level {
	switch level {
	case "debug":
		return slog.LevelDebug
	case "info":
		return slog.LevelInfo
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// setupRouter configures the chi router with all routes and middleware.
func setupRouter(
	h *handler.Handler,
	healthHandler *handler.HealthHandler,
	authHandler *handler.AuthHandler,
	vaultHandler *handler.VaultHandler,
	tokenIssuer *auth.TokenIssuer,
	cacheClient *cache.Cache,
	cfg *config.Config,
	logger *slog.Logger,
) *chi.Mux {
	r := chi.NewRouter()

	// Global middleware
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.RequestID)
	r.Use(middleware.Logger(logger))
	r.Use(middleware.Recoverer(logger))
	r.Use(middleware.Security(middleware.SecurityConfig{
		IsDevelopment: cfg.IsDevelopment(),
	}))

	if origins := cfg.GetCORSAllowedOrigins(); len(origins) > 0 {
		corsCfg := middleware.DefaultCORSConfig()
		corsCfg.AllowedOrigins = origins
		r.Use(middleware.CORS(corsCfg))
	}

	// Health endpoints (no auth required)
	r.Get("/healthz", healthHandler.Healthz)
	r.Get("/readyz", healthHandler.Readyz)

	// Root info endpoint
	r.Get("/", h.Root)

	sessionCfg := middleware.SessionConfig{
		Logger:   logger,
		Verifier: tokenIssuer,
	}

	rateLimitCfg := middleware.RateLimitConfig{
		Logger:    logger,
		Cache:     cacheClient,
		Enabled:   cfg.RateLimitEnabled,
		AuthRPS:   cfg.RateLimitAuthRPS,
		AuthBurst: cfg.RateLimitAuthBurst,
		APIRPM:    cfg.RateLimitAPIRPM,
		APIBurst:  cfg.RateLimitAPIBurst,
	}

	r.Route("/api/v1", func(r chi.Router) {
		// Credential endpoints are the brute-force surface; limit per IP.
		r.Route("/auth", func(r chi.Router) {
			r.With(middleware.RateLimitAuth(rateLimitCfg)).Post("/register", authHandler.Register)
			r.With(middleware.RateLimitAuth(rateLimitCfg)).Post("/login", authHandler.Login)
			r.Post("/logout", authHandler.Logout)
			r.With(middleware.Session(sessionCfg)).Get("/me", authHandler.Me)
		})

		// Vault endpoints require a session; limited per user.
		r.Group(func(r chi.Router) {
			r.Use(middleware.Session(sessionCfg))
			r.Use(middleware.RateLimitAPI(rateLimitCfg))

			r.Route("/items", func(r chi.Router) {
				r.Get("/", vaultHandler.List)
				r.Get("/{id}", vaultHandler.Get)
				r.Delete("/{id}", vaultHandler.Delete)
				r.Get("/{id}/download", vaultHandler.Download)
				r.Get("/{id}/preview", vaultHandler.Preview)
			})

			r.Post("/folders", vaultHandler.CreateFolder)
			r.With(middleware.MaxBodySize(cfg.MaxUploadSize)).Post("/files", vaultHandler.Upload)
		})
	})

	// 404 and 405 handlers
	r.NotFound(h.NotFound)
	r.MethodNotAllowed(h.MethodNotAllowed)

	return r
}

var passwordPattern = regexp.MustCompile(`(?i)password=[^\s]+`)

func redactURL(raw string) string {
	if raw == "" {
		return ""
	}

	parsed, err := url.Parse(raw)
	if err != nil {
		return "[redacted]"
	}

	if parsed.User != nil {
		username := parsed.User.Username()
		if username == "" {
			parsed.User = url.User("redacted")
		} else {
			parsed.User = url.User(username)
		}
	}

	return parsed.String()
}

func sanitizeError(err error, secrets ...string) string {
	if err == nil {
		return ""
	}

	msg := err.Error()
	for _, secret := range secrets {
		if secret == "" {
			continue
		}
		redacted := redactURL(secret)
		if redacted == "" {
			redacted = "[redacted]"
		}
		msg = strings.ReplaceAll(msg, secret, redacted)
	}

	return passwordPattern.ReplaceAllString(msg, "password=redacted")
}
