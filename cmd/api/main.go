// Package main is the entrypoint for the ATTEC API server.
package main

import (
	"context"
	"errors"
	"io/fs"
	"log/slog"
	"net/url"
	"os"
	"regexp"
	"strings"

	"github.com/joho/godotenv"

	"github.com/attec/attec-api/internal/auth"
	"github.com/attec/attec-api/internal/cache"
	"github.com/attec/attec-api/internal/config"
	"github.com/attec/attec-api/internal/metrics"
	"github.com/attec/attec-api/internal/middleware"
	"github.com/attec/attec-api/internal/notify"
	"github.com/attec/attec-api/internal/ratelimit"
	"github.com/attec/attec-api/internal/repository"
	"github.com/attec/attec-api/internal/server"
	"github.com/attec/attec-api/internal/service"
)

func main() {
	ctx := context.Background()

	// A .env file is optional; real environment variables win.
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		slog.Warn("failed to read .env file", "error", err)
	}

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger := initLogger(cfg)

	if err := run(ctx, cfg, logger); err != nil {
		logger.Error("server error", "error", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *config.Config, logger *slog.Logger) error {
	if cfg.RunMigrations {
		if err := repository.Migrate(ctx, cfg.DatabaseURL); err != nil {
			logger.Error("failed to apply migrations",
				slog.String("error", sanitizeError(err, cfg.DatabaseURL)),
			)
			return errors.New("migrations failed")
		}
		logger.Info("database migrations applied")
	}

	repo, err := repository.New(ctx, cfg.DatabaseURL)
	if err != nil {
		logger.Error(
			"failed to connect to database",
			slog.String("error", sanitizeError(err, cfg.DatabaseURL)),
			slog.String("database_url", redactURL(cfg.DatabaseURL)),
		)
		return errors.New("database unavailable")
	}
	logger.Info("connected to database")

	// Redis is optional unless it backs the rate limiter.
	var cacheClient *cache.Cache
	if cfg.RedisURL != "" {
		cacheClient, err = cache.New(ctx, cfg.RedisURL)
		if err != nil {
			logger.Error(
				"failed to connect to Redis",
				slog.String("error", sanitizeError(err, cfg.RedisURL)),
				slog.String("redis_url", redactURL(cfg.RedisURL)),
			)
			repo.Close()
			return errors.New("redis unavailable")
		}
		logger.Info("connected to Redis")
	}

	recorder := metrics.NewPrometheus()

	creds, err := auth.NewCredentialStore(repo)
	if err != nil {
		return err
	}
	tokens, err := auth.NewTokenService([]byte(cfg.JWTSecret), cfg.TokenTTL)
	if err != nil {
		return err
	}

	contactService := newContactService(cfg, repo, newNotifier(cfg, logger), logger, recorder)
	analyticsService := service.NewAnalyticsService(repo, repo, logger, recorder)
	authService := service.NewAuthService(creds, tokens, logger, recorder)

	limiterCtx, stopLimiter := context.WithCancel(ctx)
	limiter, err := newLimiter(limiterCtx, cfg, cacheClient, logger)
	if err != nil {
		stopLimiter()
		return err
	}

	cors := middleware.DefaultCORSConfig()
	cors.Permissive = cfg.CORSPermissive
	cors.AllowedOrigins = cfg.GetCORSAllowedOrigins()

	deps := server.RouterDeps{
		Logger:             logger,
		Metrics:            recorder,
		MetricsHandler:     recorder.Handler(),
		Version:            cfg.AppVersion,
		Environment:        cfg.AppEnv,
		DB:                 repo,
		Login:              authService,
		Tokens:             tokens,
		Users:              creds,
		Contact:            contactService,
		Analytics:          analyticsService,
		Limiter:            limiter,
		RateLimitEnabled:   cfg.RateLimitEnabled,
		CORS:               cors,
		TrustProxyHeaders:  cfg.TrustProxyHeaders,
		MaxRequestBodySize: cfg.MaxRequestBodySize,
		IsDevelopment:      cfg.IsDevelopment(),
	}
	// A nil *cache.Cache must not become a non-nil interface.
	if cacheClient != nil {
		deps.Cache = cacheClient
	}

	srv := server.New(server.NewRouter(deps), server.Options{
		Port:            cfg.AppPort,
		ReadTimeout:     cfg.ReadTimeout,
		WriteTimeout:    cfg.WriteTimeout,
		ShutdownTimeout: cfg.ShutdownTimeout,
	}, logger)

	// Registered in dependency order; they run in reverse.
	srv.OnShutdown("database", func(context.Context) error {
		repo.Close()
		return nil
	})
	if cacheClient != nil {
		srv.OnShutdown("redis", func(context.Context) error {
			return cacheClient.Close()
		})
	}
	srv.OnShutdown("rate limiter", func(context.Context) error {
		stopLimiter()
		return nil
	})
	srv.OnShutdown("notifications", contactService.Wait)

	logger.Info("starting server",
		"port", cfg.AppPort,
		"env", cfg.AppEnv,
		"version", cfg.AppVersion,
		"rate_limit_backend", cfg.RateLimitBackend,
		"cors_permissive", cfg.CORSPermissive,
	)

	return srv.Run(ctx)
}

// newNotifier picks the webhook notifier when an endpoint is configured.
func newNotifier(cfg *config.Config, logger *slog.Logger) notify.Notifier {
	if cfg.NotifyWebhookURL == "" {
		return notify.NewLogNotifier(logger)
	}
	logger.Info("lead notifications enabled", "endpoint", redactURL(cfg.NotifyWebhookURL))
	return notify.NewWebhookNotifier(cfg.NotifyWebhookURL, cfg.NotifyWebhookSecret, cfg.NotifyTimeout, logger)
}

// newContactService bounds each detached notification send, retries
// included, by NOTIFY_TIMEOUT.
func newContactService(cfg *config.Config, store service.SubmissionStore, notifier notify.Notifier, logger *slog.Logger, recorder metrics.Recorder) *service.ContactService {
	return service.NewContactService(store, notifier, logger, recorder, service.WithNotifyTimeout(cfg.NotifyTimeout))
}

// newLimiter builds the configured rate limit backend. The in-memory
// backend sweeps expired windows until ctx is cancelled.
func newLimiter(ctx context.Context, cfg *config.Config, cacheClient *cache.Cache, logger *slog.Logger) (ratelimit.Limiter, error) {
	if !cfg.RateLimitEnabled {
		return nil, nil
	}

	if cfg.RateLimitBackend == config.RateLimitBackendRedis {
		return cache.NewFixedWindowLimiter(cacheClient, cfg.RateLimitLimit, cfg.RateLimitWindow, logger)
	}

	fw, err := ratelimit.NewFixedWindow(cfg.RateLimitLimit, cfg.RateLimitWindow,
		ratelimit.WithMaxKeys(cfg.RateLimitMaxKeys))
	if err != nil {
		return nil, err
	}
	go fw.RunSweeper(ctx, cfg.RateLimitWindow, logger.With("component", "ratelimit"))
	return fw, nil
}

// initLogger initializes the slog logger based on configuration.
func initLogger(cfg *config.Config) *slog.Logger {
	var h slog.Handler

	opts := &slog.HandlerOptions{
		Level: parseLogLevel(cfg.LogLevel),
	}

	if cfg.LogFormat == "json" {
		h = slog.NewJSONHandler(os.Stdout, opts)
	} else {
		h = slog.NewTextHandler(os.Stdout, opts)
	}

	logger := slog.New(h).With("service", "attec-api")
	slog.SetDefault(logger)

	return logger
}

// parseLogLevel converts string log level to slog.Level.
func parseLogLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
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
	parsed.RawQuery = ""

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
