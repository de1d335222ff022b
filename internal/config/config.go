// Package config provides application configuration management.
// Configuration is loaded from environment variables following 12-factor principles.
package config

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/caarlos0/env/v10"
)

// Rate limiter backends.
const (
	RateLimitBackendMemory = "memory"
	RateLimitBackendRedis  = "redis"
)

// minJWTSecretLen mirrors auth.MinSigningKeyLen.
const minJWTSecretLen = 32

// Config holds all application configuration.
// All fields are populated from environment variables.
type Config struct {
	// Application settings
	AppEnv     string `env:"APP_ENV" envDefault:"development"`
	AppPort    int    `env:"APP_PORT" envDefault:"8000"`
	AppVersion string `env:"APP_VERSION" envDefault:"1.0.0"`

	// Database (PostgreSQL)
	DatabaseURL   string `env:"DATABASE_URL,required"`
	RunMigrations bool   `env:"RUN_MIGRATIONS" envDefault:"true"`

	// Cache (Redis). Optional unless the redis rate limit backend is used.
	RedisURL string `env:"REDIS_URL"`

	// Tokens
	JWTSecret string        `env:"JWT_SECRET,required,unset"`
	TokenTTL  time.Duration `env:"TOKEN_TTL" envDefault:"168h"`

	// Logging
	LogLevel  string `env:"LOG_LEVEL" envDefault:"info"`
	LogFormat string `env:"LOG_FORMAT" envDefault:"json"`

	// Server timeouts
	ReadTimeout     time.Duration `env:"READ_TIMEOUT" envDefault:"5s"`
	WriteTimeout    time.Duration `env:"WRITE_TIMEOUT" envDefault:"10s"`
	ShutdownTimeout time.Duration `env:"SHUTDOWN_TIMEOUT" envDefault:"30s"`

	// Rate limiting
	RateLimitEnabled bool          `env:"RATE_LIMIT_ENABLED" envDefault:"true"`
	RateLimitLimit   int           `env:"RATE_LIMIT_LIMIT" envDefault:"100"`
	RateLimitWindow  time.Duration `env:"RATE_LIMIT_WINDOW" envDefault:"1m"`
	RateLimitBackend string        `env:"RATE_LIMIT_BACKEND" envDefault:"memory"`
	RateLimitMaxKeys int           `env:"RATE_LIMIT_MAX_KEYS" envDefault:"100000"`

	// Honour X-Forwarded-For / X-Real-IP. Enable only behind a trusted proxy.
	TrustProxyHeaders bool `env:"TRUST_PROXY_HEADERS" envDefault:"false"`

	// CORS configuration
	// Permissive allows every origin without credentials; otherwise only
	// CORS_ALLOWED_ORIGINS (comma-separated) are allowed, with credentials.
	CORSPermissive     bool   `env:"CORS_PERMISSIVE" envDefault:"false"`
	CORSAllowedOrigins string `env:"CORS_ALLOWED_ORIGINS" envDefault:""`

	// Request body size limit in bytes (default 1MB)
	MaxRequestBodySize int64 `env:"MAX_REQUEST_BODY_SIZE" envDefault:"1048576"`

	// Lead notifications. Without a webhook URL leads are only logged.
	NotifyWebhookURL    string        `env:"NOTIFY_WEBHOOK_URL"`
	NotifyWebhookSecret string        `env:"NOTIFY_WEBHOOK_SECRET,unset"`
	NotifyTimeout       time.Duration `env:"NOTIFY_TIMEOUT" envDefault:"10s"`
}

// IsDevelopment returns true if running in development mode.
func (c *Config) IsDevelopment() bool {
	return c.AppEnv == "development"
}

// IsProduction returns true if running in production mode.
func (c *Config) IsProduction() bool {
	return c.AppEnv == "production"
}

// GetCORSAllowedOrigins parses the comma-separated origins string into a slice.
func (c *Config) GetCORSAllowedOrigins() []string {
	if c.CORSAllowedOrigins == "" {
		return nil
	}

	origins := strings.Split(c.CORSAllowedOrigins, ",")
	result := make([]string, 0, len(origins))

	for _, origin := range origins {
		trimmed := strings.TrimSpace(origin)
		if trimmed != "" {
			result = append(result, trimmed)
		}
	}

	return result
}

// Validate checks rules that span several fields.
func (c *Config) Validate() error {
	var errs []error

	if len(c.JWTSecret) < minJWTSecretLen {
		errs = append(errs, fmt.Errorf("JWT_SECRET must be at least %d bytes", minJWTSecretLen))
	}
	if c.TokenTTL <= 0 {
		errs = append(errs, errors.New("TOKEN_TTL must be positive"))
	}
	if c.AppPort <= 0 || c.AppPort > 65535 {
		errs = append(errs, fmt.Errorf("APP_PORT %d out of range", c.AppPort))
	}

	if c.RateLimitEnabled {
		if c.RateLimitLimit <= 0 {
			errs = append(errs, errors.New("RATE_LIMIT_LIMIT must be positive"))
		}
		if c.RateLimitWindow <= 0 {
			errs = append(errs, errors.New("RATE_LIMIT_WINDOW must be positive"))
		}
		switch c.RateLimitBackend {
		case RateLimitBackendMemory:
		case RateLimitBackendRedis:
			if c.RedisURL == "" {
				errs = append(errs, errors.New("REDIS_URL is required when RATE_LIMIT_BACKEND=redis"))
			}
		default:
			errs = append(errs, fmt.Errorf("unknown RATE_LIMIT_BACKEND %q", c.RateLimitBackend))
		}
	}

	if !c.CORSPermissive && c.IsProduction() && len(c.GetCORSAllowedOrigins()) == 0 {
		errs = append(errs, errors.New("CORS_ALLOWED_ORIGINS is required in production unless CORS_PERMISSIVE=true"))
	}

	if c.NotifyWebhookURL != "" {
		u, err := url.Parse(c.NotifyWebhookURL)
		if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
			errs = append(errs, errors.New("NOTIFY_WEBHOOK_URL must be an absolute http(s) URL"))
		}
		if c.NotifyWebhookSecret == "" {
			errs = append(errs, errors.New("NOTIFY_WEBHOOK_SECRET is required with NOTIFY_WEBHOOK_URL"))
		}
	}

	return errors.Join(errs...)
}

// Load parses environment variables and returns a validated Config.
// Returns an error if required variables are missing.
func Load() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// LoadDatabase parses only what the provisioning CLI needs.
func LoadDatabase() (string, error) {
	var cfg struct {
		DatabaseURL string `env:"DATABASE_URL,required"`
	}
	if err := env.Parse(&cfg); err != nil {
		return "", fmt.Errorf("failed to parse config: %w", err)
	}
	return cfg.DatabaseURL, nil
}
