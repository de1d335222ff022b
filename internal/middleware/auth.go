package middleware

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/attec/attec-api/internal/apperr"
	"github.com/attec/attec-api/internal/auth"
	"github.com/attec/attec-api/internal/metrics"
	"github.com/attec/attec-api/internal/model"
	"github.com/attec/attec-api/internal/repository"
	"github.com/attec/attec-api/internal/service"
)

// TokenValidator validates bearer tokens.
type TokenValidator interface {
	Validate(token string) (auth.Claims, error)
}

// UserResolver loads the user a token refers to and records its activity.
type UserResolver interface {
	FindByID(ctx context.Context, id string) (*model.User, error)
	RecordLogin(ctx context.Context, user *model.User) error
}

// AuthConfig holds configuration for the auth middleware.
type AuthConfig struct {
	Logger  *slog.Logger
	Tokens  TokenValidator
	Users   UserResolver
	Metrics metrics.Recorder
}

// Authenticate returns a middleware that resolves the bearer token to an
// active user and injects it into the request context.
func Authenticate(cfg AuthConfig) func(http.Handler) http.Handler {
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.Metrics == nil {
		cfg.Metrics = metrics.NewNoop()
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			fail := func(reason string, err error) {
				cfg.Metrics.IncAuthFailure(reason)
				cfg.Logger.WarnContext(ctx, "authentication failed",
					slog.String("reason", reason),
					slog.String("ip", r.RemoteAddr),
					slog.String("endpoint", r.Method+" "+r.URL.Path),
					slog.String("request_id", GetRequestID(ctx)),
				)
				apperr.Write(w, err)
			}

			token := extractBearerToken(r)
			if token == "" {
				fail(metrics.ReasonMissingToken, apperr.Unauthenticated(""))
				return
			}

			claims, err := cfg.Tokens.Validate(token)
			if err != nil {
				fail(metrics.ReasonInvalidToken, apperr.Unauthenticated(""))
				return
			}

			user, err := cfg.Users.FindByID(ctx, claims.Subject)
			if err != nil {
				if errors.Is(err, repository.ErrUserNotFound) {
					fail(metrics.ReasonUserNotFound, apperr.Unauthenticated(""))
					return
				}
				cfg.Logger.ErrorContext(ctx, "user lookup failed during auth",
					slog.String("error", err.Error()),
					slog.String("request_id", GetRequestID(ctx)),
				)
				apperr.Write(w, apperr.Internal(err))
				return
			}

			if !user.Active {
				fail(metrics.ReasonInactiveUser, apperr.Forbidden(auth.MsgInactiveUser))
				return
			}

			service.BestEffort(ctx, cfg.Logger, "record_activity", func(ctx context.Context) error {
				return cfg.Users.RecordLogin(ctx, user)
			})

			next.ServeHTTP(w, r.WithContext(auth.ContextWithUser(ctx, user)))
		})
	}
}

// extractBearerToken returns the token from "Authorization: Bearer <token>".
// The scheme is matched case-insensitively.
func extractBearerToken(r *http.Request) string {
	header := r.Header.Get("Authorization")
	scheme, token, ok := strings.Cut(header, " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return ""
	}
	return strings.TrimSpace(token)
}
