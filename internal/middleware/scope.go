package middleware

import (
	"log/slog"
	"net/http"

	"github.com/attec/attec-api/internal/apperr"
	"github.com/attec/attec-api/internal/auth"
	"github.com/attec/attec-api/internal/metrics"
	"github.com/attec/attec-api/internal/model"
)

// RoleConfig holds configuration for role gating.
type RoleConfig struct {
	Logger  *slog.Logger
	Metrics metrics.Recorder
}

// RequireRole returns middleware that admits only users whose role is in
// allowed. Must be applied after Authenticate.
func RequireRole(cfg RoleConfig, allowed ...model.Role) func(http.Handler) http.Handler {
	return requireUser(cfg, func(u *model.User) bool { return u.Role.In(allowed) })
}

// RequireAdmin admits the admin capability set (admin and editor).
func RequireAdmin(cfg RoleConfig) func(http.Handler) http.Handler {
	return requireUser(cfg, (*model.User).IsAdmin)
}

func requireUser(cfg RoleConfig, admit func(*model.User) bool) func(http.Handler) http.Handler {
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.Metrics == nil {
		cfg.Metrics = metrics.NewNoop()
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			user := auth.UserFromContext(r.Context())
			if user == nil {
				apperr.Write(w, apperr.Unauthenticated(""))
				return
			}

			if !admit(user) {
				cfg.Metrics.IncAuthFailure(metrics.ReasonInsufficientRole)
				cfg.Logger.WarnContext(r.Context(), "authorization failed",
					slog.String("reason", metrics.ReasonInsufficientRole),
					slog.String("user_id", auth.UserIDFromContext(r.Context())),
					slog.String("role", user.Role.String()),
					slog.String("endpoint", r.Method+" "+r.URL.Path),
					slog.String("request_id", GetRequestID(r.Context())),
				)
				apperr.Write(w, apperr.Forbidden(""))
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
