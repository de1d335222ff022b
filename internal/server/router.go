package server

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/attec/attec-api/internal/handler"
	"github.com/attec/attec-api/internal/metrics"
	"github.com/attec/attec-api/internal/middleware"
	"github.com/attec/attec-api/internal/ratelimit"
)

// APIPrefix is the mount point of the versioned API.
const APIPrefix = "/api/v1"

// RouterDeps are the collaborators the router wires together.
type RouterDeps struct {
	Logger  *slog.Logger
	Metrics metrics.Recorder
	// MetricsHandler serves GET /metrics. Nil leaves the route unmounted.
	MetricsHandler http.Handler

	Version     string
	Environment string

	DB    handler.HealthChecker
	Cache handler.HealthChecker

	Login     handler.LoginService
	Tokens    middleware.TokenValidator
	Users     middleware.UserResolver
	Contact   handler.ContactService
	Analytics handler.AnalyticsService

	Limiter          ratelimit.Limiter
	RateLimitEnabled bool

	CORS               middleware.CORSConfig
	TrustProxyHeaders  bool
	MaxRequestBodySize int64
	IsDevelopment      bool
}

// NewRouter builds the chi router with the full middleware pipeline.
func NewRouter(deps RouterDeps) *chi.Mux {
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}
	recorder := deps.Metrics
	if recorder == nil {
		recorder = metrics.NewNoop()
	}

	h := handler.New(deps.Version)
	healthHandler := handler.NewHealthHandler(deps.DB, deps.Cache, deps.Version, deps.Environment, logger)
	authHandler := handler.NewAuthHandler(deps.Login, logger)
	contactHandler := handler.NewContactHandler(deps.Contact, logger)
	analyticsHandler := handler.NewAnalyticsHandler(deps.Analytics, logger)

	r := chi.NewRouter()

	// Global middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.Logger(logger, recorder))
	r.Use(middleware.Recoverer(logger))
	r.Use(middleware.Security(middleware.SecurityConfig{IsDevelopment: deps.IsDevelopment}))
	r.Use(middleware.ProcessTime)
	if deps.TrustProxyHeaders {
		r.Use(chimiddleware.RealIP)
	}
	r.Use(middleware.CORS(deps.CORS))
	r.Use(middleware.RateLimit(middleware.RateLimitConfig{
		Logger:  logger,
		Limiter: deps.Limiter,
		Metrics: recorder,
		Enabled: deps.RateLimitEnabled,
	}))
	if deps.MaxRequestBodySize > 0 {
		r.Use(middleware.MaxBodySize(deps.MaxRequestBodySize))
	}

	authenticate := middleware.Authenticate(middleware.AuthConfig{
		Logger:  logger,
		Tokens:  deps.Tokens,
		Users:   deps.Users,
		Metrics: recorder,
	})
	requireAdmin := middleware.RequireAdmin(middleware.RoleConfig{
		Logger:  logger,
		Metrics: recorder,
	})

	// Service endpoints
	r.Get("/", h.Root)
	r.Get("/health", healthHandler.Health)
	r.Get("/healthz", healthHandler.Healthz)
	r.Get("/readyz", healthHandler.Readyz)
	if deps.MetricsHandler != nil {
		r.Method(http.MethodGet, "/metrics", deps.MetricsHandler)
	}

	r.Route(APIPrefix, func(r chi.Router) {
		r.Route("/auth", func(r chi.Router) {
			r.Post("/login", authHandler.Login)
			r.Post("/logout", authHandler.Logout)
			r.With(authenticate).Get("/me", authHandler.Me)
		})

		r.Route("/contact", func(r chi.Router) {
			r.Post("/", contactHandler.Submit)

			r.Group(func(r chi.Router) {
				r.Use(authenticate, requireAdmin)
				r.Get("/submissions", contactHandler.List)
				r.Get("/submissions/{id}", contactHandler.Get)
				r.Patch("/submissions/{id}", contactHandler.Update)
			})
		})

		r.Route("/analytics", func(r chi.Router) {
			r.Post("/event", analyticsHandler.Track)
			r.With(authenticate, requireAdmin).Get("/summary", analyticsHandler.Summary)
		})
	})

	// 404 and 405 handlers
	r.NotFound(h.NotFound)
	r.MethodNotAllowed(h.MethodNotAllowed)

	return r
}
