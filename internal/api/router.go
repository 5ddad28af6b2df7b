// Package api provides the HTTP API for Tidewise.
package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"

	"github.com/tidewise/tidewise/internal/api/handler"
	"github.com/tidewise/tidewise/internal/api/middleware"
	"github.com/tidewise/tidewise/internal/api/response"
	"github.com/tidewise/tidewise/internal/auth"
	"github.com/tidewise/tidewise/internal/resilience"
)

// Catalog is the activity store behind the catalog and readiness endpoints.
type Catalog interface {
	handler.ActivityCatalog
	handler.Pinger
}

// RouterConfig holds configuration for the router.
type RouterConfig struct {
	Version     string
	BuildTime   string
	Logger      zerolog.Logger
	ServiceName string
	Metrics     *middleware.Metrics
	RequireTLS  bool

	// Tokens verifies bearer tokens on catalog writes and the status endpoint.
	Tokens    middleware.TokenValidator
	Catalog   Catalog
	Suggester handler.Suggester
	Breakers  *resilience.Registry
}

// NewRouter creates a new chi router with all API routes configured.
func NewRouter(cfg RouterConfig) *chi.Mux {
	r := chi.NewRouter()

	serviceName := cfg.ServiceName
	if serviceName == "" {
		serviceName = "tidewise-api"
	}

	// Global middleware - order matters
	r.Use(middleware.RequestID)            // Generate/propagate request ID first
	r.Use(middleware.Tracing(serviceName)) // Distributed tracing
	if cfg.Metrics != nil {
		r.Use(cfg.Metrics.Middleware()) // HTTP metrics
	}
	r.Use(middleware.Logger(cfg.Logger))         // Structured logging
	r.Use(middleware.Recovery(cfg.Logger))       // Panic recovery
	r.Use(chimiddleware.RealIP)                  // Real IP extraction
	r.Use(middleware.SecurityHeaders)            // Security headers (HSTS, CSP, etc.)
	r.Use(middleware.RequireTLS(cfg.RequireTLS)) // TLS enforcement behind a load balancer
	r.Use(middleware.ContentTypeJSON)            // JSON content type

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		response.NotFound(w, r, "no route for "+r.URL.Path)
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		response.MethodNotAllowed(w, r)
	})

	opsHandler := handler.NewOpsHandler(cfg.Version, cfg.BuildTime, cfg.Catalog, cfg.Breakers)
	activityHandler := handler.NewActivityHandler(cfg.Catalog, cfg.Logger)
	suggestionHandler := handler.NewSuggestionHandler(cfg.Suggester, cfg.Logger)

	authMiddleware := middleware.Auth(cfg.Tokens)

	expensiveRateLimit := middleware.RateLimitByIP(middleware.ExpensiveRateLimit) // 30 req/min
	standardRateLimit := middleware.RateLimitByIP(middleware.StandardRateLimit)   // 100 req/min

	r.Route("/v1", func(r chi.Router) {
		// Ops endpoints (public, status requires a token)
		r.Route("/ops", func(r chi.Router) {
			r.Get("/health", opsHandler.HealthCheck)
			r.Get("/ready", opsHandler.ReadinessCheck)
			r.With(authMiddleware).Get("/status", opsHandler.SystemStatus)
		})

		// Suggestions - expensive compute, strict rate limiting
		r.With(expensiveRateLimit, middleware.RequireJSON).
			Post("/suggestions:compute", suggestionHandler.ComputeSuggestions)

		// Activity catalog - public reads, scoped writes
		r.Route("/activities", func(r chi.Router) {
			r.With(standardRateLimit).Get("/", activityHandler.ListActivities)
			r.Route("/{activityId}", func(r chi.Router) {
				r.With(standardRateLimit).Get("/", activityHandler.GetActivity)

				r.Group(func(r chi.Router) {
					r.Use(authMiddleware)
					r.Use(middleware.RequireScope(auth.ScopeCatalogWrite))
					r.Use(middleware.RateLimitBySubject(middleware.WriteRateLimit)) // 20 req/min per subject
					r.Use(middleware.RequireJSON)
					r.Put("/", activityHandler.UpsertActivity)
					r.Delete("/", activityHandler.DeleteActivity)
				})
			})
		})
	})

	return r
}
