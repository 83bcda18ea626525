package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/jfi/employee-api/app"
	"github.com/jfi/employee-api/handlers"
	"github.com/jfi/employee-api/internal/correlation"
	"github.com/jfi/employee-api/middleware"
)

// SetupRoutes configures all application routes and middleware.
//
// The access logger wraps everything after RealIP so that it observes the
// final status, including answers written by the recoverer, the rate
// limiter, the timeout stage and the router's fallbacks.
func SetupRoutes(deps *app.Dependencies) http.Handler {
	cfg := deps.Config
	r := chi.NewRouter()

	// Core middleware
	r.Use(chimw.RealIP)
	r.Use(deps.AccessLogger.Handler)
	r.Use(middleware.Recoverer(deps.Logger))

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: cfg.CORS.AllowedOrigins,
		AllowedMethods: []string{"GET", "POST", "PATCH", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Authorization", "Content-Type"},
		ExposedHeaders: []string{
			"Location",
			correlation.HeaderName,
			"Retry-After",
			"X-RateLimit-Limit",
			"X-RateLimit-Burst",
		},
		MaxAge: 300,
	}))

	r.NotFound(handlers.NotFound)
	r.MethodNotAllowed(handlers.MethodNotAllowed)

	// Operational endpoints
	r.Get("/healthz", deps.HealthHandler.HandleHealth)
	r.Get("/readyz", deps.HealthHandler.HandleReadiness)
	if deps.Metrics != nil {
		r.Method(http.MethodGet, cfg.Observability.MetricsPath, deps.Metrics.Handler())
	}

	// Employee API
	r.Group(func(r chi.Router) {
		r.Use(deps.RateLimit.Limit)
		r.Use(middleware.Timeout(cfg.Server.RequestTimeout))

		h := deps.EmployeeHandler
		r.Get("/employees", h.HandleList)
		r.Get("/employees/{uuid}", h.HandleGet)

		r.Group(func(r chi.Router) {
			if deps.AuthMiddleware != nil {
				r.Use(deps.AuthMiddleware.RequireAuth)
				if cfg.Auth.WriteRole != "" {
					r.Use(deps.AuthMiddleware.RequireRole(cfg.Auth.WriteRole))
				}
			}
			r.Post("/employees", h.HandleCreate)
			r.Patch("/employees/{uuid}", h.HandleUpdate)
		})
	})

	return r
}
