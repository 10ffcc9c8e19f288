package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/iho/tally/internal/adapter/http/handler"
	"github.com/iho/tally/internal/adapter/http/middleware"
	"github.com/iho/tally/internal/usecase"
)

// RouterConfig holds dependencies for the router.
type RouterConfig struct {
	AccountHandler   *handler.AccountHandler
	EntryHandler     *handler.EntryHandler
	LedgerHandler    *handler.LedgerHandler
	HealthHandler    *handler.HealthHandler
	IdempotencyStore usecase.IdempotencyStore
	RateLimiter      *middleware.RateLimiter
	Logger           zerolog.Logger
}

// NewRouter creates a new HTTP router.
func NewRouter(cfg RouterConfig) http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.NewLoggingMiddleware(cfg.Logger).Wrap)
	r.Use(middleware.Recovery)
	r.Use(middleware.Metrics)

	if cfg.RateLimiter != nil {
		r.Use(cfg.RateLimiter.Wrap)
	}

	// Health and metrics endpoints
	r.Get("/health", cfg.HealthHandler.Liveness)
	r.Get("/ready", cfg.HealthHandler.Readiness)
	r.Handle("/metrics", promhttp.Handler())

	// API v1
	r.Route("/api/v1", func(r chi.Router) {
		// Idempotency middleware for mutating requests
		if cfg.IdempotencyStore != nil {
			idempotencyMiddleware := middleware.NewIdempotencyMiddleware(cfg.IdempotencyStore)
			r.Use(idempotencyMiddleware.Wrap)
		}

		r.Route("/accounts", func(r chi.Router) {
			r.Post("/", cfg.AccountHandler.Create)
			r.Get("/", cfg.AccountHandler.List)
			r.Get("/{id}", cfg.AccountHandler.Get)
			r.Put("/{id}", cfg.AccountHandler.Update)
			r.Delete("/{id}", cfg.AccountHandler.Delete)
			r.Get("/{id}/audit", cfg.LedgerHandler.Audit)

			r.Route("/{id}/entries", func(r chi.Router) {
				r.Post("/", cfg.LedgerHandler.Create)
				r.Get("/", cfg.EntryHandler.ListByAccount)
				r.Get("/{entryID}", cfg.EntryHandler.Get)
				r.Put("/{entryID}", cfg.LedgerHandler.Update)
				r.Delete("/{entryID}", cfg.LedgerHandler.Delete)
			})
		})
	})

	return r
}
