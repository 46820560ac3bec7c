package http

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/iho/envelopeledger/internal/adapter/http/handler"
	"github.com/iho/envelopeledger/internal/adapter/http/middleware"
	"github.com/iho/envelopeledger/internal/infrastructure/metrics"
	"github.com/iho/envelopeledger/internal/usecase"
)

// RouterConfig holds dependencies for the router.
type RouterConfig struct {
	BookHandler   *handler.BookHandler
	RuleHandler   *handler.RuleHandler
	HealthHandler *handler.HealthHandler

	Logger  zerolog.Logger
	Metrics *metrics.Metrics
	// Gatherer backs /metrics; nil uses the default registry.
	Gatherer prometheus.Gatherer

	CORSAllowedOrigins []string
	RateLimiter        *middleware.RateLimiter

	IdempotencyStore usecase.IdempotencyStore
	IdempotencyTTL   time.Duration
}

// NewRouter creates a new HTTP router.
func NewRouter(cfg RouterConfig) http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.Recovery(cfg.Logger))
	r.Use(middleware.RequestLog(cfg.Logger))
	if cfg.Metrics != nil {
		r.Use(middleware.NewMetricsMiddleware(cfg.Metrics).Wrap)
	}
	if len(cfg.CORSAllowedOrigins) > 0 {
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins:   cfg.CORSAllowedOrigins,
			AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodOptions},
			AllowedHeaders:   []string{"Accept", "Content-Type", middleware.IdempotencyKeyHeader},
			ExposedHeaders:   []string{middleware.IdempotencyReplayHeader},
			AllowCredentials: false,
			MaxAge:           300,
		}))
	}
	if cfg.RateLimiter != nil {
		r.Use(cfg.RateLimiter.Limit)
	}

	// Health endpoints
	r.Get("/health", cfg.HealthHandler.Liveness)
	r.Get("/ready", cfg.HealthHandler.Readiness)

	gatherer := cfg.Gatherer
	if gatherer == nil {
		gatherer = prometheus.DefaultGatherer
	}
	r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))

	// API v1
	r.Route("/api/v1", func(r chi.Router) {
		// Idempotency middleware for mutating requests
		if cfg.IdempotencyStore != nil {
			idempotencyMiddleware := middleware.NewIdempotencyMiddleware(cfg.IdempotencyStore, cfg.IdempotencyTTL, cfg.Logger, cfg.Metrics)
			r.Use(idempotencyMiddleware.Wrap)
		}

		// Ledger books
		r.Route("/books", func(r chi.Router) {
			r.Post("/", cfg.BookHandler.Create)
			r.Get("/", cfg.BookHandler.List)

			r.Route("/{key}", func(r chi.Router) {
				r.Get("/", cfg.BookHandler.Get)
				r.Get("/validate", cfg.BookHandler.Validate)
				r.Post("/buckets", cfg.BookHandler.AddBucket)
				r.Put("/buckets/{code}", cfg.BookHandler.MoveBucket)
				r.Get("/transfer-ledgers", cfg.BookHandler.TransferLedgers)
				r.Post("/reconciliations", cfg.BookHandler.Reconcile)
				r.Post("/transfers", cfg.BookHandler.Transfer)
				r.Post("/balances", cfg.BookHandler.Balances)
			})
		})

		// Matching rules
		if cfg.RuleHandler != nil {
			r.Get("/rules", cfg.RuleHandler.List)
		}
	})

	return r
}
