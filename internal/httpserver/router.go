package httpserver

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"platepick/internal/handlers"
	"platepick/internal/metrics"
	"platepick/internal/middleware"
)

// Options carries the router-level knobs from config.
type Options struct {
	RequestTimeout time.Duration
	MaxBodyBytes   int64
	RateLimiter    *middleware.RateLimiter // nil disables rate limiting
}

func SetupRouter(r *chi.Mux, baseLogger *zap.Logger, h *handlers.Handler, opts Options) {

	r.Use(metrics.Middleware)

	// base middleware
	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)

	r.Use(middleware.LoggingContext(baseLogger))
	r.Use(middleware.Recoverer())
	r.Use(middleware.MaxBodySize(opts.MaxBodyBytes))

	// routes
	r.Route("/v1", func(r chi.Router) {
		if opts.RateLimiter != nil {
			r.Use(opts.RateLimiter.Handler)
		}

		r.Group(func(r chi.Router) {
			r.Use(middleware.Timeout(opts.RequestTimeout))
			r.Post("/analyze", h.Analyze)
			r.Get("/recent", h.Recent)
			r.Delete("/cache/{placeID}", h.Purge)
		})

		// SSE stream manages its own deadline.
		r.Get("/analysis-status/{placeID}", h.AnalysisStatus)
	})

	// health check
	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	r.Handle("/metrics", metrics.Handler())
}
