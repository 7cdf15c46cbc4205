package http

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"dqpipe/internal/config"
	"dqpipe/internal/middleware"
	"dqpipe/internal/services"
)

// NewRouter builds the HTTP surface. Middleware order is
// RequestID -> RealIP -> Logger -> Recoverer -> RateLimiter; timeouts
// attach per route group so starting a run is not bound by the read
// timeout.
func NewRouter(cfg *config.Config, runs *services.RunService, registry *prometheus.Registry, logger *slog.Logger) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.StructuredLogger(logger))
	r.Use(middleware.Recoverer(logger))
	r.Use(middleware.NewRateLimiter(50, 100, logger).Handler)

	runHandler := NewRunHandler(runs, logger)
	healthHandler := NewHealthHandler()

	r.Route("/api", func(r chi.Router) {
		r.Use(render.SetContentType(render.ContentTypeJSON))
		r.Use(middleware.Timeout(cfg.Server.ReadTimeout, logger))

		r.Route("/runs", func(r chi.Router) {
			r.Post("/", runHandler.StartRun)
			r.Get("/", runHandler.ListRuns)
			r.Get("/{id}", runHandler.GetRun)
		})
	})

	r.Get("/healthz", healthHandler.HealthCheck)

	if registry != nil {
		r.Handle("/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))
	} else {
		r.Handle("/metrics", promhttp.Handler())
	}

	return r
}
