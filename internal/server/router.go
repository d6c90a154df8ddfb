package server

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/navikt/dp-datalaster-inntekt/common/middleware"
	"github.com/navikt/dp-datalaster-inntekt/internal/handlers"
)

// NewRouter constructs a chi router with the health and metrics routes registered.
func NewRouter(h *handlers.HealthHandler, logger *slog.Logger) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.AccessLog(logger))
	r.Use(chimw.Recoverer)

	// NAIS probes
	r.Get("/isAlive", h.IsAlive)
	r.Get("/isReady", h.IsReady)

	r.Get("/healthz", h.Healthz)
	r.Handle("/metrics", promhttp.Handler())

	return r
}
