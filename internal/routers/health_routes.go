package routers

import (
	"github.com/Ayuu1305/squad-quest-sub001/internal/handlers"
	"github.com/Ayuu1305/squad-quest-sub001/internal/metrics"

	"github.com/go-chi/chi/v5"
)

func HealthRoutes(r *chi.Mux, healthHandler *handlers.HealthHandler) {
	r.Get("/healthz", healthHandler.HealthzHandler)
	r.Get("/readyz", healthHandler.ReadyzHandler)
	r.Handle("/metrics", metrics.Handler())
}
