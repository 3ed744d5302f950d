package http

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"

	"betascale/internal/services"
)

// HealthHandler exposes service health for operators and orchestrators.
type HealthHandler struct {
	service *services.HealthService
	logger  *slog.Logger
}

// NewHealthHandler creates a health handler.
func NewHealthHandler(service *services.HealthService, logger *slog.Logger) *HealthHandler {
	return &HealthHandler{
		service: service,
		logger:  logger.With(slog.String("component", "health_handler")),
	}
}

// Routes returns the health routes.
func (h *HealthHandler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Get("/", h.HealthCheck)
	r.Get("/ready", h.ReadinessCheck)
	r.Get("/live", h.LivenessCheck)
	r.Get("/version", h.Version)
	return r
}

// HealthCheck handles GET /api/health. A degraded service still answers
// 200 so dashboards can show partial outages; only unhealthy is a 503.
func (h *HealthHandler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	status := h.service.HealthCheck(r.Context())

	if status.Status == services.HealthStatusUnhealthy {
		render.Status(r, http.StatusServiceUnavailable)
	}
	render.JSON(w, r, status)
}

// ReadinessCheck handles GET /api/health/ready for orchestrator gates.
func (h *HealthHandler) ReadinessCheck(w http.ResponseWriter, r *http.Request) {
	if err := h.service.ReadinessCheck(r.Context()); err != nil {
		h.logger.WarnContext(r.Context(), "readiness check failed",
			slog.String("error", err.Error()),
		)
		render.Status(r, http.StatusServiceUnavailable)
		render.JSON(w, r, map[string]interface{}{
			"status": "not ready",
			"error":  err.Error(),
		})
		return
	}

	render.JSON(w, r, map[string]interface{}{
		"status": "ready",
	})
}

// LivenessCheck handles GET /api/health/live. It answers as long as the
// process can serve requests at all.
func (h *HealthHandler) LivenessCheck(w http.ResponseWriter, r *http.Request) {
	render.JSON(w, r, h.service.LivenessCheck())
}

// Version handles GET /api/health/version.
func (h *HealthHandler) Version(w http.ResponseWriter, r *http.Request) {
	render.JSON(w, r, h.service.Version())
}
