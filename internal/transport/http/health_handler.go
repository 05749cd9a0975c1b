package http

import (
	"net/http"

	"github.com/go-chi/render"

	"teapulse/internal/services"
)

// HealthHandler serves the health endpoint.
type HealthHandler struct {
	health *services.HealthService
}

// NewHealthHandler creates a health handler.
func NewHealthHandler(health *services.HealthService) *HealthHandler {
	return &HealthHandler{health: health}
}

// Check reports process and data directory health. Always 200; degraded
// state is carried in the body.
func (h *HealthHandler) Check(w http.ResponseWriter, r *http.Request) {
	render.JSON(w, r, h.health.Check(r.Context()))
}
