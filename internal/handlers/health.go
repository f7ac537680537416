package handlers

import (
	"net/http"
	"time"

	"github.com/anonto42/niche-communities/backend/internal/services"
	"github.com/labstack/echo/v4"
)

// HealthHandler reports liveness and how many projections await repair
type HealthHandler struct {
	reconciler *services.Reconciler
	started    time.Time
}

func NewHealthHandler(reconciler *services.Reconciler) *HealthHandler {
	return &HealthHandler{reconciler: reconciler, started: time.Now()}
}

func (h *HealthHandler) HealthCheck(c echo.Context) error {
	users, communities := h.reconciler.Pending()
	return c.JSON(http.StatusOK, echo.Map{
		"status":  "healthy",
		"service": "niche-communities",
		"uptime":  time.Since(h.started).Round(time.Second).String(),
		"pending_projections": echo.Map{
			"users":       users,
			"communities": communities,
		},
	})
}
