package handlers

import (
	"net/http"

	"github.com/anonto42/niche-communities/backend/internal/models"
	"github.com/anonto42/niche-communities/backend/internal/services"
	"github.com/labstack/echo/v4"
)

// ReactionHandler handles HTTP requests related to post reactions
type ReactionHandler struct {
	interactions *services.InteractionCoordinator
}

// NewReactionHandler creates a new ReactionHandler
func NewReactionHandler(interactions *services.InteractionCoordinator) *ReactionHandler {
	return &ReactionHandler{interactions: interactions}
}

// RegisterReactionRoutes registers reaction-related routes
func (h *ReactionHandler) RegisterReactionRoutes(g *echo.Group) {
	g.GET("/reactions", h.ListKinds)
	g.POST("/posts/:post_id/reactions", h.React)
}

// ListKinds returns the accepted reaction kinds in display order
func (h *ReactionHandler) ListKinds(c echo.Context) error {
	return c.JSON(http.StatusOK, models.ReactionKinds)
}

// React toggles the caller's reaction of the given kind
func (h *ReactionHandler) React(c echo.Context) error {
	var req models.ReactRequest
	if err := bind(c, &req); err != nil {
		return err
	}

	post, err := h.interactions.React(c.Request().Context(), getUserIDFromContext(c), c.Param("post_id"), req.Kind)
	if err != nil {
		return httpError(c, err)
	}
	return c.JSON(http.StatusOK, post)
}
