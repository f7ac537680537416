package handlers

import (
	"net/http"

	"github.com/anonto42/niche-communities/backend/internal/models"
	"github.com/anonto42/niche-communities/backend/internal/services"
	"github.com/labstack/echo/v4"
)

// CommunityHandler handles community and membership HTTP requests
type CommunityHandler struct {
	membership *services.MembershipCoordinator
}

func NewCommunityHandler(membership *services.MembershipCoordinator) *CommunityHandler {
	return &CommunityHandler{membership: membership}
}

// RegisterCommunityRoutes registers community-related routes
func (h *CommunityHandler) RegisterCommunityRoutes(g *echo.Group) {
	g.GET("/communities", h.ListCommunities)
	g.POST("/communities", h.CreateCommunity)
	g.GET("/communities/:id", h.GetCommunity)
	g.PUT("/communities/:id/photo", h.UpdatePhoto)
	g.DELETE("/communities/:id", h.DeleteCommunity)
	g.GET("/communities/:id/members", h.ListMembers)
	g.POST("/communities/:id/join", h.Join)
	g.POST("/communities/:id/leave", h.Leave)
	g.DELETE("/communities/:id/members/:user_id", h.RemoveMember)
}

// ListCommunities supports ?q=, ?category= and ?sort=newest|oldest|members|name
func (h *CommunityHandler) ListCommunities(c echo.Context) error {
	filter := models.CommunityFilter{
		Query:    c.QueryParam("q"),
		Category: c.QueryParam("category"),
		Sort:     c.QueryParam("sort"),
	}
	communities, err := h.membership.ListCommunities(c.Request().Context(), filter)
	if err != nil {
		return httpError(c, err)
	}
	return c.JSON(http.StatusOK, communities)
}

func (h *CommunityHandler) CreateCommunity(c echo.Context) error {
	var req models.CreateCommunityRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	community, err := h.membership.CreateCommunity(c.Request().Context(), getUserIDFromContext(c), req)
	if err != nil {
		return httpError(c, err)
	}
	return c.JSON(http.StatusCreated, community)
}

func (h *CommunityHandler) GetCommunity(c echo.Context) error {
	community, err := h.membership.GetCommunity(c.Request().Context(), c.Param("id"))
	if err != nil {
		return httpError(c, err)
	}
	return c.JSON(http.StatusOK, community)
}

// UpdatePhoto is limited to the creator
func (h *CommunityHandler) UpdatePhoto(c echo.Context) error {
	var req models.UpdateCommunityPhotoRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	community, err := h.membership.UpdateCommunityPhoto(c.Request().Context(), getUserIDFromContext(c), c.Param("id"), req.PhotoURL)
	if err != nil {
		return httpError(c, err)
	}
	return c.JSON(http.StatusOK, community)
}

func (h *CommunityHandler) DeleteCommunity(c echo.Context) error {
	if err := h.membership.DeleteCommunity(c.Request().Context(), getUserIDFromContext(c), c.Param("id")); err != nil {
		return httpError(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}

func (h *CommunityHandler) ListMembers(c echo.Context) error {
	members, err := h.membership.Members(c.Request().Context(), c.Param("id"))
	if err != nil {
		return httpError(c, err)
	}
	return c.JSON(http.StatusOK, members)
}

func (h *CommunityHandler) Join(c echo.Context) error {
	community, err := h.membership.Join(c.Request().Context(), getUserIDFromContext(c), c.Param("id"))
	if err != nil {
		return httpError(c, err)
	}
	return c.JSON(http.StatusOK, community)
}

func (h *CommunityHandler) Leave(c echo.Context) error {
	community, err := h.membership.Leave(c.Request().Context(), getUserIDFromContext(c), c.Param("id"))
	if err != nil {
		return httpError(c, err)
	}
	return c.JSON(http.StatusOK, community)
}

// RemoveMember lets the creator remove someone else from the community
func (h *CommunityHandler) RemoveMember(c echo.Context) error {
	community, err := h.membership.RemoveMember(c.Request().Context(), getUserIDFromContext(c), c.Param("id"), c.Param("user_id"))
	if err != nil {
		return httpError(c, err)
	}
	return c.JSON(http.StatusOK, community)
}
