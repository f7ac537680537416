package handlers

import (
	"net/http"

	"github.com/anonto42/niche-communities/backend/internal/models"
	"github.com/anonto42/niche-communities/backend/internal/services"
	"github.com/labstack/echo/v4"
)

// PostHandler handles HTTP requests related to posts
type PostHandler struct {
	interactions *services.InteractionCoordinator
}

// NewPostHandler creates a new PostHandler
func NewPostHandler(interactions *services.InteractionCoordinator) *PostHandler {
	return &PostHandler{interactions: interactions}
}

// RegisterPostRoutes registers post-related routes
func (h *PostHandler) RegisterPostRoutes(g *echo.Group) {
	g.POST("/communities/:id/posts", h.CreatePost)
	g.GET("/communities/:id/posts", h.GetPosts)
	g.GET("/posts/:id", h.GetPost)
	g.DELETE("/posts/:id", h.DeletePost)
}

// CreatePost publishes a post in a community the caller belongs to
func (h *PostHandler) CreatePost(c echo.Context) error {
	var req models.CreatePostRequest
	if err := bind(c, &req); err != nil {
		return err
	}

	post, err := h.interactions.CreatePost(c.Request().Context(), getUserIDFromContext(c), c.Param("id"), req)
	if err != nil {
		return httpError(c, err)
	}
	return c.JSON(http.StatusCreated, post)
}

// GetPost retrieves a post by ID
func (h *PostHandler) GetPost(c echo.Context) error {
	post, err := h.interactions.GetPost(c.Request().Context(), c.Param("id"))
	if err != nil {
		return httpError(c, err)
	}
	return c.JSON(http.StatusOK, post)
}

// GetPosts lists a community's posts, newest first
func (h *PostHandler) GetPosts(c echo.Context) error {
	posts, err := h.interactions.ListPosts(c.Request().Context(), c.Param("id"))
	if err != nil {
		return httpError(c, err)
	}
	return c.JSON(http.StatusOK, posts)
}

// DeletePost deletes a post; only its author may do so
func (h *PostHandler) DeletePost(c echo.Context) error {
	if err := h.interactions.DeletePost(c.Request().Context(), getUserIDFromContext(c), c.Param("id")); err != nil {
		return httpError(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}
