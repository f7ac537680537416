package handlers

import (
	"net/http"

	"github.com/anonto42/niche-communities/backend/internal/models"
	"github.com/anonto42/niche-communities/backend/internal/services"
	"github.com/labstack/echo/v4"
)

// CommentHandler handles comments and their replies. Every route answers
// with the whole post so clients can replace their copy.
type CommentHandler struct {
	interactions *services.InteractionCoordinator
}

// NewCommentHandler creates a new CommentHandler
func NewCommentHandler(interactions *services.InteractionCoordinator) *CommentHandler {
	return &CommentHandler{interactions: interactions}
}

// RegisterCommentRoutes registers comment-related routes
func (h *CommentHandler) RegisterCommentRoutes(g *echo.Group) {
	g.POST("/posts/:post_id/comments", h.CreateComment)
	g.DELETE("/posts/:post_id/comments/:comment_id", h.DeleteComment)
	g.POST("/posts/:post_id/comments/:comment_id/replies", h.CreateReply)
	g.DELETE("/posts/:post_id/comments/:comment_id/replies/:reply_id", h.DeleteReply)
}

// CreateComment creates a new comment on a post
func (h *CommentHandler) CreateComment(c echo.Context) error {
	var req models.CreateCommentRequest
	if err := bind(c, &req); err != nil {
		return err
	}

	post, err := h.interactions.AddComment(c.Request().Context(), getUserIDFromContext(c), c.Param("post_id"), req.Content)
	if err != nil {
		return httpError(c, err)
	}
	return c.JSON(http.StatusCreated, post)
}

func (h *CommentHandler) DeleteComment(c echo.Context) error {
	post, err := h.interactions.DeleteComment(c.Request().Context(), getUserIDFromContext(c), c.Param("post_id"), c.Param("comment_id"))
	if err != nil {
		return httpError(c, err)
	}
	return c.JSON(http.StatusOK, post)
}

// CreateReply answers a comment; the comment's author is notified
func (h *CommentHandler) CreateReply(c echo.Context) error {
	var req models.CreateCommentRequest
	if err := bind(c, &req); err != nil {
		return err
	}

	post, err := h.interactions.AddReply(c.Request().Context(), getUserIDFromContext(c),
		c.Param("post_id"), c.Param("comment_id"), req.Content)
	if err != nil {
		return httpError(c, err)
	}
	return c.JSON(http.StatusCreated, post)
}

func (h *CommentHandler) DeleteReply(c echo.Context) error {
	post, err := h.interactions.DeleteReply(c.Request().Context(), getUserIDFromContext(c),
		c.Param("post_id"), c.Param("comment_id"), c.Param("reply_id"))
	if err != nil {
		return httpError(c, err)
	}
	return c.JSON(http.StatusOK, post)
}
