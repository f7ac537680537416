package handlers

import (
	"net/http"

	"github.com/SherClockHolmes/webpush-go"
	"github.com/anonto42/niche-communities/backend/internal/models"
	"github.com/anonto42/niche-communities/backend/internal/repositories"
	"github.com/labstack/echo/v4"
)

// PushHandler registers browser push endpoints
type PushHandler struct {
	subscriptions  repositories.PushSubscriptionRepository
	vapidPublicKey string
}

func NewPushHandler(subs repositories.PushSubscriptionRepository, vapidPublicKey string) *PushHandler {
	return &PushHandler{subscriptions: subs, vapidPublicKey: vapidPublicKey}
}

func (h *PushHandler) RegisterPushRoutes(g *echo.Group) {
	g.GET("/push/vapid-public-key", h.PublicKey)
	g.POST("/push/subscribe", h.Subscribe)
	g.DELETE("/push/subscribe", h.Unsubscribe)
}

func (h *PushHandler) PublicKey(c echo.Context) error {
	if h.vapidPublicKey == "" {
		return echo.NewHTTPError(http.StatusServiceUnavailable, "Push notifications are not configured")
	}
	return c.JSON(http.StatusOK, echo.Map{"key": h.vapidPublicKey})
}

func (h *PushHandler) Subscribe(c echo.Context) error {
	var req models.PushSubscribeRequest
	if err := bind(c, &req); err != nil {
		return err
	}

	sub := &models.PushSubscription{
		Endpoint: req.Endpoint,
		UserID:   getUserIDFromContext(c),
		Sub: webpush.Subscription{
			Endpoint: req.Endpoint,
			Keys:     webpush.Keys{P256dh: req.Keys.P256dh, Auth: req.Keys.Auth},
		},
	}
	if err := h.subscriptions.SavePushSubscription(c.Request().Context(), sub); err != nil {
		return httpError(c, err)
	}
	return c.JSON(http.StatusCreated, sub)
}

func (h *PushHandler) Unsubscribe(c echo.Context) error {
	var req struct {
		Endpoint string `json:"endpoint" validate:"required,url"`
	}
	if err := bind(c, &req); err != nil {
		return err
	}
	if err := h.subscriptions.DeletePushSubscription(c.Request().Context(), req.Endpoint); err != nil {
		return httpError(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}
