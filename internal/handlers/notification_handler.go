package handlers

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/anonto42/niche-communities/backend/internal/auth"
	"github.com/anonto42/niche-communities/backend/internal/models"
	"github.com/anonto42/niche-communities/backend/internal/services"
	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 512
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// the token is checked before the upgrade, so any origin may connect
	CheckOrigin: func(r *http.Request) bool { return true },
}

// NotificationHandler handles notification-related HTTP requests
type NotificationHandler struct {
	reader   *services.NotificationReader
	sessions *auth.Sessions
	now      func() time.Time
}

// NewNotificationHandler creates a new NotificationHandler
func NewNotificationHandler(reader *services.NotificationReader, sessions *auth.Sessions) *NotificationHandler {
	return &NotificationHandler{reader: reader, sessions: sessions, now: time.Now}
}

// RegisterNotificationRoutes registers notification routes
func (h *NotificationHandler) RegisterNotificationRoutes(g *echo.Group) {
	g.GET("/notifications", h.GetNotifications)
	g.GET("/notifications/grouped", h.GetGroupedNotifications)
	g.GET("/notifications/unread-count", h.GetUnreadCount)
	g.GET("/notifications/stream", h.Stream)
	g.PUT("/notifications/:id/read", h.MarkAsRead)
	g.PUT("/notifications/read-all", h.MarkAllAsRead)
}

// EnrichedNotification carries the rendered text and the link a client opens
type EnrichedNotification struct {
	models.Notification
	Target string `json:"target,omitempty"`
}

func enrichNotifications(notifications []models.Notification) []EnrichedNotification {
	enriched := make([]EnrichedNotification, len(notifications))
	for i := range notifications {
		enriched[i] = EnrichedNotification{Notification: notifications[i]}
		if target, ok := services.Target(&notifications[i]); ok {
			enriched[i].Target = target
		}
	}
	return enriched
}

// GetNotifications returns the caller's notifications, newest first
func (h *NotificationHandler) GetNotifications(c echo.Context) error {
	snap, err := h.reader.Snapshot(c.Request().Context(), getUserIDFromContext(c))
	if err != nil {
		return httpError(c, err)
	}

	return c.JSON(http.StatusOK, echo.Map{
		"success": true,
		"data": echo.Map{
			"notifications": enrichNotifications(snap.Notifications),
			"unreadCount":   snap.UnreadCount,
		},
	})
}

// notificationGroups buckets notifications by age relative to now
type notificationGroups struct {
	Today     []EnrichedNotification `json:"today"`
	Yesterday []EnrichedNotification `json:"yesterday"`
	ThisWeek  []EnrichedNotification `json:"thisWeek"`
	Older     []EnrichedNotification `json:"older"`
}

func groupByAge(notifications []EnrichedNotification, now time.Time) notificationGroups {
	groups := notificationGroups{
		Today:     []EnrichedNotification{},
		Yesterday: []EnrichedNotification{},
		ThisWeek:  []EnrichedNotification{},
		Older:     []EnrichedNotification{},
	}
	startOfToday := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	startOfYesterday := startOfToday.AddDate(0, 0, -1)
	startOfWeek := startOfToday.AddDate(0, 0, -7)

	for _, n := range notifications {
		switch at := n.CreatedAt.In(now.Location()); {
		case !at.Before(startOfToday):
			groups.Today = append(groups.Today, n)
		case !at.Before(startOfYesterday):
			groups.Yesterday = append(groups.Yesterday, n)
		case !at.Before(startOfWeek):
			groups.ThisWeek = append(groups.ThisWeek, n)
		default:
			groups.Older = append(groups.Older, n)
		}
	}
	return groups
}

// GetGroupedNotifications returns notifications grouped by time period
func (h *NotificationHandler) GetGroupedNotifications(c echo.Context) error {
	snap, err := h.reader.Snapshot(c.Request().Context(), getUserIDFromContext(c))
	if err != nil {
		return httpError(c, err)
	}

	return c.JSON(http.StatusOK, echo.Map{
		"success": true,
		"data": echo.Map{
			"notifications": groupByAge(enrichNotifications(snap.Notifications), h.now()),
			"unreadCount":   snap.UnreadCount,
		},
	})
}

// GetUnreadCount returns the unread notification count
func (h *NotificationHandler) GetUnreadCount(c echo.Context) error {
	snap, err := h.reader.Snapshot(c.Request().Context(), getUserIDFromContext(c))
	if err != nil {
		return httpError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"success": true, "data": echo.Map{"count": snap.UnreadCount}})
}

// MarkAsRead marks a notification as read; repeating it is harmless
func (h *NotificationHandler) MarkAsRead(c echo.Context) error {
	if err := h.reader.MarkRead(c.Request().Context(), getUserIDFromContext(c), c.Param("id")); err != nil {
		return httpError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"success": true, "data": echo.Map{"success": true}})
}

// MarkAllAsRead marks all notifications as read
func (h *NotificationHandler) MarkAllAsRead(c echo.Context) error {
	marked, err := h.reader.MarkAllRead(c.Request().Context(), getUserIDFromContext(c))
	if err != nil {
		return httpError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"success": true, "data": echo.Map{"success": true, "marked": marked}})
}

type streamMessage struct {
	Type          string                 `json:"type"`
	Notifications []EnrichedNotification `json:"notifications"`
	UnreadCount   int                    `json:"unread_count"`
}

// Stream upgrades to a WebSocket and pushes a full snapshot on every change.
// The stream ends when the client goes away or the caller signs out.
func (h *NotificationHandler) Stream(c echo.Context) error {
	userID := getUserIDFromContext(c)
	conn, err := upgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		// the upgrader has already answered the request
		slog.Warn("notification stream upgrade failed", "user_id", userID, "error", err)
		return nil
	}
	defer conn.Close()

	ctx, cancel := context.WithCancel(context.WithoutCancel(c.Request().Context()))
	defer cancel()

	sub, err := h.reader.Subscribe(ctx, userID)
	if err != nil {
		slog.Error("notification stream subscribe failed", "user_id", userID, "error", err)
		closeStream(conn, websocket.CloseInternalServerErr, "subscription failed")
		return nil
	}
	stopAuth := h.sessions.OnAuthStateChange(userID, func(identity *auth.Identity) {
		if identity == nil {
			sub.Cancel()
		}
	})
	defer stopAuth()

	go readPump(conn, cancel)

	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	for {
		select {
		case snap, ok := <-sub.Snapshots():
			if !ok {
				closeStream(conn, websocket.CloseNormalClosure, "session ended")
				return nil
			}
			msg := streamMessage{
				Type:          "snapshot",
				Notifications: enrichNotifications(snap.Notifications),
				UnreadCount:   snap.UnreadCount,
			}
			conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteJSON(msg); err != nil {
				slog.Debug("notification stream write failed", "user_id", userID, "error", err)
				return nil
			}
		case <-ticker.C:
			conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return nil
			}
		}
	}
}

// readPump drains client frames so pongs and close frames are processed;
// it cancels the stream once the connection fails.
func readPump(conn *websocket.Conn, cancel context.CancelFunc) {
	defer cancel()
	conn.SetReadLimit(maxMessageSize)
	conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			return
		}
	}
}

func closeStream(conn *websocket.Conn, code int, reason string) {
	deadline := time.Now().Add(writeWait)
	if err := conn.WriteControl(websocket.CloseMessage, websocket.FormatCloseMessage(code, reason), deadline); err != nil {
		slog.Debug("notification stream close failed", "error", err)
	}
}
