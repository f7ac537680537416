package services

import (
	"context"
	"log/slog"
	"time"

	"github.com/anonto42/niche-communities/backend/internal/models"
	"github.com/anonto42/niche-communities/backend/internal/repositories"
)

// Pusher delivers a stored notification out of band, e.g. as a web push.
type Pusher interface {
	Push(ctx context.Context, notification *models.Notification) error
}

const pushTimeout = 10 * time.Second

// Notifier is the only writer of notification records. Creation happens
// after the primary mutation has been awaited and never fails the caller.
type Notifier struct {
	repo   repositories.NotificationRepository
	pusher Pusher
	logger *slog.Logger
}

// NewNotifier creates a Notifier; pusher may be nil.
func NewNotifier(repo repositories.NotificationRepository, pusher Pusher) *Notifier {
	return &Notifier{
		repo:   repo,
		pusher: pusher,
		logger: slog.Default().With("component", "notifier"),
	}
}

// Notify stores n and reports whether a record was created. Notifications
// addressed to their own sender, or to nobody, are skipped.
func (s *Notifier) Notify(ctx context.Context, n *models.Notification) bool {
	if n.ToUser == "" || n.ToUser == n.FromUser {
		notificationsTotal.WithLabelValues(n.Type, "suppressed").Inc()
		return false
	}
	if n.FromUserName == "" {
		n.FromUserName = "Unknown User"
	}
	n.Read = false
	n.Message = Describe(n)

	if err := s.repo.CreateNotification(ctx, n); err != nil {
		notificationsTotal.WithLabelValues(n.Type, "failed").Inc()
		s.logger.Error("failed to create notification",
			"type", n.Type, "to_user", n.ToUser, "from_user", n.FromUser, "error", err)
		return false
	}
	notificationsTotal.WithLabelValues(n.Type, "created").Inc()

	if s.pusher != nil {
		stored := *n
		go func() {
			pctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), pushTimeout)
			defer cancel()
			if err := s.pusher.Push(pctx, &stored); err != nil {
				s.logger.Warn("web push failed", "notification_id", stored.ID, "error", err)
			}
		}()
	}
	return true
}
