package services

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"sync"

	"github.com/anonto42/niche-communities/backend/internal/models"
	"github.com/anonto42/niche-communities/backend/internal/repositories"
)

// Snapshot is the full notification list of a recipient at one point in
// time. UnreadCount is always derived from Notifications.
type Snapshot struct {
	Notifications []models.Notification `json:"notifications"`
	UnreadCount   int                   `json:"unread_count"`
}

func newSnapshot(notifications []models.Notification) Snapshot {
	if notifications == nil {
		notifications = []models.Notification{}
	}
	sort.SliceStable(notifications, func(i, j int) bool {
		return notifications[i].CreatedAt.After(notifications[j].CreatedAt)
	})
	unread := 0
	for _, n := range notifications {
		if !n.Read {
			unread++
		}
	}
	return Snapshot{Notifications: notifications, UnreadCount: unread}
}

// NotificationReader exposes recipient-scoped notification feeds.
type NotificationReader struct {
	repo   repositories.NotificationRepository
	logger *slog.Logger
}

func NewNotificationReader(repo repositories.NotificationRepository) *NotificationReader {
	return &NotificationReader{
		repo:   repo,
		logger: slog.Default().With("component", "notification_reader"),
	}
}

// Subscription is a live feed of snapshots. A consumer that falls behind
// only ever receives the latest snapshot.
type Subscription struct {
	snapshots chan Snapshot
	cancel    context.CancelFunc
	done      chan struct{}
	once      sync.Once
}

// Snapshots is closed when the feed ends.
func (s *Subscription) Snapshots() <-chan Snapshot { return s.snapshots }

// Done is closed when the feed ends.
func (s *Subscription) Done() <-chan struct{} { return s.done }

// Cancel stops the feed. It is safe to call more than once.
func (s *Subscription) Cancel() {
	s.once.Do(s.cancel)
}

func (s *Subscription) publish(snap Snapshot) {
	for {
		select {
		case s.snapshots <- snap:
			return
		default:
		}
		// drop the stale snapshot the consumer has not picked up
		select {
		case <-s.snapshots:
		default:
		}
	}
}

// Subscribe opens a live feed for recipientID. The first snapshot is
// emitted immediately, then one per observed change, until the
// subscription is cancelled or ctx ends.
func (r *NotificationReader) Subscribe(ctx context.Context, recipientID string) (*Subscription, error) {
	feedCtx, cancel := context.WithCancel(ctx)
	changes, err := r.repo.Watch(feedCtx, recipientID)
	if err != nil {
		cancel()
		return nil, fmt.Errorf("watch notifications: %w", err)
	}

	sub := &Subscription{
		snapshots: make(chan Snapshot, 1),
		cancel:    cancel,
		done:      make(chan struct{}),
	}
	feedSubscribers.Inc()
	go func() {
		defer feedSubscribers.Dec()
		defer close(sub.done)
		defer close(sub.snapshots)
		defer sub.Cancel()

		emit := func() {
			list, err := r.repo.GetNotificationsByRecipient(feedCtx, recipientID)
			if err != nil {
				if feedCtx.Err() == nil {
					r.logger.Warn("failed to load notification snapshot", "recipient", recipientID, "error", err)
				}
				return
			}
			sub.publish(newSnapshot(list))
		}

		emit()
		for {
			select {
			case <-feedCtx.Done():
				return
			case _, ok := <-changes:
				if !ok {
					return
				}
				emit()
			}
		}
	}()
	return sub, nil
}

// Snapshot returns the current list for recipientID once.
func (r *NotificationReader) Snapshot(ctx context.Context, recipientID string) (Snapshot, error) {
	list, err := r.repo.GetNotificationsByRecipient(ctx, recipientID)
	if err != nil {
		return Snapshot{}, fmt.Errorf("get notifications: %w", err)
	}
	return newSnapshot(list), nil
}

// MarkRead marks one notification read. Repeating it, or naming a record
// that no longer exists, is not an error.
func (r *NotificationReader) MarkRead(ctx context.Context, recipientID, notificationID string) (err error) {
	defer func() { observe("mark_read", err) }()
	if err := r.repo.MarkAsRead(ctx, recipientID, notificationID); err != nil {
		return fmt.Errorf("mark notification read: %w", err)
	}
	return nil
}

// MarkAllRead marks every unread notification of the latest snapshot in
// one best-effort batch and returns how many were unread. Unread counts
// change only when the feed emits again.
func (r *NotificationReader) MarkAllRead(ctx context.Context, recipientID string) (marked int, err error) {
	defer func() { observe("mark_all_read", err) }()

	snap, err := r.Snapshot(ctx, recipientID)
	if err != nil {
		return 0, err
	}
	ids := make([]string, 0, snap.UnreadCount)
	for _, note := range snap.Notifications {
		if !note.Read {
			ids = append(ids, note.ID)
		}
	}
	if len(ids) == 0 {
		return 0, nil
	}
	if err := r.repo.MarkManyAsRead(ctx, recipientID, ids); err != nil {
		return len(ids), fmt.Errorf("mark notifications read: %w", err)
	}
	return len(ids), nil
}
