package repositories

import (
	"context"
	"log/slog"
	"time"

	"github.com/anonto42/niche-communities/backend/internal/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// NotificationRepository defines the interface for notification operations.
// Watch returns a channel that receives a signal whenever the recipient's
// notifications may have changed; it is closed when ctx ends.
type NotificationRepository interface {
	CreateNotification(ctx context.Context, notification *models.Notification) error
	GetNotificationsByRecipient(ctx context.Context, recipientID string) ([]models.Notification, error)
	MarkAsRead(ctx context.Context, recipientID, notificationID string) error
	MarkManyAsRead(ctx context.Context, recipientID string, notificationIDs []string) error
	Watch(ctx context.Context, recipientID string) (<-chan struct{}, error)
}

// NotificationChannel is the Postgres NOTIFY channel carrying recipient ids.
const NotificationChannel = "notifications"

type postgresNotificationRepository struct {
	db   *gorm.DB
	feed *NotificationFeed
}

func NewPostgresNotificationRepository(db *gorm.DB, feed *NotificationFeed) NotificationRepository {
	return &postgresNotificationRepository{db: db, feed: feed}
}

func (r *postgresNotificationRepository) CreateNotification(ctx context.Context, notification *models.Notification) error {
	if notification.ID == "" {
		notification.ID = uuid.NewString()
	}
	if notification.CreatedAt.IsZero() {
		notification.CreatedAt = time.Now()
	}
	if err := r.db.WithContext(ctx).Create(notification).Error; err != nil {
		return err
	}
	r.notify(ctx, notification.ToUser)
	return nil
}

func (r *postgresNotificationRepository) GetNotificationsByRecipient(ctx context.Context, recipientID string) ([]models.Notification, error) {
	var notifications []models.Notification
	err := r.db.WithContext(ctx).
		Where("to_user = ?", recipientID).
		Order("created_at DESC").
		Find(&notifications).Error
	return notifications, err
}

// MarkAsRead is idempotent; an unknown or foreign id is not an error.
func (r *postgresNotificationRepository) MarkAsRead(ctx context.Context, recipientID, notificationID string) error {
	res := r.db.WithContext(ctx).Model(&models.Notification{}).
		Where("id = ? AND to_user = ? AND read = false", notificationID, recipientID).
		Update("read", true)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected > 0 {
		r.notify(ctx, recipientID)
	}
	return nil
}

func (r *postgresNotificationRepository) MarkManyAsRead(ctx context.Context, recipientID string, notificationIDs []string) error {
	if len(notificationIDs) == 0 {
		return nil
	}
	res := r.db.WithContext(ctx).Model(&models.Notification{}).
		Where("to_user = ? AND id IN ? AND read = false", recipientID, notificationIDs).
		Update("read", true)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected > 0 {
		r.notify(ctx, recipientID)
	}
	return nil
}

func (r *postgresNotificationRepository) Watch(ctx context.Context, recipientID string) (<-chan struct{}, error) {
	return r.feed.Watch(ctx, recipientID), nil
}

// notify wakes every listener of the recipient, across processes.
func (r *postgresNotificationRepository) notify(ctx context.Context, recipientID string) {
	if err := r.db.WithContext(ctx).Exec("SELECT pg_notify(?, ?)", NotificationChannel, recipientID).Error; err != nil {
		slog.Warn("pg_notify failed", "recipient", recipientID, "error", err)
	}
}
