package repositories

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"cloud.google.com/go/firestore"
	"github.com/anonto42/niche-communities/backend/internal/models"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// FirestoreNotificationRepository keeps notifications in a top-level
// "notifications" collection and uses query snapshots as the live feed.
type FirestoreNotificationRepository struct {
	collection *firestore.CollectionRef
	client     *firestore.Client
}

func NewFirestoreNotificationRepository(client *firestore.Client) *FirestoreNotificationRepository {
	return &FirestoreNotificationRepository{client: client, collection: client.Collection("notifications")}
}

func (r *FirestoreNotificationRepository) CreateNotification(ctx context.Context, notification *models.Notification) error {
	ref := r.collection.NewDoc()
	if notification.ID != "" {
		ref = r.collection.Doc(notification.ID)
	}
	if notification.CreatedAt.IsZero() {
		notification.CreatedAt = time.Now()
	}
	if _, err := ref.Create(ctx, notification); err != nil {
		return err
	}
	notification.ID = ref.ID
	return nil
}

func (r *FirestoreNotificationRepository) recipientQuery(recipientID string) firestore.Query {
	return r.collection.Where("toUser", "==", recipientID).OrderBy("createdAt", firestore.Desc)
}

func (r *FirestoreNotificationRepository) GetNotificationsByRecipient(ctx context.Context, recipientID string) ([]models.Notification, error) {
	docs, err := r.recipientQuery(recipientID).Documents(ctx).GetAll()
	if err != nil {
		return nil, err
	}
	notifications := make([]models.Notification, 0, len(docs))
	for _, doc := range docs {
		var n models.Notification
		if err := doc.DataTo(&n); err != nil {
			return nil, fmt.Errorf("decode notification %s: %w", doc.Ref.ID, err)
		}
		n.ID = doc.Ref.ID
		notifications = append(notifications, n)
	}
	return notifications, nil
}

// MarkAsRead is idempotent; missing documents and other recipients' documents are ignored.
func (r *FirestoreNotificationRepository) MarkAsRead(ctx context.Context, recipientID, notificationID string) error {
	ref := r.collection.Doc(notificationID)
	snap, err := ref.Get(ctx)
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return nil
		}
		return err
	}
	var n models.Notification
	if err := snap.DataTo(&n); err != nil {
		return err
	}
	if n.ToUser != recipientID || n.Read {
		return nil
	}
	_, err = ref.Update(ctx, []firestore.Update{{Path: "read", Value: true}})
	if status.Code(err) == codes.NotFound {
		return nil
	}
	return err
}

// MarkManyAsRead is best effort: each update succeeds or fails on its own.
func (r *FirestoreNotificationRepository) MarkManyAsRead(ctx context.Context, recipientID string, notificationIDs []string) error {
	if len(notificationIDs) == 0 {
		return nil
	}
	bw := r.client.BulkWriter(ctx)
	jobs := make([]*firestore.BulkWriterJob, 0, len(notificationIDs))
	var errs []error
	for _, id := range notificationIDs {
		job, err := bw.Update(r.collection.Doc(id), []firestore.Update{{Path: "read", Value: true}},
			firestore.Exists)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		jobs = append(jobs, job)
	}
	bw.End()
	for _, job := range jobs {
		if _, err := job.Results(); err != nil && status.Code(err) != codes.NotFound {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (r *FirestoreNotificationRepository) Watch(ctx context.Context, recipientID string) (<-chan struct{}, error) {
	it := r.recipientQuery(recipientID).Snapshots(ctx)
	ch := make(chan struct{}, 1)
	go func() {
		defer close(ch)
		defer it.Stop()
		for {
			if _, err := it.Next(); err != nil {
				if ctx.Err() == nil && status.Code(err) != codes.Canceled {
					slog.Warn("firestore notification snapshot failed", "recipient", recipientID, "error", err)
				}
				return
			}
			select {
			case ch <- struct{}{}:
			default:
			}
		}
	}()
	return ch, nil
}
