package repositories

import (
	"context"
	"time"

	"github.com/anonto42/niche-communities/backend/internal/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// PushSubscriptionRepository stores browser push endpoints per user
type PushSubscriptionRepository interface {
	SavePushSubscription(ctx context.Context, sub *models.PushSubscription) error
	GetPushSubscriptions(ctx context.Context, userID string) ([]models.PushSubscription, error)
	DeletePushSubscription(ctx context.Context, endpoint string) error
}

type MongoPushSubscriptionRepository struct {
	collection *mongo.Collection
}

func NewMongoPushSubscriptionRepository(db *mongo.Database) *MongoPushSubscriptionRepository {
	return &MongoPushSubscriptionRepository{collection: db.Collection("push_subscriptions")}
}

// SavePushSubscription upserts by endpoint, so re-subscribing moves the endpoint to the caller
func (r *MongoPushSubscriptionRepository) SavePushSubscription(ctx context.Context, sub *models.PushSubscription) error {
	if sub.CreatedAt.IsZero() {
		sub.CreatedAt = time.Now()
	}
	_, err := r.collection.ReplaceOne(ctx, bson.M{"_id": sub.Endpoint}, sub, options.Replace().SetUpsert(true))
	return err
}

func (r *MongoPushSubscriptionRepository) GetPushSubscriptions(ctx context.Context, userID string) ([]models.PushSubscription, error) {
	cursor, err := r.collection.Find(ctx, bson.M{"user_id": userID})
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var subs []models.PushSubscription
	if err = cursor.All(ctx, &subs); err != nil {
		return nil, err
	}
	return subs, nil
}

func (r *MongoPushSubscriptionRepository) DeletePushSubscription(ctx context.Context, endpoint string) error {
	_, err := r.collection.DeleteOne(ctx, bson.M{"_id": endpoint})
	return err
}
