package repositories

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"time"

	"github.com/anonto42/niche-communities/backend/internal/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
)

// CommunityRepository defines the interface for community data operations
type CommunityRepository interface {
	CreateCommunity(ctx context.Context, community *models.Community) error
	GetCommunityByID(ctx context.Context, id string) (*models.Community, error)
	ListCommunities(ctx context.Context, filter models.CommunityFilter) ([]models.Community, error)
	AddCommunityMember(ctx context.Context, id, userID string) error
	RemoveCommunityMember(ctx context.Context, id, userID string) error
	SetCommunityMembers(ctx context.Context, id string, members []string) error
	UpdateCommunityPhoto(ctx context.Context, id, photoURL string) error
	DeleteCommunity(ctx context.Context, id string) error
}

// MongoCommunityRepository implements CommunityRepository for MongoDB
type MongoCommunityRepository struct {
	collection *mongo.Collection
}

// NewMongoCommunityRepository creates a new MongoCommunityRepository
func NewMongoCommunityRepository(db *mongo.Database) *MongoCommunityRepository {
	return &MongoCommunityRepository{collection: db.Collection("communities")}
}

// CreateCommunity creates a new community in MongoDB
func (r *MongoCommunityRepository) CreateCommunity(ctx context.Context, community *models.Community) error {
	if community.ID == "" {
		community.ID = primitive.NewObjectID().Hex()
	}
	if community.CreatedAt.IsZero() {
		community.CreatedAt = time.Now()
	}
	if community.Members == nil {
		community.Members = []string{}
	}
	_, err := r.collection.InsertOne(ctx, community)
	return err
}

// GetCommunityByID retrieves a community by ID from MongoDB
func (r *MongoCommunityRepository) GetCommunityByID(ctx context.Context, id string) (*models.Community, error) {
	var community models.Community
	err := r.collection.FindOne(ctx, bson.M{"_id": id}).Decode(&community)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, fmt.Errorf("community %s: %w", id, ErrNotFound)
		}
		return nil, err
	}
	return &community, nil
}

// ListCommunities retrieves communities matching the filter
func (r *MongoCommunityRepository) ListCommunities(ctx context.Context, filter models.CommunityFilter) ([]models.Community, error) {
	query := bson.M{}
	if filter.Query != "" {
		pattern := primitive.Regex{Pattern: regexp.QuoteMeta(filter.Query), Options: "i"}
		query["$or"] = bson.A{bson.M{"name": pattern}, bson.M{"description": pattern}}
	}
	if filter.Category != "" {
		query["category"] = primitive.Regex{Pattern: "^" + regexp.QuoteMeta(filter.Category) + "$", Options: "i"}
	}

	cursor, err := r.collection.Find(ctx, query)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var communities []models.Community
	if err = cursor.All(ctx, &communities); err != nil {
		return nil, err
	}
	models.SortCommunities(communities, filter.Sort)
	return communities, nil
}

// AddCommunityMember adds userID to the members projection ($addToSet)
func (r *MongoCommunityRepository) AddCommunityMember(ctx context.Context, id, userID string) error {
	return r.updateOne(ctx, id, bson.M{"$addToSet": bson.M{"members": userID}})
}

// RemoveCommunityMember removes userID from the members projection ($pull)
func (r *MongoCommunityRepository) RemoveCommunityMember(ctx context.Context, id, userID string) error {
	return r.updateOne(ctx, id, bson.M{"$pull": bson.M{"members": userID}})
}

// SetCommunityMembers replaces the members projection, used by the reconciler
func (r *MongoCommunityRepository) SetCommunityMembers(ctx context.Context, id string, members []string) error {
	if members == nil {
		members = []string{}
	}
	return r.updateOne(ctx, id, bson.M{"$set": bson.M{"members": members}})
}

func (r *MongoCommunityRepository) UpdateCommunityPhoto(ctx context.Context, id, photoURL string) error {
	return r.updateOne(ctx, id, bson.M{"$set": bson.M{"photo_url": photoURL}})
}

// DeleteCommunity deletes a community by ID from MongoDB
func (r *MongoCommunityRepository) DeleteCommunity(ctx context.Context, id string) error {
	res, err := r.collection.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return err
	}
	if res.DeletedCount == 0 {
		return fmt.Errorf("community %s: %w", id, ErrNotFound)
	}
	return nil
}

func (r *MongoCommunityRepository) updateOne(ctx context.Context, id string, update bson.M) error {
	res, err := r.collection.UpdateOne(ctx, bson.M{"_id": id}, update)
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return fmt.Errorf("community %s: %w", id, ErrNotFound)
	}
	return nil
}
