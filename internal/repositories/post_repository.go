package repositories

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/anonto42/niche-communities/backend/internal/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// PostRepository defines the interface for post data operations.
// Mutators return the post as stored after the update. AddReaction also
// reports whether this call inserted the reaction, so concurrent identical
// writes see exactly one winner.
type PostRepository interface {
	CreatePost(ctx context.Context, post *models.Post) error
	GetPostByID(ctx context.Context, id string) (*models.Post, error)
	GetPostsByCommunityID(ctx context.Context, communityID string) ([]models.Post, error)
	DeletePost(ctx context.Context, id string) error
	DeletePostsByCommunityID(ctx context.Context, communityID string) (int64, error)
	AddReaction(ctx context.Context, postID, kind, userID string) (*models.Post, bool, error)
	RemoveReaction(ctx context.Context, postID, kind, userID string) (*models.Post, error)
	PrependComment(ctx context.Context, postID string, comment models.Comment) (*models.Post, error)
	AppendReply(ctx context.Context, postID, commentID string, reply models.Reply) (*models.Post, error)
	RemoveComment(ctx context.Context, postID, commentID string) (*models.Post, error)
	RemoveReply(ctx context.Context, postID, commentID, replyID string) (*models.Post, error)
}

// MongoPostRepository implements PostRepository for MongoDB
type MongoPostRepository struct {
	collection *mongo.Collection
}

// NewMongoPostRepository creates a new MongoPostRepository
func NewMongoPostRepository(db *mongo.Database) *MongoPostRepository {
	return &MongoPostRepository{collection: db.Collection("posts")}
}

// CreatePost creates a new post in MongoDB
func (r *MongoPostRepository) CreatePost(ctx context.Context, post *models.Post) error {
	if post.ID == "" {
		post.ID = primitive.NewObjectID().Hex()
	}
	post.CreatedAt = time.Now()
	if post.Reactions == nil {
		post.Reactions = map[string][]string{}
	}
	if post.Comments == nil {
		post.Comments = []models.Comment{}
	}
	_, err := r.collection.InsertOne(ctx, post)
	return err
}

// GetPostByID retrieves a post by ID from MongoDB
func (r *MongoPostRepository) GetPostByID(ctx context.Context, id string) (*models.Post, error) {
	var post models.Post
	err := r.collection.FindOne(ctx, bson.M{"_id": id}).Decode(&post)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, fmt.Errorf("post %s: %w", id, ErrNotFound)
		}
		return nil, err
	}
	return &post, nil
}

// GetPostsByCommunityID retrieves a community's posts, newest first
func (r *MongoPostRepository) GetPostsByCommunityID(ctx context.Context, communityID string) ([]models.Post, error) {
	var posts []models.Post
	findOptions := options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}})
	cursor, err := r.collection.Find(ctx, bson.M{"community_id": communityID}, findOptions)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	if err = cursor.All(ctx, &posts); err != nil {
		return nil, err
	}
	return posts, nil
}

// DeletePost deletes a post by ID from MongoDB
func (r *MongoPostRepository) DeletePost(ctx context.Context, id string) error {
	res, err := r.collection.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return err
	}
	if res.DeletedCount == 0 {
		return fmt.Errorf("post %s: %w", id, ErrNotFound)
	}
	return nil
}

// DeletePostsByCommunityID deletes every post of a community
func (r *MongoPostRepository) DeletePostsByCommunityID(ctx context.Context, communityID string) (int64, error) {
	res, err := r.collection.DeleteMany(ctx, bson.M{"community_id": communityID})
	if err != nil {
		return 0, err
	}
	return res.DeletedCount, nil
}

// AddReaction only matches a post that lacks the reaction; a miss means the
// post is gone or someone got there first.
func (r *MongoPostRepository) AddReaction(ctx context.Context, postID, kind, userID string) (*models.Post, bool, error) {
	field := "reactions." + kind
	post, err := r.findOneAndUpdate(ctx, bson.M{"_id": postID, field: bson.M{"$ne": userID}},
		bson.M{"$addToSet": bson.M{field: userID}})
	if err == nil {
		return post, true, nil
	}
	if !errors.Is(err, ErrNotFound) {
		return nil, false, err
	}
	post, err = r.GetPostByID(ctx, postID)
	if err != nil {
		return nil, false, err
	}
	return post, false, nil
}

func (r *MongoPostRepository) RemoveReaction(ctx context.Context, postID, kind, userID string) (*models.Post, error) {
	return r.findOneAndUpdate(ctx, bson.M{"_id": postID},
		bson.M{"$pull": bson.M{"reactions." + kind: userID}})
}

// PrependComment pushes the comment at position 0 without rewriting the array
func (r *MongoPostRepository) PrependComment(ctx context.Context, postID string, comment models.Comment) (*models.Post, error) {
	if comment.Replies == nil {
		comment.Replies = []models.Reply{}
	}
	return r.findOneAndUpdate(ctx, bson.M{"_id": postID},
		bson.M{"$push": bson.M{"comments": bson.M{"$each": bson.A{comment}, "$position": 0}}})
}

// AppendReply pushes onto the replies of the comment matching commentID
func (r *MongoPostRepository) AppendReply(ctx context.Context, postID, commentID string, reply models.Reply) (*models.Post, error) {
	return r.findOneAndUpdate(ctx, bson.M{"_id": postID, "comments.id": commentID},
		bson.M{"$push": bson.M{"comments.$.replies": reply}})
}

func (r *MongoPostRepository) RemoveComment(ctx context.Context, postID, commentID string) (*models.Post, error) {
	return r.findOneAndUpdate(ctx, bson.M{"_id": postID, "comments.id": commentID},
		bson.M{"$pull": bson.M{"comments": bson.M{"id": commentID}}})
}

func (r *MongoPostRepository) RemoveReply(ctx context.Context, postID, commentID, replyID string) (*models.Post, error) {
	return r.findOneAndUpdate(ctx, bson.M{"_id": postID, "comments.id": commentID},
		bson.M{"$pull": bson.M{"comments.$.replies": bson.M{"id": replyID}}})
}

func (r *MongoPostRepository) findOneAndUpdate(ctx context.Context, filter, update bson.M) (*models.Post, error) {
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)
	var post models.Post
	err := r.collection.FindOneAndUpdate(ctx, filter, update, opts).Decode(&post)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, fmt.Errorf("post %v: %w", filter["_id"], ErrNotFound)
		}
		return nil, err
	}
	return &post, nil
}
