package repositories

import (
	"context"
	"errors"
	"fmt"

	"github.com/anonto42/niche-communities/backend/internal/models"
	"github.com/lib/pq"
	"gorm.io/gorm"
)

// UserRepository defines the interface for user data operations
type UserRepository interface {
	CreateUser(ctx context.Context, user *models.User) error
	GetUserByID(ctx context.Context, id string) (*models.User, error)
	GetUsersByIDs(ctx context.Context, ids []string) ([]models.User, error)
	UpdateUser(ctx context.Context, user *models.User) error
	AddUserCommunity(ctx context.Context, userID, communityID string) error
	RemoveUserCommunity(ctx context.Context, userID, communityID string) error
	SetUserCommunities(ctx context.Context, userID string, communityIDs []string) error
}

// PostgresUserRepository implements UserRepository for PostgreSQL
type PostgresUserRepository struct {
	db *gorm.DB
}

// NewPostgresUserRepository creates a new PostgresUserRepository
func NewPostgresUserRepository(db *gorm.DB) *PostgresUserRepository {
	return &PostgresUserRepository{db: db}
}

// CreateUser creates a new user in PostgreSQL
func (r *PostgresUserRepository) CreateUser(ctx context.Context, user *models.User) error {
	if user.Communities == nil {
		user.Communities = []string{}
	}
	return r.db.WithContext(ctx).Create(user).Error
}

// GetUserByID retrieves a user by auth UID
func (r *PostgresUserRepository) GetUserByID(ctx context.Context, id string) (*models.User, error) {
	var user models.User
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("user %s: %w", id, ErrNotFound)
		}
		return nil, err
	}
	return &user, nil
}

// GetUsersByIDs retrieves the users that exist among ids
func (r *PostgresUserRepository) GetUsersByIDs(ctx context.Context, ids []string) ([]models.User, error) {
	var users []models.User
	if len(ids) == 0 {
		return users, nil
	}
	if err := r.db.WithContext(ctx).Where("id IN ?", ids).Find(&users).Error; err != nil {
		return nil, err
	}
	return users, nil
}

// UpdateUser writes the profile columns only; the communities projection
// is owned by the membership workflow and never overwritten here.
func (r *PostgresUserRepository) UpdateUser(ctx context.Context, user *models.User) error {
	res := r.db.WithContext(ctx).Model(&models.User{ID: user.ID}).
		Select("display_name", "photo_url", "bio", "location", "website").
		Updates(user)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("user %s: %w", user.ID, ErrNotFound)
	}
	return nil
}

// AddUserCommunity appends communityID to the user's projection unless present
func (r *PostgresUserRepository) AddUserCommunity(ctx context.Context, userID, communityID string) error {
	res := r.db.WithContext(ctx).Model(&models.User{}).
		Where("id = ?", userID).
		Update("communities", gorm.Expr(
			"CASE WHEN ? = ANY(COALESCE(communities, '{}')) THEN communities ELSE array_append(COALESCE(communities, '{}'), ?) END",
			communityID, communityID))
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("user %s: %w", userID, ErrNotFound)
	}
	return nil
}

// RemoveUserCommunity removes every occurrence of communityID from the user's projection
func (r *PostgresUserRepository) RemoveUserCommunity(ctx context.Context, userID, communityID string) error {
	return r.db.WithContext(ctx).Model(&models.User{}).
		Where("id = ?", userID).
		Update("communities", gorm.Expr("array_remove(COALESCE(communities, '{}'), ?)", communityID)).Error
}

// SetUserCommunities replaces the projection, used by the reconciler
func (r *PostgresUserRepository) SetUserCommunities(ctx context.Context, userID string, communityIDs []string) error {
	if communityIDs == nil {
		communityIDs = []string{}
	}
	return r.db.WithContext(ctx).Model(&models.User{}).
		Where("id = ?", userID).
		Update("communities", pq.StringArray(communityIDs)).Error
}
