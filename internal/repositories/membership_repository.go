package repositories

import (
	"context"

	"github.com/anonto42/niche-communities/backend/internal/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// MembershipRepository defines the interface for the authoritative membership relation
type MembershipRepository interface {
	AddMembership(ctx context.Context, membership *models.Membership) (bool, error)
	RemoveMembership(ctx context.Context, userID, communityID string) (bool, error)
	IsMember(ctx context.Context, userID, communityID string) (bool, error)
	ListMemberIDs(ctx context.Context, communityID string) ([]string, error)
	ListCommunityIDs(ctx context.Context, userID string) ([]string, error)
	DeleteMembershipsByCommunity(ctx context.Context, communityID string) error
}

// PostgresMembershipRepository implements MembershipRepository for PostgreSQL
type PostgresMembershipRepository struct {
	db *gorm.DB
}

// NewPostgresMembershipRepository creates a new PostgresMembershipRepository
func NewPostgresMembershipRepository(db *gorm.DB) *PostgresMembershipRepository {
	return &PostgresMembershipRepository{db: db}
}

// AddMembership inserts the row and reports whether it was new
func (r *PostgresMembershipRepository) AddMembership(ctx context.Context, membership *models.Membership) (bool, error) {
	res := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{Columns: []clause.Column{{Name: "user_id"}, {Name: "community_id"}}, DoNothing: true}).
		Create(membership)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

// RemoveMembership deletes the row and reports whether one existed
func (r *PostgresMembershipRepository) RemoveMembership(ctx context.Context, userID, communityID string) (bool, error) {
	res := r.db.WithContext(ctx).
		Where("user_id = ? AND community_id = ?", userID, communityID).
		Delete(&models.Membership{})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (r *PostgresMembershipRepository) IsMember(ctx context.Context, userID, communityID string) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.Membership{}).
		Where("user_id = ? AND community_id = ?", userID, communityID).
		Count(&count).Error
	return count > 0, err
}

func (r *PostgresMembershipRepository) ListMemberIDs(ctx context.Context, communityID string) ([]string, error) {
	var ids []string
	err := r.db.WithContext(ctx).Model(&models.Membership{}).
		Where("community_id = ?", communityID).
		Order("created_at ASC").
		Pluck("user_id", &ids).Error
	return ids, err
}

func (r *PostgresMembershipRepository) ListCommunityIDs(ctx context.Context, userID string) ([]string, error) {
	var ids []string
	err := r.db.WithContext(ctx).Model(&models.Membership{}).
		Where("user_id = ?", userID).
		Order("created_at ASC").
		Pluck("community_id", &ids).Error
	return ids, err
}

func (r *PostgresMembershipRepository) DeleteMembershipsByCommunity(ctx context.Context, communityID string) error {
	return r.db.WithContext(ctx).Where("community_id = ?", communityID).Delete(&models.Membership{}).Error
}
