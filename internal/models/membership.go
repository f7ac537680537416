package models

import "time"

const (
	RoleCreator = "creator"
	RoleMember  = "member"
)

// Membership is the authoritative relation between users and communities.
// Exactly one row per (user_id, community_id); User.Communities and
// Community.Members are rebuilt from it.
type Membership struct {
	ID          uint      `json:"id" gorm:"primaryKey"`
	UserID      string    `json:"user_id" gorm:"size:128;index;uniqueIndex:idx_user_community"`
	CommunityID string    `json:"community_id" gorm:"size:64;index;uniqueIndex:idx_user_community"`
	Role        string    `json:"role" gorm:"size:20"`
	CreatedAt   time.Time `json:"created_at"`
}
