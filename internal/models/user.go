package models

import (
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v4"
	"github.com/lib/pq"
)

// User is the profile record kept next to the auth provider's account.
// Communities is a projection of the membership relation and may lag behind it.
type User struct {
	ID          string         `json:"id" gorm:"primaryKey;size:128"` // auth provider UID
	Email       string         `json:"email" gorm:"index"`
	DisplayName string         `json:"display_name"`
	PhotoURL    *string        `json:"photo_url"`
	Bio         string         `json:"bio"`
	Location    string         `json:"location"`
	Website     string         `json:"website"`
	Communities pq.StringArray `json:"communities" gorm:"type:text[];default:'{}'"`
	CreatedAt   time.Time      `json:"created_at"`
	UpdatedAt   time.Time      `json:"updated_at"`
}

// Name returns the display name, falling back to the e-mail local part.
func (u *User) Name() string {
	if u.DisplayName != "" {
		return u.DisplayName
	}
	if local, _, _ := strings.Cut(u.Email, "@"); local != "" {
		return local
	}
	return "Unknown User"
}

// BelongsTo reports whether the projection lists communityID.
func (u *User) BelongsTo(communityID string) bool {
	for _, id := range u.Communities {
		if id == communityID {
			return true
		}
	}
	return false
}

type SignupRequest struct {
	Email           string `json:"email" validate:"required,email"`
	Password        string `json:"password" validate:"required,min=6"`
	ConfirmPassword string `json:"confirm_password" validate:"required,eqfield=Password"`
	DisplayName     string `json:"display_name" validate:"required,min=2,max=50"`
}

type SignInRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

type UpdateProfileRequest struct {
	DisplayName *string `json:"display_name,omitempty" validate:"omitempty,min=2,max=50"`
	PhotoURL    *string `json:"photo_url,omitempty" validate:"omitempty,url"`
	Bio         *string `json:"bio,omitempty" validate:"omitempty,max=500"`
	Location    *string `json:"location,omitempty" validate:"omitempty,max=100"`
	Website     *string `json:"website,omitempty" validate:"omitempty,url"`
}

// JwtCustomClaims are custom claims extending standard jwt.RegisteredClaims
type JwtCustomClaims struct {
	UserID string `json:"user_id"`
	Email  string `json:"email"`
	jwt.RegisteredClaims
}
