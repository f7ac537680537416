// Package auth defines the identity provider contract and the process-wide
// session hub that tracks who is signed in.
package auth

import (
	"context"
	"errors"
)

var (
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrEmailTaken         = errors.New("email already registered")
	ErrInvalidToken       = errors.New("invalid or expired ID token")
	ErrUnsupported        = errors.New("operation not supported by this provider")
)

// Identity is what the provider knows about a signed-in account.
type Identity struct {
	UID         string
	Email       string
	DisplayName string
	PhotoURL    *string
}

// ProfileUpdate carries the provider-side profile fields; nil leaves a field unchanged.
type ProfileUpdate struct {
	DisplayName *string
	PhotoURL    *string
}

// Provider is the external account service.
type Provider interface {
	CreateAccount(ctx context.Context, email, password, displayName string) (*Identity, error)
	Authenticate(ctx context.Context, email, password string) (*Identity, error)
	UpdateProfile(ctx context.Context, uid string, update ProfileUpdate) error
	SignOut(ctx context.Context, uid string) error
	VerifyIDToken(ctx context.Context, idToken string) (*Identity, error)
}
