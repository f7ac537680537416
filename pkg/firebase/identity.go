package firebase

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"firebase.google.com/go/v4/auth"
	localauth "github.com/anonto42/niche-communities/backend/internal/auth"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/identitytoolkit/v3"
)

var _ localauth.Provider = (*IdentityProvider)(nil)

// IdentityProvider implements auth.Provider on top of Firebase Auth.
type IdentityProvider struct {
	client  *auth.Client
	toolkit *identitytoolkit.Service
}

func NewIdentityProvider(app *App) *IdentityProvider {
	return &IdentityProvider{client: app.AuthClient, toolkit: app.Toolkit}
}

func (p *IdentityProvider) CreateAccount(ctx context.Context, email, password, displayName string) (*localauth.Identity, error) {
	params := (&auth.UserToCreate{}).
		Email(email).
		Password(password).
		DisplayName(displayName)
	record, err := p.client.CreateUser(ctx, params)
	if err != nil {
		if auth.IsEmailAlreadyExists(err) {
			return nil, localauth.ErrEmailTaken
		}
		return nil, fmt.Errorf("create firebase user: %w", err)
	}
	return fromUserInfo(record.UserInfo), nil
}

// Authenticate checks the password with the Identity Toolkit REST API; the
// Admin SDK has no password sign-in.
func (p *IdentityProvider) Authenticate(ctx context.Context, email, password string) (*localauth.Identity, error) {
	if p.toolkit == nil {
		return nil, localauth.ErrUnsupported
	}
	resp, err := p.toolkit.Relyingparty.VerifyPassword(&identitytoolkit.IdentitytoolkitRelyingpartyVerifyPasswordRequest{
		Email:             email,
		Password:          password,
		ReturnSecureToken: true,
	}).Context(ctx).Do()
	if err != nil {
		var gerr *googleapi.Error
		if errors.As(err, &gerr) && gerr.Code == http.StatusBadRequest {
			return nil, localauth.ErrInvalidCredentials
		}
		return nil, fmt.Errorf("verify password: %w", err)
	}

	identity := &localauth.Identity{UID: resp.LocalId, Email: resp.Email, DisplayName: resp.DisplayName}
	if resp.PhotoUrl != "" {
		photo := resp.PhotoUrl
		identity.PhotoURL = &photo
	}
	return identity, nil
}

func (p *IdentityProvider) UpdateProfile(ctx context.Context, uid string, update localauth.ProfileUpdate) error {
	params := &auth.UserToUpdate{}
	changed := false
	if update.DisplayName != nil {
		params = params.DisplayName(*update.DisplayName)
		changed = true
	}
	if update.PhotoURL != nil {
		params = params.PhotoURL(*update.PhotoURL)
		changed = true
	}
	if !changed {
		return nil
	}
	if _, err := p.client.UpdateUser(ctx, uid, params); err != nil {
		return fmt.Errorf("update firebase user: %w", err)
	}
	return nil
}

// SignOut revokes the user's refresh tokens so other devices are signed out too.
func (p *IdentityProvider) SignOut(ctx context.Context, uid string) error {
	if err := p.client.RevokeRefreshTokens(ctx, uid); err != nil {
		return fmt.Errorf("revoke refresh tokens: %w", err)
	}
	return nil
}

func (p *IdentityProvider) VerifyIDToken(ctx context.Context, idToken string) (*localauth.Identity, error) {
	token, err := p.client.VerifyIDToken(ctx, idToken)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", localauth.ErrInvalidToken, err)
	}
	identity := &localauth.Identity{UID: token.UID}
	if email, ok := token.Claims["email"].(string); ok {
		identity.Email = email
	}
	if name, ok := token.Claims["name"].(string); ok {
		identity.DisplayName = name
	}
	if picture, ok := token.Claims["picture"].(string); ok && picture != "" {
		identity.PhotoURL = &picture
	}
	return identity, nil
}

func fromUserInfo(info *auth.UserInfo) *localauth.Identity {
	identity := &localauth.Identity{UID: info.UID, Email: info.Email, DisplayName: info.DisplayName}
	if info.PhotoURL != "" {
		photo := info.PhotoURL
		identity.PhotoURL = &photo
	}
	return identity
}
