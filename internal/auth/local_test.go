package auth

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func newTestProvider() *LocalProvider {
	p := NewLocalProvider()
	p.cost = bcrypt.MinCost
	return p
}

func TestLocalProvider_CreateAndAuthenticate(t *testing.T) {
	ctx := context.Background()
	p := newTestProvider()

	created, err := p.CreateAccount(ctx, "Alice@Example.com", "secret1", "Alice")
	require.NoError(t, err)
	assert.NotEmpty(t, created.UID)
	assert.Equal(t, "alice@example.com", created.Email)

	_, err = p.CreateAccount(ctx, "alice@example.com", "other12", "Alice 2")
	assert.ErrorIs(t, err, ErrEmailTaken)

	got, err := p.Authenticate(ctx, "alice@example.com", "secret1")
	require.NoError(t, err)
	assert.Equal(t, created.UID, got.UID)

	_, err = p.Authenticate(ctx, "alice@example.com", "wrong")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
	_, err = p.Authenticate(ctx, "nobody@example.com", "secret1")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestLocalProvider_UpdateProfile(t *testing.T) {
	ctx := context.Background()
	p := newTestProvider()
	created, err := p.CreateAccount(ctx, "bob@example.com", "secret1", "Bob")
	require.NoError(t, err)

	name := "Robert"
	photo := "https://img.example.com/bob.png"
	require.NoError(t, p.UpdateProfile(ctx, created.UID, ProfileUpdate{DisplayName: &name, PhotoURL: &photo}))

	got, err := p.Authenticate(ctx, "bob@example.com", "secret1")
	require.NoError(t, err)
	assert.Equal(t, "Robert", got.DisplayName)
	require.NotNil(t, got.PhotoURL)
	assert.Equal(t, photo, *got.PhotoURL)

	_, err = p.VerifyIDToken(ctx, "token")
	assert.ErrorIs(t, err, ErrUnsupported)
}
