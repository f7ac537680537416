package services

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/anonto42/niche-communities/backend/internal/models"
	"github.com/anonto42/niche-communities/backend/internal/repositories"
	"github.com/anonto42/niche-communities/backend/internal/repositories/memory"
	"github.com/stretchr/testify/require"
)

var errUnavailable = errors.New("backend unavailable")

type fixture struct {
	store       *memory.Store
	reconciler  *Reconciler
	notifier    *Notifier
	view        *PostView
	membership  *MembershipCoordinator
	interaction *InteractionCoordinator
	reader      *NotificationReader
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	store := memory.NewStore()
	store.SetClock(steppingClock())
	return newFixtureWith(store, store, store)
}

// newFixtureWith lets tests swap the projection stores for failing ones.
func newFixtureWith(store *memory.Store, users repositories.UserRepository, communities repositories.CommunityRepository) *fixture {
	f := &fixture{store: store}
	f.reconciler = NewReconciler(users, communities, store)
	f.notifier = NewNotifier(store, nil)
	f.view = NewPostView(16)
	f.membership = NewMembershipCoordinator(users, communities, store, store, f.notifier, f.reconciler)
	f.interaction = NewInteractionCoordinator(store, communities, store, users, f.notifier, f.view)
	f.reader = NewNotificationReader(store)
	return f
}

// steppingClock returns distinct, increasing timestamps.
func steppingClock() func() time.Time {
	var mu sync.Mutex
	t := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	return func() time.Time {
		mu.Lock()
		defer mu.Unlock()
		t = t.Add(time.Second)
		return t
	}
}

func (f *fixture) seedUser(t *testing.T, id, name string) {
	t.Helper()
	require.NoError(t, f.store.CreateUser(context.Background(), &models.User{
		ID:          id,
		Email:       id + "@example.com",
		DisplayName: name,
	}))
}

func (f *fixture) createCommunity(t *testing.T, creatorID, name string) *models.Community {
	t.Helper()
	c, err := f.membership.CreateCommunity(context.Background(), creatorID, models.CreateCommunityRequest{
		Name:        name,
		Description: name + " for everyone",
		Category:    "games",
	})
	require.NoError(t, err)
	return c
}

func (f *fixture) createPost(t *testing.T, authorID, communityID, content string) *models.Post {
	t.Helper()
	p, err := f.interaction.CreatePost(context.Background(), authorID, communityID, models.CreatePostRequest{Content: content})
	require.NoError(t, err)
	return p
}

func (f *fixture) notificationsFor(t *testing.T, userID string) []models.Notification {
	t.Helper()
	list, err := f.store.GetNotificationsByRecipient(context.Background(), userID)
	require.NoError(t, err)
	return list
}

func (f *fixture) notificationsOfType(t *testing.T, userID, typ string) []models.Notification {
	t.Helper()
	var out []models.Notification
	for _, n := range f.notificationsFor(t, userID) {
		if n.Type == typ {
			out = append(out, n)
		}
	}
	return out
}

// flakyUsers fails user projection writes while failing is set.
type flakyUsers struct {
	*memory.Store
	mu      sync.Mutex
	failing bool
}

func (u *flakyUsers) setFailing(v bool) {
	u.mu.Lock()
	u.failing = v
	u.mu.Unlock()
}

func (u *flakyUsers) fail() bool {
	u.mu.Lock()
	defer u.mu.Unlock()
	return u.failing
}

func (u *flakyUsers) AddUserCommunity(ctx context.Context, userID, communityID string) error {
	if u.fail() {
		return errUnavailable
	}
	return u.Store.AddUserCommunity(ctx, userID, communityID)
}

func (u *flakyUsers) RemoveUserCommunity(ctx context.Context, userID, communityID string) error {
	if u.fail() {
		return errUnavailable
	}
	return u.Store.RemoveUserCommunity(ctx, userID, communityID)
}

func (u *flakyUsers) SetUserCommunities(ctx context.Context, userID string, communityIDs []string) error {
	if u.fail() {
		return errUnavailable
	}
	return u.Store.SetUserCommunities(ctx, userID, communityIDs)
}

// flakyCommunities fails member projection writes while failing is set.
type flakyCommunities struct {
	*memory.Store
	failing bool
}

func (c *flakyCommunities) AddCommunityMember(ctx context.Context, id, userID string) error {
	if c.failing {
		return errUnavailable
	}
	return c.Store.AddCommunityMember(ctx, id, userID)
}

func (c *flakyCommunities) RemoveCommunityMember(ctx context.Context, id, userID string) error {
	if c.failing {
		return errUnavailable
	}
	return c.Store.RemoveCommunityMember(ctx, id, userID)
}
