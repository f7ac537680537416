package services

import (
	"context"
	"testing"

	"github.com/anonto42/niche-communities/backend/internal/models"
	"github.com/anonto42/niche-communities/backend/internal/repositories/memory"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// failingNotifications rejects every notification write.
type failingNotifications struct {
	*memory.Store
}

func (failingNotifications) CreateNotification(context.Context, *models.Notification) error {
	return errUnavailable
}

func TestNotify_SelfAndEmptyRecipientSuppressed(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	assert.False(t, f.notifier.Notify(ctx, &models.Notification{Type: models.NotificationJoin, ToUser: "u1", FromUser: "u1"}))
	assert.False(t, f.notifier.Notify(ctx, &models.Notification{Type: models.NotificationJoin, FromUser: "u1"}))
	assert.Empty(t, f.notificationsFor(t, "u1"))

	n := &models.Notification{Type: models.NotificationJoin, ToUser: "u1", FromUser: "u2", Read: true}
	require.True(t, f.notifier.Notify(ctx, n))
	assert.False(t, n.Read)
	assert.Equal(t, "Unknown User", n.FromUserName)
	assert.Len(t, f.notificationsFor(t, "u1"), 1)
}

func TestNotify_StoreFailureNeverFailsTheAction(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.notifier = NewNotifier(failingNotifications{f.store}, nil)
	f.membership = NewMembershipCoordinator(f.store, f.store, f.store, f.store, f.notifier, f.reconciler)
	f.interaction = NewInteractionCoordinator(f.store, f.store, f.store, f.store, f.notifier, f.view)

	f.seedUser(t, "u1", "Alice")
	f.seedUser(t, "u2", "Bob")
	c1 := f.createCommunity(t, "u1", "Chess Club")

	joined, err := f.membership.Join(ctx, "u2", c1.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{"u1", "u2"}, joined.Members)
	member, err := f.store.IsMember(ctx, "u2", c1.ID)
	require.NoError(t, err)
	assert.True(t, member)

	p1 := f.createPost(t, "u1", c1.ID, "first post")

	post, err := f.interaction.AddComment(ctx, "u2", p1.ID, "good luck")
	require.NoError(t, err)
	require.Len(t, post.Comments, 1)
	assert.Equal(t, "good luck", post.Comments[0].Content)

	post, err = f.interaction.React(ctx, "u2", p1.ID, "like")
	require.NoError(t, err)
	assert.True(t, post.HasReacted("u2", "like"))

	stored, err := f.store.GetPostByID(ctx, p1.ID)
	require.NoError(t, err)
	assert.Len(t, stored.Comments, 1)
	assert.True(t, stored.HasReacted("u2", "like"))
	assert.Empty(t, f.notificationsFor(t, "u1"))
}
