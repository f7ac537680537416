package services

import (
	"context"
	"testing"
	"time"

	"github.com/anonto42/niche-communities/backend/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// waitFor reads snapshots until one satisfies cond.
func waitFor(t *testing.T, sub *Subscription, cond func(Snapshot) bool) Snapshot {
	t.Helper()
	timeout := time.After(2 * time.Second)
	for {
		select {
		case snap, ok := <-sub.Snapshots():
			require.True(t, ok, "feed ended early")
			if cond(snap) {
				return snap
			}
		case <-timeout:
			t.Fatal("timed out waiting for snapshot")
		}
	}
}

func seedNotification(t *testing.T, f *fixture, to, from string, read bool) *models.Notification {
	t.Helper()
	n := &models.Notification{
		Type:         models.NotificationComment,
		ToUser:       to,
		FromUser:     from,
		FromUserName: from,
		Read:         read,
	}
	require.NoError(t, f.store.CreateNotification(context.Background(), n))
	return n
}

func TestSubscribe_EmitsFullSnapshots(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	seedNotification(t, f, "u1", "u2", false)
	seedNotification(t, f, "u1", "u3", true)
	seedNotification(t, f, "u9", "u2", false)

	sub, err := f.reader.Subscribe(ctx, "u1")
	require.NoError(t, err)
	defer sub.Cancel()

	first := waitFor(t, sub, func(Snapshot) bool { return true })
	require.Len(t, first.Notifications, 2)
	assert.Equal(t, 1, first.UnreadCount)
	assert.True(t, first.Notifications[0].CreatedAt.After(first.Notifications[1].CreatedAt), "newest first")

	latest := seedNotification(t, f, "u1", "u4", false)
	second := waitFor(t, sub, func(s Snapshot) bool { return len(s.Notifications) == 3 })
	assert.Equal(t, 2, second.UnreadCount)
	assert.Equal(t, latest.ID, second.Notifications[0].ID)
}

func TestMarkRead_IsIdempotent(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	n := seedNotification(t, f, "u1", "u2", false)
	seedNotification(t, f, "u1", "u3", false)

	require.NoError(t, f.reader.MarkRead(ctx, "u1", n.ID))
	once, err := f.reader.Snapshot(ctx, "u1")
	require.NoError(t, err)

	require.NoError(t, f.reader.MarkRead(ctx, "u1", n.ID))
	twice, err := f.reader.Snapshot(ctx, "u1")
	require.NoError(t, err)

	assert.Equal(t, once, twice)
	assert.Equal(t, 1, twice.UnreadCount)

	assert.NoError(t, f.reader.MarkRead(ctx, "u1", "does-not-exist"))
}

func TestMarkRead_ScopedToRecipient(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	n := seedNotification(t, f, "u1", "u2", false)

	require.NoError(t, f.reader.MarkRead(ctx, "u2", n.ID))
	snap, err := f.reader.Snapshot(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, 1, snap.UnreadCount)
}

func TestMarkAllRead(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	for i := 0; i < 3; i++ {
		seedNotification(t, f, "u1", "u2", false)
	}
	seedNotification(t, f, "u1", "u2", true)

	sub, err := f.reader.Subscribe(ctx, "u1")
	require.NoError(t, err)
	defer sub.Cancel()
	waitFor(t, sub, func(s Snapshot) bool { return s.UnreadCount == 3 })

	marked, err := f.reader.MarkAllRead(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, 3, marked)

	snap := waitFor(t, sub, func(s Snapshot) bool { return s.UnreadCount == 0 })
	assert.Len(t, snap.Notifications, 4)

	marked, err = f.reader.MarkAllRead(ctx, "u1")
	require.NoError(t, err)
	assert.Zero(t, marked)
}

func TestSubscription_CancelEndsFeed(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	sub, err := f.reader.Subscribe(ctx, "u1")
	require.NoError(t, err)
	waitFor(t, sub, func(Snapshot) bool { return true })
	assert.Equal(t, 1, f.store.WatcherCount("u1"))

	sub.Cancel()
	sub.Cancel()

	select {
	case <-sub.Done():
	case <-time.After(2 * time.Second):
		t.Fatal("feed did not stop")
	}
	for range sub.Snapshots() {
	}
	assert.Eventually(t, func() bool { return f.store.WatcherCount("u1") == 0 }, 2*time.Second, 10*time.Millisecond)
}

func TestSubscription_ContextCancelEndsFeed(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	f := newFixture(t)

	sub, err := f.reader.Subscribe(ctx, "u1")
	require.NoError(t, err)
	cancel()

	select {
	case <-sub.Done():
	case <-time.After(2 * time.Second):
		t.Fatal("feed did not stop")
	}
}

func TestSubscription_PublishKeepsLatest(t *testing.T) {
	sub := &Subscription{snapshots: make(chan Snapshot, 1)}
	sub.publish(Snapshot{UnreadCount: 1})
	sub.publish(Snapshot{UnreadCount: 2})
	sub.publish(Snapshot{UnreadCount: 3})

	got := <-sub.Snapshots()
	assert.Equal(t, 3, got.UnreadCount)
	select {
	case <-sub.Snapshots():
		t.Fatal("stale snapshot was delivered")
	default:
	}
}

func TestNotificationsEndToEnd(t *testing.T) {
	ctx := context.Background()
	f, _, p1 := setupPost(t)

	sub, err := f.reader.Subscribe(ctx, "u1")
	require.NoError(t, err)
	defer sub.Cancel()
	before := waitFor(t, sub, func(Snapshot) bool { return true })

	_, err = f.interaction.React(ctx, "u2", p1.ID, "laugh")
	require.NoError(t, err)

	snap := waitFor(t, sub, func(s Snapshot) bool { return len(s.Notifications) == len(before.Notifications)+1 })
	assert.Equal(t, models.NotificationReaction, snap.Notifications[0].Type)
	assert.Equal(t, before.UnreadCount+1, snap.UnreadCount)
}
