package services

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReconciler_RebuildsFromRelation(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.seedUser(t, "u1", "Alice")
	f.seedUser(t, "u2", "Bob")
	c1 := f.createCommunity(t, "u1", "Chess Club")
	_, err := f.membership.Join(ctx, "u2", c1.ID)
	require.NoError(t, err)

	// corrupt both projections behind the coordinator's back
	require.NoError(t, f.store.SetCommunityMembers(ctx, c1.ID, []string{"u1", "ghost"}))
	require.NoError(t, f.store.SetUserCommunities(ctx, "u2", nil))

	f.reconciler.MarkDirty("u2", c1.ID)
	require.NoError(t, f.reconciler.Sweep(ctx))

	community, err := f.store.GetCommunityByID(ctx, c1.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{"u1", "u2"}, community.Members)
	u2, err := f.store.GetUserByID(ctx, "u2")
	require.NoError(t, err)
	assert.Equal(t, []string{c1.ID}, []string(u2.Communities))
}

func TestReconciler_SkipsDeletedCommunity(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	f.reconciler.MarkDirty("", "gone")
	require.NoError(t, f.reconciler.Sweep(ctx))
	_, communities := f.reconciler.Pending()
	assert.Zero(t, communities)
}

func TestReconciler_RunStopsWithContext(t *testing.T) {
	f := newFixture(t)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- f.reconciler.Run(ctx, 10*time.Millisecond) }()

	f.reconciler.MarkDirty("", "gone")
	assert.Eventually(t, func() bool {
		_, n := f.reconciler.Pending()
		return n == 0
	}, time.Second, 5*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("reconciler did not stop")
	}
}
