package services

import (
	"context"
	"testing"

	"github.com/anonto42/niche-communities/backend/internal/models"
	"github.com/anonto42/niche-communities/backend/internal/repositories/memory"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreateCommunity_CreatorIsFirstMember(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.seedUser(t, "u1", "Alice")

	c := f.createCommunity(t, "u1", "Chess Club")

	assert.Equal(t, []string{"u1"}, c.Members)
	assert.Equal(t, models.DefaultCommunityPhoto, c.PhotoURL)

	member, err := f.store.IsMember(ctx, "u1", c.ID)
	require.NoError(t, err)
	assert.True(t, member)

	user, err := f.store.GetUserByID(ctx, "u1")
	require.NoError(t, err)
	assert.Contains(t, []string(user.Communities), c.ID)
}

func TestCreateCommunity_RejectsBlankFields(t *testing.T) {
	f := newFixture(t)
	f.seedUser(t, "u1", "Alice")

	_, err := f.membership.CreateCommunity(context.Background(), "u1", models.CreateCommunityRequest{
		Name:        "   ",
		Description: "desc",
		Category:    "games",
	})
	assert.ErrorIs(t, err, ErrInvalidInput)
}

func TestJoin_ChessClubScenario(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.seedUser(t, "u1", "Alice")
	f.seedUser(t, "u2", "Bob")
	c1 := f.createCommunity(t, "u1", "Chess Club")

	joined, err := f.membership.Join(ctx, "u2", c1.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{"u1", "u2"}, joined.Members)

	stored, err := f.store.GetCommunityByID(ctx, c1.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{"u1", "u2"}, stored.Members)

	u2, err := f.store.GetUserByID(ctx, "u2")
	require.NoError(t, err)
	assert.Contains(t, []string(u2.Communities), c1.ID)

	notes := f.notificationsFor(t, "u1")
	require.Len(t, notes, 1)
	assert.Equal(t, models.NotificationJoin, notes[0].Type)
	assert.Equal(t, "u2", notes[0].FromUser)
	assert.Equal(t, "Bob", notes[0].FromUserName)
	assert.Equal(t, "Chess Club", notes[0].CommunityName)
	assert.Equal(t, `Bob joined your community "Chess Club"`, notes[0].Message)
	assert.False(t, notes[0].Read)
}

func TestJoin_Errors(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.seedUser(t, "u1", "Alice")
	f.seedUser(t, "u2", "Bob")
	c1 := f.createCommunity(t, "u1", "Chess Club")

	_, err := f.membership.Join(ctx, "u2", "missing")
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = f.membership.Join(ctx, "u1", c1.ID)
	assert.ErrorIs(t, err, ErrAlreadyMember)

	_, err = f.membership.Join(ctx, "u2", c1.ID)
	require.NoError(t, err)
	_, err = f.membership.Join(ctx, "u2", c1.ID)
	assert.ErrorIs(t, err, ErrAlreadyMember)

	assert.Len(t, f.notificationsOfType(t, "u1", models.NotificationJoin), 1)
}

func TestJoinLeave_RoundTrip(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.seedUser(t, "u1", "Alice")
	f.seedUser(t, "u2", "Bob")
	c1 := f.createCommunity(t, "u1", "Chess Club")

	_, err := f.membership.Join(ctx, "u2", c1.ID)
	require.NoError(t, err)
	left, err := f.membership.Leave(ctx, "u2", c1.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{"u1"}, left.Members)

	stored, err := f.store.GetCommunityByID(ctx, c1.ID)
	require.NoError(t, err)
	assert.NotContains(t, stored.Members, "u2")

	u2, err := f.store.GetUserByID(ctx, "u2")
	require.NoError(t, err)
	assert.NotContains(t, []string(u2.Communities), c1.ID)

	leaves := f.notificationsOfType(t, "u1", models.NotificationLeave)
	require.Len(t, leaves, 1)
	assert.Equal(t, `Bob left your community "Chess Club"`, leaves[0].Message)

	_, err = f.membership.Leave(ctx, "u2", c1.ID)
	assert.ErrorIs(t, err, ErrNotMember)
}

func TestJoinLeave_CreatorGetsNoSelfNotification(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.seedUser(t, "u1", "Alice")
	c1 := f.createCommunity(t, "u1", "Chess Club")

	_, err := f.membership.Leave(ctx, "u1", c1.ID)
	require.NoError(t, err)
	_, err = f.membership.Join(ctx, "u1", c1.ID)
	require.NoError(t, err)

	assert.Empty(t, f.notificationsFor(t, "u1"))
}

func TestRemoveMember(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	for id, name := range map[string]string{"u1": "Alice", "u2": "Bob", "u3": "Carol"} {
		f.seedUser(t, id, name)
	}
	c1 := f.createCommunity(t, "u1", "Chess Club")
	_, err := f.membership.Join(ctx, "u2", c1.ID)
	require.NoError(t, err)
	_, err = f.membership.Join(ctx, "u3", c1.ID)
	require.NoError(t, err)

	_, err = f.membership.RemoveMember(ctx, "u3", c1.ID, "u2")
	assert.ErrorIs(t, err, ErrForbidden)

	_, err = f.membership.RemoveMember(ctx, "u1", c1.ID, "u1")
	assert.ErrorIs(t, err, ErrCannotRemoveSelf)

	community, err := f.membership.RemoveMember(ctx, "u1", c1.ID, "u2")
	require.NoError(t, err)
	assert.Equal(t, []string{"u1", "u3"}, community.Members)

	removed := f.notificationsFor(t, "u2")
	require.Len(t, removed, 1)
	assert.Equal(t, models.NotificationRemoved, removed[0].Type)
	assert.Equal(t, "u1", removed[0].FromUser)

	// removal is reflected on the target's side too
	u2, err := f.store.GetUserByID(ctx, "u2")
	require.NoError(t, err)
	assert.NotContains(t, []string(u2.Communities), c1.ID)
	member, err := f.store.IsMember(ctx, "u2", c1.ID)
	require.NoError(t, err)
	assert.False(t, member)

	_, err = f.membership.RemoveMember(ctx, "u1", c1.ID, "u2")
	assert.ErrorIs(t, err, ErrNotMember)
}

func TestDeleteCommunity_RemovesPostsAndProjections(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.seedUser(t, "u1", "Alice")
	f.seedUser(t, "u2", "Bob")
	c1 := f.createCommunity(t, "u1", "Chess Club")
	other := f.createCommunity(t, "u1", "Go Club")
	_, err := f.membership.Join(ctx, "u2", c1.ID)
	require.NoError(t, err)
	f.createPost(t, "u1", c1.ID, "welcome")
	f.createPost(t, "u2", c1.ID, "hello")
	kept := f.createPost(t, "u1", other.ID, "unrelated")
	before := len(f.notificationsFor(t, "u2"))

	assert.ErrorIs(t, f.membership.DeleteCommunity(ctx, "u2", c1.ID), ErrForbidden)
	require.NoError(t, f.membership.DeleteCommunity(ctx, "u1", c1.ID))

	_, err = f.store.GetCommunityByID(ctx, c1.ID)
	assert.ErrorIs(t, err, ErrNotFound)
	posts, err := f.store.GetPostsByCommunityID(ctx, c1.ID)
	require.NoError(t, err)
	assert.Empty(t, posts)
	_, err = f.store.GetPostByID(ctx, kept.ID)
	assert.NoError(t, err)

	for _, id := range []string{"u1", "u2"} {
		u, err := f.store.GetUserByID(ctx, id)
		require.NoError(t, err)
		assert.NotContains(t, []string(u.Communities), c1.ID)
	}
	ids, err := f.store.ListMemberIDs(ctx, c1.ID)
	require.NoError(t, err)
	assert.Empty(t, ids)

	assert.Len(t, f.notificationsFor(t, "u2"), before, "deletion must not notify members")
}

func TestJoin_PartialFailureIsReconciled(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore()
	store.SetClock(steppingClock())
	users := &flakyUsers{Store: store}
	f := newFixtureWith(store, users, store)
	f.seedUser(t, "u1", "Alice")
	f.seedUser(t, "u2", "Bob")
	c1 := f.createCommunity(t, "u1", "Chess Club")

	users.setFailing(true)
	community, err := f.membership.Join(ctx, "u2", c1.ID)
	require.NoError(t, err, "a projection failure must not fail the join")
	assert.Contains(t, community.Members, "u2")

	u2, err := store.GetUserByID(ctx, "u2")
	require.NoError(t, err)
	assert.NotContains(t, []string(u2.Communities), c1.ID)
	dirtyUsers, dirtyCommunities := f.reconciler.Pending()
	assert.Equal(t, 1, dirtyUsers)
	assert.Equal(t, 1, dirtyCommunities)
	assert.Len(t, f.notificationsOfType(t, "u1", models.NotificationJoin), 1)

	// still failing: the sweep keeps the entities dirty
	assert.Error(t, f.reconciler.Sweep(ctx))
	dirtyUsers, _ = f.reconciler.Pending()
	assert.Equal(t, 1, dirtyUsers)

	users.setFailing(false)
	require.NoError(t, f.reconciler.Sweep(ctx))
	u2, err = store.GetUserByID(ctx, "u2")
	require.NoError(t, err)
	assert.Equal(t, []string{c1.ID}, []string(u2.Communities))
	dirtyUsers, dirtyCommunities = f.reconciler.Pending()
	assert.Zero(t, dirtyUsers)
	assert.Zero(t, dirtyCommunities)
}

func TestLeave_CommunityProjectionFailureIsReconciled(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore()
	store.SetClock(steppingClock())
	communities := &flakyCommunities{Store: store}
	f := newFixtureWith(store, store, communities)
	f.seedUser(t, "u1", "Alice")
	f.seedUser(t, "u2", "Bob")
	c1 := f.createCommunity(t, "u1", "Chess Club")
	_, err := f.membership.Join(ctx, "u2", c1.ID)
	require.NoError(t, err)

	communities.failing = true
	_, err = f.membership.Leave(ctx, "u2", c1.ID)
	require.NoError(t, err)

	stored, err := store.GetCommunityByID(ctx, c1.ID)
	require.NoError(t, err)
	assert.Contains(t, stored.Members, "u2", "projection is stale until the sweep")

	require.NoError(t, f.reconciler.Sweep(ctx))
	stored, err = store.GetCommunityByID(ctx, c1.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{"u1"}, stored.Members)
}

func TestListCommunities_FilterAndSort(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.seedUser(t, "u1", "Alice")
	f.seedUser(t, "u2", "Bob")
	chess := f.createCommunity(t, "u1", "Chess Club")
	f.createCommunity(t, "u1", "Book Nook")
	_, err := f.membership.Join(ctx, "u2", chess.ID)
	require.NoError(t, err)

	got, err := f.membership.ListCommunities(ctx, models.CommunityFilter{Query: "chess"})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, chess.ID, got[0].ID)

	got, err = f.membership.ListCommunities(ctx, models.CommunityFilter{Sort: "name"})
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "Book Nook", got[0].Name)

	got, err = f.membership.ListCommunities(ctx, models.CommunityFilter{Sort: "members"})
	require.NoError(t, err)
	assert.Equal(t, "Chess Club", got[0].Name)

	got, err = f.membership.ListCommunities(ctx, models.CommunityFilter{Category: "cooking"})
	require.NoError(t, err)
	assert.Empty(t, got)

	members, err := f.membership.Members(ctx, chess.ID)
	require.NoError(t, err)
	assert.Len(t, members, 2)
}

// orderedPosts records the membership count seen when posts are deleted.
type orderedPosts struct {
	*memory.Store
	membersAtDelete int
	fail            bool
}

func (p *orderedPosts) DeletePostsByCommunityID(ctx context.Context, communityID string) (int64, error) {
	ids, err := p.Store.ListMemberIDs(ctx, communityID)
	if err != nil {
		return 0, err
	}
	p.membersAtDelete = len(ids)
	if p.fail {
		return 0, errUnavailable
	}
	return p.Store.DeletePostsByCommunityID(ctx, communityID)
}

func TestDeleteCommunity_MembershipsGoBeforePosts(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.seedUser(t, "u1", "Alice")
	f.seedUser(t, "u2", "Bob")
	c1 := f.createCommunity(t, "u1", "Chess Club")
	_, err := f.membership.Join(ctx, "u2", c1.ID)
	require.NoError(t, err)
	f.createPost(t, "u2", c1.ID, "hello")

	posts := &orderedPosts{Store: f.store, membersAtDelete: -1, fail: true}
	coordinator := NewMembershipCoordinator(f.store, f.store, f.store, posts, f.notifier, f.reconciler)

	assert.ErrorIs(t, coordinator.DeleteCommunity(ctx, "u1", c1.ID), errUnavailable)
	assert.Equal(t, 0, posts.membersAtDelete)

	_, err = f.interaction.CreatePost(ctx, "u2", c1.ID, models.CreatePostRequest{Content: "sneaking in"})
	assert.ErrorIs(t, err, ErrForbidden, "no member may post while deletion is incomplete")

	posts.fail = false
	require.NoError(t, coordinator.DeleteCommunity(ctx, "u1", c1.ID))
	left, err := f.store.GetPostsByCommunityID(ctx, c1.ID)
	require.NoError(t, err)
	assert.Empty(t, left)
}
