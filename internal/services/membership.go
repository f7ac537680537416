package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/anonto42/niche-communities/backend/internal/models"
	"github.com/anonto42/niche-communities/backend/internal/repositories"
)

// MembershipCoordinator owns the membership relation. Every change is
// written to the relation first; Community.members and User.communities
// are projections updated afterwards and repaired by the Reconciler when
// those writes fail.
type MembershipCoordinator struct {
	users       repositories.UserRepository
	communities repositories.CommunityRepository
	memberships repositories.MembershipRepository
	posts       repositories.PostRepository
	notifier    *Notifier
	reconciler  *Reconciler
	logger      *slog.Logger
}

func NewMembershipCoordinator(
	users repositories.UserRepository,
	communities repositories.CommunityRepository,
	memberships repositories.MembershipRepository,
	posts repositories.PostRepository,
	notifier *Notifier,
	reconciler *Reconciler,
) *MembershipCoordinator {
	return &MembershipCoordinator{
		users:       users,
		communities: communities,
		memberships: memberships,
		posts:       posts,
		notifier:    notifier,
		reconciler:  reconciler,
		logger:      slog.Default().With("component", "membership"),
	}
}

// CreateCommunity stores a community with its creator as the first member.
func (c *MembershipCoordinator) CreateCommunity(ctx context.Context, creatorID string, req models.CreateCommunityRequest) (community *models.Community, err error) {
	defer func() { observe("create_community", err) }()

	name := strings.TrimSpace(req.Name)
	description := strings.TrimSpace(req.Description)
	category := strings.TrimSpace(req.Category)
	if name == "" || description == "" || category == "" {
		return nil, fmt.Errorf("%w: name, description and category are required", ErrInvalidInput)
	}
	photo := strings.TrimSpace(req.PhotoURL)
	if photo == "" {
		photo = models.DefaultCommunityPhoto
	}

	community = &models.Community{
		Name:        name,
		Description: description,
		Category:    category,
		PhotoURL:    photo,
		CreatedBy:   creatorID,
		Members:     []string{creatorID},
	}
	if err := c.communities.CreateCommunity(ctx, community); err != nil {
		return nil, fmt.Errorf("create community: %w", err)
	}

	membership := &models.Membership{UserID: creatorID, CommunityID: community.ID, Role: models.RoleCreator}
	if _, err := c.memberships.AddMembership(ctx, membership); err != nil {
		// without the relation row the community has no owner record; undo it
		if derr := c.communities.DeleteCommunity(ctx, community.ID); derr != nil {
			c.logger.Error("failed to undo community creation", "community_id", community.ID, "error", derr)
		}
		return nil, fmt.Errorf("add creator membership: %w", err)
	}

	if err := c.users.AddUserCommunity(ctx, creatorID, community.ID); err != nil {
		c.projectionFailed(ctx, "create_community", creatorID, community.ID, err)
	}
	return community, nil
}

// GetCommunity returns a community by id.
func (c *MembershipCoordinator) GetCommunity(ctx context.Context, communityID string) (*models.Community, error) {
	community, err := c.communities.GetCommunityByID(ctx, communityID)
	if err != nil {
		return nil, fmt.Errorf("get community: %w", err)
	}
	return community, nil
}

// ListCommunities returns the communities matching filter.
func (c *MembershipCoordinator) ListCommunities(ctx context.Context, filter models.CommunityFilter) ([]models.Community, error) {
	communities, err := c.communities.ListCommunities(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("list communities: %w", err)
	}
	if communities == nil {
		communities = []models.Community{}
	}
	return communities, nil
}

// Members resolves the member profiles of a community from the relation.
func (c *MembershipCoordinator) Members(ctx context.Context, communityID string) ([]models.User, error) {
	if _, err := c.GetCommunity(ctx, communityID); err != nil {
		return nil, err
	}
	ids, err := c.memberships.ListMemberIDs(ctx, communityID)
	if err != nil {
		return nil, fmt.Errorf("list members: %w", err)
	}
	if len(ids) == 0 {
		return []models.User{}, nil
	}
	users, err := c.users.GetUsersByIDs(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("get members: %w", err)
	}
	return users, nil
}

// Join adds userID to the community and notifies its creator.
func (c *MembershipCoordinator) Join(ctx context.Context, userID, communityID string) (community *models.Community, err error) {
	defer func() { observe("join", err) }()

	community, err = c.GetCommunity(ctx, communityID)
	if err != nil {
		return nil, err
	}
	added, err := c.memberships.AddMembership(ctx, &models.Membership{
		UserID:      userID,
		CommunityID: communityID,
		Role:        models.RoleMember,
	})
	if err != nil {
		return nil, fmt.Errorf("add membership: %w", err)
	}
	if !added {
		return nil, ErrAlreadyMember
	}

	if err := c.communities.AddCommunityMember(ctx, communityID, userID); err != nil {
		c.projectionFailed(ctx, "join", userID, communityID, err)
	} else if !community.HasMember(userID) {
		community.Members = append(community.Members, userID)
	}
	if err := c.users.AddUserCommunity(ctx, userID, communityID); err != nil {
		c.projectionFailed(ctx, "join", userID, communityID, err)
	}

	c.notifier.Notify(ctx, &models.Notification{
		Type:          models.NotificationJoin,
		ToUser:        community.CreatedBy,
		FromUser:      userID,
		FromUserName:  c.displayName(ctx, userID),
		CommunityID:   communityID,
		CommunityName: community.Name,
	})
	return community, nil
}

// Leave removes userID from the community and notifies its creator.
func (c *MembershipCoordinator) Leave(ctx context.Context, userID, communityID string) (community *models.Community, err error) {
	defer func() { observe("leave", err) }()

	community, err = c.GetCommunity(ctx, communityID)
	if err != nil {
		return nil, err
	}
	removed, err := c.memberships.RemoveMembership(ctx, userID, communityID)
	if err != nil {
		return nil, fmt.Errorf("remove membership: %w", err)
	}
	if !removed {
		return nil, ErrNotMember
	}

	c.dropProjections(ctx, "leave", userID, community)

	c.notifier.Notify(ctx, &models.Notification{
		Type:          models.NotificationLeave,
		ToUser:        community.CreatedBy,
		FromUser:      userID,
		FromUserName:  c.displayName(ctx, userID),
		CommunityID:   communityID,
		CommunityName: community.Name,
	})
	return community, nil
}

// RemoveMember lets the creator drop targetID from the community. Both
// projections are updated, so the target no longer lists the community either.
func (c *MembershipCoordinator) RemoveMember(ctx context.Context, actorID, communityID, targetID string) (community *models.Community, err error) {
	defer func() { observe("remove_member", err) }()

	community, err = c.GetCommunity(ctx, communityID)
	if err != nil {
		return nil, err
	}
	if community.CreatedBy != actorID {
		return nil, ErrForbidden
	}
	if targetID == actorID {
		return nil, ErrCannotRemoveSelf
	}
	removed, err := c.memberships.RemoveMembership(ctx, targetID, communityID)
	if err != nil {
		return nil, fmt.Errorf("remove membership: %w", err)
	}
	if !removed {
		return nil, ErrNotMember
	}

	c.dropProjections(ctx, "remove_member", targetID, community)

	c.notifier.Notify(ctx, &models.Notification{
		Type:          models.NotificationRemoved,
		ToUser:        targetID,
		FromUser:      actorID,
		FromUserName:  c.displayName(ctx, actorID),
		CommunityID:   communityID,
		CommunityName: community.Name,
	})
	return community, nil
}

// UpdateCommunityPhoto changes the cover image; creator only.
func (c *MembershipCoordinator) UpdateCommunityPhoto(ctx context.Context, actorID, communityID, photoURL string) (community *models.Community, err error) {
	defer func() { observe("update_community_photo", err) }()

	community, err = c.GetCommunity(ctx, communityID)
	if err != nil {
		return nil, err
	}
	if community.CreatedBy != actorID {
		return nil, ErrForbidden
	}
	if err := c.communities.UpdateCommunityPhoto(ctx, communityID, photoURL); err != nil {
		return nil, fmt.Errorf("update community photo: %w", err)
	}
	community.PhotoURL = photoURL
	return community, nil
}

// DeleteCommunity removes a community with all of its posts. Membership
// rows go first so nobody can post into the community while its posts are
// being deleted. Members are not notified.
func (c *MembershipCoordinator) DeleteCommunity(ctx context.Context, actorID, communityID string) (err error) {
	defer func() { observe("delete_community", err) }()

	community, err := c.GetCommunity(ctx, communityID)
	if err != nil {
		return err
	}
	if community.CreatedBy != actorID {
		return ErrForbidden
	}

	memberIDs, err := c.memberships.ListMemberIDs(ctx, communityID)
	if err != nil {
		return fmt.Errorf("list members: %w", err)
	}
	if err := c.memberships.DeleteMembershipsByCommunity(ctx, communityID); err != nil {
		return fmt.Errorf("delete memberships: %w", err)
	}
	deleted, err := c.posts.DeletePostsByCommunityID(ctx, communityID)
	if err != nil {
		return fmt.Errorf("delete posts: %w", err)
	}

	for _, id := range union(memberIDs, community.Members) {
		if err := c.users.RemoveUserCommunity(ctx, id, communityID); err != nil {
			c.projectionFailed(ctx, "delete_community", id, "", err)
		}
	}
	if err := c.communities.DeleteCommunity(ctx, communityID); err != nil && !errors.Is(err, repositories.ErrNotFound) {
		return fmt.Errorf("delete community: %w", err)
	}
	c.logger.Info("community deleted", "community_id", communityID, "posts", deleted, "members", len(memberIDs))
	return nil
}

func (c *MembershipCoordinator) dropProjections(ctx context.Context, op, userID string, community *models.Community) {
	if err := c.communities.RemoveCommunityMember(ctx, community.ID, userID); err != nil {
		c.projectionFailed(ctx, op, userID, community.ID, err)
	} else {
		community.Members = without(community.Members, userID)
	}
	if err := c.users.RemoveUserCommunity(ctx, userID, community.ID); err != nil {
		c.projectionFailed(ctx, op, userID, community.ID, err)
	}
}

// projectionFailed records a partial failure; the call itself still succeeds.
func (c *MembershipCoordinator) projectionFailed(ctx context.Context, op, userID, communityID string, err error) {
	partialFailuresTotal.WithLabelValues(op).Inc()
	c.logger.ErrorContext(ctx, "projection write failed after membership change",
		"operation", op, "user_id", userID, "community_id", communityID, "error", err)
	c.reconciler.MarkDirty(userID, communityID)
}

func (c *MembershipCoordinator) displayName(ctx context.Context, userID string) string {
	return displayName(ctx, c.users, userID)
}

func displayName(ctx context.Context, users repositories.UserRepository, userID string) string {
	user, err := users.GetUserByID(ctx, userID)
	if err != nil {
		return "Unknown User"
	}
	return user.Name()
}

func without(ids []string, id string) []string {
	out := make([]string, 0, len(ids))
	for _, v := range ids {
		if v != id {
			out = append(out, v)
		}
	}
	return out
}

func union(a, b []string) []string {
	seen := make(map[string]struct{}, len(a)+len(b))
	var out []string
	for _, list := range [][]string{a, b} {
		for _, id := range list {
			if _, ok := seen[id]; !ok {
				seen[id] = struct{}{}
				out = append(out, id)
			}
		}
	}
	return out
}
