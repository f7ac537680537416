package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/anonto42/niche-communities/backend/internal/repositories"
)

// Reconciler rebuilds the Community.members and User.communities
// projections from the membership relation for entities whose projection
// write failed.
type Reconciler struct {
	users       repositories.UserRepository
	communities repositories.CommunityRepository
	memberships repositories.MembershipRepository
	logger      *slog.Logger

	mu               sync.Mutex
	dirtyUsers       map[string]struct{}
	dirtyCommunities map[string]struct{}
}

func NewReconciler(users repositories.UserRepository, communities repositories.CommunityRepository, memberships repositories.MembershipRepository) *Reconciler {
	return &Reconciler{
		users:            users,
		communities:      communities,
		memberships:      memberships,
		logger:           slog.Default().With("component", "reconciler"),
		dirtyUsers:       make(map[string]struct{}),
		dirtyCommunities: make(map[string]struct{}),
	}
}

// MarkDirty queues both sides of a membership pair for the next sweep.
func (r *Reconciler) MarkDirty(userID, communityID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if userID != "" {
		r.dirtyUsers[userID] = struct{}{}
	}
	if communityID != "" {
		r.dirtyCommunities[communityID] = struct{}{}
	}
}

// Pending returns how many users and communities await a sweep.
func (r *Reconciler) Pending() (users, communities int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.dirtyUsers), len(r.dirtyCommunities)
}

// Sweep rewrites every dirty projection. Entities that fail stay dirty.
func (r *Reconciler) Sweep(ctx context.Context) error {
	r.mu.Lock()
	users, communities := r.dirtyUsers, r.dirtyCommunities
	r.dirtyUsers, r.dirtyCommunities = make(map[string]struct{}), make(map[string]struct{})
	r.mu.Unlock()

	var errs []error
	for id := range communities {
		if err := r.rebuildCommunity(ctx, id); err != nil {
			errs = append(errs, err)
			r.MarkDirty("", id)
		}
	}
	for id := range users {
		if err := r.rebuildUser(ctx, id); err != nil {
			errs = append(errs, err)
			r.MarkDirty(id, "")
		}
	}
	if n := len(users) + len(communities); n > 0 {
		r.logger.Info("projection sweep finished", "entities", n, "failed", len(errs))
	}
	return errors.Join(errs...)
}

// Run sweeps every interval until ctx is cancelled.
func (r *Reconciler) Run(ctx context.Context, interval time.Duration) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			if err := r.Sweep(ctx); err != nil {
				r.logger.Warn("projection sweep incomplete", "error", err)
			}
		}
	}
}

func (r *Reconciler) rebuildCommunity(ctx context.Context, communityID string) error {
	members, err := r.memberships.ListMemberIDs(ctx, communityID)
	if err != nil {
		return fmt.Errorf("list members of %s: %w", communityID, err)
	}
	if members == nil {
		members = []string{}
	}
	err = r.communities.SetCommunityMembers(ctx, communityID, members)
	if errors.Is(err, repositories.ErrNotFound) {
		// community was deleted meanwhile
		return nil
	}
	if err != nil {
		return fmt.Errorf("set members of %s: %w", communityID, err)
	}
	return nil
}

func (r *Reconciler) rebuildUser(ctx context.Context, userID string) error {
	ids, err := r.memberships.ListCommunityIDs(ctx, userID)
	if err != nil {
		return fmt.Errorf("list communities of %s: %w", userID, err)
	}
	if ids == nil {
		ids = []string{}
	}
	if err := r.users.SetUserCommunities(ctx, userID, ids); err != nil {
		return fmt.Errorf("set communities of %s: %w", userID, err)
	}
	return nil
}
