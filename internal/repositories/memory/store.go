// Package memory is an in-process implementation of every repository
// interface, used for local development and tests.
package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/anonto42/niche-communities/backend/internal/models"
	"github.com/anonto42/niche-communities/backend/internal/repositories"
	"github.com/google/uuid"
)

var (
	_ repositories.UserRepository             = (*Store)(nil)
	_ repositories.MembershipRepository       = (*Store)(nil)
	_ repositories.CommunityRepository        = (*Store)(nil)
	_ repositories.PostRepository             = (*Store)(nil)
	_ repositories.NotificationRepository     = (*Store)(nil)
	_ repositories.PushSubscriptionRepository = (*Store)(nil)
)

type Store struct {
	mu            sync.RWMutex
	users         map[string]*models.User
	memberships   []models.Membership
	communities   map[string]*models.Community
	posts         map[string]*models.Post
	notifications map[string]*models.Notification
	pushSubs      map[string]*models.PushSubscription
	watchers      map[string]map[chan struct{}]struct{}
	seq           uint
	now           func() time.Time
}

func NewStore() *Store {
	return &Store{
		users:         make(map[string]*models.User),
		communities:   make(map[string]*models.Community),
		posts:         make(map[string]*models.Post),
		notifications: make(map[string]*models.Notification),
		pushSubs:      make(map[string]*models.PushSubscription),
		watchers:      make(map[string]map[chan struct{}]struct{}),
		now:           time.Now,
	}
}

// SetClock overrides the time source; successive records must get distinct
// timestamps for ordering to be deterministic.
func (s *Store) SetClock(now func() time.Time) {
	s.mu.Lock()
	s.now = now
	s.mu.Unlock()
}

func notFound(kind, id string) error {
	return fmt.Errorf("%s %s: %w", kind, id, repositories.ErrNotFound)
}

// --- users ---

func (s *Store) CreateUser(_ context.Context, user *models.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.users[user.ID]; ok {
		return fmt.Errorf("user %s already exists", user.ID)
	}
	if user.CreatedAt.IsZero() {
		user.CreatedAt = s.now()
	}
	user.UpdatedAt = user.CreatedAt
	cp := *user
	cp.Communities = append([]string{}, user.Communities...)
	s.users[user.ID] = &cp
	return nil
}

func (s *Store) GetUserByID(_ context.Context, id string) (*models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	u, ok := s.users[id]
	if !ok {
		return nil, notFound("user", id)
	}
	cp := *u
	cp.Communities = append([]string{}, u.Communities...)
	return &cp, nil
}

func (s *Store) GetUsersByIDs(ctx context.Context, ids []string) ([]models.User, error) {
	var users []models.User
	for _, id := range ids {
		u, err := s.GetUserByID(ctx, id)
		if err != nil {
			continue
		}
		users = append(users, *u)
	}
	return users, nil
}

func (s *Store) UpdateUser(_ context.Context, user *models.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[user.ID]
	if !ok {
		return notFound("user", user.ID)
	}
	u.DisplayName = user.DisplayName
	u.PhotoURL = user.PhotoURL
	u.Bio = user.Bio
	u.Location = user.Location
	u.Website = user.Website
	u.UpdatedAt = s.now()
	return nil
}

func (s *Store) AddUserCommunity(_ context.Context, userID, communityID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[userID]
	if !ok {
		return notFound("user", userID)
	}
	if !u.BelongsTo(communityID) {
		u.Communities = append(u.Communities, communityID)
	}
	return nil
}

func (s *Store) RemoveUserCommunity(_ context.Context, userID, communityID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if u, ok := s.users[userID]; ok {
		u.Communities = without(u.Communities, communityID)
	}
	return nil
}

func (s *Store) SetUserCommunities(_ context.Context, userID string, communityIDs []string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if u, ok := s.users[userID]; ok {
		u.Communities = append([]string{}, communityIDs...)
	}
	return nil
}

// --- memberships ---

func (s *Store) AddMembership(_ context.Context, m *models.Membership) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, existing := range s.memberships {
		if existing.UserID == m.UserID && existing.CommunityID == m.CommunityID {
			return false, nil
		}
	}
	s.seq++
	m.ID = s.seq
	if m.CreatedAt.IsZero() {
		m.CreatedAt = s.now()
	}
	s.memberships = append(s.memberships, *m)
	return true, nil
}

func (s *Store) RemoveMembership(_ context.Context, userID, communityID string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, m := range s.memberships {
		if m.UserID == userID && m.CommunityID == communityID {
			s.memberships = append(s.memberships[:i], s.memberships[i+1:]...)
			return true, nil
		}
	}
	return false, nil
}

func (s *Store) IsMember(_ context.Context, userID, communityID string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, m := range s.memberships {
		if m.UserID == userID && m.CommunityID == communityID {
			return true, nil
		}
	}
	return false, nil
}

func (s *Store) ListMemberIDs(_ context.Context, communityID string) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var ids []string
	for _, m := range s.memberships {
		if m.CommunityID == communityID {
			ids = append(ids, m.UserID)
		}
	}
	return ids, nil
}

func (s *Store) ListCommunityIDs(_ context.Context, userID string) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var ids []string
	for _, m := range s.memberships {
		if m.UserID == userID {
			ids = append(ids, m.CommunityID)
		}
	}
	return ids, nil
}

func (s *Store) DeleteMembershipsByCommunity(_ context.Context, communityID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	kept := s.memberships[:0]
	for _, m := range s.memberships {
		if m.CommunityID != communityID {
			kept = append(kept, m)
		}
	}
	s.memberships = kept
	return nil
}

// --- communities ---

func (s *Store) CreateCommunity(_ context.Context, c *models.Community) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	if c.CreatedAt.IsZero() {
		c.CreatedAt = s.now()
	}
	if c.Members == nil {
		c.Members = []string{}
	}
	s.communities[c.ID] = c.Clone()
	return nil
}

func (s *Store) GetCommunityByID(_ context.Context, id string) (*models.Community, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, ok := s.communities[id]
	if !ok {
		return nil, notFound("community", id)
	}
	return c.Clone(), nil
}

func (s *Store) ListCommunities(_ context.Context, filter models.CommunityFilter) ([]models.Community, error) {
	s.mu.RLock()
	var out []models.Community
	for _, c := range s.communities {
		if filter.Matches(c) {
			out = append(out, *c.Clone())
		}
	}
	s.mu.RUnlock()
	models.SortCommunities(out, filter.Sort)
	return out, nil
}

func (s *Store) AddCommunityMember(_ context.Context, id, userID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.communities[id]
	if !ok {
		return notFound("community", id)
	}
	if !c.HasMember(userID) {
		c.Members = append(c.Members, userID)
	}
	return nil
}

func (s *Store) RemoveCommunityMember(_ context.Context, id, userID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.communities[id]
	if !ok {
		return notFound("community", id)
	}
	c.Members = without(c.Members, userID)
	return nil
}

func (s *Store) SetCommunityMembers(_ context.Context, id string, members []string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.communities[id]
	if !ok {
		return notFound("community", id)
	}
	c.Members = append([]string{}, members...)
	return nil
}

func (s *Store) UpdateCommunityPhoto(_ context.Context, id, photoURL string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.communities[id]
	if !ok {
		return notFound("community", id)
	}
	c.PhotoURL = photoURL
	return nil
}

func (s *Store) DeleteCommunity(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.communities[id]; !ok {
		return notFound("community", id)
	}
	delete(s.communities, id)
	return nil
}

// --- posts ---

func (s *Store) CreatePost(_ context.Context, p *models.Post) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	p.CreatedAt = s.now()
	if p.Reactions == nil {
		p.Reactions = map[string][]string{}
	}
	if p.Comments == nil {
		p.Comments = []models.Comment{}
	}
	s.posts[p.ID] = p.Clone()
	return nil
}

func (s *Store) GetPostByID(_ context.Context, id string) (*models.Post, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.posts[id]
	if !ok {
		return nil, notFound("post", id)
	}
	return p.Clone(), nil
}

func (s *Store) GetPostsByCommunityID(_ context.Context, communityID string) ([]models.Post, error) {
	s.mu.RLock()
	var out []models.Post
	for _, p := range s.posts {
		if p.CommunityID == communityID {
			out = append(out, *p.Clone())
		}
	}
	s.mu.RUnlock()
	sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (s *Store) DeletePost(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.posts[id]; !ok {
		return notFound("post", id)
	}
	delete(s.posts, id)
	return nil
}

func (s *Store) DeletePostsByCommunityID(_ context.Context, communityID string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var n int64
	for id, p := range s.posts {
		if p.CommunityID == communityID {
			delete(s.posts, id)
			n++
		}
	}
	return n, nil
}

// mutatePost applies fn under the write lock; fn reports whether its target exists.
func (s *Store) mutatePost(postID string, fn func(p *models.Post) bool) (*models.Post, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.posts[postID]
	if !ok || !fn(p) {
		return nil, notFound("post", postID)
	}
	return p.Clone(), nil
}

func (s *Store) AddReaction(_ context.Context, postID, kind, userID string) (*models.Post, bool, error) {
	added := false
	post, err := s.mutatePost(postID, func(p *models.Post) bool {
		if !p.HasReacted(userID, kind) {
			added = p.ToggleReaction(userID, kind)
		}
		return true
	})
	return post, added, err
}

func (s *Store) RemoveReaction(_ context.Context, postID, kind, userID string) (*models.Post, error) {
	return s.mutatePost(postID, func(p *models.Post) bool {
		if p.HasReacted(userID, kind) {
			p.ToggleReaction(userID, kind)
		}
		return true
	})
}

func (s *Store) PrependComment(_ context.Context, postID string, c models.Comment) (*models.Post, error) {
	return s.mutatePost(postID, func(p *models.Post) bool {
		p.InsertComment(0, c)
		return true
	})
}

func (s *Store) AppendReply(_ context.Context, postID, commentID string, r models.Reply) (*models.Post, error) {
	return s.mutatePost(postID, func(p *models.Post) bool {
		return p.AppendReply(commentID, r)
	})
}

func (s *Store) RemoveComment(_ context.Context, postID, commentID string) (*models.Post, error) {
	return s.mutatePost(postID, func(p *models.Post) bool {
		_, _, ok := p.RemoveComment(commentID)
		return ok
	})
}

func (s *Store) RemoveReply(_ context.Context, postID, commentID, replyID string) (*models.Post, error) {
	return s.mutatePost(postID, func(p *models.Post) bool {
		if p.FindComment(commentID) < 0 {
			return false
		}
		p.RemoveReply(commentID, replyID)
		return true
	})
}

// --- notifications ---

func (s *Store) CreateNotification(_ context.Context, n *models.Notification) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if n.ID == "" {
		n.ID = uuid.NewString()
	}
	if n.CreatedAt.IsZero() {
		n.CreatedAt = s.now()
	}
	cp := *n
	s.notifications[n.ID] = &cp
	s.wakeLocked(n.ToUser)
	return nil
}

func (s *Store) GetNotificationsByRecipient(_ context.Context, recipientID string) ([]models.Notification, error) {
	s.mu.RLock()
	var out []models.Notification
	for _, n := range s.notifications {
		if n.ToUser == recipientID {
			out = append(out, *n)
		}
	}
	s.mu.RUnlock()
	sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (s *Store) MarkAsRead(_ context.Context, recipientID, notificationID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	n, ok := s.notifications[notificationID]
	if !ok || n.ToUser != recipientID || n.Read {
		return nil
	}
	n.Read = true
	s.wakeLocked(recipientID)
	return nil
}

func (s *Store) MarkManyAsRead(_ context.Context, recipientID string, ids []string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	changed := false
	for _, id := range ids {
		if n, ok := s.notifications[id]; ok && n.ToUser == recipientID && !n.Read {
			n.Read = true
			changed = true
		}
	}
	if changed {
		s.wakeLocked(recipientID)
	}
	return nil
}

func (s *Store) Watch(ctx context.Context, recipientID string) (<-chan struct{}, error) {
	ch := make(chan struct{}, 1)
	s.mu.Lock()
	set, ok := s.watchers[recipientID]
	if !ok {
		set = make(map[chan struct{}]struct{})
		s.watchers[recipientID] = set
	}
	set[ch] = struct{}{}
	s.mu.Unlock()

	go func() {
		<-ctx.Done()
		s.mu.Lock()
		delete(s.watchers[recipientID], ch)
		close(ch)
		s.mu.Unlock()
	}()
	return ch, nil
}

// WatcherCount reports how many live watchers a recipient has.
func (s *Store) WatcherCount(recipientID string) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.watchers[recipientID])
}

func (s *Store) wakeLocked(recipientID string) {
	for ch := range s.watchers[recipientID] {
		select {
		case ch <- struct{}{}:
		default:
		}
	}
}

// --- push subscriptions ---

func (s *Store) SavePushSubscription(_ context.Context, sub *models.PushSubscription) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if sub.CreatedAt.IsZero() {
		sub.CreatedAt = s.now()
	}
	cp := *sub
	s.pushSubs[sub.Endpoint] = &cp
	return nil
}

func (s *Store) GetPushSubscriptions(_ context.Context, userID string) ([]models.PushSubscription, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []models.PushSubscription
	for _, sub := range s.pushSubs {
		if sub.UserID == userID {
			out = append(out, *sub)
		}
	}
	return out, nil
}

func (s *Store) DeletePushSubscription(_ context.Context, endpoint string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.pushSubs, endpoint)
	return nil
}

func without(ids []string, id string) []string {
	out := ids[:0:0]
	for _, v := range ids {
		if v != id {
			out = append(out, v)
		}
	}
	return out
}
