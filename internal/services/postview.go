package services

import (
	"sync"

	"github.com/anonto42/niche-communities/backend/internal/models"
)

const defaultPostViewSize = 1024

// PostView caches post documents and overlays optimistic mutations on them
// while their durable writes are in flight.
type PostView struct {
	mu      sync.Mutex
	entries map[string]*viewEntry
	limit   int
}

type viewEntry struct {
	post    *models.Post
	pending int
}

// postMutation is an optimistic change with the change that undoes it.
// apply runs first, so inverse may rely on state apply captured.
type postMutation struct {
	apply   func(p *models.Post)
	inverse func(p *models.Post)
}

// PendingMutation is a mutation applied to the view but not yet confirmed.
type PendingMutation struct {
	view    *PostView
	postID  string
	inverse func(p *models.Post)
	done    bool
}

func NewPostView(limit int) *PostView {
	if limit <= 0 {
		limit = defaultPostViewSize
	}
	return &PostView{entries: make(map[string]*viewEntry), limit: limit}
}

// Get returns the cached post, including pending optimistic changes.
func (v *PostView) Get(postID string) (*models.Post, bool) {
	v.mu.Lock()
	defer v.mu.Unlock()
	e, ok := v.entries[postID]
	if !ok {
		return nil, false
	}
	return e.post.Clone(), true
}

// Pending reports whether postID has unconfirmed mutations.
func (v *PostView) Pending(postID string) bool {
	v.mu.Lock()
	defer v.mu.Unlock()
	e, ok := v.entries[postID]
	return ok && e.pending > 0
}

// Reconcile replaces the cached copy with the authoritative document.
// A post with mutations still in flight keeps its optimistic copy.
func (v *PostView) Reconcile(post *models.Post) {
	v.mu.Lock()
	defer v.mu.Unlock()
	if e, ok := v.entries[post.ID]; ok {
		if e.pending == 0 {
			e.post = post.Clone()
		}
		return
	}
	v.evictLocked()
	v.entries[post.ID] = &viewEntry{post: post.Clone()}
}

// Forget drops a post, e.g. after it was deleted.
func (v *PostView) Forget(postID string) {
	v.mu.Lock()
	delete(v.entries, postID)
	v.mu.Unlock()
}

// Len returns the number of cached posts.
func (v *PostView) Len() int {
	v.mu.Lock()
	defer v.mu.Unlock()
	return len(v.entries)
}

// begin applies m on top of base, which seeds the cache when the post is not held yet.
func (v *PostView) begin(base *models.Post, m postMutation) *PendingMutation {
	v.mu.Lock()
	defer v.mu.Unlock()
	e, ok := v.entries[base.ID]
	if !ok {
		v.evictLocked()
		e = &viewEntry{post: base.Clone()}
		v.entries[base.ID] = e
	}
	m.apply(e.post)
	e.pending++
	return &PendingMutation{view: v, postID: base.ID, inverse: m.inverse}
}

// Commit settles the mutation with the document the store returned.
func (p *PendingMutation) Commit(post *models.Post) {
	p.settle(func(e *viewEntry) {
		if e.pending == 0 && post != nil {
			e.post = post.Clone()
		}
	})
}

// Rollback undoes the optimistic change.
func (p *PendingMutation) Rollback() {
	p.settle(func(e *viewEntry) {
		p.inverse(e.post)
	})
}

func (p *PendingMutation) settle(fn func(e *viewEntry)) {
	v := p.view
	v.mu.Lock()
	defer v.mu.Unlock()
	if p.done {
		return
	}
	p.done = true
	e, ok := v.entries[p.postID]
	if !ok {
		return
	}
	e.pending--
	fn(e)
}

// evictLocked makes room for one entry, skipping posts with pending mutations.
func (v *PostView) evictLocked() {
	if len(v.entries) < v.limit {
		return
	}
	for id, e := range v.entries {
		if e.pending == 0 {
			delete(v.entries, id)
			return
		}
	}
}
