package auth

import (
	"sync"
	"time"
)

// Sessions is the process-wide view of who is signed in. Components that
// hold per-user resources, like live notification feeds, subscribe to a
// user's auth state and release them when the user signs out.
type Sessions struct {
	mu        sync.Mutex
	signedOut map[string]time.Time
	revoked   map[string]struct{}
	listeners map[string]map[uint64]func(*Identity)
	nextID    uint64
	closed    bool
}

func NewSessions() *Sessions {
	return &Sessions{
		signedOut: make(map[string]time.Time),
		revoked:   make(map[string]struct{}),
		listeners: make(map[string]map[uint64]func(*Identity)),
	}
}

// OnAuthStateChange calls fn with the identity whenever uid signs in and
// with nil when uid signs out. The returned func unregisters fn.
func (s *Sessions) OnAuthStateChange(uid string, fn func(*Identity)) (cancel func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		go fn(nil)
		return func() {}
	}
	s.nextID++
	id := s.nextID
	set, ok := s.listeners[uid]
	if !ok {
		set = make(map[uint64]func(*Identity))
		s.listeners[uid] = set
	}
	set[id] = fn

	var once sync.Once
	return func() {
		once.Do(func() {
			s.mu.Lock()
			defer s.mu.Unlock()
			delete(s.listeners[uid], id)
			if len(s.listeners[uid]) == 0 {
				delete(s.listeners, uid)
			}
		})
	}
}

// SignIn announces a new session for identity.
func (s *Sessions) SignIn(identity *Identity) {
	s.broadcast(identity.UID, identity)
}

// SignOut ends every session of uid issued up to now, revokes sessionID
// and tells listeners.
func (s *Sessions) SignOut(uid, sessionID string) {
	s.mu.Lock()
	s.signedOut[uid] = time.Now()
	if sessionID != "" {
		s.revoked[sessionID] = struct{}{}
	}
	s.mu.Unlock()
	s.broadcast(uid, nil)
}

// Valid reports whether a session of uid issued at issuedAt is still live.
// Token timestamps have second precision, so a sign-out ends every token
// issued in an earlier second.
func (s *Sessions) Valid(uid, sessionID string, issuedAt time.Time) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.revoked[sessionID]; ok {
		return false
	}
	at, ok := s.signedOut[uid]
	return !ok || !issuedAt.Before(at.Truncate(time.Second))
}

// Close signs every listener out; used at shutdown.
func (s *Sessions) Close() {
	s.mu.Lock()
	s.closed = true
	listeners := s.listeners
	s.listeners = make(map[string]map[uint64]func(*Identity))
	s.mu.Unlock()

	for _, set := range listeners {
		for _, fn := range set {
			fn(nil)
		}
	}
}

func (s *Sessions) broadcast(uid string, identity *Identity) {
	s.mu.Lock()
	fns := make([]func(*Identity), 0, len(s.listeners[uid]))
	for _, fn := range s.listeners[uid] {
		fns = append(fns, fn)
	}
	s.mu.Unlock()

	for _, fn := range fns {
		fn(identity)
	}
}
