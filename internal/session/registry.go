package session

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

// DefaultIdleTTL is how long an untouched session survives.
const DefaultIdleTTL = 8 * time.Hour

type entry struct {
	session  *Session
	lastSeen time.Time
}

// Registry keeps live sessions in memory, keyed by an opaque id handed to
// the browser. Nothing is persisted, so a restart logs everyone out.
// Sessions idle for longer than the TTL are forgotten; expired entries are
// swept whenever a new session starts.
type Registry struct {
	mu       sync.Mutex
	sessions map[string]*entry
	ttl      time.Duration
	now      func() time.Time
}

func NewRegistry() *Registry {
	return NewRegistryWithTTL(DefaultIdleTTL)
}

// NewRegistryWithTTL uses DefaultIdleTTL when ttl is not positive.
func NewRegistryWithTTL(ttl time.Duration) *Registry {
	if ttl <= 0 {
		ttl = DefaultIdleTTL
	}
	return &Registry{sessions: make(map[string]*entry), ttl: ttl, now: time.Now}
}

// lookup returns the live entry for id, dropping it if it has expired.
// Callers hold mu.
func (r *Registry) lookup(id string) (*entry, bool) {
	e, ok := r.sessions[id]
	if !ok {
		return nil, false
	}
	if r.now().Sub(e.lastSeen) > r.ttl {
		delete(r.sessions, id)
		return nil, false
	}
	e.lastSeen = r.now()
	return e, true
}

func (r *Registry) sweep() {
	now := r.now()
	for id, e := range r.sessions {
		if now.Sub(e.lastSeen) > r.ttl {
			delete(r.sessions, id)
		}
	}
}

// Get returns a copy of the session stored under id, or a LoggedOut session
// when the id is unknown or expired.
func (r *Registry) Get(id string) Session {
	r.mu.Lock()
	defer r.mu.Unlock()
	if e, ok := r.lookup(id); ok {
		return *e.session
	}
	return *New()
}

// Start stores an authenticated session under a fresh id.
func (r *Registry) Start(s *Session) string {
	id := uuid.NewString()
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sweep()
	r.sessions[id] = &entry{session: s, lastSeen: r.now()}
	return id
}

// Update applies fn to the stored session. A missing id behaves like a
// LoggedOut session that is discarded afterwards.
func (r *Registry) Update(id string, fn func(*Session) error) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.lookup(id)
	if !ok {
		return fn(New())
	}
	return fn(e.session)
}

// End logs the session out and forgets it.
func (r *Registry) End(id string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if e, ok := r.sessions[id]; ok {
		e.session.Logout()
		delete(r.sessions, id)
	}
}

// Len counts live sessions.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sweep()
	return len(r.sessions)
}
