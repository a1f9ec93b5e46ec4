package terminal

import (
	"sync"
	"time"
)

type sessionEntry struct {
	cwd     string
	touched time.Time
}

// Sessions maps a login session id to its working directory. Entries expire
// after ttl without use, the same lifetime as the login token.
type Sessions struct {
	mu  sync.Mutex
	ttl time.Duration
	now func() time.Time
	m   map[string]sessionEntry
}

// NewSessions creates an empty store. ttl <= 0 disables expiry.
func NewSessions(ttl time.Duration) *Sessions {
	return &Sessions{
		ttl: ttl,
		now: time.Now,
		m:   make(map[string]sessionEntry),
	}
}

// Get returns the working directory of a live session and marks it used.
func (s *Sessions) Get(id string) (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.m[id]
	if !ok {
		return "", false
	}
	if s.expired(e) {
		delete(s.m, id)
		return "", false
	}
	e.touched = s.now()
	s.m[id] = e
	return e.cwd, true
}

// Set records cwd for the session and drops any expired sessions.
func (s *Sessions) Set(id, cwd string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for k, e := range s.m {
		if s.expired(e) {
			delete(s.m, k)
		}
	}
	s.m[id] = sessionEntry{cwd: cwd, touched: s.now()}
}

// Len counts stored sessions, expired ones included until the next Set.
func (s *Sessions) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.m)
}

func (s *Sessions) expired(e sessionEntry) bool {
	return s.ttl > 0 && s.now().Sub(e.touched) > s.ttl
}
