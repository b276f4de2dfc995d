// ABOUTME: Session records and the in-memory session store
// ABOUTME: Each session has its own mutex so a transition runs atomically per session

package conversation

import (
	"sync"
)

// Session is the per-conversation draft. Recipient and Body are empty until
// their step accepts input.
type Session struct {
	ID        string
	State     State
	Recipient string
	Body      string
}

// clearDraft drops the collected fields without changing State.
func (s *Session) clearDraft() {
	s.Recipient = ""
	s.Body = ""
}

// reset returns the session to Idle. The session itself stays known.
func (s *Session) reset() {
	s.clearDraft()
	s.State = StateIdle
}

type sessionEntry struct {
	mu      sync.Mutex
	session Session
}

// Sessions is the process-wide session store. It is not persisted.
type Sessions struct {
	mu      sync.Mutex
	entries map[string]*sessionEntry
}

// NewSessions creates an empty store.
func NewSessions() *Sessions {
	return &Sessions{entries: make(map[string]*sessionEntry)}
}

// entry returns the entry for id, creating an Idle session if needed.
func (s *Sessions) entry(id string) *sessionEntry {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.entries[id]
	if !ok {
		e = &sessionEntry{session: Session{ID: id, State: StateIdle}}
		s.entries[id] = e
	}
	return e
}

// Update runs fn with exclusive access to the session for id.
// Callers for other sessions are not blocked.
func (s *Sessions) Update(id string, fn func(*Session)) {
	e := s.entry(id)
	e.mu.Lock()
	defer e.mu.Unlock()
	fn(&e.session)
}

// Get returns a copy of the session for id.
func (s *Sessions) Get(id string) (Session, bool) {
	s.mu.Lock()
	e, ok := s.entries[id]
	s.mu.Unlock()
	if !ok {
		return Session{}, false
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	return e.session, true
}

// Reset puts the session back to Idle, creating it if unknown.
func (s *Sessions) Reset(id string) {
	s.Update(id, func(sess *Session) { sess.reset() })
}

// Forget removes the session entirely.
func (s *Sessions) Forget(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.entries, id)
}

// Len returns the number of known sessions.
func (s *Sessions) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}
