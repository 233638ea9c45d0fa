// Package convmem holds short-lived per-session conversation history so
// follow-up questions like "give an example" or "simplify it" resolve
// against recent turns. The store is in-process and non-durable: a
// restart loses all sessions.
package convmem

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/askmynotes/backend/internal/domain"
)

const (
	DefaultMaxTurns = 10
	DefaultTTL      = 30 * time.Minute
)

type session struct {
	subjectID  string
	history    []domain.Turn
	lastActive time.Time
}

// Store is a concurrency-safe in-memory conversation store keyed by
// session id. Construct one at startup and inject it; it is never a
// package global.
type Store struct {
	mu       sync.RWMutex
	sessions map[string]*session
	maxTurns int
	ttl      time.Duration
	now      func() time.Time
}

func New(maxTurns int, ttl time.Duration) *Store {
	if maxTurns <= 0 {
		maxTurns = DefaultMaxTurns
	}
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Store{
		sessions: make(map[string]*session),
		maxTurns: maxTurns,
		ttl:      ttl,
		now:      time.Now,
	}
}

// CreateSession generates a fresh session bound immutably to subjectID
// and returns its id. Expired sessions are garbage-collected first.
func (s *Store) CreateSession(subjectID string) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.gcLocked()
	id := uuid.NewString()
	s.sessions[id] = &session{subjectID: subjectID, lastActive: s.now()}
	return id
}

// GetHistory returns a copy of the session's turn history, oldest
// first, or an empty slice for unknown sessions. Reading refreshes the
// session's activity clock.
func (s *Store) GetHistory(sessionID string) []domain.Turn {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, ok := s.sessions[sessionID]
	if !ok {
		return nil
	}
	sess.lastActive = s.now()
	out := make([]domain.Turn, len(sess.history))
	copy(out, sess.history)
	return out
}

// AddTurn appends a user+assistant exchange, trimming the oldest
// messages to keep at most 2*maxTurns. No-op for unknown sessions.
func (s *Store) AddTurn(sessionID, userMessage, assistantMessage string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, ok := s.sessions[sessionID]
	if !ok {
		return
	}
	sess.history = append(sess.history,
		domain.Turn{Role: domain.RoleUser, Content: userMessage},
		domain.Turn{Role: domain.RoleAssistant, Content: assistantMessage},
	)
	if limit := s.maxTurns * 2; len(sess.history) > limit {
		sess.history = sess.history[len(sess.history)-limit:]
	}
	sess.lastActive = s.now()
}

// GetSubjectID returns the subject bound to the session, with false for
// unknown or expired sessions.
func (s *Store) GetSubjectID(sessionID string) (string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	sess, ok := s.sessions[sessionID]
	if !ok {
		return "", false
	}
	return sess.subjectID, true
}

// DeleteSession removes the session if present. Idempotent.
func (s *Store) DeleteSession(sessionID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, sessionID)
}

// gcLocked evicts sessions idle longer than the TTL. Callers hold the
// write lock. Invoked opportunistically on session creation rather than
// on a timer; bounded staleness of not-yet-scanned sessions is fine.
func (s *Store) gcLocked() {
	now := s.now()
	for id, sess := range s.sessions {
		if now.Sub(sess.lastActive) > s.ttl {
			delete(s.sessions, id)
		}
	}
}
