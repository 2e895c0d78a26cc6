// Package bot implements the messenger chatbot: per-user dialog sessions, the
// update routing engine and the message formatting helpers.
package bot

import (
	"log/slog"
	"sync"
	"time"

	"github.com/BTreeMap/UniDesk/internal/models"
)

// DefaultSessionTTL is how long an untouched dialog session survives before the
// janitor sweep discards it.
const DefaultSessionTTL = 30 * time.Minute

// SessionStore tracks at most one active dialog session per messenger user.
type SessionStore interface {
	Get(userID int64) (models.Session, bool)
	Set(s models.Session)
	Delete(userID int64)
	EvictIdle(maxIdle time.Duration) int
}

// InMemorySessionStore is a mutex-protected in-memory SessionStore.
type InMemorySessionStore struct {
	mu       sync.RWMutex
	sessions map[int64]models.Session
}

// NewInMemorySessionStore creates an empty session store.
func NewInMemorySessionStore() *InMemorySessionStore {
	return &InMemorySessionStore{sessions: make(map[int64]models.Session)}
}

func (s *InMemorySessionStore) Get(userID int64) (models.Session, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	sess, ok := s.sessions[userID]
	return sess, ok
}

func (s *InMemorySessionStore) Set(sess models.Session) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess.Touch()
	s.sessions[sess.UserID] = sess
}

func (s *InMemorySessionStore) Delete(userID int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, userID)
}

// EvictIdle removes sessions untouched for longer than maxIdle and reports how
// many were removed. Run periodically from the scheduler.
func (s *InMemorySessionStore) EvictIdle(maxIdle time.Duration) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	cutoff := time.Now().Add(-maxIdle)
	removed := 0
	for id, sess := range s.sessions {
		if sess.UpdatedAt.Before(cutoff) {
			delete(s.sessions, id)
			removed++
		}
	}
	if removed > 0 {
		slog.Debug("SessionStore.EvictIdle: swept idle sessions", "removed", removed, "max_idle", maxIdle)
	}
	return removed
}
