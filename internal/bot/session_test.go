package bot

import (
	"testing"
	"time"

	"github.com/BTreeMap/UniDesk/internal/models"
)

func TestSessionStoreLifecycle(t *testing.T) {
	s := NewInMemorySessionStore()

	if _, ok := s.Get(1); ok {
		t.Fatal("empty store returned a session")
	}

	s.Set(models.Session{UserID: 1, Mode: models.SessionModeStatus, Step: models.StepAskID})
	sess, ok := s.Get(1)
	if !ok {
		t.Fatal("session not found after Set")
	}
	if sess.Mode != models.SessionModeStatus || sess.Step != models.StepAskID {
		t.Errorf("session = %+v, want status/askId", sess)
	}
	if sess.UpdatedAt.IsZero() {
		t.Error("Set did not touch the session timestamp")
	}

	// Starting a new flow overwrites the stale session.
	s.Set(models.Session{UserID: 1, Mode: models.SessionModeProfile, Step: models.StepName})
	sess, _ = s.Get(1)
	if sess.Mode != models.SessionModeProfile {
		t.Errorf("mode = %v, want profile", sess.Mode)
	}

	s.Delete(1)
	if _, ok := s.Get(1); ok {
		t.Fatal("session survived Delete")
	}
}

func TestSessionStoreEvictIdle(t *testing.T) {
	s := NewInMemorySessionStore()
	s.Set(models.Session{UserID: 1, Mode: models.SessionModeStatus, Step: models.StepAskID})
	s.Set(models.Session{UserID: 2, Mode: models.SessionModeProfile, Step: models.StepName})

	// Backdate one session past the cutoff.
	s.mu.Lock()
	stale := s.sessions[1]
	stale.UpdatedAt = time.Now().Add(-time.Hour)
	s.sessions[1] = stale
	s.mu.Unlock()

	if removed := s.EvictIdle(30 * time.Minute); removed != 1 {
		t.Fatalf("EvictIdle removed %d sessions, want 1", removed)
	}
	if _, ok := s.Get(1); ok {
		t.Error("stale session survived the sweep")
	}
	if _, ok := s.Get(2); !ok {
		t.Error("fresh session was swept")
	}
}
