package store

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/roach88/fluentchain/internal/trace"
)

// createTestStore creates a new file-backed store in a temp dir.
func createTestStore(t *testing.T) *Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.db")
	s, err := Open(path)
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

// createTestSession writes a session row and returns its token.
func createTestSession(t *testing.T, s *Store, token string, seq int64) string {
	t.Helper()
	if err := s.WriteSession(context.Background(), Session{Token: token, Target: "shapes", CreatedSeq: seq}); err != nil {
		t.Fatalf("WriteSession() failed: %v", err)
	}
	return token
}

// createTestStep builds a step with a real step ID.
func createTestStep(t *testing.T, session string, seq int64, kind, key string) trace.Event {
	t.Helper()
	id, err := trace.StepID(session, seq, kind, key)
	if err != nil {
		t.Fatalf("StepID() failed: %v", err)
	}
	return trace.Event{
		Session: session,
		Seq:     seq,
		ID:      id,
		Kind:    kind,
		Key:     key,
	}
}
