package realtime

import (
	"strings"
	"testing"
	"time"
)

func TestMemoryStoreLifecycle(t *testing.T) {
	store := NewMemoryStore()

	session := store.Create()
	if session.ID == "" {
		t.Fatal("expected generated session id")
	}
	if !strings.HasPrefix(session.ID, "session-") {
		t.Errorf("unexpected id shape: %s", session.ID)
	}

	if _, ok := store.Get(session.ID); !ok {
		t.Fatal("created session not found")
	}

	updated, ok := store.Append(session.ID, "hola")
	if !ok {
		t.Fatal("append failed")
	}
	if updated.Transcript != "hola" {
		t.Errorf("transcript = %q", updated.Transcript)
	}

	updated, _ = store.Append(session.ID, "mundo")
	if updated.Transcript != "hola mundo" {
		t.Errorf("transcript = %q, want %q", updated.Transcript, "hola mundo")
	}
	if len(updated.Chunks) != 2 {
		t.Errorf("chunks = %d, want 2", len(updated.Chunks))
	}

	removed, ok := store.Remove(session.ID)
	if !ok {
		t.Fatal("remove failed")
	}
	if removed.Transcript != "hola mundo" {
		t.Errorf("removed transcript = %q", removed.Transcript)
	}

	if _, ok := store.Get(session.ID); ok {
		t.Error("session still present after remove")
	}
	if _, ok := store.Append(session.ID, "x"); ok {
		t.Error("append succeeded on removed session")
	}
	if store.Len() != 0 {
		t.Errorf("store len = %d, want 0", store.Len())
	}
}

func TestMemoryStoreUniqueIDs(t *testing.T) {
	store := NewMemoryStore()
	seen := map[string]bool{}
	for i := 0; i < 100; i++ {
		id := store.Create().ID
		if seen[id] {
			t.Fatalf("duplicate session id %s", id)
		}
		seen[id] = true
	}
}

func TestMemoryStoreSweep(t *testing.T) {
	store := NewMemoryStore()

	old := store.Create()
	store.mu.Lock()
	store.sessions[old.ID].StartTime = time.Now().Add(-2 * time.Hour)
	store.mu.Unlock()

	fresh := store.Create()

	removed := store.Sweep(time.Hour)
	if removed != 1 {
		t.Fatalf("swept %d sessions, want 1", removed)
	}
	if _, ok := store.Get(old.ID); ok {
		t.Error("expired session survived sweep")
	}
	if _, ok := store.Get(fresh.ID); !ok {
		t.Error("fresh session evicted by sweep")
	}
}
