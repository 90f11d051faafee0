package realtime

import (
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Session is the mutable accumulation state for one active recording.
type Session struct {
	ID         string
	StartTime  time.Time
	Chunks     []string
	Transcript string
}

// Store owns active session state. Implementations must be safe for
// concurrent use; handlers only ever mutate the entry for their own id.
type Store interface {
	Create() Session
	Get(id string) (Session, bool)
	Append(id, text string) (Session, bool)
	Remove(id string) (Session, bool)
	Len() int
	Sweep(maxAge time.Duration) int
}

type MemoryStore struct {
	mu       sync.RWMutex
	sessions map[string]*Session
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{sessions: map[string]*Session{}}
}

func (s *MemoryStore) Create() Session {
	s.mu.Lock()
	defer s.mu.Unlock()

	id := fmt.Sprintf("session-%d-%s", time.Now().UnixMilli(), uuid.NewString()[:8])
	session := &Session{
		ID:        id,
		StartTime: time.Now(),
		Chunks:    []string{},
	}
	s.sessions[id] = session

	return *session
}

func (s *MemoryStore) Get(id string) (Session, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	session, ok := s.sessions[id]
	if !ok {
		return Session{}, false
	}
	return snapshot(session), true
}

// Append adds one recognized chunk to the session's transcript and returns
// the updated state.
func (s *MemoryStore) Append(id, text string) (Session, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	session, ok := s.sessions[id]
	if !ok {
		return Session{}, false
	}

	session.Chunks = append(session.Chunks, text)
	if session.Transcript == "" {
		session.Transcript = text
	} else {
		session.Transcript += " " + text
	}

	return snapshot(session), true
}

func (s *MemoryStore) Remove(id string) (Session, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	session, ok := s.sessions[id]
	if !ok {
		return Session{}, false
	}
	delete(s.sessions, id)

	return snapshot(session), true
}

func (s *MemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sessions)
}

// Sweep evicts sessions older than maxAge. Sessions that start but never
// stop would otherwise live for the process lifetime.
func (s *MemoryStore) Sweep(maxAge time.Duration) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	cutoff := time.Now().Add(-maxAge)
	removed := 0
	for id, session := range s.sessions {
		if session.StartTime.Before(cutoff) {
			delete(s.sessions, id)
			removed++
		}
	}
	return removed
}

// StartSweeper evicts expired sessions on a fixed interval until stop is
// closed. A zero ttl disables eviction entirely.
func StartSweeper(store Store, ttl, interval time.Duration, stop <-chan struct{}) {
	if ttl <= 0 {
		return
	}

	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-ticker.C:
				store.Sweep(ttl)
			case <-stop:
				return
			}
		}
	}()
}

func snapshot(s *Session) Session {
	out := *s
	out.Chunks = append([]string(nil), s.Chunks...)
	return out
}
