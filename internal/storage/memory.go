package storage

import (
	"context"
	"sync"
	"time"

	"github.com/scalekit-inc/org-switcher-demo/internal/session"
)

// Ensure MemoryStore implements the store interface
var _ SessionStore = (*MemoryStore)(nil)

// MemoryStore keeps sessions in a mutex-guarded map. Sessions are copied
// on the way in and out so callers never share mutable state with the
// store.
type MemoryStore struct {
	mu       sync.RWMutex
	sessions map[string]*session.Session
}

// NewMemoryStore creates a new in-memory session store
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		sessions: make(map[string]*session.Session),
	}
}

func copySession(s *session.Session) *session.Session {
	if s == nil {
		return nil
	}
	out := *s
	if s.User != nil {
		u := *s.User
		out.User = &u
	}
	if s.Tokens != nil {
		t := *s.Tokens
		out.Tokens = &t
	}
	if s.PendingState != nil {
		ps := *s.PendingState
		out.PendingState = &ps
	}
	return &out
}

// Get returns the session by id, treating expired sessions as absent
func (m *MemoryStore) Get(_ context.Context, id string) (*session.Session, error) {
	m.mu.RLock()
	s, ok := m.sessions[id]
	m.mu.RUnlock()

	if !ok {
		return nil, ErrSessionNotFound
	}
	if s.Expired() {
		m.mu.Lock()
		delete(m.sessions, id)
		m.mu.Unlock()
		return nil, ErrSessionNotFound
	}
	return copySession(s), nil
}

// Put writes the full session
func (m *MemoryStore) Put(_ context.Context, s *session.Session) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.sessions[s.ID] = copySession(s)
	return nil
}

// Delete removes the session; absent sessions are not an error
func (m *MemoryStore) Delete(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	delete(m.sessions, id)
	return nil
}

// SetPendingState writes the single-use OAuth state onto the session
func (m *MemoryStore) SetPendingState(_ context.Context, id string, ps *session.PendingState) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	s, ok := m.sessions[id]
	if !ok || s.Expired() {
		return ErrSessionNotFound
	}
	copied := *ps
	s.PendingState = &copied
	return nil
}

// ConsumePendingState atomically compares and clears the pending state.
// The whole compare-and-clear runs under the write lock so a duplicate
// callback observes the state already gone.
func (m *MemoryStore) ConsumePendingState(_ context.Context, id, state string) (*session.PendingState, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	s, ok := m.sessions[id]
	if !ok || s.Expired() {
		return nil, ErrSessionNotFound
	}
	if s.PendingState == nil {
		return nil, ErrNoPendingState
	}
	if s.PendingState.State != state {
		return nil, ErrStateMismatch
	}

	consumed := *s.PendingState
	s.PendingState = nil
	return &consumed, nil
}

// UpdateTokens overwrites the session's token material
func (m *MemoryStore) UpdateTokens(_ context.Context, id string, tokens *session.TokenSet) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	s, ok := m.sessions[id]
	if !ok || s.Expired() {
		return ErrSessionNotFound
	}
	copied := *tokens
	s.Tokens = &copied
	return nil
}

// PurgeExpired removes sessions past their TTL
func (m *MemoryStore) PurgeExpired(_ context.Context) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := time.Now()
	purged := 0
	for id, s := range m.sessions {
		if !s.ExpiresAt.IsZero() && now.After(s.ExpiresAt) {
			delete(m.sessions, id)
			purged++
		}
	}
	return purged, nil
}
