package session

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Manager is a thread-safe registry of live sessions with TTL eviction.
// Each session is created on demand and owns its state exclusively, so
// concurrent users never contend on anything beyond this map.
type Manager struct {
	mu       sync.Mutex
	sessions map[uuid.UUID]*Session
	ttl      time.Duration
}

func NewManager(ttl time.Duration) *Manager {
	return &Manager{
		sessions: make(map[uuid.UUID]*Session),
		ttl:      ttl,
	}
}

// Create registers a fresh session and returns it.
func (m *Manager) Create() *Session {
	sess := New()
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sessions[sess.ID] = sess
	return sess
}

// Get looks up a session by id.
func (m *Manager) Get(id uuid.UUID) (*Session, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	sess, ok := m.sessions[id]
	return sess, ok
}

// Delete tears a session down.
func (m *Manager) Delete(id uuid.UUID) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.sessions, id)
}

// Len reports how many sessions are live.
func (m *Manager) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sessions)
}

// Cleanup evicts sessions idle longer than the TTL.
func (m *Manager) Cleanup() {
	m.mu.Lock()
	defer m.mu.Unlock()
	cutoff := time.Now().Add(-m.ttl)
	for id, sess := range m.sessions {
		if sess.Touched().Before(cutoff) {
			delete(m.sessions, id)
		}
	}
}

// Sweep runs Cleanup on a ticker until the context is cancelled.
func (m *Manager) Sweep(ctx context.Context, every time.Duration) {
	ticker := time.NewTicker(every)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			m.Cleanup()
		}
	}
}
