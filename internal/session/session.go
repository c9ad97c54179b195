// Package session manages form-editing session lifecycle: one engine plus
// its auto-saver per wizard session, with idle and max-age expiry.
package session

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/mbeckert/formwerk/internal/draft"
	"github.com/mbeckert/formwerk/internal/engine"
)

// Session holds the per-wizard-session state.
type Session struct {
	ID           string    `json:"id"`
	Template     string    `json:"template"`
	CreatedAt    time.Time `json:"created_at"`
	LastActiveAt time.Time `json:"last_active_at"`

	Engine *engine.Engine   `json:"-"`
	Saver  *draft.AutoSaver `json:"-"`

	mu sync.Mutex
}

// Touch updates the last activity timestamp.
func (s *Session) Touch() {
	s.mu.Lock()
	s.LastActiveAt = time.Now()
	s.mu.Unlock()
}

// IsExpired returns true if the session has exceeded the given max age.
func (s *Session) IsExpired(maxAge time.Duration) bool {
	return time.Since(s.CreatedAt) > maxAge
}

// IsIdle returns true if the session has been idle longer than the timeout.
func (s *Session) IsIdle(timeout time.Duration) bool {
	s.mu.Lock()
	last := s.LastActiveAt
	s.mu.Unlock()
	return time.Since(last) > timeout
}

// close flushes and tears down the session's auto-saver.
func (s *Session) close() {
	if s.Saver != nil {
		s.Saver.Flush(context.Background())
		s.Saver.Close()
	}
}

// Manager handles session creation, lookup, and cleanup.
type Manager struct {
	mu          sync.RWMutex
	sessions    map[string]*Session
	maxAge      time.Duration
	idleTimeout time.Duration
}

// NewManager creates a session manager with the given timeouts.
func NewManager(maxAge, idleTimeout time.Duration) *Manager {
	return &Manager{
		sessions:    make(map[string]*Session),
		maxAge:      maxAge,
		idleTimeout: idleTimeout,
	}
}

// Create registers a new session around the given engine and auto-saver.
func (m *Manager) Create(template string, eng *engine.Engine, saver *draft.AutoSaver) *Session {
	now := time.Now()
	s := &Session{
		ID:           uuid.New().String(),
		Template:     template,
		CreatedAt:    now,
		LastActiveAt: now,
		Engine:       eng,
		Saver:        saver,
	}
	m.mu.Lock()
	m.sessions[s.ID] = s
	m.mu.Unlock()
	return s
}

// Get retrieves a session by ID and refreshes its activity timestamp.
// Returns nil if not found or expired.
func (m *Manager) Get(id string) *Session {
	m.mu.RLock()
	s, ok := m.sessions[id]
	m.mu.RUnlock()
	if !ok {
		return nil
	}
	if s.IsExpired(m.maxAge) || s.IsIdle(m.idleTimeout) {
		m.Remove(id)
		return nil
	}
	s.Touch()
	return s
}

// Remove deletes a session and closes its auto-saver.
func (m *Manager) Remove(id string) {
	m.mu.Lock()
	s, ok := m.sessions[id]
	delete(m.sessions, id)
	m.mu.Unlock()
	if ok {
		s.close()
	}
}

// Cleanup removes all expired and idle sessions. Called periodically.
func (m *Manager) Cleanup() {
	m.mu.Lock()
	var stale []*Session
	for id, s := range m.sessions {
		if s.IsExpired(m.maxAge) || s.IsIdle(m.idleTimeout) {
			stale = append(stale, s)
			delete(m.sessions, id)
		}
	}
	m.mu.Unlock()
	for _, s := range stale {
		s.close()
	}
}

// CloseAll tears down every session. Called on server shutdown.
func (m *Manager) CloseAll() {
	m.mu.Lock()
	all := make([]*Session, 0, len(m.sessions))
	for id, s := range m.sessions {
		all = append(all, s)
		delete(m.sessions, id)
	}
	m.mu.Unlock()
	for _, s := range all {
		s.close()
	}
}

// Len returns the number of live sessions.
func (m *Manager) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions)
}
