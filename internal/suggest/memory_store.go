package suggest

import (
	"context"
	"sync"
)

// MemoryStore implements Store using an in-memory map.
// Intended for demos and testing — no SQLite required.
type MemoryStore struct {
	mu      sync.RWMutex
	history map[string][]string
}

// NewMemoryStore creates a new empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{history: make(map[string][]string)}
}

func (s *MemoryStore) History(_ context.Context, field string) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]string(nil), s.history[field]...), nil
}

func (s *MemoryStore) SaveHistory(_ context.Context, field string, values []string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.history[field] = append([]string(nil), values...)
	return nil
}
