package history

import (
	"context"
	"sort"
	"sync"
)

// MemoryStore implements Store in memory. Intended for tests and demos.
type MemoryStore struct {
	mu      sync.RWMutex
	entries []Entry
	seen    map[string]bool
}

// NewMemoryStore creates a new empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{seen: make(map[string]bool)}
}

func (s *MemoryStore) Append(_ context.Context, entries []Entry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, e := range entries {
		if s.seen[e.EventID] {
			continue
		}
		s.seen[e.EventID] = true
		s.entries = append(s.entries, e)
	}
	return nil
}

func (s *MemoryStore) Entries(_ context.Context, q Query) ([]Entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var matched []Entry
	for _, e := range s.entries {
		if q.SessionID != "" && e.SessionID != q.SessionID {
			continue
		}
		if q.Template != "" && e.Template != q.Template {
			continue
		}
		if len(q.Types) > 0 && !containsType(q.Types, e.Type) {
			continue
		}
		if q.Since != nil && e.OccurredAt.Before(*q.Since) {
			continue
		}
		matched = append(matched, e)
	}

	sort.Slice(matched, func(i, j int) bool {
		return matched[i].OccurredAt.After(matched[j].OccurredAt)
	})

	limit := q.Limit
	if limit <= 0 || limit > 500 {
		limit = 100
	}
	if len(matched) > limit {
		matched = matched[:limit]
	}
	return matched, nil
}

func containsType(types []string, t string) bool {
	for _, v := range types {
		if v == t {
			return true
		}
	}
	return false
}
