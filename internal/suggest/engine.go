package suggest

import (
	"context"
	"log"
	"strings"
	"sync"
)

const (
	// maxHistory caps the remembered values per field.
	maxHistory = 20
	// defaultLimit is the suggestion count when the caller passes 0.
	defaultLimit = 5
)

// Engine serves value suggestions from persisted per-field history.
// Construct one per application and inject it — sharing an instance across
// sessions is fine (history is global by design), but there is no implicit
// package-level singleton.
type Engine struct {
	store Store

	mu     sync.Mutex
	cache  map[string][]string
	loaded map[string]bool
}

// New creates a suggestions engine over the given store.
func New(store Store) *Engine {
	return &Engine{
		store:  store,
		cache:  make(map[string][]string),
		loaded: make(map[string]bool),
	}
}

// Record remembers a value for a field. An already-known value moves to the
// front instead of duplicating; history is capped at 20 entries. Store
// failures are logged, never returned — recording is best-effort.
func (e *Engine) Record(ctx context.Context, field, value string) {
	value = strings.TrimSpace(value)
	if value == "" {
		return
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	history := e.load(ctx, field)

	// MRU: drop an existing occurrence, then push to the front.
	filtered := make([]string, 0, len(history)+1)
	filtered = append(filtered, value)
	for _, v := range history {
		if v != value {
			filtered = append(filtered, v)
		}
	}
	if len(filtered) > maxHistory {
		filtered = filtered[:maxHistory]
	}
	e.cache[field] = filtered

	if err := e.store.SaveHistory(ctx, field, filtered); err != nil {
		log.Printf("suggest: saving history for %q: %v", field, err)
	}
}

// Suggestions returns up to limit history values matching current as a
// case-insensitive substring, excluding an exact match, most recent first.
func (e *Engine) Suggestions(ctx context.Context, field, current string, limit int) []string {
	if limit <= 0 {
		limit = defaultLimit
	}

	e.mu.Lock()
	history := e.load(ctx, field)
	e.mu.Unlock()

	needle := strings.ToLower(strings.TrimSpace(current))
	var out []string
	for _, v := range history {
		if v == current {
			continue
		}
		if needle != "" && !strings.Contains(strings.ToLower(v), needle) {
			continue
		}
		out = append(out, v)
		if len(out) == limit {
			break
		}
	}
	return out
}

// load returns the cached history for a field, fetching it from the store on
// first use. A failing or corrupt store degrades to empty history.
// Caller must hold e.mu.
func (e *Engine) load(ctx context.Context, field string) []string {
	if e.loaded[field] {
		return e.cache[field]
	}
	history, err := e.store.History(ctx, field)
	if err != nil {
		log.Printf("suggest: loading history for %q: %v", field, err)
		history = nil
	}
	e.cache[field] = history
	e.loaded[field] = true
	return history
}
