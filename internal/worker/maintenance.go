// Package worker contains background workers that keep the server's
// stores tidy while it runs.
package worker

import (
	"context"
	"log"
	"strconv"
	"strings"
	"time"

	"github.com/mbeckert/formwerk/internal/draft"
	"github.com/mbeckert/formwerk/internal/session"
)

// historyMarker separates a storage key from the nanosecond timestamp
// of a draft history snapshot.
const historyMarker = "_draft_"

// Config configures a Maintenance worker.
type Config struct {
	Sessions *session.Manager
	Drafts   draft.Store

	// Interval between sweeps. Defaults to 5 minutes.
	Interval time.Duration

	// DraftTTL is how long draft history snapshots are kept. Primary
	// drafts are never pruned. Defaults to 30 days.
	DraftTTL time.Duration
}

// Maintenance periodically removes expired sessions and prunes draft
// history snapshots past their retention window.
type Maintenance struct {
	sessions *session.Manager
	drafts   draft.Store
	interval time.Duration
	draftTTL time.Duration
}

// NewMaintenance creates a Maintenance worker.
func NewMaintenance(cfg Config) *Maintenance {
	if cfg.Interval <= 0 {
		cfg.Interval = 5 * time.Minute
	}
	if cfg.DraftTTL <= 0 {
		cfg.DraftTTL = 30 * 24 * time.Hour
	}
	return &Maintenance{
		sessions: cfg.Sessions,
		drafts:   cfg.Drafts,
		interval: cfg.Interval,
		draftTTL: cfg.DraftTTL,
	}
}

// Run sweeps on the configured interval until the context is cancelled.
func (m *Maintenance) Run(ctx context.Context) {
	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			m.Sweep(ctx)
		case <-ctx.Done():
			return
		}
	}
}

// Sweep runs one maintenance pass.
func (m *Maintenance) Sweep(ctx context.Context) {
	if m.sessions != nil {
		m.sessions.Cleanup()
	}
	if m.drafts != nil {
		if pruned, err := m.pruneDrafts(ctx); err != nil {
			log.Printf("worker: draft pruning failed: %v", err)
		} else if pruned > 0 {
			log.Printf("worker: pruned %d expired draft snapshots", pruned)
		}
	}
}

// pruneDrafts deletes history snapshots older than the TTL. The age is
// read from the nanosecond suffix of the key, so no snapshot has to be
// loaded to decide.
func (m *Maintenance) pruneDrafts(ctx context.Context) (int, error) {
	keys, err := m.drafts.Keys(ctx, "")
	if err != nil {
		return 0, err
	}

	cutoff := time.Now().Add(-m.draftTTL)
	pruned := 0
	for _, key := range keys {
		idx := strings.LastIndex(key, historyMarker)
		if idx < 0 {
			continue
		}
		nanos, err := strconv.ParseInt(key[idx+len(historyMarker):], 10, 64)
		if err != nil {
			continue
		}
		if time.Unix(0, nanos).After(cutoff) {
			continue
		}
		if err := m.drafts.Delete(ctx, key); err != nil {
			return pruned, err
		}
		pruned++
	}
	return pruned, nil
}
