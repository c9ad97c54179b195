// Package draft persists in-progress form data and drives the auto-save
// cycle: a local snapshot store, an optional remote save callback, and the
// idle → saving → {saved|error} → idle status machine the wizard UI renders.
package draft

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"sort"
	"strings"
	"time"

	"github.com/goccy/go-json"
)

// ErrNoDraft is returned when no snapshot exists under a key.
var ErrNoDraft = fmt.Errorf("no draft")

// Snapshot is a persisted form-data snapshot.
type Snapshot struct {
	Data      map[string]any `json:"data"`
	Timestamp time.Time      `json:"timestamp"`
}

// Store is a key-value snapshot store. Keys follow the
// "<storageKey>_draft" / "<storageKey>_draft_<timestamp>" convention managed
// by the AutoSaver.
type Store interface {
	Put(ctx context.Context, key string, snap Snapshot) error
	Get(ctx context.Context, key string) (Snapshot, error)
	Delete(ctx context.Context, key string) error

	// Keys returns all stored keys with the given prefix, sorted ascending.
	Keys(ctx context.Context, prefix string) ([]string, error)
}

// SQLiteStore implements Store on a SQLite database.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore creates a new SQLiteStore.
func NewSQLiteStore(db *sql.DB) *SQLiteStore {
	return &SQLiteStore{db: db}
}

// CreateTable creates the drafts table. Run during migration.
func (s *SQLiteStore) CreateTable(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS drafts (
			draft_key  TEXT PRIMARY KEY,
			payload    TEXT NOT NULL,
			updated_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
		)
	`)
	return err
}

func (s *SQLiteStore) Put(ctx context.Context, key string, snap Snapshot) error {
	raw, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("encoding draft: %w", err)
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO drafts (draft_key, payload, updated_at)
		VALUES (?, ?, CURRENT_TIMESTAMP)
		ON CONFLICT(draft_key) DO UPDATE SET
			payload = excluded.payload,
			updated_at = CURRENT_TIMESTAMP
	`, key, raw)
	if err != nil {
		return fmt.Errorf("saving draft: %w", err)
	}
	return nil
}

// Get loads a snapshot. A corrupt payload is logged and reported as
// ErrNoDraft — a broken draft must not block opening the form.
func (s *SQLiteStore) Get(ctx context.Context, key string) (Snapshot, error) {
	var raw []byte
	err := s.db.QueryRowContext(ctx,
		`SELECT payload FROM drafts WHERE draft_key = ?`, key,
	).Scan(&raw)
	if err == sql.ErrNoRows {
		return Snapshot{}, ErrNoDraft
	}
	if err != nil {
		return Snapshot{}, fmt.Errorf("loading draft: %w", err)
	}

	var snap Snapshot
	if err := json.Unmarshal(raw, &snap); err != nil {
		log.Printf("draft: corrupt snapshot under %q, ignoring: %v", key, err)
		return Snapshot{}, ErrNoDraft
	}
	return snap, nil
}

func (s *SQLiteStore) Delete(ctx context.Context, key string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM drafts WHERE draft_key = ?`, key)
	return err
}

func (s *SQLiteStore) Keys(ctx context.Context, prefix string) ([]string, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT draft_key FROM drafts WHERE draft_key LIKE ? ESCAPE '\' ORDER BY draft_key ASC`,
		escapeLike(prefix)+"%",
	)
	if err != nil {
		return nil, fmt.Errorf("listing drafts: %w", err)
	}
	defer rows.Close()

	var keys []string
	for rows.Next() {
		var k string
		if err := rows.Scan(&k); err != nil {
			return nil, fmt.Errorf("scanning draft key: %w", err)
		}
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys, rows.Err()
}

func escapeLike(s string) string {
	s = strings.ReplaceAll(s, "%", `\%`)
	return strings.ReplaceAll(s, "_", `\_`)
}
