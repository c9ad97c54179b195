// Package suggest remembers previously entered values per field and offers
// them back as autocomplete suggestions, most-recently-used first.
package suggest

import (
	"context"
	"database/sql"
	"fmt"
	"log"

	"github.com/goccy/go-json"
)

// Store persists per-field value history across sessions.
type Store interface {
	// History returns the remembered values for a field, most recent first.
	History(ctx context.Context, field string) ([]string, error)

	// SaveHistory replaces the remembered values for a field.
	SaveHistory(ctx context.Context, field string, values []string) error
}

// SQLiteStore implements Store on a SQLite database. History lists are kept
// as one JSON document per field.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore creates a new SQLiteStore.
func NewSQLiteStore(db *sql.DB) *SQLiteStore {
	return &SQLiteStore{db: db}
}

// CreateTable creates the suggestion_history table. Run during migration.
func (s *SQLiteStore) CreateTable(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS suggestion_history (
			field_key  TEXT PRIMARY KEY,
			history    TEXT NOT NULL,
			updated_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
		)
	`)
	return err
}

// History loads a field's value history. A missing row yields an empty
// history; a corrupt JSON document is logged and treated as empty rather
// than surfacing an error — suggestions must never break form entry.
func (s *SQLiteStore) History(ctx context.Context, field string) ([]string, error) {
	var raw []byte
	err := s.db.QueryRowContext(ctx,
		`SELECT history FROM suggestion_history WHERE field_key = ?`, field,
	).Scan(&raw)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("loading suggestion history: %w", err)
	}

	var values []string
	if err := json.Unmarshal(raw, &values); err != nil {
		log.Printf("suggest: corrupt history for field %q, resetting: %v", field, err)
		return nil, nil
	}
	return values, nil
}

// SaveHistory upserts a field's value history.
func (s *SQLiteStore) SaveHistory(ctx context.Context, field string, values []string) error {
	raw, err := json.Marshal(values)
	if err != nil {
		return fmt.Errorf("encoding suggestion history: %w", err)
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO suggestion_history (field_key, history, updated_at)
		VALUES (?, ?, CURRENT_TIMESTAMP)
		ON CONFLICT(field_key) DO UPDATE SET
			history = excluded.history,
			updated_at = CURRENT_TIMESTAMP
	`, field, raw)
	if err != nil {
		return fmt.Errorf("saving suggestion history: %w", err)
	}
	return nil
}
