// Package history keeps an audit trail of document sessions: when a
// session was opened, when drafts were saved, when documents were
// generated and mailed. Entries are derived from session events and
// stored outside the live session state, so the trail survives restarts.
package history

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/goccy/go-json"

	"github.com/mbeckert/formwerk/internal/event"
)

// Entry is one row of the audit trail.
type Entry struct {
	EventID    string         `json:"event_id"`
	Type       string         `json:"type"`
	OccurredAt time.Time      `json:"occurred_at"`
	SessionID  string         `json:"session_id"`
	Template   string         `json:"template"`
	Summary    string         `json:"summary"`
	Payload    map[string]any `json:"payload,omitempty"`
}

// Query filters and limits a history lookup. Zero values mean no filter.
type Query struct {
	SessionID string
	Template  string
	Types     []string
	Since     *time.Time
	Limit     int
}

// Store is the interface for reading and writing history entries.
type Store interface {
	Append(ctx context.Context, entries []Entry) error

	// Entries returns matching entries, newest first.
	Entries(ctx context.Context, q Query) ([]Entry, error)
}

// FromEvent converts a session event into a history entry.
func FromEvent(evt event.Event) Entry {
	return Entry{
		EventID:    evt.ID,
		Type:       evt.Type,
		OccurredAt: evt.OccurredAt,
		SessionID:  evt.SessionID,
		Template:   evt.Template,
		Summary:    evt.Summary,
		Payload:    evt.Payload,
	}
}

// SQLiteStore implements Store on a SQLite database.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore creates a new SQLiteStore.
func NewSQLiteStore(db *sql.DB) *SQLiteStore {
	return &SQLiteStore{db: db}
}

// CreateTable creates the session_history table. Run during migration.
func (s *SQLiteStore) CreateTable(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS session_history (
			event_id    TEXT PRIMARY KEY,
			event_type  TEXT NOT NULL,
			occurred_at TIMESTAMP NOT NULL,
			session_id  TEXT NOT NULL,
			template    TEXT NOT NULL,
			summary     TEXT NOT NULL,
			payload     TEXT
		);

		CREATE INDEX IF NOT EXISTS idx_history_session_time
			ON session_history (session_id, occurred_at DESC);

		CREATE INDEX IF NOT EXISTS idx_history_template_time
			ON session_history (template, occurred_at DESC);
	`)
	return err
}

// Append inserts entries, ignoring duplicates by event id.
func (s *SQLiteStore) Append(ctx context.Context, entries []Entry) error {
	if len(entries) == 0 {
		return nil
	}
	for _, e := range entries {
		payload, err := json.Marshal(e.Payload)
		if err != nil {
			return fmt.Errorf("encoding history payload: %w", err)
		}
		_, err = s.db.ExecContext(ctx, `
			INSERT INTO session_history (event_id, event_type, occurred_at, session_id, template, summary, payload)
			VALUES (?, ?, ?, ?, ?, ?, ?)
			ON CONFLICT(event_id) DO NOTHING
		`, e.EventID, e.Type, e.OccurredAt, e.SessionID, e.Template, e.Summary, string(payload))
		if err != nil {
			return fmt.Errorf("writing history entry: %w", err)
		}
	}
	return nil
}

// Entries returns matching entries, newest first.
func (s *SQLiteStore) Entries(ctx context.Context, q Query) ([]Entry, error) {
	conditions := []string{"1=1"}
	var args []any

	if q.SessionID != "" {
		conditions = append(conditions, "session_id = ?")
		args = append(args, q.SessionID)
	}
	if q.Template != "" {
		conditions = append(conditions, "template = ?")
		args = append(args, q.Template)
	}
	if len(q.Types) > 0 {
		placeholders := make([]string, len(q.Types))
		for i, t := range q.Types {
			placeholders[i] = "?"
			args = append(args, t)
		}
		conditions = append(conditions, "event_type IN ("+strings.Join(placeholders, ", ")+")")
	}
	if q.Since != nil {
		conditions = append(conditions, "occurred_at >= ?")
		args = append(args, *q.Since)
	}

	limit := q.Limit
	if limit <= 0 || limit > 500 {
		limit = 100
	}
	args = append(args, limit)

	rows, err := s.db.QueryContext(ctx, `
		SELECT event_id, event_type, occurred_at, session_id, template, summary, payload
		FROM session_history
		WHERE `+strings.Join(conditions, " AND ")+`
		ORDER BY occurred_at DESC
		LIMIT ?
	`, args...)
	if err != nil {
		return nil, fmt.Errorf("querying history: %w", err)
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var e Entry
		var payload sql.NullString
		if err := rows.Scan(&e.EventID, &e.Type, &e.OccurredAt, &e.SessionID, &e.Template, &e.Summary, &payload); err != nil {
			return nil, fmt.Errorf("scanning history entry: %w", err)
		}
		if payload.Valid && payload.String != "" && payload.String != "null" {
			if err := json.Unmarshal([]byte(payload.String), &e.Payload); err != nil {
				return nil, fmt.Errorf("decoding history payload: %w", err)
			}
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}
