// Package wire defines the WebSocket protocol for live form editing.
package wire

import (
	"encoding/json"
)

// ── Client → Server messages ────────────────────────────────────────────────

// ClientMessage is the envelope for all client-to-server WebSocket messages.
type ClientMessage struct {
	Type string          `json:"type"` // "update", "touch", "validate", "suggest", "export", "save", "ping"
	ID   string          `json:"id"`   // Client-assigned request ID
	Data json.RawMessage `json:"data,omitempty"`
}

// UpdateData is the payload for "update" messages.
type UpdateData struct {
	Field    string `json:"field"`
	Value    any    `json:"value"`
	Validate bool   `json:"validate,omitempty"`
}

// TouchData is the payload for "touch" messages.
type TouchData struct {
	Field string `json:"field"`
}

// SuggestData is the payload for "suggest" messages.
type SuggestData struct {
	Field string `json:"field"`
	Query string `json:"query"`
	Limit int    `json:"limit,omitempty"`
}

// ── Server → Client messages ────────────────────────────────────────────────

// ServerMessage is the envelope for all server-to-client WebSocket messages.
type ServerMessage struct {
	Type      string `json:"type"`                 // "state", "errors", "completions", "export", "status", "pong", "error"
	RequestID string `json:"request_id,omitempty"` // Echoes client ID
	Data      any    `json:"data,omitempty"`
}

// ErrorsData carries a validation outcome.
type ErrorsData struct {
	Valid  bool                `json:"valid"`
	Errors map[string][]string `json:"errors"`
}

// CompletionsData carries field value suggestions.
type CompletionsData struct {
	Field string   `json:"field"`
	Items []string `json:"items"`
}

// ExportData carries both export shapes.
type ExportData struct {
	Data      map[string]any `json:"data"`
	Formatted map[string]any `json:"formatted"`
}

// StatusData carries an auto-save indicator transition.
type StatusData struct {
	Status string `json:"status"` // "idle", "saving", "saved", "error"
}

// ErrorData carries an error message.
type ErrorData struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}
