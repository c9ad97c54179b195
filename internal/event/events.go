// Package event defines the domain events emitted by the form engine's
// HTTP and WebSocket surfaces. Events describe what happened to a
// document session; subscribers turn them into history entries and logs.
package event

import (
	"time"

	"github.com/google/uuid"
)

// Event types.
const (
	TypeSessionCreated    = "session.created"
	TypeSessionClosed     = "session.closed"
	TypeDraftSaved        = "draft.saved"
	TypeDraftDiscarded    = "draft.discarded"
	TypeDocumentGenerated = "document.generated"
	TypeDocumentEmailed   = "document.emailed"
)

// Event is a single domain event. Payload carries event-specific detail
// and must be JSON-serialisable.
type Event struct {
	ID         string         `json:"id"`
	Type       string         `json:"type"`
	OccurredAt time.Time      `json:"occurred_at"`
	SessionID  string         `json:"session_id"`
	Template   string         `json:"template"`
	Summary    string         `json:"summary"`
	Payload    map[string]any `json:"payload,omitempty"`
}

func newEvent(typ, sessionID, template, summary string) Event {
	return Event{
		ID:         uuid.NewString(),
		Type:       typ,
		OccurredAt: time.Now(),
		SessionID:  sessionID,
		Template:   template,
		Summary:    summary,
	}
}

// SessionCreated records that a new document session was opened.
func SessionCreated(sessionID, template, title string) Event {
	evt := newEvent(TypeSessionCreated, sessionID, template, "Sitzung gestartet: "+title)
	evt.Payload = map[string]any{"title": title}
	return evt
}

// SessionClosed records that a session was deleted by the client.
func SessionClosed(sessionID, template string) Event {
	return newEvent(TypeSessionClosed, sessionID, template, "Sitzung beendet")
}

// DraftSaved records a successful draft save with the number of filled fields.
func DraftSaved(sessionID, template string, fields int) Event {
	evt := newEvent(TypeDraftSaved, sessionID, template, "Entwurf gespeichert")
	evt.Payload = map[string]any{"fields": fields}
	return evt
}

// DocumentGenerated records a completed document generation.
func DocumentGenerated(sessionID, template, documentID string) Event {
	evt := newEvent(TypeDocumentGenerated, sessionID, template, "Dokument erstellt")
	evt.Payload = map[string]any{"document_id": documentID}
	return evt
}

// DocumentEmailed records that a generated document was sent by mail.
func DocumentEmailed(sessionID, template, recipient string) Event {
	evt := newEvent(TypeDocumentEmailed, sessionID, template, "Dokument versendet an "+recipient)
	evt.Payload = map[string]any{"recipient": recipient}
	return evt
}
