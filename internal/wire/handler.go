package wire

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	"github.com/go-chi/chi/v5"

	"github.com/mbeckert/formwerk/internal/draft"
	"github.com/mbeckert/formwerk/internal/handler"
	"github.com/mbeckert/formwerk/internal/session"
	"github.com/mbeckert/formwerk/internal/suggest"
)

// statusBuffer bounds queued auto-save status pushes per connection.
const statusBuffer = 8

// Handler manages WebSocket connections for live form editing. A connection
// attaches to an existing session created over the REST API.
type Handler struct {
	sessions *session.Manager
	suggest  *suggest.Engine
}

// NewHandler creates a WebSocket handler with all dependencies.
func NewHandler(sessions *session.Manager, sg *suggest.Engine) *Handler {
	return &Handler{
		sessions: sessions,
		suggest:  sg,
	}
}

// ServeHTTP upgrades to WebSocket and runs the message loop for the session
// named by the {id} route parameter.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	sess := h.sessions.Get(chi.URLParam(r, "id"))
	if sess == nil {
		http.Error(w, "unknown or expired session", http.StatusNotFound)
		return
	}

	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		OriginPatterns: []string{"*"},
	})
	if err != nil {
		log.Printf("wire: websocket accept: %v", err)
		return
	}
	defer conn.CloseNow()

	ctx := r.Context()

	// Push auto-save status transitions. The watcher callback must not
	// block, so it feeds a buffered channel drained by this goroutine;
	// transitions beyond the buffer are dropped (only the indicator lags).
	closed := make(chan struct{})
	defer close(closed)
	if sess.Saver != nil {
		statusCh := make(chan draft.Status, statusBuffer)
		sess.Saver.WatchStatus(func(s draft.Status) {
			select {
			case statusCh <- s:
			case <-closed:
			default:
			}
		})
		go func() {
			for {
				select {
				case s := <-statusCh:
					h.send(ctx, conn, ServerMessage{
						Type: "status",
						Data: StatusData{Status: string(s)},
					})
				case <-closed:
					return
				case <-ctx.Done():
					return
				}
			}
		}()
	}

	// Initial state
	h.send(ctx, conn, ServerMessage{
		Type: "state",
		Data: handler.NewStateView(sess),
	})

	// Message loop
	for {
		var msg ClientMessage
		err := wsjson.Read(ctx, conn, &msg)
		if err != nil {
			if websocket.CloseStatus(err) != -1 {
				log.Printf("wire: connection closed: %v", websocket.CloseStatus(err))
			}
			return
		}
		sess.Touch()

		switch msg.Type {
		case "update":
			h.handleUpdate(ctx, conn, sess, msg)
		case "touch":
			h.handleTouch(ctx, conn, sess, msg)
		case "validate":
			errs := sess.Engine.Validate()
			h.send(ctx, conn, ServerMessage{
				Type:      "errors",
				RequestID: msg.ID,
				Data:      ErrorsData{Valid: len(errs) == 0, Errors: errs},
			})
		case "suggest":
			h.handleSuggest(ctx, conn, msg)
		case "export":
			h.send(ctx, conn, ServerMessage{
				Type:      "export",
				RequestID: msg.ID,
				Data: ExportData{
					Data:      sess.Engine.Data(),
					Formatted: sess.Engine.FormattedData(),
				},
			})
		case "save":
			if sess.Saver != nil {
				if err := sess.Saver.SaveNow(ctx); err != nil {
					log.Printf("wire: save: %v", err)
				}
			}
			h.send(ctx, conn, ServerMessage{
				Type:      "state",
				RequestID: msg.ID,
				Data:      handler.NewStateView(sess),
			})
		case "ping":
			h.send(ctx, conn, ServerMessage{Type: "pong", RequestID: msg.ID})
		default:
			h.sendError(ctx, conn, msg.ID, "unknown_type", fmt.Sprintf("unknown message type: %s", msg.Type))
		}
	}
}

func (h *Handler) handleUpdate(ctx context.Context, conn *websocket.Conn, sess *session.Session, msg ClientMessage) {
	var data UpdateData
	if err := json.Unmarshal(msg.Data, &data); err != nil {
		h.sendError(ctx, conn, msg.ID, "invalid_data", "invalid update data")
		return
	}
	if data.Field == "" {
		h.sendError(ctx, conn, msg.ID, "empty_field", "empty field name")
		return
	}

	if _, err := sess.Engine.UpdateField(data.Field, data.Value); err != nil {
		h.sendError(ctx, conn, msg.ID, "unknown_field", err.Error())
		return
	}
	if data.Validate {
		sess.Engine.ValidateField(data.Field)
	}

	if h.suggest != nil {
		def := sess.Engine.Schema().Field(data.Field)
		if def != nil && def.Suggestions == "historical" {
			if s, ok := data.Value.(string); ok && s != "" {
				h.suggest.Record(ctx, data.Field, s)
			}
		}
	}

	h.send(ctx, conn, ServerMessage{
		Type:      "state",
		RequestID: msg.ID,
		Data:      handler.NewStateView(sess),
	})
}

func (h *Handler) handleTouch(ctx context.Context, conn *websocket.Conn, sess *session.Session, msg ClientMessage) {
	var data TouchData
	if err := json.Unmarshal(msg.Data, &data); err != nil {
		h.sendError(ctx, conn, msg.ID, "invalid_data", "invalid touch data")
		return
	}
	sess.Engine.Touch(data.Field)
	sess.Engine.ValidateField(data.Field)
	h.send(ctx, conn, ServerMessage{
		Type:      "state",
		RequestID: msg.ID,
		Data:      handler.NewStateView(sess),
	})
}

func (h *Handler) handleSuggest(ctx context.Context, conn *websocket.Conn, msg ClientMessage) {
	var data SuggestData
	if err := json.Unmarshal(msg.Data, &data); err != nil {
		h.sendError(ctx, conn, msg.ID, "invalid_data", "invalid suggest data")
		return
	}

	var items []string
	if h.suggest != nil {
		items = h.suggest.Suggestions(ctx, data.Field, data.Query, data.Limit)
	}
	if items == nil {
		items = []string{}
	}
	h.send(ctx, conn, ServerMessage{
		Type:      "completions",
		RequestID: msg.ID,
		Data:      CompletionsData{Field: data.Field, Items: items},
	})
}

func (h *Handler) send(ctx context.Context, conn *websocket.Conn, msg ServerMessage) {
	if err := wsjson.Write(ctx, conn, msg); err != nil {
		log.Printf("wire: write error: %v", err)
	}
}

func (h *Handler) sendError(ctx context.Context, conn *websocket.Conn, requestID, code, message string) {
	h.send(ctx, conn, ServerMessage{
		Type:      "error",
		RequestID: requestID,
		Data: ErrorData{
			Code:    code,
			Message: message,
		},
	})
}
