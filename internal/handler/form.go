// Package handler implements the HTTP API: session lifecycle, field updates,
// validation, suggestions, export, and document generation.
package handler

import (
	"context"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/mbeckert/formwerk/internal/config"
	"github.com/mbeckert/formwerk/internal/draft"
	"github.com/mbeckert/formwerk/internal/engine"
	"github.com/mbeckert/formwerk/internal/event"
	"github.com/mbeckert/formwerk/internal/eventbus"
	"github.com/mbeckert/formwerk/internal/format"
	"github.com/mbeckert/formwerk/internal/history"
	"github.com/mbeckert/formwerk/internal/jurisdiction"
	"github.com/mbeckert/formwerk/internal/relation"
	"github.com/mbeckert/formwerk/internal/remote"
	"github.com/mbeckert/formwerk/internal/schema"
	"github.com/mbeckert/formwerk/internal/session"
	"github.com/mbeckert/formwerk/internal/suggest"
)

// FormHandler wires the form engine stack into HTTP endpoints.
type FormHandler struct {
	Registry   *schema.Registry
	Sessions   *session.Manager
	Suggest    *suggest.Engine
	Formatter  *format.Manager
	DraftStore draft.Store
	Generator  remote.Generator
	Saver      remote.DocumentSaver
	Mailer     remote.Mailer
	Bus        *eventbus.Bus
	History    history.Store
	Checker    *jurisdiction.Checker
	Autosave   config.AutosaveConfig
	Country    string
}

// RegisterRoutes mounts all form API routes on the router.
func (h *FormHandler) RegisterRoutes(r chi.Router) {
	r.Get("/v1/templates", h.ListTemplates)
	r.Get("/v1/templates/{name}", h.GetTemplate)
	r.Get("/v1/history", h.ListHistory)

	r.Post("/v1/sessions", h.CreateSession)
	r.Route("/v1/sessions/{id}", func(r chi.Router) {
		r.Get("/", h.GetSession)
		r.Delete("/", h.DeleteSession)
		r.Patch("/fields/{field}", h.UpdateField)
		r.Post("/validate", h.ValidateSession)
		r.Get("/suggestions/{field}", h.FieldSuggestions)
		r.Get("/export", h.ExportSession)
		r.Get("/compliance", h.CheckCompliance)
		r.Get("/history", h.SessionHistory)
		r.Post("/generate", h.GenerateDocument)
	})
}

// publish hands an event to the bus when one is configured.
func (h *FormHandler) publish(evt event.Event) {
	if h.Bus != nil {
		h.Bus.Publish(evt)
	}
}

// ListTemplates returns the registered template catalog.
func (h *FormHandler) ListTemplates(w http.ResponseWriter, r *http.Request) {
	names := h.Registry.TemplateNames()
	out := make([]templateView, 0, len(names))
	for _, name := range names {
		s, err := h.Registry.Template(name)
		if err != nil {
			continue
		}
		out = append(out, newTemplateView(s))
	}
	writeJSON(w, http.StatusOK, map[string]any{"templates": out})
}

// GetTemplate returns one template schema.
func (h *FormHandler) GetTemplate(w http.ResponseWriter, r *http.Request) {
	s, err := h.Registry.Template(chi.URLParam(r, "name"))
	if err != nil {
		writeError(w, http.StatusNotFound, "TEMPLATE_NOT_FOUND", err.Error())
		return
	}
	writeJSON(w, http.StatusOK, newTemplateView(s))
}

type createSessionRequest struct {
	Template   string         `json:"template"`
	StorageKey string         `json:"storage_key,omitempty"`
	Seed       map[string]any `json:"seed,omitempty"`
	Prefill    *engine.Source `json:"prefill,omitempty"`
}

// CreateSession builds a new form-editing session: engine over the named
// template, auto-saver mounted on the draft store. A persisted draft wins
// over seed data; prefill fills only fields still empty afterwards.
func (h *FormHandler) CreateSession(w http.ResponseWriter, r *http.Request) {
	var req createSessionRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_BODY", "invalid JSON body")
		return
	}

	s, err := h.Registry.Template(req.Template)
	if err != nil {
		writeError(w, http.StatusNotFound, "TEMPLATE_NOT_FOUND", err.Error())
		return
	}

	eng, err := engine.New(engine.Config{
		Schema:    s,
		Seed:      req.Seed,
		Formatter: h.Formatter,
		Relations: relation.New(),
		Country:   h.Country,
	})
	if err != nil {
		writeError(w, http.StatusInternalServerError, "ENGINE_INIT_FAILED", err.Error())
		return
	}

	storageKey := req.StorageKey
	if storageKey == "" {
		storageKey = "formwerk_" + req.Template
	}

	saver := draft.New(draft.Config{
		Engine:      eng,
		Store:       h.DraftStore,
		StorageKey:  storageKey,
		Interval:    h.Autosave.Interval,
		RevertAfter: h.Autosave.RevertAfter,
		Retain:      h.Autosave.Retain,
		Remote:      h.remoteSaveFunc(s),
	})

	if err := saver.Mount(r.Context()); err != nil {
		log.Printf("session: mounting draft for %q: %v", storageKey, err)
	}
	if req.Prefill != nil {
		eng.AutoPrefill(*req.Prefill)
	}
	saver.Start(context.Background())

	sess := h.Sessions.Create(req.Template, eng, saver)

	// Every successful save lands in the audit trail.
	saver.WatchStatus(func(st draft.Status) {
		if st == draft.StatusSaved {
			h.publish(event.DraftSaved(sess.ID, sess.Template, len(eng.State().Data)))
		}
	})
	h.publish(event.SessionCreated(sess.ID, req.Template, s.Title))

	writeJSON(w, http.StatusCreated, NewStateView(sess))
}

// remoteSaveFunc adapts the document-save backend into the auto-saver's
// remote hook. No backend configured means local-only drafts.
func (h *FormHandler) remoteSaveFunc(s *schema.Schema) draft.RemoteSaveFunc {
	if h.Saver == nil {
		return nil
	}
	return func(ctx context.Context, snap draft.Snapshot) error {
		return h.Saver.Save(ctx, remote.SaveRequest{
			TemplateID:   s.TemplateID,
			DocumentName: s.Title,
			Data:         snap.Data,
			Status:       "draft",
		})
	}
}

// GetSession returns the current session state.
func (h *FormHandler) GetSession(w http.ResponseWriter, r *http.Request) {
	sess := h.session(w, r)
	if sess == nil {
		return
	}
	writeJSON(w, http.StatusOK, NewStateView(sess))
}

// DeleteSession ends a session, flushing and closing its auto-saver.
func (h *FormHandler) DeleteSession(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if sess := h.Sessions.Get(id); sess != nil {
		h.publish(event.SessionClosed(sess.ID, sess.Template))
	}
	h.Sessions.Remove(id)
	w.WriteHeader(http.StatusNoContent)
}

type updateFieldRequest struct {
	Value    any  `json:"value"`
	Validate bool `json:"validate,omitempty"`
}

// UpdateField writes one field value, propagates computed dependents, and
// optionally validates the field in the same round trip. Text values on
// history-backed fields feed the suggestion store.
func (h *FormHandler) UpdateField(w http.ResponseWriter, r *http.Request) {
	sess := h.session(w, r)
	if sess == nil {
		return
	}
	field := chi.URLParam(r, "field")

	var req updateFieldRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_BODY", "invalid JSON body")
		return
	}

	if _, err := sess.Engine.UpdateField(field, req.Value); err != nil {
		writeError(w, http.StatusNotFound, "FIELD_NOT_FOUND", err.Error())
		return
	}
	if req.Validate {
		sess.Engine.ValidateField(field)
	}

	h.recordSuggestion(r.Context(), sess, field, req.Value)

	writeJSON(w, http.StatusOK, NewStateView(sess))
}

// recordSuggestion remembers string values for fields that opted into
// history-backed suggestions.
func (h *FormHandler) recordSuggestion(ctx context.Context, sess *session.Session, field string, value any) {
	if h.Suggest == nil {
		return
	}
	def := sess.Engine.Schema().Field(field)
	if def == nil || def.Suggestions != "historical" {
		return
	}
	if s, ok := value.(string); ok && strings.TrimSpace(s) != "" {
		h.Suggest.Record(ctx, field, s)
	}
}

// ValidateSession runs full validation over the visible fields and reports
// the outcome.
func (h *FormHandler) ValidateSession(w http.ResponseWriter, r *http.Request) {
	sess := h.session(w, r)
	if sess == nil {
		return
	}
	errs := sess.Engine.Validate()
	writeJSON(w, http.StatusOK, map[string]any{
		"valid":  len(errs) == 0,
		"errors": errs,
	})
}

// FieldSuggestions returns history values matching the q parameter, merged
// with the field's enum options.
func (h *FormHandler) FieldSuggestions(w http.ResponseWriter, r *http.Request) {
	sess := h.session(w, r)
	if sess == nil {
		return
	}
	field := chi.URLParam(r, "field")
	def := sess.Engine.Schema().Field(field)
	if def == nil {
		writeError(w, http.StatusNotFound, "FIELD_NOT_FOUND", "unknown field: "+field)
		return
	}

	q := r.URL.Query().Get("q")
	limit := queryInt(r, "limit", 5)

	var out []string
	if h.Suggest != nil && def.Suggestions == "historical" {
		out = h.Suggest.Suggestions(r.Context(), field, q, limit)
	}
	// Enum options that match the query round out the list.
	needle := strings.ToLower(strings.TrimSpace(q))
	for _, opt := range def.Enum {
		if len(out) >= limit {
			break
		}
		if needle != "" && !strings.Contains(strings.ToLower(opt), needle) {
			continue
		}
		if !containsString(out, opt) && opt != q {
			out = append(out, opt)
		}
	}
	if out == nil {
		out = []string{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"suggestions": out})
}

// ExportSession returns both export shapes: the raw data bag with metadata
// and the display-formatted visible fields.
func (h *FormHandler) ExportSession(w http.ResponseWriter, r *http.Request) {
	sess := h.session(w, r)
	if sess == nil {
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"data":      sess.Engine.Data(),
		"formatted": sess.Engine.FormattedData(),
	})
}

// CheckCompliance runs the statutory rule set against the session's data.
// Violations are warnings; they never block generation.
func (h *FormHandler) CheckCompliance(w http.ResponseWriter, r *http.Request) {
	sess := h.session(w, r)
	if sess == nil {
		return
	}
	violations := []jurisdiction.Violation{}
	if h.Checker != nil {
		violations = h.Checker.Check(sess.Template, sess.Engine.State().Data)
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"compliant":  len(violations) == 0,
		"violations": violations,
	})
}

// SessionHistory returns the audit trail of one session, newest first.
func (h *FormHandler) SessionHistory(w http.ResponseWriter, r *http.Request) {
	sess := h.session(w, r)
	if sess == nil {
		return
	}
	h.writeHistory(w, r, history.Query{
		SessionID: sess.ID,
		Limit:     queryInt(r, "limit", 50),
	})
}

// ListHistory returns the audit trail across sessions, filterable by
// template and event type.
func (h *FormHandler) ListHistory(w http.ResponseWriter, r *http.Request) {
	q := history.Query{
		Template: r.URL.Query().Get("template"),
		Limit:    queryInt(r, "limit", 50),
	}
	if typ := r.URL.Query().Get("type"); typ != "" {
		q.Types = []string{typ}
	}
	h.writeHistory(w, r, q)
}

func (h *FormHandler) writeHistory(w http.ResponseWriter, r *http.Request, q history.Query) {
	entries := []history.Entry{}
	if h.History != nil {
		got, err := h.History.Entries(r.Context(), q)
		if err != nil {
			log.Printf("history: query failed: %v", err)
			writeError(w, http.StatusInternalServerError, "HISTORY_FAILED", "history lookup failed")
			return
		}
		if got != nil {
			entries = got
		}
	}
	writeJSON(w, http.StatusOK, map[string]any{"entries": entries})
}

type generateRequest struct {
	DocumentName string         `json:"document_name,omitempty"`
	Options      map[string]any `json:"options,omitempty"`
	EmailTo      string         `json:"email_to,omitempty"`
}

// GenerateDocument validates the session and, if clean, sends the export to
// the document backend. Validation failure blocks generation; a failing
// post-generation document save or email does not fail the request.
func (h *FormHandler) GenerateDocument(w http.ResponseWriter, r *http.Request) {
	sess := h.session(w, r)
	if sess == nil {
		return
	}
	if h.Generator == nil {
		writeError(w, http.StatusServiceUnavailable, "NO_BACKEND", "document generation is not configured")
		return
	}

	var req generateRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_BODY", "invalid JSON body")
		return
	}

	if errs := sess.Engine.Validate(); len(errs) > 0 {
		writeJSON(w, http.StatusUnprocessableEntity, map[string]any{
			"error":  "validation failed",
			"code":   "VALIDATION_FAILED",
			"errors": errs,
		})
		return
	}

	s := sess.Engine.Schema()
	result, err := h.Generator.Generate(r.Context(), remote.GenerateRequest{
		TemplateID: s.TemplateID,
		Data:       sess.Engine.Data(),
		Options:    req.Options,
	})
	if err != nil {
		log.Printf("generate: template %q: %v", sess.Template, err)
		writeError(w, http.StatusBadGateway, "GENERATION_FAILED", "document generation failed")
		return
	}

	h.publish(event.DocumentGenerated(sess.ID, sess.Template, result.DocumentID))
	h.afterGenerate(r.Context(), sess, req, result)

	if sess.Saver != nil {
		if err := sess.Saver.Discard(r.Context()); err != nil {
			log.Printf("generate: discarding draft: %v", err)
		}
	}
	sess.Engine.MarkSaved()

	writeJSON(w, http.StatusOK, result)
}

// afterGenerate runs the non-blocking post-generation steps: server-side
// document persistence and optional email delivery.
func (h *FormHandler) afterGenerate(ctx context.Context, sess *session.Session, req generateRequest, result remote.GenerateResult) {
	s := sess.Engine.Schema()

	if h.Saver != nil {
		name := req.DocumentName
		if name == "" {
			name = s.Title + " " + time.Now().Format("02.01.2006")
		}
		err := h.Saver.Save(ctx, remote.SaveRequest{
			TemplateID:   s.TemplateID,
			DocumentName: name,
			Data:         sess.Engine.Data(),
			Status:       "final",
		})
		if err != nil {
			log.Printf("generate: saving document: %v", err)
		}
	}

	if h.Mailer != nil && req.EmailTo != "" {
		err := h.Mailer.Send(ctx, remote.EmailRequest{
			DocumentID: result.DocumentID,
			Recipient:  req.EmailTo,
			Subject:    s.Title,
		})
		if err != nil {
			log.Printf("generate: sending document email: %v", err)
		} else {
			h.publish(event.DocumentEmailed(sess.ID, sess.Template, req.EmailTo))
		}
	}
}

// session resolves the {id} route parameter, writing a 404 when the session
// is unknown or expired.
func (h *FormHandler) session(w http.ResponseWriter, r *http.Request) *session.Session {
	id := chi.URLParam(r, "id")
	sess := h.Sessions.Get(id)
	if sess == nil {
		writeError(w, http.StatusNotFound, "SESSION_NOT_FOUND", "unknown or expired session: "+id)
		return nil
	}
	return sess
}

func containsString(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
