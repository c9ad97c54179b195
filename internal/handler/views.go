package handler

import (
	"github.com/mbeckert/formwerk/internal/schema"
	"github.com/mbeckert/formwerk/internal/session"
)

// Wire views. The schema model and engine state are rendered into stable
// JSON shapes here so internal types stay free of transport concerns.

type conditionView struct {
	DependsOn string `json:"depends_on"`
	Operator  string `json:"operator"`
	Value     any    `json:"value"`
}

type computeView struct {
	Type     string   `json:"type"`
	Fields   []string `json:"fields,omitempty"`
	Template string   `json:"template,omitempty"`
}

type fieldView struct {
	Name           string          `json:"name"`
	Type           string          `json:"type"`
	Label          string          `json:"label,omitempty"`
	Required       bool            `json:"required"`
	Prefill        string          `json:"prefill,omitempty"`
	Conditions     []conditionView `json:"conditions,omitempty"`
	DependsOn      []string        `json:"depends_on,omitempty"`
	Compute        *computeView    `json:"compute,omitempty"`
	Pattern        string          `json:"pattern,omitempty"`
	PatternMessage string          `json:"pattern_message,omitempty"`
	MinLength      int             `json:"min_length,omitempty"`
	MaxLength      int             `json:"max_length,omitempty"`
	Minimum        *float64        `json:"minimum,omitempty"`
	Maximum        *float64        `json:"maximum,omitempty"`
	Enum           []string        `json:"enum,omitempty"`
	Suggestions    string          `json:"suggestions,omitempty"`
	Format         string          `json:"format,omitempty"`
}

type templateView struct {
	Name       string      `json:"name"`
	Title      string      `json:"title,omitempty"`
	TemplateID string      `json:"template_id"`
	Fields     []fieldView `json:"fields"`
}

func newTemplateView(s *schema.Schema) templateView {
	tv := templateView{
		Name:       s.Name,
		Title:      s.Title,
		TemplateID: s.TemplateID,
		Fields:     make([]fieldView, 0, len(s.FieldOrder)),
	}
	for _, name := range s.FieldOrder {
		tv.Fields = append(tv.Fields, newFieldView(s.Fields[name]))
	}
	return tv
}

func newFieldView(def *schema.FieldDef) fieldView {
	fv := fieldView{
		Name:           def.Name,
		Type:           def.Type.String(),
		Label:          def.Label,
		Required:       def.Required,
		Prefill:        def.Prefill,
		DependsOn:      def.DependsOn,
		PatternMessage: def.PatternMessage,
		MinLength:      def.MinLength,
		MaxLength:      def.MaxLength,
		Minimum:        def.Minimum,
		Maximum:        def.Maximum,
		Enum:           def.Enum,
		Suggestions:    def.Suggestions,
		Format:         def.Format,
	}
	if def.Pattern != nil {
		fv.Pattern = def.Pattern.String()
	}
	for _, c := range def.Conditions {
		fv.Conditions = append(fv.Conditions, conditionView{
			DependsOn: c.DependsOn,
			Operator:  c.Operator.String(),
			Value:     c.Value,
		})
	}
	if def.Compute != nil {
		fv.Compute = &computeView{
			Type:     def.Compute.Kind.String(),
			Fields:   def.Compute.Fields,
			Template: def.Compute.Template,
		}
	}
	return fv
}

type progressView struct {
	Completed int `json:"completed"`
	Total     int `json:"total"`
}

// StateView is the session state as rendered to clients. Shared with the
// WebSocket wire.
type StateView struct {
	SessionID     string              `json:"session_id"`
	Template      string              `json:"template"`
	Data          map[string]any      `json:"data"`
	Errors        map[string][]string `json:"errors"`
	Touched       map[string]bool     `json:"touched"`
	Dirty         bool                `json:"dirty"`
	VisibleFields []string            `json:"visible_fields"`
	Progress      progressView        `json:"progress"`
	SaveStatus    string              `json:"save_status"`
}

// NewStateView renders a session's current engine state.
func NewStateView(sess *session.Session) StateView {
	st := sess.Engine.State()
	completed, total := sess.Engine.Progress()

	view := StateView{
		SessionID:     sess.ID,
		Template:      sess.Template,
		Data:          st.Data,
		Errors:        st.Errors,
		Touched:       st.Touched,
		Dirty:         st.Dirty,
		VisibleFields: sess.Engine.VisibleFields(),
		Progress:      progressView{Completed: completed, Total: total},
	}
	if sess.Saver != nil {
		view.SaveStatus = string(sess.Saver.Status())
	}
	return view
}
