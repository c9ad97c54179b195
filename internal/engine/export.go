package engine

import (
	"time"

	"github.com/mbeckert/formwerk/internal/schema"
)

// Metadata is attached to exported data under the "_metadata" key.
type Metadata struct {
	Timestamp time.Time `json:"timestamp"`
	IsDirty   bool      `json:"isDirty"`
}

// Data returns the full data bag plus export metadata. This is the shape
// passed verbatim to remote document generation.
func (e *Engine) Data() map[string]any {
	e.mu.RLock()
	defer e.mu.RUnlock()

	out := cloneData(e.state.Data)
	out["_metadata"] = Metadata{Timestamp: time.Now(), IsDirty: e.state.Dirty}
	return out
}

// FormattedData returns only the currently visible fields, each rendered for
// display: the field's declared format tag applied when present, booleans as
// localized Ja/Nein, everything else as its raw value. A hidden field never
// appears here, even when it holds a value in the data bag.
func (e *Engine) FormattedData() map[string]any {
	e.mu.RLock()
	defer e.mu.RUnlock()

	out := make(map[string]any)
	for _, name := range VisibleFields(e.schema, e.state.Data) {
		def := e.schema.Fields[name]
		value, ok := e.state.Data[name]
		if !ok {
			continue
		}
		out[name] = e.formatValue(def, value)
	}
	return out
}

func (e *Engine) formatValue(def *schema.FieldDef, value any) any {
	if b, isBool := value.(bool); isBool {
		if b {
			return "Ja"
		}
		return "Nein"
	}

	tag := def.Format
	if tag == "" {
		tag = e.formatter.ForFieldType(def.Type.String(), e.country)
	}
	if tag == "" {
		return value
	}
	return e.formatter.Format(toString(value), tag)
}
