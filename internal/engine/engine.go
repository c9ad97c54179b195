// Package engine implements the schema-driven form engine: conditional
// visibility, dependency-ordered compute propagation, validation, prefill,
// and export. One Engine instance backs one form-editing session.
//
// Engine state follows an immutable-snapshot discipline: every operation
// builds a fresh State rather than mutating shared maps, and State() hands
// out copies. Mutating operations are serialized by a mutex so the engine is
// also safe when driven from the HTTP and WebSocket paths.
package engine

import (
	"fmt"
	"sync"
	"time"

	"github.com/mbeckert/formwerk/internal/format"
	"github.com/mbeckert/formwerk/internal/relation"
	"github.com/mbeckert/formwerk/internal/schema"
	"github.com/mbeckert/formwerk/internal/validate"
)

// Draft is an explicit data snapshot taken by SaveDraft, distinct from the
// auto-save side channel.
type Draft struct {
	Data      map[string]any `json:"data"`
	Timestamp time.Time      `json:"timestamp"`
}

// State is one immutable snapshot of a form session. Errors holds only
// fields with known problems — absence means "not validated", not "valid".
type State struct {
	Data       map[string]any
	Errors     map[string][]string
	Touched    map[string]bool
	Dirty      bool
	SavedDraft *Draft
}

func (s State) clone() State {
	out := State{
		Data:       cloneData(s.Data),
		Errors:     make(map[string][]string, len(s.Errors)),
		Touched:    make(map[string]bool, len(s.Touched)),
		Dirty:      s.Dirty,
		SavedDraft: s.SavedDraft,
	}
	for k, v := range s.Errors {
		out.Errors[k] = append([]string(nil), v...)
	}
	for k, v := range s.Touched {
		out.Touched[k] = v
	}
	return out
}

// Config assembles an engine with its injected services.
type Config struct {
	Schema    *schema.Schema
	Seed      map[string]any
	Formatter *format.Manager // nil: a default manager is constructed
	Relations *relation.Graph // nil: a private graph is constructed
	Country   string          // locale for auto-format mapping, default "DE"
}

// Engine orchestrates one form session over a static schema.
type Engine struct {
	mu        sync.RWMutex
	schema    *schema.Schema
	resolver  *Resolver
	formatter *format.Manager
	relations *relation.Graph
	country   string
	state     State
}

// ErrUnknownField is returned when an operation names a field the schema
// does not declare.
var ErrUnknownField = fmt.Errorf("unknown field")

// New creates an engine for the given schema. Seed values for declared
// fields are taken over and computed fields resolved once. The schema's
// relationships are mirrored into the relation graph so Dependents and Watch
// work from the start.
func New(cfg Config) (*Engine, error) {
	if cfg.Schema == nil {
		return nil, fmt.Errorf("engine: schema is required")
	}
	resolver, err := NewResolver(cfg.Schema)
	if err != nil {
		return nil, err
	}

	e := &Engine{
		schema:    cfg.Schema,
		resolver:  resolver,
		formatter: cfg.Formatter,
		relations: cfg.Relations,
		country:   cfg.Country,
	}
	if e.formatter == nil {
		e.formatter = format.NewManager()
	}
	if e.relations == nil {
		e.relations = relation.New()
	}
	if e.country == "" {
		e.country = "DE"
	}

	e.registerRelationships()

	data := make(map[string]any)
	for k, v := range cfg.Seed {
		if e.schema.Field(k) != nil {
			data[k] = v
		}
	}
	e.state = State{
		Data:    resolver.ResolveAll(data),
		Errors:  make(map[string][]string),
		Touched: make(map[string]bool),
	}
	return e, nil
}

// registerRelationships mirrors schema-declared computes and conditions into
// the relation graph, keyed by field.
func (e *Engine) registerRelationships() {
	for _, name := range e.schema.FieldOrder {
		def := e.schema.Fields[name]
		if def.Computed() {
			rule := def
			e.relations.RegisterComputed(name, def.DependsOn, func(data map[string]any) any {
				return e.resolver.compute(rule, data)
			})
		}
		if len(def.Conditions) > 0 {
			var deps []string
			for _, c := range def.Conditions {
				deps = append(deps, c.DependsOn)
			}
			cond := def
			e.relations.RegisterConditional(name, deps, func(data map[string]any) bool {
				return IsVisible(cond, data)
			})
		}
	}
}

// Schema returns the engine's schema.
func (e *Engine) Schema() *schema.Schema { return e.schema }

// Relations returns the engine's relationship graph.
func (e *Engine) Relations() *relation.Graph { return e.relations }

// State returns a copy of the current snapshot.
func (e *Engine) State() State {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.state.clone()
}

// Dirty reports whether the form changed since construction, reset, or the
// last acknowledged save.
func (e *Engine) Dirty() bool {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.state.Dirty
}

// UpdateField sets a field's value, recomputes all affected dependents
// (topological order — multi-hop chains are never stale when this returns),
// marks the field touched and the form dirty, and notifies watchers. A
// broken compute rule degrades to a nil value; it never fails the update.
func (e *Engine) UpdateField(field string, value any) (State, error) {
	e.mu.Lock()
	if e.schema.Field(field) == nil {
		e.mu.Unlock()
		return State{}, fmt.Errorf("%w: %q", ErrUnknownField, field)
	}

	prev := e.state.Data
	next := e.state.clone()
	next.Data = e.resolver.Resolve(field, value, prev)
	next.Touched[field] = true
	next.Dirty = true
	e.state = next
	snapshot := next.clone()
	e.mu.Unlock()

	e.relations.Notify(field, value)
	for _, name := range e.resolver.order {
		if name == field {
			continue
		}
		if !equalValues(prev[name], snapshot.Data[name]) {
			e.relations.Notify(name, snapshot.Data[name])
		}
	}
	return snapshot, nil
}

// Touch marks a field as interacted-with without changing its value. The UI
// uses touched state to gate error display.
func (e *Engine) Touch(field string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	next := e.state.clone()
	next.Touched[field] = true
	e.state = next
}

// AutoPrefill merges external source data into empty fields. Values already
// present win over prefill — this runs once, early, and never clobbers user
// input. Prefill is not a user edit: it neither touches fields nor dirties
// the form.
func (e *Engine) AutoPrefill(src Source) State {
	flat := src.Flatten()

	e.mu.Lock()
	defer e.mu.Unlock()

	next := e.state.clone()
	changed := false
	for _, name := range e.schema.FieldOrder {
		def := e.schema.Fields[name]
		if def.Prefill == "" {
			continue
		}
		if !isEmpty(next.Data[name]) {
			continue
		}
		if v, ok := flat[def.Prefill]; ok && !isEmpty(v) {
			next.Data[name] = v
			changed = true
		}
	}
	if changed {
		next.Data = e.resolver.ResolveAll(next.Data)
	}
	e.state = next
	return next.clone()
}

// ApplyDraft restores a persisted draft into the engine. Draft values win
// over whatever is currently present — the inverse precedence from
// AutoPrefill. Restoring a draft leaves the form clean.
func (e *Engine) ApplyDraft(data map[string]any) State {
	e.mu.Lock()
	defer e.mu.Unlock()

	next := e.state.clone()
	for k, v := range data {
		if e.schema.Field(k) != nil {
			next.Data[k] = v
		}
	}
	next.Data = e.resolver.ResolveAll(next.Data)
	e.state = next
	return next.clone()
}

// Validate recomputes the full error map from the current data and schema.
// Only visible fields are validated — a field hidden by its conditions
// cannot block submission. The previous error state is replaced entirely,
// never merged, so repeated calls with unchanged data yield equal maps.
func (e *Engine) Validate() map[string][]string {
	e.mu.Lock()
	defer e.mu.Unlock()

	next := e.state.clone()
	next.Errors = validate.All(e.schema, next.Data, VisibleFields(e.schema, next.Data))
	e.state = next

	out := make(map[string][]string, len(next.Errors))
	for k, v := range next.Errors {
		out[k] = append([]string(nil), v...)
	}
	return out
}

// ValidateField validates a single field against its current value and
// updates just that field's entry in the error map.
func (e *Engine) ValidateField(field string) []string {
	e.mu.RLock()
	value := e.state.Data[field]
	e.mu.RUnlock()
	return e.ValidateFieldValue(field, value)
}

// ValidateFieldValue validates a single field against an explicit value
// override without writing the value into the data bag.
func (e *Engine) ValidateFieldValue(field string, value any) []string {
	def := e.schema.Field(field)
	if def == nil {
		return nil
	}
	errs := validate.Field(def, value)

	e.mu.Lock()
	next := e.state.clone()
	if len(errs) == 0 {
		delete(next.Errors, field)
	} else {
		next.Errors[field] = append([]string(nil), errs...)
	}
	e.state = next
	e.mu.Unlock()

	return errs
}

// Valid reports whether the last Validate produced no errors.
func (e *Engine) Valid() bool {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return len(e.state.Errors) == 0
}

// SaveDraft records an explicit snapshot of the current data and returns it.
func (e *Engine) SaveDraft() Draft {
	e.mu.Lock()
	defer e.mu.Unlock()

	d := Draft{Data: cloneData(e.state.Data), Timestamp: time.Now()}
	next := e.state.clone()
	next.SavedDraft = &d
	e.state = next
	return d
}

// MarkSaved clears the dirty flag after a successful persist. Called by the
// auto-save adapter.
func (e *Engine) MarkSaved() {
	e.mu.Lock()
	defer e.mu.Unlock()
	next := e.state.clone()
	next.Dirty = false
	e.state = next
}

// Reset clears data, errors, touched state, and the dirty flag, then
// re-resolves computed fields over the empty bag.
func (e *Engine) Reset() State {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.state = State{
		Data:    e.resolver.ResolveAll(map[string]any{}),
		Errors:  make(map[string][]string),
		Touched: make(map[string]bool),
	}
	return e.state.clone()
}

// VisibleFields returns the currently visible fields in declaration order.
func (e *Engine) VisibleFields() []string {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return VisibleFields(e.schema, e.state.Data)
}

// Progress reports how many visible fields hold a value, and the visible
// total — the completion numerator and denominator for the wizard's bar.
func (e *Engine) Progress() (completed, total int) {
	e.mu.RLock()
	defer e.mu.RUnlock()

	for _, name := range VisibleFields(e.schema, e.state.Data) {
		total++
		if !isEmpty(e.state.Data[name]) {
			completed++
		}
	}
	return completed, total
}
