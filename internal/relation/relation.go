// Package relation maintains an explicit field dependency graph alongside the
// schema-declared depends_on lists: computed and conditional relationships
// registered at schema-load time, a reverse-dependency index, and a per-field
// watch channel for external observers.
//
// The graph never touches form data itself. Callers use Dependents to decide
// what to recompute and Watch to mirror changes elsewhere (UI bindings, the
// WebSocket wire, auto-save status displays).
package relation

import (
	"sync"
)

// ComputeFunc derives a field value from the full data bag.
type ComputeFunc func(data map[string]any) any

// ConditionFunc decides a field's visibility from the full data bag.
type ConditionFunc func(data map[string]any) bool

// WatchFunc observes a field change. Called synchronously on the updating
// goroutine — the engine's mutations are single-threaded and watchers must
// not re-enter the engine.
type WatchFunc func(field string, value any)

type computedRel struct {
	dependsOn []string
	fn        ComputeFunc
}

type conditionalRel struct {
	dependsOn []string
	fn        ConditionFunc
}

// Graph is the relationship registry. Construct one per form session and
// inject it; there is no shared package-level instance, so histories and
// watchers never bleed between sessions.
type Graph struct {
	mu          sync.RWMutex
	computed    map[string]computedRel
	conditional map[string]conditionalRel
	regOrder    []string // registration order for stable Dependents output
	watchers    map[string][]WatchFunc
}

// New creates an empty relationship graph.
func New() *Graph {
	return &Graph{
		computed:    make(map[string]computedRel),
		conditional: make(map[string]conditionalRel),
		watchers:    make(map[string][]WatchFunc),
	}
}

// RegisterComputed declares that field is derived from dependsOn via fn.
func (g *Graph) RegisterComputed(field string, dependsOn []string, fn ComputeFunc) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if _, seen := g.computed[field]; !seen {
		if _, seenCond := g.conditional[field]; !seenCond {
			g.regOrder = append(g.regOrder, field)
		}
	}
	g.computed[field] = computedRel{dependsOn: append([]string(nil), dependsOn...), fn: fn}
}

// RegisterConditional declares that field's visibility depends on dependsOn via fn.
func (g *Graph) RegisterConditional(field string, dependsOn []string, fn ConditionFunc) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if _, seen := g.conditional[field]; !seen {
		if _, seenComp := g.computed[field]; !seenComp {
			g.regOrder = append(g.regOrder, field)
		}
	}
	g.conditional[field] = conditionalRel{dependsOn: append([]string(nil), dependsOn...), fn: fn}
}

// Compute evaluates the registered compute function for field, if any.
func (g *Graph) Compute(field string, data map[string]any) (any, bool) {
	g.mu.RLock()
	rel, ok := g.computed[field]
	g.mu.RUnlock()
	if !ok || rel.fn == nil {
		return nil, false
	}
	return rel.fn(data), true
}

// Visible evaluates the registered condition for field. Fields without a
// registered condition are visible.
func (g *Graph) Visible(field string, data map[string]any) bool {
	g.mu.RLock()
	rel, ok := g.conditional[field]
	g.mu.RUnlock()
	if !ok || rel.fn == nil {
		return true
	}
	return rel.fn(data)
}

// Dependents returns every registered field whose depends_on list names the
// given field, in registration order. Valid before any edits occur — it
// reflects whatever was registered at schema-load time.
func (g *Graph) Dependents(field string) []string {
	g.mu.RLock()
	defer g.mu.RUnlock()

	var out []string
	for _, name := range g.regOrder {
		if rel, ok := g.computed[name]; ok && containsField(rel.dependsOn, field) {
			out = append(out, name)
			continue
		}
		if rel, ok := g.conditional[name]; ok && containsField(rel.dependsOn, field) {
			out = append(out, name)
		}
	}
	return out
}

// Watch registers an observer for changes to field.
func (g *Graph) Watch(field string, fn WatchFunc) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.watchers[field] = append(g.watchers[field], fn)
}

// Notify dispatches a field change to all watchers of that field.
func (g *Graph) Notify(field string, value any) {
	g.mu.RLock()
	watchers := g.watchers[field]
	g.mu.RUnlock()

	for _, fn := range watchers {
		fn(field, value)
	}
}

func containsField(slice []string, val string) bool {
	for _, s := range slice {
		if s == val {
			return true
		}
	}
	return false
}
