package engine

import (
	"fmt"
	"log"
	"strings"

	"github.com/mbeckert/formwerk/internal/schema"
)

// Resolver propagates a field change to every computed field that depends on
// it, directly or transitively. The recompute order is fixed at construction
// by topologically sorting the schema's compute graph, so multi-hop chains
// (total depends on subtotal depends on quantity) always see fresh inputs.
type Resolver struct {
	schema *schema.Schema
	order  []string // computed fields, dependency-sorted
}

// NewResolver builds the compute order for a schema. Schemas with compute
// cycles are rejected here; nothing else in the engine has to worry about
// non-terminating propagation.
func NewResolver(s *schema.Schema) (*Resolver, error) {
	order, err := s.ComputeOrder()
	if err != nil {
		return nil, fmt.Errorf("building resolver: %w", err)
	}
	return &Resolver{schema: s, order: order}, nil
}

// Resolve returns a new data map with field set to value and every affected
// computed field recomputed. The input map is never mutated.
func (r *Resolver) Resolve(field string, value any, data map[string]any) map[string]any {
	updated := cloneData(data)
	updated[field] = value

	affected := r.affectedBy(field)
	for _, name := range r.order {
		if !affected[name] {
			continue
		}
		updated[name] = r.compute(r.schema.Fields[name], updated)
	}
	return updated
}

// ResolveAll recomputes every computed field against the given data. Used
// after bulk merges (prefill, draft restore) where many inputs change at once.
func (r *Resolver) ResolveAll(data map[string]any) map[string]any {
	updated := cloneData(data)
	for _, name := range r.order {
		updated[name] = r.compute(r.schema.Fields[name], updated)
	}
	return updated
}

// affectedBy returns the transitive dependent set of a field.
func (r *Resolver) affectedBy(field string) map[string]bool {
	affected := map[string]bool{}
	frontier := []string{field}
	for len(frontier) > 0 {
		next := frontier[0]
		frontier = frontier[1:]
		for _, dep := range r.schema.Dependents(next) {
			if !affected[dep] {
				affected[dep] = true
				frontier = append(frontier, dep)
			}
		}
	}
	return affected
}

// compute evaluates one compute rule. A rule must never break the update that
// triggered it: panics from func rules are recovered, logged, and yield nil.
func (r *Resolver) compute(def *schema.FieldDef, data map[string]any) (result any) {
	defer func() {
		if rec := recover(); rec != nil {
			log.Printf("engine: compute for field %q panicked: %v", def.Name, rec)
			result = nil
		}
	}()

	rule := def.Compute
	switch rule.Kind {
	case schema.ComputeSum:
		sum := 0.0
		for _, f := range rule.Fields {
			if n, ok := toNumber(data[f]); ok {
				sum += n
			}
		}
		return sum
	case schema.ComputeMultiply:
		// Seeded at 1; zero and non-numeric factors count as 1, so an empty
		// factor list or a blank field yields 1, not 0.
		product := 1.0
		for _, f := range rule.Fields {
			if n, ok := toNumber(data[f]); ok && n != 0 {
				product *= n
			}
		}
		return product
	case schema.ComputeTemplate:
		out := rule.Template
		for _, name := range r.schema.FieldOrder {
			placeholder := "{" + name + "}"
			if strings.Contains(out, placeholder) {
				out = strings.ReplaceAll(out, placeholder, toString(data[name]))
			}
		}
		return out
	case schema.ComputeFunc:
		if rule.Func == nil {
			return nil
		}
		return rule.Func(data)
	default:
		return nil
	}
}
