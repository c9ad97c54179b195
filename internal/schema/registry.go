package schema

import (
	"fmt"
	"sort"
	"sync"
)

// ErrUnknownTemplate is returned when a template name is not registered.
var ErrUnknownTemplate = fmt.Errorf("unknown template")

// Registry holds the schemas for all registered document templates. It is
// populated once at startup (from CUE files or programmatically) and is safe
// for concurrent read access afterwards.
type Registry struct {
	mu        sync.RWMutex
	templates map[string]*Schema
	order     []string
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{templates: make(map[string]*Schema)}
}

// Register validates and adds a template schema. Registering a schema that
// fails consistency checks (undeclared references, compute cycles) is an error.
func (r *Registry) Register(s *Schema) error {
	if s.Name == "" {
		return fmt.Errorf("schema has no name")
	}
	if err := s.Validate(); err != nil {
		return fmt.Errorf("template %q: %w", s.Name, err)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.templates[s.Name]; exists {
		return fmt.Errorf("template %q registered twice", s.Name)
	}
	r.templates[s.Name] = s
	r.order = append(r.order, s.Name)
	sort.Strings(r.order)
	return nil
}

// Template returns the schema for a named template.
func (r *Registry) Template(name string) (*Schema, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.templates[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownTemplate, name)
	}
	return s, nil
}

// TemplateNames returns all registered template names in sorted order.
func (r *Registry) TemplateNames() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]string, len(r.order))
	copy(out, r.order)
	return out
}
