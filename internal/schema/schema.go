// Package schema defines the declarative form schema model: field types,
// visibility conditions, compute rules, and validation constraints.
//
// Schemas are authored in CUE (see the cue loader in this package) or built
// programmatically, registered once at startup, and consumed read-only by the
// form engine, the validator, and the HTTP/WebSocket handlers.
package schema

import (
	"fmt"
	"regexp"
)

// FieldType classifies a form field. The set is closed — dispatch on it is
// exhaustive, there is no runtime default behavior for unknown types.
type FieldType int

const (
	FieldText FieldType = iota
	FieldEmail
	FieldPhone
	FieldNumber
	FieldCurrency
	FieldDate
	FieldSelect
	FieldTextarea
	FieldFile
	FieldCheckbox
)

// String returns the wire name of the field type.
func (ft FieldType) String() string {
	switch ft {
	case FieldText:
		return "text"
	case FieldEmail:
		return "email"
	case FieldPhone:
		return "phone"
	case FieldNumber:
		return "number"
	case FieldCurrency:
		return "currency"
	case FieldDate:
		return "date"
	case FieldSelect:
		return "select"
	case FieldTextarea:
		return "textarea"
	case FieldFile:
		return "file"
	case FieldCheckbox:
		return "checkbox"
	default:
		return "unknown"
	}
}

// Numeric returns true if values of this type are compared and computed as numbers.
func (ft FieldType) Numeric() bool {
	return ft == FieldNumber || ft == FieldCurrency
}

// ParseFieldType maps a wire name to a FieldType.
func ParseFieldType(s string) (FieldType, error) {
	switch s {
	case "text":
		return FieldText, nil
	case "email":
		return FieldEmail, nil
	case "phone":
		return FieldPhone, nil
	case "number":
		return FieldNumber, nil
	case "currency":
		return FieldCurrency, nil
	case "date":
		return FieldDate, nil
	case "select":
		return FieldSelect, nil
	case "textarea":
		return FieldTextarea, nil
	case "file":
		return FieldFile, nil
	case "checkbox":
		return FieldCheckbox, nil
	default:
		return 0, fmt.Errorf("unknown field type %q", s)
	}
}

// Operator is a condition comparison operator. OpUnknown is kept deliberately:
// a malformed operator makes the condition permissive (the field stays
// visible) instead of hiding the field.
type Operator int

const (
	OpEquals Operator = iota
	OpNotEquals
	OpContains
	OpGreaterThan
	OpLessThan
	OpIn
	OpUnknown
)

// String returns the wire name of the operator.
func (op Operator) String() string {
	switch op {
	case OpEquals:
		return "equals"
	case OpNotEquals:
		return "not_equals"
	case OpContains:
		return "contains"
	case OpGreaterThan:
		return "greater_than"
	case OpLessThan:
		return "less_than"
	case OpIn:
		return "in"
	default:
		return "unknown"
	}
}

// ParseOperator maps a wire name to an Operator. Unrecognized names map to
// OpUnknown rather than failing — see Operator.
func ParseOperator(s string) Operator {
	switch s {
	case "equals", "":
		return OpEquals
	case "not_equals":
		return OpNotEquals
	case "contains":
		return OpContains
	case "greater_than":
		return OpGreaterThan
	case "less_than":
		return OpLessThan
	case "in":
		return OpIn
	default:
		return OpUnknown
	}
}

// Condition gates a field's visibility on another field's current value.
// A field is visible iff all of its conditions hold (logical AND).
type Condition struct {
	DependsOn string
	Operator  Operator
	Value     any
}

// ComputeKind selects how a dependent field's value is derived.
type ComputeKind int

const (
	ComputeSum ComputeKind = iota
	ComputeMultiply
	ComputeTemplate
	ComputeFunc
)

// String returns the wire name of the compute kind.
func (ck ComputeKind) String() string {
	switch ck {
	case ComputeSum:
		return "sum"
	case ComputeMultiply:
		return "multiply"
	case ComputeTemplate:
		return "template"
	case ComputeFunc:
		return "func"
	default:
		return "unknown"
	}
}

// ParseComputeKind maps a wire name to a ComputeKind.
func ParseComputeKind(s string) (ComputeKind, error) {
	switch s {
	case "sum":
		return ComputeSum, nil
	case "multiply":
		return ComputeMultiply, nil
	case "template":
		return ComputeTemplate, nil
	default:
		return 0, fmt.Errorf("unknown compute kind %q", s)
	}
}

// ComputeRule derives a field's value from other fields. Exactly one of the
// payload members is meaningful, selected by Kind. Func rules cannot be
// expressed in CUE; they are registered programmatically.
type ComputeRule struct {
	Kind     ComputeKind
	Fields   []string                 // sum, multiply
	Template string                   // template, "{field}" placeholders
	Func     func(map[string]any) any // func
}

// FieldDef is the declarative description of one form field.
type FieldDef struct {
	Name           string
	Type           FieldType
	Label          string
	Required       bool
	Prefill        string // key into the flattened prefill projection
	Conditions     []Condition
	DependsOn      []string
	Compute        *ComputeRule
	Pattern        *regexp.Regexp
	PatternMessage string
	MinLength      int // 0 = unset
	MaxLength      int // 0 = unset
	Minimum        *float64
	Maximum        *float64
	Enum           []string // select options, doubles as autocomplete source
	Suggestions    string   // "historical" or ""
	Format         string   // display format tag, see internal/format
}

// Computed returns true if the field's value is derived from other fields.
func (f *FieldDef) Computed() bool {
	return f.Compute != nil && len(f.DependsOn) > 0
}

// Schema holds the complete field metadata for one document template.
// Fields are kept in declaration order — visibility listings, validation
// output, and export all follow it.
type Schema struct {
	Name       string // registry name, e.g. "kuendigung"
	Title      string
	TemplateID string // remote document-generation template id
	Fields     map[string]*FieldDef
	FieldOrder []string
}

// Field returns the definition for a named field, or nil.
func (s *Schema) Field(name string) *FieldDef {
	return s.Fields[name]
}

// AddField appends a field definition, preserving declaration order.
func (s *Schema) AddField(def *FieldDef) {
	if s.Fields == nil {
		s.Fields = make(map[string]*FieldDef)
	}
	s.Fields[def.Name] = def
	s.FieldOrder = append(s.FieldOrder, def.Name)
}

// Validate checks internal consistency: condition and compute references must
// name declared fields, and the compute dependency graph must be acyclic.
func (s *Schema) Validate() error {
	for _, name := range s.FieldOrder {
		def := s.Fields[name]
		for _, c := range def.Conditions {
			if _, ok := s.Fields[c.DependsOn]; !ok {
				return fmt.Errorf("field %q: condition depends on undeclared field %q", name, c.DependsOn)
			}
		}
		if def.Compute != nil && len(def.DependsOn) == 0 {
			return fmt.Errorf("field %q: compute rule without depends_on", name)
		}
		for _, dep := range def.DependsOn {
			if _, ok := s.Fields[dep]; !ok {
				return fmt.Errorf("field %q: depends on undeclared field %q", name, dep)
			}
		}
	}
	if _, err := s.ComputeOrder(); err != nil {
		return err
	}
	return nil
}

// ErrComputeCycle is returned when computed fields depend on each other in a loop.
var ErrComputeCycle = fmt.Errorf("compute dependency cycle")

// ComputeOrder returns the computed fields topologically sorted by their
// dependencies, so a dependent-of-a-dependent is always recomputed after its
// prerequisite. Cycles are rejected here, at schema-load time, rather than
// looping at runtime.
func (s *Schema) ComputeOrder() ([]string, error) {
	const (
		unvisited = 0
		visiting  = 1
		done      = 2
	)
	state := make(map[string]int, len(s.FieldOrder))
	var order []string

	var visit func(name string) error
	visit = func(name string) error {
		switch state[name] {
		case done:
			return nil
		case visiting:
			return fmt.Errorf("%w involving field %q", ErrComputeCycle, name)
		}
		state[name] = visiting
		def := s.Fields[name]
		if def.Computed() {
			for _, dep := range def.DependsOn {
				if err := visit(dep); err != nil {
					return err
				}
			}
		}
		state[name] = done
		if def.Computed() {
			order = append(order, name)
		}
		return nil
	}

	for _, name := range s.FieldOrder {
		if err := visit(name); err != nil {
			return nil, err
		}
	}
	return order, nil
}

// Dependents returns every field whose depends_on list names the given field,
// in declaration order.
func (s *Schema) Dependents(field string) []string {
	var out []string
	for _, name := range s.FieldOrder {
		for _, dep := range s.Fields[name].DependsOn {
			if dep == field {
				out = append(out, name)
				break
			}
		}
	}
	return out
}
