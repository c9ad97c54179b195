package engine

import (
	"strings"

	"github.com/mbeckert/formwerk/internal/schema"
)

// IsVisible reports whether a field is currently shown, given the data bag.
// A field with no conditions is always visible; otherwise every condition
// must hold. Visibility is a pure function of the data — it never reads
// errors or touched state.
func IsVisible(def *schema.FieldDef, data map[string]any) bool {
	for _, c := range def.Conditions {
		if !conditionHolds(c, data) {
			return false
		}
	}
	return true
}

// VisibleFields returns the names of all visible fields in declaration order.
// This is the user-facing field set and the denominator for progress.
func VisibleFields(s *schema.Schema, data map[string]any) []string {
	out := make([]string, 0, len(s.FieldOrder))
	for _, name := range s.FieldOrder {
		if IsVisible(s.Fields[name], data) {
			out = append(out, name)
		}
	}
	return out
}

func conditionHolds(c schema.Condition, data map[string]any) bool {
	actual := data[c.DependsOn]

	switch c.Operator {
	case schema.OpEquals:
		return equalValues(actual, c.Value)
	case schema.OpNotEquals:
		return !equalValues(actual, c.Value)
	case schema.OpContains:
		return containsValue(actual, c.Value)
	case schema.OpGreaterThan:
		a, aok := toNumber(actual)
		b, bok := toNumber(c.Value)
		return aok && bok && a > b
	case schema.OpLessThan:
		a, aok := toNumber(actual)
		b, bok := toNumber(c.Value)
		return aok && bok && a < b
	case schema.OpIn:
		return memberOf(c.Value, actual)
	default:
		// Unknown operator: permissive, the field is shown rather than hidden.
		return true
	}
}

// containsValue handles both string containment and slice membership, since
// multi-select fields store their value as a slice.
func containsValue(actual, want any) bool {
	switch a := actual.(type) {
	case []any:
		for _, item := range a {
			if equalValues(item, want) {
				return true
			}
		}
		return false
	case []string:
		for _, item := range a {
			if equalValues(item, want) {
				return true
			}
		}
		return false
	default:
		return strings.Contains(toString(actual), toString(want))
	}
}

// memberOf reports whether actual appears in the condition's value list.
func memberOf(list, actual any) bool {
	switch l := list.(type) {
	case []any:
		for _, item := range l {
			if equalValues(actual, item) {
				return true
			}
		}
	case []string:
		for _, item := range l {
			if equalValues(actual, item) {
				return true
			}
		}
	}
	return false
}
