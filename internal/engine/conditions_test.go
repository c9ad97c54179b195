package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/mbeckert/formwerk/internal/schema"
)

func condField(conds ...schema.Condition) *schema.FieldDef {
	return &schema.FieldDef{Name: "detail", Type: schema.FieldText, Conditions: conds}
}

func TestIsVisible_NoConditions(t *testing.T) {
	assert.True(t, IsVisible(condField(), nil))
	assert.True(t, IsVisible(condField(), map[string]any{"x": 1}))
}

func TestIsVisible_Equals(t *testing.T) {
	def := condField(schema.Condition{DependsOn: "mode", Operator: schema.OpEquals, Value: "advanced"})

	assert.True(t, IsVisible(def, map[string]any{"mode": "advanced"}))
	assert.False(t, IsVisible(def, map[string]any{"mode": "simple"}))
	assert.False(t, IsVisible(def, map[string]any{}), "absent value does not equal")
}

func TestIsVisible_EqualsNumericCoercion(t *testing.T) {
	def := condField(schema.Condition{DependsOn: "count", Operator: schema.OpEquals, Value: 5})
	assert.True(t, IsVisible(def, map[string]any{"count": "5"}), `"5" equals 5`)
	assert.True(t, IsVisible(def, map[string]any{"count": 5.0}))
	assert.False(t, IsVisible(def, map[string]any{"count": "6"}))
}

func TestIsVisible_NotEquals(t *testing.T) {
	def := condField(schema.Condition{DependsOn: "mode", Operator: schema.OpNotEquals, Value: "simple"})
	assert.True(t, IsVisible(def, map[string]any{"mode": "advanced"}))
	assert.True(t, IsVisible(def, map[string]any{}), "absent value differs from the target")
	assert.False(t, IsVisible(def, map[string]any{"mode": "simple"}))
}

func TestIsVisible_Contains(t *testing.T) {
	def := condField(schema.Condition{DependsOn: "tags", Operator: schema.OpContains, Value: "b"})

	assert.True(t, IsVisible(def, map[string]any{"tags": []any{"a", "b"}}))
	assert.True(t, IsVisible(def, map[string]any{"tags": []string{"b"}}))
	assert.True(t, IsVisible(def, map[string]any{"tags": "abc"}), "string containment")
	assert.False(t, IsVisible(def, map[string]any{"tags": []any{"a", "c"}}))
}

func TestIsVisible_GreaterLess(t *testing.T) {
	gt := condField(schema.Condition{DependsOn: "n", Operator: schema.OpGreaterThan, Value: 10})
	assert.True(t, IsVisible(gt, map[string]any{"n": 11}))
	assert.True(t, IsVisible(gt, map[string]any{"n": "10,5"}), "comma decimals compare numerically")
	assert.False(t, IsVisible(gt, map[string]any{"n": 10}))
	assert.False(t, IsVisible(gt, map[string]any{"n": "abc"}), "non-numeric never compares greater")

	lt := condField(schema.Condition{DependsOn: "n", Operator: schema.OpLessThan, Value: 10})
	assert.True(t, IsVisible(lt, map[string]any{"n": 9}))
	assert.False(t, IsVisible(lt, map[string]any{"n": nil}))
}

func TestIsVisible_In(t *testing.T) {
	def := condField(schema.Condition{DependsOn: "city", Operator: schema.OpIn, Value: []any{"Berlin", "Hamburg"}})
	assert.True(t, IsVisible(def, map[string]any{"city": "Berlin"}))
	assert.False(t, IsVisible(def, map[string]any{"city": "Bonn"}))
	assert.False(t, IsVisible(def, map[string]any{}))
}

func TestIsVisible_AndSemantics(t *testing.T) {
	def := condField(
		schema.Condition{DependsOn: "a", Operator: schema.OpEquals, Value: "x"},
		schema.Condition{DependsOn: "b", Operator: schema.OpGreaterThan, Value: 0},
	)
	assert.True(t, IsVisible(def, map[string]any{"a": "x", "b": 1}))
	assert.False(t, IsVisible(def, map[string]any{"a": "x", "b": 0}))
	assert.False(t, IsVisible(def, map[string]any{"a": "y", "b": 1}))
}

func TestIsVisible_UnknownOperatorPermissive(t *testing.T) {
	def := condField(
		schema.Condition{DependsOn: "a", Operator: schema.OpUnknown, Value: "whatever"},
	)
	assert.True(t, IsVisible(def, map[string]any{}), "unknown operator keeps the field visible")
	assert.True(t, IsVisible(def, map[string]any{"a": "anything"}))
}

func TestVisibleFields_DeclarationOrder(t *testing.T) {
	s := &schema.Schema{Name: "t"}
	s.AddField(&schema.FieldDef{Name: "first", Type: schema.FieldText})
	s.AddField(&schema.FieldDef{Name: "gated", Type: schema.FieldText, Conditions: []schema.Condition{
		{DependsOn: "first", Operator: schema.OpEquals, Value: "go"},
	}})
	s.AddField(&schema.FieldDef{Name: "last", Type: schema.FieldText})

	assert.Equal(t, []string{"first", "last"}, VisibleFields(s, map[string]any{}))
	assert.Equal(t, []string{"first", "gated", "last"}, VisibleFields(s, map[string]any{"first": "go"}))
}

func TestVisibleFields_PureFunction(t *testing.T) {
	s := &schema.Schema{Name: "t"}
	s.AddField(&schema.FieldDef{Name: "a", Type: schema.FieldText})
	data := map[string]any{"a": "v"}

	first := VisibleFields(s, data)
	second := VisibleFields(s, data)
	assert.Equal(t, first, second)
	assert.Equal(t, map[string]any{"a": "v"}, data, "visibility never mutates the data bag")
}
