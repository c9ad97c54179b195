package schema

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseFieldType(t *testing.T) {
	for _, name := range []string{"text", "email", "phone", "number", "currency", "date", "select", "textarea", "file", "checkbox"} {
		ft, err := ParseFieldType(name)
		require.NoError(t, err, name)
		assert.Equal(t, name, ft.String())
	}

	_, err := ParseFieldType("dropdown")
	assert.Error(t, err)
}

func TestFieldType_Numeric(t *testing.T) {
	assert.True(t, FieldNumber.Numeric())
	assert.True(t, FieldCurrency.Numeric())
	assert.False(t, FieldText.Numeric())
	assert.False(t, FieldDate.Numeric())
}

func TestParseOperator_UnknownIsPermissive(t *testing.T) {
	assert.Equal(t, OpEquals, ParseOperator("equals"))
	assert.Equal(t, OpEquals, ParseOperator(""))
	assert.Equal(t, OpNotEquals, ParseOperator("not_equals"))
	assert.Equal(t, OpIn, ParseOperator("in"))

	// Typos map to OpUnknown, never an error.
	assert.Equal(t, OpUnknown, ParseOperator("equalz"))
	assert.Equal(t, OpUnknown, ParseOperator("matches_regex"))
}

func TestParseComputeKind(t *testing.T) {
	for _, name := range []string{"sum", "multiply", "template"} {
		ck, err := ParseComputeKind(name)
		require.NoError(t, err)
		assert.Equal(t, name, ck.String())
	}
	_, err := ParseComputeKind("concat")
	assert.Error(t, err)
}

func TestFieldDef_Computed(t *testing.T) {
	def := &FieldDef{Name: "total", Compute: &ComputeRule{Kind: ComputeSum, Fields: []string{"a"}}}
	assert.False(t, def.Computed(), "compute rule without depends_on is inert")

	def.DependsOn = []string{"a"}
	assert.True(t, def.Computed())
}

func chainSchema() *Schema {
	// quantity -> subtotal -> total, declared out of dependency order on
	// purpose so ComputeOrder has to do real work.
	s := &Schema{Name: "order"}
	s.AddField(&FieldDef{
		Name:      "total",
		Type:      FieldNumber,
		DependsOn: []string{"subtotal", "fee"},
		Compute:   &ComputeRule{Kind: ComputeSum, Fields: []string{"subtotal", "fee"}},
	})
	s.AddField(&FieldDef{
		Name:      "subtotal",
		Type:      FieldNumber,
		DependsOn: []string{"quantity", "price"},
		Compute:   &ComputeRule{Kind: ComputeMultiply, Fields: []string{"quantity", "price"}},
	})
	s.AddField(&FieldDef{Name: "quantity", Type: FieldNumber})
	s.AddField(&FieldDef{Name: "price", Type: FieldNumber})
	s.AddField(&FieldDef{Name: "fee", Type: FieldNumber})
	return s
}

func TestComputeOrder_Chain(t *testing.T) {
	s := chainSchema()
	order, err := s.ComputeOrder()
	require.NoError(t, err)
	assert.Equal(t, []string{"subtotal", "total"}, order)
}

func TestComputeOrder_CycleRejected(t *testing.T) {
	s := &Schema{Name: "loop"}
	s.AddField(&FieldDef{
		Name:      "a",
		Type:      FieldNumber,
		DependsOn: []string{"b"},
		Compute:   &ComputeRule{Kind: ComputeSum, Fields: []string{"b"}},
	})
	s.AddField(&FieldDef{
		Name:      "b",
		Type:      FieldNumber,
		DependsOn: []string{"a"},
		Compute:   &ComputeRule{Kind: ComputeSum, Fields: []string{"a"}},
	})

	_, err := s.ComputeOrder()
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrComputeCycle))

	assert.Error(t, s.Validate(), "Validate must reject cyclic schemas too")
}

func TestSchema_Validate(t *testing.T) {
	s := chainSchema()
	require.NoError(t, s.Validate())

	bad := &Schema{Name: "bad"}
	bad.AddField(&FieldDef{
		Name: "detail",
		Type: FieldText,
		Conditions: []Condition{
			{DependsOn: "ghost", Operator: OpEquals, Value: "x"},
		},
	})
	assert.Error(t, bad.Validate(), "condition on undeclared field")

	bad2 := &Schema{Name: "bad2"}
	bad2.AddField(&FieldDef{
		Name:    "sum",
		Type:    FieldNumber,
		Compute: &ComputeRule{Kind: ComputeSum, Fields: []string{"a"}},
	})
	bad2.AddField(&FieldDef{Name: "a", Type: FieldNumber})
	assert.Error(t, bad2.Validate(), "compute rule without depends_on")
}

func TestSchema_Dependents(t *testing.T) {
	s := chainSchema()
	assert.Equal(t, []string{"subtotal"}, s.Dependents("quantity"))
	assert.Equal(t, []string{"total"}, s.Dependents("subtotal"))
	assert.Empty(t, s.Dependents("total"))
}

func TestRegistry(t *testing.T) {
	reg := NewRegistry()
	s := chainSchema()
	require.NoError(t, reg.Register(s))

	got, err := reg.Template("order")
	require.NoError(t, err)
	assert.Same(t, s, got)

	assert.Error(t, reg.Register(chainSchema()), "duplicate name")

	_, err = reg.Template("missing")
	assert.True(t, errors.Is(err, ErrUnknownTemplate))

	reg2 := NewRegistry()
	b := &Schema{Name: "beta"}
	b.AddField(&FieldDef{Name: "x", Type: FieldText})
	a := &Schema{Name: "alpha"}
	a.AddField(&FieldDef{Name: "x", Type: FieldText})
	require.NoError(t, reg2.Register(b))
	require.NoError(t, reg2.Register(a))
	assert.Equal(t, []string{"alpha", "beta"}, reg2.TemplateNames(), "names are sorted")
}
