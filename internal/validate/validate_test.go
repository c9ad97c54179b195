package validate

import (
	"regexp"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mbeckert/formwerk/internal/schema"
)

func f64(v float64) *float64 { return &v }

func TestField_RequiredShortCircuits(t *testing.T) {
	def := &schema.FieldDef{
		Name:      "email",
		Type:      schema.FieldEmail,
		Required:  true,
		MinLength: 5,
	}

	for _, empty := range []any{nil, "", "   ", false, []any{}, []string{}} {
		errs := Field(def, empty)
		assert.Equal(t, []string{MsgRequired}, errs, "value %#v reports only the required message", empty)
	}
}

func TestField_OptionalEmptyIsValid(t *testing.T) {
	def := &schema.FieldDef{Name: "email", Type: schema.FieldEmail, MinLength: 5}
	assert.Empty(t, Field(def, nil))
	assert.Empty(t, Field(def, "  "))
}

func TestField_Email(t *testing.T) {
	def := &schema.FieldDef{Name: "email", Type: schema.FieldEmail}

	assert.Empty(t, Field(def, "anna@example.de"))
	assert.Equal(t, []string{MsgEmail}, Field(def, "anna@example"))
	assert.Equal(t, []string{MsgEmail}, Field(def, "anna example@x.de"))
}

func TestField_Phone(t *testing.T) {
	def := &schema.FieldDef{Name: "phone", Type: schema.FieldPhone}

	assert.Empty(t, Field(def, "+49 30 1234567"))
	assert.Empty(t, Field(def, "030/123456"))
	assert.Equal(t, []string{MsgPhone}, Field(def, "abc"))
}

func TestField_Bounds(t *testing.T) {
	def := &schema.FieldDef{Name: "rent", Type: schema.FieldCurrency, Minimum: f64(0), Maximum: f64(10000)}

	assert.Empty(t, Field(def, 850))
	assert.Empty(t, Field(def, "850,50"), "comma decimals are numeric")
	assert.Equal(t, []string{"Der Wert muss mindestens 0 sein"}, Field(def, -1))
	assert.Equal(t, []string{"Der Wert darf höchstens 10000 sein"}, Field(def, 10001))
	assert.Equal(t, []string{MsgNumber}, Field(def, "viel"), "bounded fields must be numeric")
}

func TestField_Pattern(t *testing.T) {
	def := &schema.FieldDef{
		Name:           "plz",
		Type:           schema.FieldText,
		Pattern:        regexp.MustCompile(`^[0-9]{5}$`),
		PatternMessage: "Bitte eine gültige Postleitzahl eingeben",
	}
	assert.Empty(t, Field(def, "10969"))
	assert.Equal(t, []string{"Bitte eine gültige Postleitzahl eingeben"}, Field(def, "1096"))

	def.PatternMessage = ""
	assert.Equal(t, []string{MsgPatternFallbk}, Field(def, "1096"))
}

func TestField_LengthCountsRunes(t *testing.T) {
	def := &schema.FieldDef{Name: "name", Type: schema.FieldText, MinLength: 4, MaxLength: 6}

	assert.Empty(t, Field(def, "Müller"), "six runes despite more bytes")
	assert.Equal(t, []string{"Mindestens 4 Zeichen erforderlich"}, Field(def, "Öl"))
	assert.Equal(t, []string{"Höchstens 6 Zeichen erlaubt"}, Field(def, "Übermäßig"))
}

func TestField_CollectsMultipleMessages(t *testing.T) {
	def := &schema.FieldDef{
		Name:      "email",
		Type:      schema.FieldEmail,
		Pattern:   regexp.MustCompile(`\.de$`),
		MinLength: 20,
	}
	errs := Field(def, "kurz@x")
	require.Len(t, errs, 3)
	assert.Equal(t, MsgEmail, errs[0], "messages keep rule order")
}

func TestAll(t *testing.T) {
	s := &schema.Schema{Name: "t"}
	s.AddField(&schema.FieldDef{Name: "name", Type: schema.FieldText, Required: true})
	s.AddField(&schema.FieldDef{Name: "email", Type: schema.FieldEmail})
	s.AddField(&schema.FieldDef{Name: "note", Type: schema.FieldTextarea})

	data := map[string]any{"email": "broken"}
	errs := All(s, data, nil)
	assert.Len(t, errs, 2)
	assert.Contains(t, errs, "name")
	assert.Contains(t, errs, "email")
	assert.NotContains(t, errs, "note", "valid fields are absent, not empty")

	assert.Equal(t, errs, All(s, data, nil), "identical inputs yield identical maps")
}

func TestAll_FieldSubset(t *testing.T) {
	s := &schema.Schema{Name: "t"}
	s.AddField(&schema.FieldDef{Name: "name", Type: schema.FieldText, Required: true})
	s.AddField(&schema.FieldDef{Name: "email", Type: schema.FieldEmail, Required: true})

	errs := All(s, map[string]any{}, []string{"name", "ghost"})
	assert.Contains(t, errs, "name")
	assert.NotContains(t, errs, "email", "out-of-subset fields are skipped")
	assert.NotContains(t, errs, "ghost", "unknown names are ignored")
}
