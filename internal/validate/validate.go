// Package validate implements per-field and whole-form validation over a
// schema and a data bag, plus a standalone declarative validator battery.
//
// Validation failures are values, not errors: they come back as German
// user-facing messages keyed by field, and nothing in this package ever
// panics or returns a Go error for bad user input.
package validate

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/mbeckert/formwerk/internal/schema"
)

// Messages. The wizard UI renders these verbatim.
const (
	MsgRequired      = "Dieses Feld ist erforderlich"
	MsgEmail         = "Bitte geben Sie eine gültige E-Mail-Adresse ein"
	MsgPhone         = "Bitte geben Sie eine gültige Telefonnummer ein"
	MsgURL           = "Bitte geben Sie eine gültige URL ein"
	MsgNumber        = "Bitte geben Sie eine gültige Zahl ein"
	MsgPatternFallbk = "Ungültiges Format"
)

var (
	// RFC-light: something@something.tld, no whitespace.
	emailRe = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)
	// Loose international phone: optional +, digits with common separators.
	phoneRe = regexp.MustCompile(`^\+?[0-9][0-9 ()\/.-]{4,19}$`)
	urlRe   = regexp.MustCompile(`^https?://[^\s]+\.[^\s]+$`)
)

// Field validates a single value against its field definition and returns
// all applicable messages, in rule order. An empty required field reports
// only the required message — remaining checks are skipped. An empty
// optional field reports nothing: constraints apply to present values only.
func Field(def *schema.FieldDef, value any) []string {
	if valueEmpty(value) {
		if def.Required {
			return []string{MsgRequired}
		}
		return nil
	}

	var errs []string
	str := valueString(value)

	switch def.Type {
	case schema.FieldEmail:
		if !emailRe.MatchString(str) {
			errs = append(errs, MsgEmail)
		}
	case schema.FieldPhone:
		if !phoneRe.MatchString(str) {
			errs = append(errs, MsgPhone)
		}
	}

	if def.Minimum != nil || def.Maximum != nil {
		if n, ok := valueNumber(value); ok {
			if def.Minimum != nil && n < *def.Minimum {
				errs = append(errs, fmt.Sprintf("Der Wert muss mindestens %s sein", trimFloat(*def.Minimum)))
			}
			if def.Maximum != nil && n > *def.Maximum {
				errs = append(errs, fmt.Sprintf("Der Wert darf höchstens %s sein", trimFloat(*def.Maximum)))
			}
		} else {
			errs = append(errs, MsgNumber)
		}
	}

	if def.Pattern != nil && !def.Pattern.MatchString(str) {
		msg := def.PatternMessage
		if msg == "" {
			msg = MsgPatternFallbk
		}
		errs = append(errs, msg)
	}

	if def.MinLength > 0 && len([]rune(str)) < def.MinLength {
		errs = append(errs, fmt.Sprintf("Mindestens %d Zeichen erforderlich", def.MinLength))
	}
	if def.MaxLength > 0 && len([]rune(str)) > def.MaxLength {
		errs = append(errs, fmt.Sprintf("Höchstens %d Zeichen erlaubt", def.MaxLength))
	}

	return errs
}

// All validates the given fields of a data bag and returns the complete error
// map. Fields without errors are absent from the map. The result depends only
// on the inputs — calling it twice yields equal maps.
func All(s *schema.Schema, data map[string]any, fields []string) map[string][]string {
	if fields == nil {
		fields = s.FieldOrder
	}
	out := make(map[string][]string)
	for _, name := range fields {
		def := s.Field(name)
		if def == nil {
			continue
		}
		if errs := Field(def, data[name]); len(errs) > 0 {
			out[name] = errs
		}
	}
	return out
}

// ── value coercion ──────────────────────────────────────────────────────────

func valueEmpty(v any) bool {
	switch t := v.(type) {
	case nil:
		return true
	case string:
		return strings.TrimSpace(t) == ""
	case bool:
		return !t
	case []any:
		return len(t) == 0
	case []string:
		return len(t) == 0
	default:
		return false
	}
}

func valueString(v any) string {
	switch s := v.(type) {
	case string:
		return s
	case nil:
		return ""
	case float64:
		return strconv.FormatFloat(s, 'f', -1, 64)
	default:
		return fmt.Sprintf("%v", v)
	}
}

func valueNumber(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case string:
		f, err := strconv.ParseFloat(strings.ReplaceAll(strings.TrimSpace(n), ",", "."), 64)
		if err != nil {
			return 0, false
		}
		return f, true
	default:
		return 0, false
	}
}

func trimFloat(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}
