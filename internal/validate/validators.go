package validate

import (
	"fmt"
	"log"
)

// Validator checks one value and returns a message, or "" when the value
// passes. Validators never mutate their input.
type Validator func(value any) string

// Rule is a declarative validation entry: a named validator plus its
// parameter. Schema-declared validations: [{type, value}] lists map onto it.
type Rule struct {
	Type    string `json:"type"`
	Value   any    `json:"value,omitempty"`
	Message string `json:"message,omitempty"`
}

// Run evaluates rules in order against value and returns the first failing
// message. "" means the value passed every rule. Unknown rule types are
// skipped with a warning — a typo in a schema must not block the user.
func Run(rules []Rule, value any) string {
	for _, r := range rules {
		v, ok := buildValidator(r)
		if !ok {
			log.Printf("validate: unknown rule type %q", r.Type)
			continue
		}
		if msg := v(value); msg != "" {
			if r.Message != "" {
				return r.Message
			}
			return msg
		}
	}
	return ""
}

func buildValidator(r Rule) (Validator, bool) {
	switch r.Type {
	case "required":
		return Required(), true
	case "email":
		return Email(), true
	case "phone":
		return Phone(), true
	case "url":
		return URL(), true
	case "number":
		return Number(), true
	case "minLength":
		n, _ := valueNumber(r.Value)
		return MinLength(int(n)), true
	case "maxLength":
		n, _ := valueNumber(r.Value)
		return MaxLength(int(n)), true
	case "minimum":
		n, _ := valueNumber(r.Value)
		return Minimum(n), true
	case "maximum":
		n, _ := valueNumber(r.Value)
		return Maximum(n), true
	default:
		return nil, false
	}
}

// Required fails on empty values.
func Required() Validator {
	return func(v any) string {
		if valueEmpty(v) {
			return MsgRequired
		}
		return ""
	}
}

// Email validates present values against the RFC-light address pattern.
func Email() Validator {
	return presentOnly(func(s string) string {
		if !emailRe.MatchString(s) {
			return MsgEmail
		}
		return ""
	})
}

// Phone validates present values against the loose international pattern.
func Phone() Validator {
	return presentOnly(func(s string) string {
		if !phoneRe.MatchString(s) {
			return MsgPhone
		}
		return ""
	})
}

// URL validates present values as http(s) URLs.
func URL() Validator {
	return presentOnly(func(s string) string {
		if !urlRe.MatchString(s) {
			return MsgURL
		}
		return ""
	})
}

// Number requires a numeric reading for present values.
func Number() Validator {
	return func(v any) string {
		if valueEmpty(v) {
			return ""
		}
		if _, ok := valueNumber(v); !ok {
			return MsgNumber
		}
		return ""
	}
}

// MinLength requires at least n characters for present values.
func MinLength(n int) Validator {
	return presentOnly(func(s string) string {
		if len([]rune(s)) < n {
			return fmt.Sprintf("Mindestens %d Zeichen erforderlich", n)
		}
		return ""
	})
}

// MaxLength allows at most n characters.
func MaxLength(n int) Validator {
	return presentOnly(func(s string) string {
		if len([]rune(s)) > n {
			return fmt.Sprintf("Höchstens %d Zeichen erlaubt", n)
		}
		return ""
	})
}

// Minimum requires a numeric value of at least min.
func Minimum(min float64) Validator {
	return func(v any) string {
		if valueEmpty(v) {
			return ""
		}
		n, ok := valueNumber(v)
		if !ok {
			return MsgNumber
		}
		if n < min {
			return fmt.Sprintf("Der Wert muss mindestens %s sein", trimFloat(min))
		}
		return ""
	}
}

// Maximum requires a numeric value of at most max.
func Maximum(max float64) Validator {
	return func(v any) string {
		if valueEmpty(v) {
			return ""
		}
		n, ok := valueNumber(v)
		if !ok {
			return MsgNumber
		}
		if n > max {
			return fmt.Sprintf("Der Wert darf höchstens %s sein", trimFloat(max))
		}
		return ""
	}
}

// Custom wraps an arbitrary check function as a Validator.
func Custom(fn func(any) string) Validator {
	return func(v any) string {
		return fn(v)
	}
}

// presentOnly lifts a string check into a Validator that passes empty values
// through — presence is the required validator's job.
func presentOnly(check func(string) string) Validator {
	return func(v any) string {
		if valueEmpty(v) {
			return ""
		}
		return check(valueString(v))
	}
}
