// Package format provides display formatting for form values: a closed
// registry of named formatters applied when exporting data for rendering.
// Formatting never mutates the stored value — the engine keeps raw values in
// the data bag and formats on the way out.
package format

import (
	"log"
	"strconv"
	"strings"
)

// Func normalizes a raw string value for display.
type Func func(string) string

// Manager is the formatter registry. Construct one per application (or per
// test) with NewManager and inject it — there is no package-level instance.
type Manager struct {
	formatters map[string]Func
}

// NewManager creates a manager with the full built-in formatter set.
func NewManager() *Manager {
	m := &Manager{formatters: make(map[string]Func)}
	m.formatters["uppercase"] = strings.ToUpper
	m.formatters["lowercase"] = strings.ToLower
	m.formatters["capitalize"] = capitalize
	m.formatters["email"] = func(s string) string { return strings.ToLower(strings.TrimSpace(s)) }
	m.formatters["phone"] = phoneDE
	m.formatters["currency"] = currencyDE
	m.formatters["date"] = dateDE
	m.formatters["plz"] = plz
	m.formatters["ustid"] = ustID
	m.formatters["iban"] = iban
	return m
}

// Format applies the named formatter to value. An unknown format type is
// logged and the value returned unchanged — formatting problems must never
// surface to the user as an error.
func (m *Manager) Format(value, formatType string) string {
	f, ok := m.formatters[formatType]
	if !ok {
		log.Printf("format: unknown format type %q", formatType)
		return value
	}
	return f(value)
}

// Known reports whether a format type is registered.
func (m *Manager) Known(formatType string) bool {
	_, ok := m.formatters[formatType]
	return ok
}

// ForFieldType maps a field's semantic type and locale to a default formatter
// name. "" means the field has no auto-format.
func (m *Manager) ForFieldType(fieldType, country string) string {
	switch fieldType {
	case "currency":
		return "currency"
	case "date":
		return "date"
	case "phone":
		if strings.EqualFold(country, "DE") || country == "" {
			return "phone"
		}
		return ""
	case "email":
		return "email"
	default:
		return ""
	}
}

// ── formatters ──────────────────────────────────────────────────────────────

func capitalize(s string) string {
	words := strings.Fields(s)
	for i, w := range words {
		r := []rune(w)
		words[i] = strings.ToUpper(string(r[0])) + strings.ToLower(string(r[1:]))
	}
	return strings.Join(words, " ")
}

// phoneDE applies coarse German grouping: the dialing prefix (or a
// three-digit area block) is separated from the subscriber number.
func phoneDE(s string) string {
	var b strings.Builder
	for i, r := range s {
		if r >= '0' && r <= '9' || (r == '+' && i == 0) {
			b.WriteRune(r)
		}
	}
	digits := b.String()
	switch {
	case strings.HasPrefix(digits, "+49"):
		rest := digits[3:]
		if len(rest) <= 3 {
			return "+49 " + rest
		}
		return "+49 " + rest[:2] + " " + rest[2:]
	case strings.HasPrefix(digits, "0") && len(digits) > 4:
		return digits[:3] + " " + digits[3:]
	default:
		return digits
	}
}

// currencyDE renders a numeric string as a German-style amount with two
// decimals, thousands separators, and the euro sign. Non-numeric input is
// returned unchanged.
func currencyDE(s string) string {
	cleaned := strings.TrimSpace(strings.TrimSuffix(strings.TrimSpace(s), "€"))
	// Canonical machine form first ("1234.56"), then German-style input
	// ("1.234,56") with its separators normalized.
	n, err := strconv.ParseFloat(cleaned, 64)
	if err != nil {
		german := strings.ReplaceAll(cleaned, ".", "")
		german = strings.ReplaceAll(german, ",", ".")
		n, err = strconv.ParseFloat(german, 64)
		if err != nil {
			return s
		}
	}

	whole := strconv.FormatFloat(n, 'f', 2, 64)
	intPart, decPart, _ := strings.Cut(whole, ".")

	neg := strings.HasPrefix(intPart, "-")
	intPart = strings.TrimPrefix(intPart, "-")
	var groups []string
	for len(intPart) > 3 {
		groups = append([]string{intPart[len(intPart)-3:]}, groups...)
		intPart = intPart[:len(intPart)-3]
	}
	groups = append([]string{intPart}, groups...)

	out := strings.Join(groups, ".") + "," + decPart + " €"
	if neg {
		out = "-" + out
	}
	return out
}

// dateDE groups digits into DD.MM.YYYY, tolerating partial input.
func dateDE(s string) string {
	digits := keepDigits(s)
	if len(digits) > 8 {
		digits = digits[:8]
	}
	switch {
	case len(digits) <= 2:
		return digits
	case len(digits) <= 4:
		return digits[:2] + "." + digits[2:]
	default:
		return digits[:2] + "." + digits[2:4] + "." + digits[4:]
	}
}

// plz truncates to the five digits of a German postal code.
func plz(s string) string {
	digits := keepDigits(s)
	if len(digits) > 5 {
		digits = digits[:5]
	}
	return digits
}

// ustID strips everything but alphanumerics and uppercases (DE123456789).
func ustID(s string) string {
	return keepAlnum(strings.ToUpper(s))
}

// iban uppercases, strips separators, and regroups in blocks of four.
func iban(s string) string {
	compact := keepAlnum(strings.ToUpper(s))
	var groups []string
	for len(compact) > 4 {
		groups = append(groups, compact[:4])
		compact = compact[4:]
	}
	groups = append(groups, compact)
	return strings.Join(groups, " ")
}

func keepDigits(s string) string {
	var b strings.Builder
	for _, r := range s {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}

func keepAlnum(s string) string {
	var b strings.Builder
	for _, r := range s {
		if r >= '0' && r <= '9' || r >= 'A' && r <= 'Z' || r >= 'a' && r <= 'z' {
			b.WriteRune(r)
		}
	}
	return b.String()
}
