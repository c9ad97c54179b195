package format

import (
	"testing"
)

func TestFormat_UnknownTypeUnchanged(t *testing.T) {
	m := NewManager()
	if got := m.Format("wert", "no_such_format"); got != "wert" {
		t.Errorf("Format = %q, want unchanged input", got)
	}
}

func TestKnown(t *testing.T) {
	m := NewManager()
	for _, name := range []string{"uppercase", "lowercase", "capitalize", "email", "phone", "currency", "date", "plz", "ustid", "iban"} {
		if !m.Known(name) {
			t.Errorf("Known(%q) = false", name)
		}
	}
	if m.Known("zip") {
		t.Error("Known(zip) = true")
	}
}

func TestForFieldType(t *testing.T) {
	m := NewManager()
	cases := []struct {
		fieldType, country, want string
	}{
		{"currency", "DE", "currency"},
		{"date", "DE", "date"},
		{"phone", "DE", "phone"},
		{"phone", "de", "phone"},
		{"phone", "", "phone"},
		{"phone", "FR", ""},
		{"email", "DE", "email"},
		{"text", "DE", ""},
	}
	for _, tc := range cases {
		if got := m.ForFieldType(tc.fieldType, tc.country); got != tc.want {
			t.Errorf("ForFieldType(%q, %q) = %q, want %q", tc.fieldType, tc.country, got, tc.want)
		}
	}
}

func TestCapitalize(t *testing.T) {
	m := NewManager()
	if got := m.Format("anna maria SCHMIDT", "capitalize"); got != "Anna Maria Schmidt" {
		t.Errorf("capitalize = %q", got)
	}
}

func TestEmailFormat(t *testing.T) {
	m := NewManager()
	if got := m.Format("  Anna@Example.DE ", "email"); got != "anna@example.de" {
		t.Errorf("email = %q", got)
	}
}

func TestPhoneDE(t *testing.T) {
	m := NewManager()
	cases := []struct{ in, want string }{
		{"+4930123456", "+49 30 123456"},
		{"+49 (30) 123-456", "+49 30 123456"},
		{"030123456", "030 123456"},
		{"123", "123"},
	}
	for _, tc := range cases {
		if got := m.Format(tc.in, "phone"); got != tc.want {
			t.Errorf("phone(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestCurrencyDE(t *testing.T) {
	m := NewManager()
	cases := []struct{ in, want string }{
		{"1234.56", "1.234,56 €"},
		{"1234.5", "1.234,50 €"},
		{"1.234,56", "1.234,56 €"},
		{"850", "850,00 €"},
		{"1234567", "1.234.567,00 €"},
		{"-1234.5", "-1.234,50 €"},
		{"850 €", "850,00 €"},
		{"keine Zahl", "keine Zahl"},
	}
	for _, tc := range cases {
		if got := m.Format(tc.in, "currency"); got != tc.want {
			t.Errorf("currency(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestDateDE(t *testing.T) {
	m := NewManager()
	cases := []struct{ in, want string }{
		{"01012024", "01.01.2024"},
		{"01.01.2024", "01.01.2024"},
		{"0101", "01.01"},
		{"01", "01"},
		{"010120249999", "01.01.2024"},
	}
	for _, tc := range cases {
		if got := m.Format(tc.in, "date"); got != tc.want {
			t.Errorf("date(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestPLZ(t *testing.T) {
	m := NewManager()
	if got := m.Format("10969 Berlin", "plz"); got != "10969" {
		t.Errorf("plz = %q", got)
	}
	if got := m.Format("109", "plz"); got != "109" {
		t.Errorf("plz partial = %q", got)
	}
}

func TestUstID(t *testing.T) {
	m := NewManager()
	if got := m.Format("de 123/456 789", "ustid"); got != "DE123456789" {
		t.Errorf("ustid = %q", got)
	}
}

func TestIBAN(t *testing.T) {
	m := NewManager()
	if got := m.Format("de89370400440532013000", "iban"); got != "DE89 3704 0044 0532 0130 00" {
		t.Errorf("iban = %q", got)
	}
	if got := m.Format("DE89", "iban"); got != "DE89" {
		t.Errorf("short iban = %q", got)
	}
}
