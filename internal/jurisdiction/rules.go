// Package jurisdiction checks document data against statutory limits of
// German tenancy law. Checks are advisory: a violation never blocks
// generation, it is surfaced to the user as a warning before they send
// a document a court would not uphold.
package jurisdiction

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/goccy/go-json"
)

// Rule types.
const (
	RuleSecurityDepositLimit = "security_deposit_limit"
	RuleRentIncreaseCap      = "rent_increase_cap"
	RuleNoticePeriod         = "notice_period"
	RuleLateFeeCap           = "late_fee_cap"
)

// SecurityDepositLimitDef is the JSON shape of a security_deposit_limit rule.
type SecurityDepositLimitDef struct {
	MaxMonths float64 `json:"max_months"`
}

// RentIncreaseCapDef is the JSON shape of a rent_increase_cap rule.
// TightMarketPercent applies in the listed cities (angespannte
// Wohnungsmärkte), MaxPercentIncrease everywhere else.
type RentIncreaseCapDef struct {
	MaxPercentIncrease float64  `json:"max_percent_increase"`
	TightMarketPercent float64  `json:"tight_market_percent,omitempty"`
	TightMarketCities  []string `json:"tight_market_cities,omitempty"`
}

// NoticePeriodDef is the JSON shape of a notice_period rule.
type NoticePeriodDef struct {
	MinMonths int `json:"min_months"`
}

// LateFeeCapDef is the JSON shape of a late_fee_cap rule.
type LateFeeCapDef struct {
	MaxAmount float64 `json:"max_amount"`
}

// Rule binds a rule definition to the templates it applies to.
// An empty Templates list applies the rule to every template.
type Rule struct {
	Type       string          `json:"rule_type"`
	Templates  []string        `json:"templates,omitempty"`
	StatuteRef string          `json:"statute_reference,omitempty"`
	Definition json.RawMessage `json:"definition"`
}

// Violation is one failed statutory check.
type Violation struct {
	RuleType    string `json:"rule_type"`
	StatuteRef  string `json:"statute_reference,omitempty"`
	Field       string `json:"field,omitempty"`
	Description string `json:"description"`
}

func (v Violation) Error() string {
	if v.StatuteRef != "" {
		return fmt.Sprintf("%s: %s [%s]", v.RuleType, v.Description, v.StatuteRef)
	}
	return fmt.Sprintf("%s: %s", v.RuleType, v.Description)
}

// Checker evaluates a rule set against document data.
type Checker struct {
	rules []Rule
}

// NewChecker creates a Checker over the given rules.
func NewChecker(rules []Rule) *Checker {
	return &Checker{rules: rules}
}

func mustMarshal(v any) json.RawMessage {
	b, _ := json.Marshal(v)
	return b
}

// DefaultRulesDE returns the built-in German rule set.
func DefaultRulesDE() []Rule {
	return []Rule{
		{
			Type:       RuleSecurityDepositLimit,
			Templates:  []string{"kautionsvereinbarung"},
			StatuteRef: "§ 551 Abs. 1 BGB",
			Definition: mustMarshal(SecurityDepositLimitDef{MaxMonths: 3}),
		},
		{
			Type:       RuleRentIncreaseCap,
			Templates:  []string{"mieterhoehung"},
			StatuteRef: "§ 558 Abs. 3 BGB",
			Definition: mustMarshal(RentIncreaseCapDef{
				MaxPercentIncrease: 20,
				TightMarketPercent: 15,
				TightMarketCities: []string{
					"Berlin", "Hamburg", "München", "Frankfurt am Main",
					"Stuttgart", "Köln",
				},
			}),
		},
		{
			Type:       RuleNoticePeriod,
			Templates:  []string{"kuendigung_vermieter"},
			StatuteRef: "§ 573c Abs. 1 BGB",
			Definition: mustMarshal(NoticePeriodDef{MinMonths: 3}),
		},
		{
			Type:       RuleLateFeeCap,
			Templates:  []string{"mietmahnung"},
			StatuteRef: "§ 286 BGB",
			Definition: mustMarshal(LateFeeCapDef{MaxAmount: 5}),
		},
	}
}

// Check evaluates all rules bound to the template against data and
// returns the violations found. The result is never nil.
func (c *Checker) Check(template string, data map[string]any) []Violation {
	violations := []Violation{}
	for _, rule := range c.rules {
		if !appliesTo(rule, template) {
			continue
		}
		var v *Violation
		switch rule.Type {
		case RuleSecurityDepositLimit:
			v = checkSecurityDeposit(rule, data)
		case RuleRentIncreaseCap:
			v = checkRentIncrease(rule, data)
		case RuleNoticePeriod:
			v = checkNoticePeriod(rule, data)
		case RuleLateFeeCap:
			v = checkLateFee(rule, data)
		}
		if v != nil {
			violations = append(violations, *v)
		}
	}
	return violations
}

func appliesTo(rule Rule, template string) bool {
	if len(rule.Templates) == 0 {
		return true
	}
	for _, t := range rule.Templates {
		if t == template {
			return true
		}
	}
	return false
}

func checkSecurityDeposit(rule Rule, data map[string]any) *Violation {
	var def SecurityDepositLimitDef
	if json.Unmarshal(rule.Definition, &def) != nil || def.MaxMonths <= 0 {
		return nil
	}
	deposit, ok := number(data, "kaution_betrag")
	if !ok {
		return nil
	}
	rent, ok := number(data, "monthly_rent")
	if !ok || rent <= 0 {
		return nil
	}
	limit := rent * def.MaxMonths
	if deposit > limit {
		return &Violation{
			RuleType:   rule.Type,
			StatuteRef: rule.StatuteRef,
			Field:      "kaution_betrag",
			Description: fmt.Sprintf("Kaution von %.2f € übersteigt das Dreifache der Monatsmiete (%.2f €)",
				deposit, limit),
		}
	}
	return nil
}

func checkRentIncrease(rule Rule, data map[string]any) *Violation {
	var def RentIncreaseCapDef
	if json.Unmarshal(rule.Definition, &def) != nil || def.MaxPercentIncrease <= 0 {
		return nil
	}
	current, ok := number(data, "current_rent")
	if !ok || current <= 0 {
		return nil
	}
	requested, ok := number(data, "requested_rent")
	if !ok {
		return nil
	}

	limit := def.MaxPercentIncrease
	if def.TightMarketPercent > 0 {
		city, _ := data["city"].(string)
		for _, c := range def.TightMarketCities {
			if strings.EqualFold(strings.TrimSpace(city), c) {
				limit = def.TightMarketPercent
				break
			}
		}
	}

	pct := (requested - current) / current * 100
	if pct > limit {
		return &Violation{
			RuleType:   rule.Type,
			StatuteRef: rule.StatuteRef,
			Field:      "requested_rent",
			Description: fmt.Sprintf("Mieterhöhung um %.1f %% überschreitet die Kappungsgrenze von %.0f %%",
				pct, limit),
		}
	}
	return nil
}

func checkNoticePeriod(rule Rule, data map[string]any) *Violation {
	var def NoticePeriodDef
	if json.Unmarshal(rule.Definition, &def) != nil || def.MinMonths <= 0 {
		return nil
	}
	// The statutory minimum applies to the ordentliche Kündigung only;
	// a fristlose Kündigung has no notice period.
	if typ, _ := data["termination_type"].(string); typ != "ordentlich" {
		return nil
	}
	raw, _ := data["termination_date"].(string)
	date, ok := parseDate(raw)
	if !ok {
		return nil
	}
	earliest := time.Now().AddDate(0, def.MinMonths, 0)
	if date.Before(earliest) {
		return &Violation{
			RuleType:   rule.Type,
			StatuteRef: rule.StatuteRef,
			Field:      "termination_date",
			Description: fmt.Sprintf("Kündigungstermin %s unterschreitet die gesetzliche Frist von %d Monaten",
				date.Format("02.01.2006"), def.MinMonths),
		}
	}
	return nil
}

func checkLateFee(rule Rule, data map[string]any) *Violation {
	var def LateFeeCapDef
	if json.Unmarshal(rule.Definition, &def) != nil || def.MaxAmount <= 0 {
		return nil
	}
	fee, ok := number(data, "mahngebuehr")
	if !ok {
		return nil
	}
	if fee > def.MaxAmount {
		return &Violation{
			RuleType:   rule.Type,
			StatuteRef: rule.StatuteRef,
			Field:      "mahngebuehr",
			Description: fmt.Sprintf("Mahngebühr von %.2f € übersteigt den als Verzugsschaden ersatzfähigen Betrag von %.2f €",
				fee, def.MaxAmount),
		}
	}
	return nil
}

// number coerces a field value to float64. Strings may use a German
// decimal comma.
func number(data map[string]any, field string) (float64, bool) {
	switch v := data[field].(type) {
	case float64:
		return v, true
	case int:
		return float64(v), true
	case string:
		s := strings.TrimSpace(strings.TrimSuffix(strings.TrimSpace(v), "€"))
		n, err := strconv.ParseFloat(s, 64)
		if err != nil {
			s = strings.ReplaceAll(strings.ReplaceAll(s, ".", ""), ",", ".")
			n, err = strconv.ParseFloat(s, 64)
			if err != nil {
				return 0, false
			}
		}
		return n, true
	default:
		return 0, false
	}
}

func parseDate(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	for _, layout := range []string{"02.01.2006", "2006-01-02"} {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}
