package jurisdiction

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func defaultChecker() *Checker {
	return NewChecker(DefaultRulesDE())
}

func TestCheck_SecurityDeposit(t *testing.T) {
	c := defaultChecker()

	violations := c.Check("kautionsvereinbarung", map[string]any{
		"monthly_rent":   850.0,
		"kaution_betrag": 2550.0,
	})
	assert.Empty(t, violations, "three months of rent is the statutory maximum")

	violations = c.Check("kautionsvereinbarung", map[string]any{
		"monthly_rent":   850.0,
		"kaution_betrag": 3000.0,
	})
	require.Len(t, violations, 1)
	assert.Equal(t, RuleSecurityDepositLimit, violations[0].RuleType)
	assert.Equal(t, "kaution_betrag", violations[0].Field)
	assert.Contains(t, violations[0].StatuteRef, "551")
}

func TestCheck_SecurityDeposit_GermanNumberStrings(t *testing.T) {
	c := defaultChecker()

	violations := c.Check("kautionsvereinbarung", map[string]any{
		"monthly_rent":   "1.000,00 €",
		"kaution_betrag": "3.500,00",
	})
	require.Len(t, violations, 1)
	assert.Contains(t, violations[0].Description, "3500.00")
}

func TestCheck_RentIncreaseCap(t *testing.T) {
	c := defaultChecker()

	// 18% in a city without a tightened cap stays under the 20% limit.
	violations := c.Check("mieterhoehung", map[string]any{
		"current_rent":   1000.0,
		"requested_rent": 1180.0,
		"city":           "Leipzig",
	})
	assert.Empty(t, violations)

	// The same increase exceeds the 15% cap in a tight-market city.
	violations = c.Check("mieterhoehung", map[string]any{
		"current_rent":   1000.0,
		"requested_rent": 1180.0,
		"city":           "Berlin",
	})
	require.Len(t, violations, 1)
	assert.Equal(t, RuleRentIncreaseCap, violations[0].RuleType)
	assert.Contains(t, violations[0].Description, "15")
}

func TestCheck_RentIncrease_MissingFieldsIgnored(t *testing.T) {
	c := defaultChecker()
	violations := c.Check("mieterhoehung", map[string]any{"requested_rent": 1200.0})
	assert.Empty(t, violations, "incomplete data must not produce violations")
}

func TestCheck_NoticePeriod(t *testing.T) {
	c := defaultChecker()

	tooSoon := time.Now().AddDate(0, 1, 0).Format("02.01.2006")
	violations := c.Check("kuendigung_vermieter", map[string]any{
		"termination_type": "ordentlich",
		"termination_date": tooSoon,
	})
	require.Len(t, violations, 1)
	assert.Equal(t, RuleNoticePeriod, violations[0].RuleType)
	assert.Contains(t, violations[0].StatuteRef, "573c")

	farEnough := time.Now().AddDate(0, 4, 0).Format("02.01.2006")
	violations = c.Check("kuendigung_vermieter", map[string]any{
		"termination_type": "ordentlich",
		"termination_date": farEnough,
	})
	assert.Empty(t, violations)
}

func TestCheck_NoticePeriod_FristlosExempt(t *testing.T) {
	c := defaultChecker()
	violations := c.Check("kuendigung_vermieter", map[string]any{
		"termination_type": "ausserordentlich_fristlos",
		"termination_date": time.Now().AddDate(0, 0, 7).Format("02.01.2006"),
	})
	assert.Empty(t, violations, "a fristlose Kündigung has no notice period")
}

func TestCheck_LateFee(t *testing.T) {
	c := defaultChecker()

	violations := c.Check("mietmahnung", map[string]any{"mahngebuehr": 2.5})
	assert.Empty(t, violations)

	violations = c.Check("mietmahnung", map[string]any{"mahngebuehr": 15.0})
	require.Len(t, violations, 1)
	assert.Equal(t, "mahngebuehr", violations[0].Field)
}

func TestCheck_RulesScopedToTemplate(t *testing.T) {
	c := defaultChecker()

	// Deposit fields on an unrelated template trigger nothing.
	violations := c.Check("mietmahnung", map[string]any{
		"monthly_rent":   850.0,
		"kaution_betrag": 9000.0,
	})
	assert.Empty(t, violations)
}

func TestCheck_EmptyRuleSet(t *testing.T) {
	c := NewChecker(nil)
	violations := c.Check("mieterhoehung", map[string]any{
		"current_rent":   1000.0,
		"requested_rent": 2000.0,
	})
	assert.NotNil(t, violations)
	assert.Empty(t, violations)
}

func TestViolation_Error(t *testing.T) {
	v := Violation{RuleType: RuleLateFeeCap, StatuteRef: "§ 286 BGB", Description: "zu hoch"}
	assert.Equal(t, "late_fee_cap: zu hoch [§ 286 BGB]", v.Error())

	v.StatuteRef = ""
	assert.Equal(t, "late_fee_cap: zu hoch", v.Error())
}
