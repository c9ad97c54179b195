package engine

import (
	"strings"
)

// Source is the external prefill input supplied once at session start:
// account data, the property, the tenant, and the most recent document the
// user generated. Field definitions reference keys of the flattened
// projection via their Prefill attribute.
type Source struct {
	UserData         map[string]any `json:"userData"`
	PropertyData     map[string]any `json:"propertyData"`
	TenantData       map[string]any `json:"tenantData"`
	PreviousDocument map[string]any `json:"previousDocument"`
}

// Flatten merges the four sections into one projection. Later sections win:
// a value from the previous document beats the account profile. Derived keys
// (first_name/last_name from full_name) are added when the source carries
// the combined form only.
func (s Source) Flatten() map[string]any {
	out := make(map[string]any)
	for _, section := range []map[string]any{s.UserData, s.PropertyData, s.TenantData, s.PreviousDocument} {
		for k, v := range section {
			out[k] = v
		}
	}

	if full, ok := out["full_name"].(string); ok && full != "" {
		first, last, found := strings.Cut(strings.TrimSpace(full), " ")
		if _, have := out["first_name"]; !have {
			out["first_name"] = first
		}
		if _, have := out["last_name"]; !have && found {
			out["last_name"] = last
		}
	}
	return out
}
