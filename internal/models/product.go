// internal/models/product.go
package models

import "strings"

// Product is one catalog entry. The Specs attribute set is open, not
// fixed-schema; accessors report whether an attribute is present.
type Product struct {
	SKU        string                 `json:"sku"`
	Name       string                 `json:"name"`
	Category   string                 `json:"category"`
	PricePerKM float64                `json:"price_per_km"`
	Specs      map[string]interface{} `json:"specs"`
}

// SpecString returns the named spec attribute as a string, and whether it
// was present.
func (p *Product) SpecString(key string) (string, bool) {
	v, ok := p.Specs[key]
	if !ok {
		return "", false
	}
	s, ok := v.(string)
	return s, ok
}

// SpecFloat returns the named spec attribute as a float64, accepting JSON
// numbers and integer values.
func (p *Product) SpecFloat(key string) (float64, bool) {
	v, ok := p.Specs[key]
	if !ok {
		return 0, false
	}
	switch n := v.(type) {
	case float64:
		return n, true
	case int:
		return float64(n), true
	}
	return 0, false
}

// SpecBool returns the named spec attribute as a bool.
func (p *Product) SpecBool(key string) (bool, bool) {
	v, ok := p.Specs[key]
	if !ok {
		return false, false
	}
	b, ok := v.(bool)
	return b, ok
}

// SpecContains reports whether the string-valued spec attribute contains the
// given substring, case-insensitive.
func (p *Product) SpecContains(key, substr string) bool {
	s, ok := p.SpecString(key)
	if !ok {
		return false
	}
	return strings.Contains(strings.ToLower(s), strings.ToLower(substr))
}

// Verdict labels how one requirement criterion compared against a product.
type Verdict string

const (
	VerdictExact   Verdict = "exact"
	VerdictPartial Verdict = "partial"
	VerdictMiss    Verdict = "miss"
)

// CriterionVerdict is the per-criterion outcome within a MatchResult.
type CriterionVerdict struct {
	Criterion string  `json:"criterion"`
	Verdict   Verdict `json:"verdict"`
}

// MatchResult is one product scored against one requirement line item.
type MatchResult struct {
	SKU          string             `json:"sku"`
	MatchPercent float64            `json:"match_percent"`
	Verdicts     []CriterionVerdict `json:"verdicts"`
	Product      *Product           `json:"product,omitempty"`
}

// Feasibility grades for an overall technical analysis.
const (
	FeasibilityHigh   = "HIGH"
	FeasibilityMedium = "MEDIUM"
	FeasibilityLow    = "LOW"
)

// LineItemAnalysis is the matcher output for one requirement line item.
type LineItemAnalysis struct {
	Requirement string        `json:"requirement"`
	Quantity    float64       `json:"quantity"`
	TopMatches  []MatchResult `json:"top_matches"`
}

// TechnicalAnalysis is the technical stage's result for a selected opportunity.
type TechnicalAnalysis struct {
	OpportunityID string             `json:"opportunity_id"`
	LineItems     []LineItemAnalysis `json:"line_items"`
	Feasibility   string             `json:"feasibility"`
}
