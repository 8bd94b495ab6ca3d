// internal/models/pricing.go
package models

// PricingBreakdown holds the cost figures for a quote. Invariant:
// subtotal = material + testing; overhead and contingency are percentages of
// the subtotal, each rounded to 2 decimals when computed.
type PricingBreakdown struct {
	MaterialCost    float64 `json:"material_cost"`
	TestingCost     float64 `json:"testing_cost"`
	Subtotal        float64 `json:"subtotal"`
	OverheadCost    float64 `json:"overhead_cost"`
	ContingencyCost float64 `json:"contingency_cost"`
	GrandTotal      float64 `json:"grand_total"`
}

// PricingResult is the pricing stage's output for a selected opportunity.
type PricingResult struct {
	OpportunityID    string           `json:"opportunity_id"`
	RecommendedTests []string         `json:"recommended_tests"`
	AssumedLengthKM  float64          `json:"assumed_length_km"`
	Breakdown        PricingBreakdown `json:"breakdown"`
}
