// internal/stages/pricing/calculator.go

// Package pricing implements the quote stage: recommend the required tests
// for an opportunity and compute the cost breakdown from the technical
// analysis.
package pricing

import (
	"math"
	"strings"

	"rfp-workers/internal/models"
)

// Test names referenced by the recommendation rules.
const (
	testHighVoltage      = "High Voltage Test"
	testImpulseVoltage   = "Impulse Voltage Test"
	testWaterPenetration = "Water Penetration Test"
	testMechanical       = "Mechanical Test"
	testPartialDischarge = "Partial Discharge Test"
)

var voltageTerms = []string{"high voltage", "hv", "33kv", "11kv", "kv"}

// RecommendTests infers the tests to quote from the opportunity's title and
// description, deduplicated and filtered to tests present in the pricing
// table. Unknown test names are dropped silently.
func RecommendTests(opp *models.Opportunity, pricingTable map[string]float64) []string {
	text := strings.ToLower(opp.Title + " " + opp.Description)

	var tests []string
	for _, term := range voltageTerms {
		if strings.Contains(text, term) {
			tests = append(tests, testHighVoltage, testImpulseVoltage)
			break
		}
	}

	if strings.Contains(text, "underground") {
		tests = append(tests, testWaterPenetration)
	}

	tests = append(tests, testMechanical, testPartialDischarge)

	seen := make(map[string]struct{}, len(tests))
	var filtered []string
	for _, test := range tests {
		if _, known := pricingTable[test]; !known {
			continue
		}
		if _, dup := seen[test]; dup {
			continue
		}
		filtered = append(filtered, test)
		seen[test] = struct{}{}
	}
	return filtered
}

// TestingCost sums the pricing-table cost of each recommended test.
func TestingCost(recommendedTests []string, pricingTable map[string]float64) float64 {
	total := 0.0
	for _, test := range recommendedTests {
		total += pricingTable[test]
	}
	return total
}

// MaterialCost prices only the single top-ranked matched product across the
// analysis, scaled by the assumed cable length. No matched product means a
// zero cost, never an error.
func MaterialCost(analysis *models.TechnicalAnalysis, lengthKM float64) float64 {
	if analysis == nil {
		return 0
	}
	for _, li := range analysis.LineItems {
		if len(li.TopMatches) == 0 || li.TopMatches[0].Product == nil {
			continue
		}
		return li.TopMatches[0].Product.PricePerKM * lengthKM
	}
	return 0
}

// round2 rounds half away from zero to 2 decimals.
func round2(v float64) float64 {
	return math.Round(v*100) / 100
}

// Breakdown computes the cost breakdown. Each derived figure is rounded to
// 2 decimals as it is computed, so recomputation from the same inputs is
// reproducible to the cent.
func Breakdown(materialCost, testingCost, overheadPct, contingencyPct float64) models.PricingBreakdown {
	subtotal := materialCost + testingCost
	overhead := round2(subtotal * overheadPct)
	contingency := round2(subtotal * contingencyPct)
	grandTotal := round2(subtotal + overhead + contingency)

	return models.PricingBreakdown{
		MaterialCost:    materialCost,
		TestingCost:     testingCost,
		Subtotal:        subtotal,
		OverheadCost:    overhead,
		ContingencyCost: contingency,
		GrandTotal:      grandTotal,
	}
}
