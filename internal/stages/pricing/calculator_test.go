package pricing

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"rfp-workers/internal/models"
)

// ==========================
// Test Helper Functions
// ==========================

func testPricingTable() map[string]float64 {
	return map[string]float64{
		"High Voltage Test":      5000,
		"Impulse Voltage Test":   7500,
		"Mechanical Test":        2000,
		"Partial Discharge Test": 3500,
		"Water Penetration Test": 2500,
	}
}

// ==========================
// Test Recommendation Tests
// ==========================

func TestRecommendTests(t *testing.T) {
	table := testPricingTable()

	tests := []struct {
		name string
		opp  models.Opportunity
		want []string
	}{
		{
			name: "voltage mention adds HV and impulse",
			opp:  models.Opportunity{Title: "11kV feeder supply", Description: "power cables"},
			want: []string{"High Voltage Test", "Impulse Voltage Test", "Mechanical Test", "Partial Discharge Test"},
		},
		{
			name: "underground adds water penetration",
			opp:  models.Opportunity{Title: "Metro tunnels", Description: "underground cabling, 11 kV"},
			want: []string{"High Voltage Test", "Impulse Voltage Test", "Water Penetration Test", "Mechanical Test", "Partial Discharge Test"},
		},
		{
			name: "plain opportunity gets the baseline pair",
			opp:  models.Opportunity{Title: "Office wiring", Description: "low tension distribution"},
			want: []string{"Mechanical Test", "Partial Discharge Test"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, RecommendTests(&tt.opp, table))
		})
	}
}

func TestRecommendTests_UnknownTestsDroppedSilently(t *testing.T) {
	// Table without the impulse test: the rule still fires but the unknown
	// name is filtered out, not an error.
	table := map[string]float64{
		"High Voltage Test": 5000,
		"Mechanical Test":   2000,
	}

	opp := models.Opportunity{Title: "33kV transmission"}
	got := RecommendTests(&opp, table)
	assert.Equal(t, []string{"High Voltage Test", "Mechanical Test"}, got)
}

func TestRecommendTests_EmptyTable(t *testing.T) {
	opp := models.Opportunity{Title: "11kV underground"}
	assert.Empty(t, RecommendTests(&opp, map[string]float64{}))
}

// ==========================
// Cost Calculation Tests
// ==========================

func TestTestingCost(t *testing.T) {
	table := testPricingTable()

	cost := TestingCost([]string{"High Voltage Test", "Impulse Voltage Test", "Mechanical Test", "Partial Discharge Test"}, table)
	assert.Equal(t, 18000.0, cost)

	assert.Zero(t, TestingCost(nil, table))
	assert.Zero(t, TestingCost([]string{"Unknown Test"}, table))
}

func TestMaterialCost(t *testing.T) {
	product := &models.Product{SKU: "CB-1", PricePerKM: 95000}
	analysis := &models.TechnicalAnalysis{
		LineItems: []models.LineItemAnalysis{
			{Requirement: "no match here"},
			{Requirement: "matched", TopMatches: []models.MatchResult{
				{SKU: "CB-1", MatchPercent: 100, Product: product},
				{SKU: "CB-2", MatchPercent: 80, Product: &models.Product{PricePerKM: 999999}},
			}},
		},
	}

	// Only the top-ranked product of the first matched line item counts.
	assert.Equal(t, 95000.0, MaterialCost(analysis, 1.0))
	assert.Equal(t, 1140000.0, MaterialCost(analysis, 12.0))
}

func TestMaterialCost_Degraded(t *testing.T) {
	assert.Zero(t, MaterialCost(nil, 1.0))
	assert.Zero(t, MaterialCost(&models.TechnicalAnalysis{}, 1.0))
	assert.Zero(t, MaterialCost(&models.TechnicalAnalysis{
		LineItems: []models.LineItemAnalysis{{Requirement: "nothing matched"}},
	}, 1.0))
}

// ==========================
// Breakdown Tests
// ==========================

func TestBreakdown_ReferenceFigures(t *testing.T) {
	b := Breakdown(95000.00, 18500.00, 0.05, 0.03)

	assert.Equal(t, 95000.00, b.MaterialCost)
	assert.Equal(t, 18500.00, b.TestingCost)
	assert.Equal(t, 113500.00, b.Subtotal)
	assert.Equal(t, 5675.00, b.OverheadCost)
	assert.Equal(t, 3405.00, b.ContingencyCost)
	assert.Equal(t, 122580.00, b.GrandTotal)
}

func TestBreakdown_Invariant(t *testing.T) {
	round2 := func(v float64) float64 { return math.Round(v*100) / 100 }

	inputs := []struct{ material, testing float64 }{
		{0, 0},
		{1, 0},
		{0.01, 0.01},
		{95000, 18500},
		{123456.78, 9876.54},
		{1e9, 12345.67},
		{33.33, 66.67},
	}

	for _, in := range inputs {
		b := Breakdown(in.material, in.testing, 0.05, 0.03)

		subtotal := in.material + in.testing
		require.Equal(t, subtotal, b.Subtotal)
		assert.Equal(t, round2(subtotal*0.05), b.OverheadCost, "material=%v testing=%v", in.material, in.testing)
		assert.Equal(t, round2(subtotal*0.03), b.ContingencyCost, "material=%v testing=%v", in.material, in.testing)
		assert.Equal(t, round2(subtotal+b.OverheadCost+b.ContingencyCost), b.GrandTotal, "material=%v testing=%v", in.material, in.testing)
	}
}

func TestBreakdown_Reproducible(t *testing.T) {
	first := Breakdown(95000, 18500, 0.05, 0.03)
	second := Breakdown(95000, 18500, 0.05, 0.03)
	assert.Equal(t, first, second)
}
