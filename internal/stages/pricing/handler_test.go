package pricing

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"rfp-workers/internal/catalog"
	"rfp-workers/internal/common/logger"
	"rfp-workers/internal/models"
	"rfp-workers/internal/router"
)

// ==========================
// Test Helper Functions
// ==========================

func createTestHandler(t *testing.T) *Handler {
	cfg := &Config{
		OverheadPct:     0.05,
		ContingencyPct:  0.03,
		DefaultLengthKM: 1.0,
		Timeout:         5 * time.Second,
	}
	store := catalog.NewSnapshot(nil, testPricingTable())
	return NewHandler(cfg, store, logger.NewTestLogger(t))
}

func analyzedState() *models.SessionState {
	state := models.NewSessionState("sess-1")
	opp := models.QualifiedOpportunity{
		Opportunity: models.Opportunity{
			ID:          "RFP-001",
			Title:       "11kV underground metro cabling",
			Description: "Supply of armoured cables",
			LengthKM:    12,
		},
	}
	state.Opportunities = []models.QualifiedOpportunity{opp}
	state.Selected = &state.Opportunities[0]
	state.Technical = &models.TechnicalAnalysis{
		OpportunityID: "RFP-001",
		LineItems: []models.LineItemAnalysis{
			{Requirement: "11 kV cable", TopMatches: []models.MatchResult{
				{SKU: "CB-1", MatchPercent: 100, Product: &models.Product{SKU: "CB-1", PricePerKM: 95000}},
			}},
		},
		Feasibility: models.FeasibilityHigh,
	}
	return state
}

// ==========================
// Stage Execution Tests
// ==========================

func TestExecute_PricesAndContinuesToCompile(t *testing.T) {
	h := createTestHandler(t)
	state := analyzedState()

	directive, err := h.Execute(context.Background(), state, "")
	require.NoError(t, err)

	assert.Equal(t, router.KindContinue, directive.Kind)
	assert.Equal(t, router.StageCompile, directive.Next)

	require.NotNil(t, state.Pricing)
	assert.Equal(t, "RFP-001", state.Pricing.OpportunityID)
	assert.Equal(t, 12.0, state.Pricing.AssumedLengthKM)
	// 95000 * 12 km
	assert.Equal(t, 1140000.0, state.Pricing.Breakdown.MaterialCost)
	// 11kV + underground: all five tests
	assert.Equal(t, 20500.0, state.Pricing.Breakdown.TestingCost)
	assert.Len(t, state.Pricing.RecommendedTests, 5)
}

func TestExecute_DefaultLengthApplied(t *testing.T) {
	h := createTestHandler(t)
	state := analyzedState()
	state.Selected.Opportunity.LengthKM = 0

	_, err := h.Execute(context.Background(), state, "")
	require.NoError(t, err)

	assert.Equal(t, 1.0, state.Pricing.AssumedLengthKM)
	assert.Equal(t, 95000.0, state.Pricing.Breakdown.MaterialCost)
}

func TestExecute_NoSelection(t *testing.T) {
	h := createTestHandler(t)
	state := models.NewSessionState("sess-1")

	directive, err := h.Execute(context.Background(), state, "")
	require.NoError(t, err)

	assert.Equal(t, router.KindAwaitUser, directive.Kind)
	assert.Nil(t, state.Pricing)
	assert.Equal(t, models.StageInitial, state.Stage)
}

func TestExecute_MissingAnalysisDegradesToZeroMaterial(t *testing.T) {
	h := createTestHandler(t)
	state := analyzedState()
	state.Technical = nil

	directive, err := h.Execute(context.Background(), state, "")
	require.NoError(t, err)

	assert.Equal(t, router.KindContinue, directive.Kind)
	require.NotNil(t, state.Pricing)
	assert.Zero(t, state.Pricing.Breakdown.MaterialCost)
	assert.Positive(t, state.Pricing.Breakdown.TestingCost)
}
