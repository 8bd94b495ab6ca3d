package qualify

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"rfp-workers/internal/common/config"
	"rfp-workers/internal/common/genai"
	"rfp-workers/internal/common/logger"
	"rfp-workers/internal/models"
	"rfp-workers/internal/router"
)

// ==========================
// Test Helper Functions
// ==========================

func createTestConfig() *Config {
	return &Config{
		MinEstimatedValue:  1000000,
		PreferredLocations: []string{"Mumbai", "Delhi"},
		MinDaysRemaining:   7,
		TopN:               5,
		Timeout:            5 * time.Second,
	}
}

func testNow() time.Time {
	return time.Date(2026, 9, 1, 0, 0, 0, 0, time.UTC)
}

func oppWithDeadline(id string, daysOut int, value float64, location string) models.Opportunity {
	return models.Opportunity{
		ID:             id,
		Title:          "Opportunity " + id,
		Client:         "Client " + id,
		EstimatedValue: value,
		Deadline:       models.Date{Time: testNow().AddDate(0, 0, daysOut)},
		Location:       location,
	}
}

type stubSource struct {
	opportunities []models.Opportunity
	err           error
	gotKeywords   []string
}

func (s *stubSource) Scan(_ context.Context, keywords []string) ([]models.Opportunity, error) {
	s.gotKeywords = keywords
	return s.opportunities, s.err
}

// ==========================
// Qualification Rule Tests
// ==========================

func TestQualify_DeadlineDisqualifiesOutright(t *testing.T) {
	cfg := createTestConfig()

	// High value, preferred location, but only 3 days out
	opp := oppWithDeadline("RFP-A", 3, 5000000, "Mumbai")
	q := Qualify(&opp, cfg, testNow())

	assert.False(t, q.Qualified)
	assert.Equal(t, 70, q.Score) // value + location, no deadline points
}

func TestQualify_ScoreCombinations(t *testing.T) {
	cfg := createTestConfig()

	tests := []struct {
		name          string
		daysOut       int
		value         float64
		location      string
		wantScore     int
		wantQualified bool
	}{
		{name: "all criteria met", daysOut: 30, value: 2000000, location: "Mumbai", wantScore: 100, wantQualified: true},
		{name: "deadline and value only", daysOut: 30, value: 2000000, location: "Chennai", wantScore: 70, wantQualified: true},
		{name: "deadline and location only", daysOut: 30, value: 500000, location: "Delhi", wantScore: 60, wantQualified: true},
		{name: "deadline only", daysOut: 30, value: 500000, location: "Chennai", wantScore: 30, wantQualified: false},
		{name: "nothing met, late deadline", daysOut: 2, value: 500000, location: "Chennai", wantScore: 0, wantQualified: false},
		{name: "boundary: exactly minimum days", daysOut: 7, value: 2000000, location: "Mumbai", wantScore: 100, wantQualified: true},
		{name: "boundary: exactly minimum value", daysOut: 30, value: 1000000, location: "Chennai", wantScore: 70, wantQualified: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			opp := oppWithDeadline("RFP-X", tt.daysOut, tt.value, tt.location)
			q := Qualify(&opp, cfg, testNow())
			assert.Equal(t, tt.wantScore, q.Score)
			assert.Equal(t, tt.wantQualified, q.Qualified)
			assert.NotEmpty(t, q.Reasons)
		})
	}
}

func TestQualify_ScoreIsAlwaysAchievableSum(t *testing.T) {
	cfg := createTestConfig()
	achievable := map[int]bool{0: true, 30: true, 40: true, 60: true, 70: true, 100: true}

	for days := -5; days <= 40; days += 9 {
		for _, value := range []float64{0, 999999, 1000000, 9000000} {
			for _, loc := range []string{"Mumbai", "Nowhere", ""} {
				opp := oppWithDeadline("RFP-P", days, value, loc)
				q := Qualify(&opp, cfg, testNow())
				assert.True(t, achievable[q.Score], "score %d for days=%d value=%.0f loc=%q", q.Score, days, value, loc)
			}
		}
	}
}

func TestQualify_EmptyPreferredLocationsMatchesAll(t *testing.T) {
	cfg := createTestConfig()
	cfg.PreferredLocations = nil

	opp := oppWithDeadline("RFP-B", 30, 2000000, "Anywhere")
	q := Qualify(&opp, cfg, testNow())
	assert.Equal(t, 100, q.Score)
}

// ==========================
// Prioritization Tests
// ==========================

func TestPrioritize_OrderingAndStability(t *testing.T) {
	qualified := []models.QualifiedOpportunity{
		{Opportunity: models.Opportunity{ID: "A"}, Qualification: models.Qualification{Score: 70}, DaysRemaining: 30}, // 70 + 70 = 140
		{Opportunity: models.Opportunity{ID: "B"}, Qualification: models.Qualification{Score: 100}, DaysRemaining: 10}, // 100 + 90 = 190
		{Opportunity: models.Opportunity{ID: "C"}, Qualification: models.Qualification{Score: 60}, DaysRemaining: 20}, // 60 + 80 = 140
		{Opportunity: models.Opportunity{ID: "D"}, Qualification: models.Qualification{Score: 100}, DaysRemaining: 40}, // 100 + 60 = 160
	}

	ranked := Prioritize(qualified)

	var ids []string
	for _, q := range ranked {
		ids = append(ids, q.Opportunity.ID)
	}
	// A and C tie at 140; scan order is preserved between them.
	assert.Equal(t, []string{"B", "D", "A", "C"}, ids)
	assert.Equal(t, 190, ranked[0].PriorityScore)

	// Input slice is not reordered.
	assert.Equal(t, "A", qualified[0].Opportunity.ID)
}

func TestPrioritize_Idempotent(t *testing.T) {
	qualified := []models.QualifiedOpportunity{
		{Opportunity: models.Opportunity{ID: "A"}, Qualification: models.Qualification{Score: 70}, DaysRemaining: 10},
		{Opportunity: models.Opportunity{ID: "B"}, Qualification: models.Qualification{Score: 70}, DaysRemaining: 10},
	}

	first := Prioritize(qualified)
	second := Prioritize(first)
	assert.Equal(t, first, second)
}

// ==========================
// Keyword Extraction Tests
// ==========================

func TestExtractKeywords(t *testing.T) {
	tests := []struct {
		message string
		want    []string
	}{
		{message: "scan for underground cable tenders", want: []string{"underground", "cable"}},
		{message: "find new opportunities", want: nil},
		{message: "Search METRO projects please", want: []string{"metro", "projects"}},
		{message: "", want: nil},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, ExtractKeywords(tt.message), "message %q", tt.message)
	}
}

// ==========================
// Scan Pipeline Tests
// ==========================

func TestExecuteScan_FiltersAndRanks(t *testing.T) {
	source := &stubSource{opportunities: []models.Opportunity{
		oppWithDeadline("RFP-001", 30, 2000000, "Mumbai"),  // 100, priority 170
		oppWithDeadline("RFP-002", 3, 9000000, "Mumbai"),   // disqualified by deadline
		oppWithDeadline("RFP-003", 10, 1500000, "Chennai"), // 70, priority 160
		oppWithDeadline("RFP-004", 60, 100, "Nowhere"),     // 30, not qualified
	}}

	h := NewHandler(createTestConfig(), source, nil, logger.NewTestLogger(t))
	h.now = testNow

	output, err := h.ExecuteScan(context.Background(), nil)
	require.NoError(t, err)

	assert.Equal(t, 4, output.ScannedCount)
	assert.Equal(t, 2, output.QualifiedCount)
	require.Len(t, output.Opportunities, 2)
	assert.Equal(t, "RFP-001", output.Opportunities[0].Opportunity.ID)
	assert.Equal(t, "RFP-003", output.Opportunities[1].Opportunity.ID)
	assert.Contains(t, output.Presentation, "RFP-001")
}

func TestExecuteScan_ScenarioTightDeadline(t *testing.T) {
	// An opportunity 3 days out never qualifies, whatever its value/location.
	source := &stubSource{opportunities: []models.Opportunity{
		oppWithDeadline("RFP-TIGHT", 3, 99000000, "Mumbai"),
	}}

	h := NewHandler(createTestConfig(), source, nil, logger.NewTestLogger(t))
	h.now = testNow

	output, err := h.ExecuteScan(context.Background(), nil)
	require.NoError(t, err)
	assert.Zero(t, output.QualifiedCount)
	assert.Contains(t, output.Presentation, "no qualifying opportunities")
}

func TestExecute_UpdatesSessionState(t *testing.T) {
	source := &stubSource{opportunities: []models.Opportunity{
		oppWithDeadline("RFP-001", 30, 2000000, "Mumbai"),
	}}

	h := NewHandler(createTestConfig(), source, nil, logger.NewTestLogger(t))
	h.now = testNow

	state := models.NewSessionState("sess-1")
	directive, err := h.Execute(context.Background(), state, "scan for cable tenders")
	require.NoError(t, err)

	assert.Equal(t, router.KindAwaitUser, directive.Kind)
	assert.Equal(t, models.StageSelecting, state.Stage)
	assert.Len(t, state.Opportunities, 1)
	assert.Equal(t, []string{"cable"}, source.gotKeywords)
}

func TestExecute_ScanFailureDegrades(t *testing.T) {
	source := &stubSource{err: fmt.Errorf("source down")}

	h := NewHandler(createTestConfig(), source, nil, logger.NewTestLogger(t))
	h.now = testNow

	state := models.NewSessionState("sess-1")
	directive, err := h.Execute(context.Background(), state, "scan")
	require.NoError(t, err)

	assert.Equal(t, router.KindAwaitUser, directive.Kind)
	assert.Equal(t, models.StageError, state.Stage)
	assert.Empty(t, state.Opportunities)
}

// ==========================
// LLM-Assisted Qualification Tests
// ==========================

func newLLMClient(t *testing.T, handler http.HandlerFunc) *genai.Client {
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	return genai.NewClient(config.GenAIConfig{
		Enabled:     true,
		BaseURL:     server.URL,
		Timeout:     2000,
		MaxRetries:  0,
		MaxTokens:   256,
		Temperature: 0.1,
	}, logger.NewTestLogger(t))
}

func TestQualifyOne_LLMAssisted(t *testing.T) {
	client := newLLMClient(t, func(w http.ResponseWriter, _ *http.Request) {
		fmt.Fprint(w, `{"text": "{\"score\": 85, \"reasons\": [\"strong client\"]}"}`)
	})

	cfg := createTestConfig()
	cfg.LLMAssisted = true

	h := NewHandler(cfg, &stubSource{}, client, logger.NewTestLogger(t))
	h.now = testNow

	opp := oppWithDeadline("RFP-LLM", 30, 500, "Nowhere")
	q := h.qualifyOne(context.Background(), &opp, testNow())

	assert.True(t, q.Qualified)
	assert.Equal(t, 85, q.Score)
	assert.Equal(t, []string{"strong client"}, q.Reasons)
}

func TestQualifyOne_LLMDeadlineRuleStillHard(t *testing.T) {
	client := newLLMClient(t, func(w http.ResponseWriter, _ *http.Request) {
		fmt.Fprint(w, `{"text": "{\"score\": 95, \"reasons\": [\"great fit\"]}"}`)
	})

	cfg := createTestConfig()
	cfg.LLMAssisted = true

	h := NewHandler(cfg, &stubSource{}, client, logger.NewTestLogger(t))
	h.now = testNow

	opp := oppWithDeadline("RFP-LLM", 2, 9000000, "Mumbai")
	q := h.qualifyOne(context.Background(), &opp, testNow())

	assert.False(t, q.Qualified) // 2 days out disqualifies whatever the LLM says
	assert.Equal(t, 95, q.Score)
}

func TestQualifyOne_LLMFallbackOnBadResponse(t *testing.T) {
	tests := []struct {
		name    string
		handler http.HandlerFunc
	}{
		{
			name: "prose instead of json",
			handler: func(w http.ResponseWriter, _ *http.Request) {
				fmt.Fprint(w, `{"text": "The score is about 85 I think"}`)
			},
		},
		{
			name: "score out of range",
			handler: func(w http.ResponseWriter, _ *http.Request) {
				fmt.Fprint(w, `{"text": "{\"score\": 500, \"reasons\": []}"}`)
			},
		},
		{
			name: "server error",
			handler: func(w http.ResponseWriter, _ *http.Request) {
				w.WriteHeader(http.StatusInternalServerError)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client := newLLMClient(t, tt.handler)

			cfg := createTestConfig()
			cfg.LLMAssisted = true

			h := NewHandler(cfg, &stubSource{}, client, logger.NewTestLogger(t))
			h.now = testNow

			opp := oppWithDeadline("RFP-FB", 30, 2000000, "Mumbai")
			q := h.qualifyOne(context.Background(), &opp, testNow())

			// Falls back to the rule-based score
			assert.Equal(t, 100, q.Score)
			assert.True(t, q.Qualified)
		})
	}
}
