package service

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	commonerrors "rfp-workers/internal/common/errors"
	"rfp-workers/internal/common/logger"
	"rfp-workers/internal/common/observability"
	"rfp-workers/internal/models"
	"rfp-workers/internal/router"
	"rfp-workers/internal/session"
)

// ==========================
// Test Helper Functions
// ==========================

// scanStage is a minimal qualify stage: it records two opportunities and
// hands control back to the user, like the real stage's presentation step.
func scanStage(_ context.Context, state *models.SessionState, _ string) (router.Directive, error) {
	state.Opportunities = []models.QualifiedOpportunity{
		{Opportunity: models.Opportunity{ID: "RFP-001", Title: "Metro cabling"}},
		{Opportunity: models.Opportunity{ID: "RFP-002", Title: "Substation feeders"}},
	}
	state.Stage = models.StageSelecting
	return router.AwaitUser("I found 2 opportunities."), nil
}

func createTestAssistant(t *testing.T, configure func(*router.Router)) (*Assistant, *session.MemoryStore) {
	store := session.NewMemoryStore()
	r := router.New(logger.NewTestLogger(t))
	if configure != nil {
		configure(r)
	}
	a := NewAssistant(store, r, &observability.Observability{}, logger.NewTestLogger(t))
	return a, store
}

// ==========================
// Chat Turn Tests
// ==========================

func TestChat_MintsSessionAndPersists(t *testing.T) {
	a, store := createTestAssistant(t, func(r *router.Router) {
		r.Register(router.StageQualify, scanStage)
	})

	resp, err := a.Chat(context.Background(), &models.ChatRequest{Message: "scan for opportunities"})
	require.NoError(t, err)

	assert.NotEmpty(t, resp.SessionID)
	assert.Equal(t, "I found 2 opportunities.", resp.Response)
	assert.Equal(t, StatusOK, resp.Workflow.Status)
	assert.Equal(t, 2, resp.Workflow.IdentifiedCount)

	persisted, err := store.Get(context.Background(), resp.SessionID)
	require.NoError(t, err)
	assert.Len(t, persisted.Opportunities, 2)
	// user turn + assistant reply
	require.Len(t, persisted.Messages, 2)
	assert.Equal(t, "user", persisted.Messages[0].Role)
	assert.Equal(t, "assistant", persisted.Messages[1].Role)
}

func TestChat_ReusesExistingSession(t *testing.T) {
	a, _ := createTestAssistant(t, func(r *router.Router) {
		r.Register(router.StageQualify, scanStage)
	})

	first, err := a.Chat(context.Background(), &models.ChatRequest{Message: "scan for opportunities"})
	require.NoError(t, err)

	second, err := a.Chat(context.Background(), &models.ChatRequest{
		SessionID: first.SessionID,
		Message:   "what's the status?",
	})
	require.NoError(t, err)

	assert.Equal(t, first.SessionID, second.SessionID)
	assert.Contains(t, second.Response, "waiting for you to pick one")
}

func TestChat_UnknownSessionIDStartsFresh(t *testing.T) {
	a, store := createTestAssistant(t, func(r *router.Router) {
		r.Register(router.StageQualify, scanStage)
	})

	resp, err := a.Chat(context.Background(), &models.ChatRequest{
		SessionID: "sess-cold",
		Message:   "scan for opportunities",
	})
	require.NoError(t, err)

	assert.Equal(t, "sess-cold", resp.SessionID)
	_, err = store.Get(context.Background(), "sess-cold")
	assert.NoError(t, err)
}

func TestChat_EmptyMessageRejected(t *testing.T) {
	a, _ := createTestAssistant(t, nil)

	_, err := a.Chat(context.Background(), &models.ChatRequest{Message: "   "})
	require.Error(t, err)

	var stdErr *commonerrors.StandardError
	require.ErrorAs(t, err, &stdErr)
	assert.Equal(t, commonerrors.ErrorCode("BUSINESS_RULE_VIOLATION"), stdErr.Code)
}

func TestChat_StageErrorSurvivesAsErrorStatus(t *testing.T) {
	a, store := createTestAssistant(t, func(r *router.Router) {
		r.Register(router.StageQualify, func(_ context.Context, state *models.SessionState, _ string) (router.Directive, error) {
			state.Stage = models.StageError
			return router.Directive{}, commonerrors.NewGenerationFailedError(errors.New("boom"))
		})
	})

	resp, err := a.Chat(context.Background(), &models.ChatRequest{Message: "scan for opportunities"})
	require.NoError(t, err)

	assert.Equal(t, StatusError, resp.Workflow.Status)
	assert.Contains(t, resp.Response, "retry")

	// The failed turn is still persisted so the next one can resume.
	persisted, err := store.Get(context.Background(), resp.SessionID)
	require.NoError(t, err)
	assert.Equal(t, models.StageError, persisted.Stage)
}

// ==========================
// Meta-question Tests
// ==========================

func TestChat_StatusDoesNotAdvanceWorkflow(t *testing.T) {
	stageRuns := 0
	a, _ := createTestAssistant(t, func(r *router.Router) {
		r.Register(router.StageQualify, func(ctx context.Context, state *models.SessionState, msg string) (router.Directive, error) {
			stageRuns++
			return scanStage(ctx, state, msg)
		})
	})

	resp, err := a.Chat(context.Background(), &models.ChatRequest{Message: "what is the status?"})
	require.NoError(t, err)

	assert.Zero(t, stageRuns)
	assert.Contains(t, resp.Response, "No scan has run yet")
	assert.Equal(t, models.StageInitial, resp.Workflow.Stage)
}

func TestChat_ShowResultsListsOpportunities(t *testing.T) {
	a, _ := createTestAssistant(t, func(r *router.Router) {
		r.Register(router.StageQualify, scanStage)
	})

	first, err := a.Chat(context.Background(), &models.ChatRequest{Message: "scan for opportunities"})
	require.NoError(t, err)

	resp, err := a.Chat(context.Background(), &models.ChatRequest{
		SessionID: first.SessionID,
		Message:   "show results",
	})
	require.NoError(t, err)

	assert.Contains(t, resp.Response, "RFP-001")
	assert.Contains(t, resp.Response, "RFP-002")
}

func TestChat_ShowResultsPrefersFinalResponse(t *testing.T) {
	a, store := createTestAssistant(t, nil)

	state := models.NewSessionState("sess-done")
	state.FinalResponse = "# RFP Response: Metro cabling"
	state.Stage = models.StageComplete
	require.NoError(t, store.Put(context.Background(), state))

	resp, err := a.Chat(context.Background(), &models.ChatRequest{
		SessionID: "sess-done",
		Message:   "show me the report",
	})
	require.NoError(t, err)
	assert.Equal(t, "# RFP Response: Metro cabling", resp.Response)
}

// ==========================
// HTTP Surface Tests
// ==========================

func TestHTTP_ChatEndpoint(t *testing.T) {
	a, _ := createTestAssistant(t, func(r *router.Router) {
		r.Register(router.StageQualify, scanStage)
	})
	mux := NewMux(a)

	body, _ := json.Marshal(models.ChatRequest{Message: "scan for opportunities"})
	req := httptest.NewRequest(http.MethodPost, "/api/chat", bytes.NewReader(body))
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)

	var resp models.ChatResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "I found 2 opportunities.", resp.Response)
	assert.NotEmpty(t, resp.SessionID)
}

func TestHTTP_ChatEndpointBadBody(t *testing.T) {
	a, _ := createTestAssistant(t, nil)
	mux := NewMux(a)

	req := httptest.NewRequest(http.MethodPost, "/api/chat", bytes.NewReader([]byte("{not json")))
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHTTP_StateEndpoint(t *testing.T) {
	a, store := createTestAssistant(t, nil)
	mux := NewMux(a)

	state := models.NewSessionState("sess-9")
	require.NoError(t, store.Put(context.Background(), state))

	req := httptest.NewRequest(http.MethodGet, "/api/chat/state/sess-9", nil)
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)

	var got models.SessionState
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.Equal(t, "sess-9", got.SessionID)

	req = httptest.NewRequest(http.MethodGet, "/api/chat/state/missing", nil)
	rec = httptest.NewRecorder()
	mux.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestHTTP_ReportEndpoint(t *testing.T) {
	a, store := createTestAssistant(t, nil)
	mux := NewMux(a)

	state := models.NewSessionState("sess-7")
	state.FinalResponse = "# RFP Response: Metro cabling"
	state.ReportRef = "sess-7_RFP-001"
	state.Stage = models.StageComplete
	require.NoError(t, store.Put(context.Background(), state))

	req := httptest.NewRequest(http.MethodGet, "/api/reports/sess-7/RFP-001", nil)
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "# RFP Response: Metro cabling", rec.Body.String())

	// Wrong opportunity id for the session yields not found.
	req = httptest.NewRequest(http.MethodGet, "/api/reports/sess-7/RFP-999", nil)
	rec = httptest.NewRecorder()
	mux.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestHTTP_Health(t *testing.T) {
	a, _ := createTestAssistant(t, nil)
	mux := NewMux(a)

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"healthy"}`, rec.Body.String())
}
