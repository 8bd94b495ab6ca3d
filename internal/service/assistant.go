// internal/service/assistant.go

// Package service exposes the conversational entry point: it owns session
// load/persist around each turn and delegates workflow decisions to the
// router.
package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	commonerrors "rfp-workers/internal/common/errors"
	"rfp-workers/internal/common/logger"
	"rfp-workers/internal/common/observability"
	"rfp-workers/internal/models"
	"rfp-workers/internal/router"
	"rfp-workers/internal/session"
	"rfp-workers/internal/stages/compile"
)

const (
	StatusOK    = "ok"
	StatusError = "error"
)

type Assistant struct {
	sessions session.Store
	router   *router.Router
	obs      *observability.Observability
	logger   logger.Logger
}

func NewAssistant(sessions session.Store, r *router.Router, obs *observability.Observability, log logger.Logger) *Assistant {
	return &Assistant{
		sessions: sessions,
		router:   r,
		obs:      obs,
		logger:   log.With(map[string]interface{}{"component": "assistant"}),
	}
}

// Chat processes one user turn: load (or mint) the session, answer
// meta-questions from state directly, otherwise route, then persist.
// The returned response always carries a session identifier the caller can
// reuse on the next turn.
func (a *Assistant) Chat(ctx context.Context, req *models.ChatRequest) (*models.ChatResponse, error) {
	if strings.TrimSpace(req.Message) == "" {
		return nil, commonerrors.NewBusinessRuleError("message must not be empty", "")
	}

	state, err := a.loadOrCreate(ctx, req.SessionID)
	if err != nil {
		return nil, err
	}

	state.AppendMessage("user", req.Message)
	a.obs.RecordTurn(ctx, "chat")

	var (
		responseText string
		status       = StatusOK
	)

	switch {
	case isStatusRequest(req.Message):
		responseText = statusReply(state)

	case isShowResultsRequest(req.Message):
		responseText = resultsReply(state)

	default:
		start := time.Now()
		directive, routeErr := a.router.Route(ctx, state, req.Message)
		if routeErr != nil {
			status = StatusError
			responseText = turnErrorReply(routeErr)
			a.obs.RecordStage(ctx, state.Stage, StatusError)
			a.logger.Error("turn failed", map[string]interface{}{
				"sessionId": state.SessionID,
				"stage":     state.Stage,
				"error":     routeErr.Error(),
			})
		} else {
			responseText = directive.Response
			a.obs.RecordStage(ctx, state.Stage, StatusOK)
		}
		a.obs.RecordStageDuration(ctx, state.Stage, time.Since(start), status)
	}

	state.AppendMessage("assistant", responseText)

	if err := a.sessions.Put(ctx, state); err != nil {
		return nil, commonerrors.NewSessionStoreFailedError(err)
	}

	if state.Stage == models.StageError {
		status = StatusError
	}

	return &models.ChatResponse{
		Response:  responseText,
		SessionID: state.SessionID,
		Timestamp: time.Now().UTC(),
		Workflow:  summarize(state, status),
	}, nil
}

// State returns the persisted session state for inspection.
func (a *Assistant) State(ctx context.Context, sessionID string) (*models.SessionState, error) {
	return a.sessions.Get(ctx, sessionID)
}

func (a *Assistant) loadOrCreate(ctx context.Context, sessionID string) (*models.SessionState, error) {
	if sessionID == "" {
		return models.NewSessionState(uuid.NewString()), nil
	}

	state, err := a.sessions.Get(ctx, sessionID)
	if errors.Is(err, session.ErrNotFound) {
		return models.NewSessionState(sessionID), nil
	}
	if err != nil {
		return nil, commonerrors.NewSessionStoreFailedError(err)
	}
	return state, nil
}

func summarize(state *models.SessionState, status string) models.WorkflowSummary {
	summary := models.WorkflowSummary{
		Stage:           state.Stage,
		Status:          status,
		IdentifiedCount: len(state.Opportunities),
		ReportRef:       state.ReportRef,
	}
	if state.Selected != nil {
		summary.SelectedID = state.Selected.Opportunity.ID
	}
	return summary
}

// ==========================
// Meta-question handling
// ==========================

// Status and show-results questions are answered from state without running
// a stage, so asking about progress can never advance the workflow.

func isStatusRequest(message string) bool {
	m := strings.ToLower(message)
	return strings.Contains(m, "status") || strings.Contains(m, "progress") ||
		strings.Contains(m, "where are we")
}

func isShowResultsRequest(message string) bool {
	m := strings.ToLower(message)
	return strings.Contains(m, "show result") || strings.Contains(m, "show the result") ||
		strings.Contains(m, "show report") || strings.Contains(m, "show me the report")
}

func statusReply(state *models.SessionState) string {
	switch state.Stage {
	case models.StageInitial:
		return "No scan has run yet. Ask me to scan for opportunities to get started."
	case models.StageScanning, models.StageSelecting:
		return fmt.Sprintf("I've identified %d opportunities and I'm waiting for you to pick one.",
			len(state.Opportunities))
	case models.StageAnalyzing, models.StagePricing, models.StageCompiling:
		if state.Selected != nil {
			return fmt.Sprintf("I'm working on %s (%s).",
				state.Selected.Opportunity.ID, state.Stage)
		}
		return fmt.Sprintf("The workflow is in the %s stage.", state.Stage)
	case models.StageComplete:
		return fmt.Sprintf("The response is compiled. Report reference: %s.", state.ReportRef)
	case models.StageError:
		return "The last step failed. Send your request again to retry."
	default:
		return fmt.Sprintf("The workflow is in the %s stage.", state.Stage)
	}
}

func resultsReply(state *models.SessionState) string {
	if state.FinalResponse != "" {
		return state.FinalResponse
	}
	if len(state.Opportunities) > 0 {
		var b strings.Builder
		fmt.Fprintf(&b, "Identified opportunities (%d):\n", len(state.Opportunities))
		for i, opp := range state.Opportunities {
			fmt.Fprintf(&b, "%d. %s — %s (score %d, %d days remaining)\n",
				i+1, opp.Opportunity.ID, opp.Opportunity.Title,
				opp.Qualification.Score, opp.DaysRemaining)
		}
		return b.String()
	}
	return "There are no results yet. Ask me to scan for opportunities first."
}

func turnErrorReply(err error) string {
	var stdErr *commonerrors.StandardError
	if errors.As(err, &stdErr) {
		switch stdErr.Code {
		case commonerrors.ErrCodeGenerationFailed, commonerrors.ErrCodeGenerationTimeout:
			return "I couldn't compile the final response just now. Send your request again to retry."
		}
	}
	return "Something went wrong while processing that. Please try again."
}

// ==========================
// HTTP surface
// ==========================

// NewMux wires the chat endpoints, health check and prometheus metrics.
func NewMux(a *Assistant) *http.ServeMux {
	mux := http.NewServeMux()

	mux.HandleFunc("POST /api/chat", a.handleChat)
	mux.HandleFunc("GET /api/chat/state/{id}", a.handleState)
	mux.HandleFunc("GET /api/reports/{sessionId}/{opportunityId}", a.handleReport)
	mux.HandleFunc("GET /health", handleHealth)
	mux.Handle("GET /metrics", promhttp.Handler())

	return mux
}

func (a *Assistant) handleChat(w http.ResponseWriter, r *http.Request) {
	var req models.ChatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	resp, err := a.Chat(r.Context(), &req)
	if err != nil {
		var stdErr *commonerrors.StandardError
		if errors.As(err, &stdErr) && stdErr.Code == "BUSINESS_RULE_VIOLATION" {
			writeError(w, http.StatusBadRequest, stdErr.Message)
			return
		}
		a.logger.Error("chat request failed", map[string]interface{}{"error": err.Error()})
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	writeJSON(w, http.StatusOK, resp)
}

func (a *Assistant) handleState(w http.ResponseWriter, r *http.Request) {
	state, err := a.State(r.Context(), r.PathValue("id"))
	if errors.Is(err, session.ErrNotFound) {
		writeError(w, http.StatusNotFound, "session not found")
		return
	}
	if err != nil {
		a.logger.Error("state lookup failed", map[string]interface{}{"error": err.Error()})
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	writeJSON(w, http.StatusOK, state)
}

// handleReport serves the compiled report text. The reference is the same
// deterministic derivation the compile stage attaches to state.
func (a *Assistant) handleReport(w http.ResponseWriter, r *http.Request) {
	state, err := a.State(r.Context(), r.PathValue("sessionId"))
	if errors.Is(err, session.ErrNotFound) {
		writeError(w, http.StatusNotFound, "report not found")
		return
	}
	if err != nil {
		a.logger.Error("report lookup failed", map[string]interface{}{"error": err.Error()})
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	ref := compile.ReportRef(r.PathValue("sessionId"), r.PathValue("opportunityId"))
	if state.FinalResponse == "" || state.ReportRef != ref {
		writeError(w, http.StatusNotFound, "report not found")
		return
	}

	w.Header().Set("Content-Type", "text/markdown; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(state.FinalResponse))
}

func handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "healthy"})
}

func writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(body)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}
