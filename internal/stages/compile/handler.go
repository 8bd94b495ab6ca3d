// internal/stages/compile/handler.go

// Package compile implements the final stage: generate an executive summary
// (via the language-model service, or a deterministic template when it is
// disabled), assemble the response report and attach the report reference.
package compile

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"

	commonerrors "rfp-workers/internal/common/errors"
	"rfp-workers/internal/common/genai"
	"rfp-workers/internal/common/logger"
	"rfp-workers/internal/models"
	"rfp-workers/internal/router"
)

const (
	TaskType = "compile-response"
)

type Handler struct {
	config *Config
	genai  *genai.Client
	logger logger.Logger
}

func NewHandler(config *Config, genaiClient *genai.Client, log logger.Logger) *Handler {
	return &Handler{
		config: config,
		genai:  genaiClient,
		logger: log.WithFields(map[string]interface{}{"taskType": TaskType}),
	}
}

// ReportRef derives the deterministic report identifier for a session and
// opportunity pair. Slashes are flattened so the reference is path-safe.
func ReportRef(sessionID, opportunityID string) string {
	return strings.ReplaceAll(sessionID+"_"+opportunityID, "/", "_")
}

// Compile builds the final response text. With the language-model service
// enabled, a failed generation call is returned as-is so the turn fails
// without any partial result; disabled, the templated summary is used.
func (h *Handler) Compile(
	ctx context.Context,
	sessionID string,
	opp *models.Opportunity,
	analysis *models.TechnicalAnalysis,
	pricing *models.PricingResult,
) (*Output, error) {
	summary, err := h.executiveSummary(ctx, opp, analysis, pricing)
	if err != nil {
		return nil, err
	}

	ref := ReportRef(sessionID, opp.ID)

	var b strings.Builder
	fmt.Fprintf(&b, "# RFP Response: %s\n\n", opp.Title)
	b.WriteString("## Executive Summary\n")
	b.WriteString(strings.TrimSpace(summary))
	b.WriteString("\n\n")

	if analysis != nil {
		fmt.Fprintf(&b, "## Technical Fit (feasibility: %s)\n", analysis.Feasibility)
		for _, li := range analysis.LineItems {
			if len(li.TopMatches) == 0 {
				fmt.Fprintf(&b, "- %s: no matching products found\n", li.Requirement)
				continue
			}
			fmt.Fprintf(&b, "- %s: %s (%.0f%% spec match)\n",
				li.Requirement, li.TopMatches[0].SKU, li.TopMatches[0].MatchPercent)
		}
		b.WriteString("\n")
	}

	if pricing != nil {
		bd := pricing.Breakdown
		b.WriteString("## Commercial Quote\n")
		fmt.Fprintf(&b, "- Material cost (%.1f km): %.2f\n", pricing.AssumedLengthKM, bd.MaterialCost)
		fmt.Fprintf(&b, "- Testing cost (%s): %.2f\n", strings.Join(pricing.RecommendedTests, ", "), bd.TestingCost)
		fmt.Fprintf(&b, "- Overhead: %.2f\n", bd.OverheadCost)
		fmt.Fprintf(&b, "- Contingency: %.2f\n", bd.ContingencyCost)
		fmt.Fprintf(&b, "- Grand total: %.2f\n", bd.GrandTotal)
		b.WriteString("\n")
	}

	fmt.Fprintf(&b, "Report available at /api/reports/%s/%s\n", sessionID, opp.ID)

	return &Output{
		FinalResponse: b.String(),
		ReportRef:     ref,
	}, nil
}

func (h *Handler) executiveSummary(
	ctx context.Context,
	opp *models.Opportunity,
	analysis *models.TechnicalAnalysis,
	pricing *models.PricingResult,
) (string, error) {
	if h.genai == nil || !h.genai.Enabled() {
		return fallbackSummary(opp, analysis, pricing), nil
	}

	systemPrompt := "You write concise executive summaries for RFP responses from a cable manufacturer. " +
		"Summarize the fit and the quote in at most four sentences."
	userPrompt := buildSummaryPrompt(opp, analysis, pricing)

	text, err := h.genai.Generate(ctx, systemPrompt, userPrompt)
	if err != nil {
		if errors.Is(err, genai.ErrGenerationTimeout) {
			return "", commonerrors.NewGenerationTimeoutError()
		}
		return "", commonerrors.NewGenerationFailedError(err)
	}
	return text, nil
}

func buildSummaryPrompt(opp *models.Opportunity, analysis *models.TechnicalAnalysis, pricing *models.PricingResult) string {
	var b strings.Builder
	fmt.Fprintf(&b, "RFP: %s for %s (estimated value %.0f, deadline %s)\n",
		opp.Title, opp.Client, opp.EstimatedValue, opp.Deadline.Format("2006-01-02"))

	if analysis != nil {
		fmt.Fprintf(&b, "Feasibility: %s\n", analysis.Feasibility)
		for _, li := range analysis.LineItems {
			if len(li.TopMatches) > 0 {
				fmt.Fprintf(&b, "Line item %q matched %s at %.0f%%\n",
					li.Requirement, li.TopMatches[0].SKU, li.TopMatches[0].MatchPercent)
			}
		}
	}
	if pricing != nil {
		fmt.Fprintf(&b, "Quoted grand total: %.2f\n", pricing.Breakdown.GrandTotal)
	}
	return b.String()
}

// fallbackSummary is the deterministic summary used when the language-model
// service is disabled.
func fallbackSummary(opp *models.Opportunity, analysis *models.TechnicalAnalysis, pricing *models.PricingResult) string {
	feasibility := models.FeasibilityLow
	if analysis != nil {
		feasibility = analysis.Feasibility
	}

	summary := fmt.Sprintf("We propose to respond to %q from %s. Technical feasibility is rated %s.",
		opp.Title, opp.Client, feasibility)
	if pricing != nil {
		summary += fmt.Sprintf(" The quoted grand total is %.2f including testing, overhead and contingency.",
			pricing.Breakdown.GrandTotal)
	}
	return summary
}

// Execute is the router stage function. A generation failure is fatal to
// this turn: the stage marker flips to the error state, nothing else is
// touched, and the next user turn re-attempts compilation from the same
// preconditions.
func (h *Handler) Execute(ctx context.Context, state *models.SessionState, _ string) (router.Directive, error) {
	if state.Selected == nil || state.Technical == nil || state.Pricing == nil {
		return router.AwaitUser("The analysis and pricing steps haven't completed yet, so there is nothing to compile."), nil
	}

	output, err := h.Compile(ctx, state.SessionID, &state.Selected.Opportunity, state.Technical, state.Pricing)
	if err != nil {
		state.Stage = models.StageError
		h.logger.Error("compilation failed", map[string]interface{}{
			"sessionId":     state.SessionID,
			"opportunityId": state.Selected.Opportunity.ID,
			"error":         err.Error(),
		})
		return router.Directive{}, err
	}

	state.FinalResponse = output.FinalResponse
	state.ReportRef = output.ReportRef
	state.Stage = models.StageComplete

	return router.Done(output.FinalResponse), nil
}

// Handle is the Zeebe worker wrapper.
func (h *Handler) Handle(client worker.JobClient, job entities.Job) error {
	h.logger.Info("processing job", map[string]interface{}{
		"jobKey":      job.Key,
		"workflowKey": job.ProcessInstanceKey,
	})

	var input Input
	if err := json.Unmarshal([]byte(job.Variables), &input); err != nil {
		h.failJob(client, job, "PARSE_ERROR", fmt.Sprintf("parse input: %v", err))
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), h.config.Timeout)
	defer cancel()

	output, err := h.Compile(ctx, input.SessionID, &input.Opportunity, input.Analysis, input.Pricing)
	if err != nil {
		var stdErr *commonerrors.StandardError
		if errors.As(err, &stdErr) {
			bpmnErr := commonerrors.ConvertToBPMNError(stdErr)
			h.failJob(client, job, bpmnErr.Code, bpmnErr.Message)
		} else {
			h.failJob(client, job, "COMPILATION_FAILED", err.Error())
		}
		return err
	}

	h.completeJob(client, job, output)
	return nil
}

func (h *Handler) completeJob(client worker.JobClient, job entities.Job, output *Output) {
	cmd, err := client.NewCompleteJobCommand().
		JobKey(job.Key).
		VariablesFromObject(output)
	if err != nil {
		h.logger.Error("failed to create complete job command", map[string]interface{}{
			"error": err,
		})
		return
	}
	if _, err = cmd.Send(context.Background()); err != nil {
		h.logger.Error("failed to send complete job command", map[string]interface{}{
			"error": err,
		})
	}
}

func (h *Handler) failJob(client worker.JobClient, job entities.Job, errorCode, errorMessage string) {
	h.logger.Error("job failed", map[string]interface{}{
		"jobKey":       job.Key,
		"errorCode":    errorCode,
		"errorMessage": errorMessage,
	})

	_, err := client.NewThrowErrorCommand().
		JobKey(job.Key).
		ErrorCode(errorCode).
		ErrorMessage(errorMessage).
		Send(context.Background())
	if err != nil {
		h.logger.Error("failed to throw error", map[string]interface{}{
			"error": err,
		})
	}
}
