// internal/stages/technical/handler.go
package technical

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"

	"rfp-workers/internal/catalog"
	"rfp-workers/internal/common/logger"
	"rfp-workers/internal/models"
	"rfp-workers/internal/router"
)

const (
	TaskType = "analyze-technical"
)

type Handler struct {
	config  *Config
	catalog catalog.Store
	logger  logger.Logger
}

func NewHandler(config *Config, store catalog.Store, log logger.Logger) *Handler {
	return &Handler{
		config:  config,
		catalog: store,
		logger:  log.WithFields(map[string]interface{}{"taskType": TaskType}),
	}
}

// Analyze matches every line item of the opportunity against the catalog.
// An opportunity without line items is analyzed on its description. An
// empty catalog yields a well-typed low-feasibility result, never an error.
func (h *Handler) Analyze(opp *models.Opportunity) *models.TechnicalAnalysis {
	products := h.catalog.Products()

	items := opp.LineItems
	if len(items) == 0 && opp.Description != "" {
		items = []models.LineItem{{Description: opp.Description, Quantity: 1}}
	}

	analysis := &models.TechnicalAnalysis{OpportunityID: opp.ID}
	for _, item := range items {
		analysis.LineItems = append(analysis.LineItems, models.LineItemAnalysis{
			Requirement: item.Description,
			Quantity:    item.Quantity,
			TopMatches:  Match(item.Description, products),
		})
	}
	analysis.Feasibility = Feasibility(analysis.LineItems)

	return analysis
}

func summarize(analysis *models.TechnicalAnalysis) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Technical analysis for %s (feasibility: %s)\n", analysis.OpportunityID, analysis.Feasibility)

	for i, li := range analysis.LineItems {
		fmt.Fprintf(&b, "%d. %s\n", i+1, li.Requirement)
		if len(li.TopMatches) == 0 {
			b.WriteString("   no matching products found\n")
			continue
		}
		for rank, m := range li.TopMatches {
			fmt.Fprintf(&b, "   %d) %s — %.0f%% spec match\n", rank+1, m.SKU, m.MatchPercent)
		}
	}
	return b.String()
}

// Execute is the router stage function. It requires a selected opportunity;
// without one it reports the missing precondition and leaves state alone.
func (h *Handler) Execute(_ context.Context, state *models.SessionState, _ string) (router.Directive, error) {
	if state.Selected == nil {
		return router.AwaitUser("No opportunity is selected yet. Pick one from the identified list first."), nil
	}

	analysis := h.Analyze(&state.Selected.Opportunity)
	state.Technical = analysis

	h.logger.Info("technical analysis complete", map[string]interface{}{
		"sessionId":     state.SessionID,
		"opportunityId": analysis.OpportunityID,
		"lineItems":     len(analysis.LineItems),
		"feasibility":   analysis.Feasibility,
	})

	return router.Continue(router.StagePricing), nil
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

	if input.Opportunity.ID == "" {
		err := fmt.Errorf("no opportunity in job variables")
		h.failJob(client, job, "NO_SELECTION", err.Error())
		return err
	}

	analysis := h.Analyze(&input.Opportunity)
	h.completeJob(client, job, &Output{
		Analysis: analysis,
		Summary:  summarize(analysis),
	})
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
