// internal/stages/pricing/handler.go
package pricing

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"

	"rfp-workers/internal/catalog"
	"rfp-workers/internal/common/logger"
	"rfp-workers/internal/models"
	"rfp-workers/internal/router"
)

const (
	TaskType = "calculate-pricing"
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

// Price computes the full pricing result for an analyzed opportunity.
func (h *Handler) Price(opp *models.Opportunity, analysis *models.TechnicalAnalysis) *models.PricingResult {
	pricingTable := h.catalog.TestPricing()

	lengthKM := opp.LengthKM
	if lengthKM <= 0 {
		lengthKM = h.config.DefaultLengthKM
	}

	tests := RecommendTests(opp, pricingTable)
	materialCost := MaterialCost(analysis, lengthKM)
	testingCost := TestingCost(tests, pricingTable)

	return &models.PricingResult{
		OpportunityID:    opp.ID,
		RecommendedTests: tests,
		AssumedLengthKM:  lengthKM,
		Breakdown:        Breakdown(materialCost, testingCost, h.config.OverheadPct, h.config.ContingencyPct),
	}
}

// Execute is the router stage function. It requires a selected opportunity
// and its technical analysis; a missing analysis still prices (zero
// material cost) so the workflow can report a degraded quote.
func (h *Handler) Execute(_ context.Context, state *models.SessionState, _ string) (router.Directive, error) {
	if state.Selected == nil {
		return router.AwaitUser("No opportunity is selected yet. Pick one from the identified list first."), nil
	}

	result := h.Price(&state.Selected.Opportunity, state.Technical)
	state.Pricing = result

	h.logger.Info("pricing complete", map[string]interface{}{
		"sessionId":     state.SessionID,
		"opportunityId": result.OpportunityID,
		"grandTotal":    result.Breakdown.GrandTotal,
	})

	return router.Continue(router.StageCompile), nil
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

	result := h.Price(&input.Opportunity, input.Analysis)
	h.completeJob(client, job, &Output{Pricing: result})
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
