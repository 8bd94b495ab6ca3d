// internal/stages/qualify/handler.go

// Package qualify implements the scan stage: pull candidate opportunities
// from the configured source, apply the qualification rules, rank the
// qualified ones and present the top of the list for selection.
package qualify

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"

	"rfp-workers/internal/common/genai"
	"rfp-workers/internal/common/logger"
	"rfp-workers/internal/models"
	"rfp-workers/internal/opportunity"
	"rfp-workers/internal/router"
)

const (
	TaskType = "qualify-opportunities"
)

type Handler struct {
	config *Config
	source opportunity.Source
	genai  *genai.Client
	logger logger.Logger
	now    func() time.Time
}

func NewHandler(config *Config, source opportunity.Source, genaiClient *genai.Client, log logger.Logger) *Handler {
	return &Handler{
		config: config,
		source: source,
		genai:  genaiClient,
		logger: log.WithFields(map[string]interface{}{"taskType": TaskType}),
		now:    time.Now,
	}
}

// Qualify applies the rule-based criteria to one opportunity. A deadline
// closer than the configured minimum disqualifies outright regardless of
// the other criteria; otherwise qualified = (score >= 60).
func Qualify(opp *models.Opportunity, cfg *Config, now time.Time) models.Qualification {
	days := opp.DaysRemaining(now)
	score := 0
	var reasons []string

	deadlineOK := days >= cfg.MinDaysRemaining
	if deadlineOK {
		score += 30
		reasons = append(reasons, fmt.Sprintf("deadline is %d days out", days))
	} else {
		reasons = append(reasons, fmt.Sprintf("disqualified: only %d days to deadline (minimum %d)", days, cfg.MinDaysRemaining))
	}

	if opp.EstimatedValue >= cfg.MinEstimatedValue {
		score += 40
		reasons = append(reasons, fmt.Sprintf("estimated value %.0f meets the %.0f minimum", opp.EstimatedValue, cfg.MinEstimatedValue))
	} else {
		reasons = append(reasons, fmt.Sprintf("estimated value %.0f below the %.0f minimum", opp.EstimatedValue, cfg.MinEstimatedValue))
	}

	if locationPreferred(opp.Location, cfg.PreferredLocations) {
		score += 30
		reasons = append(reasons, "location is preferred")
	} else {
		reasons = append(reasons, fmt.Sprintf("location %q not in the preferred set", opp.Location))
	}

	return models.Qualification{
		Qualified: deadlineOK && score >= 60,
		Score:     score,
		Reasons:   reasons,
	}
}

func locationPreferred(location string, preferred []string) bool {
	if len(preferred) == 0 {
		return true
	}
	for _, p := range preferred {
		if strings.EqualFold(strings.TrimSpace(p), strings.TrimSpace(location)) {
			return true
		}
	}
	return false
}

// Prioritize attaches priority scores (qualification score + urgency) and
// returns the list sorted by descending priority, stable on scan order.
func Prioritize(qualified []models.QualifiedOpportunity) []models.QualifiedOpportunity {
	ranked := make([]models.QualifiedOpportunity, len(qualified))
	copy(ranked, qualified)

	for i := range ranked {
		ranked[i].PriorityScore = ranked[i].Qualification.Score + (100 - ranked[i].DaysRemaining)
	}

	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].PriorityScore > ranked[j].PriorityScore
	})
	return ranked
}

// ExtractKeywords pulls scan keywords out of a user message, dropping
// intent words and filler so "scan for underground cable tenders" searches
// on "underground cable".
func ExtractKeywords(message string) []string {
	stopwords := map[string]struct{}{
		"scan": {}, "find": {}, "search": {}, "look": {}, "for": {},
		"the": {}, "a": {}, "an": {}, "me": {}, "in": {}, "new": {},
		"any": {}, "all": {}, "please": {}, "opportunities": {},
		"opportunity": {}, "tenders": {}, "tender": {}, "rfps": {}, "rfp": {},
	}

	var keywords []string
	for _, word := range strings.Fields(strings.ToLower(message)) {
		word = strings.Trim(word, ".,;:!?\"'()")
		if len(word) < 3 {
			continue
		}
		if _, ok := stopwords[word]; ok {
			continue
		}
		keywords = append(keywords, word)
	}
	return keywords
}

// ExecuteScan runs the scan + qualify + prioritize pipeline. Used by both
// the in-process router stage and the Zeebe worker wrapper.
func (h *Handler) ExecuteScan(ctx context.Context, keywords []string) (*Output, error) {
	opportunities, err := h.source.Scan(ctx, keywords)
	if err != nil {
		return nil, err
	}

	now := h.now()
	var qualified []models.QualifiedOpportunity
	for i := range opportunities {
		q := h.qualifyOne(ctx, &opportunities[i], now)
		if !q.Qualified {
			continue
		}
		qualified = append(qualified, models.QualifiedOpportunity{
			Opportunity:   opportunities[i],
			Qualification: q,
			DaysRemaining: opportunities[i].DaysRemaining(now),
		})
	}

	ranked := Prioritize(qualified)

	return &Output{
		Opportunities:  ranked,
		ScannedCount:   len(opportunities),
		QualifiedCount: len(ranked),
		Presentation:   h.present(ranked),
	}, nil
}

// qualifyOne applies LLM-assisted scoring when enabled, falling back to the
// rule-based qualifier on any transport or parse failure. The hard deadline
// rule applies in both modes.
func (h *Handler) qualifyOne(ctx context.Context, opp *models.Opportunity, now time.Time) models.Qualification {
	ruleBased := Qualify(opp, h.config, now)

	if !h.config.LLMAssisted || h.genai == nil || !h.genai.Enabled() {
		return ruleBased
	}

	llm, err := h.llmQualify(ctx, opp)
	if err != nil {
		h.logger.Warn("llm qualification failed, using rule-based score", map[string]interface{}{
			"opportunityId": opp.ID,
			"error":         err.Error(),
		})
		return ruleBased
	}

	deadlineOK := opp.DaysRemaining(now) >= h.config.MinDaysRemaining
	return models.Qualification{
		Qualified: deadlineOK && llm.Score >= 60,
		Score:     llm.Score,
		Reasons:   llm.Reasons,
	}
}

type llmAssessment struct {
	Score   int      `json:"score"`
	Reasons []string `json:"reasons"`
}

func (h *Handler) llmQualify(ctx context.Context, opp *models.Opportunity) (*llmAssessment, error) {
	systemPrompt := "You assess RFP opportunities for a cable manufacturer. " +
		`Respond with JSON only, exactly {"score": <int 0-100>, "reasons": [<strings>]}.`
	userPrompt := fmt.Sprintf(
		"Title: %s\nClient: %s\nEstimated value: %.0f\nDeadline: %s\nLocation: %s\nDescription: %s",
		opp.Title, opp.Client, opp.EstimatedValue, opp.Deadline.Format("2006-01-02"), opp.Location, opp.Description,
	)

	text, err := h.genai.Generate(ctx, systemPrompt, userPrompt)
	if err != nil {
		return nil, err
	}

	var assessment llmAssessment
	if err := json.Unmarshal([]byte(strings.TrimSpace(text)), &assessment); err != nil {
		return nil, fmt.Errorf("%w: response is not the expected schema: %v", genai.ErrGenerationFailed, err)
	}
	if assessment.Score < 0 || assessment.Score > 100 {
		return nil, fmt.Errorf("%w: score %d out of range", genai.ErrGenerationFailed, assessment.Score)
	}
	return &assessment, nil
}

func (h *Handler) present(ranked []models.QualifiedOpportunity) string {
	if len(ranked) == 0 {
		return "I scanned the available sources but found no qualifying opportunities. " +
			"You can try different keywords or scan again later."
	}

	topN := h.config.TopN
	if topN <= 0 || topN > len(ranked) {
		topN = len(ranked)
	}

	var b strings.Builder
	fmt.Fprintf(&b, "I found %d qualified opportunities. Top %d by priority:\n", len(ranked), topN)
	for i := 0; i < topN; i++ {
		opp := ranked[i]
		fmt.Fprintf(&b, "%d. %s (%s) — %s, value %.0f, %d days to deadline, score %d\n",
			i+1,
			opp.Opportunity.Title,
			opp.Opportunity.ID,
			opp.Opportunity.Client,
			opp.Opportunity.EstimatedValue,
			opp.DaysRemaining,
			opp.Qualification.Score,
		)
	}
	b.WriteString("Reply with a number or an RFP identifier to analyze one.")
	return b.String()
}

// Execute is the router stage function: runs the scan pipeline and parks
// the session awaiting a selection. Scan failures degrade to a response
// with the error stage marker rather than aborting the turn.
func (h *Handler) Execute(ctx context.Context, state *models.SessionState, userMessage string) (router.Directive, error) {
	output, err := h.ExecuteScan(ctx, ExtractKeywords(userMessage))
	if err != nil {
		h.logger.Error("opportunity scan failed", map[string]interface{}{
			"sessionId": state.SessionID,
			"error":     err.Error(),
		})
		state.Stage = models.StageError
		return router.AwaitUser("I couldn't reach the opportunity sources just now. Please try scanning again."), nil
	}

	state.Opportunities = output.Opportunities
	state.Stage = models.StageSelecting
	return router.AwaitUser(output.Presentation), nil
}

// Handle is the Zeebe worker wrapper around the scan pipeline.
func (h *Handler) Handle(client worker.JobClient, job entities.Job) error {
	h.logger.Info("processing job", map[string]interface{}{
		"jobKey":      job.Key,
		"workflowKey": job.ProcessInstanceKey,
	})

	var input Input
	if err := json.Unmarshal([]byte(job.Variables), &input); err != nil {
		h.failJob(client, job, "PARSE_ERROR", fmt.Sprintf("parse input: %v", err), 0)
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), h.config.Timeout)
	defer cancel()

	keywords := input.Keywords
	if len(keywords) == 0 {
		keywords = ExtractKeywords(input.Message)
	}

	output, err := h.ExecuteScan(ctx, keywords)
	if err != nil {
		h.failJob(client, job, "OPPORTUNITY_SCAN_FAILED", err.Error(), 3)
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

func (h *Handler) failJob(client worker.JobClient, job entities.Job, errorCode, errorMessage string, retries int32) {
	h.logger.Error("job failed", map[string]interface{}{
		"jobKey":       job.Key,
		"errorCode":    errorCode,
		"errorMessage": errorMessage,
		"retries":      retries,
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
