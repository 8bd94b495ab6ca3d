// internal/router/router.go
package router

import (
	"context"
	"fmt"

	"rfp-workers/internal/common/logger"
	"rfp-workers/internal/models"
)

// Action is the outcome of the pure decision function.
type Action string

const (
	ActionCompile   Action = "compile"
	ActionTechnical Action = "technical"
	ActionScan      Action = "scan"
	ActionAwaitUser Action = "await_user"
)

// Decision is the result of applying the routing rules to a session state
// and the newest user message. It carries no side effects; the dispatch
// loop applies them.
type Decision struct {
	Action        Action
	Selected      *models.QualifiedOpportunity // set for ActionTechnical
	Clarification string                       // set for ActionAwaitUser
}

const (
	selectionClarification = "I couldn't match that to one of the identified opportunities. " +
		"Reply with the opportunity number (e.g. \"option 2\") or its RFP identifier."
	genericClarification = "I can scan for new RFP opportunities or analyze one already identified. " +
		"Try \"scan for opportunities\" or \"select option 1\"."
)

// Decide applies the routing rules in order; the first matching rule wins.
// Later rules assume earlier ones did not fire, so the order is part of the
// contract. Decide never mutates state.
func Decide(state *models.SessionState, message string) Decision {
	// Rule 1: analysis and pricing are done but nothing compiled yet.
	if state.Selected != nil && state.Technical != nil && state.Pricing != nil && state.FinalResponse == "" {
		return Decision{Action: ActionCompile}
	}

	intent := Classify(message)

	// Rule 2: opportunities are on the table and the user is picking one.
	if len(state.Opportunities) > 0 && intent == IntentSelection {
		if selected := resolveSelection(state, message); selected != nil {
			return Decision{Action: ActionTechnical, Selected: selected}
		}
		return Decision{Action: ActionAwaitUser, Clarification: selectionClarification}
	}

	// Rule 3: explicit scan request, or nothing identified yet. A selection
	// utterance against an empty list is not an implicit scan request; it
	// falls through to the clarification below.
	if intent == IntentScan || (len(state.Opportunities) == 0 && intent != IntentSelection) {
		return Decision{Action: ActionScan}
	}

	// Rule 4: nothing to do with this message.
	return Decision{Action: ActionAwaitUser, Clarification: genericClarification}
}

// resolveSelection maps a selection utterance onto one of the identified
// opportunities: 1-based index first, then identifier candidates against
// both the canonical id and the alias.
func resolveSelection(state *models.SessionState, message string) *models.QualifiedOpportunity {
	token := ParseSelectionToken(message)

	if token.Index >= 1 && token.Index <= len(state.Opportunities) {
		return &state.Opportunities[token.Index-1]
	}

	for _, candidate := range token.Candidates {
		if opp := state.FindOpportunity(0, candidate); opp != nil {
			return opp
		}
	}
	return nil
}

// StageFunc executes one processing stage against the session state and
// returns a directive for the dispatch loop.
type StageFunc func(ctx context.Context, state *models.SessionState, userMessage string) (Directive, error)

// Router owns the dispatch table from stage name to stage function.
type Router struct {
	stages map[string]StageFunc
	logger logger.Logger
}

func New(log logger.Logger) *Router {
	return &Router{
		stages: make(map[string]StageFunc),
		logger: log.With(map[string]interface{}{"component": "router"}),
	}
}

// Register binds a stage name to its function. Stage names are the
// StageQualify/StageTechnical/StagePricing/StageCompile constants.
func (r *Router) Register(name string, fn StageFunc) {
	r.stages[name] = fn
}

// Route processes one user message: a single decision, then internal
// stage-to-stage dispatch until a stage yields AWAIT_USER or DONE. Stage
// errors are fatal to the turn and surface to the caller; per-stage
// recovery (clarifications, fallbacks, degraded results) happens inside the
// stages themselves.
func (r *Router) Route(ctx context.Context, state *models.SessionState, message string) (Directive, error) {
	decision := Decide(state, message)

	var next string
	switch decision.Action {
	case ActionAwaitUser:
		state.AwaitingUser = true
		return AwaitUser(decision.Clarification), nil

	case ActionCompile:
		state.Stage = models.StageCompiling
		next = StageCompile

	case ActionTechnical:
		state.Selected = decision.Selected
		state.Stage = models.StageAnalyzing
		next = StageTechnical

	case ActionScan:
		state.Stage = models.StageScanning
		next = StageQualify
	}

	for {
		fn, ok := r.stages[next]
		if !ok {
			return Directive{}, fmt.Errorf("no stage registered for %q", next)
		}

		r.logger.Info("dispatching stage", map[string]interface{}{
			"sessionId": state.SessionID,
			"stage":     next,
		})

		directive, err := fn(ctx, state, message)
		if err != nil {
			return Directive{}, err
		}

		switch directive.Kind {
		case KindContinue:
			next = directive.Next
		case KindAwaitUser:
			state.AwaitingUser = true
			return directive, nil
		case KindDone:
			state.AwaitingUser = true
			return directive, nil
		default:
			return Directive{}, fmt.Errorf("stage %q returned invalid directive kind %q", next, directive.Kind)
		}
	}
}
