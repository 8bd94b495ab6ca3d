// internal/router/directive.go

// Package router implements the workflow state machine that decides, per
// user message, which processing stage runs next, and drives internal
// stage-to-stage transitions until control returns to the user.
package router

// DirectiveKind tells the dispatch loop what to do after a decision or a
// stage execution.
type DirectiveKind string

const (
	// KindContinue dispatches the named next stage without returning to the user.
	KindContinue DirectiveKind = "CONTINUE"
	// KindAwaitUser returns control to the caller with a response.
	KindAwaitUser DirectiveKind = "AWAIT_USER"
	// KindDone ends the workflow for this turn; the final response is ready.
	KindDone DirectiveKind = "DONE"
)

// Stage names used as dispatch keys.
const (
	StageQualify   = "qualify"
	StageTechnical = "technical"
	StagePricing   = "pricing"
	StageCompile   = "compile"
)

// Directive is what stages (and the decision function) hand back to the
// dispatch loop.
type Directive struct {
	Kind     DirectiveKind
	Next     string // stage name, set when Kind == KindContinue
	Response string // user-visible text, set when Kind is AWAIT_USER or DONE
}

func Continue(next string) Directive {
	return Directive{Kind: KindContinue, Next: next}
}

func AwaitUser(response string) Directive {
	return Directive{Kind: KindAwaitUser, Response: response}
}

func Done(response string) Directive {
	return Directive{Kind: KindDone, Response: response}
}
