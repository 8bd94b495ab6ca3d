// internal/models/session.go
package models

import "time"

// Workflow stage tags.
const (
	StageInitial   = "initial"
	StageScanning  = "scanning"
	StageSelecting = "awaiting_selection"
	StageAnalyzing = "analyzing"
	StagePricing   = "pricing"
	StageCompiling = "compiling"
	StageComplete  = "complete"
	StageError     = "error"
)

// Message is one entry in the session conversation log.
type Message struct {
	Role      string    `json:"role"` // "user" or "assistant"
	Content   string    `json:"content"`
	Timestamp time.Time `json:"timestamp"`
}

// SessionState is the accumulated record threaded through every router
// decision. Mutated only by router-dispatched stages; persisted between
// turns by the session store, which owns its lifetime.
type SessionState struct {
	SessionID     string                 `json:"session_id"`
	Messages      []Message              `json:"messages"`
	Opportunities []QualifiedOpportunity `json:"opportunities"`
	Selected      *QualifiedOpportunity  `json:"selected,omitempty"`
	Technical     *TechnicalAnalysis     `json:"technical,omitempty"`
	Pricing       *PricingResult         `json:"pricing,omitempty"`
	FinalResponse string                 `json:"final_response,omitempty"`
	ReportRef     string                 `json:"report_ref,omitempty"`
	Stage         string                 `json:"stage"`
	AwaitingUser  bool                   `json:"awaiting_user"`
	CreatedAt     time.Time              `json:"created_at"`
	UpdatedAt     time.Time              `json:"updated_at"`
}

// NewSessionState creates an empty session in the initial stage.
func NewSessionState(sessionID string) *SessionState {
	now := time.Now().UTC()
	return &SessionState{
		SessionID: sessionID,
		Stage:     StageInitial,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// AppendMessage adds one entry to the conversation log.
func (s *SessionState) AppendMessage(role, content string) {
	s.Messages = append(s.Messages, Message{
		Role:      role,
		Content:   content,
		Timestamp: time.Now().UTC(),
	})
	s.UpdatedAt = time.Now().UTC()
}

// FindOpportunity resolves a selection token against the identified list:
// a 1-based index, the canonical ID, or the alias ID.
func (s *SessionState) FindOpportunity(index int, token string) *QualifiedOpportunity {
	if index >= 1 && index <= len(s.Opportunities) {
		return &s.Opportunities[index-1]
	}
	for i := range s.Opportunities {
		if s.Opportunities[i].Opportunity.MatchesIdentifier(token) {
			return &s.Opportunities[i]
		}
	}
	return nil
}
