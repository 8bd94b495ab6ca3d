// internal/models/chat.go
package models

import "time"

// ChatRequest is the body of POST /api/chat. SessionID is optional; a new
// session is minted when it is absent.
type ChatRequest struct {
	SessionID string `json:"session_id,omitempty"`
	Message   string `json:"message"`
}

// WorkflowSummary reports the workflow position after a turn.
type WorkflowSummary struct {
	Stage           string `json:"stage"`
	Status          string `json:"status"` // "ok" or "error"
	IdentifiedCount int    `json:"identified_count"`
	SelectedID      string `json:"selected_id,omitempty"`
	ReportRef       string `json:"report_ref,omitempty"`
}

// ChatResponse is the body returned by POST /api/chat.
type ChatResponse struct {
	Response  string          `json:"response"`
	SessionID string          `json:"session_id"`
	Timestamp time.Time       `json:"timestamp"`
	Workflow  WorkflowSummary `json:"workflow"`
}
