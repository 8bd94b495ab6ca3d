// internal/stages/technical/models.go
package technical

import "rfp-workers/internal/models"

type Input struct {
	SessionID   string             `json:"sessionId"`
	Opportunity models.Opportunity `json:"opportunity"`
}

type Output struct {
	Analysis *models.TechnicalAnalysis `json:"analysis"`
	Summary  string                    `json:"summary"`
}
