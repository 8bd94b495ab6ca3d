// internal/stages/pricing/models.go
package pricing

import "rfp-workers/internal/models"

type Input struct {
	SessionID   string                    `json:"sessionId"`
	Opportunity models.Opportunity        `json:"opportunity"`
	Analysis    *models.TechnicalAnalysis `json:"analysis,omitempty"`
}

type Output struct {
	Pricing *models.PricingResult `json:"pricing"`
}
