// internal/stages/compile/models.go
package compile

import "rfp-workers/internal/models"

type Input struct {
	SessionID   string                    `json:"sessionId"`
	Opportunity models.Opportunity        `json:"opportunity"`
	Analysis    *models.TechnicalAnalysis `json:"analysis"`
	Pricing     *models.PricingResult     `json:"pricing"`
}

type Output struct {
	FinalResponse string `json:"finalResponse"`
	ReportRef     string `json:"reportRef"`
}
