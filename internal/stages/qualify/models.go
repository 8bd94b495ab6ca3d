// internal/stages/qualify/models.go
package qualify

import "rfp-workers/internal/models"

type Input struct {
	SessionID string   `json:"sessionId"`
	Message   string   `json:"message"`
	Keywords  []string `json:"keywords,omitempty"`
}

type Output struct {
	Opportunities  []models.QualifiedOpportunity `json:"opportunities"`
	ScannedCount   int                           `json:"scannedCount"`
	QualifiedCount int                           `json:"qualifiedCount"`
	Presentation   string                        `json:"presentation"`
}
