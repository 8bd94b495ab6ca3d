// internal/opportunity/ingest.go
package opportunity

import (
	"fmt"

	"rfp-workers/internal/models"
)

// rawRecord is the shape of an external opportunity record. Sources disagree
// on the identifier field (id vs rfp_id); normalization happens here and
// nowhere else.
type rawRecord struct {
	ID             string            `json:"id"`
	RFPID          string            `json:"rfp_id"`
	Title          string            `json:"title"`
	Client         string            `json:"client"`
	Description    string            `json:"description"`
	EstimatedValue float64           `json:"estimated_value"`
	Deadline       models.Date       `json:"deadline"`
	Location       string            `json:"location"`
	LineItems      []models.LineItem `json:"line_items"`
	RequiredTests  []string          `json:"required_tests"`
	LengthKM       float64           `json:"length_km"`
}

// normalize converts a raw record into the canonical Opportunity. The
// primary id wins; a differing rfp_id is kept as the alias so selection by
// either identifier keeps working.
func normalize(raw rawRecord) (models.Opportunity, error) {
	id := raw.ID
	alias := raw.RFPID

	if id == "" {
		id = raw.RFPID
		alias = ""
	}
	if id == "" {
		return models.Opportunity{}, fmt.Errorf("opportunity record has neither id nor rfp_id (title %q)", raw.Title)
	}
	if alias == id {
		alias = ""
	}

	return models.Opportunity{
		ID:             id,
		AliasID:        alias,
		Title:          raw.Title,
		Client:         raw.Client,
		Description:    raw.Description,
		EstimatedValue: raw.EstimatedValue,
		Deadline:       raw.Deadline,
		Location:       raw.Location,
		LineItems:      raw.LineItems,
		RequiredTests:  raw.RequiredTests,
		LengthKM:       raw.LengthKM,
	}, nil
}
