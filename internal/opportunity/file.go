// internal/opportunity/file.go
package opportunity

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"rfp-workers/internal/common/errors"
	"rfp-workers/internal/models"

	"github.com/xeipuuv/gojsonschema"
)

const opportunitiesSchema = `{
	"type": "array",
	"items": {
		"type": "object",
		"required": ["title", "deadline"],
		"properties": {
			"id": {"type": "string"},
			"rfp_id": {"type": "string"},
			"title": {"type": "string", "minLength": 1},
			"client": {"type": "string"},
			"description": {"type": "string"},
			"estimated_value": {"type": "number", "minimum": 0},
			"deadline": {"type": "string"},
			"location": {"type": "string"},
			"line_items": {
				"type": "array",
				"items": {
					"type": "object",
					"required": ["description"],
					"properties": {
						"description": {"type": "string"},
						"quantity": {"type": "number", "minimum": 0}
					}
				}
			},
			"required_tests": {"type": "array", "items": {"type": "string"}},
			"length_km": {"type": "number", "minimum": 0}
		}
	}
}`

// FileSource serves opportunities from a JSON snapshot loaded once at
// construction.
type FileSource struct {
	opportunities []models.Opportunity
}

// NewFileSource reads, validates and normalizes the snapshot file.
func NewFileSource(path string) (*FileSource, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.NewOpportunityScanFailedError(fmt.Errorf("read opportunities file: %w", err))
	}

	result, err := gojsonschema.Validate(
		gojsonschema.NewStringLoader(opportunitiesSchema),
		gojsonschema.NewBytesLoader(data),
	)
	if err != nil {
		return nil, errors.NewOpportunityScanFailedError(fmt.Errorf("schema validation: %w", err))
	}
	if !result.Valid() {
		return nil, errors.NewOpportunityScanFailedError(
			fmt.Errorf("opportunities file %s: %s", path, result.Errors()[0].String()))
	}

	var raws []rawRecord
	if err := json.Unmarshal(data, &raws); err != nil {
		return nil, errors.NewOpportunityScanFailedError(fmt.Errorf("parse opportunities file: %w", err))
	}

	opportunities := make([]models.Opportunity, 0, len(raws))
	for _, raw := range raws {
		opp, err := normalize(raw)
		if err != nil {
			return nil, errors.NewOpportunityScanFailedError(err)
		}
		opportunities = append(opportunities, opp)
	}

	return &FileSource{opportunities: opportunities}, nil
}

func (s *FileSource) Scan(_ context.Context, keywords []string) ([]models.Opportunity, error) {
	var matched []models.Opportunity
	for i := range s.opportunities {
		if matchesKeywords(&s.opportunities[i], keywords) {
			matched = append(matched, s.opportunities[i])
		}
	}
	return matched, nil
}
