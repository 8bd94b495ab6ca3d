// internal/opportunity/source.go

// Package opportunity provides the sources the scan stage pulls candidate
// RFPs from, plus the ingestion adapter that normalizes external records.
package opportunity

import (
	"context"
	"strings"

	"rfp-workers/internal/models"
)

// Source returns candidate opportunities, optionally filtered by keywords.
// An empty keyword list returns everything the source knows about.
type Source interface {
	Scan(ctx context.Context, keywords []string) ([]models.Opportunity, error)
}

// matchesKeywords reports whether any keyword appears in the opportunity's
// title or description, case-insensitive. No keywords means match all.
func matchesKeywords(opp *models.Opportunity, keywords []string) bool {
	if len(keywords) == 0 {
		return true
	}

	haystack := strings.ToLower(opp.Title + " " + opp.Description)
	for _, kw := range keywords {
		kw = strings.TrimSpace(strings.ToLower(kw))
		if kw != "" && strings.Contains(haystack, kw) {
			return true
		}
	}
	return false
}
