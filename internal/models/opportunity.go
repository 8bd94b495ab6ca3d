// internal/models/opportunity.go
package models

import (
	"fmt"
	"strings"
	"time"
)

// Date wraps time.Time to accept plain "2006-01-02" dates in JSON snapshots
// as well as full RFC3339 timestamps.
type Date struct {
	time.Time
}

func (d *Date) UnmarshalJSON(data []byte) error {
	s := strings.Trim(string(data), `"`)
	if s == "" || s == "null" {
		return nil
	}

	for _, layout := range []string{"2006-01-02", time.RFC3339} {
		if t, err := time.Parse(layout, s); err == nil {
			d.Time = t
			return nil
		}
	}
	return fmt.Errorf("invalid date %q", s)
}

func (d Date) MarshalJSON() ([]byte, error) {
	if d.IsZero() {
		return []byte(`null`), nil
	}
	return []byte(`"` + d.Format("2006-01-02") + `"`), nil
}

// LineItem is one requirement row in an RFP.
type LineItem struct {
	Description string  `json:"description"`
	Quantity    float64 `json:"quantity"`
}

// Opportunity is a procurement request (an "RFP"). Source fields are
// immutable once scanned; derived fields live on QualifiedOpportunity.
type Opportunity struct {
	ID             string     `json:"id"`
	AliasID        string     `json:"alias_id,omitempty"` // legacy rfp_id from the source record
	Title          string     `json:"title"`
	Client         string     `json:"client"`
	Description    string     `json:"description"`
	EstimatedValue float64    `json:"estimated_value"`
	Deadline       Date       `json:"deadline"`
	Location       string     `json:"location"`
	LineItems      []LineItem `json:"line_items"`
	RequiredTests  []string   `json:"required_tests,omitempty"`
	LengthKM       float64    `json:"length_km,omitempty"` // assumed cable length; 0 means use the configured default
}

// MatchesIdentifier reports whether token refers to this opportunity by its
// canonical ID or its alias.
func (o *Opportunity) MatchesIdentifier(token string) bool {
	if token == "" {
		return false
	}
	return strings.EqualFold(token, o.ID) || (o.AliasID != "" && strings.EqualFold(token, o.AliasID))
}

// DaysRemaining returns whole days from now until the deadline, negative if
// the deadline has passed.
func (o *Opportunity) DaysRemaining(now time.Time) int {
	return int(o.Deadline.Sub(now).Hours() / 24)
}

// Qualification is the rule-based (or LLM-assisted) fit assessment.
type Qualification struct {
	Qualified bool     `json:"qualified"`
	Score     int      `json:"score"`
	Reasons   []string `json:"reasons"`
}

// QualifiedOpportunity attaches derived ranking fields to an opportunity
// without mutating its source record.
type QualifiedOpportunity struct {
	Opportunity   Opportunity   `json:"opportunity"`
	Qualification Qualification `json:"qualification"`
	DaysRemaining int           `json:"days_remaining"`
	PriorityScore int           `json:"priority_score"`
}
