package opportunity

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// ==========================
// Test Helper Functions
// ==========================

const validOpportunitiesJSON = `[
	{
		"id": "RFP-2026-001",
		"title": "Metro Rail Underground Cabling",
		"client": "City Metro Corp",
		"description": "Supply of 11 kV XLPE armoured cables for underground metro tunnels",
		"estimated_value": 2500000,
		"deadline": "2026-10-15",
		"location": "Mumbai",
		"line_items": [
			{"description": "11 kV XLPE Armoured Cable, 3C x 300 sqmm, Aluminium conductor", "quantity": 12}
		],
		"length_km": 12
	},
	{
		"rfp_id": "TND-88",
		"title": "Industrial Park Power Distribution",
		"client": "GreenField Industrial",
		"description": "Overhead power distribution cabling for a new industrial park",
		"estimated_value": 800000,
		"deadline": "2026-09-20",
		"location": "Pune"
	},
	{
		"id": "RFP-2026-003",
		"rfp_id": "LEGACY-42",
		"title": "Airport Terminal Control Wiring",
		"client": "National Airports",
		"description": "Control and instrumentation cables for terminal expansion",
		"estimated_value": 1500000,
		"deadline": "2026-11-01",
		"location": "Delhi"
	}
]`

func writeSnapshot(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "opportunities.json")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

// ==========================
// File Source Tests
// ==========================

func TestFileSource_ScanAll(t *testing.T) {
	src, err := NewFileSource(writeSnapshot(t, validOpportunitiesJSON))
	require.NoError(t, err)

	opps, err := src.Scan(context.Background(), nil)
	require.NoError(t, err)
	assert.Len(t, opps, 3)
}

func TestFileSource_KeywordFilter(t *testing.T) {
	src, err := NewFileSource(writeSnapshot(t, validOpportunitiesJSON))
	require.NoError(t, err)

	tests := []struct {
		name     string
		keywords []string
		wantIDs  []string
	}{
		{
			name:     "single keyword in description",
			keywords: []string{"underground"},
			wantIDs:  []string{"RFP-2026-001"},
		},
		{
			name:     "keyword in title, case-insensitive",
			keywords: []string{"AIRPORT"},
			wantIDs:  []string{"RFP-2026-003"},
		},
		{
			name:     "multiple keywords union",
			keywords: []string{"metro", "industrial"},
			wantIDs:  []string{"RFP-2026-001", "TND-88"},
		},
		{
			name:     "no matches",
			keywords: []string{"submarine"},
			wantIDs:  nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			opps, err := src.Scan(context.Background(), tt.keywords)
			require.NoError(t, err)

			var ids []string
			for _, o := range opps {
				ids = append(ids, o.ID)
			}
			assert.Equal(t, tt.wantIDs, ids)
		})
	}
}

func TestFileSource_IdentifierNormalization(t *testing.T) {
	src, err := NewFileSource(writeSnapshot(t, validOpportunitiesJSON))
	require.NoError(t, err)

	opps, err := src.Scan(context.Background(), nil)
	require.NoError(t, err)
	require.Len(t, opps, 3)

	// id-only record: canonical id, no alias
	assert.Equal(t, "RFP-2026-001", opps[0].ID)
	assert.Empty(t, opps[0].AliasID)

	// rfp_id-only record: promoted to canonical id
	assert.Equal(t, "TND-88", opps[1].ID)
	assert.Empty(t, opps[1].AliasID)

	// both present: id is canonical, rfp_id retained as alias
	assert.Equal(t, "RFP-2026-003", opps[2].ID)
	assert.Equal(t, "LEGACY-42", opps[2].AliasID)
	assert.True(t, opps[2].MatchesIdentifier("legacy-42"))
}

func TestFileSource_InvalidSnapshots(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{name: "not json", content: `{broken`},
		{name: "missing title", content: `[{"id": "X", "deadline": "2026-01-01"}]`},
		{name: "record without identifiers", content: `[{"title": "anon", "deadline": "2026-01-01"}]`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewFileSource(writeSnapshot(t, tt.content))
			require.Error(t, err)
			assert.Contains(t, err.Error(), "OPPORTUNITY_SCAN_FAILED")
		})
	}
}

func TestFileSource_MissingFile(t *testing.T) {
	_, err := NewFileSource(filepath.Join(t.TempDir(), "nope.json"))
	assert.Error(t, err)
}
