// internal/opportunity/elasticsearch.go
package opportunity

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"rfp-workers/internal/common/errors"
	"rfp-workers/internal/models"

	"github.com/elastic/go-elasticsearch/v8"
)

// ElasticsearchSource scans an opportunity index with a multi_match query
// over title and description.
type ElasticsearchSource struct {
	client *elasticsearch.Client
	index  string
	size   int
}

func NewElasticsearchSource(client *elasticsearch.Client, index string) *ElasticsearchSource {
	return &ElasticsearchSource{
		client: client,
		index:  index,
		size:   100,
	}
}

func (s *ElasticsearchSource) Scan(ctx context.Context, keywords []string) ([]models.Opportunity, error) {
	query := s.buildQuery(keywords)

	body, err := json.Marshal(query)
	if err != nil {
		return nil, errors.NewOpportunityScanFailedError(fmt.Errorf("build query: %w", err))
	}

	res, err := s.client.Search(
		s.client.Search.WithContext(ctx),
		s.client.Search.WithIndex(s.index),
		s.client.Search.WithBody(bytes.NewReader(body)),
	)
	if err != nil {
		return nil, errors.NewOpportunityScanFailedError(fmt.Errorf("search failed: %w", err))
	}
	defer res.Body.Close()

	if res.IsError() {
		return nil, errors.NewOpportunityScanFailedError(
			fmt.Errorf("search returned %s for index %s", res.Status(), s.index))
	}

	var searchResult struct {
		Hits struct {
			Hits []struct {
				Source rawRecord `json:"_source"`
			} `json:"hits"`
		} `json:"hits"`
	}
	if err := json.NewDecoder(res.Body).Decode(&searchResult); err != nil {
		return nil, errors.NewOpportunityScanFailedError(fmt.Errorf("decode search response: %w", err))
	}

	opportunities := make([]models.Opportunity, 0, len(searchResult.Hits.Hits))
	for _, hit := range searchResult.Hits.Hits {
		opp, err := normalize(hit.Source)
		if err != nil {
			return nil, errors.NewOpportunityScanFailedError(err)
		}
		opportunities = append(opportunities, opp)
	}
	return opportunities, nil
}

func (s *ElasticsearchSource) buildQuery(keywords []string) map[string]interface{} {
	var cleaned []string
	for _, kw := range keywords {
		if kw = strings.TrimSpace(kw); kw != "" {
			cleaned = append(cleaned, kw)
		}
	}

	if len(cleaned) == 0 {
		return map[string]interface{}{
			"query": map[string]interface{}{"match_all": map[string]interface{}{}},
			"size":  s.size,
		}
	}

	return map[string]interface{}{
		"query": map[string]interface{}{
			"multi_match": map[string]interface{}{
				"query":  strings.Join(cleaned, " "),
				"fields": []string{"title^2", "description"},
			},
		},
		"size": s.size,
	}
}
