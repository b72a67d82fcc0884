// Package discovery keeps the match search index that backs default discovery surfaces.
package discovery

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"match-workers/internal/common/database"
	"match-workers/internal/common/errors"
	"match-workers/internal/common/logger"
	"match-workers/internal/matching"
	"match-workers/internal/models"

	"github.com/elastic/go-elasticsearch/v8/esapi"
)

const (
	DefaultIndex = "matches"
	maxPageSize  = 100
)

// Mapping keeps every filter field as keyword or boolean so term queries are exact.
const Mapping = `{
  "mappings": {
    "properties": {
      "matchId":          {"type": "keyword"},
      "assignmentId":     {"type": "keyword"},
      "profileId":        {"type": "keyword"},
      "overallScore":     {"type": "integer"},
      "status":           {"type": "keyword"},
      "isColdStart":      {"type": "boolean"},
      "coldStartOptIn":   {"type": "boolean"},
      "fairnessEligible": {"type": "boolean"},
      "isStrongMatch":    {"type": "boolean"},
      "isNearMatch":      {"type": "boolean"},
      "lastScoredAt":     {"type": "date"},
      "expiresAt":        {"type": "date"}
    }
  }
}`

// Document is the match summary stored in the index. Explanations are not indexed.
// FairnessEligible marks the documents that fairness-cohort aggregations may count.
type Document struct {
	MatchID          string    `json:"matchId"`
	AssignmentID     string    `json:"assignmentId"`
	ProfileID        string    `json:"profileId"`
	OverallScore     int       `json:"overallScore"`
	Status           string    `json:"status"`
	IsColdStart      bool      `json:"isColdStart"`
	ColdStartOptIn   bool      `json:"coldStartOptIn"`
	FairnessEligible bool      `json:"fairnessEligible"`
	IsStrongMatch    bool      `json:"isStrongMatch"`
	IsNearMatch      bool      `json:"isNearMatch"`
	LastScoredAt     time.Time `json:"lastScoredAt"`
	ExpiresAt        time.Time `json:"expiresAt"`
}

func DocumentOf(m *models.Match) Document {
	return Document{
		MatchID:          m.ID,
		AssignmentID:     m.AssignmentID,
		ProfileID:        m.ProfileID,
		OverallScore:     m.OverallScore,
		Status:           string(m.Status),
		IsColdStart:      m.IsColdStart,
		ColdStartOptIn:   m.ColdStartOptIn,
		FairnessEligible: matching.ClassificationOf(m).FairnessEligible(),
		IsStrongMatch:    m.IsStrongMatch,
		IsNearMatch:      m.IsNearMatch,
		LastScoredAt:     m.LastScoredAt,
		ExpiresAt:        m.ExpiresAt,
	}
}

type Index struct {
	es     *database.ElasticsearchClient
	name   string
	logger logger.Logger
}

func NewIndex(es *database.ElasticsearchClient, name string, log logger.Logger) *Index {
	if name == "" {
		name = DefaultIndex
	}
	return &Index{
		es:     es,
		name:   name,
		logger: log.WithFields(map[string]interface{}{"component": "discovery-index", "index": name}),
	}
}

func (i *Index) Name() string {
	return i.name
}

// EnsureMapping creates the index on first start.
func (i *Index) EnsureMapping(ctx context.Context) error {
	if err := i.es.EnsureIndex(ctx, i.name, Mapping); err != nil {
		return errors.NewIndexingFailedError(i.name, err.Error())
	}
	return nil
}

// Index writes the match summary under the match id, replacing any earlier version.
func (i *Index) Index(ctx context.Context, m *models.Match) error {
	body, err := json.Marshal(DocumentOf(m))
	if err != nil {
		return errors.NewIndexingFailedError(i.name, err.Error())
	}

	req := esapi.IndexRequest{
		Index:      i.name,
		DocumentID: m.ID,
		Body:       bytes.NewReader(body),
	}
	res, err := req.Do(ctx, i.es.Client)
	if err != nil {
		return errors.NewElasticsearchConnectionFailedError(err)
	}
	defer res.Body.Close()

	if res.IsError() {
		return errors.NewIndexingFailedError(i.name, res.String())
	}

	i.logger.Debug("match indexed", map[string]interface{}{"matchId": m.ID, "score": m.OverallScore})
	return nil
}

// Remove deletes the summary. A document that was never indexed is not an error.
func (i *Index) Remove(ctx context.Context, matchID string) error {
	req := esapi.DeleteRequest{
		Index:      i.name,
		DocumentID: matchID,
	}
	res, err := req.Do(ctx, i.es.Client)
	if err != nil {
		return errors.NewElasticsearchConnectionFailedError(err)
	}
	defer res.Body.Close()

	if res.IsError() && res.StatusCode != http.StatusNotFound {
		return errors.NewIndexingFailedError(i.name, res.String())
	}
	return nil
}

// SearchForAssignment runs the default discovery query: cold-start candidates only
// when they opted in, declined and expired matches hidden, best score first.
func (i *Index) SearchForAssignment(ctx context.Context, assignmentID string, limit int) ([]Document, error) {
	if limit <= 0 || limit > maxPageSize {
		limit = maxPageSize
	}

	body, err := json.Marshal(buildDiscoveryQuery(assignmentID, limit))
	if err != nil {
		return nil, errors.NewSearchQueryFailedError(i.name, err.Error())
	}

	req := esapi.SearchRequest{
		Index: []string{i.name},
		Body:  bytes.NewReader(body),
	}
	res, err := req.Do(ctx, i.es.Client)
	if err != nil {
		return nil, errors.NewElasticsearchConnectionFailedError(err)
	}
	defer res.Body.Close()

	if res.IsError() {
		return nil, errors.NewSearchQueryFailedError(i.name, res.String())
	}

	var parsed struct {
		Hits struct {
			Hits []struct {
				Source Document `json:"_source"`
			} `json:"hits"`
		} `json:"hits"`
	}
	if err := json.NewDecoder(res.Body).Decode(&parsed); err != nil {
		return nil, errors.NewSearchQueryFailedError(i.name, fmt.Sprintf("decode response: %v", err))
	}

	docs := make([]Document, 0, len(parsed.Hits.Hits))
	for _, hit := range parsed.Hits.Hits {
		docs = append(docs, hit.Source)
	}
	return docs, nil
}

func buildDiscoveryQuery(assignmentID string, limit int) map[string]interface{} {
	return map[string]interface{}{
		"size": limit,
		"query": map[string]interface{}{
			"bool": map[string]interface{}{
				"filter": []interface{}{
					map[string]interface{}{"term": map[string]interface{}{"assignmentId": assignmentID}},
					map[string]interface{}{
						"bool": map[string]interface{}{
							"should": []interface{}{
								map[string]interface{}{"term": map[string]interface{}{"isColdStart": false}},
								map[string]interface{}{"term": map[string]interface{}{"coldStartOptIn": true}},
							},
							"minimum_should_match": 1,
						},
					},
				},
				"must_not": []interface{}{
					map[string]interface{}{"terms": map[string]interface{}{
						"status": []string{string(models.StatusDeclined), string(models.StatusExpired)},
					}},
				},
			},
		},
		"sort": []interface{}{
			map[string]interface{}{"overallScore": "desc"},
			map[string]interface{}{"matchId": "asc"},
		},
	}
}
