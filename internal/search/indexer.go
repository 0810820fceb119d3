// Package search maintains a best-effort full-text index of persisted
// designs. The PostgreSQL row is the source of truth; a missed or failed
// index write degrades search results, never the design pipeline.
package search

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/elastic/go-elasticsearch/v8"
	"github.com/elastic/go-elasticsearch/v8/esapi"

	"design-assistant/internal/common/logger"
	"design-assistant/internal/models"
)

var ErrSearchFailed = errors.New("SEARCH_QUERY_FAILED")

// document is the indexed projection of a design.
type document struct {
	DesignID    int64     `json:"designId"`
	UserID      int64     `json:"userId"`
	Prompt      string    `json:"prompt"`
	MermaidCode string    `json:"mermaidCode"`
	CreatedAt   time.Time `json:"createdAt"`
}

// Hit is one search result.
type Hit struct {
	DesignID int64   `json:"designId"`
	Prompt   string  `json:"prompt"`
	Score    float64 `json:"score"`
}

type Indexer struct {
	client *elasticsearch.Client
	index  string
	logger logger.Logger
}

func NewIndexer(client *elasticsearch.Client, index string, log logger.Logger) *Indexer {
	return &Indexer{
		client: client,
		index:  index,
		logger: log.WithFields(map[string]interface{}{"component": "search-indexer", "index": index}),
	}
}

// IndexDesign writes one design document, keyed by design id so re-indexing
// the same design overwrites rather than duplicates.
func (i *Indexer) IndexDesign(ctx context.Context, d *models.Design) error {
	body, err := json.Marshal(document{
		DesignID:    d.ID,
		UserID:      d.UserID,
		Prompt:      d.Prompt,
		MermaidCode: d.MermaidCode,
		CreatedAt:   d.CreatedAt,
	})
	if err != nil {
		return fmt.Errorf("marshal design document: %w", err)
	}

	req := esapi.IndexRequest{
		Index:      i.index,
		DocumentID: strconv.FormatInt(d.ID, 10),
		Body:       strings.NewReader(string(body)),
	}
	res, err := req.Do(ctx, i.client)
	if err != nil {
		return fmt.Errorf("index design %d: %w", d.ID, err)
	}
	defer res.Body.Close()

	if res.IsError() {
		return fmt.Errorf("index design %d: %s", d.ID, res.Status())
	}
	return nil
}

// Search runs a prompt text query scoped to one user and returns matching
// designs ranked by score.
func (i *Indexer) Search(ctx context.Context, userID int64, query string, size int) ([]Hit, error) {
	if size <= 0 {
		size = 10
	}

	queryBody := map[string]interface{}{
		"query": map[string]interface{}{
			"bool": map[string]interface{}{
				"must": []interface{}{
					map[string]interface{}{
						"match": map[string]interface{}{"prompt": query},
					},
				},
				"filter": []interface{}{
					map[string]interface{}{
						"term": map[string]interface{}{"userId": userID},
					},
				},
			},
		},
	}
	body, _ := json.Marshal(queryBody)

	res, err := i.client.Search(
		i.client.Search.WithContext(ctx),
		i.client.Search.WithIndex(i.index),
		i.client.Search.WithBody(strings.NewReader(string(body))),
		i.client.Search.WithSize(size),
	)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSearchFailed, err)
	}
	defer res.Body.Close()

	if res.IsError() {
		return nil, fmt.Errorf("%w: %s", ErrSearchFailed, res.Status())
	}

	raw, err := io.ReadAll(res.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: read response: %v", ErrSearchFailed, err)
	}
	return parseHits(raw)
}

func parseHits(raw []byte) ([]Hit, error) {
	var parsed struct {
		Hits struct {
			Hits []struct {
				Score  float64  `json:"_score"`
				Source document `json:"_source"`
			} `json:"hits"`
		} `json:"hits"`
	}
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return nil, fmt.Errorf("%w: parse response: %v", ErrSearchFailed, err)
	}

	hits := make([]Hit, 0, len(parsed.Hits.Hits))
	for _, h := range parsed.Hits.Hits {
		hits = append(hits, Hit{
			DesignID: h.Source.DesignID,
			Prompt:   h.Source.Prompt,
			Score:    h.Score,
		})
	}
	return hits, nil
}
