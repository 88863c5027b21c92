// internal/repository/profiles_elasticsearch.go
package repository

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"sort"

	"github.com/elastic/go-elasticsearch/v8"
	"github.com/elastic/go-elasticsearch/v8/esapi"

	apperrors "iluma-intelligence/internal/common/errors"
	"iluma-intelligence/internal/models"
)

const (
	DefaultProfileIndex = "business_profiles"
	esPageSize          = 500
	// from+size paging stops at the default index.max_result_window.
	esMaxResultWindow = 10000
)

// ElasticsearchProfileSource reads business records from a search index whose
// documents have the BusinessRecord JSON shape.
type ElasticsearchProfileSource struct {
	client   *elasticsearch.Client
	index    string
	pageSize int
}

func NewElasticsearchProfileSource(client *elasticsearch.Client, index string) *ElasticsearchProfileSource {
	if index == "" {
		index = DefaultProfileIndex
	}
	return &ElasticsearchProfileSource{client: client, index: index, pageSize: esPageSize}
}

type searchResponse struct {
	Hits struct {
		Total struct {
			Value int `json:"value"`
		} `json:"total"`
		Hits []struct {
			ID     string          `json:"_id"`
			Source json.RawMessage `json:"_source"`
		} `json:"hits"`
	} `json:"hits"`
}

func (s *ElasticsearchProfileSource) Load(ctx context.Context, q Query) ([]models.BusinessRecord, error) {
	body, err := json.Marshal(buildProfilesSearch(q))
	if err != nil {
		return nil, apperrors.NewProfileSourceFailedError("elasticsearch", err)
	}

	records := make([]models.BusinessRecord, 0)
	for from := 0; from < esMaxResultWindow; from += s.pageSize {
		size := s.pageSize
		if from+size > esMaxResultWindow {
			size = esMaxResultWindow - from
		}
		page, total, err := s.search(ctx, body, from, size)
		if err != nil {
			return nil, err
		}
		for _, rec := range page {
			if q.Matches(rec) {
				records = append(records, rec)
			}
		}
		if len(page) < size || from+len(page) >= total {
			break
		}
		if q.Limit > 0 && len(records) >= q.Limit {
			break
		}
	}

	sort.Slice(records, func(i, j int) bool { return records[i].ID < records[j].ID })
	if q.Limit > 0 && len(records) > q.Limit {
		records = records[:q.Limit]
	}
	return records, nil
}

func (s *ElasticsearchProfileSource) search(ctx context.Context, body []byte, from, size int) ([]models.BusinessRecord, int, error) {
	req := esapi.SearchRequest{
		Index: []string{s.index},
		Body:  bytes.NewReader(body),
		From:  &from,
		Size:  &size,
	}
	res, err := req.Do(ctx, s.client)
	if err != nil {
		return nil, 0, apperrors.NewProfileSourceFailedError("elasticsearch", err)
	}
	defer res.Body.Close()

	if res.IsError() {
		return nil, 0, apperrors.NewProfileSourceFailedError("elasticsearch", fmt.Errorf("search failed: %s", res.Status()))
	}

	var r searchResponse
	if err := json.NewDecoder(res.Body).Decode(&r); err != nil {
		return nil, 0, apperrors.NewProfileSourceFailedError("elasticsearch", fmt.Errorf("decode response: %w", err))
	}

	page := make([]models.BusinessRecord, 0, len(r.Hits.Hits))
	for _, hit := range r.Hits.Hits {
		var rec models.BusinessRecord
		dec := json.NewDecoder(bytes.NewReader(hit.Source))
		dec.UseNumber()
		if err := dec.Decode(&rec); err != nil {
			return nil, 0, apperrors.NewProfileSourceFailedError("elasticsearch", fmt.Errorf("document %s: %w", hit.ID, err))
		}
		if rec.ID == "" {
			rec.ID = hit.ID
		}
		page = append(page, rec)
	}
	return page, r.Hits.Total.Value, nil
}

// buildProfilesSearch narrows the search server-side. Sector and city use
// analyzed matches; exact case-insensitive equality is re-checked client-side.
func buildProfilesSearch(q Query) map[string]interface{} {
	filterClauses := []interface{}{}

	if len(q.IDs) > 0 {
		filterClauses = append(filterClauses, map[string]interface{}{
			"ids": map[string]interface{}{"values": q.IDs},
		})
	}
	for _, f := range []struct {
		field  string
		values []string
	}{{"sector", q.Sectors}, {"city", q.Cities}} {
		field, values := f.field, f.values
		if len(values) == 0 {
			continue
		}
		should := make([]interface{}, 0, len(values))
		for _, v := range values {
			should = append(should, map[string]interface{}{
				"match_phrase": map[string]interface{}{field: v},
			})
		}
		filterClauses = append(filterClauses, map[string]interface{}{
			"bool": map[string]interface{}{
				"should":               should,
				"minimum_should_match": 1,
			},
		})
	}

	query := map[string]interface{}{"match_all": map[string]interface{}{}}
	if len(filterClauses) > 0 {
		query = map[string]interface{}{
			"bool": map[string]interface{}{"filter": filterClauses},
		}
	}
	return map[string]interface{}{
		"query": query,
		"sort":  []interface{}{"_doc"},
	}
}
