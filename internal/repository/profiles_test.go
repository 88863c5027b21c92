// internal/repository/profiles_test.go
package repository

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/elastic/go-elasticsearch/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "iluma-intelligence/internal/common/errors"
	"iluma-intelligence/internal/common/logger"
	"iluma-intelligence/internal/models"
)

var profileColumns = []string{"id", "name", "sector", "city", "lat", "lng", "metrics", "potential", "status"}

func TestPostgresProfileSource_Load(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectQuery(regexp.QuoteMeta("FROM business_profiles")).
		WithArgs(sqlmock.AnyArg(), 10).
		WillReturnRows(sqlmock.NewRows(profileColumns).
			AddRow("biz-1", "Clinique Sourire", "dental", "Montreal", 45.5, -73.56,
				[]byte(`{"seo": 91.5, "content": "80%"}`), "high", "prospect").
			AddRow("biz-2", nil, "dental", nil, 45.6, -73.6, nil, nil, nil))

	src := NewPostgresProfileSource(db)
	records, err := src.Load(context.Background(), Query{Sectors: []string{"Dental"}, Limit: 10})
	require.NoError(t, err)
	require.Len(t, records, 2)

	assert.Equal(t, "Clinique Sourire", records[0].Name)
	assert.Equal(t, models.PotentialHigh, records[0].Potential)
	assert.Equal(t, json.Number("91.5"), records[0].Metrics["seo"])
	assert.Equal(t, "80%", records[0].Metrics["content"])

	assert.Equal(t, "", records[1].City)
	assert.Empty(t, records[1].Metrics)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresProfileSource_QueryError(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectQuery(regexp.QuoteMeta("FROM business_profiles")).WillReturnError(io.ErrUnexpectedEOF)

	_, err = NewPostgresProfileSource(db).Load(context.Background(), Query{})
	assert.True(t, apperrors.IsCode(err, apperrors.ErrCodeProfileSourceFailed))
}

func TestBuildProfilesQuery(t *testing.T) {
	query, args := buildProfilesQuery(Query{IDs: []string{"a"}, Cities: []string{"Quebec"}, Limit: 5})
	assert.Contains(t, query, "id = ANY($1)")
	assert.Contains(t, query, "lower(trim(city)) = ANY($2)")
	assert.Contains(t, query, "LIMIT $3")
	assert.NotContains(t, query, "sector) = ANY")
	assert.Len(t, args, 3)

	query, args = buildProfilesQuery(Query{})
	assert.NotContains(t, query, "WHERE")
	assert.Empty(t, args)
}

func newSearchServer(t *testing.T, docs []map[string]interface{}) (*httptest.Server, *[]map[string]interface{}) {
	t.Helper()
	var bodies []map[string]interface{}
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Elastic-Product", "Elasticsearch")
		w.Header().Set("Content-Type", "application/json")

		var body map[string]interface{}
		_ = json.NewDecoder(r.Body).Decode(&body)
		bodies = append(bodies, body)

		hits := make([]map[string]interface{}, 0, len(docs))
		for i, d := range docs {
			hits = append(hits, map[string]interface{}{"_id": d["id"], "_index": "business_profiles", "_score": float64(i), "_source": d})
		}
		_ = json.NewEncoder(w).Encode(map[string]interface{}{
			"took": 1,
			"hits": map[string]interface{}{
				"total": map[string]interface{}{"value": len(docs), "relation": "eq"},
				"hits":  hits,
			},
		})
	}))
	t.Cleanup(server.Close)
	return server, &bodies
}

func TestElasticsearchProfileSource_Load(t *testing.T) {
	server, bodies := newSearchServer(t, []map[string]interface{}{
		{"id": "biz-2", "sector": "Retail", "city": "Quebec", "coordinates": map[string]interface{}{"lat": 46.8, "lng": -71.2},
			"metrics": map[string]interface{}{"seo": 80}},
		{"id": "biz-1", "sector": "retail", "city": "Montreal", "coordinates": map[string]interface{}{"lat": 45.5, "lng": -73.5},
			"metrics": map[string]interface{}{"seo": 70}},
		{"id": "biz-3", "sector": "retail services", "city": "Laval", "coordinates": map[string]interface{}{"lat": 45.6, "lng": -73.7}},
	})

	client, err := elasticsearch.NewClient(elasticsearch.Config{Addresses: []string{server.URL}})
	require.NoError(t, err)

	src := NewElasticsearchProfileSource(client, "")
	records, err := src.Load(context.Background(), Query{Sectors: []string{"retail"}})
	require.NoError(t, err)

	require.Len(t, records, 2)
	assert.Equal(t, "biz-1", records[0].ID)
	assert.Equal(t, "biz-2", records[1].ID)
	assert.Equal(t, json.Number("70"), records[0].Metrics["seo"])
	assert.Equal(t, 45.5, records[0].Coordinates.Lat)

	require.Len(t, *bodies, 1)
	query := (*bodies)[0]["query"].(map[string]interface{})
	assert.Contains(t, query, "bool")
}

func TestElasticsearchProfileSource_Error(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Elastic-Product", "Elasticsearch")
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`{"error":{"type":"index_not_found_exception"},"status":404}`))
	}))
	defer server.Close()

	client, err := elasticsearch.NewClient(elasticsearch.Config{Addresses: []string{server.URL}})
	require.NoError(t, err)

	_, err = NewElasticsearchProfileSource(client, "missing").Load(context.Background(), Query{})
	assert.True(t, apperrors.IsCode(err, apperrors.ErrCodeProfileSourceFailed))
}

func TestBuildProfilesSearch(t *testing.T) {
	body := buildProfilesSearch(Query{})
	assert.Contains(t, body["query"], "match_all")

	body = buildProfilesSearch(Query{IDs: []string{"a"}, Cities: []string{"Quebec", "Laval"}})
	filters := body["query"].(map[string]interface{})["bool"].(map[string]interface{})["filter"].([]interface{})
	assert.Len(t, filters, 2)
}

const recordsJSON = `{
  "businesses": [
    {"id": "biz-1", "sector": "dental", "city": "Montreal", "coordinates": {"lat": 45.5, "lng": -73.56},
     "metrics": {"seo": 90, "conversion": "88"}, "potential": "high", "status": "prospect"},
    {"id": "biz-2", "sector": "legal", "city": "Quebec", "coordinates": {"lat": 46.8, "lng": -71.2}},
    {"sector": "legal", "coordinates": {"lat": 46.8, "lng": -71.2}},
    {"id": "biz-4", "sector": "legal", "coordinates": {"lat": 146.8, "lng": -71.2}}
  ]
}`

func TestReadRecords(t *testing.T) {
	records, issues, err := ReadRecords(strings.NewReader(recordsJSON))
	require.NoError(t, err)

	require.Len(t, records, 2)
	assert.Equal(t, json.Number("90"), records[0].Metrics["seo"])
	assert.Equal(t, "88", records[0].Metrics["conversion"])

	require.Len(t, issues, 2)
	assert.Equal(t, 2, issues[0].Index)
	assert.Equal(t, "biz-4", issues[1].ID)
}

func TestReadRecords_Array(t *testing.T) {
	records, issues, err := ReadRecords(strings.NewReader(`[{"id":"a","sector":"s","coordinates":{"lat":0,"lng":0}}]`))
	require.NoError(t, err)
	assert.Len(t, records, 1)
	assert.Empty(t, issues)

	_, _, err = ReadRecords(strings.NewReader("  "))
	assert.True(t, apperrors.IsCode(err, apperrors.ErrCodeInvalidInput))

	_, _, err = ReadRecords(strings.NewReader("[{"))
	assert.True(t, apperrors.IsCode(err, apperrors.ErrCodeInvalidInput))
}

func TestFileProfileSource_Load(t *testing.T) {
	path := filepath.Join(t.TempDir(), "businesses.json")
	require.NoError(t, os.WriteFile(path, []byte(recordsJSON), 0o600))

	src := NewFileProfileSource(path, logger.NewTestLogger(t))
	records, err := src.Load(context.Background(), Query{Cities: []string{"quebec"}})
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, "biz-2", records[0].ID)

	_, err = NewFileProfileSource(filepath.Join(t.TempDir(), "nope.json"), logger.NewTestLogger(t)).Load(context.Background(), Query{})
	assert.True(t, apperrors.IsCode(err, apperrors.ErrCodeProfileSourceFailed))
}
