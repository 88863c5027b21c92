// internal/workers/intelligence/build-stats-report/handler_test.go
package buildstatsreport

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "iluma-intelligence/internal/common/errors"
	"iluma-intelligence/internal/common/logger"
	"iluma-intelligence/internal/intelligence"
	"iluma-intelligence/internal/intelligence/stats"
	"iluma-intelligence/internal/models"
	"iluma-intelligence/internal/repository"
)

type staticSource struct {
	records []models.BusinessRecord
}

func (s *staticSource) Load(_ context.Context, q repository.Query) ([]models.BusinessRecord, error) {
	var out []models.BusinessRecord
	for _, r := range s.records {
		if q.Matches(r) {
			out = append(out, r)
		}
	}
	return out, nil
}

func record(id, sector, city string, v float64, potential models.Potential, status models.Status) models.BusinessRecord {
	return models.BusinessRecord{
		ID:          id,
		Sector:      sector,
		City:        city,
		Coordinates: models.Coordinates{Lat: 45.5, Lng: -73.56},
		Potential:   potential,
		Status:      status,
		Metrics: map[string]interface{}{
			"seo": v, "content": v, "conversion": v, "engagement": v, "technical": v,
		},
	}
}

func createTestHandler(t *testing.T) *Handler {
	t.Helper()
	source := &staticSource{records: []models.BusinessRecord{
		record("biz-a", "dental", "Montreal", 90, models.PotentialHigh, models.StatusProspect),
		record("biz-b", "dental", "Montreal", 70, models.PotentialMedium, models.StatusClient),
		record("biz-c", "retail", "Quebec", 50, models.PotentialHigh, models.StatusProspect),
		record("biz-d", "retail", "Laval", 85, models.PotentialLow, models.StatusProspect),
	}}
	engine, err := intelligence.NewEngine(intelligence.DefaultConfig())
	require.NoError(t, err)
	loader := repository.NewPopulationLoader(source, nil, engine)
	return NewHandler(&Config{Timeout: 5 * time.Second}, engine, loader, logger.NewTestLogger(t))
}

func intPtr(v int) *int { return &v }

func TestHandler_Execute_FullPopulation(t *testing.T) {
	h := createTestHandler(t)

	out, err := h.Execute(context.Background(), &Input{TopN: 2})
	require.NoError(t, err)

	r := out.Report
	assert.Equal(t, 4, r.Total)
	assert.Equal(t, 73.75, r.AverageScore)
	assert.Equal(t, models.ScoreDistribution{High: 2, Medium: 1, Low: 1}, r.ScoreDistribution)
	assert.Equal(t, 2, r.ConversionOpportunities)
	require.Len(t, r.HighPotentialLeads, 2)
	assert.Equal(t, "biz-a", r.HighPotentialLeads[0].ID)
	assert.Equal(t, "biz-d", r.HighPotentialLeads[1].ID)
	assert.Len(t, r.TopSectors, 2)
	assert.Len(t, r.CityDistribution, 3)

	assert.Equal(t, 4, out.PopulationSize)
	assert.NotEmpty(t, out.BatchID)
	_, err = time.Parse(time.RFC3339, out.GeneratedAt)
	assert.NoError(t, err)
}

func TestHandler_Execute_Filters(t *testing.T) {
	tests := []struct {
		name      string
		input     *Input
		wantTotal int
		wantOpps  int
	}{
		{"min score", &Input{Filter: stats.Filter{MinScore: intPtr(80)}}, 2, 1},
		{"sector filter", &Input{Filter: stats.Filter{Sectors: []string{"Retail"}}}, 2, 1},
		{"query narrows load", &Input{Query: repository.Query{Cities: []string{"montreal"}}}, 2, 1},
		{"nothing selected", &Input{Filter: stats.Filter{MinScore: intPtr(95)}}, 0, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := createTestHandler(t)
			out, err := h.Execute(context.Background(), tt.input)
			require.NoError(t, err)
			assert.Equal(t, tt.wantTotal, out.Report.Total)
			assert.Equal(t, tt.wantOpps, out.Report.ConversionOpportunities)
			assert.NotNil(t, out.Report.HighPotentialLeads)
		})
	}
}

func TestHandler_Execute_InvalidInput(t *testing.T) {
	tests := []struct {
		name  string
		input *Input
	}{
		{"negative topN", &Input{TopN: -1}},
		{"inverted score bounds", &Input{Filter: stats.Filter{MinScore: intPtr(80), MaxScore: intPtr(60)}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := createTestHandler(t)
			_, err := h.Execute(context.Background(), tt.input)
			require.Error(t, err)
			assert.True(t, apperrors.IsCode(err, apperrors.ErrCodeValidation))
		})
	}
}
