package stats

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"iluma-intelligence/internal/models"
)

func biz(id, sector, city string, overall int, potential models.Potential, status models.Status) models.BusinessProfile {
	return models.BusinessProfile{
		ID:        id,
		Sector:    sector,
		City:      city,
		Score:     models.CompositeScore{Overall: overall},
		Potential: potential,
		Status:    status,
	}
}

func samplePopulation() []models.BusinessProfile {
	return []models.BusinessProfile{
		biz("a", "retail", "Montreal", 92, models.PotentialHigh, models.StatusProspect),
		biz("b", "retail", "Laval", 80, models.PotentialHigh, models.StatusClient),
		biz("c", "dental", "Montreal", 79, models.PotentialMedium, models.StatusProspect),
		biz("d", "legal", "Montreal", 60, models.PotentialHigh, models.StatusProspect),
		biz("e", "Dental", "Laval", 59, models.PotentialLow, models.StatusProspect),
		biz("f", "legal", "Quebec", 40, models.PotentialLow, models.StatusInactive),
		biz("g", "auto", "Quebec", 92, models.PotentialMedium, models.StatusContacted),
	}
}

func TestGenerate(t *testing.T) {
	report := NewReporter(5).Generate(samplePopulation(), 3)

	assert.Equal(t, 7, report.Total)
	// 502 / 7
	assert.Equal(t, 71.71, report.AverageScore)
	assert.Equal(t, models.ScoreDistribution{High: 3, Medium: 2, Low: 2}, report.ScoreDistribution)
	assert.Equal(t, report.Total, report.ScoreDistribution.High+report.ScoreDistribution.Medium+report.ScoreDistribution.Low)
	assert.Equal(t, 2, report.ConversionOpportunities)

	// retail avg 86, dental 69, legal 50; all count 2
	assert.Equal(t, []models.GroupCount{
		{Key: "retail", Count: 2, AverageScore: 86},
		{Key: "dental", Count: 2, AverageScore: 69},
		{Key: "legal", Count: 2, AverageScore: 50},
	}, report.TopSectors)

	assert.Equal(t, []models.GroupCount{
		{Key: "Montreal", Count: 3, AverageScore: 77},
		{Key: "Laval", Count: 2, AverageScore: 69.5},
		{Key: "Quebec", Count: 2, AverageScore: 66},
	}, report.CityDistribution)

	require.Len(t, report.HighPotentialLeads, 3)
	assert.Equal(t, "a", report.HighPotentialLeads[0].ID)
	assert.Equal(t, "g", report.HighPotentialLeads[1].ID)
	assert.Equal(t, "b", report.HighPotentialLeads[2].ID)
}

func TestGenerateEmpty(t *testing.T) {
	report := NewReporter(0).Generate(nil, 0)

	assert.Equal(t, 0, report.Total)
	assert.Equal(t, 0.0, report.AverageScore)
	assert.Empty(t, report.TopSectors)
	assert.Empty(t, report.CityDistribution)
	assert.Empty(t, report.HighPotentialLeads)
	assert.NotNil(t, report.HighPotentialLeads)
	assert.Equal(t, models.ScoreDistribution{}, report.ScoreDistribution)
}

func TestBucketBoundaries(t *testing.T) {
	assert.Equal(t, "high", Bucket(100))
	assert.Equal(t, "high", Bucket(80))
	assert.Equal(t, "medium", Bucket(79))
	assert.Equal(t, "medium", Bucket(60))
	assert.Equal(t, "low", Bucket(59))
	assert.Equal(t, "low", Bucket(0))
}

func TestApplyFilter(t *testing.T) {
	minScore := 60
	tests := []struct {
		name   string
		filter Filter
		want   []string
	}{
		{"empty filter keeps all", Filter{}, []string{"a", "b", "c", "d", "e", "f", "g"}},
		{"sector ignores case", Filter{Sectors: []string{"DENTAL"}}, []string{"c", "e"}},
		{"city and status", Filter{Cities: []string{"montreal"}, Statuses: []models.Status{models.StatusProspect}}, []string{"a", "c", "d"}},
		{"potential and min score", Filter{Potentials: []models.Potential{models.PotentialHigh}, MinScore: &minScore}, []string{"a", "b", "d"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var ids []string
			for _, p := range ApplyFilter(samplePopulation(), tt.filter) {
				ids = append(ids, p.ID)
			}
			assert.Equal(t, tt.want, ids)
		})
	}
}
