package matching

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "iluma-intelligence/internal/common/errors"
	"iluma-intelligence/internal/models"
)

func profile(id, sector string, overall int, m map[models.MetricKind]float64) models.BusinessProfile {
	return models.BusinessProfile{
		ID:      id,
		Sector:  sector,
		Metrics: models.NewMetricSet(m),
		Score:   models.CompositeScore{Overall: overall},
	}
}

func newMatcher(t *testing.T, mutate func(*Config)) *Matcher {
	t.Helper()
	cfg := DefaultConfig()
	if mutate != nil {
		mutate(&cfg)
	}
	m, err := NewMatcher(cfg)
	require.NoError(t, err)
	return m
}

func TestEvaluateClassification(t *testing.T) {
	m := newMatcher(t, nil)
	tests := []struct {
		name   string
		a, b   models.BusinessProfile
		want   models.MatchClassification
		delta  int
		compat float64
	}{
		{"close scores different sectors", profile("a", "retail", 85, nil), profile("b", "dental", 80, nil), models.MatchPerfecto, 5, 0.95},
		{"close scores same sector", profile("a", "Retail", 85, nil), profile("b", "retail ", 80, nil), models.MatchCompensatorio, 5, 0.95},
		{"delta at perfecto bound", profile("a", "retail", 70, nil), profile("b", "dental", 80, nil), models.MatchPerfecto, 10, 0.9},
		{"moderate gap", profile("a", "retail", 90, nil), profile("b", "dental", 65, nil), models.MatchCompensatorio, 25, 0.75},
		{"gap at compensatorio bound", profile("a", "retail", 90, nil), profile("b", "dental", 60, nil), models.MatchCompensatorio, 30, 0.7},
		{"gap too large", profile("a", "retail", 95, nil), profile("b", "dental", 40, nil), models.MatchNoRecomendado, 55, 0.45},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := m.Evaluate(tt.a, tt.b)
			assert.Equal(t, tt.want, got.Classification)
			assert.Equal(t, tt.delta, got.ScoreDelta)
			assert.InDelta(t, tt.compat, got.Compatibility, 1e-9)
		})
	}
}

func TestEvaluateIsSymmetric(t *testing.T) {
	m := newMatcher(t, nil)
	a := profile("a", "retail", 88, map[models.MetricKind]float64{models.MetricSEO: 90, models.MetricContent: 50, models.MetricTechnical: 82})
	b := profile("b", "legal", 81, map[models.MetricKind]float64{models.MetricSEO: 85, models.MetricContent: 92, models.MetricTechnical: 81})

	assert.Equal(t, m.Evaluate(a, b), m.Evaluate(b, a))
}

func TestSynergiesOrder(t *testing.T) {
	m := newMatcher(t, nil)
	a := profile("a", "retail", 80, map[models.MetricKind]float64{
		models.MetricSEO: 90, models.MetricContent: 40, models.MetricConversion: 88, models.MetricTechnical: 95,
	})
	b := profile("b", "legal", 80, map[models.MetricKind]float64{
		models.MetricSEO: 81, models.MetricContent: 91, models.MetricConversion: 50, models.MetricEngagement: 99, models.MetricTechnical: 80,
	})

	got := m.Evaluate(a, b)
	assert.Equal(t, []string{
		"shared_strength:seo",
		"shared_strength:technical",
		"complementary_gap:content",
		"complementary_gap:conversion",
	}, got.Synergies)
}

func TestMatchErrors(t *testing.T) {
	m := newMatcher(t, nil)
	pop, err := models.NewPopulation([]models.BusinessProfile{profile("a", "x", 50, nil), profile("b", "y", 55, nil)})
	require.NoError(t, err)

	_, err = m.Match(pop, "a", "a")
	assert.True(t, apperrors.IsCode(err, apperrors.ErrCodeNotFound))

	_, err = m.Match(pop, "a", "missing")
	assert.True(t, apperrors.IsCode(err, apperrors.ErrCodeNotFound))

	match, err := m.Match(pop, "b", "a")
	require.NoError(t, err)
	assert.Equal(t, models.NewPairKey("a", "b"), match.PairKey)
}

func TestFindMatchesOrdering(t *testing.T) {
	m := newMatcher(t, nil)
	pop, err := models.NewPopulation([]models.BusinessProfile{
		profile("target", "retail", 80, nil),
		profile("d", "dental", 84, nil),
		profile("c", "legal", 76, nil),
		profile("b", "legal", 84, nil),
		profile("e", "retail", 80, nil),
		profile("f", "auto", 30, nil),
		profile("g", "auto", 100, nil),
	})
	require.NoError(t, err)

	matches, err := m.FindMatches(context.Background(), pop, "target", 0)
	require.NoError(t, err)

	var others []string
	for _, match := range matches {
		others = append(others, match.PairKey.Other("target"))
	}
	// e: delta 0; b,c,d: delta 4 ordered by id; g: delta 20; f excluded.
	assert.Equal(t, []string{"e", "b", "c", "d", "g"}, others)

	top, err := m.FindMatches(context.Background(), pop, "target", 2)
	require.NoError(t, err)
	assert.Len(t, top, 2)
	assert.Equal(t, matches[:2], top)
}

func TestFindMatchesIncludeNotRecommended(t *testing.T) {
	m := newMatcher(t, func(c *Config) { c.IncludeNotRecommended = true })
	pop, err := models.NewPopulation([]models.BusinessProfile{
		profile("a", "x", 90, nil),
		profile("b", "y", 10, nil),
	})
	require.NoError(t, err)

	matches, err := m.FindMatches(context.Background(), pop, "a", 5)
	require.NoError(t, err)
	require.Len(t, matches, 1)
	assert.Equal(t, models.MatchNoRecomendado, matches[0].Classification)
}

func TestFindMatchesNotFoundAndEmpty(t *testing.T) {
	m := newMatcher(t, nil)
	pop, err := models.NewPopulation([]models.BusinessProfile{profile("solo", "x", 90, nil)})
	require.NoError(t, err)

	_, err = m.FindMatches(context.Background(), pop, "nobody", 5)
	assert.True(t, apperrors.IsCode(err, apperrors.ErrCodeNotFound))

	matches, err := m.FindMatches(context.Background(), pop, "solo", 5)
	require.NoError(t, err)
	assert.Empty(t, matches)
}

func TestFindMatchesCancelled(t *testing.T) {
	m := newMatcher(t, nil)
	profiles := make([]models.BusinessProfile, 0, 100)
	for i := 0; i < 100; i++ {
		profiles = append(profiles, profile(fmt.Sprintf("biz-%03d", i), fmt.Sprintf("sector-%d", i%10), 50+i%20, nil))
	}
	pop, err := models.NewPopulation(profiles)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	matches, err := m.FindMatches(ctx, pop, "biz-000", 10)
	assert.Nil(t, matches)
	assert.True(t, apperrors.IsCode(err, apperrors.ErrCodeCancelled))
	assert.ErrorIs(t, err, context.Canceled)
}

func TestConfigValidation(t *testing.T) {
	_, err := NewMatcher(Config{PerfectoMax: -1, CompensatorioMax: 30})
	assert.True(t, apperrors.IsCode(err, apperrors.ErrCodeConfiguration))

	_, err = NewMatcher(Config{PerfectoMax: 20, CompensatorioMax: 10})
	assert.True(t, apperrors.IsCode(err, apperrors.ErrCodeConfiguration))
}
