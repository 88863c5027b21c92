package scoring

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "iluma-intelligence/internal/common/errors"
	"iluma-intelligence/internal/models"
)

func newTestAggregator(t *testing.T) *Aggregator {
	t.Helper()
	cfg := DefaultConfig()
	cfg.Now = func() time.Time { return time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC) }
	agg, err := NewAggregator(cfg)
	require.NoError(t, err)
	return agg
}

func metrics(values map[models.MetricKind]float64) models.MetricSet {
	return models.NewMetricSet(values)
}

func TestScoreFullMetrics(t *testing.T) {
	agg := newTestAggregator(t)
	m := metrics(map[models.MetricKind]float64{
		models.MetricSEO: 90, models.MetricContent: 80, models.MetricConversion: 70,
		models.MetricEngagement: 60, models.MetricTechnical: 40,
	})

	score := agg.Score(m, nil)

	// 22.5 + 16 + 17.5 + 9 + 6
	assert.Equal(t, 71, score.Overall)
	assert.Equal(t, models.TrendDown, score.TrendDirection)
	assert.Equal(t, 0.0, score.TrendPercentage)
	assert.Equal(t, []string{models.WarningNoPreviousScore}, score.Warnings)
	assert.True(t, score.PartialData())
	assert.Equal(t, []string{
		"optimize conversion pages",
		"enrich content strategy",
		"increase audience engagement",
		"fix site performance and technical health",
	}, score.Recommendations)
	assert.Equal(t, m, score.Breakdown)
}

func TestScoreRenormalizesOverPresentMetrics(t *testing.T) {
	agg := newTestAggregator(t)

	score := agg.Score(metrics(map[models.MetricKind]float64{
		models.MetricSEO: 100, models.MetricEngagement: 60,
	}), nil)

	// (100*.25 + 60*.15) / .40
	assert.Equal(t, 85, score.Overall)
	assert.Contains(t, score.Warnings, models.WarningMissingMetrics)
}

func TestScoreNoMetrics(t *testing.T) {
	agg := newTestAggregator(t)

	score := agg.Score(models.MetricSet{}, nil)

	assert.Equal(t, 0, score.Overall)
	assert.Equal(t, models.TrendDown, score.TrendDirection)
	assert.Empty(t, score.Recommendations)
	assert.Contains(t, score.Warnings, models.WarningMissingMetrics)
}

func TestScoreIsDeterministic(t *testing.T) {
	agg := newTestAggregator(t)
	m := metrics(map[models.MetricKind]float64{models.MetricSEO: 81.3, models.MetricContent: 67.9, models.MetricTechnical: 99})

	first := agg.Score(m, nil)
	for i := 0; i < 50; i++ {
		assert.Equal(t, first, agg.Score(m, nil))
	}
}

func TestTrendDirectionBoundaries(t *testing.T) {
	agg := newTestAggregator(t)
	tests := []struct {
		value float64
		want  models.TrendDirection
	}{
		{86, models.TrendUp},
		{85, models.TrendStable},
		{75, models.TrendStable},
		{74, models.TrendDown},
	}
	for _, tt := range tests {
		score := agg.Score(metrics(map[models.MetricKind]float64{models.MetricSEO: tt.value}), nil)
		assert.Equal(t, tt.want, score.TrendDirection, "overall %v", tt.value)
	}
}

func TestTrendPercentageWithPrevious(t *testing.T) {
	agg := newTestAggregator(t)
	previous := &models.CompositeScore{Overall: 80}

	score := agg.Score(metrics(map[models.MetricKind]float64{
		models.MetricSEO: 88, models.MetricContent: 88, models.MetricConversion: 88,
		models.MetricEngagement: 88, models.MetricTechnical: 88,
	}), previous)

	assert.Equal(t, 88, score.Overall)
	assert.Equal(t, 10.0, score.TrendPercentage)
	assert.Empty(t, score.Warnings)
	assert.False(t, score.PartialData())
}

func TestTrendPercentage(t *testing.T) {
	assert.Equal(t, 10.0, TrendPercentage(88, 80))
	assert.Equal(t, -33.3, TrendPercentage(60, 90))
	assert.Equal(t, 0.0, TrendPercentage(70, 70))
	assert.Equal(t, 100.0, TrendPercentage(40, 0))
	assert.Equal(t, 0.0, TrendPercentage(0, 0))
}

func TestNewAggregatorRejectsBadConfig(t *testing.T) {
	tests := []struct {
		name string
		cfg  func() Config
	}{
		{"negative weight", func() Config {
			c := DefaultConfig()
			c.Weights[models.MetricSEO] = -0.1
			return c
		}},
		{"empty table", func() Config {
			c := DefaultConfig()
			c.Weights = Weights{}
			return c
		}},
		{"all zero", func() Config {
			c := DefaultConfig()
			c.Weights = Weights{models.MetricSEO: 0}
			return c
		}},
		{"unknown kind", func() Config {
			c := DefaultConfig()
			c.Weights[models.MetricKind(42)] = 0.1
			return c
		}},
		{"inverted trend thresholds", func() Config {
			c := DefaultConfig()
			c.UpAbove, c.DownBelow = 60, 70
			return c
		}},
		{"rule without message", func() Config {
			c := DefaultConfig()
			c.Rules = []Rule{{Metric: models.MetricSEO, Threshold: 50}}
			return c
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewAggregator(tt.cfg())
			require.Error(t, err)
			assert.True(t, apperrors.IsCode(err, apperrors.ErrCodeConfiguration))
		})
	}
}

func TestCustomRulesKeepDeclarationOrder(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Rules = []Rule{
		{Metric: models.MetricTechnical, Threshold: 100, Message: "second-listed kind first"},
		{Metric: models.MetricSEO, Threshold: 100, Message: "first-listed kind second"},
	}
	agg, err := NewAggregator(cfg)
	require.NoError(t, err)

	score := agg.Score(metrics(map[models.MetricKind]float64{models.MetricSEO: 10, models.MetricTechnical: 10}), nil)
	assert.Equal(t, []string{"second-listed kind first", "first-listed kind second"}, score.Recommendations)
}

func TestParseWeights(t *testing.T) {
	w, err := ParseWeights(map[string]float64{"SEO": 0.5, "technical": 0.5})
	require.NoError(t, err)
	assert.Equal(t, Weights{models.MetricSEO: 0.5, models.MetricTechnical: 0.5}, w)

	_, err = ParseWeights(map[string]float64{"traffic": 1})
	assert.True(t, apperrors.IsCode(err, apperrors.ErrCodeConfiguration))
}
