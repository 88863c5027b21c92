// internal/intelligence/scoring/aggregator.go
package scoring

import (
	"fmt"
	"math"
	"time"

	apperrors "iluma-intelligence/internal/common/errors"
	"iluma-intelligence/internal/models"
)

const (
	DefaultTrendUpAbove   = 85
	DefaultTrendDownBelow = 75
)

type Config struct {
	Weights Weights
	Rules   []Rule
	// Overall strictly above UpAbove trends up, strictly below DownBelow trends down.
	UpAbove   int
	DownBelow int
	Now       func() time.Time
}

// DefaultConfig returns the canonical weights, rules and trend thresholds.
func DefaultConfig() Config {
	return Config{
		Weights:   DefaultWeights(),
		Rules:     DefaultRules(),
		UpAbove:   DefaultTrendUpAbove,
		DownBelow: DefaultTrendDownBelow,
	}
}

// Aggregator computes composite scores. It holds no mutable state and is safe
// for concurrent use.
type Aggregator struct {
	weights   Weights
	rules     []Rule
	upAbove   int
	downBelow int
	now       func() time.Time
}

// NewAggregator validates cfg and returns a ready aggregator. A nil rule list
// selects DefaultRules; an empty non-nil list disables recommendations.
func NewAggregator(cfg Config) (*Aggregator, error) {
	if err := cfg.Weights.Validate(); err != nil {
		return nil, err
	}
	rules := cfg.Rules
	if rules == nil {
		rules = DefaultRules()
	}
	if err := validateRules(rules); err != nil {
		return nil, err
	}
	if cfg.UpAbove < cfg.DownBelow {
		return nil, apperrors.NewConfigurationError(fmt.Sprintf("trend up threshold %d below down threshold %d", cfg.UpAbove, cfg.DownBelow))
	}
	now := cfg.Now
	if now == nil {
		now = func() time.Time { return time.Now().UTC() }
	}

	return &Aggregator{
		weights:   cfg.Weights.Clone(),
		rules:     append([]Rule(nil), rules...),
		upAbove:   cfg.UpAbove,
		downBelow: cfg.DownBelow,
		now:       now,
	}, nil
}

// Weights returns a copy of the configured weight table.
func (a *Aggregator) Weights() Weights {
	return a.weights.Clone()
}

// Score aggregates metrics into a CompositeScore. previous, when given, is the
// last persisted snapshot for the same business and drives the trend magnitude.
func (a *Aggregator) Score(metrics models.MetricSet, previous *models.CompositeScore) models.CompositeScore {
	overall := a.Overall(metrics)

	score := models.CompositeScore{
		Overall:         overall,
		Breakdown:       metrics,
		TrendDirection:  a.direction(overall),
		Recommendations: evaluate(a.rules, metrics),
		ComputedAt:      a.now(),
	}

	if previous == nil {
		score.Warnings = append(score.Warnings, models.WarningNoPreviousScore)
	} else {
		score.TrendPercentage = TrendPercentage(overall, previous.Overall)
	}
	if metrics.Len() < len(models.AllMetricKinds()) {
		score.Warnings = append(score.Warnings, models.WarningMissingMetrics)
	}

	return score
}

// Overall is the weighted mean of present metrics, rounded half away from zero.
// It is 0 when no weighted metric is present.
func (a *Aggregator) Overall(metrics models.MetricSet) int {
	num, den := 0.0, 0.0
	for _, k := range metrics.Kinds() {
		w := a.weights[k]
		if w == 0 {
			continue
		}
		v, _ := metrics.Get(k)
		num += v * w
		den += w
	}
	if den == 0 {
		return 0
	}
	overall := int(math.Round(num / den))
	if overall < 0 {
		return 0
	}
	if overall > 100 {
		return 100
	}
	return overall
}

func (a *Aggregator) direction(overall int) models.TrendDirection {
	switch {
	case overall > a.upAbove:
		return models.TrendUp
	case overall < a.downBelow:
		return models.TrendDown
	default:
		return models.TrendStable
	}
}

// TrendPercentage is the relative change from previous to current, in percent
// rounded to one decimal. A previous overall of zero yields 100 for any gain.
func TrendPercentage(current, previous int) float64 {
	if previous == 0 {
		if current > 0 {
			return 100
		}
		return 0
	}
	pct := float64(current-previous) / float64(previous) * 100
	return math.Round(pct*10) / 10
}
