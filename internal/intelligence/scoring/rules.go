// internal/intelligence/scoring/rules.go
package scoring

import (
	"fmt"
	"math"

	apperrors "iluma-intelligence/internal/common/errors"
	"iluma-intelligence/internal/models"
)

// Rule emits Message when Metric is present and strictly below Threshold.
type Rule struct {
	Metric    models.MetricKind `json:"metric"`
	Threshold float64           `json:"threshold"`
	Message   string            `json:"message"`
}

// DefaultRules returns the recommendation rules in evaluation order.
func DefaultRules() []Rule {
	return []Rule{
		{Metric: models.MetricSEO, Threshold: 80, Message: "improve technical SEO"},
		{Metric: models.MetricConversion, Threshold: 85, Message: "optimize conversion pages"},
		{Metric: models.MetricContent, Threshold: 90, Message: "enrich content strategy"},
		{Metric: models.MetricEngagement, Threshold: 70, Message: "increase audience engagement"},
		{Metric: models.MetricTechnical, Threshold: 75, Message: "fix site performance and technical health"},
	}
}

func validateRules(rules []Rule) error {
	for i, r := range rules {
		if !r.Metric.Valid() {
			return apperrors.NewConfigurationError(fmt.Sprintf("rule %d: unknown metric kind %d", i, int(r.Metric)))
		}
		if math.IsNaN(r.Threshold) {
			return apperrors.NewConfigurationError(fmt.Sprintf("rule %d: threshold is NaN", i))
		}
		if r.Message == "" {
			return apperrors.NewConfigurationError(fmt.Sprintf("rule %d: empty message", i))
		}
	}
	return nil
}

// evaluate runs rules in declaration order. Output order is rule order.
func evaluate(rules []Rule, metrics models.MetricSet) []string {
	out := make([]string, 0, len(rules))
	for _, r := range rules {
		v, ok := metrics.Get(r.Metric)
		if ok && v < r.Threshold {
			out = append(out, r.Message)
		}
	}
	return out
}
