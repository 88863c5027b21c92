// internal/intelligence/scoring/weights.go
package scoring

import (
	"fmt"
	"math"
	"sort"

	apperrors "iluma-intelligence/internal/common/errors"
	"iluma-intelligence/internal/models"
)

// Weights assigns a relative importance to each metric kind. Kinds missing from
// the table weigh zero. Weights need not sum to one: they are renormalized over
// the metrics present on each business.
type Weights map[models.MetricKind]float64

// DefaultWeights returns the canonical weight table.
func DefaultWeights() Weights {
	return Weights{
		models.MetricSEO:        0.25,
		models.MetricContent:    0.20,
		models.MetricConversion: 0.25,
		models.MetricEngagement: 0.15,
		models.MetricTechnical:  0.15,
	}
}

// ParseWeights builds a table from metric names, as found in configuration files.
func ParseWeights(raw map[string]float64) (Weights, error) {
	w := make(Weights, len(raw))
	names := make([]string, 0, len(raw))
	for name := range raw {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		kind, ok := models.ParseMetricKind(name)
		if !ok {
			return nil, apperrors.NewConfigurationError(fmt.Sprintf("unknown metric %q in weights", name))
		}
		w[kind] = raw[name]
	}
	return w, nil
}

// Sum returns the total of all weights.
func (w Weights) Sum() float64 {
	total := 0.0
	for _, v := range w {
		total += v
	}
	return total
}

// Validate rejects empty tables, unknown kinds, negative or non-finite weights
// and tables whose weights are all zero.
func (w Weights) Validate() error {
	if len(w) == 0 {
		return apperrors.NewConfigurationError("weight table is empty")
	}
	for _, k := range sortedKinds(w) {
		v := w[k]
		if !k.Valid() {
			return apperrors.NewConfigurationError(fmt.Sprintf("unknown metric kind %d in weights", int(k)))
		}
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return apperrors.NewConfigurationError(fmt.Sprintf("weight for %s is not finite", k))
		}
		if v < 0 {
			return apperrors.NewConfigurationError(fmt.Sprintf("negative weight for %s: %g", k, v))
		}
	}
	if w.Sum() <= 0 {
		return apperrors.NewConfigurationError("weights sum to zero")
	}
	return nil
}

// Clone returns an independent copy.
func (w Weights) Clone() Weights {
	out := make(Weights, len(w))
	for k, v := range w {
		out[k] = v
	}
	return out
}

// ToMap returns the table keyed by metric name.
func (w Weights) ToMap() map[string]float64 {
	out := make(map[string]float64, len(w))
	for k, v := range w {
		out[k.String()] = v
	}
	return out
}

func sortedKinds(w Weights) []models.MetricKind {
	kinds := make([]models.MetricKind, 0, len(w))
	for k := range w {
		kinds = append(kinds, k)
	}
	sort.Slice(kinds, func(i, j int) bool { return kinds[i] < kinds[j] })
	return kinds
}
