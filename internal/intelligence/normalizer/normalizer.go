// internal/intelligence/normalizer/normalizer.go
package normalizer

import (
	"encoding/json"
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"

	apperrors "iluma-intelligence/internal/common/errors"
	"iluma-intelligence/internal/models"
)

// Result is the outcome of normalizing one raw metric record. Errors hold one
// VALIDATION_ERROR per rejected field; the remaining fields are still used.
type Result struct {
	ID       string                     `json:"id,omitempty"`
	Metrics  models.MetricSet            `json:"metrics"`
	Warnings []string                    `json:"warnings,omitempty"`
	Errors   []*apperrors.StandardError `json:"errors,omitempty"`
}

// Valid reports whether no field was rejected.
func (r Result) Valid() bool {
	return len(r.Errors) == 0
}

// Record is a raw metric record keyed by business id, as handed over by ingestion.
type Record struct {
	ID      string                 `json:"id"`
	Metrics map[string]interface{} `json:"metrics"`
}

// Normalizer converts raw key/value metric input into a bounded MetricSet.
type Normalizer struct{}

func New() *Normalizer {
	return &Normalizer{}
}

// Normalize maps recognised keys onto metric kinds and clamps their values into
// [0,100]. Unknown keys produce warnings; non-numeric values produce per-field
// validation errors. Keys are processed in sorted order so output is stable.
func (n *Normalizer) Normalize(raw map[string]interface{}) Result {
	var res Result

	keys := make([]string, 0, len(raw))
	for k := range raw {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	seen := make(map[models.MetricKind]string, len(keys))
	for _, key := range keys {
		kind, ok := models.ParseMetricKind(key)
		if !ok {
			res.Warnings = append(res.Warnings, fmt.Sprintf("unknown metric %q ignored", key))
			continue
		}
		if prev, dup := seen[kind]; dup {
			res.Warnings = append(res.Warnings, fmt.Sprintf("metric %q duplicates %q, ignored", key, prev))
			continue
		}

		value, err := parseMetricValue(raw[key])
		if err != nil {
			res.Errors = append(res.Errors, apperrors.NewValidationError(kind.String(), err.Error()))
			continue
		}
		seen[kind] = key

		if value < models.MetricMin || value > models.MetricMax {
			res.Warnings = append(res.Warnings, fmt.Sprintf("metric %q value %g clamped to [0,100]", kind, value))
		}
		res.Metrics.Set(kind, value)
	}

	return res
}

// NormalizeBatch normalizes each record independently and keys the results by
// record id. A repeated id keeps the first record; later ones are skipped.
func (n *Normalizer) NormalizeBatch(records []Record) map[string]Result {
	out := make(map[string]Result, len(records))
	for _, rec := range records {
		if _, dup := out[rec.ID]; dup {
			continue
		}
		res := n.Normalize(rec.Metrics)
		res.ID = rec.ID
		out[rec.ID] = res
	}
	return out
}

func parseMetricValue(raw interface{}) (float64, error) {
	var v float64
	switch val := raw.(type) {
	case float64:
		v = val
	case float32:
		v = float64(val)
	case int:
		v = float64(val)
	case int8:
		v = float64(val)
	case int16:
		v = float64(val)
	case int32:
		v = float64(val)
	case int64:
		v = float64(val)
	case uint:
		v = float64(val)
	case uint8:
		v = float64(val)
	case uint16:
		v = float64(val)
	case uint32:
		v = float64(val)
	case uint64:
		v = float64(val)
	case json.Number:
		f, err := val.Float64()
		if err != nil {
			return 0, fmt.Errorf("not a number: %q", val.String())
		}
		v = f
	case string:
		cleaned := strings.TrimSpace(val)
		cleaned = strings.TrimSuffix(cleaned, "%")
		cleaned = strings.ReplaceAll(cleaned, ",", "")
		cleaned = strings.TrimSpace(cleaned)
		f, err := strconv.ParseFloat(cleaned, 64)
		if err != nil {
			return 0, fmt.Errorf("not a number: %q", val)
		}
		v = f
	case nil:
		return 0, fmt.Errorf("value is null")
	default:
		return 0, fmt.Errorf("not a number: %T", raw)
	}

	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, fmt.Errorf("value %v is not finite", v)
	}
	return v, nil
}
