// internal/models/metric.go
package models

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// MetricKind identifies one performance dimension. The set is closed and its
// declaration order is the canonical iteration order everywhere.
type MetricKind int

const (
	MetricSEO MetricKind = iota
	MetricContent
	MetricConversion
	MetricEngagement
	MetricTechnical

	metricKindCount
)

const (
	MetricMin = 0.0
	MetricMax = 100.0
)

var metricKindNames = [metricKindCount]string{
	MetricSEO:        "seo",
	MetricContent:    "content",
	MetricConversion: "conversion",
	MetricEngagement: "engagement",
	MetricTechnical:  "technical",
}

// AllMetricKinds returns every metric kind in declaration order.
func AllMetricKinds() []MetricKind {
	kinds := make([]MetricKind, metricKindCount)
	for i := range kinds {
		kinds[i] = MetricKind(i)
	}
	return kinds
}

func (k MetricKind) String() string {
	if !k.Valid() {
		return fmt.Sprintf("MetricKind(%d)", int(k))
	}
	return metricKindNames[k]
}

// Valid reports whether k is one of the declared kinds.
func (k MetricKind) Valid() bool {
	return k >= 0 && k < metricKindCount
}

// ParseMetricKind resolves a metric name, ignoring case and surrounding space.
func ParseMetricKind(name string) (MetricKind, bool) {
	n := strings.ToLower(strings.TrimSpace(name))
	for i, candidate := range metricKindNames {
		if candidate == n {
			return MetricKind(i), true
		}
	}
	return 0, false
}

func (k MetricKind) MarshalText() ([]byte, error) {
	if !k.Valid() {
		return nil, fmt.Errorf("invalid metric kind %d", int(k))
	}
	return []byte(metricKindNames[k]), nil
}

func (k *MetricKind) UnmarshalText(text []byte) error {
	parsed, ok := ParseMetricKind(string(text))
	if !ok {
		return fmt.Errorf("unknown metric kind %q", string(text))
	}
	*k = parsed
	return nil
}

// ClampMetric bounds v into [MetricMin, MetricMax].
func ClampMetric(v float64) float64 {
	return math.Max(MetricMin, math.Min(MetricMax, v))
}

// MetricSet holds at most one value per MetricKind. Values are always within
// [0,100]; absent kinds are distinguishable from zero.
type MetricSet struct {
	values  [metricKindCount]float64
	present [metricKindCount]bool
}

// NewMetricSet builds a set from a kind-keyed map, clamping every value.
func NewMetricSet(values map[MetricKind]float64) MetricSet {
	var m MetricSet
	for k, v := range values {
		m.Set(k, v)
	}
	return m
}

// Set stores v for k after clamping. Invalid kinds and NaN are ignored.
func (m *MetricSet) Set(k MetricKind, v float64) {
	if !k.Valid() || math.IsNaN(v) {
		return
	}
	m.values[k] = ClampMetric(v)
	m.present[k] = true
}

// Get returns the value for k and whether it is present.
func (m MetricSet) Get(k MetricKind) (float64, bool) {
	if !k.Valid() || !m.present[k] {
		return 0, false
	}
	return m.values[k], true
}

func (m MetricSet) Has(k MetricKind) bool {
	return k.Valid() && m.present[k]
}

// Len is the number of present kinds.
func (m MetricSet) Len() int {
	n := 0
	for _, p := range m.present {
		if p {
			n++
		}
	}
	return n
}

// Kinds returns the present kinds in declaration order.
func (m MetricSet) Kinds() []MetricKind {
	kinds := make([]MetricKind, 0, metricKindCount)
	for i, p := range m.present {
		if p {
			kinds = append(kinds, MetricKind(i))
		}
	}
	return kinds
}

// Missing returns the absent kinds in declaration order.
func (m MetricSet) Missing() []MetricKind {
	kinds := make([]MetricKind, 0, metricKindCount)
	for i, p := range m.present {
		if !p {
			kinds = append(kinds, MetricKind(i))
		}
	}
	return kinds
}

// ToMap returns the present values keyed by metric name.
func (m MetricSet) ToMap() map[string]float64 {
	out := make(map[string]float64, metricKindCount)
	for _, k := range m.Kinds() {
		out[k.String()] = m.values[k]
	}
	return out
}

// MarshalJSON writes present kinds as an object in declaration order.
func (m MetricSet) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	first := true
	for _, k := range m.Kinds() {
		if !first {
			buf.WriteByte(',')
		}
		first = false
		buf.WriteString(strconv.Quote(k.String()))
		buf.WriteByte(':')
		buf.WriteString(strconv.FormatFloat(m.values[k], 'f', -1, 64))
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// UnmarshalJSON accepts an object keyed by metric name. Unknown names are rejected;
// raw ingestion with lenient handling goes through the normalizer instead.
func (m *MetricSet) UnmarshalJSON(data []byte) error {
	var raw map[string]float64
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	var out MetricSet
	for name, v := range raw {
		k, ok := ParseMetricKind(name)
		if !ok {
			return fmt.Errorf("unknown metric kind %q", name)
		}
		out.Set(k, v)
	}
	*m = out
	return nil
}
