// internal/intelligence/config.go
package intelligence

import (
	"strconv"
	"time"

	"iluma-intelligence/internal/intelligence/cache"
	"iluma-intelligence/internal/intelligence/clustering"
	"iluma-intelligence/internal/intelligence/matching"
	"iluma-intelligence/internal/intelligence/scoring"
	"iluma-intelligence/internal/intelligence/stats"
)

const DefaultSlowOperation = 500 * time.Millisecond

// Config is the complete engine configuration. It is passed explicitly to
// NewEngine; the engine reads no global state.
type Config struct {
	Scoring    scoring.Config
	Matching   matching.Config
	Clustering clustering.Config
	// TopN bounds ranked report sections and match lists when callers pass 0.
	TopN int
	// Operations slower than SlowOperation are logged as warnings.
	SlowOperation time.Duration
}

func DefaultConfig() Config {
	return Config{
		Scoring:       scoring.DefaultConfig(),
		Matching:      matching.DefaultConfig(),
		Clustering:    clustering.DefaultConfig(),
		TopN:          stats.DefaultTopN,
		SlowOperation: DefaultSlowOperation,
	}
}

// fingerprint identifies the result-affecting parts of the configuration.
func (c Config) fingerprint() (string, error) {
	return cache.Fingerprint(map[string]interface{}{
		"weights":               c.Scoring.Weights.ToMap(),
		"rules":                 c.Scoring.Rules,
		"upAbove":               c.Scoring.UpAbove,
		"downBelow":             c.Scoring.DownBelow,
		"perfectoMax":           c.Matching.PerfectoMax,
		"compensatorioMax":      c.Matching.CompensatorioMax,
		"includeNotRecommended": c.Matching.IncludeNotRecommended,
		"strengthAt":            c.Matching.StrengthAt,
		"gapHighAt":             c.Matching.GapHighAt,
		"gapLowBelow":           c.Matching.GapLowBelow,
		"radius":                strconv.FormatFloat(c.Clustering.RadiusMeters, 'g', -1, 64),
		"tileThreshold":         c.Clustering.TileThreshold,
		"topN":                  c.TopN,
	})
}
