// internal/intelligence/matching/matcher.go
package matching

import (
	"context"
	"fmt"
	"math"
	"sort"
	"strings"

	"golang.org/x/sync/errgroup"

	apperrors "iluma-intelligence/internal/common/errors"
	"iluma-intelligence/internal/models"
)

const (
	DefaultPerfectoMax      = 10
	DefaultCompensatorioMax = 30
	DefaultStrengthAt       = 80.0
	DefaultGapHighAt        = 85.0
	DefaultGapLowBelow      = 60.0
	DefaultParallelism      = 4

	SynergySharedStrength   = "shared_strength"
	SynergyComplementaryGap = "complementary_gap"
)

type Config struct {
	PerfectoMax           int
	CompensatorioMax      int
	IncludeNotRecommended bool
	// Both metrics at or above StrengthAt form a shared strength.
	StrengthAt float64
	// One metric at or above GapHighAt with the other below GapLowBelow forms a complementary gap.
	GapHighAt   float64
	GapLowBelow float64
	Parallelism int
}

func DefaultConfig() Config {
	return Config{
		PerfectoMax:      DefaultPerfectoMax,
		CompensatorioMax: DefaultCompensatorioMax,
		StrengthAt:       DefaultStrengthAt,
		GapHighAt:        DefaultGapHighAt,
		GapLowBelow:      DefaultGapLowBelow,
		Parallelism:      DefaultParallelism,
	}
}

func (c Config) Validate() error {
	if c.PerfectoMax < 0 {
		return apperrors.NewConfigurationError(fmt.Sprintf("perfectoMax must be >= 0, got %d", c.PerfectoMax))
	}
	if c.CompensatorioMax < c.PerfectoMax {
		return apperrors.NewConfigurationError(fmt.Sprintf("compensatorioMax %d below perfectoMax %d", c.CompensatorioMax, c.PerfectoMax))
	}
	if c.GapLowBelow > c.GapHighAt {
		return apperrors.NewConfigurationError("complementary gap low threshold above high threshold")
	}
	return nil
}

// Matcher classifies pairs of scored businesses. It is stateless after
// construction and safe for concurrent use.
type Matcher struct {
	cfg Config
}

func NewMatcher(cfg Config) (*Matcher, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if cfg.Parallelism <= 0 {
		cfg.Parallelism = DefaultParallelism
	}
	return &Matcher{cfg: cfg}, nil
}

// Evaluate computes the match between two distinct profiles. The result does
// not depend on argument order.
func (m *Matcher) Evaluate(a, b models.BusinessProfile) models.Match {
	delta := a.Score.Overall - b.Score.Overall
	if delta < 0 {
		delta = -delta
	}

	return models.Match{
		PairKey:        models.NewPairKey(a.ID, b.ID),
		Compatibility:  Compatibility(delta),
		ScoreDelta:     delta,
		Classification: m.classify(delta, a.SameSector(b)),
		Synergies:      m.synergies(a.Metrics, b.Metrics),
	}
}

func (m *Matcher) classify(delta int, sameSector bool) models.MatchClassification {
	switch {
	case delta <= m.cfg.PerfectoMax && !sameSector:
		return models.MatchPerfecto
	case delta <= m.cfg.PerfectoMax:
		return models.MatchCompensatorio
	case delta <= m.cfg.CompensatorioMax:
		return models.MatchCompensatorio
	default:
		return models.MatchNoRecomendado
	}
}

// Compatibility maps a score gap onto [0,1]; it decreases as the gap grows.
func Compatibility(delta int) float64 {
	return math.Max(0, 1-float64(delta)/100)
}

func (m *Matcher) synergies(a, b models.MetricSet) []string {
	out := make([]string, 0)
	for _, k := range models.AllMetricKinds() {
		av, aok := a.Get(k)
		bv, bok := b.Get(k)
		if aok && bok && av >= m.cfg.StrengthAt && bv >= m.cfg.StrengthAt {
			out = append(out, SynergySharedStrength+":"+k.String())
		}
	}
	for _, k := range models.AllMetricKinds() {
		av, aok := a.Get(k)
		bv, bok := b.Get(k)
		if !aok || !bok {
			continue
		}
		if (av >= m.cfg.GapHighAt && bv < m.cfg.GapLowBelow) || (bv >= m.cfg.GapHighAt && av < m.cfg.GapLowBelow) {
			out = append(out, SynergyComplementaryGap+":"+k.String())
		}
	}
	return out
}

// Match evaluates two members of the population by id.
func (m *Matcher) Match(pop *models.Population, idA, idB string) (models.Match, error) {
	if idA == idB {
		return models.Match{}, apperrors.NewSelfMatchError(idA)
	}
	a, ok := pop.Get(idA)
	if !ok {
		return models.Match{}, apperrors.NewNotFoundError(idA)
	}
	b, ok := pop.Get(idB)
	if !ok {
		return models.Match{}, apperrors.NewNotFoundError(idB)
	}
	return m.Evaluate(a, b), nil
}

// FindMatches ranks every other member of the population against id. Candidates
// are evaluated per sector partition in parallel; ctx is checked before each
// partition. topN <= 0 returns every match.
func (m *Matcher) FindMatches(ctx context.Context, pop *models.Population, id string, topN int) ([]models.Match, error) {
	target, ok := pop.Get(id)
	if !ok {
		return nil, apperrors.NewNotFoundError(id)
	}

	partitions := partitionBySector(pop, id)
	results := make([][]models.Match, len(partitions))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(m.cfg.Parallelism)
	for i, part := range partitions {
		i, part := i, part
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			matches := make([]models.Match, 0, len(part))
			for _, candidate := range part {
				match := m.Evaluate(target, candidate)
				if match.Classification == models.MatchNoRecomendado && !m.cfg.IncludeNotRecommended {
					continue
				}
				matches = append(matches, match)
			}
			results[i] = matches
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, apperrors.NewCancelledError("find-matches", err)
	}
	if err := ctx.Err(); err != nil {
		return nil, apperrors.NewCancelledError("find-matches", err)
	}

	var all []models.Match
	for _, r := range results {
		all = append(all, r...)
	}
	SortMatches(all, id)

	if topN > 0 && len(all) > topN {
		all = all[:topN]
	}
	if all == nil {
		all = []models.Match{}
	}
	return all, nil
}

// SortMatches orders by compatibility desc, score delta asc, then the
// counterpart id of the pair relative to id asc.
func SortMatches(matches []models.Match, id string) {
	sort.Slice(matches, func(i, j int) bool {
		a, b := matches[i], matches[j]
		if a.Compatibility != b.Compatibility {
			return a.Compatibility > b.Compatibility
		}
		if a.ScoreDelta != b.ScoreDelta {
			return a.ScoreDelta < b.ScoreDelta
		}
		return a.PairKey.Other(id) < b.PairKey.Other(id)
	})
}

// partitionBySector groups every profile except exclude by normalized sector,
// with partitions ordered by sector name.
func partitionBySector(pop *models.Population, exclude string) [][]models.BusinessProfile {
	groups := make(map[string][]models.BusinessProfile)
	pop.Each(func(p models.BusinessProfile) {
		if p.ID == exclude {
			return
		}
		key := strings.ToLower(strings.TrimSpace(p.Sector))
		groups[key] = append(groups[key], p)
	})

	keys := make([]string, 0, len(groups))
	for k := range groups {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	out := make([][]models.BusinessProfile, 0, len(keys))
	for _, k := range keys {
		out = append(out, groups[k])
	}
	return out
}
