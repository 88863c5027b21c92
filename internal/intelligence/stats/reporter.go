// internal/intelligence/stats/reporter.go
package stats

import (
	"math"
	"sort"
	"strings"

	"iluma-intelligence/internal/models"
)

const (
	DefaultTopN = 5

	HighScoreFrom   = 80
	MediumScoreFrom = 60
)

// Filter selects the sub-population a report is built from. Empty slices and
// nil bounds match everything. String comparisons ignore case.
type Filter struct {
	Sectors    []string           `json:"sectors,omitempty"`
	Cities     []string           `json:"cities,omitempty"`
	Potentials []models.Potential `json:"potentials,omitempty"`
	Statuses   []models.Status    `json:"statuses,omitempty"`
	MinScore   *int               `json:"minScore,omitempty"`
	MaxScore   *int               `json:"maxScore,omitempty"`
}

// IsEmpty reports whether the filter matches every profile.
func (f Filter) IsEmpty() bool {
	return len(f.Sectors) == 0 && len(f.Cities) == 0 && len(f.Potentials) == 0 &&
		len(f.Statuses) == 0 && f.MinScore == nil && f.MaxScore == nil
}

func (f Filter) Matches(p models.BusinessProfile) bool {
	if len(f.Sectors) > 0 && !containsFold(f.Sectors, p.Sector) {
		return false
	}
	if len(f.Cities) > 0 && !containsFold(f.Cities, p.City) {
		return false
	}
	if len(f.Potentials) > 0 && !containsFold(toStrings(f.Potentials), string(p.Potential)) {
		return false
	}
	if len(f.Statuses) > 0 && !containsFold(toStrings(f.Statuses), string(p.Status)) {
		return false
	}
	if f.MinScore != nil && p.Score.Overall < *f.MinScore {
		return false
	}
	if f.MaxScore != nil && p.Score.Overall > *f.MaxScore {
		return false
	}
	return true
}

// ApplyFilter returns the matching profiles in input order.
func ApplyFilter(profiles []models.BusinessProfile, f Filter) []models.BusinessProfile {
	if f.IsEmpty() {
		return profiles
	}
	out := make([]models.BusinessProfile, 0, len(profiles))
	for _, p := range profiles {
		if f.Matches(p) {
			out = append(out, p)
		}
	}
	return out
}

// Reporter summarizes populations. It is stateless.
type Reporter struct {
	topN int
}

func NewReporter(topN int) *Reporter {
	if topN <= 0 {
		topN = DefaultTopN
	}
	return &Reporter{topN: topN}
}

// Generate builds a report over profiles. topN <= 0 uses the reporter default.
// An empty population yields a zeroed report with empty lists.
func (r *Reporter) Generate(profiles []models.BusinessProfile, topN int) models.StatsReport {
	if topN <= 0 {
		topN = r.topN
	}
	report := models.StatsReport{
		TopSectors:         []models.GroupCount{},
		CityDistribution:   []models.GroupCount{},
		HighPotentialLeads: []models.Lead{},
	}
	if len(profiles) == 0 {
		return report
	}

	report.Total = len(profiles)

	sectors := newGrouper()
	cities := newGrouper()
	total := 0
	for _, p := range profiles {
		overall := p.Score.Overall
		total += overall

		sectors.add(p.Sector, overall)
		cities.add(p.City, overall)

		switch Bucket(overall) {
		case "high":
			report.ScoreDistribution.High++
		case "medium":
			report.ScoreDistribution.Medium++
		default:
			report.ScoreDistribution.Low++
		}

		if p.Potential == models.PotentialHigh && p.Status == models.StatusProspect {
			report.ConversionOpportunities++
		}
	}
	report.AverageScore = round2(float64(total) / float64(len(profiles)))

	report.TopSectors = sectors.ranked()
	if len(report.TopSectors) > topN {
		report.TopSectors = report.TopSectors[:topN]
	}
	report.CityDistribution = cities.ranked()
	report.HighPotentialLeads = topLeads(profiles, topN)

	return report
}

// Bucket names the score distribution band for overall.
func Bucket(overall int) string {
	switch {
	case overall >= HighScoreFrom:
		return "high"
	case overall >= MediumScoreFrom:
		return "medium"
	default:
		return "low"
	}
}

func topLeads(profiles []models.BusinessProfile, topN int) []models.Lead {
	ranked := make([]models.BusinessProfile, len(profiles))
	copy(ranked, profiles)
	sort.Slice(ranked, func(i, j int) bool {
		if ranked[i].Score.Overall != ranked[j].Score.Overall {
			return ranked[i].Score.Overall > ranked[j].Score.Overall
		}
		return ranked[i].ID < ranked[j].ID
	})
	if len(ranked) > topN {
		ranked = ranked[:topN]
	}

	leads := make([]models.Lead, len(ranked))
	for i, p := range ranked {
		leads[i] = models.Lead{
			ID:        p.ID,
			Name:      p.Name,
			Sector:    p.Sector,
			City:      p.City,
			Overall:   p.Score.Overall,
			Potential: p.Potential,
			Status:    p.Status,
		}
	}
	return leads
}

type group struct {
	key   string
	count int
	sum   int
}

// grouper counts by key, keeping the first spelling seen for keys that differ only in case.
type grouper struct {
	groups map[string]*group
}

func newGrouper() *grouper {
	return &grouper{groups: make(map[string]*group)}
}

func (g *grouper) add(key string, overall int) {
	key = strings.TrimSpace(key)
	if key == "" {
		key = "unknown"
	}
	norm := strings.ToLower(key)
	grp, ok := g.groups[norm]
	if !ok {
		grp = &group{key: key}
		g.groups[norm] = grp
	}
	grp.count++
	grp.sum += overall
}

// ranked orders by count desc, average score desc, then key asc.
func (g *grouper) ranked() []models.GroupCount {
	out := make([]models.GroupCount, 0, len(g.groups))
	for _, grp := range g.groups {
		out = append(out, models.GroupCount{
			Key:          grp.key,
			Count:        grp.count,
			AverageScore: round2(float64(grp.sum) / float64(grp.count)),
		})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		if out[i].AverageScore != out[j].AverageScore {
			return out[i].AverageScore > out[j].AverageScore
		}
		return out[i].Key < out[j].Key
	})
	return out
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}

func containsFold(values []string, s string) bool {
	s = strings.TrimSpace(s)
	for _, v := range values {
		if strings.EqualFold(strings.TrimSpace(v), s) {
			return true
		}
	}
	return false
}

func toStrings[T ~string](values []T) []string {
	out := make([]string, len(values))
	for i, v := range values {
		out[i] = string(v)
	}
	return out
}
