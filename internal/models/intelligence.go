// internal/models/intelligence.go
package models

type MatchClassification string

const (
	MatchPerfecto      MatchClassification = "perfecto"
	MatchCompensatorio MatchClassification = "compensatorio"
	MatchNoRecomendado MatchClassification = "no_recomendado"
)

// PairKey is an unordered pair of business ids, stored with A <= B.
type PairKey struct {
	A string `json:"a"`
	B string `json:"b"`
}

func NewPairKey(x, y string) PairKey {
	if y < x {
		x, y = y, x
	}
	return PairKey{A: x, B: y}
}

// Other returns the member of the pair that is not id.
func (k PairKey) Other(id string) string {
	if k.A == id {
		return k.B
	}
	return k.A
}

func (k PairKey) String() string {
	return k.A + "|" + k.B
}

type Match struct {
	PairKey        PairKey             `json:"pairKey"`
	Compatibility  float64             `json:"compatibility"`
	ScoreDelta     int                 `json:"scoreDelta"`
	Classification MatchClassification `json:"classification"`
	Synergies      []string            `json:"synergies"`
}

type Cluster struct {
	ID           string      `json:"id"`
	Centroid     Coordinates `json:"centroid"`
	MemberIDs    []string    `json:"memberIds"`
	AverageScore float64     `json:"averageScore"`
	Count        int         `json:"count"`
}

// GroupCount is one row of a sector or city distribution.
type GroupCount struct {
	Key          string  `json:"key"`
	Count        int     `json:"count"`
	AverageScore float64 `json:"averageScore"`
}

type ScoreDistribution struct {
	High   int `json:"high"`
	Medium int `json:"medium"`
	Low    int `json:"low"`
}

// Lead is a condensed profile entry in a report.
type Lead struct {
	ID        string    `json:"id"`
	Name      string    `json:"name,omitempty"`
	Sector    string    `json:"sector"`
	City      string    `json:"city"`
	Overall   int       `json:"overall"`
	Potential Potential `json:"potential"`
	Status    Status    `json:"status"`
}

type StatsReport struct {
	Total                   int               `json:"total"`
	AverageScore            float64           `json:"averageScore"`
	TopSectors              []GroupCount      `json:"topSectors"`
	CityDistribution        []GroupCount      `json:"cityDistribution"`
	ScoreDistribution       ScoreDistribution `json:"scoreDistribution"`
	ConversionOpportunities int               `json:"conversionOpportunities"`
	HighPotentialLeads      []Lead            `json:"highPotentialLeads"`
}
