// internal/workers/intelligence/cluster-businesses/models.go
package clusterbusinesses

import (
	"iluma-intelligence/internal/models"
	"iluma-intelligence/internal/repository"
)

// Input selects the population to cluster. RadiusMeters overrides the
// configured radius; Unbounded groups the whole population into one cluster.
type Input struct {
	Query        repository.Query `json:"query"`
	RadiusMeters *float64         `json:"radiusMeters,omitempty"`
	Unbounded    bool             `json:"unbounded,omitempty"`
}

type Output struct {
	Clusters       []models.Cluster `json:"clusters"`
	ClusterCount   int              `json:"clusterCount"`
	PopulationSize int              `json:"populationSize"`
	// RadiusMeters is omitted for an unbounded radius, which JSON cannot carry.
	RadiusMeters *float64 `json:"radiusMeters,omitempty"`
	Unbounded    bool     `json:"unbounded"`
	BatchID      string   `json:"batchId"`
	Rejected     int      `json:"rejected"`
}
