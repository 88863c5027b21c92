// internal/workers/intelligence/build-stats-report/models.go
package buildstatsreport

import (
	"iluma-intelligence/internal/intelligence/stats"
	"iluma-intelligence/internal/models"
	"iluma-intelligence/internal/repository"
)

// Input loads the population with Query and reports over the profiles that
// pass Filter. Filter sees scores, which Query cannot.
type Input struct {
	Query  repository.Query `json:"query"`
	Filter stats.Filter     `json:"filter"`
	TopN   int              `json:"topN,omitempty"`
}

type Output struct {
	Report         models.StatsReport `json:"report"`
	PopulationSize int                `json:"populationSize"`
	BatchID        string             `json:"batchId"`
	Rejected       int                `json:"rejected"`
	GeneratedAt    string             `json:"generatedAt"`
}
