// internal/workers/intelligence/match-businesses/models.go
package matchbusinesses

import (
	"iluma-intelligence/internal/models"
	"iluma-intelligence/internal/repository"
)

// Input selects the population with Query. When OtherID is set the job
// classifies that single pair, otherwise it ranks the population against
// BusinessID.
type Input struct {
	BusinessID string           `json:"businessId"`
	OtherID    string           `json:"otherId,omitempty"`
	TopN       int              `json:"topN,omitempty"`
	Query      repository.Query `json:"query"`
}

type Output struct {
	BusinessID     string         `json:"businessId"`
	Match          *models.Match  `json:"match,omitempty"`
	Matches        []models.Match `json:"matches"`
	MatchCount     int            `json:"matchCount"`
	PopulationSize int            `json:"populationSize"`
	BatchID        string         `json:"batchId"`
	Rejected       int            `json:"rejected"`
}
