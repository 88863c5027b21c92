// internal/repository/repository.go
package repository

import (
	"context"
	"strings"

	"iluma-intelligence/internal/models"
)

// SnapshotStore persists composite scores so later runs can compute trends.
type SnapshotStore interface {
	// Latest returns the most recent snapshot, or nil when none exists.
	Latest(ctx context.Context, businessID string) (*models.CompositeScore, error)
	Save(ctx context.Context, businessID string, score models.CompositeScore) error
}

// ProfileSource loads raw business records for scoring.
type ProfileSource interface {
	Load(ctx context.Context, q Query) ([]models.BusinessRecord, error)
}

// Query narrows the records a source returns. Empty slices match everything;
// a Limit of 0 means no limit.
type Query struct {
	IDs     []string `json:"ids,omitempty"`
	Sectors []string `json:"sectors,omitempty"`
	Cities  []string `json:"cities,omitempty"`
	Limit   int      `json:"limit,omitempty"`
}

// Matches applies the query to one record, comparing sectors and cities
// without regard to case.
func (q Query) Matches(r models.BusinessRecord) bool {
	if len(q.IDs) > 0 && !contains(q.IDs, r.ID, false) {
		return false
	}
	if len(q.Sectors) > 0 && !contains(q.Sectors, r.Sector, true) {
		return false
	}
	if len(q.Cities) > 0 && !contains(q.Cities, r.City, true) {
		return false
	}
	return true
}

func contains(list []string, v string, fold bool) bool {
	v = strings.TrimSpace(v)
	for _, item := range list {
		item = strings.TrimSpace(item)
		if item == v || (fold && strings.EqualFold(item, v)) {
			return true
		}
	}
	return false
}

func lowerAll(list []string) []string {
	out := make([]string, len(list))
	for i, s := range list {
		out[i] = strings.ToLower(strings.TrimSpace(s))
	}
	return out
}
