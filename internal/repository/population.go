// internal/repository/population.go
package repository

import (
	"context"

	"iluma-intelligence/internal/intelligence"
	"iluma-intelligence/internal/models"
)

// PopulationLoader loads records from a source and scores them against their
// latest persisted snapshots.
type PopulationLoader struct {
	source    ProfileSource
	snapshots SnapshotStore
	engine    *intelligence.Engine

	observer    SizeObserver
	sourceLabel string
}

// SizeObserver receives the number of profiles scored per load.
type SizeObserver interface {
	RecordPopulationSize(ctx context.Context, source string, size int)
}

// NewPopulationLoader builds a loader. snapshots may be nil, in which case
// every score is computed without trend.
func NewPopulationLoader(source ProfileSource, snapshots SnapshotStore, engine *intelligence.Engine) *PopulationLoader {
	return &PopulationLoader{source: source, snapshots: snapshots, engine: engine}
}

// WithObserver reports every loaded population size to o under the given source label.
func (l *PopulationLoader) WithObserver(o SizeObserver, source string) *PopulationLoader {
	l.observer = o
	l.sourceLabel = source
	return l
}

func (l *PopulationLoader) Load(ctx context.Context, q Query) (intelligence.BatchResult, error) {
	records, err := l.source.Load(ctx, q)
	if err != nil {
		return intelligence.BatchResult{}, err
	}
	return l.score(ctx, records)
}

// LoadIncluding is Load with the given ids added to the result even when q
// would exclude them.
func (l *PopulationLoader) LoadIncluding(ctx context.Context, q Query, ids ...string) (intelligence.BatchResult, error) {
	records, err := l.source.Load(ctx, q)
	if err != nil {
		return intelligence.BatchResult{}, err
	}

	present := make(map[string]struct{}, len(records))
	for _, r := range records {
		present[r.ID] = struct{}{}
	}
	var missing []string
	for _, id := range ids {
		if _, ok := present[id]; !ok && id != "" {
			missing = append(missing, id)
		}
	}
	if len(missing) > 0 {
		extra, err := l.source.Load(ctx, Query{IDs: missing})
		if err != nil {
			return intelligence.BatchResult{}, err
		}
		records = append(records, extra...)
	}

	return l.score(ctx, records)
}

func (l *PopulationLoader) score(ctx context.Context, records []models.BusinessRecord) (intelligence.BatchResult, error) {
	batch, err := l.engine.ScorePopulation(ctx, records, l.previous())
	if err != nil {
		return intelligence.BatchResult{}, err
	}
	if l.observer != nil {
		l.observer.RecordPopulationSize(ctx, l.sourceLabel, len(batch.Profiles))
	}
	return batch, nil
}

func (l *PopulationLoader) previous() intelligence.PreviousLookup {
	if l.snapshots == nil {
		return nil
	}
	return func(ctx context.Context, id string) (*models.CompositeScore, error) {
		return l.snapshots.Latest(ctx, id)
	}
}
