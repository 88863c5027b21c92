// internal/repository/snapshots_postgres.go
package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"

	"github.com/lib/pq"

	apperrors "iluma-intelligence/internal/common/errors"
	"iluma-intelligence/internal/models"
)

const (
	latestSnapshotQuery = `
		SELECT overall, breakdown, trend_direction, trend_percentage,
		       recommendations, warnings, computed_at
		FROM score_snapshots
		WHERE business_id = $1
		ORDER BY computed_at DESC
		LIMIT 1`

	insertSnapshotQuery = `
		INSERT INTO score_snapshots (
			business_id, overall, breakdown, trend_direction, trend_percentage,
			recommendations, warnings, computed_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`
)

// PostgresSnapshotStore keeps every computed score in score_snapshots.
type PostgresSnapshotStore struct {
	db *sql.DB
}

func NewPostgresSnapshotStore(db *sql.DB) *PostgresSnapshotStore {
	return &PostgresSnapshotStore{db: db}
}

func (s *PostgresSnapshotStore) Latest(ctx context.Context, businessID string) (*models.CompositeScore, error) {
	var (
		score     models.CompositeScore
		breakdown []byte
		direction string
		recs      []string
		warnings  []string
	)
	err := s.db.QueryRowContext(ctx, latestSnapshotQuery, businessID).Scan(
		&score.Overall, &breakdown, &direction, &score.TrendPercentage,
		pq.Array(&recs), pq.Array(&warnings), &score.ComputedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, apperrors.NewSnapshotStoreFailedError("latest", err)
	}

	if len(breakdown) > 0 {
		if err := json.Unmarshal(breakdown, &score.Breakdown); err != nil {
			return nil, apperrors.NewSnapshotStoreFailedError("decode breakdown", err)
		}
	}
	score.TrendDirection = models.TrendDirection(direction)
	score.Recommendations = recs
	score.Warnings = warnings
	return &score, nil
}

func (s *PostgresSnapshotStore) Save(ctx context.Context, businessID string, score models.CompositeScore) error {
	breakdown, err := json.Marshal(score.Breakdown)
	if err != nil {
		return apperrors.NewSnapshotStoreFailedError("encode breakdown", err)
	}
	recs := score.Recommendations
	if recs == nil {
		recs = []string{}
	}
	warnings := score.Warnings
	if warnings == nil {
		warnings = []string{}
	}

	_, err = s.db.ExecContext(ctx, insertSnapshotQuery,
		businessID, score.Overall, breakdown, string(score.TrendDirection), score.TrendPercentage,
		pq.Array(recs), pq.Array(warnings), score.ComputedAt,
	)
	if err != nil {
		return apperrors.NewSnapshotStoreFailedError("save", err)
	}
	return nil
}
