// internal/repository/snapshots_cached.go
package repository

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"

	"iluma-intelligence/internal/common/logger"
	"iluma-intelligence/internal/models"
)

const snapshotKeyPrefix = "snapshot:latest:"

// CachedSnapshotStore reads the latest snapshot through Redis. Redis failures
// are logged and fall back to the underlying store.
type CachedSnapshotStore struct {
	next   SnapshotStore
	client *redis.Client
	ttl    time.Duration
	logger logger.Logger
}

func NewCachedSnapshotStore(next SnapshotStore, client *redis.Client, ttl time.Duration, log logger.Logger) *CachedSnapshotStore {
	return &CachedSnapshotStore{
		next:   next,
		client: client,
		ttl:    ttl,
		logger: log.WithFields(map[string]interface{}{"component": "snapshot-cache"}),
	}
}

func (s *CachedSnapshotStore) Latest(ctx context.Context, businessID string) (*models.CompositeScore, error) {
	key := snapshotKeyPrefix + businessID

	raw, err := s.client.Get(ctx, key).Bytes()
	switch {
	case err == nil:
		var score models.CompositeScore
		if jsonErr := json.Unmarshal(raw, &score); jsonErr == nil {
			return &score, nil
		}
		s.logger.Warn("discarding undecodable cached snapshot", map[string]interface{}{"businessId": businessID})
	case errors.Is(err, redis.Nil):
	default:
		s.logger.Warn("snapshot cache read failed", map[string]interface{}{"businessId": businessID, "error": err.Error()})
	}

	score, err := s.next.Latest(ctx, businessID)
	if err != nil || score == nil {
		return score, err
	}
	s.store(ctx, key, *score)
	return score, nil
}

func (s *CachedSnapshotStore) Save(ctx context.Context, businessID string, score models.CompositeScore) error {
	if err := s.next.Save(ctx, businessID, score); err != nil {
		return err
	}
	s.store(ctx, snapshotKeyPrefix+businessID, score)
	return nil
}

func (s *CachedSnapshotStore) store(ctx context.Context, key string, score models.CompositeScore) {
	data, err := json.Marshal(score)
	if err != nil {
		return
	}
	if err := s.client.Set(ctx, key, data, s.ttl).Err(); err != nil {
		s.logger.Warn("snapshot cache write failed", map[string]interface{}{"key": key, "error": err.Error()})
	}
}
