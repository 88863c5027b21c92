// internal/intelligence/cache/cache.go
package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"sort"

	"golang.org/x/sync/singleflight"

	"iluma-intelligence/internal/models"
)

// ErrCacheMiss is returned by Get when the key is absent or expired.
var ErrCacheMiss = errors.New("CACHE_MISS")

// Cache stores JSON-encoded computation results by fingerprint key.
type Cache interface {
	Get(ctx context.Context, key string, dest interface{}) error
	Set(ctx context.Context, key string, value interface{}) error
}

// Memo wraps a Cache so that concurrent callers computing the same key share
// one computation.
type Memo struct {
	cache Cache
	group singleflight.Group
}

func NewMemo(c Cache) *Memo {
	return &Memo{cache: c}
}

// Do loads key into dest, computing and storing it on a miss. A failing cache
// backend degrades to computing without caching; the returned hit reports
// whether the value came from the cache. Compute runs under the context of the
// caller that started it; a caller still live after sharing a computation
// cancelled by another caller computes again.
func (m *Memo) Do(ctx context.Context, key string, dest interface{}, compute func(context.Context) (interface{}, error)) (hit bool, err error) {
	if err := m.cache.Get(ctx, key, dest); err == nil {
		return true, nil
	}

	for {
		v, err, shared := m.group.Do(key, func() (interface{}, error) {
			value, err := compute(ctx)
			if err != nil {
				return nil, err
			}
			data, err := json.Marshal(value)
			if err != nil {
				return nil, fmt.Errorf("encode result: %w", err)
			}
			_ = m.cache.Set(context.WithoutCancel(ctx), key, json.RawMessage(data))
			return data, nil
		})
		if err != nil {
			if shared && ctx.Err() == nil && isContextErr(err) {
				continue
			}
			return false, err
		}
		return false, json.Unmarshal(v.([]byte), dest)
	}
}

func isContextErr(err error) bool {
	return errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}

// Fingerprint hashes any JSON-encodable parts into a stable hex key.
func Fingerprint(parts ...interface{}) (string, error) {
	h := sha256.New()
	enc := json.NewEncoder(h)
	for _, p := range parts {
		if err := enc.Encode(p); err != nil {
			return "", fmt.Errorf("fingerprint: %w", err)
		}
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}

type versionEntry struct {
	ID        string             `json:"i"`
	Sector    string             `json:"s"`
	City      string             `json:"c"`
	Coords    models.Coordinates `json:"g"`
	Metrics   models.MetricSet   `json:"m"`
	Overall   int                `json:"o"`
	Potential models.Potential   `json:"p"`
	Status    models.Status      `json:"t"`
}

// PopulationVersion identifies a population by the fields the engine reads,
// independent of input order.
func PopulationVersion(profiles []models.BusinessProfile) (string, error) {
	entries := make([]versionEntry, len(profiles))
	for i, p := range profiles {
		entries[i] = versionEntry{
			ID:        p.ID,
			Sector:    p.Sector,
			City:      p.City,
			Coords:    p.Coordinates,
			Metrics:   p.Metrics,
			Overall:   p.Score.Overall,
			Potential: p.Potential,
			Status:    p.Status,
		}
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].ID < entries[j].ID })
	return Fingerprint(entries)
}
