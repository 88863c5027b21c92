// internal/common/database/redis.go
package database

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"iluma-intelligence/internal/common/config"
)

// CacheRedis is the Redis connection shared by the engine result cache and
// the snapshot cache. Namespace prefixes keys with the configured key_prefix.
type CacheRedis struct {
	Client    *redis.Client
	namespace string
}

// NewCacheRedis opens the cache connection. Cache reads sit on the scoring
// path, so timeouts are short and a miss is preferred over a slow answer.
func NewCacheRedis(cfg config.RedisConfig) (*CacheRedis, error) {
	if cfg.Address == "" {
		return nil, fmt.Errorf("redis address is empty")
	}
	poolSize := cfg.PoolSize
	if poolSize <= 0 {
		poolSize = 10
	}
	rdb := redis.NewClient(&redis.Options{
		Addr:         cfg.Address,
		Password:     cfg.Password,
		DB:           cfg.DB,
		DialTimeout:  2 * time.Second,
		ReadTimeout:  500 * time.Millisecond,
		WriteTimeout: 500 * time.Millisecond,
		PoolSize:     poolSize,
		MinIdleConns: poolSize / 2,
	})
	return &CacheRedis{Client: rdb, namespace: cfg.KeyPrefix}, nil
}

// Namespace returns the key prefix for one cache role, e.g. "intelligence".
func (c *CacheRedis) Namespace(role string) string {
	return c.namespace + role + ":"
}

func (c *CacheRedis) Ping(ctx context.Context) error {
	if err := c.Client.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("redis ping failed: %w", err)
	}
	return nil
}

func (c *CacheRedis) Close() error {
	if c.Client != nil {
		return c.Client.Close()
	}
	return nil
}
