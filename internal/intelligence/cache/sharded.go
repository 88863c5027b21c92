// internal/intelligence/cache/sharded.go
package cache

import (
	"context"
	"encoding/json"
	"hash/fnv"
	"sync"
	"time"
)

const DefaultShards = 16

type entry struct {
	data      []byte
	expiresAt time.Time
}

type shard struct {
	mu    sync.RWMutex
	items map[string]entry
}

// ShardedCache is an in-process cache split across RW-locked shards.
type ShardedCache struct {
	shards []*shard
	ttl    time.Duration
	now    func() time.Time
}

// NewShardedCache creates a cache with n shards. ttl <= 0 never expires entries.
func NewShardedCache(n int, ttl time.Duration) *ShardedCache {
	if n <= 0 {
		n = DefaultShards
	}
	c := &ShardedCache{
		shards: make([]*shard, n),
		ttl:    ttl,
		now:    time.Now,
	}
	for i := range c.shards {
		c.shards[i] = &shard{items: make(map[string]entry)}
	}
	return c
}

func (c *ShardedCache) shardFor(key string) *shard {
	h := fnv.New32a()
	_, _ = h.Write([]byte(key))
	return c.shards[h.Sum32()%uint32(len(c.shards))]
}

func (c *ShardedCache) Get(_ context.Context, key string, dest interface{}) error {
	s := c.shardFor(key)
	s.mu.RLock()
	e, ok := s.items[key]
	s.mu.RUnlock()

	if !ok {
		return ErrCacheMiss
	}
	if !e.expiresAt.IsZero() && c.now().After(e.expiresAt) {
		s.mu.Lock()
		delete(s.items, key)
		s.mu.Unlock()
		return ErrCacheMiss
	}
	return json.Unmarshal(e.data, dest)
}

func (c *ShardedCache) Set(_ context.Context, key string, value interface{}) error {
	data, err := json.Marshal(value)
	if err != nil {
		return err
	}
	e := entry{data: data}
	if c.ttl > 0 {
		e.expiresAt = c.now().Add(c.ttl)
	}

	s := c.shardFor(key)
	s.mu.Lock()
	s.items[key] = e
	s.mu.Unlock()
	return nil
}

// size counts entries across shards, including expired ones not yet evicted.
func (c *ShardedCache) size() int {
	n := 0
	for _, s := range c.shards {
		s.mu.RLock()
		n += len(s.items)
		s.mu.RUnlock()
	}
	return n
}
