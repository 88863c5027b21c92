package cache

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redismock/v9"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "iluma-intelligence/internal/common/errors"
	"iluma-intelligence/internal/models"
)

type payload struct {
	Total int      `json:"total"`
	IDs   []string `json:"ids"`
}

func TestShardedCache(t *testing.T) {
	ctx := context.Background()
	c := NewShardedCache(4, time.Minute)
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	c.now = func() time.Time { return now }

	var got payload
	assert.ErrorIs(t, c.Get(ctx, "k", &got), ErrCacheMiss)

	require.NoError(t, c.Set(ctx, "k", payload{Total: 2, IDs: []string{"a", "b"}}))
	require.NoError(t, c.Get(ctx, "k", &got))
	assert.Equal(t, payload{Total: 2, IDs: []string{"a", "b"}}, got)
	assert.Equal(t, 1, c.size())

	now = now.Add(2 * time.Minute)
	assert.ErrorIs(t, c.Get(ctx, "k", &got), ErrCacheMiss)
	assert.Equal(t, 0, c.size())
}

func TestShardedCacheConcurrentAccess(t *testing.T) {
	ctx := context.Background()
	c := NewShardedCache(0, 0)

	var wg sync.WaitGroup
	for i := 0; i < 32; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			key := string(rune('a' + i%8))
			_ = c.Set(ctx, key, payload{Total: i})
			var p payload
			_ = c.Get(ctx, key, &p)
		}(i)
	}
	wg.Wait()
	assert.Equal(t, 8, c.size())
}

func TestMemoComputesOnce(t *testing.T) {
	ctx := context.Background()
	memo := NewMemo(NewShardedCache(2, 0))
	var calls int32

	compute := func(context.Context) (interface{}, error) {
		atomic.AddInt32(&calls, 1)
		return payload{Total: 7}, nil
	}

	var first payload
	hit, err := memo.Do(ctx, "fp", &first, compute)
	require.NoError(t, err)
	assert.False(t, hit)
	assert.Equal(t, 7, first.Total)

	var second payload
	hit, err = memo.Do(ctx, "fp", &second, compute)
	require.NoError(t, err)
	assert.True(t, hit)
	assert.Equal(t, first, second)
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
}

func TestMemoPropagatesComputeError(t *testing.T) {
	memo := NewMemo(NewShardedCache(2, 0))
	boom := errors.New("boom")

	var p payload
	_, err := memo.Do(context.Background(), "fp", &p, func(context.Context) (interface{}, error) { return nil, boom })
	assert.ErrorIs(t, err, boom)
}

func TestMemoCancelledCallerDoesNotFailOthers(t *testing.T) {
	memo := NewMemo(NewShardedCache(2, 0))
	started := make(chan struct{})
	var calls int32

	compute := func(ctx context.Context) (interface{}, error) {
		if atomic.AddInt32(&calls, 1) == 1 {
			close(started)
			<-ctx.Done()
			return nil, ctx.Err()
		}
		return payload{Total: 9}, nil
	}

	firstCtx, cancelFirst := context.WithCancel(context.Background())
	firstErr := make(chan error, 1)
	go func() {
		var p payload
		_, err := memo.Do(firstCtx, "fp", &p, compute)
		firstErr <- err
	}()
	<-started

	type result struct {
		p   payload
		err error
	}
	second := make(chan result, 1)
	go func() {
		var p payload
		_, err := memo.Do(context.Background(), "fp", &p, compute)
		second <- result{p, err}
	}()

	// let the second caller join the in-flight computation before cancelling
	time.Sleep(20 * time.Millisecond)
	cancelFirst()

	assert.ErrorIs(t, <-firstErr, context.Canceled)
	select {
	case got := <-second:
		require.NoError(t, got.err)
		assert.Equal(t, 9, got.p.Total)
	case <-time.After(2 * time.Second):
		t.Fatal("second caller did not complete")
	}
}

func TestMemoCancelledSoleCaller(t *testing.T) {
	memo := NewMemo(NewShardedCache(2, 0))
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	var p payload
	_, err := memo.Do(ctx, "fp", &p, func(ctx context.Context) (interface{}, error) { return nil, ctx.Err() })
	assert.ErrorIs(t, err, context.Canceled)
}

func TestRedisCacheWithMiniredis(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	c := NewRedisCache(client, WithPrefix("test:"), WithTTL(time.Minute))
	ctx := context.Background()

	var got payload
	assert.ErrorIs(t, c.Get(ctx, "k", &got), ErrCacheMiss)

	require.NoError(t, c.Set(ctx, "k", payload{Total: 3}))
	assert.True(t, mr.Exists("test:k"))
	assert.Equal(t, time.Minute, mr.TTL("test:k"))

	require.NoError(t, c.Get(ctx, "k", &got))
	assert.Equal(t, 3, got.Total)

	mr.FastForward(2 * time.Minute)
	assert.ErrorIs(t, c.Get(ctx, "k", &got), ErrCacheMiss)
}

func TestRedisCacheUnavailable(t *testing.T) {
	client, mock := redismock.NewClientMock()
	c := NewRedisCache(client)
	mock.ExpectGet(DefaultKeyPrefix + "k").SetErr(errors.New("connection refused"))

	var got payload
	err := c.Get(context.Background(), "k", &got)
	assert.True(t, apperrors.IsCode(err, apperrors.ErrCodeCacheUnavailable))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPopulationVersionIgnoresOrder(t *testing.T) {
	a := models.BusinessProfile{ID: "a", Sector: "retail", Score: models.CompositeScore{Overall: 80}}
	b := models.BusinessProfile{ID: "b", Sector: "legal", Score: models.CompositeScore{Overall: 60}}

	v1, err := PopulationVersion([]models.BusinessProfile{a, b})
	require.NoError(t, err)
	v2, err := PopulationVersion([]models.BusinessProfile{b, a})
	require.NoError(t, err)
	assert.Equal(t, v1, v2)

	b.Score.Overall = 61
	v3, err := PopulationVersion([]models.BusinessProfile{a, b})
	require.NoError(t, err)
	assert.NotEqual(t, v1, v3)
}
