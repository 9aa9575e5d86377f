package cache

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"loanbook/internal/domain/dashboard"
	"loanbook/internal/domain/loan"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeRedis struct {
	values  map[string]string
	ttls    map[string]time.Duration
	failGet error
	failSet error
	failDel error
}

func newFakeRedis() *fakeRedis {
	return &fakeRedis{values: map[string]string{}, ttls: map[string]time.Duration{}}
}

func (f *fakeRedis) Get(_ context.Context, key string) *redis.StringCmd {
	if f.failGet != nil {
		return redis.NewStringResult("", f.failGet)
	}
	v, ok := f.values[key]
	if !ok {
		return redis.NewStringResult("", redis.Nil)
	}
	return redis.NewStringResult(v, nil)
}

func (f *fakeRedis) Set(_ context.Context, key string, value interface{}, expiration time.Duration) *redis.StatusCmd {
	if f.failSet != nil {
		return redis.NewStatusResult("", f.failSet)
	}
	f.values[key] = string(value.([]byte))
	f.ttls[key] = expiration
	return redis.NewStatusResult("OK", nil)
}

func (f *fakeRedis) Del(_ context.Context, keys ...string) *redis.IntCmd {
	if f.failDel != nil {
		return redis.NewIntResult(0, f.failDel)
	}
	var n int64
	for _, key := range keys {
		if _, ok := f.values[key]; ok {
			delete(f.values, key)
			n++
		}
	}
	return redis.NewIntResult(n, nil)
}

func newTestCache(client *fakeRedis) *RedisStatsCache {
	return newRedisStatsCache(client, 30*time.Second, slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func TestRedisStatsCache_RoundTrip(t *testing.T) {
	ctx := context.Background()
	client := newFakeRedis()
	c := newTestCache(client)

	_, ok, err := c.GetStats(ctx)
	require.NoError(t, err)
	assert.False(t, ok)

	stats := &dashboard.Stats{
		TotalLoans:       10,
		ClosedLoans:      4,
		TotalOutstanding: 1234.56,
		MonthlyCollections: []loan.MonthlyCollection{
			{Year: 2024, Month: 5, TotalAmount: 900, Count: 3},
		},
		CollectionRate: 40,
		AsOf:           time.Date(2024, 5, 20, 9, 30, 0, 0, time.UTC),
	}
	require.NoError(t, c.SetStats(ctx, stats))
	assert.Equal(t, 30*time.Second, client.ttls[statsKey])

	got, ok, err := c.GetStats(ctx)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, stats, got)
}

func TestRedisStatsCache_Errors(t *testing.T) {
	ctx := context.Background()

	t.Run("Read failure", func(t *testing.T) {
		client := newFakeRedis()
		client.failGet = errors.New("connection refused")
		_, ok, err := newTestCache(client).GetStats(ctx)
		assert.False(t, ok)
		assert.ErrorContains(t, err, "connection refused")
	})

	t.Run("Write failure", func(t *testing.T) {
		client := newFakeRedis()
		client.failSet = errors.New("READONLY")
		err := newTestCache(client).SetStats(ctx, &dashboard.Stats{})
		assert.ErrorContains(t, err, "READONLY")
	})

	t.Run("Corrupt payload is a miss", func(t *testing.T) {
		client := newFakeRedis()
		client.values[statsKey] = "{not json"
		_, ok, err := newTestCache(client).GetStats(ctx)
		assert.NoError(t, err)
		assert.False(t, ok)
	})
}

func TestRedisStatsCache_Invalidate(t *testing.T) {
	ctx := context.Background()
	client := newFakeRedis()
	c := newTestCache(client)

	require.NoError(t, c.SetStats(ctx, &dashboard.Stats{TotalLoans: 3}))
	require.NoError(t, c.InvalidateStats(ctx))

	_, ok, err := c.GetStats(ctx)
	require.NoError(t, err)
	assert.False(t, ok, "stats must be recomputed after invalidation")

	require.NoError(t, c.InvalidateStats(ctx), "deleting a missing key is not an error")

	client.failDel = errors.New("connection reset")
	assert.ErrorContains(t, c.InvalidateStats(ctx), "connection reset")
}
