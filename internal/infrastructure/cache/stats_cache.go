package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"loanbook/internal/domain/dashboard"

	"github.com/redis/go-redis/v9"
)

const statsKey = "loanbook:dashboard:stats"

// redisClient is the subset of redis.Cmdable the cache uses.
type redisClient interface {
	Get(ctx context.Context, key string) *redis.StringCmd
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.StatusCmd
	Del(ctx context.Context, keys ...string) *redis.IntCmd
}

var _ redisClient = (*redis.Client)(nil)

type RedisStatsCache struct {
	client redisClient
	ttl    time.Duration
	logger *slog.Logger
}

var _ dashboard.StatsCache = (*RedisStatsCache)(nil)

func NewRedisStatsCache(client *redis.Client, ttl time.Duration, logger *slog.Logger) *RedisStatsCache {
	return newRedisStatsCache(client, ttl, logger)
}

func newRedisStatsCache(client redisClient, ttl time.Duration, logger *slog.Logger) *RedisStatsCache {
	if client == nil {
		panic("redis client cannot be nil")
	}
	logger.Info("Dashboard stats cache configured", "ttl", ttl)
	return &RedisStatsCache{
		client: client,
		ttl:    ttl,
		logger: logger.With("component", "RedisStatsCache"),
	}
}

func (c *RedisStatsCache) GetStats(ctx context.Context) (*dashboard.Stats, bool, error) {
	raw, err := c.client.Get(ctx, statsKey).Bytes()
	if errors.Is(err, redis.Nil) {
		c.logger.DebugContext(ctx, "Dashboard stats cache miss")
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("failed to read %s: %w", statsKey, err)
	}

	var stats dashboard.Stats
	if err := json.Unmarshal(raw, &stats); err != nil {
		c.logger.WarnContext(ctx, "Discarding unreadable cached dashboard stats", "error", err)
		return nil, false, nil
	}
	return &stats, true, nil
}

func (c *RedisStatsCache) SetStats(ctx context.Context, stats *dashboard.Stats) error {
	raw, err := json.Marshal(stats)
	if err != nil {
		return fmt.Errorf("failed to encode dashboard stats: %w", err)
	}
	if err := c.client.Set(ctx, statsKey, raw, c.ttl).Err(); err != nil {
		return fmt.Errorf("failed to write %s: %w", statsKey, err)
	}
	return nil
}

func (c *RedisStatsCache) InvalidateStats(ctx context.Context) error {
	if err := c.client.Del(ctx, statsKey).Err(); err != nil {
		return fmt.Errorf("failed to delete %s: %w", statsKey, err)
	}
	c.logger.DebugContext(ctx, "Dashboard stats invalidated")
	return nil
}

func NewRedisClient(ctx context.Context, addr, password string, db int, logger *slog.Logger) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	logger.Info("Pinging Redis...", "addr", addr)
	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to redis at %s: %w", addr, err)
	}
	logger.Info("Successfully connected to Redis.", "addr", addr, "db", db)
	return client, nil
}
