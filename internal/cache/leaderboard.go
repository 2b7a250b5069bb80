package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/aiquizzer/quizzer-backend/internal/config"
	"github.com/aiquizzer/quizzer-backend/internal/model"
)

// LeaderboardCache keeps short-lived leaderboard snapshots. Snapshots are keyed by a
// generation counter; Invalidate bumps the counter so older snapshots are never read again.
type LeaderboardCache struct {
	rdb *redis.Client
	ttl time.Duration
}

// NewLeaderboardCache creates a leaderboard cache.
func NewLeaderboardCache(rdb *redis.Client, ttl time.Duration) *LeaderboardCache {
	return &LeaderboardCache{rdb: rdb, ttl: ttl}
}

// Get returns the snapshot for filter and the generation it was looked up in.
// Pass the generation back to Set so a snapshot computed before an
// invalidation is stored under the old generation.
func (c *LeaderboardCache) Get(ctx context.Context, filter model.LeaderboardFilter) ([]model.LeaderboardEntry, int64, bool, error) {
	gen, err := c.generation(ctx)
	if err != nil {
		return nil, 0, false, err
	}

	raw, err := c.rdb.Get(ctx, config.CacheKey.LeaderboardKey(gen, filter.Signature())).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, gen, false, nil
	}
	if err != nil {
		return nil, gen, false, fmt.Errorf("get leaderboard snapshot: %w", err)
	}

	var entries []model.LeaderboardEntry
	if err := json.Unmarshal(raw, &entries); err != nil {
		return nil, gen, false, nil
	}
	return entries, gen, true, nil
}

// Set stores a snapshot under generation gen.
func (c *LeaderboardCache) Set(ctx context.Context, gen int64, filter model.LeaderboardFilter, entries []model.LeaderboardEntry) error {
	raw, err := json.Marshal(entries)
	if err != nil {
		return fmt.Errorf("marshal leaderboard snapshot: %w", err)
	}
	if err := c.rdb.Set(ctx, config.CacheKey.LeaderboardKey(gen, filter.Signature()), raw, c.ttl).Err(); err != nil {
		return fmt.Errorf("set leaderboard snapshot: %w", err)
	}
	return nil
}

// Invalidate makes every existing snapshot unreachable.
func (c *LeaderboardCache) Invalidate(ctx context.Context) error {
	if err := c.rdb.Incr(ctx, config.CacheKey.LeaderboardGenerationKey()).Err(); err != nil {
		return fmt.Errorf("bump leaderboard generation: %w", err)
	}
	return nil
}

func (c *LeaderboardCache) generation(ctx context.Context) (int64, error) {
	gen, err := c.rdb.Get(ctx, config.CacheKey.LeaderboardGenerationKey()).Int64()
	if errors.Is(err, redis.Nil) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("get leaderboard generation: %w", err)
	}
	return gen, nil
}
