// Package cache holds the Redis-backed caches for AI hints and leaderboard snapshots.
package cache

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/aiquizzer/quizzer-backend/internal/config"
)

// HintCache memoizes generated hints by question id.
type HintCache interface {
	Get(ctx context.Context, questionID int64) (string, bool, error)
	Set(ctx context.Context, questionID int64, hint string) error
}

// RedisHintCache stores hints with a TTL and caps the number of live entries.
// A sorted set indexed by insertion time tracks entries; the oldest are evicted
// once maxEntries is exceeded.
type RedisHintCache struct {
	rdb        *redis.Client
	ttl        time.Duration
	maxEntries int64
}

// NewRedisHintCache creates a hint cache. maxEntries <= 0 disables the cap.
func NewRedisHintCache(rdb *redis.Client, ttl time.Duration, maxEntries int64) *RedisHintCache {
	return &RedisHintCache{rdb: rdb, ttl: ttl, maxEntries: maxEntries}
}

// Get returns the cached hint for a question.
func (c *RedisHintCache) Get(ctx context.Context, questionID int64) (string, bool, error) {
	hint, err := c.rdb.Get(ctx, config.CacheKey.QuestionHintKey(questionID)).Result()
	if errors.Is(err, redis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("get hint: %w", err)
	}
	return hint, true, nil
}

// Set stores a hint and evicts the oldest entries beyond the cap.
func (c *RedisHintCache) Set(ctx context.Context, questionID int64, hint string) error {
	indexKey := config.CacheKey.HintIndexKey()
	member := strconv.FormatInt(questionID, 10)

	var card *redis.IntCmd
	_, err := c.rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Set(ctx, config.CacheKey.QuestionHintKey(questionID), hint, c.ttl)
		pipe.ZAdd(ctx, indexKey, redis.Z{Score: float64(time.Now().UnixNano()), Member: member})
		// Index entries whose hint already expired are dropped here as well.
		pipe.ZRemRangeByScore(ctx, indexKey, "-inf", strconv.FormatInt(time.Now().Add(-c.ttl).UnixNano(), 10))
		card = pipe.ZCard(ctx, indexKey)
		return nil
	})
	if err != nil {
		return fmt.Errorf("set hint: %w", err)
	}

	if c.maxEntries <= 0 {
		return nil
	}
	overflow := card.Val() - c.maxEntries
	if overflow <= 0 {
		return nil
	}
	return c.evictOldest(ctx, overflow)
}

func (c *RedisHintCache) evictOldest(ctx context.Context, n int64) error {
	indexKey := config.CacheKey.HintIndexKey()
	members, err := c.rdb.ZRange(ctx, indexKey, 0, n-1).Result()
	if err != nil {
		return fmt.Errorf("read hint index: %w", err)
	}
	if len(members) == 0 {
		return nil
	}

	keys := make([]string, 0, len(members))
	zmembers := make([]interface{}, 0, len(members))
	for _, m := range members {
		id, err := strconv.ParseInt(m, 10, 64)
		if err != nil {
			continue
		}
		keys = append(keys, config.CacheKey.QuestionHintKey(id))
		zmembers = append(zmembers, m)
	}

	pipe := c.rdb.TxPipeline()
	if len(keys) > 0 {
		pipe.Del(ctx, keys...)
	}
	pipe.ZRem(ctx, indexKey, zmembers...)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("evict hints: %w", err)
	}
	return nil
}
