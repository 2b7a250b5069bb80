package config

import (
	"fmt"
)

type CacheKeyStruct struct{}

func NewCacheKeyStruct() *CacheKeyStruct {
	return &CacheKeyStruct{}
}

// QuestionHintKey returns the cache key for the AI hint of a single question.
func (r *CacheKeyStruct) QuestionHintKey(questionID int64) string {
	return fmt.Sprintf("hint:question:%d", questionID)
}

// HintIndexKey returns the sorted set that tracks hint insertion time for size-capped eviction.
func (r *CacheKeyStruct) HintIndexKey() string {
	return "hint:index"
}

// LeaderboardKey returns the cache key for a leaderboard snapshot of one cache generation.
func (r *CacheKeyStruct) LeaderboardKey(generation int64, signature string) string {
	return fmt.Sprintf("leaderboard:g%d:%s", generation, signature)
}

// LeaderboardGenerationKey holds a counter bumped on every submission; old snapshots simply expire.
func (r *CacheKeyStruct) LeaderboardGenerationKey() string {
	return "leaderboard:generation"
}

// RateLimitKey returns the fixed-window counter key for a principal and window number.
func (r *CacheKeyStruct) RateLimitKey(scope, username string, window int64) string {
	return fmt.Sprintf("ratelimit:%s:%s:%d", scope, username, window)
}

// RevokedTokenKey marks a logged-out token id until the token would have expired anyway.
func (r *CacheKeyStruct) RevokedTokenKey(jti string) string {
	return fmt.Sprintf("auth:revoked:%s", jti)
}

// LeaderboardChannel returns the Redis PubSub channel that announces new submissions.
func (r *CacheKeyStruct) LeaderboardChannel() string {
	return "leaderboard:updates"
}

var CacheKey = NewCacheKeyStruct()
