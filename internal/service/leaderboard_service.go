package service

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/aiquizzer/quizzer-backend/internal/config"
	"github.com/aiquizzer/quizzer-backend/internal/model"
)

const (
	DefaultLeaderboardLimit = 10
	MaxLeaderboardLimit     = 100
)

type leaderboardStore interface {
	Leaderboard(ctx context.Context, f model.LeaderboardFilter) ([]model.LeaderboardEntry, error)
}

type leaderboardCache interface {
	Get(ctx context.Context, f model.LeaderboardFilter) ([]model.LeaderboardEntry, int64, bool, error)
	Set(ctx context.Context, gen int64, f model.LeaderboardFilter, entries []model.LeaderboardEntry) error
	Invalidate(ctx context.Context) error
}

// LeaderboardService ranks users by best score and announces new submissions.
type LeaderboardService struct {
	store leaderboardStore
	cache leaderboardCache
	rdb   *redis.Client
	log   zerolog.Logger
}

// NewLeaderboardService creates a new LeaderboardService.
func NewLeaderboardService(store leaderboardStore, cache leaderboardCache, rdb *redis.Client, log zerolog.Logger) *LeaderboardService {
	return &LeaderboardService{
		store: store,
		cache: cache,
		rdb:   rdb,
		log:   log.With().Str("component", "leaderboard_service").Logger(),
	}
}

// Top returns the ranked entries for the filter, served from cache when fresh.
func (s *LeaderboardService) Top(ctx context.Context, f model.LeaderboardFilter) ([]model.LeaderboardEntry, error) {
	if f.Limit < 1 {
		f.Limit = DefaultLeaderboardLimit
	}
	if f.Limit > MaxLeaderboardLimit {
		f.Limit = MaxLeaderboardLimit
	}

	cached, gen, ok, err := s.cache.Get(ctx, f)
	if err != nil {
		s.log.Warn().Err(err).Msg("Leaderboard cache read failed")
	} else if ok {
		return cached, nil
	}

	entries, err := s.store.Leaderboard(ctx, f)
	if err != nil {
		return nil, fmt.Errorf("query leaderboard: %w", err)
	}
	if err := s.cache.Set(ctx, gen, f, entries); err != nil {
		s.log.Warn().Err(err).Msg("Leaderboard cache write failed")
	}
	return entries, nil
}

// NotifySubmission drops cached snapshots and publishes the update to live subscribers.
func (s *LeaderboardService) NotifySubmission(ctx context.Context, u model.LeaderboardUpdate) {
	if err := s.cache.Invalidate(ctx); err != nil {
		s.log.Warn().Err(err).Msg("Leaderboard cache invalidation failed")
	}

	raw, err := json.Marshal(u)
	if err != nil {
		return
	}
	if err := s.rdb.Publish(ctx, config.CacheKey.LeaderboardChannel(), raw).Err(); err != nil {
		s.log.Warn().Err(err).Msg("Leaderboard update publish failed")
	}
}

// Subscribe opens a subscription to leaderboard updates. The caller closes it.
func (s *LeaderboardService) Subscribe(ctx context.Context) *redis.PubSub {
	return s.rdb.Subscribe(ctx, config.CacheKey.LeaderboardChannel())
}
