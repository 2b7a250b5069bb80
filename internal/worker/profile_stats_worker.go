package worker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/aiquizzer/quizzer-backend/internal/config"
	"github.com/aiquizzer/quizzer-backend/internal/model"
)

const (
	ProfileBatchSize    = 100
	ProfileBatchTimeout = 2 * time.Second
	ProfilePollTimeout  = 1 * time.Second
)

type profileIncrementer interface {
	IncrementBatch(ctx context.Context, deltas []model.ProfileStatsDelta) error
	Increment(ctx context.Context, d model.ProfileStatsDelta) error
}

// ProfileStatsWorker applies per-subject answer counters produced by grading.
// Deltas are queued in Redis and flushed to Postgres in batches.
type ProfileStatsWorker struct {
	store profileIncrementer
	rdb   *redis.Client
	log   zerolog.Logger

	batchSize    int
	batchTimeout time.Duration
	pollTimeout  time.Duration
}

func NewProfileStatsWorker(store profileIncrementer, rdb *redis.Client, log zerolog.Logger) *ProfileStatsWorker {
	return &ProfileStatsWorker{
		store:        store,
		rdb:          rdb,
		log:          log.With().Str("component", "profile_stats_worker").Logger(),
		batchSize:    ProfileBatchSize,
		batchTimeout: ProfileBatchTimeout,
		pollTimeout:  ProfilePollTimeout,
	}
}

// Enqueue pushes a delta onto the profile stats queue.
func (w *ProfileStatsWorker) Enqueue(ctx context.Context, d model.ProfileStatsDelta) error {
	raw, err := json.Marshal(d)
	if err != nil {
		return fmt.Errorf("marshal profile delta: %w", err)
	}
	return w.rdb.RPush(ctx, config.WorkerKey.ProfileStatsQueue, raw).Err()
}

// ----------------------------------------------------------------
// Worker loop with batching
// ----------------------------------------------------------------

// Start consumes the queue until ctx is cancelled, then flushes what it holds.
func (w *ProfileStatsWorker) Start(ctx context.Context) {
	w.log.Info().Msg("ProfileStatsWorker started")

	batch := make([]model.ProfileStatsDelta, 0, w.batchSize)
	lastFlush := time.Now()

	for {
		if len(batch) > 0 &&
			(len(batch) >= w.batchSize || time.Since(lastFlush) >= w.batchTimeout) {

			w.flushSafe(ctx, batch)
			batch = batch[:0]
			lastFlush = time.Now()
		}

		select {
		case <-ctx.Done():
			w.log.Info().Int("pending", len(batch)).Msg("Shutdown requested. Flushing remaining batch...")
			w.flushSafe(context.Background(), batch)
			return

		default:
			item, err := w.rdb.BLPop(ctx, w.pollTimeout, config.WorkerKey.ProfileStatsQueue).Result()
			if err != nil {
				if !errors.Is(err, redis.Nil) && ctx.Err() == nil {
					w.log.Error().Err(err).Msg("BLPop error")
					time.Sleep(w.pollTimeout)
				}
				continue
			}
			if len(item) < 2 {
				continue
			}

			var d model.ProfileStatsDelta
			if err := json.Unmarshal([]byte(item[1]), &d); err != nil {
				w.log.Error().Err(err).Msg("Invalid JSON payload")
				continue
			}
			if d.Username == "" || d.Subject == "" {
				continue
			}
			batch = append(batch, d)
		}
	}
}

// ----------------------------------------------------------------
// Batch flush with per-item fallback
// ----------------------------------------------------------------

func (w *ProfileStatsWorker) flushSafe(ctx context.Context, batch []model.ProfileStatsDelta) {
	if len(batch) == 0 {
		return
	}
	merged := mergeDeltas(batch)

	if err := w.store.IncrementBatch(ctx, merged); err != nil {
		w.log.Warn().Err(err).Int("size", len(merged)).Msg("Batch profile update failed, using fallback")

		for _, d := range merged {
			if err := w.store.Increment(ctx, d); err != nil {
				w.log.Error().Err(err).Str("username", d.Username).Msg("Profile update failed, requeueing")
				if err := w.Enqueue(ctx, d); err != nil {
					w.log.Error().Err(err).Msg("Requeue failed, delta dropped")
				}
			}
		}
		return
	}

	w.log.Debug().Int("events", len(batch)).Int("rows", len(merged)).Msg("Profile stats flushed")
}

// mergeDeltas sums deltas per (username, subject), keeping first-seen order.
func mergeDeltas(batch []model.ProfileStatsDelta) []model.ProfileStatsDelta {
	type key struct{ username, subject string }
	index := make(map[key]int, len(batch))
	out := make([]model.ProfileStatsDelta, 0, len(batch))

	for _, d := range batch {
		k := key{d.Username, d.Subject}
		if i, ok := index[k]; ok {
			out[i].Correct += d.Correct
			out[i].Total += d.Total
			continue
		}
		index[k] = len(out)
		out = append(out, d)
	}
	return out
}
