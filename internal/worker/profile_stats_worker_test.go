package worker

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/aiquizzer/quizzer-backend/internal/config"
	"github.com/aiquizzer/quizzer-backend/internal/model"
)

type fakeProfileStore struct {
	mu        sync.Mutex
	batchErr  error
	singleErr error
	batches   [][]model.ProfileStatsDelta
	singles   []model.ProfileStatsDelta
}

func (f *fakeProfileStore) IncrementBatch(_ context.Context, deltas []model.ProfileStatsDelta) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.batchErr != nil {
		return f.batchErr
	}
	f.batches = append(f.batches, append([]model.ProfileStatsDelta(nil), deltas...))
	return nil
}

func (f *fakeProfileStore) Increment(_ context.Context, d model.ProfileStatsDelta) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.singleErr != nil {
		return f.singleErr
	}
	f.singles = append(f.singles, d)
	return nil
}

func (f *fakeProfileStore) batchCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.batches)
}

func newWorker(t *testing.T, store profileIncrementer) (*ProfileStatsWorker, *miniredis.Miniredis) {
	t.Helper()
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("run miniredis: %v", err)
	}
	t.Cleanup(mr.Close)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	return NewProfileStatsWorker(store, rdb, zerolog.Nop()), mr
}

func TestMergeDeltas(t *testing.T) {
	merged := mergeDeltas([]model.ProfileStatsDelta{
		{Username: "alice", Subject: "math", Correct: 2, Total: 3},
		{Username: "bob", Subject: "math", Correct: 1, Total: 1},
		{Username: "alice", Subject: "math", Correct: 1, Total: 3},
		{Username: "alice", Subject: "science", Correct: 0, Total: 2},
	})

	if len(merged) != 3 {
		t.Fatalf("expected 3 rows, got %d", len(merged))
	}
	if merged[0].Correct != 3 || merged[0].Total != 6 {
		t.Errorf("alice/math not merged: %+v", merged[0])
	}
	if merged[1].Username != "bob" || merged[2].Subject != "science" {
		t.Errorf("order not preserved: %+v", merged)
	}
}

func TestProfileStatsWorker_FlushesQueuedDeltas(t *testing.T) {
	store := &fakeProfileStore{}
	w, _ := newWorker(t, store)
	w.batchSize = 3

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	for i := 0; i < 3; i++ {
		if err := w.Enqueue(ctx, model.ProfileStatsDelta{Username: "alice", Subject: "math", Correct: 1, Total: 2}); err != nil {
			t.Fatal(err)
		}
	}

	done := make(chan struct{})
	go func() {
		w.Start(ctx)
		close(done)
	}()

	deadline := time.Now().Add(5 * time.Second)
	for store.batchCount() == 0 && time.Now().Before(deadline) {
		time.Sleep(10 * time.Millisecond)
	}
	cancel()
	<-done

	if store.batchCount() != 1 {
		t.Fatalf("expected one batch, got %d", store.batchCount())
	}
	got := store.batches[0]
	if len(got) != 1 || got[0].Correct != 3 || got[0].Total != 6 {
		t.Errorf("unexpected merged batch %+v", got)
	}
}

func TestProfileStatsWorker_FallbackAndRequeue(t *testing.T) {
	store := &fakeProfileStore{batchErr: errors.New("db down"), singleErr: errors.New("still down")}
	w, mr := newWorker(t, store)

	w.flushSafe(context.Background(), []model.ProfileStatsDelta{
		{Username: "alice", Subject: "math", Correct: 1, Total: 1},
		{Username: "bob", Subject: "math", Correct: 0, Total: 1},
	})

	queued, err := mr.List(config.WorkerKey.ProfileStatsQueue)
	if err != nil {
		t.Fatal(err)
	}
	if len(queued) != 2 {
		t.Errorf("expected both deltas requeued, got %d", len(queued))
	}
}

func TestProfileStatsWorker_FallbackSucceeds(t *testing.T) {
	store := &fakeProfileStore{batchErr: errors.New("batch failed")}
	w, mr := newWorker(t, store)

	w.flushSafe(context.Background(), []model.ProfileStatsDelta{
		{Username: "alice", Subject: "math", Correct: 1, Total: 1},
	})

	if len(store.singles) != 1 {
		t.Errorf("expected single fallback update, got %d", len(store.singles))
	}
	if mr.Exists(config.WorkerKey.ProfileStatsQueue) {
		t.Error("nothing should be requeued when the fallback succeeds")
	}
}
