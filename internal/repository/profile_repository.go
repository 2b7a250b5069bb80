package repository

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/aiquizzer/quizzer-backend/internal/model"
)

// incrementProfileSQL adds a delta to one subject's counters. ON CONFLICT takes
// the row lock, so concurrent increments never lose updates.
const incrementProfileSQL = `INSERT INTO user_profiles (username, performance)
	VALUES ($1, jsonb_build_object($2::text, jsonb_build_object('correct', $3::int, 'total', $4::int)))
	ON CONFLICT (username) DO UPDATE SET
		performance = user_profiles.performance || jsonb_build_object($2::text, jsonb_build_object(
			'correct', COALESCE((user_profiles.performance -> $2::text ->> 'correct')::int, 0) + $3::int,
			'total',   COALESCE((user_profiles.performance -> $2::text ->> 'total')::int, 0) + $4::int)),
		updated_at = now()`

// ProfileRepository handles user profile data access.
type ProfileRepository struct {
	pool *pgxpool.Pool
}

// NewProfileRepository creates a new ProfileRepository.
func NewProfileRepository(pool *pgxpool.Pool) *ProfileRepository {
	return &ProfileRepository{pool: pool}
}

// Get retrieves a profile. Returns pgx.ErrNoRows for users that never submitted.
func (r *ProfileRepository) Get(ctx context.Context, username string) (*model.UserProfile, error) {
	p := &model.UserProfile{}
	err := r.pool.QueryRow(ctx,
		`SELECT username, performance, created_at, updated_at
		 FROM user_profiles WHERE username = $1`, username,
	).Scan(&p.Username, &p.Performance, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return nil, err
	}
	if p.Performance == nil {
		p.Performance = map[string]model.SubjectStats{}
	}
	return p, nil
}

// Increment applies a single delta.
func (r *ProfileRepository) Increment(ctx context.Context, d model.ProfileStatsDelta) error {
	_, err := r.pool.Exec(ctx, incrementProfileSQL, d.Username, d.Subject, d.Correct, d.Total)
	return err
}

// IncrementBatch applies all deltas in one transaction.
func (r *ProfileRepository) IncrementBatch(ctx context.Context, deltas []model.ProfileStatsDelta) error {
	if len(deltas) == 0 {
		return nil
	}
	return withTx(ctx, r.pool, func(tx pgx.Tx) error {
		batch := &pgx.Batch{}
		for _, d := range deltas {
			batch.Queue(incrementProfileSQL, d.Username, d.Subject, d.Correct, d.Total)
		}
		if err := tx.SendBatch(ctx, batch).Close(); err != nil {
			return fmt.Errorf("increment profiles: %w", err)
		}
		return nil
	})
}
