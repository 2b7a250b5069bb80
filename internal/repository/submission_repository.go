package repository

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/aiquizzer/quizzer-backend/internal/model"
)

// SubmissionRepository handles submission data access.
type SubmissionRepository struct {
	pool *pgxpool.Pool
}

// NewSubmissionRepository creates a new SubmissionRepository.
func NewSubmissionRepository(pool *pgxpool.Pool) *SubmissionRepository {
	return &SubmissionRepository{pool: pool}
}

// Create inserts a graded submission. is_retry is derived from earlier rows for
// the same (quiz, user); an advisory lock on that pair serializes concurrent
// first attempts so exactly one of them is the original.
func (r *SubmissionRepository) Create(ctx context.Context, s *model.Submission) error {
	return withTx(ctx, r.pool, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx,
			`SELECT pg_advisory_xact_lock(hashtextextended($1::text || ':' || $2::bigint::text, 0))`,
			s.Username, s.QuizID,
		); err != nil {
			return fmt.Errorf("lock submission: %w", err)
		}

		err := tx.QueryRow(ctx,
			`INSERT INTO submissions (quiz_id, username, answers, results, score, max_score, is_retry)
			 SELECT $1, $2, $3, $4, $5, $6,
			        EXISTS (SELECT 1 FROM submissions WHERE quiz_id = $1 AND username = $2)
			 RETURNING id, is_retry, submitted_at`,
			s.QuizID, s.Username, s.Answers, s.Results, s.Score, s.MaxScore,
		).Scan(&s.ID, &s.IsRetry, &s.SubmittedAt)
		if err != nil {
			return fmt.Errorf("insert submission: %w", err)
		}
		return nil
	})
}

// HasSubmission reports whether the user already submitted the quiz.
func (r *SubmissionRepository) HasSubmission(ctx context.Context, quizID int64, username string) (bool, error) {
	var exists bool
	err := r.pool.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM submissions WHERE quiz_id = $1 AND username = $2)`,
		quizID, username,
	).Scan(&exists)
	return exists, err
}

// GetForUser retrieves a submission owned by username. Submissions of other
// users are reported as pgx.ErrNoRows.
func (r *SubmissionRepository) GetForUser(ctx context.Context, id int64, username string) (*model.Submission, error) {
	s := &model.Submission{}
	err := r.pool.QueryRow(ctx,
		`SELECT id, quiz_id, username, answers, results, score, max_score, is_retry, submitted_at
		 FROM submissions WHERE id = $1 AND username = $2`, id, username,
	).Scan(&s.ID, &s.QuizID, &s.Username, &s.Answers, &s.Results, &s.Score, &s.MaxScore, &s.IsRetry, &s.SubmittedAt)
	if err != nil {
		return nil, err
	}
	return s, nil
}

// List retrieves a page of the user's submission history, newest first.
func (r *SubmissionRepository) List(ctx context.Context, f model.SubmissionFilter) ([]model.SubmissionSummary, int, error) {
	where, args := submissionPredicates(f)

	var total int
	if err := r.pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM submissions s JOIN quizzes q ON q.id = s.quiz_id`+where, args...,
	).Scan(&total); err != nil {
		return nil, 0, err
	}

	argIdx := len(args) + 1
	query := `SELECT s.id, s.quiz_id, q.title, q.subject, q.grade, s.score, s.max_score, s.is_retry, s.submitted_at
		 FROM submissions s JOIN quizzes q ON q.id = s.quiz_id` + where +
		` ORDER BY s.submitted_at DESC, s.id DESC LIMIT $` + strconv.Itoa(argIdx) + ` OFFSET $` + strconv.Itoa(argIdx+1)
	args = append(args, f.PerPage, (f.Page-1)*f.PerPage)

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	items := []model.SubmissionSummary{}
	for rows.Next() {
		var it model.SubmissionSummary
		if err := rows.Scan(&it.ID, &it.QuizID, &it.QuizTitle, &it.Subject, &it.Grade, &it.Score, &it.MaxScore, &it.IsRetry, &it.SubmittedAt); err != nil {
			return nil, 0, err
		}
		items = append(items, it)
	}
	return items, total, rows.Err()
}

// Leaderboard ranks users by their best score. Equal bests go to whoever
// reached that score earliest.
func (r *SubmissionRepository) Leaderboard(ctx context.Context, f model.LeaderboardFilter) ([]model.LeaderboardEntry, error) {
	var conds []string
	var args []interface{}
	add := func(cond string, v interface{}) {
		args = append(args, v)
		conds = append(conds, strings.Replace(cond, "?", "$"+strconv.Itoa(len(args)), 1))
	}
	if f.Subject != "" {
		add("lower(q.subject) = lower(?)", f.Subject)
	}
	if f.Grade != nil {
		add("q.grade = ?", *f.Grade)
	}
	if f.QuizID != nil {
		add("s.quiz_id = ?", *f.QuizID)
	}
	where := ""
	if len(conds) > 0 {
		where = " WHERE " + strings.Join(conds, " AND ")
	}

	args = append(args, f.Limit)
	query := `WITH scoped AS (
			SELECT s.username, s.score, s.submitted_at,
				ROW_NUMBER() OVER (PARTITION BY s.username ORDER BY s.score DESC, s.submitted_at ASC) AS rn,
				COUNT(*) OVER (PARTITION BY s.username) AS attempts,
				MAX(s.submitted_at) OVER (PARTITION BY s.username) AS last_at
			FROM submissions s JOIN quizzes q ON q.id = s.quiz_id` + where + `
		)
		SELECT username, score, attempts, last_at FROM scoped
		WHERE rn = 1
		ORDER BY score DESC, submitted_at ASC, username ASC
		LIMIT $` + strconv.Itoa(len(args))

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	entries := []model.LeaderboardEntry{}
	for rows.Next() {
		var e model.LeaderboardEntry
		if err := rows.Scan(&e.Username, &e.BestScore, &e.Attempts, &e.LastSubmittedAt); err != nil {
			return nil, err
		}
		e.Rank = len(entries) + 1
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

func submissionPredicates(f model.SubmissionFilter) (string, []interface{}) {
	conds := []string{"s.username = $1"}
	args := []interface{}{f.Username}
	add := func(cond string, v interface{}) {
		args = append(args, v)
		conds = append(conds, strings.Replace(cond, "?", "$"+strconv.Itoa(len(args)), 1))
	}

	if f.QuizID != nil {
		add("s.quiz_id = ?", *f.QuizID)
	}
	if f.Subject != "" {
		add("lower(q.subject) = lower(?)", f.Subject)
	}
	if f.Grade != nil {
		add("q.grade = ?", *f.Grade)
	}
	if f.MinScore != nil {
		add("s.score >= ?", *f.MinScore)
	}
	if f.MaxScore != nil {
		add("s.score <= ?", *f.MaxScore)
	}
	if f.From != nil {
		add("s.submitted_at >= ?", *f.From)
	}
	if f.To != nil {
		add("s.submitted_at <= ?", *f.To)
	}
	return " WHERE " + strings.Join(conds, " AND "), args
}
