package repository

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/aiquizzer/quizzer-backend/internal/model"
)

// QuizRepository handles quiz and question data access.
type QuizRepository struct {
	pool *pgxpool.Pool
}

// NewQuizRepository creates a new QuizRepository.
func NewQuizRepository(pool *pgxpool.Pool) *QuizRepository {
	return &QuizRepository{pool: pool}
}

// CreateWithQuestions inserts a quiz and all of its questions in one transaction.
// On success the IDs and timestamps of q and q.Questions are filled in.
func (r *QuizRepository) CreateWithQuestions(ctx context.Context, q *model.Quiz) error {
	return withTx(ctx, r.pool, func(tx pgx.Tx) error {
		err := tx.QueryRow(ctx,
			`INSERT INTO quizzes (title, subject, grade, difficulty, max_score, created_by)
			 VALUES ($1, $2, $3, $4, $5, $6)
			 RETURNING id, created_at`,
			q.Title, q.Subject, q.Grade, q.Difficulty, q.MaxScore, q.CreatedBy,
		).Scan(&q.ID, &q.CreatedAt)
		if err != nil {
			return fmt.Errorf("insert quiz: %w", err)
		}

		batch := &pgx.Batch{}
		for i := range q.Questions {
			qs := &q.Questions[i]
			qs.QuizID = q.ID
			qs.Position = i + 1
			batch.Queue(
				`INSERT INTO questions (quiz_id, position, text, options, correct_answer, difficulty)
				 VALUES ($1, $2, $3, $4, $5, $6)
				 RETURNING id`,
				qs.QuizID, qs.Position, qs.Text, qs.Options, qs.CorrectAnswer, qs.Difficulty,
			).QueryRow(func(row pgx.Row) error {
				return row.Scan(&qs.ID)
			})
		}
		if err := tx.SendBatch(ctx, batch).Close(); err != nil {
			return fmt.Errorf("insert questions: %w", err)
		}
		return nil
	})
}

// GetByID retrieves a quiz without its questions.
func (r *QuizRepository) GetByID(ctx context.Context, id int64) (*model.Quiz, error) {
	q := &model.Quiz{}
	err := r.pool.QueryRow(ctx,
		`SELECT id, title, subject, grade, difficulty, max_score, created_by, created_at
		 FROM quizzes WHERE id = $1`, id,
	).Scan(&q.ID, &q.Title, &q.Subject, &q.Grade, &q.Difficulty, &q.MaxScore, &q.CreatedBy, &q.CreatedAt)
	if err != nil {
		return nil, err
	}
	return q, nil
}

// GetWithQuestions retrieves a quiz and its questions ordered by position.
func (r *QuizRepository) GetWithQuestions(ctx context.Context, id int64) (*model.Quiz, error) {
	q, err := r.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	q.Questions, err = r.ListQuestions(ctx, id)
	if err != nil {
		return nil, err
	}
	return q, nil
}

// ListQuestions retrieves all questions for a given quiz, ordered by position.
func (r *QuizRepository) ListQuestions(ctx context.Context, quizID int64) ([]model.Question, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id, quiz_id, position, text, options, correct_answer, difficulty
		 FROM questions WHERE quiz_id = $1
		 ORDER BY position`, quizID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	questions := []model.Question{}
	for rows.Next() {
		var qs model.Question
		if err := rows.Scan(&qs.ID, &qs.QuizID, &qs.Position, &qs.Text, &qs.Options, &qs.CorrectAnswer, &qs.Difficulty); err != nil {
			return nil, err
		}
		questions = append(questions, qs)
	}
	return questions, rows.Err()
}

// GetQuestion retrieves one question of a quiz.
func (r *QuizRepository) GetQuestion(ctx context.Context, quizID, questionID int64) (*model.Question, error) {
	qs := &model.Question{}
	err := r.pool.QueryRow(ctx,
		`SELECT id, quiz_id, position, text, options, correct_answer, difficulty
		 FROM questions WHERE id = $1 AND quiz_id = $2`, questionID, quizID,
	).Scan(&qs.ID, &qs.QuizID, &qs.Position, &qs.Text, &qs.Options, &qs.CorrectAnswer, &qs.Difficulty)
	if err != nil {
		return nil, err
	}
	return qs, nil
}
