package service

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/rs/zerolog"
	"golang.org/x/sync/singleflight"

	"github.com/aiquizzer/quizzer-backend/internal/ai"
	"github.com/aiquizzer/quizzer-backend/internal/cache"
	"github.com/aiquizzer/quizzer-backend/internal/model"
)

type quizStore interface {
	CreateWithQuestions(ctx context.Context, q *model.Quiz) error
	GetWithQuestions(ctx context.Context, id int64) (*model.Quiz, error)
	GetQuestion(ctx context.Context, quizID, questionID int64) (*model.Question, error)
}

// Generator is the AI surface used by services.
type Generator interface {
	GenerateQuestions(ctx context.Context, req ai.QuestionRequest) ([]ai.GeneratedQuestion, error)
	GenerateText(ctx context.Context, prompt string) (string, error)
	Prompts() *ai.Prompts
}

type difficultyAdvisor interface {
	RecommendDifficulty(ctx context.Context, username, subject string) (model.Difficulty, error)
}

// QuizService generates quizzes and serves them with hints.
type QuizService struct {
	quizzes  quizStore
	gen      Generator
	advisor  difficultyAdvisor
	hints    cache.HintCache
	inflight singleflight.Group
	log      zerolog.Logger
}

// NewQuizService creates a new QuizService.
func NewQuizService(
	quizzes quizStore,
	gen Generator,
	advisor difficultyAdvisor,
	hints cache.HintCache,
	log zerolog.Logger,
) *QuizService {
	return &QuizService{
		quizzes: quizzes,
		gen:     gen,
		advisor: advisor,
		hints:   hints,
		log:     log.With().Str("component", "quiz_service").Logger(),
	}
}

// Generate asks the AI for questions and stores the quiz with all of them in one
// transaction. Nothing is stored when generation fails.
func (s *QuizService) Generate(ctx context.Context, username string, req model.GenerateQuizRequest) (*model.Quiz, error) {
	subject := strings.TrimSpace(req.Subject)
	difficulty, err := s.resolveDifficulty(ctx, username, subject, req.Difficulty)
	if err != nil {
		return nil, err
	}

	generated, err := s.gen.GenerateQuestions(ctx, ai.QuestionRequest{
		Subject:    subject,
		Grade:      req.Grade,
		Count:      req.TotalQuestions,
		Difficulty: difficulty,
	})
	if err != nil {
		return nil, mapAIError(err)
	}

	quiz := &model.Quiz{
		Title:      fmt.Sprintf("%s Quiz - Grade %d", subject, req.Grade),
		Subject:    subject,
		Grade:      req.Grade,
		Difficulty: difficulty,
		MaxScore:   req.MaxScore,
		CreatedBy:  username,
		Questions:  make([]model.Question, 0, len(generated)),
	}
	for _, g := range generated {
		quiz.Questions = append(quiz.Questions, model.Question{
			Text:          g.Text,
			Options:       g.Options,
			CorrectAnswer: g.CorrectAnswer,
			Difficulty:    g.Difficulty,
		})
	}

	if err := s.quizzes.CreateWithQuestions(ctx, quiz); err != nil {
		return nil, fmt.Errorf("store quiz: %w", err)
	}

	s.log.Info().
		Int64("quiz_id", quiz.ID).
		Str("username", username).
		Str("subject", subject).
		Str("difficulty", string(difficulty)).
		Int("questions", len(quiz.Questions)).
		Msg("Quiz generated")
	return quiz, nil
}

// Get returns a quiz with its questions.
func (s *QuizService) Get(ctx context.Context, id int64) (*model.Quiz, error) {
	q, err := s.quizzes.GetWithQuestions(ctx, id)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrQuizNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get quiz: %w", err)
	}
	return q, nil
}

// Hint returns a short clue for one question. Hints are cached per question and
// concurrent misses for the same question share one AI call.
func (s *QuizService) Hint(ctx context.Context, quizID, questionID int64) (*model.HintResponse, error) {
	q, err := s.quizzes.GetQuestion(ctx, quizID, questionID)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrQuestionNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get question: %w", err)
	}

	if hint, ok, err := s.hints.Get(ctx, questionID); err != nil {
		s.log.Warn().Err(err).Int64("question_id", questionID).Msg("Hint cache read failed")
	} else if ok {
		return &model.HintResponse{QuestionID: questionID, Hint: hint, Cached: true}, nil
	}

	v, err, _ := s.inflight.Do(strconv.FormatInt(questionID, 10), func() (interface{}, error) {
		prompt, err := s.gen.Prompts().Render(ai.PromptHint, ai.HintPromptData{Question: q.Text, Options: q.Options})
		if err != nil {
			return "", err
		}
		hint, err := s.gen.GenerateText(ctx, prompt)
		if err != nil {
			return "", mapAIError(err)
		}
		if err := s.hints.Set(ctx, questionID, hint); err != nil {
			s.log.Warn().Err(err).Int64("question_id", questionID).Msg("Hint cache write failed")
		}
		return hint, nil
	})
	if err != nil {
		return nil, err
	}
	return &model.HintResponse{QuestionID: questionID, Hint: v.(string)}, nil
}

func (s *QuizService) resolveDifficulty(ctx context.Context, username, subject, requested string) (model.Difficulty, error) {
	d := model.Difficulty(strings.ToLower(strings.TrimSpace(requested)))
	switch {
	case d == "":
		return model.DifficultyMedium, nil
	case d == model.DifficultyAdaptive:
		rec, err := s.advisor.RecommendDifficulty(ctx, username, subject)
		if err != nil {
			return "", fmt.Errorf("recommend difficulty: %w", err)
		}
		return rec, nil
	case d.Valid():
		return d, nil
	}
	return model.DifficultyMedium, nil
}

// mapAIError converts client errors into the service taxonomy.
func mapAIError(err error) error {
	switch {
	case errors.Is(err, ai.ErrInvalidOutput):
		return fmt.Errorf("%w: %v", ErrAIInvalidOutput, err)
	case errors.Is(err, ai.ErrUnavailable):
		return fmt.Errorf("%w: %v", ErrAIUnavailable, err)
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, context.Canceled):
		return fmt.Errorf("%w: %v", ErrAIUnavailable, err)
	}
	return err
}
