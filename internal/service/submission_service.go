package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/rs/zerolog"

	"github.com/aiquizzer/quizzer-backend/internal/ai"
	"github.com/aiquizzer/quizzer-backend/internal/grading"
	"github.com/aiquizzer/quizzer-backend/internal/model"
	"github.com/aiquizzer/quizzer-backend/internal/response"
)

type submissionStore interface {
	Create(ctx context.Context, s *model.Submission) error
	HasSubmission(ctx context.Context, quizID int64, username string) (bool, error)
	GetForUser(ctx context.Context, id int64, username string) (*model.Submission, error)
	List(ctx context.Context, f model.SubmissionFilter) ([]model.SubmissionSummary, int, error)
}

type quizReader interface {
	GetWithQuestions(ctx context.Context, id int64) (*model.Quiz, error)
}

type statsQueue interface {
	Enqueue(ctx context.Context, d model.ProfileStatsDelta) error
}

type submissionNotifier interface {
	NotifySubmission(ctx context.Context, u model.LeaderboardUpdate)
}

// SubmissionService grades attempts and serves their history and reviews.
type SubmissionService struct {
	submissions submissionStore
	quizzes     quizReader
	stats       statsQueue
	notifier    submissionNotifier
	gen         Generator
	log         zerolog.Logger
}

// NewSubmissionService creates a new SubmissionService.
func NewSubmissionService(
	submissions submissionStore,
	quizzes quizReader,
	stats statsQueue,
	notifier submissionNotifier,
	gen Generator,
	log zerolog.Logger,
) *SubmissionService {
	return &SubmissionService{
		submissions: submissions,
		quizzes:     quizzes,
		stats:       stats,
		notifier:    notifier,
		gen:         gen,
		log:         log.With().Str("component", "submission_service").Logger(),
	}
}

// Submit grades answers against the quiz and stores one new submission. When
// requireRetry is set the user must already have submitted this quiz.
func (s *SubmissionService) Submit(ctx context.Context, username string, quizID int64, req model.SubmitQuizRequest, requireRetry bool) (*model.SubmissionResult, error) {
	quiz, err := s.loadQuiz(ctx, quizID)
	if err != nil {
		return nil, err
	}

	if requireRetry {
		prior, err := s.submissions.HasSubmission(ctx, quizID, username)
		if err != nil {
			return nil, fmt.Errorf("check prior submission: %w", err)
		}
		if !prior {
			return nil, ErrNoPriorSubmission
		}
	}

	graded := grading.Grade(quiz.MaxScore, quiz.Questions, req.Answers)

	sub := &model.Submission{
		QuizID:   quiz.ID,
		Username: username,
		Answers:  graded.Answers,
		Results:  graded.Outcomes,
		Score:    graded.Score,
		MaxScore: quiz.MaxScore,
	}
	if err := s.submissions.Create(ctx, sub); err != nil {
		return nil, fmt.Errorf("store submission: %w", err)
	}

	s.afterSubmit(ctx, quiz, sub, graded)

	return &model.SubmissionResult{
		SubmissionID:   sub.ID,
		QuizID:         quiz.ID,
		Score:          sub.Score,
		MaxScore:       sub.MaxScore,
		CorrectCount:   graded.CorrectCount,
		TotalQuestions: graded.TotalQuestions,
		IsRetry:        sub.IsRetry,
		SubmittedAt:    sub.SubmittedAt,
		Breakdown:      grading.Review(sub.Results, grading.QuestionTexts(quiz.Questions)),
	}, nil
}

// afterSubmit runs the side effects of a stored submission. Failures are logged only.
func (s *SubmissionService) afterSubmit(ctx context.Context, quiz *model.Quiz, sub *model.Submission, graded grading.Result) {
	if graded.TotalQuestions > 0 {
		delta := model.ProfileStatsDelta{
			Username: sub.Username,
			Subject:  model.NormalizeSubject(quiz.Subject),
			Correct:  graded.CorrectCount,
			Total:    graded.TotalQuestions,
		}
		if err := s.stats.Enqueue(ctx, delta); err != nil {
			s.log.Error().Err(err).Int64("submission_id", sub.ID).Msg("Failed to enqueue profile stats")
		}
	}

	s.notifier.NotifySubmission(ctx, model.LeaderboardUpdate{
		QuizID:      quiz.ID,
		Subject:     quiz.Subject,
		Grade:       quiz.Grade,
		Username:    sub.Username,
		Score:       sub.Score,
		MaxScore:    sub.MaxScore,
		SubmittedAt: sub.SubmittedAt,
	})

	s.log.Info().
		Int64("submission_id", sub.ID).
		Int64("quiz_id", quiz.ID).
		Str("username", sub.Username).
		Int("score", sub.Score).
		Int("max_score", sub.MaxScore).
		Bool("is_retry", sub.IsRetry).
		Msg("Submission graded")
}

// Review rebuilds the graded view of a stored submission owned by username.
func (s *SubmissionService) Review(ctx context.Context, username string, id int64) (*model.SubmissionResult, error) {
	sub, err := s.loadSubmission(ctx, username, id)
	if err != nil {
		return nil, err
	}

	texts := map[int64]string{}
	total := 0
	quiz, err := s.quizzes.GetWithQuestions(ctx, sub.QuizID)
	switch {
	case err == nil:
		texts = grading.QuestionTexts(quiz.Questions)
		total = len(quiz.Questions)
	case !errors.Is(err, pgx.ErrNoRows):
		return nil, fmt.Errorf("get quiz: %w", err)
	}

	return &model.SubmissionResult{
		SubmissionID:   sub.ID,
		QuizID:         sub.QuizID,
		Score:          sub.Score,
		MaxScore:       sub.MaxScore,
		CorrectCount:   sub.CorrectCount(),
		TotalQuestions: total,
		IsRetry:        sub.IsRetry,
		SubmittedAt:    sub.SubmittedAt,
		Breakdown:      grading.Review(sub.Results, texts),
	}, nil
}

// History returns a page of the user's submissions, newest first.
func (s *SubmissionService) History(ctx context.Context, f model.SubmissionFilter) ([]model.SubmissionSummary, *response.Pagination, error) {
	if f.Page < 1 {
		f.Page = 1
	}
	if f.PerPage < 1 {
		f.PerPage = 20
	}
	if f.PerPage > 100 {
		f.PerPage = 100
	}

	items, total, err := s.submissions.List(ctx, f)
	if err != nil {
		return nil, nil, fmt.Errorf("list submissions: %w", err)
	}
	if items == nil {
		items = []model.SubmissionSummary{}
	}

	return items, response.NewPagination(f.Page, f.PerPage, total), nil
}

const unansweredMarker = "(no answer)"

// Suggestions asks the AI for study tips based on the submission's mistakes.
func (s *SubmissionService) Suggestions(ctx context.Context, username string, id int64) (*model.SuggestionsResponse, error) {
	sub, err := s.loadSubmission(ctx, username, id)
	if err != nil {
		return nil, err
	}
	quiz, err := s.loadQuiz(ctx, sub.QuizID)
	if err != nil {
		return nil, err
	}

	texts := grading.QuestionTexts(quiz.Questions)
	data := ai.SuggestionsPromptData{
		Subject:  quiz.Subject,
		Grade:    quiz.Grade,
		Score:    sub.Score,
		MaxScore: sub.MaxScore,
	}
	answered := make(map[int64]bool, len(sub.Results))
	for _, o := range sub.Results {
		answered[o.QuestionID] = true
		if o.IsCorrect {
			continue
		}
		text, ok := texts[o.QuestionID]
		if !ok {
			text = grading.MissingQuestionText
		}
		data.Mistakes = append(data.Mistakes, ai.Mistake{
			Question:      text,
			UserAnswer:    strings.TrimSpace(o.UserAnswer),
			CorrectAnswer: o.CorrectAnswer,
		})
	}
	// Unanswered questions count as wrong.
	for _, q := range quiz.Questions {
		if answered[q.ID] {
			continue
		}
		data.Mistakes = append(data.Mistakes, ai.Mistake{
			Question:      q.Text,
			UserAnswer:    unansweredMarker,
			CorrectAnswer: q.CorrectAnswer,
		})
	}

	prompt, err := s.gen.Prompts().Render(ai.PromptSuggestions, data)
	if err != nil {
		return nil, err
	}
	text, err := s.gen.GenerateText(ctx, prompt)
	if err != nil {
		return nil, mapAIError(err)
	}
	return &model.SuggestionsResponse{SubmissionID: sub.ID, Suggestions: text}, nil
}

func (s *SubmissionService) loadQuiz(ctx context.Context, id int64) (*model.Quiz, error) {
	quiz, err := s.quizzes.GetWithQuestions(ctx, id)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrQuizNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get quiz: %w", err)
	}
	return quiz, nil
}

func (s *SubmissionService) loadSubmission(ctx context.Context, username string, id int64) (*model.Submission, error) {
	sub, err := s.submissions.GetForUser(ctx, id, username)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrSubmissionNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get submission: %w", err)
	}
	return sub, nil
}
