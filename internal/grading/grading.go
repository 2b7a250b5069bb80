// Package grading scores quiz submissions and rebuilds review views from stored outcomes.
// Nothing in this package performs I/O.
package grading

import (
	"strconv"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/aiquizzer/quizzer-backend/internal/model"
)

// Result is the outcome of grading one submission.
type Result struct {
	Score          int
	MaxScore       int
	CorrectCount   int
	TotalQuestions int
	// Answers holds the effective submitted text per question id (last one wins).
	Answers  map[string]string
	Outcomes []model.GradedOutcome
}

// Grade scores answers against the quiz questions. Each question is worth
// maxScore/n points; the total is rounded half-up and clamped to [0, maxScore].
// Answers for question ids outside the quiz are ignored. When the same question
// id appears more than once, the last occurrence wins.
func Grade(maxScore int, questions []model.Question, answers []model.SubmittedAnswer) Result {
	if maxScore < 0 {
		maxScore = 0
	}
	res := Result{
		MaxScore:       maxScore,
		TotalQuestions: len(questions),
		Answers:        make(map[string]string),
		Outcomes:       []model.GradedOutcome{},
	}
	if len(questions) == 0 {
		return res
	}

	known := make(map[int64]struct{}, len(questions))
	for i := range questions {
		known[questions[i].ID] = struct{}{}
	}

	effective := make(map[int64]string, len(answers))
	for _, a := range answers {
		if _, ok := known[a.QuestionID]; !ok {
			continue
		}
		effective[a.QuestionID] = a.Answer
	}

	for i := range questions {
		q := &questions[i]
		submitted, ok := effective[q.ID]
		if !ok {
			continue
		}
		correct := AnswersMatch(submitted, q.CorrectAnswer)
		if correct {
			res.CorrectCount++
		}
		res.Answers[strconv.FormatInt(q.ID, 10)] = submitted
		res.Outcomes = append(res.Outcomes, model.GradedOutcome{
			QuestionID:    q.ID,
			UserAnswer:    submitted,
			CorrectAnswer: q.CorrectAnswer,
			IsCorrect:     correct,
		})
	}

	res.Score = Score(maxScore, res.CorrectCount, len(questions))
	return res
}

// Score returns round-half-up(maxScore*correct/total) clamped to [0, maxScore].
func Score(maxScore, correct, total int) int {
	if total <= 0 || maxScore <= 0 || correct <= 0 {
		return 0
	}
	raw := decimal.NewFromInt(int64(maxScore)).
		Mul(decimal.NewFromInt(int64(correct))).
		Div(decimal.NewFromInt(int64(total)))

	score := int(raw.Round(0).IntPart())
	if score < 0 {
		return 0
	}
	if score > maxScore {
		return maxScore
	}
	return score
}

// AnswersMatch compares a submitted answer with the key, ignoring case and
// surrounding whitespace.
func AnswersMatch(submitted, key string) bool {
	return strings.EqualFold(strings.TrimSpace(submitted), strings.TrimSpace(key))
}
