package grading

import (
	"strings"

	"github.com/aiquizzer/quizzer-backend/internal/model"
)

// MissingQuestionText is shown when a stored outcome refers to a question that no longer resolves.
const MissingQuestionText = "question text not found"

// Review projects stored outcomes into display rows. Correctness flags are
// copied as recorded at grading time and never recomputed.
func Review(outcomes []model.GradedOutcome, questionText map[int64]string) []model.ReviewItem {
	items := make([]model.ReviewItem, 0, len(outcomes))
	for _, o := range outcomes {
		text, ok := questionText[o.QuestionID]
		if !ok {
			text = MissingQuestionText
		}
		items = append(items, model.ReviewItem{
			QuestionID:    o.QuestionID,
			QuestionText:  text,
			UserAnswer:    strings.ToLower(strings.TrimSpace(o.UserAnswer)),
			CorrectAnswer: o.CorrectAnswer,
			IsCorrect:     o.IsCorrect,
		})
	}
	return items
}

// QuestionTexts indexes question text by id.
func QuestionTexts(questions []model.Question) map[int64]string {
	m := make(map[int64]string, len(questions))
	for i := range questions {
		m[questions[i].ID] = questions[i].Text
	}
	return m
}
