package model

import (
	"time"
)

// GradedOutcome is the stored per-question result of one grading call.
type GradedOutcome struct {
	QuestionID    int64  `json:"question_id"`
	UserAnswer    string `json:"user_answer"`
	CorrectAnswer string `json:"correct_answer"`
	IsCorrect     bool   `json:"is_correct"`
}

// Submission is one graded attempt at a quiz by one user. Rows are never updated.
type Submission struct {
	ID          int64             `json:"id"`
	QuizID      int64             `json:"quiz_id"`
	Username    string            `json:"username"`
	Answers     map[string]string `json:"answers"`
	Results     []GradedOutcome   `json:"results"`
	Score       int               `json:"score"`
	MaxScore    int               `json:"max_score"`
	IsRetry     bool              `json:"is_retry"`
	SubmittedAt time.Time         `json:"submitted_at"`
}

// CorrectCount returns the number of correct outcomes.
func (s *Submission) CorrectCount() int {
	n := 0
	for _, r := range s.Results {
		if r.IsCorrect {
			n++
		}
	}
	return n
}

// SubmittedAnswer is one (question_id, user_text) pair of a submission.
type SubmittedAnswer struct {
	QuestionID int64  `json:"question_id" binding:"required"`
	Answer     string `json:"answer" binding:"max=500"`
}

// SubmitQuizRequest is the payload for grading a quiz attempt.
type SubmitQuizRequest struct {
	Answers []SubmittedAnswer `json:"answers" binding:"dive"`
}

// ReviewItem is the human-readable comparison for one graded question.
type ReviewItem struct {
	QuestionID    int64  `json:"question_id"`
	QuestionText  string `json:"question_text"`
	UserAnswer    string `json:"user_answer"`
	CorrectAnswer string `json:"correct_answer"`
	IsCorrect     bool   `json:"is_correct"`
}

// SubmissionResult is the graded result returned by submit and review.
type SubmissionResult struct {
	SubmissionID   int64        `json:"submission_id"`
	QuizID         int64        `json:"quiz_id"`
	Score          int          `json:"score"`
	MaxScore       int          `json:"max_score"`
	CorrectCount   int          `json:"correct_count"`
	TotalQuestions int          `json:"total_questions"`
	IsRetry        bool         `json:"is_retry"`
	SubmittedAt    time.Time    `json:"submitted_at"`
	Breakdown      []ReviewItem `json:"breakdown"`
}

// SubmissionSummary is a history row joined with its quiz.
type SubmissionSummary struct {
	ID          int64     `json:"id"`
	QuizID      int64     `json:"quiz_id"`
	QuizTitle   string    `json:"quiz_title"`
	Subject     string    `json:"subject"`
	Grade       int       `json:"grade"`
	Score       int       `json:"score"`
	MaxScore    int       `json:"max_score"`
	IsRetry     bool      `json:"is_retry"`
	SubmittedAt time.Time `json:"submitted_at"`
}

// SubmissionFilter narrows a user's submission history. Nil fields are not applied.
type SubmissionFilter struct {
	Username string
	QuizID   *int64
	Subject  string
	Grade    *int
	MinScore *int
	MaxScore *int
	From     *time.Time
	To       *time.Time
	Page     int
	PerPage  int
}

// SuggestionsResponse carries AI improvement tips for a submission.
type SuggestionsResponse struct {
	SubmissionID int64  `json:"submission_id"`
	Suggestions  string `json:"suggestions"`
}
