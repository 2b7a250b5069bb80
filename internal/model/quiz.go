package model

import (
	"time"
)

// Difficulty tags a question or a whole quiz.
type Difficulty string

const (
	DifficultyEasy   Difficulty = "easy"
	DifficultyMedium Difficulty = "medium"
	DifficultyHard   Difficulty = "hard"
	// DifficultyAdaptive is only accepted on generation requests; it is resolved
	// from the user's profile before the quiz is created.
	DifficultyAdaptive Difficulty = "adaptive"
)

// Valid reports whether d is a concrete difficulty that can be stored.
func (d Difficulty) Valid() bool {
	switch d {
	case DifficultyEasy, DifficultyMedium, DifficultyHard:
		return true
	}
	return false
}

// Quiz is a generated, graded collection of questions with a fixed point budget.
type Quiz struct {
	ID         int64      `json:"id"`
	Title      string     `json:"title"`
	Subject    string     `json:"subject"`
	Grade      int        `json:"grade"`
	Difficulty Difficulty `json:"difficulty"`
	MaxScore   int        `json:"max_score"`
	CreatedBy  string     `json:"created_by"`
	CreatedAt  time.Time  `json:"created_at"`
	Questions  []Question `json:"questions,omitempty"`
}

// GenerateQuizRequest is the payload for generating a new quiz with the AI service.
type GenerateQuizRequest struct {
	Grade          int    `json:"grade" binding:"required,min=1,max=12"`
	Subject        string `json:"subject" binding:"required,min=2,max=100"`
	TotalQuestions int    `json:"total_questions" binding:"required,min=1,max=50"`
	MaxScore       int    `json:"max_score" binding:"required,min=1,max=1000"`
	Difficulty     string `json:"difficulty" binding:"omitempty,difficulty"`
}

// QuizForUser is the quiz payload sent to users (no correct answers).
type QuizForUser struct {
	ID         int64             `json:"id"`
	Title      string            `json:"title"`
	Subject    string            `json:"subject"`
	Grade      int               `json:"grade"`
	Difficulty Difficulty        `json:"difficulty"`
	MaxScore   int               `json:"max_score"`
	CreatedAt  time.Time         `json:"created_at"`
	Questions  []QuestionForUser `json:"questions"`
}

// ForUser strips the answer keys from the quiz.
func (q *Quiz) ForUser() QuizForUser {
	questions := make([]QuestionForUser, len(q.Questions))
	for i := range q.Questions {
		questions[i] = q.Questions[i].ForUser()
	}
	return QuizForUser{
		ID:         q.ID,
		Title:      q.Title,
		Subject:    q.Subject,
		Grade:      q.Grade,
		Difficulty: q.Difficulty,
		MaxScore:   q.MaxScore,
		CreatedAt:  q.CreatedAt,
		Questions:  questions,
	}
}
