package model

import (
	"strings"
	"time"
)

// SubjectStats counts graded answers for one subject.
type SubjectStats struct {
	Correct int `json:"correct"`
	Total   int `json:"total"`
}

// SuccessRate returns correct/total, or 0 when nothing has been graded.
func (s SubjectStats) SuccessRate() float64 {
	if s.Total <= 0 {
		return 0
	}
	return float64(s.Correct) / float64(s.Total)
}

// UserProfile holds per-subject performance used for adaptive difficulty.
type UserProfile struct {
	Username    string                  `json:"username"`
	Performance map[string]SubjectStats `json:"performance"`
	CreatedAt   time.Time               `json:"created_at"`
	UpdatedAt   time.Time               `json:"updated_at"`
}

// SubjectPerformance is the profile view of one subject.
type SubjectPerformance struct {
	Subject               string     `json:"subject"`
	Correct               int        `json:"correct"`
	Total                 int        `json:"total"`
	SuccessRate           float64    `json:"success_rate"`
	RecommendedDifficulty Difficulty `json:"recommended_difficulty"`
}

// ProfileStatsDelta is an increment applied to one user's subject counters.
type ProfileStatsDelta struct {
	Username string `json:"username"`
	Subject  string `json:"subject"`
	Correct  int    `json:"correct"`
	Total    int    `json:"total"`
}

// ProfileView is the profile endpoint payload.
type ProfileView struct {
	Username  string               `json:"username"`
	Subjects  []SubjectPerformance `json:"subjects"`
	UpdatedAt *time.Time           `json:"updated_at,omitempty"`
}

// NormalizeSubject returns the key used for a subject in profile counters.
func NormalizeSubject(subject string) string {
	return strings.ToLower(strings.TrimSpace(subject))
}
