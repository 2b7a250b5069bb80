package model

import (
	"fmt"
	"strings"
	"time"
)

// LeaderboardEntry is one user's best result.
type LeaderboardEntry struct {
	Rank            int       `json:"rank"`
	Username        string    `json:"username"`
	BestScore       int       `json:"best_score"`
	Attempts        int       `json:"attempts"`
	LastSubmittedAt time.Time `json:"last_submitted_at"`
}

// LeaderboardFilter narrows the leaderboard aggregation.
type LeaderboardFilter struct {
	Subject string
	Grade   *int
	QuizID  *int64
	Limit   int
}

// Signature returns a stable string identifying the filter, used as a cache key suffix.
func (f LeaderboardFilter) Signature() string {
	var b strings.Builder
	fmt.Fprintf(&b, "s=%s", strings.ToLower(f.Subject))
	if f.Grade != nil {
		fmt.Fprintf(&b, "|g=%d", *f.Grade)
	}
	if f.QuizID != nil {
		fmt.Fprintf(&b, "|q=%d", *f.QuizID)
	}
	fmt.Fprintf(&b, "|l=%d", f.Limit)
	return b.String()
}

// LeaderboardUpdate is published whenever a submission lands.
type LeaderboardUpdate struct {
	QuizID      int64     `json:"quiz_id"`
	Subject     string    `json:"subject"`
	Grade       int       `json:"grade"`
	Username    string    `json:"username"`
	Score       int       `json:"score"`
	MaxScore    int       `json:"max_score"`
	SubmittedAt time.Time `json:"submitted_at"`
}
