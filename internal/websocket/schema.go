package websocket

import (
	"github.com/aiquizzer/quizzer-backend/internal/model"
)

// ─── Actions (Client → Server) ──────────────────────────────────────

type Action string

const (
	ActionPing   Action = "ping"
	ActionFilter Action = "filter"
)

// RequestPayload is any message sent by the client.
type RequestPayload struct {
	Action  Action `json:"action"`
	Subject string `json:"subject,omitempty"`
	Grade   *int   `json:"grade,omitempty"`
	QuizID  *int64 `json:"quiz_id,omitempty"`
	Limit   int    `json:"limit,omitempty"`
}

// ─── Events (Server → Client) ───────────────────────────────────────

type Event string

const (
	EventError       Event = "error"
	EventPong        Event = "pong"
	EventLeaderboard Event = "leaderboard"
)

// LeaderboardEvent carries a full leaderboard snapshot for the connection's filter.
type LeaderboardEvent struct {
	Event   Event                    `json:"event"`
	Reason  string                   `json:"reason"`
	Entries []model.LeaderboardEntry `json:"entries"`
}

type ErrorResponse struct {
	Event Event  `json:"event"`
	Error string `json:"error"`
}

type PongResponse struct {
	Event Event `json:"event"`
}
