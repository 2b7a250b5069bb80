package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/aiquizzer/quizzer-backend/internal/model"
	"github.com/aiquizzer/quizzer-backend/internal/response"
)

type leaderboardService interface {
	Top(ctx context.Context, f model.LeaderboardFilter) ([]model.LeaderboardEntry, error)
}

// LeaderboardHandler serves the ranked leaderboard.
type LeaderboardHandler struct {
	leaderboardService leaderboardService
	log                zerolog.Logger
}

// NewLeaderboardHandler creates a new LeaderboardHandler.
func NewLeaderboardHandler(leaderboardService leaderboardService, log zerolog.Logger) *LeaderboardHandler {
	return &LeaderboardHandler{
		leaderboardService: leaderboardService,
		log:                log.With().Str("component", "leaderboard_handler").Logger(),
	}
}

// Top godoc
// GET /api/v1/leaderboard
// Returns users ranked by best score, optionally scoped by subject, grade or quiz.
func (h *LeaderboardHandler) Top(c *gin.Context) {
	q := newQueryParser(c)
	filter := leaderboardFilter(q)
	if fields := q.Errors(); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	entries, err := h.leaderboardService.Top(c.Request.Context(), filter)
	if err != nil {
		failFromError(c, h.log, err)
		return
	}

	response.Success(c, http.StatusOK, entries)
}

func leaderboardFilter(q *queryParser) model.LeaderboardFilter {
	f := model.LeaderboardFilter{
		Subject: q.String("subject"),
		Grade:   q.Int("grade", 1),
		QuizID:  q.Int64("quiz_id"),
	}
	if limit := q.Int("limit", 1); limit != nil {
		f.Limit = *limit
	}
	return f
}
