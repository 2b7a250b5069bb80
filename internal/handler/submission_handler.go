package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/aiquizzer/quizzer-backend/internal/middleware"
	"github.com/aiquizzer/quizzer-backend/internal/model"
	"github.com/aiquizzer/quizzer-backend/internal/response"
	"github.com/aiquizzer/quizzer-backend/internal/validator"
)

type submissionService interface {
	Submit(ctx context.Context, username string, quizID int64, req model.SubmitQuizRequest, requireRetry bool) (*model.SubmissionResult, error)
	Review(ctx context.Context, username string, id int64) (*model.SubmissionResult, error)
	History(ctx context.Context, f model.SubmissionFilter) ([]model.SubmissionSummary, *response.Pagination, error)
	Suggestions(ctx context.Context, username string, id int64) (*model.SuggestionsResponse, error)
}

// SubmissionHandler serves quiz submissions, history and reviews.
type SubmissionHandler struct {
	submissionService submissionService
	log               zerolog.Logger
}

// NewSubmissionHandler creates a new SubmissionHandler.
func NewSubmissionHandler(submissionService submissionService, log zerolog.Logger) *SubmissionHandler {
	return &SubmissionHandler{
		submissionService: submissionService,
		log:               log.With().Str("component", "submission_handler").Logger(),
	}
}

// Submit godoc
// POST /api/v1/quizzes/:id/submit
// Grades the answers and stores a new submission.
func (h *SubmissionHandler) Submit(c *gin.Context) {
	h.submit(c, false)
}

// Retry godoc
// POST /api/v1/quizzes/:id/retry
// Same as Submit, but requires an earlier submission of the quiz.
func (h *SubmissionHandler) Retry(c *gin.Context) {
	h.submit(c, true)
}

func (h *SubmissionHandler) submit(c *gin.Context, requireRetry bool) {
	quizID, ok := paramID(c, "id")
	if !ok {
		return
	}

	var req model.SubmitQuizRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	username := middleware.GetUsername(c)
	result, err := h.submissionService.Submit(c.Request.Context(), username, quizID, req, requireRetry)
	if err != nil {
		failFromError(c, h.log, err)
		return
	}

	response.Success(c, http.StatusCreated, result)
}

// History godoc
// GET /api/v1/submissions
// Lists the caller's submissions, newest first, with optional filters.
func (h *SubmissionHandler) History(c *gin.Context) {
	q := newQueryParser(c)
	filter := model.SubmissionFilter{
		Username: middleware.GetUsername(c),
		QuizID:   q.Int64("quiz_id"),
		Subject:  q.String("subject"),
		Grade:    q.Int("grade", 1),
		MinScore: q.Int("min_score", 0),
		MaxScore: q.Int("max_score", 0),
		From:     q.Time("from", false),
		To:       q.Time("to", true),
	}
	if page := q.Int("page", 1); page != nil {
		filter.Page = *page
	}
	if perPage := q.Int("per_page", 1); perPage != nil {
		filter.PerPage = *perPage
	}
	if fields := q.Errors(); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	items, pagination, err := h.submissionService.History(c.Request.Context(), filter)
	if err != nil {
		failFromError(c, h.log, err)
		return
	}

	response.SuccessWithPagination(c, http.StatusOK, items, pagination)
}

// Review godoc
// GET /api/v1/submissions/:id
// Returns the stored per-question breakdown of one submission.
func (h *SubmissionHandler) Review(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}

	result, err := h.submissionService.Review(c.Request.Context(), middleware.GetUsername(c), id)
	if err != nil {
		failFromError(c, h.log, err)
		return
	}

	response.Success(c, http.StatusOK, result)
}

// Suggestions godoc
// GET /api/v1/submissions/:id/suggestions
// Asks the AI for improvement tips based on the submission's mistakes.
func (h *SubmissionHandler) Suggestions(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}

	resp, err := h.submissionService.Suggestions(c.Request.Context(), middleware.GetUsername(c), id)
	if err != nil {
		failFromError(c, h.log, err)
		return
	}

	response.Success(c, http.StatusOK, resp)
}
