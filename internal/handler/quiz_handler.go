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

type quizService interface {
	Generate(ctx context.Context, username string, req model.GenerateQuizRequest) (*model.Quiz, error)
	Get(ctx context.Context, id int64) (*model.Quiz, error)
	Hint(ctx context.Context, quizID, questionID int64) (*model.HintResponse, error)
}

// QuizHandler serves quiz generation, retrieval and hints.
type QuizHandler struct {
	quizService quizService
	log         zerolog.Logger
}

// NewQuizHandler creates a new QuizHandler.
func NewQuizHandler(quizService quizService, log zerolog.Logger) *QuizHandler {
	return &QuizHandler{
		quizService: quizService,
		log:         log.With().Str("component", "quiz_handler").Logger(),
	}
}

// Generate godoc
// POST /api/v1/quizzes/generate
// Generates a quiz with the AI and returns it without answer keys.
func (h *QuizHandler) Generate(c *gin.Context) {
	var req model.GenerateQuizRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	quiz, err := h.quizService.Generate(c.Request.Context(), middleware.GetUsername(c), req)
	if err != nil {
		failFromError(c, h.log, err)
		return
	}

	h.log.Info().
		Int64("quiz_id", quiz.ID).
		Str("subject", quiz.Subject).
		Int("questions", len(quiz.Questions)).
		Msg("Quiz generated")
	response.Success(c, http.StatusCreated, quiz.ForUser())
}

// Get godoc
// GET /api/v1/quizzes/:id
// Returns a quiz and its questions without correct answers.
func (h *QuizHandler) Get(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}

	quiz, err := h.quizService.Get(c.Request.Context(), id)
	if err != nil {
		failFromError(c, h.log, err)
		return
	}

	response.Success(c, http.StatusOK, quiz.ForUser())
}

// Hint godoc
// GET /api/v1/quizzes/:id/questions/:question_id/hint
// Returns a hint for one question, generated once and then served from cache.
func (h *QuizHandler) Hint(c *gin.Context) {
	quizID, ok := paramID(c, "id")
	if !ok {
		return
	}
	questionID, ok := paramID(c, "question_id")
	if !ok {
		return
	}

	hint, err := h.quizService.Hint(c.Request.Context(), quizID, questionID)
	if err != nil {
		failFromError(c, h.log, err)
		return
	}

	response.Success(c, http.StatusOK, hint)
}
