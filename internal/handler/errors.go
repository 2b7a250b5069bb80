package handler

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/aiquizzer/quizzer-backend/internal/response"
	"github.com/aiquizzer/quizzer-backend/internal/service"
)

// failFromError maps service errors to HTTP responses.
func failFromError(c *gin.Context, log zerolog.Logger, err error) {
	switch {
	case errors.Is(err, service.ErrQuizNotFound):
		response.Fail(c, http.StatusNotFound, response.ErrQuizNotFound)
	case errors.Is(err, service.ErrQuestionNotFound):
		response.Fail(c, http.StatusNotFound, response.ErrQuestionNotFound)
	case errors.Is(err, service.ErrSubmissionNotFound):
		response.Fail(c, http.StatusNotFound, response.ErrSubmissionNotFound)
	case errors.Is(err, service.ErrNoPriorSubmission):
		response.Fail(c, http.StatusConflict, response.ErrNoPriorSubmission)
	case errors.Is(err, service.ErrAIUnavailable):
		log.Warn().Err(err).Msg("AI service unavailable")
		response.Fail(c, http.StatusServiceUnavailable, response.ErrAIUnavailable)
	case errors.Is(err, service.ErrAIInvalidOutput):
		log.Warn().Err(err).Msg("AI service returned invalid output")
		response.Fail(c, http.StatusServiceUnavailable, response.ErrAIInvalidOutput)
	case errors.Is(err, service.ErrInvalidCredentials):
		response.Fail(c, http.StatusUnauthorized, response.ErrInvalidCredentials)
	case errors.Is(err, service.ErrTokenExpired):
		response.Fail(c, http.StatusUnauthorized, response.ErrTokenExpired)
	case errors.Is(err, service.ErrTokenInvalid):
		response.Fail(c, http.StatusUnauthorized, response.ErrTokenInvalid)
	default:
		log.Error().Err(err).Str("path", c.FullPath()).Msg("Request failed")
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
	}
}

// paramID parses a positive int64 path parameter.
func paramID(c *gin.Context, name string) (int64, bool) {
	id, err := strconv.ParseInt(c.Param(name), 10, 64)
	if err != nil || id <= 0 {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidID)
		return 0, false
	}
	return id, true
}
