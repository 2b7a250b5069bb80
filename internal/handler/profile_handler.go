package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/aiquizzer/quizzer-backend/internal/middleware"
	"github.com/aiquizzer/quizzer-backend/internal/model"
	"github.com/aiquizzer/quizzer-backend/internal/response"
)

type profileService interface {
	Get(ctx context.Context, username string) (*model.ProfileView, error)
}

// ProfileHandler serves the adaptive difficulty profile.
type ProfileHandler struct {
	profileService profileService
	log            zerolog.Logger
}

// NewProfileHandler creates a new ProfileHandler.
func NewProfileHandler(profileService profileService, log zerolog.Logger) *ProfileHandler {
	return &ProfileHandler{
		profileService: profileService,
		log:            log.With().Str("component", "profile_handler").Logger(),
	}
}

// Get godoc
// GET /api/v1/profile
// Returns per-subject performance and the recommended difficulty for each.
func (h *ProfileHandler) Get(c *gin.Context) {
	view, err := h.profileService.Get(c.Request.Context(), middleware.GetUsername(c))
	if err != nil {
		failFromError(c, h.log, err)
		return
	}

	response.Success(c, http.StatusOK, view)
}
