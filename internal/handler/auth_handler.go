package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/aiquizzer/quizzer-backend/internal/middleware"
	"github.com/aiquizzer/quizzer-backend/internal/model"
	"github.com/aiquizzer/quizzer-backend/internal/response"
	"github.com/aiquizzer/quizzer-backend/internal/service"
	"github.com/aiquizzer/quizzer-backend/internal/validator"
)

type authService interface {
	Login(req model.LoginRequest) (*model.LoginResponse, error)
	Logout(ctx context.Context, claims *service.Claims) error
}

// AuthHandler handles authentication endpoints.
type AuthHandler struct {
	authService authService
	log         zerolog.Logger
}

// NewAuthHandler creates a new AuthHandler.
func NewAuthHandler(authService authService, log zerolog.Logger) *AuthHandler {
	return &AuthHandler{
		authService: authService,
		log:         log.With().Str("component", "auth_handler").Logger(),
	}
}

// Login godoc
// POST /api/v1/auth/login
// Accepts any non-empty username and password and returns a bearer JWT.
func (h *AuthHandler) Login(c *gin.Context) {
	var req model.LoginRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	resp, err := h.authService.Login(req)
	if err != nil {
		failFromError(c, h.log, err)
		return
	}

	response.Success(c, http.StatusOK, resp)
}

// Me godoc
// GET /api/v1/auth/me
// Returns the principal carried by the token.
func (h *AuthHandler) Me(c *gin.Context) {
	claims := middleware.GetClaims(c)
	if claims == nil {
		response.Fail(c, http.StatusUnauthorized, response.ErrTokenRequired)
		return
	}

	var expiresAt interface{}
	if claims.ExpiresAt != nil {
		expiresAt = claims.ExpiresAt.Time
	}
	response.Success(c, http.StatusOK, gin.H{
		"username":   claims.Username(),
		"expires_at": expiresAt,
	})
}

// Logout godoc
// POST /api/v1/auth/logout
// Revokes the current token until it expires.
func (h *AuthHandler) Logout(c *gin.Context) {
	claims := middleware.GetClaims(c)
	if claims == nil {
		response.Fail(c, http.StatusUnauthorized, response.ErrTokenRequired)
		return
	}

	if err := h.authService.Logout(c.Request.Context(), claims); err != nil {
		failFromError(c, h.log, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{})
}
