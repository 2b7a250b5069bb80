package router

import (
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/aiquizzer/quizzer-backend/internal/config"
	"github.com/aiquizzer/quizzer-backend/internal/handler"
	"github.com/aiquizzer/quizzer-backend/internal/middleware"
	"github.com/aiquizzer/quizzer-backend/internal/response"
)

const (
	loginRateLimit       = 30
	leaderboardMaxAgeSec = 10
)

// Handlers groups all handler instances for route setup.
type Handlers struct {
	Auth        *handler.AuthHandler
	Quiz        *handler.QuizHandler
	Submission  *handler.SubmissionHandler
	Leaderboard *handler.LeaderboardHandler
	Profile     *handler.ProfileHandler
	WS          *handler.WSHandler
	System      *handler.SystemHandler
}

// SetupRouter configures all Gin route groups with appropriate middlewares.
func SetupRouter(
	auth middleware.TokenValidator,
	handlers *Handlers,
	rdb *redis.Client,
	cfg *config.Config,
	log zerolog.Logger,
) *gin.Engine {
	gin.SetMode(cfg.GinMode)
	router := gin.New()
	router.Use(gin.Recovery())

	// ─── CORS ──────────────────────────────────────────────────────────
	// If AllowedOrigins is set in config, restrict to that list;
	// otherwise allow all (*) so dev works without extra config.
	corsConfig := cors.DefaultConfig()
	if len(cfg.AllowedOrigins) > 0 {
		corsConfig.AllowOrigins = cfg.AllowedOrigins
	} else {
		corsConfig.AllowAllOrigins = true
	}
	corsConfig.AllowMethods = []string{"GET", "POST", "OPTIONS"}
	corsConfig.AllowHeaders = []string{"Origin", "Content-Type", "Authorization", "X-Request-ID"}
	corsConfig.ExposeHeaders = []string{"X-Request-ID", "X-RateLimit-Limit", "X-RateLimit-Remaining", "Retry-After"}
	corsConfig.MaxAge = 12 * time.Hour
	router.Use(cors.New(corsConfig))

	// Apply request ID middleware globally so every response includes metadata.
	router.Use(response.RequestIDMiddleware())
	router.Use(middleware.RequestLogger(log))
	router.Use(middleware.Brotli())

	router.GET("/health", handlers.System.Health)

	loginLimiter := middleware.NewRateLimiter(rdb, "login", loginRateLimit, time.Minute, log)
	aiLimiter := middleware.NewRateLimiter(rdb, "ai", cfg.AIRateLimit, time.Minute, log)
	requireJWT := middleware.RequireJWT(auth)

	// ─── 1. Auth Group ─────────────────────────────────────────────────
	authAPI := router.Group("/api/v1/auth")
	{
		authAPI.POST("/login", loginLimiter.Middleware(), handlers.Auth.Login)
		authAPI.GET("/me", requireJWT, handlers.Auth.Me)
		authAPI.POST("/logout", requireJWT, handlers.Auth.Logout)
	}

	// ─── 2. Authenticated API ──────────────────────────────────────────
	api := router.Group("/api/v1")
	api.Use(requireJWT)
	{
		quizzes := api.Group("/quizzes")
		quizzes.POST("/generate", aiLimiter.Middleware(), handlers.Quiz.Generate)
		quizzes.GET("/:id", handlers.Quiz.Get)
		quizzes.GET("/:id/questions/:question_id/hint", aiLimiter.Middleware(), handlers.Quiz.Hint)
		quizzes.POST("/:id/submit", handlers.Submission.Submit)
		quizzes.POST("/:id/retry", handlers.Submission.Retry)

		submissions := api.Group("/submissions")
		submissions.GET("", handlers.Submission.History)
		submissions.GET("/:id", handlers.Submission.Review)
		submissions.GET("/:id/suggestions", aiLimiter.Middleware(), handlers.Submission.Suggestions)

		api.GET("/leaderboard", middleware.CacheControl(leaderboardMaxAgeSec), handlers.Leaderboard.Top)
		api.GET("/profile", handlers.Profile.Get)
		api.GET("/system/metrics", handlers.System.SystemMetricsSSE)
	}

	// ─── 3. WebSocket Group ────────────────────────────────────────────
	ws := router.Group("/ws/v1")
	ws.Use(middleware.RequireWSAuth(auth))
	{
		ws.GET("/leaderboard", handlers.WS.LeaderboardStream)
	}

	return router
}
