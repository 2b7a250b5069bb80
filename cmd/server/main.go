package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"github.com/aiquizzer/quizzer-backend/internal/ai"
	"github.com/aiquizzer/quizzer-backend/internal/cache"
	"github.com/aiquizzer/quizzer-backend/internal/config"
	"github.com/aiquizzer/quizzer-backend/internal/database"
	"github.com/aiquizzer/quizzer-backend/internal/handler"
	"github.com/aiquizzer/quizzer-backend/internal/logger"
	"github.com/aiquizzer/quizzer-backend/internal/repository"
	"github.com/aiquizzer/quizzer-backend/internal/router"
	"github.com/aiquizzer/quizzer-backend/internal/service"
	"github.com/aiquizzer/quizzer-backend/internal/validator"
	"github.com/aiquizzer/quizzer-backend/internal/worker"
)

func main() {
	// ─── Load Configuration ────────────────────────────────────────────
	cfg := config.Load()

	// ─── Initialize Logger ─────────────────────────────────────────────
	log := logger.Setup(cfg.LogLevel, cfg.LogFormat)
	log.Info().
		Str("port", cfg.ServerPort).
		Str("mode", cfg.GinMode).
		Str("log_level", cfg.LogLevel).
		Str("ai_model", cfg.AIModel).
		Msg("Starting Quizzer Backend")

	// ─── Initialize Validator ──────────────────────────────────────────
	validator.Setup()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// ─── Connect to PostgreSQL ─────────────────────────────────────────
	pool, err := database.NewPostgresPool(ctx, cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to PostgreSQL")
	}
	defer pool.Close()

	// ─── Connect to Redis ──────────────────────────────────────────────
	rdb, err := database.NewRedisClient(ctx, cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to Redis")
	}
	defer rdb.Close()

	// ─── AI Client ─────────────────────────────────────────────────────
	prompts, err := ai.LoadPrompts(cfg.AIPromptsFile)
	if err != nil {
		log.Fatal().Err(err).Str("file", cfg.AIPromptsFile).Msg("Failed to load AI prompts")
	}
	aiClient := ai.NewClient(ai.Config{
		APIKey:  cfg.AIAPIKey,
		BaseURL: cfg.AIBaseURL,
		Model:   cfg.AIModel,
		Timeout: cfg.AITimeout,
	}, prompts, log)
	if cfg.AIAPIKey == "" {
		log.Warn().Msg("AI_API_KEY is not set, AI-backed routes will return 503")
	}

	// ─── Initialize Repositories ───────────────────────────────────────
	quizRepo := repository.NewQuizRepository(pool)
	submissionRepo := repository.NewSubmissionRepository(pool)
	profileRepo := repository.NewProfileRepository(pool)

	// ─── Caches & Workers ──────────────────────────────────────────────
	hintCache := cache.NewRedisHintCache(rdb, cfg.HintCacheTTL, cfg.HintCacheMaxEntries)
	leaderboardCache := cache.NewLeaderboardCache(rdb, cfg.LeaderboardCacheTTL)
	statsWorker := worker.NewProfileStatsWorker(profileRepo, rdb, log)

	// ─── Initialize Services ──────────────────────────────────────────
	authService := service.NewAuthService(cfg, rdb)
	profileService := service.NewProfileService(profileRepo, log)
	leaderboardService := service.NewLeaderboardService(submissionRepo, leaderboardCache, rdb, log)
	quizService := service.NewQuizService(quizRepo, aiClient, profileService, hintCache, log)
	submissionService := service.NewSubmissionService(submissionRepo, quizRepo, statsWorker, leaderboardService, aiClient, log)

	// ─── Initialize Handlers ──────────────────────────────────────────
	handlers := &router.Handlers{
		Auth:        handler.NewAuthHandler(authService, log),
		Quiz:        handler.NewQuizHandler(quizService, log),
		Submission:  handler.NewSubmissionHandler(submissionService, log),
		Leaderboard: handler.NewLeaderboardHandler(leaderboardService, log),
		Profile:     handler.NewProfileHandler(profileService, log),
		WS:          handler.NewWSHandler(leaderboardService, log, cfg.AllowedOrigins),
		System:      handler.NewSystemHandler(pool, rdb, log),
	}

	// ─── Start Background Workers ─────────────────────────────────────
	workerCtx, workerCancel := context.WithCancel(context.Background())
	var workers sync.WaitGroup
	workers.Add(1)
	go func() {
		defer workers.Done()
		statsWorker.Start(workerCtx)
	}()

	// ─── Setup Router ──────────────────────────────────────────────────
	r := router.SetupRouter(authService, handlers, rdb, cfg, log)

	// ─── Create HTTP Server ────────────────────────────────────────────
	srv := &http.Server{
		Addr:              ":" + cfg.ServerPort,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	// ─── Start Server in Goroutine ─────────────────────────────────────
	go func() {
		log.Info().Str("addr", ":"+cfg.ServerPort).Msg("Server listening")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("Server error")
		}
	}()

	// ─── Graceful Shutdown ─────────────────────────────────────────────
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	sig := <-quit

	log.Info().Str("signal", sig.String()).Msg("Shutting down gracefully...")

	// 1. Stop accepting new HTTP requests. AI calls can be slow, so allow their timeout.
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.AITimeout+5*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("HTTP server shutdown error")
	}

	// 2. Stop background workers; each flushes its pending batch before returning.
	workerCancel()
	workers.Wait()

	log.Info().Msg("Shutdown complete")
}

// init sets zerolog global defaults before main runs.
func init() {
	zerolog.TimeFieldFormat = time.RFC3339
}
