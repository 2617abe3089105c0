package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/yungbote/doubtclear-backend/internal/clients/redis"
	"github.com/yungbote/doubtclear-backend/internal/db"
	"github.com/yungbote/doubtclear-backend/internal/handlers"
	"github.com/yungbote/doubtclear-backend/internal/logger"
	"github.com/yungbote/doubtclear-backend/internal/middleware"
	"github.com/yungbote/doubtclear-backend/internal/observability"
	"github.com/yungbote/doubtclear-backend/internal/repos"
	"github.com/yungbote/doubtclear-backend/internal/server"
	"github.com/yungbote/doubtclear-backend/internal/services"
	"github.com/yungbote/doubtclear-backend/internal/utils"
)

func main() {
	_ = godotenv.Load()

	// Logger
	logMode := os.Getenv("LOG_MODE")
	if logMode == "" {
		logMode = "development"
	}
	log, err := logger.New(logMode)
	if err != nil {
		fmt.Printf("Failed to init logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	// Tracing (no-op unless OTEL_ENABLED)
	if otelShutdown := observability.Init(context.Background(), log); otelShutdown != nil {
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := otelShutdown(shutdownCtx); err != nil {
				log.Warn("Trace shutdown failed", "error", err)
			}
		}()
	}

	// Postgres
	postgresService, err := db.NewPostgresService(log)
	if err != nil {
		log.Fatal("Postgres init failed", "error", err)
	}
	if err = postgresService.AutoMigrateAll(); err != nil {
		log.Warn("Postgres auto migration failed", "error", err)
	}
	thePG := postgresService.DB()

	// Redis (optional; leaderboard snapshots only)
	redisClient, err := redis.New(log)
	if err != nil {
		log.Warn("Redis unavailable, leaderboard cache disabled", "error", err)
		redisClient = nil
	}

	// Repos
	log.Info("Setting up Repos from main...")
	userProfileRepo := repos.NewUserProfileRepo(thePG, log)
	courseRepo := repos.NewCourseRepo(thePG, log)
	questionRepo := repos.NewQuestionRepo(thePG, log)
	answerRepo := repos.NewAnswerRepo(thePG, log)
	voteRepo := repos.NewAnswerVoteRepo(thePG, log)
	bookmarkRepo := repos.NewQuestionBookmarkRepo(thePG, log)
	pointEventRepo := repos.NewPointEventRepo(thePG, log)

	// Services
	log.Info("Setting up Services from main...")
	authService := services.NewAuthService(thePG, log, userProfileRepo)
	geminiClient := services.NewGeminiClient(log)
	lifecycleService := services.NewQuestionLifecycleService(thePG, log, questionRepo, answerRepo, pointEventRepo)
	questionService := services.NewQuestionService(thePG, log, questionRepo, answerRepo, courseRepo, userProfileRepo)
	voteService := services.NewVoteLedgerService(thePG, log, voteRepo, answerRepo, pointEventRepo)
	bookmarkService := services.NewBookmarkRegistryService(thePG, log, bookmarkRepo, questionRepo)
	rankingService := services.NewRankingService(thePG, log, redisClient, pointEventRepo, userProfileRepo, questionRepo, answerRepo)

	fallbackCfg := services.FallbackSchedulerConfig{
		Window:        time.Duration(utils.GetEnvAsInt("FALLBACK_WINDOW_MINUTES", 15, log)) * time.Minute,
		Lease:         time.Duration(utils.GetEnvAsInt("FALLBACK_LEASE_MINUTES", 5, log)) * time.Minute,
		SweepInterval: time.Duration(utils.GetEnvAsInt("FALLBACK_SWEEP_SECONDS", 60, log)) * time.Second,
		BatchSize:     utils.GetEnvAsInt("FALLBACK_BATCH_SIZE", 10, log),
	}
	fallbackService := services.NewFallbackSchedulerService(thePG, log, fallbackCfg, questionRepo, courseRepo, lifecycleService, geminiClient)

	// Workers
	workerCtx, cancelWorkers := context.WithCancel(context.Background())
	defer cancelWorkers()
	fallbackService.StartWorker(workerCtx)
	stopRefresh, err := rankingService.StartRefreshJob(utils.GetEnv("SCORE_REFRESH_CRON", "@every 10m", log))
	if err != nil {
		log.Warn("Score refresh job not scheduled", "error", err)
	} else {
		defer stopRefresh()
	}

	// Handlers
	log.Info("Setting up Handlers from main...")
	authHandler := handlers.NewAuthHandler(log, authService)
	questionHandler := handlers.NewQuestionHandler(log, questionService, lifecycleService, bookmarkService)
	answerHandler := handlers.NewAnswerHandler(log, lifecycleService, voteService)
	leaderboardHandler := handlers.NewLeaderboardHandler(log, rankingService)
	courseHandler := handlers.NewCourseHandler(log, courseRepo)
	aiHandler := handlers.NewAIHandler(log, geminiClient)
	authMiddleware := middleware.NewAuthMiddleware(log, authService)

	var origins []string
	if raw := utils.GetEnv("CORS_ALLOW_ORIGINS", "", log); raw != "" {
		origins = strings.Split(raw, ",")
	}

	router := server.NewRouter(server.RouterConfig{
		AuthHandler:        authHandler,
		AuthMiddleware:     authMiddleware,
		QuestionHandler:    questionHandler,
		AnswerHandler:      answerHandler,
		LeaderboardHandler: leaderboardHandler,
		CourseHandler:      courseHandler,
		AIHandler:          aiHandler,
		AllowOrigins:       origins,
	})

	port := utils.GetEnv("PORT", "8080", log)
	log.Info("Starting server", "port", port)

	errCh := make(chan error, 1)
	go func() {
		errCh <- router.Run(":" + port)
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	select {
	case err := <-errCh:
		log.Fatal("Server exited", "error", err)
	case sig := <-quit:
		log.Info("Shutting down", "signal", sig.String())
		cancelWorkers()
	}
}
