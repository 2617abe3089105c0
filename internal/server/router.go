package server

import (
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	"github.com/yungbote/doubtclear-backend/internal/handlers"
	"github.com/yungbote/doubtclear-backend/internal/middleware"
	"github.com/yungbote/doubtclear-backend/internal/observability"
)

type RouterConfig struct {
	AuthHandler        *handlers.AuthHandler
	AuthMiddleware     *middleware.AuthMiddleware
	QuestionHandler    *handlers.QuestionHandler
	AnswerHandler      *handlers.AnswerHandler
	LeaderboardHandler *handlers.LeaderboardHandler
	CourseHandler      *handlers.CourseHandler
	AIHandler          *handlers.AIHandler

	AllowOrigins []string
}

func NewRouter(cfg RouterConfig) *gin.Engine {
	router := gin.Default()
	router.Use(otelgin.Middleware(observability.ServiceName))

	origins := cfg.AllowOrigins
	if len(origins) == 0 {
		origins = []string{"http://localhost:3000", "http://localhost:5173"}
	}
	router.Use(cors.New(cors.Config{
		AllowOrigins:     origins,
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "PATCH", "OPTIONS"},
		AllowHeaders:     []string{"Authorization", "Content-Type", "X-Requested-With"},
		AllowCredentials: true,
	}))

	// ===============
	// || Public    ||
	// ===============
	router.GET("/healthcheck", handlers.HealthCheck)

	api := router.Group("/api")
	{
		api.POST("/register", cfg.AuthHandler.Register)
		api.POST("/login", cfg.AuthHandler.Login)

		api.GET("/courses", cfg.CourseHandler.List)
		api.GET("/questions", cfg.QuestionHandler.List)
		api.GET("/questions/trending", cfg.QuestionHandler.Trending)
		api.GET("/questions/:id", cfg.QuestionHandler.Get)
		api.POST("/questions/:id/views", cfg.QuestionHandler.IncrementViews)
		api.GET("/leaderboard", cfg.LeaderboardHandler.Leaderboard)
	}

	// ===============
	// || Protected ||
	// ===============
	protected := api.Group("/")
	protected.Use(cfg.AuthMiddleware.RequireAuth())
	// Questions
	protected.POST("/questions", cfg.QuestionHandler.Create)
	protected.POST("/questions/:id/close", cfg.QuestionHandler.Close)
	protected.POST("/questions/:id/bookmark", cfg.QuestionHandler.ToggleBookmark)
	protected.GET("/bookmarks", cfg.QuestionHandler.Bookmarked)
	// Answers
	protected.POST("/questions/:id/answers", cfg.AnswerHandler.Create)
	protected.POST("/questions/:id/answers/:answerId/accept", cfg.AnswerHandler.Accept)
	protected.POST("/answers/:id/votes", cfg.AnswerHandler.CastVote)
	// Courses
	protected.POST("/courses", cfg.CourseHandler.Create)
	// Stats
	protected.GET("/me/stats", cfg.LeaderboardHandler.MyStats)
	protected.GET("/me/activity", cfg.LeaderboardHandler.MyActivity)
	// AI assists
	protected.POST("/ai/improve-question", cfg.AIHandler.ImproveQuestion)
	protected.POST("/ai/similar-questions", cfg.AIHandler.SimilarQuestions)
	protected.POST("/ai/answer-quality", cfg.AIHandler.AnswerQuality)
	protected.POST("/ai/answer-preview", cfg.AIHandler.AnswerPreview)

	return router
}
