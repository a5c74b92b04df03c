package server

import (
	"strings"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"github.com/hackfest/judging-backend/internal/handlers"
	"github.com/hackfest/judging-backend/internal/logger"
	"github.com/hackfest/judging-backend/internal/middleware"
	"github.com/hackfest/judging-backend/internal/utils"
)

type Deps struct {
	Log         *logger.Logger
	Auth        *middleware.AuthMiddleware
	Scoring     *handlers.ScoringHandler
	Submissions *handlers.SubmissionsHandler
	Awards      *handlers.AwardsHandler
}

func NewRouter(deps Deps) *gin.Engine {
	router := gin.Default()

	allowedOrigins := utils.GetEnv("CORS_ALLOWED_ORIGINS", "*", deps.Log)
	corsConfig := cors.Config{
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}
	if allowedOrigins == "*" {
		corsConfig.AllowAllOrigins = true
		corsConfig.AllowCredentials = false
	} else {
		corsConfig.AllowOrigins = strings.Split(allowedOrigins, ",")
	}
	router.Use(cors.New(corsConfig))

	router.GET("/healthcheck", handlers.HealthCheck)

	// Public winners listing; everything else requires auth.
	router.GET("/competitions/:id/winners", deps.Awards.ListPublicWinners)

	api := router.Group("/api")
	api.Use(deps.Auth.RequireAuth())
	{
		judge := api.Group("")
		judge.Use(deps.Auth.RequireRoles(middleware.RoleJudge))
		{
			judge.POST("/competitions/:id/submissions/:sid/scores", deps.Scoring.SubmitScore)
			judge.PUT("/submissions/:sid/scores", deps.Scoring.ReviseScore)
		}

		organizer := api.Group("")
		organizer.Use(deps.Auth.RequireRoles(middleware.RoleOrganizer))
		{
			organizer.GET("/competitions/:id/scored-submissions", deps.Submissions.ListScored)
			organizer.GET("/competitions/:id/score-statistics", deps.Submissions.ScoreStatistics)
			organizer.GET("/competitions/:id/judge-count", deps.Submissions.JudgeCount)
			organizer.POST("/competitions/:id/awards/auto", deps.Awards.AutoAward)
		}
	}

	return router
}
