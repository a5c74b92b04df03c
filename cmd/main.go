package main

import (
	"os"

	"github.com/hackfest/judging-backend/internal/clients/competition"
	"github.com/hackfest/judging-backend/internal/clients/directory"
	"github.com/hackfest/judging-backend/internal/clients/notify"
	redisclient "github.com/hackfest/judging-backend/internal/clients/redis"
	"github.com/hackfest/judging-backend/internal/db"
	"github.com/hackfest/judging-backend/internal/handlers"
	"github.com/hackfest/judging-backend/internal/logger"
	"github.com/hackfest/judging-backend/internal/middleware"
	"github.com/hackfest/judging-backend/internal/repos"
	"github.com/hackfest/judging-backend/internal/server"
	"github.com/hackfest/judging-backend/internal/services"
	"github.com/hackfest/judging-backend/internal/utils"
)

func main() {
	mode := os.Getenv("APP_ENV")
	log, err := logger.New(mode)
	if err != nil {
		os.Exit(1)
	}
	defer log.Sync()

	pg, err := db.NewPostgresService(log)
	if err != nil {
		log.Fatal("Failed to initialize postgres", "error", err)
	}
	if err := pg.AutoMigrateAll(); err != nil {
		log.Fatal("Failed to migrate postgres tables", "error", err)
	}
	gdb := pg.DB()

	submissionRepo := repos.NewSubmissionRepo(gdb, log)
	judgeRecordRepo := repos.NewJudgeRecordRepo(gdb, log)
	criterionScoreRepo := repos.NewCriterionScoreRepo(gdb, log)
	awardRecordRepo := repos.NewAwardRecordRepo(gdb, log)

	competitionClient, err := competition.NewFromEnv(log)
	if err != nil {
		log.Fatal("Failed to initialize competition client", "error", err)
	}
	directoryClient, err := directory.NewFromEnv(log)
	if err != nil {
		log.Fatal("Failed to initialize directory client", "error", err)
	}
	notifyClient, err := notify.NewFromEnv(log)
	if err != nil {
		log.Fatal("Failed to initialize notify client", "error", err)
	}

	// Award runs still work without redis; they just lose cross-instance
	// serialization.
	locker, err := redisclient.NewLocker(log)
	if err != nil {
		log.Warn("Redis unavailable, award runs will not be serialized across instances", "error", err)
		locker = nil
	}

	eligibilityService := services.NewEligibilityService(gdb, log, competitionClient, judgeRecordRepo)
	scoringService := services.NewScoringService(gdb, log, eligibilityService, submissionRepo, judgeRecordRepo, criterionScoreRepo)
	queryService := services.NewQueryService(gdb, log, submissionRepo, judgeRecordRepo, criterionScoreRepo)
	awardService := services.NewAwardService(gdb, log, submissionRepo, judgeRecordRepo, criterionScoreRepo, awardRecordRepo, competitionClient, directoryClient, notifyClient, locker)

	jwtSecret := utils.GetEnv("JWT_SECRET", "", log)
	if jwtSecret == "" {
		log.Fatal("JWT_SECRET is required")
	}
	auth := middleware.NewAuthMiddleware(log, jwtSecret)

	router := server.NewRouter(server.Deps{
		Log:         log,
		Auth:        auth,
		Scoring:     handlers.NewScoringHandler(log, scoringService),
		Submissions: handlers.NewSubmissionsHandler(log, queryService),
		Awards:      handlers.NewAwardsHandler(log, awardService),
	})

	port := utils.GetEnv("PORT", "8080", log)
	log.Info("Starting server", "port", port)
	if err := router.Run(":" + port); err != nil {
		log.Fatal("Server exited", "error", err)
	}
}
