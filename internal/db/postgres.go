package db

import (
	"fmt"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"github.com/hackfest/judging-backend/internal/logger"
	"github.com/hackfest/judging-backend/internal/types"
	"github.com/hackfest/judging-backend/internal/utils"
)

type PostgresService struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewPostgresService(log *logger.Logger) (*PostgresService, error) {
	serviceLog := log.With("service", "PostgresService")

	postgresHost := utils.GetEnv("POSTGRES_HOST", "localhost", log)
	postgresPort := utils.GetEnv("POSTGRES_PORT", "5432", log)
	postgresUser := utils.GetEnv("POSTGRES_USER", "postgres", log)
	postgresPassword := utils.GetEnv("POSTGRES_PASSWORD", "", log)
	postgresName := utils.GetEnv("POSTGRES_NAME", "judging", log)

	dsn := fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=disable", postgresUser, postgresPassword, postgresHost, postgresPort, postgresName)

	serviceLog.Info("Connecting to Postgres...")
	gdb, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		DisableForeignKeyConstraintWhenMigrating: true,
		TranslateError:                           true,
	})
	if err != nil {
		serviceLog.Error("Failed to connect to Postgres", "error", err)
		return nil, fmt.Errorf("failed to connect to postgres: %w", err)
	}

	if err := gdb.Exec(`CREATE EXTENSION IF NOT EXISTS "uuid-ossp";`).Error; err != nil {
		serviceLog.Error("Failed to enable uuid-ossp extension", "error", err)
		return nil, fmt.Errorf("failed to enable uuid-ossp extension: %w", err)
	}

	return &PostgresService{db: gdb, log: serviceLog}, nil
}

func (s *PostgresService) AutoMigrateAll() error {
	s.log.Info("Auto migrating postgres tables...")
	err := s.db.AutoMigrate(
		&types.Submission{},
		&types.JudgeRecord{},
		&types.CriterionScore{},
		&types.AwardRecord{},
	)
	if err != nil {
		s.log.Error("Auto migration failed for postgres tables", "error", err)
		return err
	}

	s.log.Info("Configuring foreign key relationships for postgres tables...")
	fks := []struct{ name, ddl string }{
		{"fk_judge_record_submission_id", `
			ALTER TABLE "judge_record"
			ADD CONSTRAINT "fk_judge_record_submission_id"
			FOREIGN KEY ("submission_id")
			REFERENCES "submission"("id")
			ON DELETE CASCADE`},
		{"fk_criterion_score_judge_record_id", `
			ALTER TABLE "criterion_score"
			ADD CONSTRAINT "fk_criterion_score_judge_record_id"
			FOREIGN KEY ("judge_record_id")
			REFERENCES "judge_record"("id")
			ON DELETE CASCADE`},
		{"fk_award_record_submission_id", `
			ALTER TABLE "award_record"
			ADD CONSTRAINT "fk_award_record_submission_id"
			FOREIGN KEY ("submission_id")
			REFERENCES "submission"("id")
			ON DELETE CASCADE`},
	}
	for _, fk := range fks {
		if err := s.db.Exec(fmt.Sprintf(`
			DO $$ BEGIN
				IF NOT EXISTS (SELECT 1 FROM pg_constraint WHERE conname = '%s') THEN
					%s;
				END IF;
			END $$;`, fk.name, fk.ddl)).Error; err != nil {
			return fmt.Errorf("failed to add %s: %w", fk.name, err)
		}
	}
	return nil
}

func (s *PostgresService) DB() *gorm.DB {
	return s.db
}
