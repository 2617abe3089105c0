package db

import (
	"fmt"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"github.com/yungbote/doubtclear-backend/internal/logger"
	"github.com/yungbote/doubtclear-backend/internal/types"
	"github.com/yungbote/doubtclear-backend/internal/utils"
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
	postgresName := utils.GetEnv("POSTGRES_NAME", "doubtclear", log)

	dsn := fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=disable", postgresUser, postgresPassword, postgresHost, postgresPort, postgresName)

	log.Info("Connecting to Postgres...")
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		DisableForeignKeyConstraintWhenMigrating: true,
		// Duplicate-key inserts must surface as gorm.ErrDuplicatedKey: the
		// vote and bookmark toggles reinterpret that conflict.
		TranslateError: true,
	})
	if err != nil {
		log.Error("Failed to connect to Postgres", "error", err)
		return nil, fmt.Errorf("failed to connect to Postgres: %w", err)
	}

	return &PostgresService{db: db, log: serviceLog}, nil
}

func (s *PostgresService) AutoMigrateAll() error {
	s.log.Info("Auto migrating postgres tables...")
	err := s.db.AutoMigrate(
		&types.UserProfile{},
		&types.Course{},
		&types.Question{},
		&types.Answer{},
		&types.AnswerVote{},
		&types.QuestionBookmark{},
		&types.PointEvent{},
	)
	if err != nil {
		s.log.Error("Auto migration failed for postgres tables", "error", err)
		return err
	}
	s.log.Info("Configuring foreign key relationships for postgres tables...")
	if err := s.db.Exec(`
		ALTER TABLE "answer"
		ADD CONSTRAINT "fk_answer_question_id"
		FOREIGN KEY ("question_id")
		REFERENCES "question"("id")
		ON DELETE CASCADE
	`).Error; err != nil {
		return fmt.Errorf("failed to add fk_answer_question_id: %w", err)
	}
	if err := s.db.Exec(`
		ALTER TABLE "answer_vote"
		ADD CONSTRAINT "fk_answer_vote_answer_id"
		FOREIGN KEY ("answer_id")
		REFERENCES "answer"("id")
		ON DELETE CASCADE
	`).Error; err != nil {
		return fmt.Errorf("failed to add fk_answer_vote_answer_id: %w", err)
	}
	if err := s.db.Exec(`
		ALTER TABLE "question_bookmark"
		ADD CONSTRAINT "fk_question_bookmark_question_id"
		FOREIGN KEY ("question_id")
		REFERENCES "question"("id")
		ON DELETE CASCADE
	`).Error; err != nil {
		return fmt.Errorf("failed to add fk_question_bookmark_question_id: %w", err)
	}
	return nil
}

func (s *PostgresService) DB() *gorm.DB {
	return s.db
}
