package db

import (
	"fmt"
	stdlog "log"
	"os"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormLogger "gorm.io/gorm/logger"

	"github.com/coursegen/coursegen-backend/internal/domain"
	"github.com/coursegen/coursegen-backend/internal/pkg/env"
	"github.com/coursegen/coursegen-backend/internal/pkg/logger"
)

type PostgresService struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewPostgresService(baseLog *logger.Logger) (*PostgresService, error) {
	serviceLog := baseLog.With("service", "PostgresService")

	dsn := fmt.Sprintf(
		"postgres://%s:%s@%s:%s/%s?sslmode=%s",
		env.Get("POSTGRES_USER", "postgres"),
		env.Get("POSTGRES_PASSWORD", ""),
		env.Get("POSTGRES_HOST", "localhost"),
		env.Get("POSTGRES_PORT", "5432"),
		env.Get("POSTGRES_NAME", "coursegen"),
		env.Get("POSTGRES_SSLMODE", "disable"),
	)

	gormLog := gormLogger.New(
		stdlog.New(os.Stdout, "\r\n", stdlog.LstdFlags),
		gormLogger.Config{
			SlowThreshold:             1 * time.Second,
			LogLevel:                  gormLogger.Warn,
			IgnoreRecordNotFoundError: true,
		},
	)

	gdb, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		DisableForeignKeyConstraintWhenMigrating: true,
		TranslateError:                           true,
		Logger:                                   gormLog,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to Postgres: %w", err)
	}

	if err := gdb.Exec(`CREATE EXTENSION IF NOT EXISTS "uuid-ossp";`).Error; err != nil {
		return nil, fmt.Errorf("failed to enable uuid-ossp extension: %w", err)
	}

	return &PostgresService{db: gdb, log: serviceLog}, nil
}

func (s *PostgresService) DB() *gorm.DB { return s.db }

// AutoMigrateAll keeps the schema current with the domain models.
func (s *PostgresService) AutoMigrateAll() error {
	if err := s.db.AutoMigrate(
		&domain.Artifact{},
		&domain.Module{},
		&domain.Lesson{},
		&domain.InstructionalPlan{},
		&domain.JobRun{},
	); err != nil {
		return err
	}
	// One runnable job per entity and job type, enforced at the database so
	// concurrent triggers cannot both pass the enqueue check.
	return s.db.Exec(`
		CREATE UNIQUE INDEX IF NOT EXISTS uniq_job_run_runnable
		ON job_run (job_type, entity_type, entity_id)
		WHERE status IN ('queued', 'running') AND entity_id IS NOT NULL
	`).Error
}
