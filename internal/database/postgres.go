package database

import (
	"fmt"
	"strings"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/noah-isme/praxis-api/internal/models"
)

const sqlitePrefix = "sqlite://"

// ConnectPostgres opens the logbook store. A DSN prefixed with "sqlite://" opens
// an embedded sqlite database for local runs; anything else goes to postgres.
func ConnectPostgres(dsn string) (*gorm.DB, error) {
	if dsn == "" {
		return nil, fmt.Errorf("postgres dsn must not be empty")
	}

	if strings.HasPrefix(dsn, sqlitePrefix) {
		db, err := gorm.Open(sqlite.Open(strings.TrimPrefix(dsn, sqlitePrefix)), &gorm.Config{})
		if err != nil {
			return nil, fmt.Errorf("failed to open sqlite: %w", err)
		}
		sqlDB, err := db.DB()
		if err != nil {
			return nil, err
		}
		// sqlite allows a single writer.
		sqlDB.SetMaxOpenConns(1)
		return db, nil
	}

	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to postgres: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	sqlDB.SetMaxOpenConns(25)
	sqlDB.SetMaxIdleConns(5)
	sqlDB.SetConnMaxLifetime(30 * time.Minute)

	return db, nil
}

// Migrate creates or updates the tables backing trainees, logbooks, entries,
// audit entries and comments.
func Migrate(db *gorm.DB) error {
	if err := db.AutoMigrate(
		&models.Trainee{},
		&models.SupervisorAssignment{},
		&models.Logbook{},
		&models.LogbookSection{},
		&models.PracticeEntry{},
		&models.ProfessionalDevelopmentEntry{},
		&models.SupervisionEntry{},
		&models.AuditEntry{},
		&models.Comment{},
	); err != nil {
		return fmt.Errorf("failed to migrate schema: %w", err)
	}
	return nil
}
