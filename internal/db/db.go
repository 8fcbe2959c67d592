package db

import (
	"fmt"
	"time"

	log "github.com/sirupsen/logrus"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"lyceum/internal/models"
)

const defaultDSN = "host=localhost user=postgres password=postgres dbname=lyceum port=5432 sslmode=disable TimeZone=UTC"

// Open connects to PostgreSQL and runs the schema migration.
func Open(dsn string, debug bool) (*gorm.DB, error) {
	if dsn == "" {
		// Fallback for local dev if not set
		dsn = defaultDSN
	}

	level := logger.Warn
	if debug {
		level = logger.Info
	}

	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(level),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	sqlDB.SetMaxOpenConns(20)
	sqlDB.SetConnMaxIdleTime(5 * time.Minute)
	if err := sqlDB.Ping(); err != nil {
		return nil, fmt.Errorf("database not responding: %w", err)
	}
	log.Info("[db] connection established")

	if err := Migrate(db); err != nil {
		return nil, err
	}
	return db, nil
}

func Migrate(db *gorm.DB) error {
	err := db.AutoMigrate(
		&models.User{},
		&models.Profile{},
		&models.Post{},
		&models.Comment{},
		&models.Vote{},
	)
	if err != nil {
		return fmt.Errorf("failed to migrate database: %w", err)
	}
	log.Info("[db] migration completed")
	return nil
}

// Close releases the underlying connection pool.
func Close(db *gorm.DB) {
	sqlDB, err := db.DB()
	if err != nil {
		log.Errorf("[db] error getting sql.DB from gorm: %v", err)
		return
	}
	if err := sqlDB.Close(); err != nil {
		log.Errorf("[db] error closing connection: %v", err)
		return
	}
	log.Info("[db] connection closed")
}
