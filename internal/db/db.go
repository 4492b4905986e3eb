package db

import (
	"errors"
	"time"

	"doodle-chain/internal/config"

	"github.com/rs/zerolog/log"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// Open connects using the configured driver. Postgres needs DATABASE_URL;
// sqlite uses SQLITE_PATH.
func Open(cfg config.Config) (*gorm.DB, error) {
	var dialector gorm.Dialector
	switch cfg.DBDriver {
	case "sqlite":
		if cfg.SQLitePath == "" {
			return nil, errors.New("SQLITE_PATH is not set")
		}
		dialector = sqlite.Open(cfg.SQLitePath)
	case "", "postgres":
		if cfg.DatabaseURL == "" {
			return nil, errors.New("DATABASE_URL is not set")
		}
		dialector = postgres.Open(cfg.DatabaseURL)
	default:
		return nil, errors.New("unsupported DB_DRIVER " + cfg.DBDriver)
	}
	conn, err := gorm.Open(dialector, &gorm.Config{
		TranslateError: true,
		Logger:         logger.Default.LogMode(logger.Warn),
	})
	if err != nil {
		return nil, err
	}
	sqlDB, err := conn.DB()
	if err != nil {
		return nil, err
	}
	sqlDB.SetMaxOpenConns(cfg.DBMaxOpenConns)
	sqlDB.SetMaxIdleConns(cfg.DBMaxIdleConns)
	sqlDB.SetConnMaxLifetime(time.Duration(cfg.DBConnMaxLifetimeSeconds) * time.Second)
	sqlDB.SetConnMaxIdleTime(time.Duration(cfg.DBConnMaxIdleTimeSeconds) * time.Second)
	return conn, nil
}

// Migrate runs GORM auto-migrations for the record tables.
func Migrate(conn *gorm.DB) error {
	if conn == nil {
		return errors.New("db connection is nil")
	}
	if err := conn.AutoMigrate(
		&Doodle{},
		&Game{},
	); err != nil {
		return err
	}
	log.Info().Str("dialect", conn.Dialector.Name()).Msg("database migration complete")
	return nil
}
