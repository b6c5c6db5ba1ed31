package database

import (
	"fmt"
	"time"

	"github.com/scanledger/waitlist/internal/config"
	"github.com/scanledger/waitlist/internal/models"
	"gorm.io/driver/mysql"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// Connect opens the configured relational store and optionally runs auto-migration.
func Connect(cfg *config.AppConfig, autoMigrate bool) (*gorm.DB, error) {
	db, err := Open(Dialector(cfg), resolveLogLevel(cfg))
	if err != nil {
		return nil, err
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("resolve sql db: %w", err)
	}
	sqlDB.SetMaxOpenConns(20)
	sqlDB.SetMaxIdleConns(5)
	sqlDB.SetConnMaxLifetime(30 * time.Minute)

	if autoMigrate {
		if err := Migrate(db); err != nil {
			return nil, fmt.Errorf("migration failed: %w", err)
		}
	}
	return db, nil
}

// Dialector picks the GORM driver for the configured database driver.
func Dialector(cfg *config.AppConfig) gorm.Dialector {
	if cfg.Database.Driver == config.DriverPostgres {
		return postgres.Open(cfg.DSN)
	}
	return mysql.New(mysql.Config{
		DSN:               cfg.DSN,
		DefaultStringSize: 191,
	})
}

// Open opens a GORM handle with driver error translation enabled, so unique
// violations surface as gorm.ErrDuplicatedKey.
func Open(dialector gorm.Dialector, logLevel logger.LogLevel) (*gorm.DB, error) {
	db, err := gorm.Open(dialector, &gorm.Config{
		Logger:         logger.Default.LogMode(logLevel),
		TranslateError: true,
	})
	if err != nil {
		return nil, fmt.Errorf("database connection failed: %w", err)
	}
	return db, nil
}

func resolveLogLevel(cfg *config.AppConfig) logger.LogLevel {
	if cfg.IsDev() {
		return logger.Info
	}
	return logger.Warn
}

// Migrate runs GORM auto-migration for all models.
func Migrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&models.WaitlistSignup{},
	)
}
