// Package database opens the gallery index and keeps its schema current
package database

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/hashicorp/go-hclog"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormLogger "gorm.io/gorm/logger"

	"github.com/mantonx/gallery/internal/config"
	"github.com/mantonx/gallery/internal/logger"
)

// Dialector returns the gorm dialector for cfg
func Dialector(cfg config.DatabaseConfig) (gorm.Dialector, error) {
	switch cfg.Type {
	case "", "sqlite":
		path := cfg.Path
		if path == "" {
			path = "./gallery.db"
		}
		if path != ":memory:" {
			if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
				return nil, fmt.Errorf("failed to create database directory: %w", err)
			}
		}
		return sqlite.Open(path), nil
	case "postgres":
		if cfg.DSN == "" {
			return nil, fmt.Errorf("postgres requires a dsn")
		}
		return postgres.Open(cfg.DSN), nil
	default:
		return nil, fmt.Errorf("unsupported database type: %s", cfg.Type)
	}
}

// Open connects to the configured database and migrates the schema
func Open(cfg config.DatabaseConfig, l hclog.Logger) (*gorm.DB, error) {
	dialector, err := Dialector(cfg)
	if err != nil {
		return nil, err
	}
	db, err := OpenDialector(dialector, cfg.LogQueries, l)
	if err != nil {
		return nil, err
	}
	if err := Migrate(db); err != nil {
		_ = Close(db)
		return nil, err
	}
	return db, nil
}

// OpenDialector connects through an explicit dialector. Tests use it to
// run against sqlmock.
func OpenDialector(dialector gorm.Dialector, logQueries bool, l hclog.Logger) (*gorm.DB, error) {
	l = logger.OrNull(l).Named("database")

	db, err := gorm.Open(dialector, &gorm.Config{
		Logger: NewGormLogger(l, logQueries),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get sql.DB: %w", err)
	}
	sqlDB.SetMaxIdleConns(4)
	sqlDB.SetConnMaxLifetime(time.Hour)

	l.Info("database connected", "dialect", dialector.Name())
	return db, nil
}

// Migrate creates or updates the media tables
func Migrate(db *gorm.DB) error {
	if err := db.AutoMigrate(Models()...); err != nil {
		return fmt.Errorf("failed to migrate database: %w", err)
	}
	return nil
}

// Close releases the underlying connection pool
func Close(db *gorm.DB) error {
	sqlDB, err := db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// NewGormLogger routes gorm's output through hclog. Queries are logged only
// when logQueries is set; slow queries and errors are always reported.
func NewGormLogger(l hclog.Logger, logQueries bool) gormLogger.Interface {
	level := gormLogger.Warn
	if logQueries {
		level = gormLogger.Info
	}
	return gormLogger.New(
		l.StandardLogger(&hclog.StandardLoggerOptions{InferLevels: true}),
		gormLogger.Config{
			SlowThreshold:             200 * time.Millisecond,
			LogLevel:                  level,
			IgnoreRecordNotFoundError: true,
			Colorful:                  false,
		},
	)
}
