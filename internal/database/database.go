package database

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/ahmetcoskunkizilkaya/incident-backend/internal/config"
	"github.com/ahmetcoskunkizilkaya/incident-backend/internal/models"
	"gorm.io/driver/mysql"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// DB is the operational (transactional) store. Analytics is the
// read-optimized warehouse holding the hot and cold fact tables; it falls
// back to DB when no separate DSN is configured.
var (
	DB        *gorm.DB
	Analytics *gorm.DB
)

func Connect(cfg *config.Config) error {
	var err error
	DB, err = gorm.Open(postgres.Open(cfg.DSN()), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Warn),
	})
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}

	sqlDB, err := DB.DB()
	if err != nil {
		return fmt.Errorf("failed to get sql.DB: %w", err)
	}

	sqlDB.SetMaxOpenConns(50)
	sqlDB.SetMaxIdleConns(25)
	sqlDB.SetConnMaxLifetime(30 * time.Minute)
	sqlDB.SetConnMaxIdleTime(5 * time.Minute)

	slog.Info("database connected")
	return nil
}

// ConnectAnalytics opens the warehouse connection. Must run after Connect.
func ConnectAnalytics(cfg *config.Config) error {
	if cfg.AnalyticsDSN == "" {
		Analytics = DB
		slog.Info("analytics using operational database")
		return nil
	}

	var dialector gorm.Dialector
	switch cfg.AnalyticsDriver {
	case "postgres":
		dialector = postgres.Open(cfg.AnalyticsDSN)
	case "mysql":
		dialector = mysql.Open(cfg.AnalyticsDSN)
	default:
		return fmt.Errorf("unsupported analytics driver %q", cfg.AnalyticsDriver)
	}

	var err error
	Analytics, err = gorm.Open(dialector, &gorm.Config{
		Logger: logger.Default.LogMode(logger.Error),
	})
	if err != nil {
		return fmt.Errorf("failed to connect to analytics database: %w", err)
	}

	sqlDB, err := Analytics.DB()
	if err != nil {
		return fmt.Errorf("failed to get analytics sql.DB: %w", err)
	}
	sqlDB.SetMaxOpenConns(10)
	sqlDB.SetMaxIdleConns(5)
	sqlDB.SetConnMaxLifetime(30 * time.Minute)

	slog.Info("analytics database connected", "driver", cfg.AnalyticsDriver)
	return nil
}

// Migrate creates the operational tables. The analytics tables belong to
// the ETL and are never migrated here.
func Migrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&models.User{},
		&models.Report{},
		&models.Attachment{},
		&models.RefreshToken{},
		&models.PasswordResetToken{},
		&models.SystemLog{},
	)
}

func Ping(ctx context.Context, db *gorm.DB) error {
	if db == nil {
		return fmt.Errorf("database not configured")
	}
	sqlDB, err := db.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}
