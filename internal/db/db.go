package db

import (
	"context"
	"fmt"
	"time"

	"github.com/sethvargo/go-retry"
	"gorm.io/driver/mysql"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"jobtrack/internal/model"
)

const (
	connectAttempts = 5
	connectBackoff  = 500 * time.Millisecond
)

// Open returns a connected GORM DB instance for the given driver. Connection
// failures are retried with exponential backoff.
func Open(ctx context.Context, driver, dsn string) (*gorm.DB, error) {
	dialector, err := dialectorFor(driver, dsn)
	if err != nil {
		return nil, err
	}

	var gormDB *gorm.DB
	b := retry.WithMaxRetries(connectAttempts, retry.NewExponential(connectBackoff))
	err = retry.Do(ctx, b, func(ctx context.Context) error {
		conn, err := gorm.Open(dialector, &gorm.Config{
			TranslateError: true,
			Logger:         logger.Default.LogMode(logger.Silent),
		})
		if err != nil {
			return retry.RetryableError(err)
		}
		sqlDB, err := conn.DB()
		if err != nil {
			return err
		}
		if driver == "sqlite" {
			// A single writer; also keeps in-memory databases on one connection.
			sqlDB.SetMaxOpenConns(1)
		}
		if err := sqlDB.PingContext(ctx); err != nil {
			return retry.RetryableError(err)
		}
		gormDB = conn
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("connect %s: %w", driver, err)
	}
	return gormDB, nil
}

func dialectorFor(driver, dsn string) (gorm.Dialector, error) {
	switch driver {
	case "mysql":
		return mysql.Open(dsn), nil
	case "postgres":
		return postgres.Open(dsn), nil
	case "sqlite":
		return sqlite.Open(dsn), nil
	default:
		return nil, fmt.Errorf("unsupported db driver %q", driver)
	}
}

// Migrate creates or updates the schema for all models. With reset set, the
// tables are dropped first.
func Migrate(gormDB *gorm.DB, reset bool) error {
	if reset {
		if err := gormDB.Migrator().DropTable(&model.User{}); err != nil {
			return fmt.Errorf("drop tables: %w", err)
		}
	}
	if err := gormDB.AutoMigrate(&model.User{}); err != nil {
		return fmt.Errorf("auto-migrate: %w", err)
	}
	return nil
}

// Close releases the underlying connection pool.
func Close(gormDB *gorm.DB) error {
	sqlDB, err := gormDB.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
