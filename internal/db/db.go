// Package db opens the database, applies migrations and seeds base data.
package db

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/diewo77/paintms/internal/config"
	"github.com/diewo77/paintms/internal/logging"
	"github.com/sirupsen/logrus"
	"github.com/uptrace/opentelemetry-go-extra/otelgorm"
	"gorm.io/driver/mysql"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	_ "modernc.org/sqlite" // registers the pure Go "sqlite" driver
)

const connectAttempts = 10

// Dialector returns the GORM dialector for cfg.Driver.
func Dialector(cfg config.DatabaseConfig) (gorm.Dialector, error) {
	switch cfg.Driver {
	case "postgres", "postgresql":
		return postgres.Open(NormalizeDSN(cfg.ConnString())), nil
	case "mysql":
		return mysql.Open(cfg.ConnString()), nil
	case "sqlite", "":
		return sqlite.New(sqlite.Config{DriverName: "sqlite", DSN: SQLiteDSN(cfg.ConnString())}), nil
	default:
		return nil, fmt.Errorf("unsupported DB_DRIVER %q", cfg.Driver)
	}
}

// SQLiteDSN turns a file path into a modernc DSN with foreign keys and a busy timeout.
// DSNs that already carry parameters are left alone.
func SQLiteDSN(path string) string {
	if strings.Contains(path, "?") {
		return path
	}
	if !strings.HasPrefix(path, "file:") {
		path = "file:" + path
	}
	return path + "?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)"
}

// Open connects with retries, tunes the pool and checks the connection with SELECT 1.
func Open(ctx context.Context, cfg config.DatabaseConfig, log *logrus.Logger) (*gorm.DB, error) {
	dialector, err := Dialector(cfg)
	if err != nil {
		return nil, err
	}
	gcfg := &gorm.Config{
		Logger:         logging.GormLogger(log, cfg.Debug),
		TranslateError: true,
	}

	var gdb *gorm.DB
	for attempt := 1; attempt <= connectAttempts; attempt++ {
		gdb, err = gorm.Open(dialector, gcfg)
		if err == nil {
			break
		}
		sleep := time.Second * time.Duration(1<<min(attempt, 4))
		log.WithFields(logrus.Fields{"attempt": attempt, "driver": cfg.Driver}).
			WithError(err).Warnf("failed to connect database; retrying in %s", sleep)
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(sleep):
		}
	}
	if err != nil {
		return nil, fmt.Errorf("failed to connect database after %d attempts: %w", connectAttempts, err)
	}

	sqlDB, err := gdb.DB()
	if err != nil {
		return nil, fmt.Errorf("sql db: %w", err)
	}
	if cfg.Driver == "sqlite" || cfg.Driver == "" {
		// A single writer avoids SQLITE_BUSY under concurrent requests.
		sqlDB.SetMaxOpenConns(1)
	} else {
		if cfg.MaxOpenConns > 0 {
			sqlDB.SetMaxOpenConns(cfg.MaxOpenConns)
		}
		if cfg.MaxIdleConns >= 0 {
			sqlDB.SetMaxIdleConns(cfg.MaxIdleConns)
		}
		sqlDB.SetConnMaxLifetime(5 * time.Minute)
	}

	if cfg.Tracing {
		if err := gdb.Use(otelgorm.NewPlugin()); err != nil {
			log.WithError(err).Warn("db connected but failed to install otelgorm plugin")
		}
	}

	if err := gdb.WithContext(ctx).Exec("SELECT 1").Error; err != nil {
		return nil, fmt.Errorf("db ping failed: %w", err)
	}
	log.WithFields(logrus.Fields{"driver": cfg.Driver, "dsn": MaskDSN(cfg.ConnString())}).Info("connected to database")
	return gdb, nil
}
