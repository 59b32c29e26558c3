package db

import (
	"embed"
	"errors"
	"fmt"

	"github.com/diewo77/paintms/internal/config"
	"github.com/diewo77/paintms/internal/models"
	migrate "github.com/golang-migrate/migrate/v4"
	// Registers the postgres database driver for golang-migrate.
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// Migration modes selected with MIGRATIONS.
const (
	MigrateAuto = "auto" // GORM AutoMigrate
	MigrateSQL  = "sql"  // embedded SQL files through golang-migrate (postgres only)
	MigrateOff  = "off"
)

var requiredTables = []string{"users", "clients", "products", "invoices", "invoice_items"}

// Migrate brings the schema up to date according to mode and checks the core tables exist.
func Migrate(gdb *gorm.DB, cfg config.DatabaseConfig, mode string, log logrus.FieldLogger) error {
	switch mode {
	case MigrateOff:
		log.Info("migrations disabled")
	case MigrateSQL:
		if cfg.Driver != "postgres" && cfg.Driver != "postgresql" {
			return fmt.Errorf("sql migrations require postgres, got %q", cfg.Driver)
		}
		if err := runSQLMigrations(ToURLDSN(NormalizeDSN(cfg.URL())), log); err != nil {
			return fmt.Errorf("sql migrations failed: %w", err)
		}
	case MigrateAuto, "":
		for _, m := range models.All() {
			if err := gdb.AutoMigrate(m); err != nil {
				return fmt.Errorf("automigrate %T: %w", m, err)
			}
		}
		log.Info("automigrate done")
	default:
		return fmt.Errorf("unknown MIGRATIONS mode %q", mode)
	}

	for _, table := range requiredTables {
		if !gdb.Migrator().HasTable(table) {
			return errors.New("missing table after migration: " + table)
		}
	}
	return nil
}

// runSQLMigrations applies the embedded migrations with golang-migrate.
func runSQLMigrations(databaseURL string, log logrus.FieldLogger) error {
	src, err := iofs.New(migrationsFS, "migrations")
	if err != nil {
		return err
	}
	m, err := migrate.NewWithSourceInstance("iofs", src, databaseURL)
	if err != nil {
		return err
	}
	defer m.Close()
	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return err
	}
	version, dirty, _ := m.Version()
	log.WithFields(logrus.Fields{"version": version, "dirty": dirty}).Info("sql migrations applied")
	return nil
}
