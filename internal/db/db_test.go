package db

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/diewo77/paintms/internal/auth"
	"github.com/diewo77/paintms/internal/config"
	"github.com/diewo77/paintms/internal/logging"
	"github.com/diewo77/paintms/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func openTestDB(t *testing.T) (*gorm.DB, config.DatabaseConfig) {
	t.Helper()
	cfg := config.DatabaseConfig{Driver: "sqlite", Path: filepath.Join(t.TempDir(), "paintms.db")}
	gdb, err := Open(context.Background(), cfg, logging.Discard())
	require.NoError(t, err)
	t.Cleanup(func() {
		if sqlDB, err := gdb.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})
	return gdb, cfg
}

func TestOpenAndAutoMigrate(t *testing.T) {
	gdb, cfg := openTestDB(t)
	require.NoError(t, Migrate(gdb, cfg, MigrateAuto, logging.Discard()))
	for _, table := range requiredTables {
		assert.True(t, gdb.Migrator().HasTable(table), table)
	}
	// Running twice is harmless.
	require.NoError(t, Migrate(gdb, cfg, MigrateAuto, logging.Discard()))

	var fk int
	require.NoError(t, gdb.Raw("PRAGMA foreign_keys").Scan(&fk).Error)
	assert.Equal(t, 1, fk, "foreign keys enforced")
}

func TestMigrateModes(t *testing.T) {
	gdb, cfg := openTestDB(t)

	err := Migrate(gdb, cfg, MigrateSQL, logging.Discard())
	assert.ErrorContains(t, err, "require postgres")

	err = Migrate(gdb, cfg, "sideways", logging.Discard())
	assert.ErrorContains(t, err, "unknown MIGRATIONS mode")

	err = Migrate(gdb, cfg, MigrateOff, logging.Discard())
	assert.ErrorContains(t, err, "missing table", "off on an empty database fails the table check")
}

func TestDialectorRejectsUnknownDriver(t *testing.T) {
	_, err := Dialector(config.DatabaseConfig{Driver: "oracle"})
	assert.Error(t, err)
}

func TestEmbeddedMigrations(t *testing.T) {
	entries, err := migrationsFS.ReadDir("migrations")
	require.NoError(t, err)
	var names []string
	for _, e := range entries {
		names = append(names, e.Name())
	}
	assert.Equal(t, []string{"000001_init.down.sql", "000001_init.up.sql"}, names)
}

func TestSeedAdminIdempotent(t *testing.T) {
	gdb, cfg := openTestDB(t)
	require.NoError(t, Migrate(gdb, cfg, MigrateAuto, logging.Discard()))
	ctx := context.Background()
	acfg := config.AuthConfig{AdminEmail: "admin@paintms.com", AdminUsername: "admin", AdminPassword: "admin123"}

	first, err := SeedAdmin(ctx, gdb, acfg, logging.Discard())
	require.NoError(t, err)
	second, err := SeedAdmin(ctx, gdb, acfg, logging.Discard())
	require.NoError(t, err)
	assert.Equal(t, first.ID, second.ID)

	var n int64
	require.NoError(t, gdb.Model(&models.User{}).Count(&n).Error)
	assert.EqualValues(t, 1, n)
	assert.True(t, auth.CheckPassword(second.Password, "admin123"))
	require.NotNil(t, second.Username)
	assert.Equal(t, "admin", *second.Username)
}

func TestSeedCatalog(t *testing.T) {
	gdb, cfg := openTestDB(t)
	require.NoError(t, Migrate(gdb, cfg, MigrateAuto, logging.Discard()))
	ctx := context.Background()

	cat, err := LoadCatalog(filepath.Join("testdata", "catalog.yaml"))
	require.NoError(t, err)
	require.Len(t, cat.Products, 3)
	assert.Equal(t, "4500", cat.Products[0].Price.String())
	assert.Equal(t, "350", cat.Products[1].Price.String())

	n, err := SeedCatalog(ctx, gdb, cat, "DZ")
	require.NoError(t, err)
	assert.Equal(t, 5, n)
	n, err = SeedCatalog(ctx, gdb, cat, "DZ")
	require.NoError(t, err)
	assert.Zero(t, n, "second run inserts nothing")

	var p models.Product
	require.NoError(t, gdb.Where("name = ?", "Pinceau plat 50mm").First(&p).Error)
	assert.Equal(t, models.DefaultUnit, p.Unit)

	var c models.Client
	require.NoError(t, gdb.Where("name = ?", "Quincaillerie Amine").First(&c).Error)
	assert.Equal(t, "+213555123456", c.PhoneNumber())

	_, err = LoadCatalog(filepath.Join("testdata", "missing.yaml"))
	assert.Error(t, err)
}
