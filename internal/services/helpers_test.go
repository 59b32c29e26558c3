package services

import (
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/diewo77/paintms/internal/logging"
	"github.com/diewo77/paintms/internal/models"
	"github.com/shopspring/decimal"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	_ "modernc.org/sqlite"
)

func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared&_pragma=foreign_keys(1)", name)
	db, err := gorm.Open(sqlite.New(sqlite.Config{DriverName: "sqlite", DSN: dsn}), &gorm.Config{TranslateError: true})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("sql db: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })
	if err := db.AutoMigrate(models.All()...); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return db
}

type fixtures struct {
	client  models.Client
	other   models.Client
	paint   models.Product // 10
	brush   models.Product // 2.5
	thinner models.Product // 7.25
}

func seedFixtures(t *testing.T, db *gorm.DB) fixtures {
	t.Helper()
	var f fixtures
	phone := "+213555123456"
	f.client = models.Client{Name: "Quincaillerie Amine", Phone: &phone, Address: "Rue 1, Oran"}
	f.other = models.Client{Name: "Batiplus"}
	for _, c := range []*models.Client{&f.client, &f.other} {
		if err := db.Create(c).Error; err != nil {
			t.Fatalf("client: %v", err)
		}
	}
	f.paint = models.Product{Name: "Peinture blanche 20L", Price: decimal.NewFromInt(10), Unit: "seau"}
	f.brush = models.Product{Name: "Pinceau", Price: decimal.RequireFromString("2.5"), Unit: models.DefaultUnit}
	f.thinner = models.Product{Name: "Diluant", Price: decimal.RequireFromString("7.25"), Unit: "litre"}
	for _, p := range []*models.Product{&f.paint, &f.brush, &f.thinner} {
		if err := db.Create(p).Error; err != nil {
			t.Fatalf("product: %v", err)
		}
	}
	return f
}

func newTestInvoiceService(db *gorm.DB, day time.Time) *InvoiceService {
	s := NewInvoiceService(db, logging.Discard())
	s.now = func() time.Time { return day }
	return s
}
