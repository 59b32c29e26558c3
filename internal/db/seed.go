package db

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/diewo77/paintms/internal/auth"
	"github.com/diewo77/paintms/internal/config"
	"github.com/diewo77/paintms/internal/models"
	"github.com/diewo77/paintms/internal/phone"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"
	"gorm.io/gorm"
)

// SeedAdmin creates the bootstrap account unless a user with its email exists.
func SeedAdmin(ctx context.Context, gdb *gorm.DB, cfg config.AuthConfig, log logrus.FieldLogger) (*models.User, error) {
	var existing models.User
	err := gdb.WithContext(ctx).Where("email = ?", cfg.AdminEmail).First(&existing).Error
	if err == nil {
		log.WithField("email", existing.Email).Info("admin user already exists")
		return &existing, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("find admin: %w", err)
	}
	hash, err := auth.HashPassword(cfg.AdminPassword)
	if err != nil {
		return nil, fmt.Errorf("hash admin password: %w", err)
	}
	admin := models.User{
		Email:     cfg.AdminEmail,
		Name:      "Admin PaintMS",
		Password:  hash,
		LoginType: "local",
		Language:  "fr",
	}
	if cfg.AdminUsername != "" {
		username := cfg.AdminUsername
		admin.Username = &username
	}
	if err := gdb.WithContext(ctx).Create(&admin).Error; err != nil {
		return nil, fmt.Errorf("create admin: %w", err)
	}
	log.WithField("email", admin.Email).Info("admin user created")
	return &admin, nil
}

// Catalog is the YAML document loaded by SeedCatalog.
//
//	products:
//	  - name: Peinture blanche 20L
//	    price: "4500.00"
//	    unit: seau
//	clients:
//	  - name: Quincaillerie Amine
//	    phone: "0555 12 34 56"
type Catalog struct {
	Products []CatalogProduct `yaml:"products"`
	Clients  []CatalogClient  `yaml:"clients"`
}

type CatalogProduct struct {
	Name        string          `yaml:"name"`
	Price       decimal.Decimal `yaml:"price"`
	Unit        string          `yaml:"unit"`
	Description string          `yaml:"description"`
}

type CatalogClient struct {
	Name    string `yaml:"name"`
	Phone   string `yaml:"phone"`
	Address string `yaml:"address"`
}

// LoadCatalog reads a catalog file.
func LoadCatalog(path string) (*Catalog, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var c Catalog
	if err := yaml.Unmarshal(b, &c); err != nil {
		return nil, fmt.Errorf("parse catalog %s: %w", path, err)
	}
	return &c, nil
}

// SeedCatalog inserts the products and clients of c that do not exist yet.
// Products match on name, clients on normalised phone or, without phone, on name.
// It returns how many rows were inserted.
func SeedCatalog(ctx context.Context, gdb *gorm.DB, c *Catalog, region string) (int, error) {
	inserted := 0
	err := gdb.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for i, p := range c.Products {
			name := strings.TrimSpace(p.Name)
			if name == "" || p.Price.IsNegative() {
				return fmt.Errorf("products[%d]: name required and price must not be negative", i)
			}
			var n int64
			if err := tx.Model(&models.Product{}).Where("name = ?", name).Count(&n).Error; err != nil {
				return err
			}
			if n > 0 {
				continue
			}
			unit := strings.TrimSpace(p.Unit)
			if unit == "" {
				unit = models.DefaultUnit
			}
			row := models.Product{Name: name, Price: p.Price, Unit: unit, Description: p.Description}
			if err := tx.Create(&row).Error; err != nil {
				return fmt.Errorf("products[%d]: %w", i, err)
			}
			inserted++
		}
		for i, cl := range c.Clients {
			name := strings.TrimSpace(cl.Name)
			if name == "" {
				return fmt.Errorf("clients[%d]: name required", i)
			}
			ph, err := phone.Ptr(cl.Phone, region)
			if err != nil {
				return fmt.Errorf("clients[%d]: %w", i, err)
			}
			q := tx.Model(&models.Client{})
			if ph != nil {
				q = q.Where("phone = ?", *ph)
			} else {
				q = q.Where("name = ?", name)
			}
			var n int64
			if err := q.Count(&n).Error; err != nil {
				return err
			}
			if n > 0 {
				continue
			}
			row := models.Client{Name: name, Phone: ph, Address: strings.TrimSpace(cl.Address)}
			if err := tx.Create(&row).Error; err != nil {
				return fmt.Errorf("clients[%d]: %w", i, err)
			}
			inserted++
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return inserted, nil
}
