package services

import (
	"context"
	"fmt"
	"strings"

	"github.com/diewo77/paintms/internal/models"
	"github.com/diewo77/paintms/internal/validation"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// ProductInput is a full product submission.
type ProductInput struct {
	Name        string
	Price       decimal.Decimal
	Unit        string
	Description string
}

// ProductPatch updates only the non-nil fields.
type ProductPatch struct {
	Name        *string
	Price       *decimal.Decimal
	Unit        *string
	Description *string
}

// ProductStats summarises how a product has been invoiced.
type ProductStats struct {
	TotalQuantitySold int64           `json:"total_quantity_sold"`
	TotalRevenue      decimal.Decimal `json:"total_revenue"`
	TimesUsed         int64           `json:"times_used"`
}

// ProductWithStats is a product with its usage summary.
type ProductWithStats struct {
	models.Product
	Statistics ProductStats `json:"statistics"`
}

type ProductService struct {
	db  *gorm.DB
	log logrus.FieldLogger
}

func NewProductService(db *gorm.DB, log logrus.FieldLogger) *ProductService {
	return &ProductService{db: db, log: log}
}

// List returns the catalog by name, optionally filtered on name and description.
func (s *ProductService) List(ctx context.Context, search string) ([]models.Product, error) {
	q := s.db.WithContext(ctx).Order("name").Order("id")
	if term := strings.TrimSpace(search); term != "" {
		like := "%" + strings.ToLower(term) + "%"
		q = q.Where("LOWER(name) LIKE ? OR LOWER(description) LIKE ?", like, like)
	}
	products := []models.Product{}
	if err := q.Find(&products).Error; err != nil {
		return nil, fmt.Errorf("list products: %w", err)
	}
	return products, nil
}

func (s *ProductService) Get(ctx context.Context, id uint) (*models.Product, error) {
	var p models.Product
	if err := s.db.WithContext(ctx).First(&p, id).Error; err != nil {
		return nil, lookupErr(err, "product", id)
	}
	return &p, nil
}

func (s *ProductService) Create(ctx context.Context, in ProductInput) (*models.Product, error) {
	v := make(validation.Violations)
	checkProductName(in.Name, v)
	validation.NonNegativeDecimal("price", in.Price, v)
	validation.BelowDecimal("price", in.Price, models.MaxAmount, v)
	validation.MaxLen("unit", in.Unit, 50, v)
	if !v.Empty() {
		return nil, &ValidationError{Violations: v}
	}
	p := models.Product{
		Name:        strings.TrimSpace(in.Name),
		Price:       in.Price.Round(moneyScale),
		Unit:        strings.TrimSpace(in.Unit),
		Description: in.Description,
	}
	if p.Unit == "" {
		p.Unit = models.DefaultUnit
	}
	if err := s.db.WithContext(ctx).Create(&p).Error; err != nil {
		return nil, fmt.Errorf("create product: %w", err)
	}
	return &p, nil
}

// Update applies a partial update. Existing invoices keep their price snapshots.
func (s *ProductService) Update(ctx context.Context, id uint, patch ProductPatch) (*models.Product, error) {
	v := make(validation.Violations)
	updates := map[string]any{}
	if patch.Name != nil {
		checkProductName(*patch.Name, v)
		updates["name"] = strings.TrimSpace(*patch.Name)
	}
	if patch.Price != nil {
		validation.NonNegativeDecimal("price", *patch.Price, v)
		validation.BelowDecimal("price", *patch.Price, models.MaxAmount, v)
		updates["price"] = patch.Price.Round(moneyScale)
	}
	if patch.Unit != nil {
		validation.MaxLen("unit", *patch.Unit, 50, v)
		unit := strings.TrimSpace(*patch.Unit)
		if unit == "" {
			unit = models.DefaultUnit
		}
		updates["unit"] = unit
	}
	if patch.Description != nil {
		updates["description"] = *patch.Description
	}
	if !v.Empty() {
		return nil, &ValidationError{Violations: v}
	}

	var p models.Product
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&p, id).Error; err != nil {
			return lookupErr(err, "product", id)
		}
		if len(updates) == 0 {
			return nil
		}
		if err := tx.Model(&p).Updates(updates).Error; err != nil {
			return err
		}
		return tx.First(&p, id).Error
	})
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// Delete removes a product no invoice item refers to. Otherwise it returns a
// *ConflictError listing the blocking invoices and deletes nothing.
func (s *ProductService) Delete(ctx context.Context, id uint) (*models.Product, error) {
	var p models.Product
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&p, id).Error; err != nil {
			return lookupErr(err, "product", id)
		}
		refs, err := productInvoiceRefs(tx, id)
		if err != nil {
			return fmt.Errorf("load product invoices: %w", err)
		}
		if len(refs) > 0 {
			return productConflict(id, refs)
		}
		return tx.Delete(&p).Error
	})
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// WithStats returns the catalog by name with usage figures from invoice items.
func (s *ProductService) WithStats(ctx context.Context) ([]ProductWithStats, error) {
	var products []models.Product
	if err := s.db.WithContext(ctx).Order("name").Order("id").Find(&products).Error; err != nil {
		return nil, fmt.Errorf("list products: %w", err)
	}
	type row struct {
		ProductID         uint
		TotalQuantitySold int64
		TotalRevenue      decimal.Decimal
		TimesUsed         int64
	}
	var rows []row
	err := s.db.WithContext(ctx).Model(&models.InvoiceItem{}).
		Select(`product_id,
			COALESCE(SUM(quantity), 0) AS total_quantity_sold,
			COALESCE(SUM(total), 0) AS total_revenue,
			COUNT(*) AS times_used`).
		Group("product_id").
		Scan(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("product stats: %w", err)
	}
	byID := make(map[uint]row, len(rows))
	for _, r := range rows {
		byID[r.ProductID] = r
	}
	out := make([]ProductWithStats, len(products))
	for i, p := range products {
		r := byID[p.ID]
		out[i] = ProductWithStats{Product: p, Statistics: ProductStats{
			TotalQuantitySold: r.TotalQuantitySold,
			TotalRevenue:      r.TotalRevenue,
			TimesUsed:         r.TimesUsed,
		}}
	}
	return out, nil
}

func checkProductName(name string, v validation.Violations) {
	validation.Required("name", name, v)
	validation.MaxLen("name", name, 100, v)
}
