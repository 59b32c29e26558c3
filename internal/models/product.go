package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// DefaultUnit is the unit label used when none is given.
const DefaultUnit = "unité"

// Product represents an item of the catalog that can be invoiced.
type Product struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	Name        string          `gorm:"size:100;not null" json:"name"`
	Price       decimal.Decimal `gorm:"type:decimal(20,4);not null" json:"price"`
	Unit        string          `gorm:"size:50;not null" json:"unit"`
	Description string          `gorm:"type:text" json:"description"`
}

// UnitLabel returns the unit, falling back to DefaultUnit.
func (p *Product) UnitLabel() string {
	if p.Unit == "" {
		return DefaultUnit
	}
	return p.Unit
}
