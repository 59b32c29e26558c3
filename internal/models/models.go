package models

import (
	"math"

	"github.com/shopspring/decimal"
)

// MaxQuantity is the largest quantity an invoice_items.quantity INTEGER column holds.
const MaxQuantity = math.MaxInt32

// MaxAmount is the exclusive upper bound of a decimal(20,4) money column.
var MaxAmount = decimal.New(1, 16)

func init() {
	// Amounts are exchanged as JSON numbers, not quoted strings.
	decimal.MarshalJSONWithoutQuotes = true
}

// All returns every persisted model in dependency order, for AutoMigrate.
func All() []any {
	return []any{
		&User{},
		&ActivityLog{},
		&Client{},
		&Product{},
		&Invoice{},
		&InvoiceItem{},
	}
}
