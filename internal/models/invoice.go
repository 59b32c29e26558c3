package models

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// NumberPrefix starts every invoice number.
const NumberPrefix = "PMS"

// Invoice represents a billing document for one client.
type Invoice struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	// Invoice identification, PMS-YYYYMMDD-NNN
	Number string `gorm:"column:invoice_number;size:32;not null;uniqueIndex" json:"invoice_number"`

	// Client relationship
	ClientID uint    `gorm:"index;not null" json:"client_id"`
	Client   *Client `gorm:"foreignKey:ClientID;constraint:OnUpdate:CASCADE,OnDelete:RESTRICT" json:"client,omitempty"`

	Date    time.Time  `gorm:"index;not null" json:"date"`
	DueDate *time.Time `json:"due_date"`
	Paid    bool       `gorm:"not null" json:"paid"`

	// Total is the sum of the item totals at the time of the last write.
	Total decimal.Decimal `gorm:"type:decimal(20,4);not null" json:"total"`
	Note  string          `gorm:"type:text" json:"note"`

	Items []InvoiceItem `gorm:"foreignKey:InvoiceID;constraint:OnDelete:RESTRICT" json:"items"`
}

// StatusLabel returns the French payment status printed on documents.
func (i *Invoice) StatusLabel() string {
	if i.Paid {
		return "Payé"
	}
	return "Non payé"
}

// ItemsTotal sums the line totals of the loaded items.
func (i *Invoice) ItemsTotal() decimal.Decimal {
	total := decimal.Zero
	for _, item := range i.Items {
		total = total.Add(item.Total)
	}
	return total
}

// ClientName returns the client name or a placeholder when the client is not loaded.
func (i *Invoice) ClientName() string {
	if i.Client == nil || i.Client.Name == "" {
		return "Client inconnu"
	}
	return i.Client.Name
}

// InvoiceItem represents one line of an invoice.
// UnitPrice is a snapshot of the product price when the line was written.
type InvoiceItem struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	InvoiceID uint `gorm:"not null;index;uniqueIndex:idx_invoice_items_invoice_product" json:"invoice_id"`

	ProductID uint     `gorm:"not null;index;uniqueIndex:idx_invoice_items_invoice_product" json:"product_id"`
	Product   *Product `gorm:"foreignKey:ProductID;constraint:OnUpdate:CASCADE,OnDelete:RESTRICT" json:"product,omitempty"`

	Quantity  int             `gorm:"not null" json:"quantity"`
	UnitPrice decimal.Decimal `gorm:"type:decimal(20,4);not null" json:"unit_price"`
	Total     decimal.Decimal `gorm:"type:decimal(20,4);not null" json:"total"`
}

// LineTotal calculates quantity × unit price.
func (item *InvoiceItem) LineTotal() decimal.Decimal {
	return item.UnitPrice.Mul(decimal.NewFromInt(int64(item.Quantity)))
}

// ProductName returns the product name or a placeholder when the product is not loaded.
func (item *InvoiceItem) ProductName() string {
	if item.Product == nil || item.Product.Name == "" {
		return "Produit inconnu"
	}
	return item.Product.Name
}

// UnitLabel returns the unit of the product, or DefaultUnit when the product is not loaded.
func (item *InvoiceItem) UnitLabel() string {
	if item.Product == nil {
		return DefaultUnit
	}
	return item.Product.UnitLabel()
}

// FormatInvoiceNumber builds an invoice number for a day and a running sequence.
// Format: PMS-YYYYMMDD-NNN (e.g., PMS-20250314-007)
func FormatInvoiceNumber(day time.Time, seq int) string {
	return fmt.Sprintf("%s-%s-%03d", NumberPrefix, day.Format("20060102"), seq)
}

// NumberDayPrefix returns the part of the invoice number shared by every invoice of a day.
func NumberDayPrefix(day time.Time) string {
	return fmt.Sprintf("%s-%s-", NumberPrefix, day.Format("20060102"))
}
