package services

import (
	"fmt"
	"strings"

	"github.com/diewo77/paintms/internal/models"
	"gorm.io/gorm"
)

// clientInvoiceRefs lists the invoices owned by a client, oldest first.
func clientInvoiceRefs(tx *gorm.DB, clientID uint) ([]InvoiceRef, error) {
	var refs []InvoiceRef
	err := tx.Model(&models.Invoice{}).
		Select("id", "invoice_number", "total", "paid").
		Where("client_id = ?", clientID).
		Order("id").
		Scan(&refs).Error
	return refs, err
}

// productInvoiceRefs lists the distinct invoices having at least one item for a product.
func productInvoiceRefs(tx *gorm.DB, productID uint) ([]InvoiceRef, error) {
	var refs []InvoiceRef
	err := tx.Model(&models.Invoice{}).
		Select("id", "invoice_number", "total", "paid").
		Where("id IN (?)", tx.Model(&models.InvoiceItem{}).Select("invoice_id").Where("product_id = ?", productID)).
		Order("id").
		Scan(&refs).Error
	return refs, err
}

func clientConflict(id uint, refs []InvoiceRef) *ConflictError {
	c := &ConflictError{Resource: "client", ID: id, Invoices: refs}
	c.Message = fmt.Sprintf("Ce client a %d facture(s): %s. Supprimez d'abord ces factures.",
		len(refs), strings.Join(c.Numbers(), ", "))
	return c
}

func productConflict(id uint, refs []InvoiceRef) *ConflictError {
	c := &ConflictError{Resource: "product", ID: id, Invoices: refs}
	c.Message = fmt.Sprintf("Ce produit est utilisé dans les factures suivantes: %s. Supprimez d'abord ces factures ou modifiez-les.",
		strings.Join(c.Numbers(), ", "))
	return c
}
