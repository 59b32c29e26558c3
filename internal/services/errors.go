package services

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/diewo77/paintms/internal/validation"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// ErrNotFound matches every *NotFoundError.
var ErrNotFound = errors.New("not found")

// ValidationError reports malformed or missing input. Nothing was written.
type ValidationError struct {
	Violations validation.Violations
}

func (e *ValidationError) Error() string {
	fields := make([]string, 0, len(e.Violations))
	for f, code := range e.Violations {
		fields = append(fields, f+"="+code)
	}
	sort.Strings(fields)
	return "validation failed: " + strings.Join(fields, ", ")
}

func invalid(field, code string) *ValidationError {
	return &ValidationError{Violations: validation.Violations{field: code}}
}

// NotFoundError reports referenced records that do not exist.
type NotFoundError struct {
	Resource string // client, product, invoice, user
	IDs      []uint
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s not found: %v", e.Resource, e.IDs)
}

func (e *NotFoundError) Is(target error) bool { return target == ErrNotFound }

func notFound(resource string, ids ...uint) *NotFoundError {
	return &NotFoundError{Resource: resource, IDs: ids}
}

// InvoiceRef identifies an invoice blocking a deletion.
type InvoiceRef struct {
	ID     uint            `json:"id"`
	Number string          `json:"invoice_number" gorm:"column:invoice_number"`
	Total  decimal.Decimal `json:"total"`
	Paid   bool            `json:"paid"`
}

// ConflictError reports a deletion refused because invoices still reference the record.
type ConflictError struct {
	Resource string
	ID       uint
	Message  string
	Invoices []InvoiceRef
}

func (e *ConflictError) Error() string { return e.Message }

// Numbers lists the blocking invoice numbers.
func (e *ConflictError) Numbers() []string {
	out := make([]string, len(e.Invoices))
	for i, ref := range e.Invoices {
		out[i] = ref.Number
	}
	return out
}

// InconsistencyError reports an invoice whose stored total does not match its items.
type InconsistencyError struct {
	Op        string
	InvoiceID uint
	Expected  decimal.Decimal
	Actual    decimal.Decimal
}

func (e *InconsistencyError) Error() string {
	return fmt.Sprintf("%s: invoice %d total %s does not match items sum %s", e.Op, e.InvoiceID, e.Expected, e.Actual)
}

// lookupErr converts a missing row into a NotFoundError.
func lookupErr(err error, resource string, id uint) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return notFound(resource, id)
	}
	return err
}

// isUniqueViolation detects unique index violations across drivers.
func isUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "unique constraint") ||
		strings.Contains(msg, "duplicate key") ||
		strings.Contains(msg, "duplicate entry")
}
