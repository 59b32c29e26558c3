package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/diewo77/paintms/internal/models"
	"github.com/diewo77/paintms/internal/validation"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// moneyScale is the number of decimals stored for amounts.
const moneyScale = 4

// InvoiceInput is an invoice submission after boundary parsing.
// On update a nil Date or DueDate keeps the stored value; ClearDue removes the due date.
type InvoiceInput struct {
	ClientID uint
	Items    []Line
	Note     string
	Date     *time.Time
	DueDate  *time.Time
	ClearDue bool
}

func (in InvoiceInput) validate() validation.Violations {
	v := make(validation.Violations)
	if in.ClientID == 0 {
		v.Add("client_id", "required")
	}
	if len(in.Items) == 0 {
		v.Add("items", "required")
	}
	for i, it := range in.Items {
		prefix := fmt.Sprintf("items[%d]", i)
		if it.ProductID == 0 {
			v.Add(prefix+".product_id", "required")
		}
		if it.Quantity < 0 {
			v.Add(prefix+".quantity", "must_be_positive")
		}
		validation.MaxInt(prefix+".quantity", it.Quantity, models.MaxQuantity, v)
		validation.NonNegativeDecimal(prefix+".unit_price", it.UnitPrice, v)
		validation.BelowDecimal(prefix+".unit_price", it.UnitPrice, models.MaxAmount, v)
	}
	if in.Date != nil && in.DueDate != nil && in.DueDate.Before(*in.Date) {
		v.Add("due_date", "before_date")
	}
	return v
}

// InvoiceFilter narrows List. Zero values mean no filter.
type InvoiceFilter struct {
	ClientID uint
	Paid     *bool
	From     *time.Time // inclusive
	To       *time.Time // exclusive
	Page     int
	Limit    int
}

// InvoicePage is one page of invoices, newest first.
type InvoicePage struct {
	Invoices []models.Invoice `json:"invoices"`
	Total    int64            `json:"total"`
	Page     int              `json:"page"`
	Limit    int              `json:"limit"`
}

// InvoiceService runs the invoice lifecycle: create, update, pay/unpay, delete and print.
type InvoiceService struct {
	db      *gorm.DB
	log     logrus.FieldLogger
	locker  Locker
	retries int
	now     func() time.Time
}

func NewInvoiceService(db *gorm.DB, log logrus.FieldLogger) *InvoiceService {
	return &InvoiceService{db: db, log: log, locker: noopLocker{}, retries: 5, now: time.Now}
}

// WithLocker serialises number assignment with l.
func (s *InvoiceService) WithLocker(l Locker) *InvoiceService {
	if l != nil {
		s.locker = l
	}
	return s
}

// WithNumberRetries sets how many times a create is retried after a number collision.
func (s *InvoiceService) WithNumberRetries(n int) *InvoiceService {
	if n >= 0 {
		s.retries = n
	}
	return s
}

// Create validates, prices, merges and stores a new invoice with its items.
func (s *InvoiceService) Create(ctx context.Context, in InvoiceInput) (*models.Invoice, error) {
	if v := in.validate(); !v.Empty() {
		return nil, &ValidationError{Violations: v}
	}
	release := s.lockNumbering(ctx)
	defer release()

	var id uint
	var err error
	for attempt := 0; ; attempt++ {
		err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			if err := ensureClient(tx, in.ClientID); err != nil {
				return err
			}
			lines, total, err := resolveLines(tx, in.Items)
			if err != nil {
				return err
			}
			now := s.now()
			number, err := nextInvoiceNumber(tx, now)
			if err != nil {
				return fmt.Errorf("assign invoice number: %w", err)
			}
			inv := models.Invoice{
				Number:   number,
				ClientID: in.ClientID,
				Date:     now,
				DueDate:  in.DueDate,
				Total:    total,
				Note:     in.Note,
			}
			if in.Date != nil {
				inv.Date = *in.Date
			}
			if err := tx.Omit(clause.Associations).Create(&inv).Error; err != nil {
				if isUniqueViolation(err) {
					return errNumberTaken
				}
				return fmt.Errorf("insert invoice: %w", err)
			}
			if err := insertItems(tx, inv.ID, lines); err != nil {
				return err
			}
			if err := verifyTotal(tx, "create", inv.ID, total); err != nil {
				return err
			}
			id = inv.ID
			return nil
		})
		if !errors.Is(err, errNumberTaken) || attempt >= s.retries {
			break
		}
		s.log.WithField("attempt", attempt+1).Warn("invoice number taken, retrying")
	}
	if err != nil {
		return nil, err
	}
	return s.Get(ctx, id)
}

// Update replaces the client, note, dates and the whole item set of an invoice.
// The number and the paid flag are kept, and so are dates the input leaves nil.
func (s *InvoiceService) Update(ctx context.Context, id uint, in InvoiceInput) (*models.Invoice, error) {
	if v := in.validate(); !v.Empty() {
		return nil, &ValidationError{Violations: v}
	}
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var inv models.Invoice
		if err := tx.First(&inv, id).Error; err != nil {
			return lookupErr(err, "invoice", id)
		}
		if err := ensureClient(tx, in.ClientID); err != nil {
			return err
		}
		if err := tx.Where("invoice_id = ?", id).Delete(&models.InvoiceItem{}).Error; err != nil {
			return fmt.Errorf("delete items: %w", err)
		}
		lines, total, err := resolveLines(tx, in.Items)
		if err != nil {
			return err
		}
		updates := map[string]any{
			"client_id": in.ClientID,
			"total":     total,
			"note":      in.Note,
		}
		if in.Date != nil {
			updates["date"] = *in.Date
		}
		if in.DueDate != nil {
			updates["due_date"] = *in.DueDate
		} else if in.ClearDue {
			updates["due_date"] = nil
		}
		if err := tx.Model(&inv).Updates(updates).Error; err != nil {
			return fmt.Errorf("update invoice: %w", err)
		}
		if err := insertItems(tx, id, lines); err != nil {
			return err
		}
		return verifyTotal(tx, "update", id, total)
	})
	if err != nil {
		return nil, err
	}
	return s.Get(ctx, id)
}

// MarkPaid sets the paid flag. Marking a paid invoice again only refreshes updated_at.
func (s *InvoiceService) MarkPaid(ctx context.Context, id uint) (*models.Invoice, error) {
	return s.setPaid(ctx, id, true)
}

// MarkUnpaid clears the paid flag.
func (s *InvoiceService) MarkUnpaid(ctx context.Context, id uint) (*models.Invoice, error) {
	return s.setPaid(ctx, id, false)
}

func (s *InvoiceService) setPaid(ctx context.Context, id uint, paid bool) (*models.Invoice, error) {
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var inv models.Invoice
		if err := tx.Select("id").First(&inv, id).Error; err != nil {
			return lookupErr(err, "invoice", id)
		}
		return tx.Model(&inv).Updates(map[string]any{"paid": paid}).Error
	})
	if err != nil {
		return nil, err
	}
	return s.Get(ctx, id)
}

// Delete removes the items, then the invoice. It returns the deleted invoice header.
func (s *InvoiceService) Delete(ctx context.Context, id uint) (*models.Invoice, error) {
	var inv models.Invoice
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&inv, id).Error; err != nil {
			return lookupErr(err, "invoice", id)
		}
		if err := tx.Where("invoice_id = ?", id).Delete(&models.InvoiceItem{}).Error; err != nil {
			return fmt.Errorf("delete items: %w", err)
		}
		if err := tx.Delete(&inv).Error; err != nil {
			return fmt.Errorf("delete invoice: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &inv, nil
}

// Get loads an invoice with its client and its items (in insertion order) with their products.
func (s *InvoiceService) Get(ctx context.Context, id uint) (*models.Invoice, error) {
	var inv models.Invoice
	err := s.db.WithContext(ctx).
		Preload("Client").
		Preload("Items", func(db *gorm.DB) *gorm.DB { return db.Order("invoice_items.id") }).
		Preload("Items.Product").
		First(&inv, id).Error
	if err != nil {
		return nil, lookupErr(err, "invoice", id)
	}
	return &inv, nil
}

// Printable returns the full snapshot used by the print and PDF renderers.
// An invoice whose stored total disagrees with its items is reported, not printed.
func (s *InvoiceService) Printable(ctx context.Context, id uint) (*models.Invoice, error) {
	inv, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if sum := inv.ItemsTotal(); !sum.Round(moneyScale).Equal(inv.Total.Round(moneyScale)) {
		return nil, &InconsistencyError{Op: "print", InvoiceID: inv.ID, Expected: inv.Total, Actual: sum}
	}
	return inv, nil
}

// List returns invoices matching f, newest first.
func (s *InvoiceService) List(ctx context.Context, f InvoiceFilter) (*InvoicePage, error) {
	if f.Page < 1 {
		f.Page = 1
	}
	if f.Limit < 1 {
		f.Limit = 50
	}
	filter := func(db *gorm.DB) *gorm.DB {
		if f.ClientID != 0 {
			db = db.Where("client_id = ?", f.ClientID)
		}
		if f.Paid != nil {
			db = db.Where("paid = ?", *f.Paid)
		}
		if f.From != nil {
			db = db.Where("date >= ?", *f.From)
		}
		if f.To != nil {
			db = db.Where("date < ?", *f.To)
		}
		return db
	}
	page := &InvoicePage{Invoices: []models.Invoice{}, Page: f.Page, Limit: f.Limit}
	if err := s.db.WithContext(ctx).Model(&models.Invoice{}).Scopes(filter).Count(&page.Total).Error; err != nil {
		return nil, fmt.Errorf("count invoices: %w", err)
	}
	err := s.db.WithContext(ctx).Scopes(filter).
		Preload("Client").
		Preload("Items", func(db *gorm.DB) *gorm.DB { return db.Order("invoice_items.id") }).
		Preload("Items.Product").
		Order("date DESC, id DESC").
		Limit(f.Limit).Offset((f.Page - 1) * f.Limit).
		Find(&page.Invoices).Error
	if err != nil {
		return nil, fmt.Errorf("list invoices: %w", err)
	}
	return page, nil
}

func (s *InvoiceService) lockNumbering(ctx context.Context) func() {
	release, err := s.locker.Obtain(ctx, numberLockKey, 10*time.Second)
	if err != nil {
		s.log.WithError(err).Warn("could not obtain invoice number lock; proceeding without lock")
		return func() {}
	}
	return release
}

func ensureClient(tx *gorm.DB, id uint) error {
	var c models.Client
	if err := tx.Select("id").First(&c, id).Error; err != nil {
		return lookupErr(err, "client", id)
	}
	return nil
}

// resolveLines hydrates prices from the catalog, merges duplicates and totals the result.
func resolveLines(tx *gorm.DB, items []Line) ([]Line, decimal.Decimal, error) {
	var products []models.Product
	if err := tx.Select("id", "price").Where("id IN ?", DistinctProductIDs(items)).Find(&products).Error; err != nil {
		return nil, decimal.Zero, fmt.Errorf("load prices: %w", err)
	}
	prices := make(map[uint]decimal.Decimal, len(products))
	for _, p := range products {
		prices[p.ID] = p.Price
	}
	rounded := make([]Line, len(items))
	for i, it := range items {
		it.UnitPrice = it.UnitPrice.Round(moneyScale)
		rounded[i] = it
	}
	hydrated, missing := HydratePrices(rounded, prices)
	if len(missing) > 0 {
		return nil, decimal.Zero, notFound("product", missing...)
	}
	merged := MergeLines(hydrated)
	if err := checkBounds(merged); err != nil {
		return nil, decimal.Zero, err
	}
	return merged, TotalOf(merged), nil
}

// checkBounds rejects merged lines whose quantity or amounts no longer fit the columns.
func checkBounds(lines []Line) error {
	total := decimal.Zero
	for _, l := range lines {
		if l.Quantity > models.MaxQuantity {
			return invalid("items", "quantity_too_large")
		}
		lineTotal := l.Total()
		if lineTotal.GreaterThanOrEqual(models.MaxAmount) {
			return invalid("items", "amount_too_large")
		}
		total = total.Add(lineTotal)
	}
	if total.GreaterThanOrEqual(models.MaxAmount) {
		return invalid("total", "too_large")
	}
	return nil
}

func insertItems(tx *gorm.DB, invoiceID uint, lines []Line) error {
	items := make([]models.InvoiceItem, len(lines))
	for i, l := range lines {
		items[i] = models.InvoiceItem{
			InvoiceID: invoiceID,
			ProductID: l.ProductID,
			Quantity:  l.Quantity,
			UnitPrice: l.UnitPrice,
		}
		items[i].Total = items[i].LineTotal()
	}
	if err := tx.Omit(clause.Associations).Create(&items).Error; err != nil {
		return fmt.Errorf("insert items: %w", err)
	}
	return nil
}

// verifyTotal re-reads the stored item totals and aborts the transaction on drift.
func verifyTotal(tx *gorm.DB, op string, invoiceID uint, expected decimal.Decimal) error {
	var sum decimal.NullDecimal
	if err := tx.Model(&models.InvoiceItem{}).
		Select("SUM(total)").
		Where("invoice_id = ?", invoiceID).
		Row().Scan(&sum); err != nil {
		return fmt.Errorf("sum items: %w", err)
	}
	actual := decimal.Zero
	if sum.Valid {
		actual = sum.Decimal
	}
	if !actual.Round(moneyScale).Equal(expected.Round(moneyScale)) {
		return &InconsistencyError{Op: op, InvoiceID: invoiceID, Expected: expected, Actual: actual}
	}
	return nil
}
