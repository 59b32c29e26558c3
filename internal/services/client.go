package services

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/diewo77/paintms/internal/models"
	"github.com/diewo77/paintms/internal/phone"
	"github.com/diewo77/paintms/internal/validation"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// ClientInput is a full client submission.
type ClientInput struct {
	Name    string
	Phone   string
	Address string
}

// ClientPatch updates only the non-nil fields.
type ClientPatch struct {
	Name    *string
	Phone   *string
	Address *string
}

// ClientQuery drives List.
type ClientQuery struct {
	Search    string
	Page      int
	Limit     int
	SortBy    string // name, created_at or updated_at
	SortOrder string // asc or desc
}

// Pagination describes one page of a listing.
type Pagination struct {
	Current      int   `json:"current"`
	Total        int   `json:"total"`
	Count        int   `json:"count"`
	TotalRecords int64 `json:"total_records"`
}

// ClientPage is the result of List.
type ClientPage struct {
	Clients    []models.Client `json:"clients"`
	Pagination Pagination      `json:"pagination"`
}

// ClientStats summarises the invoices of one client.
type ClientStats struct {
	TotalInvoices  int64           `json:"total_invoices"`
	TotalAmount    decimal.Decimal `json:"total_amount"`
	PaidAmount     decimal.Decimal `json:"paid_amount"`
	UnpaidAmount   decimal.Decimal `json:"unpaid_amount"`
	PaidInvoices   int64           `json:"paid_invoices"`
	UnpaidInvoices int64           `json:"unpaid_invoices"`
}

// ClientWithStats is a client with its invoice summary.
type ClientWithStats struct {
	models.Client
	Statistics ClientStats `json:"statistics"`
}

// ClientDetail is a client with its invoices, newest first, and their summary.
type ClientDetail struct {
	models.Client
	Invoices   []InvoiceRef `json:"invoices"`
	Statistics ClientStats  `json:"statistics"`
}

var clientSortColumns = map[string]string{
	"name":       "name",
	"created_at": "created_at",
	"updated_at": "updated_at",
}

type ClientService struct {
	db     *gorm.DB
	log    logrus.FieldLogger
	region string
}

// NewClientService returns a service normalising phones for region (ISO code, e.g. "DZ").
func NewClientService(db *gorm.DB, log logrus.FieldLogger, region string) *ClientService {
	return &ClientService{db: db, log: log, region: region}
}

func (s *ClientService) List(ctx context.Context, q ClientQuery) (*ClientPage, error) {
	if q.Page < 1 {
		q.Page = 1
	}
	if q.Limit < 1 {
		q.Limit = 50
	}
	search := func(db *gorm.DB) *gorm.DB {
		term := strings.TrimSpace(q.Search)
		if term == "" {
			return db
		}
		like := "%" + strings.ToLower(term) + "%"
		return db.Where("LOWER(name) LIKE ? OR LOWER(phone) LIKE ? OR LOWER(address) LIKE ?", like, like, like)
	}

	var total int64
	if err := s.db.WithContext(ctx).Model(&models.Client{}).Scopes(search).Count(&total).Error; err != nil {
		return nil, fmt.Errorf("count clients: %w", err)
	}

	col, ok := clientSortColumns[q.SortBy]
	if !ok {
		col = "name"
	}
	dir := "ASC"
	if strings.EqualFold(q.SortOrder, "desc") {
		dir = "DESC"
	}
	clients := []models.Client{}
	err := s.db.WithContext(ctx).Scopes(search).
		Order(col + " " + dir).Order("id").
		Limit(q.Limit).Offset((q.Page - 1) * q.Limit).
		Find(&clients).Error
	if err != nil {
		return nil, fmt.Errorf("list clients: %w", err)
	}
	return &ClientPage{
		Clients: clients,
		Pagination: Pagination{
			Current:      q.Page,
			Total:        int((total + int64(q.Limit) - 1) / int64(q.Limit)),
			Count:        len(clients),
			TotalRecords: total,
		},
	}, nil
}

// Get returns a client with its invoices and their summary.
func (s *ClientService) Get(ctx context.Context, id uint) (*ClientDetail, error) {
	var c models.Client
	if err := s.db.WithContext(ctx).First(&c, id).Error; err != nil {
		return nil, lookupErr(err, "client", id)
	}
	refs := []InvoiceRef{}
	err := s.db.WithContext(ctx).Model(&models.Invoice{}).
		Select("id", "invoice_number", "total", "paid").
		Where("client_id = ?", id).
		Order("date DESC, id DESC").
		Scan(&refs).Error
	if err != nil {
		return nil, fmt.Errorf("load client invoices: %w", err)
	}
	return &ClientDetail{Client: c, Invoices: refs, Statistics: statsFromRefs(refs)}, nil
}

func (s *ClientService) Create(ctx context.Context, in ClientInput) (*models.Client, error) {
	v := make(validation.Violations)
	validation.Required("name", in.Name, v)
	validation.MaxLen("name", in.Name, 100, v)
	validation.MaxLen("address", in.Address, 500, v)
	ph, err := phone.Ptr(in.Phone, s.region)
	if err != nil {
		v.Add("phone", "invalid_phone")
	}
	if !v.Empty() {
		return nil, &ValidationError{Violations: v}
	}

	c := models.Client{
		Name:    strings.TrimSpace(in.Name),
		Phone:   ph,
		Address: strings.TrimSpace(in.Address),
	}
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := ensurePhoneFree(tx, ph, 0); err != nil {
			return err
		}
		return tx.Create(&c).Error
	})
	if err != nil {
		return nil, phoneConflict(err)
	}
	return &c, nil
}

func (s *ClientService) Update(ctx context.Context, id uint, p ClientPatch) (*models.Client, error) {
	v := make(validation.Violations)
	updates := map[string]any{}
	if p.Name != nil {
		validation.Required("name", *p.Name, v)
		validation.MaxLen("name", *p.Name, 100, v)
		updates["name"] = strings.TrimSpace(*p.Name)
	}
	if p.Address != nil {
		validation.MaxLen("address", *p.Address, 500, v)
		updates["address"] = strings.TrimSpace(*p.Address)
	}
	var ph *string
	if p.Phone != nil {
		var err error
		if ph, err = phone.Ptr(*p.Phone, s.region); err != nil {
			v.Add("phone", "invalid_phone")
		}
		updates["phone"] = ph
	}
	if !v.Empty() {
		return nil, &ValidationError{Violations: v}
	}

	var c models.Client
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&c, id).Error; err != nil {
			return lookupErr(err, "client", id)
		}
		if p.Phone != nil {
			if err := ensurePhoneFree(tx, ph, id); err != nil {
				return err
			}
		}
		if len(updates) == 0 {
			return nil
		}
		if err := tx.Model(&c).Updates(updates).Error; err != nil {
			return err
		}
		return tx.First(&c, id).Error
	})
	if err != nil {
		return nil, phoneConflict(err)
	}
	return &c, nil
}

// Delete removes a client that owns no invoice. Otherwise it returns a
// *ConflictError listing the blocking invoices and deletes nothing.
func (s *ClientService) Delete(ctx context.Context, id uint) (*models.Client, error) {
	var c models.Client
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&c, id).Error; err != nil {
			return lookupErr(err, "client", id)
		}
		refs, err := clientInvoiceRefs(tx, id)
		if err != nil {
			return fmt.Errorf("load client invoices: %w", err)
		}
		if len(refs) > 0 {
			return clientConflict(id, refs)
		}
		return tx.Delete(&c).Error
	})
	if err != nil {
		return nil, err
	}
	return &c, nil
}

// WithStats returns every client, by name, with its invoice summary.
func (s *ClientService) WithStats(ctx context.Context) ([]ClientWithStats, error) {
	var clients []models.Client
	if err := s.db.WithContext(ctx).Order("name").Order("id").Find(&clients).Error; err != nil {
		return nil, fmt.Errorf("list clients: %w", err)
	}
	stats, err := s.groupedStats(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]ClientWithStats, len(clients))
	for i, c := range clients {
		out[i] = ClientWithStats{Client: c, Statistics: stats[c.ID].finish()}
	}
	return out, nil
}

// Top returns the limit clients with the highest invoiced amount.
func (s *ClientService) Top(ctx context.Context, limit int) ([]ClientWithStats, error) {
	if limit < 1 {
		limit = 5
	}
	all, err := s.WithStats(ctx)
	if err != nil {
		return nil, err
	}
	sort.SliceStable(all, func(i, j int) bool {
		return all[i].Statistics.TotalAmount.GreaterThan(all[j].Statistics.TotalAmount)
	})
	if len(all) > limit {
		all = all[:limit]
	}
	return all, nil
}

type clientStatsRow struct {
	ClientID      uint
	TotalInvoices int64
	TotalAmount   decimal.Decimal
	PaidAmount    decimal.Decimal
	PaidInvoices  int64
}

func (r clientStatsRow) finish() ClientStats {
	return ClientStats{
		TotalInvoices:  r.TotalInvoices,
		TotalAmount:    r.TotalAmount,
		PaidAmount:     r.PaidAmount,
		UnpaidAmount:   r.TotalAmount.Sub(r.PaidAmount),
		PaidInvoices:   r.PaidInvoices,
		UnpaidInvoices: r.TotalInvoices - r.PaidInvoices,
	}
}

func (s *ClientService) groupedStats(ctx context.Context) (map[uint]clientStatsRow, error) {
	var rows []clientStatsRow
	err := s.db.WithContext(ctx).Model(&models.Invoice{}).
		Select(`client_id,
			COUNT(*) AS total_invoices,
			COALESCE(SUM(total), 0) AS total_amount,
			COALESCE(SUM(CASE WHEN paid THEN total ELSE 0 END), 0) AS paid_amount,
			COALESCE(SUM(CASE WHEN paid THEN 1 ELSE 0 END), 0) AS paid_invoices`).
		Group("client_id").
		Scan(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("client stats: %w", err)
	}
	out := make(map[uint]clientStatsRow, len(rows))
	for _, r := range rows {
		out[r.ClientID] = r
	}
	return out, nil
}

func statsFromRefs(refs []InvoiceRef) ClientStats {
	st := ClientStats{TotalAmount: decimal.Zero, PaidAmount: decimal.Zero, UnpaidAmount: decimal.Zero}
	for _, r := range refs {
		st.TotalInvoices++
		st.TotalAmount = st.TotalAmount.Add(r.Total)
		if r.Paid {
			st.PaidInvoices++
			st.PaidAmount = st.PaidAmount.Add(r.Total)
		} else {
			st.UnpaidInvoices++
			st.UnpaidAmount = st.UnpaidAmount.Add(r.Total)
		}
	}
	return st
}

// ensurePhoneFree rejects a phone already used by another client.
func ensurePhoneFree(tx *gorm.DB, ph *string, selfID uint) error {
	if ph == nil {
		return nil
	}
	var n int64
	q := tx.Model(&models.Client{}).Where("phone = ?", *ph)
	if selfID != 0 {
		q = q.Where("id <> ?", selfID)
	}
	if err := q.Count(&n).Error; err != nil {
		return err
	}
	if n > 0 {
		return invalid("phone", "already_in_use")
	}
	return nil
}

// phoneConflict maps a unique index race on clients.phone to a validation error.
func phoneConflict(err error) error {
	var ve *ValidationError
	var nf *NotFoundError
	if errors.As(err, &ve) || errors.As(err, &nf) {
		return err
	}
	if isUniqueViolation(err) {
		return invalid("phone", "already_in_use")
	}
	return err
}
