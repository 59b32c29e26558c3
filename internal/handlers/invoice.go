package handlers

import (
	"bytes"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/diewo77/paintms/internal/export"
	"github.com/diewo77/paintms/internal/httpx"
	"github.com/diewo77/paintms/internal/models"
	"github.com/diewo77/paintms/internal/printing"
	"github.com/diewo77/paintms/internal/services"
	"github.com/diewo77/paintms/internal/validation"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
)

// exportLimit bounds the number of invoices written to one spreadsheet.
const exportLimit = 10000

type lineRequest struct {
	ProductID FlexUint        `json:"product_id" validate:"required"`
	Quantity  FlexInt         `json:"quantity" validate:"omitempty,gt=0,max=2147483647"`
	UnitPrice decimal.Decimal `json:"unit_price" validate:"gte=0,lt=10000000000000000"`
}

type invoiceRequest struct {
	ClientID FlexUint      `json:"client_id" validate:"required"`
	Items    []lineRequest `json:"items" validate:"min=1,dive"`
	Note     string        `json:"note" validate:"max=2000"`
	Date     *FlexTime     `json:"date"`
	DueDate  OptionalTime  `json:"due_date"`
}

func (req invoiceRequest) input() services.InvoiceInput {
	lines := make([]services.Line, len(req.Items))
	for i, it := range req.Items {
		lines[i] = services.Line{
			ProductID: uint(it.ProductID),
			Quantity:  int(it.Quantity),
			UnitPrice: it.UnitPrice,
		}
	}
	return services.InvoiceInput{
		ClientID: uint(req.ClientID),
		Items:    lines,
		Note:     req.Note,
		Date:     req.Date.Ptr(),
		DueDate:  req.DueDate.Ptr(),
		ClearDue: req.DueDate.Cleared(),
	}
}

type InvoiceHandler struct {
	responder
	invoices *services.InvoiceService
	activity *services.ActivityService
	renderer *printing.Renderer
	currency string
}

func NewInvoiceHandler(invoices *services.InvoiceService, activity *services.ActivityService, renderer *printing.Renderer, currency string, log logrus.FieldLogger, dev bool) *InvoiceHandler {
	return &InvoiceHandler{
		responder: responder{log: log, dev: dev},
		invoices:  invoices,
		activity:  activity,
		renderer:  renderer,
		currency:  currency,
	}
}

// List supports paid, client_id, from, to (both inclusive days), page and limit.
func (h *InvoiceHandler) List(w http.ResponseWriter, r *http.Request) {
	f, ok := invoiceFilter(w, r)
	if !ok {
		return
	}
	f.Page = httpx.QueryInt(r, "page", 1, 0)
	f.Limit = httpx.QueryInt(r, "limit", 50, 200)
	page, err := h.invoices.List(r.Context(), f)
	if err != nil {
		h.fail(w, r, "handlers.invoice", "List", err)
		return
	}
	httpx.JSON(w, http.StatusOK, page)
}

func (h *InvoiceHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	inv, err := h.invoices.Get(r.Context(), id)
	if err != nil {
		h.fail(w, r, "handlers.invoice", "Get", err)
		return
	}
	httpx.JSON(w, http.StatusOK, inv)
}

func (h *InvoiceHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req invoiceRequest
	if !decode(w, r, &req) {
		return
	}
	inv, err := h.invoices.Create(r.Context(), req.input())
	if err != nil {
		h.fail(w, r, "handlers.invoice", "Create", err)
		return
	}
	h.record(r, models.ActionInvoiceCreated, inv)
	httpx.JSON(w, http.StatusCreated, inv)
}

// Update replaces the client, note, dates and items. Number and paid flag are kept.
func (h *InvoiceHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	var req invoiceRequest
	if !decode(w, r, &req) {
		return
	}
	inv, err := h.invoices.Update(r.Context(), id, req.input())
	if err != nil {
		h.fail(w, r, "handlers.invoice", "Update", err)
		return
	}
	h.record(r, models.ActionInvoiceUpdated, inv)
	httpx.JSON(w, http.StatusOK, inv)
}

func (h *InvoiceHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	inv, err := h.invoices.Delete(r.Context(), id)
	if err != nil {
		h.fail(w, r, "handlers.invoice", "Delete", err)
		return
	}
	h.record(r, models.ActionInvoiceDeleted, inv)
	httpx.JSON(w, http.StatusOK, map[string]any{
		"message": "Facture supprimée avec succès",
		"invoice": inv,
	})
}

func (h *InvoiceHandler) Pay(w http.ResponseWriter, r *http.Request) {
	h.setPaid(w, r, true)
}

func (h *InvoiceHandler) Unpay(w http.ResponseWriter, r *http.Request) {
	h.setPaid(w, r, false)
}

func (h *InvoiceHandler) setPaid(w http.ResponseWriter, r *http.Request, paid bool) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	var (
		inv    *models.Invoice
		err    error
		action = models.ActionInvoicePaid
	)
	if paid {
		inv, err = h.invoices.MarkPaid(r.Context(), id)
	} else {
		action = models.ActionInvoiceUnpaid
		inv, err = h.invoices.MarkUnpaid(r.Context(), id)
	}
	if err != nil {
		h.fail(w, r, "handlers.invoice", "setPaid", err)
		return
	}
	h.record(r, action, inv)
	httpx.JSON(w, http.StatusOK, inv)
}

// Print returns the invoice snapshot with its standalone HTML page.
func (h *InvoiceHandler) Print(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	inv, err := h.invoices.Printable(r.Context(), id)
	if err != nil {
		h.fail(w, r, "handlers.invoice", "Print", err)
		return
	}
	page, err := h.renderer.HTML(inv)
	if err != nil {
		h.fail(w, r, "handlers.invoice", "Print", err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{
		"invoice":    inv,
		"print_html": page,
	})
}

func (h *InvoiceHandler) PDF(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	inv, err := h.invoices.Printable(r.Context(), id)
	if err != nil {
		h.fail(w, r, "handlers.invoice", "PDF", err)
		return
	}
	doc, err := h.renderer.PDF(inv)
	if err != nil {
		h.fail(w, r, "handlers.invoice", "PDF", err)
		return
	}
	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", fmt.Sprintf(`inline; filename="%s.pdf"`, inv.Number))
	w.Header().Set("Content-Length", strconv.Itoa(len(doc)))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(doc)
}

// Export writes the invoices matching the list filters as an XLSX workbook.
func (h *InvoiceHandler) Export(w http.ResponseWriter, r *http.Request) {
	f, ok := invoiceFilter(w, r)
	if !ok {
		return
	}
	f.Limit = exportLimit
	page, err := h.invoices.List(r.Context(), f)
	if err != nil {
		h.fail(w, r, "handlers.invoice", "Export", err)
		return
	}
	var buf bytes.Buffer
	if err := export.WriteInvoices(&buf, page.Invoices, h.currency); err != nil {
		h.fail(w, r, "handlers.invoice", "Export", err)
		return
	}
	name := fmt.Sprintf("factures-%s.xlsx", time.Now().Format("20060102"))
	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, name))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(buf.Bytes())
}

func (h *InvoiceHandler) record(r *http.Request, action string, inv *models.Invoice) {
	h.activity.Record(r.Context(), activityFor(r, action, map[string]any{
		"invoice_id":     inv.ID,
		"invoice_number": inv.Number,
		"total":          inv.Total,
	}))
}

// invoiceFilter parses the list filters. It writes the 400 response itself.
func invoiceFilter(w http.ResponseWriter, r *http.Request) (services.InvoiceFilter, bool) {
	var f services.InvoiceFilter
	q := r.URL.Query()
	v := make(validation.Violations)

	if s := q.Get("paid"); s != "" {
		paid, err := strconv.ParseBool(s)
		if err != nil {
			v.Add("paid", "invalid")
		} else {
			f.Paid = &paid
		}
	}
	if s := q.Get("client_id"); s != "" {
		id, err := strconv.ParseUint(s, 10, 64)
		if err != nil || id == 0 {
			v.Add("client_id", "invalid")
		} else {
			f.ClientID = uint(id)
		}
	}
	if s := q.Get("from"); s != "" {
		t, err := parseTime(s)
		if err != nil {
			v.Add("from", "invalid_date")
		} else {
			f.From = &t
		}
	}
	if s := q.Get("to"); s != "" {
		t, err := parseTime(s)
		if err != nil {
			v.Add("to", "invalid_date")
		} else {
			// a bare day includes the whole day
			if _, dayErr := time.Parse(dayLayout, s); dayErr == nil {
				t = t.AddDate(0, 0, 1)
			}
			f.To = &t
		}
	}
	if !v.Empty() {
		httpx.JSONError(w, http.StatusBadRequest, "validation_failed", v)
		return f, false
	}
	return f, true
}
