// Package printing renders invoice snapshots as a printable HTML page or a PDF.
package printing

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"time"

	"github.com/diewo77/paintms/internal/models"
	"github.com/shopspring/decimal"
)

//go:embed templates/invoice.html
var templatesFS embed.FS

const (
	dateLayout     = "02/01/2006"
	dateTimeLayout = "02/01/2006 à 15:04"
)

// Renderer turns invoices into documents branded with the business name.
type Renderer struct {
	business string
	currency string
	loc      *time.Location
	now      func() time.Time
	tmpl     *template.Template
}

// document is the data passed to the HTML template.
type document struct {
	BusinessName string
	Currency     string
	Invoice      *models.Invoice
	PrintedAt    time.Time
}

// NewRenderer parses the embedded template. Dates are printed in loc (local time when nil).
func NewRenderer(business, currency string, loc *time.Location) (*Renderer, error) {
	if loc == nil {
		loc = time.Local
	}
	r := &Renderer{business: business, currency: currency, loc: loc, now: time.Now}
	tmpl, err := template.New("invoice.html").Funcs(template.FuncMap{
		"money":    Money,
		"date":     func(t time.Time) string { return t.In(r.loc).Format(dateLayout) },
		"datetime": func(t time.Time) string { return t.In(r.loc).Format(dateTimeLayout) },
	}).ParseFS(templatesFS, "templates/invoice.html")
	if err != nil {
		return nil, fmt.Errorf("parse invoice template: %w", err)
	}
	r.tmpl = tmpl
	return r, nil
}

// Money formats an amount with two decimals.
func Money(d decimal.Decimal) string {
	return d.StringFixed(2)
}

// HTML renders the standalone A4 page of an invoice.
func (r *Renderer) HTML(inv *models.Invoice) (string, error) {
	var buf bytes.Buffer
	err := r.tmpl.Execute(&buf, document{
		BusinessName: r.business,
		Currency:     r.currency,
		Invoice:      inv,
		PrintedAt:    r.now(),
	})
	if err != nil {
		return "", fmt.Errorf("render invoice %d: %w", inv.ID, err)
	}
	return buf.String(), nil
}
