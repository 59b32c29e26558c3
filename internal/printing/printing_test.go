package printing

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/diewo77/paintms/internal/models"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleInvoice() *models.Invoice {
	phone := "+213555123456"
	paint := &models.Product{ID: 1, Name: "Peinture <blanche> 20L", Unit: "seau"}
	return &models.Invoice{
		ID:     7,
		Number: "PMS-20250304-001",
		Client: &models.Client{Name: "Quincaillerie Amine", Phone: &phone},
		Date:   time.Date(2025, 3, 4, 10, 0, 0, 0, time.UTC),
		Paid:   true,
		Total:  decimal.RequireFromString("62.5"),
		Note:   "Livraison vendredi",
		Items: []models.InvoiceItem{
			{ID: 1, Product: paint, Quantity: 5, UnitPrice: decimal.NewFromInt(10), Total: decimal.NewFromInt(50)},
			{ID: 2, Quantity: 5, UnitPrice: decimal.RequireFromString("2.5"), Total: decimal.RequireFromString("12.5")},
		},
	}
}

func newTestRenderer(t *testing.T) *Renderer {
	t.Helper()
	r, err := NewRenderer("PAINT MS", "DZD", time.UTC)
	require.NoError(t, err)
	r.now = func() time.Time { return time.Date(2025, 3, 5, 9, 15, 0, 0, time.UTC) }
	return r
}

func TestHTML(t *testing.T) {
	out, err := newTestRenderer(t).HTML(sampleInvoice())
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(out, "<!DOCTYPE html>"))
	for _, want := range []string{
		`<h1 class="company-name">PAINT MS</h1>`,
		"Bon de Commande / Facture",
		"<strong>Nom :</strong> Quincaillerie Amine",
		"<strong>Téléphone :</strong> +213555123456",
		"<strong>Date :</strong> 04/03/2025",
		"<strong>N° :</strong> PMS-20250304-001",
		`<span class="status-badge status-paid">Payé</span>`,
		"Prix Unit. (DZD)",
		"<td>Peinture &lt;blanche&gt; 20L</td>",
		"<td>Produit inconnu</td>",
		`<td class="text-center">5 seau</td>`,
		`<td class="text-center">5 unité</td>`,
		`<td class="text-right">2.50</td>`,
		`<td class="text-right font-bold">50.00</td>`,
		`<td class="text-right">62.50 DZD</td>`,
		"<p>Livraison vendredi</p>",
		"Merci pour votre confiance !",
		"Document imprimé le 05/03/2025 à 09:15",
	} {
		assert.Contains(t, out, want)
	}
	assert.NotContains(t, out, "Échéance")
}

func TestHTMLUnpaidWithoutNote(t *testing.T) {
	inv := sampleInvoice()
	inv.Paid = false
	inv.Note = ""
	inv.Client = nil
	inv.Items = nil
	inv.Total = decimal.Zero

	out, err := newTestRenderer(t).HTML(inv)
	require.NoError(t, err)
	assert.Contains(t, out, `<span class="status-badge status-unpaid">Non payé</span>`)
	assert.Contains(t, out, "Client inconnu")
	assert.Contains(t, out, "Aucun produit dans cette facture")
	assert.NotContains(t, out, "invoice-note\"")
}

func TestPDF(t *testing.T) {
	b, err := newTestRenderer(t).PDF(sampleInvoice())
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(b, []byte("%PDF-")), "got %q", b[:min(len(b), 8)])
}

func TestMoney(t *testing.T) {
	assert.Equal(t, "1250.00", Money(decimal.NewFromInt(1250)))
	assert.Equal(t, "0.33", Money(decimal.RequireFromString("0.3333")))
}
