package printing

import (
	"fmt"
	"strconv"

	"github.com/diewo77/paintms/internal/models"
	"github.com/johnfercher/maroto/v2"
	"github.com/johnfercher/maroto/v2/pkg/components/line"
	"github.com/johnfercher/maroto/v2/pkg/components/row"
	"github.com/johnfercher/maroto/v2/pkg/components/text"
	"github.com/johnfercher/maroto/v2/pkg/config"
	"github.com/johnfercher/maroto/v2/pkg/consts/align"
	"github.com/johnfercher/maroto/v2/pkg/consts/fontstyle"
	"github.com/johnfercher/maroto/v2/pkg/consts/pagesize"
	"github.com/johnfercher/maroto/v2/pkg/core"
	"github.com/johnfercher/maroto/v2/pkg/props"
)

var (
	brandBlue = &props.Color{Red: 37, Green: 99, Blue: 235}
	mutedGrey = &props.Color{Red: 107, Green: 114, Blue: 128}
	headerBg  = &props.Color{Red: 248, Green: 250, Blue: 252}
)

// PDF renders the same snapshot as HTML as an A4 PDF document.
func (r *Renderer) PDF(inv *models.Invoice) ([]byte, error) {
	cfg := config.NewBuilder().
		WithPageSize(pagesize.A4).
		WithLeftMargin(15).
		WithTopMargin(15).
		WithRightMargin(15).
		Build()
	m := maroto.New(cfg)

	m.AddRows(
		text.NewRow(12, r.business, props.Text{Size: 20, Style: fontstyle.Bold, Align: align.Center, Color: brandBlue}),
		text.NewRow(8, "Bon de Commande / Facture", props.Text{Size: 11, Align: align.Center, Color: mutedGrey}),
		line.NewRow(6, props.Line{Color: brandBlue, Thickness: 0.8}),
	)

	m.AddRow(8,
		text.NewCol(6, "Informations Client", props.Text{Style: fontstyle.Bold, Color: brandBlue, Size: 11}),
		text.NewCol(6, "Détails Facture", props.Text{Style: fontstyle.Bold, Color: brandBlue, Size: 11, Align: align.Right}),
	)
	m.AddRow(6,
		text.NewCol(6, "Nom : "+inv.ClientName(), props.Text{Size: 10}),
		text.NewCol(6, "N° : "+inv.Number, props.Text{Size: 10, Align: align.Right}),
	)
	m.AddRow(6,
		text.NewCol(6, "Date : "+inv.Date.In(r.loc).Format(dateLayout), props.Text{Size: 10}),
		text.NewCol(6, "Statut : "+inv.StatusLabel(), props.Text{Size: 10, Style: fontstyle.Bold, Align: align.Right}),
	)
	if inv.DueDate != nil {
		m.AddRows(text.NewRow(6, "Échéance : "+inv.DueDate.In(r.loc).Format(dateLayout), props.Text{Size: 10}))
	}
	if inv.Client != nil && inv.Client.PhoneNumber() != "" {
		m.AddRows(text.NewRow(6, "Téléphone : "+inv.Client.PhoneNumber(), props.Text{Size: 10}))
	}
	m.AddRows(row.New(6))

	m.AddRows(row.New(9).WithStyle(&props.Cell{BackgroundColor: headerBg}).Add(
		text.NewCol(6, "Produit", props.Text{Style: fontstyle.Bold, Size: 10, Top: 2, Left: 2}),
		text.NewCol(2, "Quantité", props.Text{Style: fontstyle.Bold, Size: 10, Top: 2, Align: align.Center}),
		text.NewCol(2, fmt.Sprintf("Prix Unit. (%s)", r.currency), props.Text{Style: fontstyle.Bold, Size: 10, Top: 2, Align: align.Right}),
		text.NewCol(2, fmt.Sprintf("Total (%s)", r.currency), props.Text{Style: fontstyle.Bold, Size: 10, Top: 2, Right: 2, Align: align.Right}),
	))
	m.AddRows(itemRows(inv)...)
	m.AddRows(
		line.NewRow(4, props.Line{Color: mutedGrey, Thickness: 0.3}),
		row.New(9).Add(
			text.NewCol(8, "Total Général :", props.Text{Style: fontstyle.Bold, Size: 12, Align: align.Right}),
			text.NewCol(4, Money(inv.Total)+" "+r.currency, props.Text{Style: fontstyle.Bold, Size: 12, Right: 2, Align: align.Right}),
		),
	)

	if inv.Note != "" {
		m.AddRows(
			row.New(6),
			text.NewRow(7, "Note :", props.Text{Style: fontstyle.Bold, Color: brandBlue, Size: 10}),
		)
		m.AddAutoRow(text.NewCol(12, inv.Note, props.Text{Size: 10}))
	}

	m.AddRows(
		row.New(12),
		text.NewRow(6, "Merci pour votre confiance !", props.Text{Size: 9, Align: align.Center, Color: mutedGrey}),
		text.NewRow(6, "Document imprimé le "+r.now().In(r.loc).Format(dateTimeLayout), props.Text{Size: 9, Align: align.Center, Color: mutedGrey}),
	)

	doc, err := m.Generate()
	if err != nil {
		return nil, fmt.Errorf("generate pdf for invoice %d: %w", inv.ID, err)
	}
	return doc.GetBytes(), nil
}

func itemRows(inv *models.Invoice) []core.Row {
	if len(inv.Items) == 0 {
		return []core.Row{text.NewRow(10, "Aucun produit dans cette facture", props.Text{Size: 10, Top: 3, Align: align.Center, Color: mutedGrey})}
	}
	rows := make([]core.Row, 0, len(inv.Items))
	for _, item := range inv.Items {
		rows = append(rows, row.New(8).Add(
			text.NewCol(6, item.ProductName(), props.Text{Size: 10, Top: 1.5, Left: 2}),
			text.NewCol(2, strconv.Itoa(item.Quantity)+" "+item.UnitLabel(), props.Text{Size: 10, Top: 1.5, Align: align.Center}),
			text.NewCol(2, Money(item.UnitPrice), props.Text{Size: 10, Top: 1.5, Align: align.Right}),
			text.NewCol(2, Money(item.Total), props.Text{Size: 10, Top: 1.5, Right: 2, Align: align.Right, Style: fontstyle.Bold}),
		))
	}
	return rows
}
