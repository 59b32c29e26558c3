// Package export writes invoice listings as spreadsheets.
package export

import (
	"fmt"
	"io"

	"github.com/diewo77/paintms/internal/models"
	"github.com/xuri/excelize/v2"
)

const (
	invoiceSheet = "Factures"
	itemSheet    = "Lignes"
	dateLayout   = "02/01/2006"
)

var (
	invoiceHeaders = []string{"N° Facture", "Date", "Échéance", "Client", "Téléphone", "Statut", "Total", "Note"}
	itemHeaders    = []string{"N° Facture", "Produit", "Quantité", "Unité", "Prix Unit.", "Total"}
)

// WriteInvoices writes one sheet of invoice headers and one sheet of their lines to w.
// Amounts are numeric cells so the workbook can be summed.
func WriteInvoices(w io.Writer, invoices []models.Invoice, currency string) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", invoiceSheet); err != nil {
		return err
	}
	if _, err := f.NewSheet(itemSheet); err != nil {
		return err
	}
	headerStyle, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true},
		Fill: excelize.Fill{Type: "pattern", Color: []string{"#D3D3D3"}, Pattern: 1},
	})
	if err != nil {
		return fmt.Errorf("header style: %w", err)
	}
	moneyFmt := "#,##0.00"
	moneyStyle, err := f.NewStyle(&excelize.Style{CustomNumFmt: &moneyFmt})
	if err != nil {
		return fmt.Errorf("money style: %w", err)
	}

	totals := append([]string(nil), invoiceHeaders...)
	totals[6] = fmt.Sprintf("Total (%s)", currency)
	if err := writeHeader(f, invoiceSheet, totals, headerStyle); err != nil {
		return err
	}
	if err := writeHeader(f, itemSheet, itemHeaders, headerStyle); err != nil {
		return err
	}

	itemRow := 2
	for i, inv := range invoices {
		r := i + 2
		due := ""
		if inv.DueDate != nil {
			due = inv.DueDate.Format(dateLayout)
		}
		phone := ""
		if inv.Client != nil {
			phone = inv.Client.PhoneNumber()
		}
		total, _ := inv.Total.Float64()
		values := []any{inv.Number, inv.Date.Format(dateLayout), due, inv.ClientName(), phone, inv.StatusLabel(), total, inv.Note}
		if err := setRow(f, invoiceSheet, r, values); err != nil {
			return err
		}
		if err := f.SetCellStyle(invoiceSheet, cell(6, r), cell(6, r), moneyStyle); err != nil {
			return err
		}

		for _, item := range inv.Items {
			unit, _ := item.UnitPrice.Float64()
			lineTotal, _ := item.Total.Float64()
			if err := setRow(f, itemSheet, itemRow, []any{inv.Number, item.ProductName(), item.Quantity, item.UnitLabel(), unit, lineTotal}); err != nil {
				return err
			}
			if err := f.SetCellStyle(itemSheet, cell(4, itemRow), cell(5, itemRow), moneyStyle); err != nil {
				return err
			}
			itemRow++
		}
	}

	for sheet, widths := range map[string][]float64{
		invoiceSheet: {20, 12, 12, 28, 16, 12, 14, 40},
		itemSheet:    {20, 32, 10, 12, 14, 14},
	} {
		for i, width := range widths {
			col, _ := excelize.ColumnNumberToName(i + 1)
			if err := f.SetColWidth(sheet, col, col, width); err != nil {
				return err
			}
		}
	}
	f.SetActiveSheet(0)
	return f.Write(w)
}

func writeHeader(f *excelize.File, sheet string, headers []string, style int) error {
	for i, h := range headers {
		if err := f.SetCellValue(sheet, cell(i, 1), h); err != nil {
			return err
		}
	}
	return f.SetCellStyle(sheet, cell(0, 1), cell(len(headers)-1, 1), style)
}

func setRow(f *excelize.File, sheet string, r int, values []any) error {
	return f.SetSheetRow(sheet, cell(0, r), &values)
}

// cell returns the A1 reference of a zero based column and one based row.
func cell(col, row int) string {
	name, _ := excelize.CoordinatesToCellName(col+1, row)
	return name
}
