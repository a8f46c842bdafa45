// Package export renders invoice data into downloadable workbooks.
package export

import (
	"fmt"
	"io"
	"time"

	"github.com/xuri/excelize/v2"

	"ledgerlens/internal/domain"
)

// invoiceColumns is the header row of the Invoices sheet.
var invoiceColumns = []any{
	"Document Number",
	"Document Type",
	"Vendor",
	"Customer",
	"Invoice Date",
	"Due Date",
	"Subtotal",
	"Tax",
	"Discount",
	"Total",
	"Currency",
	"Risk Level",
	"Risk Score",
	"Model Used",
}

const dateLayout = "2006-01-02"

// WriteVendorReport writes an XLSX workbook with the vendor's invoices and a
// per-currency summary sheet.
func WriteVendorReport(w io.Writer, vendor string, invoices []domain.InvoiceRecord, aggregates []domain.VendorAggregate) error {
	f := excelize.NewFile()
	defer func() { _ = f.Close() }()

	const invoiceSheet = "Invoices"
	if err := f.SetSheetName("Sheet1", invoiceSheet); err != nil {
		return fmt.Errorf("renaming sheet: %w", err)
	}

	if err := f.SetSheetRow(invoiceSheet, "A1", &invoiceColumns); err != nil {
		return fmt.Errorf("writing header: %w", err)
	}
	for i, inv := range invoices {
		row := []any{
			inv.DocumentNumber,
			inv.DocumentType,
			inv.VendorName,
			inv.CustomerName,
			inv.InvoiceDate.Format(dateLayout),
			formatDate(inv.DueDate),
			inv.Subtotal.InexactFloat64(),
			inv.TaxAmount.InexactFloat64(),
			inv.DiscountAmount.InexactFloat64(),
			inv.Total.InexactFloat64(),
			string(inv.Currency),
			riskLevel(inv.Risk),
			riskScore(inv.Risk),
			inv.ModelUsed,
		}
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return fmt.Errorf("row coordinates: %w", err)
		}
		if err := f.SetSheetRow(invoiceSheet, cell, &row); err != nil {
			return fmt.Errorf("writing invoice row %d: %w", i+1, err)
		}
	}

	const summarySheet = "Summary"
	if _, err := f.NewSheet(summarySheet); err != nil {
		return fmt.Errorf("creating summary sheet: %w", err)
	}
	header := []any{"Vendor", "Currency", "Invoices", "Total", "Average", "Min", "Max", "First Invoice", "Last Invoice"}
	if err := f.SetSheetRow(summarySheet, "A1", &header); err != nil {
		return fmt.Errorf("writing summary header: %w", err)
	}
	for i, agg := range aggregates {
		row := []any{
			vendor,
			string(agg.Currency),
			agg.InvoiceCount,
			agg.TotalSum.InexactFloat64(),
			agg.AverageTotal.InexactFloat64(),
			agg.MinTotal.InexactFloat64(),
			agg.MaxTotal.InexactFloat64(),
			agg.FirstInvoice.Format(dateLayout),
			agg.LastInvoice.Format(dateLayout),
		}
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return fmt.Errorf("summary coordinates: %w", err)
		}
		if err := f.SetSheetRow(summarySheet, cell, &row); err != nil {
			return fmt.Errorf("writing summary row %d: %w", i+1, err)
		}
	}

	if err := f.Write(w); err != nil {
		return fmt.Errorf("writing workbook: %w", err)
	}
	return nil
}

func formatDate(t *time.Time) string {
	if t == nil {
		return ""
	}
	return t.Format(dateLayout)
}

func riskLevel(risk *domain.RiskAssessment) string {
	if risk == nil {
		return "unscored"
	}
	return string(risk.Level)
}

func riskScore(risk *domain.RiskAssessment) any {
	if risk == nil {
		return ""
	}
	return risk.Score
}
