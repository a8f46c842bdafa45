package export_test

import (
	"bytes"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"ledgerlens/internal/domain"
	"ledgerlens/internal/export"
)

func TestWriteVendorReport(t *testing.T) {
	invoices := []domain.InvoiceRecord{
		{
			DocumentNumber: "INV-001",
			DocumentType:   domain.DocTypeStandardInvoice,
			VendorName:     "Acme Corp",
			CustomerName:   "Globex Inc",
			InvoiceDate:    time.Date(2025, 3, 14, 0, 0, 0, 0, time.UTC),
			Subtotal:       decimal.NewFromInt(100),
			TaxAmount:      decimal.NewFromInt(19),
			Total:          decimal.NewFromInt(119),
			Currency:       domain.CurrencyEUR,
			ModelUsed:      "anthropic",
			Risk:           &domain.RiskAssessment{Level: domain.RiskLow, Score: 0},
		},
		{
			DocumentNumber: "INV-002",
			DocumentType:   domain.DocTypeStandardInvoice,
			VendorName:     "Acme Corp",
			InvoiceDate:    time.Date(2025, 4, 1, 0, 0, 0, 0, time.UTC),
			Total:          decimal.NewFromInt(50),
			Currency:       domain.CurrencyEUR,
		},
	}
	aggregates := []domain.VendorAggregate{
		{
			Currency:     domain.CurrencyEUR,
			InvoiceCount: 2,
			TotalSum:     decimal.NewFromInt(169),
			AverageTotal: decimal.RequireFromString("84.5"),
			MinTotal:     decimal.NewFromInt(50),
			MaxTotal:     decimal.NewFromInt(119),
			FirstInvoice: time.Date(2025, 3, 14, 0, 0, 0, 0, time.UTC),
			LastInvoice:  time.Date(2025, 4, 1, 0, 0, 0, 0, time.UTC),
		},
	}

	var buf bytes.Buffer
	require.NoError(t, export.WriteVendorReport(&buf, "Acme Corp", invoices, aggregates))

	f, err := excelize.OpenReader(&buf)
	require.NoError(t, err)
	defer f.Close()

	assert.ElementsMatch(t, []string{"Invoices", "Summary"}, f.GetSheetList())

	got, err := f.GetCellValue("Invoices", "A2")
	require.NoError(t, err)
	assert.Equal(t, "INV-001", got)

	got, err = f.GetCellValue("Invoices", "L3")
	require.NoError(t, err)
	assert.Equal(t, "unscored", got)

	got, err = f.GetCellValue("Summary", "C2")
	require.NoError(t, err)
	assert.Equal(t, "2", got)
}
