package port

import (
	"context"
	"time"

	"ledgerlens/internal/domain"
)

// InvoiceRepository is the persistence gateway over invoice records. Upsert
// owns the uniqueness invariant on the (document_number, vendor_name) natural
// key: re-submitting the same logical document merges analysis fields into the
// existing row instead of creating a duplicate.
type InvoiceRepository interface {
	Upsert(ctx context.Context, rec *domain.InvoiceRecord) (domain.UpsertOutcome, error)
	GetByNaturalKey(ctx context.Context, documentNumber, vendorName string) (*domain.InvoiceRecord, error)

	ListByVendor(ctx context.Context, vendorName string, from, to *time.Time) ([]domain.InvoiceRecord, error)
	AggregateByVendor(ctx context.Context, vendorName string, year *int) ([]domain.VendorAggregate, error)
	ListByRiskLevels(ctx context.Context, levels []domain.RiskLevel, limit int) ([]domain.InvoiceRecord, error)
	Stats(ctx context.Context) (*domain.Stats, error)

	// VendorHistory returns how many invoices a vendor already has and their
	// average total, for the review pipeline's vendor-history heuristics.
	VendorHistory(ctx context.Context, vendorName string) (count int, avgTotal float64, err error)
}

// QueryRows is a generic result set returned by the read-only executor.
type QueryRows struct {
	Columns []string
	Rows    []map[string]any
}

// ReadOnlyQueryExecutor runs an already-validated query under a statement
// timeout inside a read-only transaction. It is consumed exclusively by the
// analytics query guard and never retries.
type ReadOnlyQueryExecutor interface {
	RunReadOnly(ctx context.Context, query string) (*QueryRows, error)
}
