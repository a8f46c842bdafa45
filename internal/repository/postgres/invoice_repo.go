package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"ledgerlens/internal/domain"
	"ledgerlens/internal/port"
)

type invoiceRepo struct {
	db *sqlx.DB
}

// NewInvoiceRepo creates a new PostgreSQL-backed InvoiceRepository.
func NewInvoiceRepo(db *sqlx.DB) port.InvoiceRepository {
	return &invoiceRepo{db: db}
}

// invoiceRow is the flat DB projection of an InvoiceRecord. Risk fields are
// individual columns; line items live in their own table.
type invoiceRow struct {
	domain.InvoiceRecord
	RiskLevel         *string    `db:"risk_level"`
	RiskScore         *int       `db:"risk_score"`
	RiskFactors       []byte     `db:"risk_factors"`
	RiskIssues        []byte     `db:"risk_issues"`
	CompletenessScore *float64   `db:"completeness_score"`
	RiskNarrative     *string    `db:"risk_narrative"`
	AssessedAt        *time.Time `db:"assessed_at"`
}

func (row *invoiceRow) toRecord() (*domain.InvoiceRecord, error) {
	rec := row.InvoiceRecord
	if row.RiskLevel != nil {
		risk := &domain.RiskAssessment{
			Level: domain.RiskLevel(*row.RiskLevel),
		}
		if row.RiskScore != nil {
			risk.Score = *row.RiskScore
		}
		if row.CompletenessScore != nil {
			risk.CompletenessScore = *row.CompletenessScore
		}
		if row.RiskNarrative != nil {
			risk.Narrative = *row.RiskNarrative
		}
		if row.AssessedAt != nil {
			risk.AssessedAt = *row.AssessedAt
		}
		if len(row.RiskFactors) > 0 {
			if err := json.Unmarshal(row.RiskFactors, &risk.Factors); err != nil {
				return nil, fmt.Errorf("decoding risk factors: %w", err)
			}
		}
		if len(row.RiskIssues) > 0 {
			if err := json.Unmarshal(row.RiskIssues, &risk.Issues); err != nil {
				return nil, fmt.Errorf("decoding risk issues: %w", err)
			}
		}
		rec.Risk = risk
	}
	return &rec, nil
}

func riskColumns(rec *domain.InvoiceRecord) (level *string, score *int, factors, issues []byte, completeness *float64, narrative *string, assessedAt *time.Time, err error) {
	if rec.Risk == nil {
		return nil, nil, nil, nil, nil, nil, nil, nil
	}
	l := string(rec.Risk.Level)
	s := rec.Risk.Score
	c := rec.Risk.CompletenessScore
	n := rec.Risk.Narrative
	at := rec.Risk.AssessedAt
	factors, err = json.Marshal(rec.Risk.Factors)
	if err != nil {
		return
	}
	issues, err = json.Marshal(rec.Risk.Issues)
	if err != nil {
		return
	}
	return &l, &s, factors, issues, &c, &n, &at, nil
}

// Upsert inserts the record and, when the (document_number, vendor_name) pair
// already exists, merges the analysis fields into the existing row instead.
// Extraction fields of the first submission always win.
func (r *invoiceRepo) Upsert(ctx context.Context, rec *domain.InvoiceRecord) (domain.UpsertOutcome, error) {
	now := time.Now().UTC()
	if rec.ID == uuid.Nil {
		rec.ID = uuid.New()
	}
	rec.CreatedAt = now
	rec.UpdatedAt = now

	level, score, factors, issues, completeness, narrative, assessedAt, err := riskColumns(rec)
	if err != nil {
		return "", fmt.Errorf("invoiceRepo.Upsert: %w", err)
	}

	query := `INSERT INTO invoices (
		id, document_number, vendor_name, vendor_address, vendor_tax_id,
		vendor_email, vendor_phone, customer_name, customer_address, customer_tax_id,
		subtotal, tax_rate, tax_amount, discount_amount, total, currency,
		invoice_date, due_date, payment_terms, purchase_order, notes,
		document_type, model_used, processed_by,
		risk_level, risk_score, risk_factors, risk_issues,
		completeness_score, risk_narrative, assessed_at,
		extraction_seconds, analysis_seconds, created_at, updated_at
	) VALUES (
		$1, $2, $3, $4, $5,
		$6, $7, $8, $9, $10,
		$11, $12, $13, $14, $15, $16,
		$17, $18, $19, $20, $21,
		$22, $23, $24,
		$25, $26, $27, $28,
		$29, $30, $31,
		$32, $33, $34, $35
	)`

	_, err = r.db.ExecContext(ctx, query,
		rec.ID, rec.DocumentNumber, rec.VendorName, rec.VendorAddress, rec.VendorTaxID,
		rec.VendorEmail, rec.VendorPhone, rec.CustomerName, rec.CustomerAddress, rec.CustomerTaxID,
		rec.Subtotal, rec.TaxRate, rec.TaxAmount, rec.DiscountAmount, rec.Total, rec.Currency,
		rec.InvoiceDate, rec.DueDate, rec.PaymentTerms, rec.PurchaseOrder, rec.Notes,
		rec.DocumentType, rec.ModelUsed, rec.ProcessedBy,
		level, score, factors, issues,
		completeness, narrative, assessedAt,
		rec.ExtractionSeconds, rec.AnalysisSeconds, rec.CreatedAt, rec.UpdatedAt)
	if err == nil {
		if err := r.replaceLineItems(ctx, rec.ID, rec.LineItems); err != nil {
			return "", fmt.Errorf("invoiceRepo.Upsert: %w", err)
		}
		return domain.OutcomeInserted, nil
	}

	if !strings.Contains(err.Error(), "duplicate key") {
		return "", fmt.Errorf("invoiceRepo.Upsert: %w", err)
	}

	// Merge path: only analysis output and bookkeeping move to the new run.
	// The record takes on the stored row's identity.
	err = r.db.QueryRowxContext(ctx,
		`UPDATE invoices SET
			risk_level = $1, risk_score = $2, risk_factors = $3, risk_issues = $4,
			completeness_score = $5, risk_narrative = $6, assessed_at = $7,
			model_used = $8, processed_by = $9, analysis_seconds = $10, updated_at = $11
		 WHERE document_number = $12 AND vendor_name = $13
		 RETURNING id, created_at`,
		level, score, factors, issues,
		completeness, narrative, assessedAt,
		rec.ModelUsed, rec.ProcessedBy, rec.AnalysisSeconds, now,
		rec.DocumentNumber, rec.VendorName).Scan(&rec.ID, &rec.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", fmt.Errorf("invoiceRepo.Upsert merge: %w", domain.ErrNotFound)
		}
		return "", fmt.Errorf("invoiceRepo.Upsert merge: %w", err)
	}
	return domain.OutcomeMerged, nil
}

func (r *invoiceRepo) replaceLineItems(ctx context.Context, invoiceID uuid.UUID, items []domain.LineItem) error {
	if _, err := r.db.ExecContext(ctx,
		"DELETE FROM line_items WHERE invoice_id = $1", invoiceID); err != nil {
		return fmt.Errorf("clearing line items: %w", err)
	}
	for _, item := range items {
		_, err := r.db.ExecContext(ctx,
			`INSERT INTO line_items (invoice_id, position, description, quantity, unit_price, line_total)
			 VALUES ($1, $2, $3, $4, $5, $6)`,
			invoiceID, item.Position, item.Description, item.Quantity, item.UnitPrice, item.LineTotal)
		if err != nil {
			return fmt.Errorf("inserting line item %d: %w", item.Position, err)
		}
	}
	return nil
}

func (r *invoiceRepo) GetByNaturalKey(ctx context.Context, documentNumber, vendorName string) (*domain.InvoiceRecord, error) {
	var row invoiceRow
	err := r.db.GetContext(ctx, &row,
		"SELECT * FROM invoices WHERE document_number = $1 AND vendor_name = $2",
		documentNumber, vendorName)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("invoiceRepo.GetByNaturalKey: %w", err)
	}
	rec, err := row.toRecord()
	if err != nil {
		return nil, fmt.Errorf("invoiceRepo.GetByNaturalKey: %w", err)
	}
	if err := r.loadLineItems(ctx, rec); err != nil {
		return nil, fmt.Errorf("invoiceRepo.GetByNaturalKey: %w", err)
	}
	return rec, nil
}

func (r *invoiceRepo) loadLineItems(ctx context.Context, rec *domain.InvoiceRecord) error {
	return r.db.SelectContext(ctx, &rec.LineItems,
		`SELECT position, description, quantity, unit_price, line_total
		 FROM line_items WHERE invoice_id = $1 ORDER BY position`, rec.ID)
}

func (r *invoiceRepo) ListByVendor(ctx context.Context, vendorName string, from, to *time.Time) ([]domain.InvoiceRecord, error) {
	query := "SELECT * FROM invoices WHERE LOWER(vendor_name) LIKE LOWER($1)"
	args := []any{"%" + vendorName + "%"}
	if from != nil {
		args = append(args, *from)
		query += fmt.Sprintf(" AND invoice_date >= $%d", len(args))
	}
	if to != nil {
		args = append(args, *to)
		query += fmt.Sprintf(" AND invoice_date <= $%d", len(args))
	}
	query += " ORDER BY invoice_date DESC"

	var rows []invoiceRow
	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("invoiceRepo.ListByVendor: %w", err)
	}
	return r.toRecords(ctx, rows, "invoiceRepo.ListByVendor")
}

func (r *invoiceRepo) toRecords(ctx context.Context, rows []invoiceRow, op string) ([]domain.InvoiceRecord, error) {
	recs := make([]domain.InvoiceRecord, 0, len(rows))
	for i := range rows {
		rec, err := rows[i].toRecord()
		if err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		if err := r.loadLineItems(ctx, rec); err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		recs = append(recs, *rec)
	}
	return recs, nil
}

func (r *invoiceRepo) AggregateByVendor(ctx context.Context, vendorName string, year *int) ([]domain.VendorAggregate, error) {
	query := `SELECT currency,
			COUNT(*) AS invoice_count,
			COALESCE(SUM(total), 0) AS total_sum,
			COALESCE(AVG(total), 0) AS average_total,
			COALESCE(MIN(total), 0) AS min_total,
			COALESCE(MAX(total), 0) AS max_total,
			MIN(invoice_date) AS first_invoice,
			MAX(invoice_date) AS last_invoice
		FROM invoices WHERE LOWER(vendor_name) LIKE LOWER($1)`
	args := []any{"%" + vendorName + "%"}
	if year != nil {
		args = append(args, *year)
		query += fmt.Sprintf(" AND EXTRACT(YEAR FROM invoice_date) = $%d", len(args))
	}
	query += " GROUP BY currency ORDER BY currency"

	var aggs []domain.VendorAggregate
	if err := r.db.SelectContext(ctx, &aggs, query, args...); err != nil {
		return nil, fmt.Errorf("invoiceRepo.AggregateByVendor: %w", err)
	}
	return aggs, nil
}

func (r *invoiceRepo) ListByRiskLevels(ctx context.Context, levels []domain.RiskLevel, limit int) ([]domain.InvoiceRecord, error) {
	if len(levels) == 0 {
		return nil, nil
	}
	query, args, err := sqlx.In(
		`SELECT * FROM invoices WHERE risk_level IN (?)
		 ORDER BY risk_score DESC, updated_at DESC LIMIT ?`, levels, limit)
	if err != nil {
		return nil, fmt.Errorf("invoiceRepo.ListByRiskLevels: %w", err)
	}

	var rows []invoiceRow
	if err := r.db.SelectContext(ctx, &rows, r.db.Rebind(query), args...); err != nil {
		return nil, fmt.Errorf("invoiceRepo.ListByRiskLevels: %w", err)
	}
	return r.toRecords(ctx, rows, "invoiceRepo.ListByRiskLevels")
}

func (r *invoiceRepo) Stats(ctx context.Context) (*domain.Stats, error) {
	var stats domain.Stats
	err := r.db.GetContext(ctx, &stats, `SELECT
			COUNT(*) AS total_invoices,
			COUNT(DISTINCT vendor_name) AS unique_vendors,
			COALESCE(SUM(total), 0) AS total_amount,
			COALESCE(AVG(total), 0) AS average_amount,
			COUNT(*) FILTER (WHERE risk_level = 'high') AS high_risk_count,
			COUNT(*) FILTER (WHERE risk_level = 'medium') AS medium_risk_count,
			COUNT(*) FILTER (WHERE risk_level = 'low') AS low_risk_count,
			COUNT(*) FILTER (WHERE risk_level IS NULL) AS unscored_count
		FROM invoices`)
	if err != nil {
		return nil, fmt.Errorf("invoiceRepo.Stats: %w", err)
	}
	return &stats, nil
}

func (r *invoiceRepo) VendorHistory(ctx context.Context, vendorName string) (int, float64, error) {
	var row struct {
		Count int     `db:"invoice_count"`
		Avg   float64 `db:"average_total"`
	}
	err := r.db.GetContext(ctx, &row,
		`SELECT COUNT(*) AS invoice_count, COALESCE(AVG(total), 0) AS average_total
		 FROM invoices WHERE vendor_name = $1`, vendorName)
	if err != nil {
		return 0, 0, fmt.Errorf("invoiceRepo.VendorHistory: %w", err)
	}
	return row.Count, row.Avg, nil
}
