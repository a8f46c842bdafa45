package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// InvoiceRecord is the durable entity produced by extraction and optionally
// enriched by the review pipeline. Its logical identity is the
// (DocumentNumber, VendorName) pair; those two fields never change after the
// first insert.
type InvoiceRecord struct {
	ID uuid.UUID `db:"id" json:"id"`

	DocumentNumber string `db:"document_number" json:"document_number"`
	VendorName     string `db:"vendor_name" json:"vendor_name"`

	VendorAddress string `db:"vendor_address" json:"vendor_address,omitempty"`
	VendorTaxID   string `db:"vendor_tax_id" json:"vendor_tax_id,omitempty"`
	VendorEmail   string `db:"vendor_email" json:"vendor_email,omitempty"`
	VendorPhone   string `db:"vendor_phone" json:"vendor_phone,omitempty"`

	CustomerName    string `db:"customer_name" json:"customer_name,omitempty"`
	CustomerAddress string `db:"customer_address" json:"customer_address,omitempty"`
	CustomerTaxID   string `db:"customer_tax_id" json:"customer_tax_id,omitempty"`

	Subtotal       decimal.Decimal `db:"subtotal" json:"subtotal"`
	TaxRate        decimal.Decimal `db:"tax_rate" json:"tax_rate"`
	TaxAmount      decimal.Decimal `db:"tax_amount" json:"tax_amount"`
	DiscountAmount decimal.Decimal `db:"discount_amount" json:"discount_amount"`
	Total          decimal.Decimal `db:"total" json:"total"`
	Currency       Currency        `db:"currency" json:"currency"`

	InvoiceDate time.Time  `db:"invoice_date" json:"invoice_date"`
	DueDate     *time.Time `db:"due_date" json:"due_date,omitempty"`

	PaymentTerms  string `db:"payment_terms" json:"payment_terms,omitempty"`
	PurchaseOrder string `db:"purchase_order" json:"purchase_order,omitempty"`
	Notes         string `db:"notes" json:"notes,omitempty"`

	LineItems []LineItem `db:"-" json:"line_items"`

	DocumentType string `db:"document_type" json:"document_type"`
	ModelUsed    string `db:"model_used" json:"model_used"`
	ProcessedBy  string `db:"processed_by" json:"processed_by"`

	Risk *RiskAssessment `db:"-" json:"risk,omitempty"`

	ExtractionSeconds float64 `db:"extraction_seconds" json:"extraction_seconds"`
	AnalysisSeconds   float64 `db:"analysis_seconds" json:"analysis_seconds"`

	CreatedAt time.Time `db:"created_at" json:"created_at"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}

// NaturalKey returns the logical identity of the record.
func (r *InvoiceRecord) NaturalKey() (string, string) {
	return r.DocumentNumber, r.VendorName
}

// LineItem is a single position on an invoice. Order is significant and
// preserved through storage.
type LineItem struct {
	Position    int             `db:"position" json:"position"`
	Description string          `db:"description" json:"description"`
	Quantity    decimal.Decimal `db:"quantity" json:"quantity"`
	UnitPrice   decimal.Decimal `db:"unit_price" json:"unit_price"`
	LineTotal   decimal.Decimal `db:"line_total" json:"line_total"`
}

// RiskAssessment is produced once per review pipeline run and overwritten, not
// appended, on re-analysis.
type RiskAssessment struct {
	Level             RiskLevel `json:"risk_level"`
	Score             int       `json:"risk_score"`
	Factors           []string  `json:"risk_factors"`
	Issues            []string  `json:"issues"`
	CompletenessScore float64   `json:"completeness_score"`
	Narrative         string    `json:"narrative"`
	AssessedAt        time.Time `json:"assessed_at"`
}

// VendorAggregate is one currency bucket of a vendor's aggregated invoices.
type VendorAggregate struct {
	Currency     Currency        `db:"currency" json:"currency"`
	InvoiceCount int             `db:"invoice_count" json:"invoice_count"`
	TotalSum     decimal.Decimal `db:"total_sum" json:"total_sum"`
	AverageTotal decimal.Decimal `db:"average_total" json:"average_total"`
	MinTotal     decimal.Decimal `db:"min_total" json:"min_total"`
	MaxTotal     decimal.Decimal `db:"max_total" json:"max_total"`
	FirstInvoice time.Time       `db:"first_invoice" json:"first_invoice"`
	LastInvoice  time.Time       `db:"last_invoice" json:"last_invoice"`
}

// Stats holds the overall storage statistics exposed by the analytics surface.
type Stats struct {
	TotalInvoices   int             `db:"total_invoices" json:"total_invoices"`
	UniqueVendors   int             `db:"unique_vendors" json:"unique_vendors"`
	TotalAmount     decimal.Decimal `db:"total_amount" json:"total_amount"`
	AverageAmount   decimal.Decimal `db:"average_amount" json:"average_amount"`
	HighRiskCount   int             `db:"high_risk_count" json:"high_risk_count"`
	MediumRiskCount int             `db:"medium_risk_count" json:"medium_risk_count"`
	LowRiskCount    int             `db:"low_risk_count" json:"low_risk_count"`
	UnscoredCount   int             `db:"unscored_count" json:"unscored_count"`
}
