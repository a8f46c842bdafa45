package analytics

// schemaDescription is the table reference handed to the model when it
// generates SQL. It must stay in sync with db/migrations.
const schemaDescription = `Table invoices:
  id (uuid), document_number (text), vendor_name (text),
  vendor_address (text), vendor_tax_id (text), customer_name (text),
  subtotal (numeric), tax_rate (numeric), tax_amount (numeric),
  discount_amount (numeric), total (numeric), currency (text),
  invoice_date (date), due_date (date, nullable),
  payment_terms (text), purchase_order (text), notes (text),
  document_type (text: standard_invoice | credit_note | receipt),
  risk_level (text: low | medium | high, NULL when unscored),
  risk_score (integer, nullable), completeness_score (float, nullable),
  created_at (timestamptz), updated_at (timestamptz)

Table line_items:
  invoice_id (uuid, references invoices.id), position (integer),
  description (text), quantity (numeric), unit_price (numeric),
  line_total (numeric)`
