// Package contract defines the typed shape of each document category and
// validates extraction output against it. A payload that fails its contract is
// treated the same as a backend failure by the extraction orchestrator.
package contract

import (
	"fmt"
	"sort"

	"ledgerlens/internal/domain"
)

// FieldKind is the semantic type of one contract field.
type FieldKind string

const (
	KindString    FieldKind = "string"
	KindMoney     FieldKind = "money"
	KindDate      FieldKind = "date"
	KindCurrency  FieldKind = "currency"
	KindLineItems FieldKind = "line_items"
)

// Target names the canonical record field a contract field maps to.
type Target string

const (
	TargetDocumentNumber  Target = "document_number"
	TargetVendorName      Target = "vendor_name"
	TargetVendorAddress   Target = "vendor_address"
	TargetVendorTaxID     Target = "vendor_tax_id"
	TargetVendorEmail     Target = "vendor_email"
	TargetVendorPhone     Target = "vendor_phone"
	TargetCustomerName    Target = "customer_name"
	TargetCustomerAddress Target = "customer_address"
	TargetCustomerTaxID   Target = "customer_tax_id"
	TargetSubtotal        Target = "subtotal"
	TargetTaxRate         Target = "tax_rate"
	TargetTaxAmount       Target = "tax_amount"
	TargetDiscountAmount  Target = "discount_amount"
	TargetTotal           Target = "total"
	TargetCurrency        Target = "currency"
	TargetInvoiceDate     Target = "invoice_date"
	TargetDueDate         Target = "due_date"
	TargetPaymentTerms    Target = "payment_terms"
	TargetPurchaseOrder   Target = "purchase_order"
	TargetNotes           Target = "notes"
	TargetLineItems       Target = "line_items"
)

// FieldSpec describes one field of a contract: the JSON key extraction output
// must use, its semantic type, and whether it is part of the minimal required
// subset. Signed marks money fields that may legitimately be negative.
type FieldSpec struct {
	Name     string
	Kind     FieldKind
	Target   Target
	Required bool
	Signed   bool
}

// Contract is a named schema for one document category.
type Contract struct {
	Name        string
	Description string
	Fields      []FieldSpec
}

// RequiredFields returns the names of the contract's minimal required subset.
func (c *Contract) RequiredFields() []string {
	var names []string
	for _, f := range c.Fields {
		if f.Required {
			names = append(names, f.Name)
		}
	}
	return names
}

// Registry holds all known document contracts.
type Registry struct {
	contracts map[string]*Contract
}

// NewRegistry creates a registry pre-populated with the built-in contracts:
// standard invoice, credit note, and receipt.
func NewRegistry() *Registry {
	r := &Registry{contracts: map[string]*Contract{}}
	r.Register(standardInvoiceContract())
	r.Register(creditNoteContract())
	r.Register(receiptContract())
	return r
}

// Register adds or replaces a contract.
func (r *Registry) Register(c *Contract) {
	r.contracts[c.Name] = c
}

// Get returns the named contract or domain.ErrUnknownContract.
func (r *Registry) Get(name string) (*Contract, error) {
	c, ok := r.contracts[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", domain.ErrUnknownContract, name)
	}
	return c, nil
}

// Names returns the registered contract names, sorted.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.contracts))
	for name := range r.contracts {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func standardInvoiceContract() *Contract {
	return &Contract{
		Name:        domain.DocTypeStandardInvoice,
		Description: "Regular invoice with line items and tax",
		Fields: []FieldSpec{
			{Name: "invoice_number", Kind: KindString, Target: TargetDocumentNumber, Required: true},
			{Name: "invoice_date", Kind: KindDate, Target: TargetInvoiceDate, Required: true},
			{Name: "due_date", Kind: KindDate, Target: TargetDueDate},
			{Name: "vendor_name", Kind: KindString, Target: TargetVendorName, Required: true},
			{Name: "vendor_address", Kind: KindString, Target: TargetVendorAddress},
			{Name: "vendor_tax_id", Kind: KindString, Target: TargetVendorTaxID},
			{Name: "vendor_email", Kind: KindString, Target: TargetVendorEmail},
			{Name: "vendor_phone", Kind: KindString, Target: TargetVendorPhone},
			{Name: "customer_name", Kind: KindString, Target: TargetCustomerName},
			{Name: "customer_address", Kind: KindString, Target: TargetCustomerAddress},
			{Name: "customer_tax_id", Kind: KindString, Target: TargetCustomerTaxID},
			{Name: "subtotal", Kind: KindMoney, Target: TargetSubtotal, Required: true},
			{Name: "tax_rate", Kind: KindMoney, Target: TargetTaxRate},
			{Name: "tax_amount", Kind: KindMoney, Target: TargetTaxAmount},
			{Name: "discount_amount", Kind: KindMoney, Target: TargetDiscountAmount},
			{Name: "total_amount", Kind: KindMoney, Target: TargetTotal, Required: true},
			{Name: "currency", Kind: KindCurrency, Target: TargetCurrency},
			{Name: "payment_terms", Kind: KindString, Target: TargetPaymentTerms},
			{Name: "purchase_order", Kind: KindString, Target: TargetPurchaseOrder},
			{Name: "line_items", Kind: KindLineItems, Target: TargetLineItems},
			{Name: "notes", Kind: KindString, Target: TargetNotes},
		},
	}
}

func creditNoteContract() *Contract {
	return &Contract{
		Name:        domain.DocTypeCreditNote,
		Description: "Credit note or credit memo document",
		Fields: []FieldSpec{
			{Name: "credit_note_number", Kind: KindString, Target: TargetDocumentNumber, Required: true},
			{Name: "credit_note_date", Kind: KindDate, Target: TargetInvoiceDate, Required: true},
			{Name: "original_invoice_number", Kind: KindString, Target: TargetPurchaseOrder, Required: true},
			{Name: "vendor_name", Kind: KindString, Target: TargetVendorName, Required: true},
			{Name: "customer_name", Kind: KindString, Target: TargetCustomerName},
			{Name: "credit_amount", Kind: KindMoney, Target: TargetTotal, Required: true, Signed: true},
			{Name: "currency", Kind: KindCurrency, Target: TargetCurrency},
			{Name: "reason", Kind: KindString, Target: TargetNotes},
		},
	}
}

func receiptContract() *Contract {
	return &Contract{
		Name:        domain.DocTypeReceipt,
		Description: "Simple receipt or cash invoice",
		Fields: []FieldSpec{
			{Name: "receipt_number", Kind: KindString, Target: TargetDocumentNumber, Required: true},
			{Name: "date", Kind: KindDate, Target: TargetInvoiceDate, Required: true},
			{Name: "vendor_name", Kind: KindString, Target: TargetVendorName, Required: true},
			{Name: "total_amount", Kind: KindMoney, Target: TargetTotal, Required: true},
			{Name: "currency", Kind: KindCurrency, Target: TargetCurrency},
			{Name: "payment_method", Kind: KindString, Target: TargetPaymentTerms},
			{Name: "line_items", Kind: KindLineItems, Target: TargetLineItems},
		},
	}
}
