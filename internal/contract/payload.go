package contract

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"ledgerlens/internal/domain"
)

// dateLayouts are the accepted textual date formats, tried in order.
var dateLayouts = []string{
	"2006-01-02",
	"02-01-2006",
	"01/02/2006",
	"02/01/2006",
	"Jan 2, 2006",
	"January 2, 2006",
	"2 Jan 2006",
	"2006/01/02",
}

// FieldViolation describes one contract rule a payload broke.
type FieldViolation struct {
	Field  string `json:"field"`
	Reason string `json:"reason"`
}

// ValidationError carries every violation found in one payload so callers can
// report them all at once instead of failing on the first.
type ValidationError struct {
	Contract   string
	Violations []FieldViolation
}

func (e *ValidationError) Error() string {
	parts := make([]string, 0, len(e.Violations))
	for _, v := range e.Violations {
		parts = append(parts, fmt.Sprintf("%s: %s", v.Field, v.Reason))
	}
	return fmt.Sprintf("payload violates contract %s: %s", e.Contract, strings.Join(parts, "; "))
}

// Payload is the canonical, typed form of a decoded document. All contracts
// decode into this shape; per-contract field names are mapped through the
// field spec's Target.
type Payload struct {
	DocumentNumber  string
	VendorName      string
	VendorAddress   string
	VendorTaxID     string
	VendorEmail     string
	VendorPhone     string
	CustomerName    string
	CustomerAddress string
	CustomerTaxID   string
	Subtotal        decimal.Decimal
	TaxRate         decimal.Decimal
	TaxAmount       decimal.Decimal
	DiscountAmount  decimal.Decimal
	Total           decimal.Decimal
	Currency        string
	InvoiceDate     time.Time
	DueDate         *time.Time
	PaymentTerms    string
	PurchaseOrder   string
	Notes           string
	LineItems       []domain.LineItem
}

// ToRecord converts the payload into a persistable invoice record.
func (p *Payload) ToRecord(docType string) *domain.InvoiceRecord {
	rec := &domain.InvoiceRecord{
		DocumentNumber:  p.DocumentNumber,
		DocumentType:    docType,
		VendorName:      p.VendorName,
		VendorAddress:   p.VendorAddress,
		VendorTaxID:     p.VendorTaxID,
		VendorEmail:     p.VendorEmail,
		VendorPhone:     p.VendorPhone,
		CustomerName:    p.CustomerName,
		CustomerAddress: p.CustomerAddress,
		CustomerTaxID:   p.CustomerTaxID,
		Subtotal:        p.Subtotal,
		TaxRate:         p.TaxRate,
		TaxAmount:       p.TaxAmount,
		DiscountAmount:  p.DiscountAmount,
		Total:           p.Total,
		Currency:        domain.Currency(p.Currency),
		InvoiceDate:     p.InvoiceDate,
		DueDate:         p.DueDate,
		PaymentTerms:    p.PaymentTerms,
		PurchaseOrder:   p.PurchaseOrder,
		Notes:           p.Notes,
		LineItems:       p.LineItems,
	}
	if rec.Currency == "" {
		rec.Currency = domain.CurrencyUSD
	}
	return rec
}

// DecodePayload parses raw extraction output against the contract. It returns
// a *ValidationError listing every violation when the payload is structurally
// valid JSON but breaks contract rules, and domain.ErrDecode when the bytes
// are not a JSON object at all.
func DecodePayload(c *Contract, raw []byte) (*Payload, error) {
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()

	var fields map[string]json.RawMessage
	if err := dec.Decode(&fields); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrDecode, err)
	}

	payload := &Payload{}
	var violations []FieldViolation

	for _, spec := range c.Fields {
		raw, present := fields[spec.Name]
		if !present || isJSONNull(raw) {
			if spec.Required {
				violations = append(violations, FieldViolation{Field: spec.Name, Reason: "required field missing"})
			}
			continue
		}

		switch spec.Kind {
		case KindString:
			s, err := decodeString(raw)
			if err != nil {
				violations = append(violations, FieldViolation{Field: spec.Name, Reason: err.Error()})
				continue
			}
			if spec.Required && strings.TrimSpace(s) == "" {
				violations = append(violations, FieldViolation{Field: spec.Name, Reason: "required field empty"})
				continue
			}
			payload.setString(spec.Target, strings.TrimSpace(s))

		case KindMoney:
			d, err := decodeMoney(raw)
			if err != nil {
				violations = append(violations, FieldViolation{Field: spec.Name, Reason: err.Error()})
				continue
			}
			if d.IsNegative() && !spec.Signed {
				violations = append(violations, FieldViolation{Field: spec.Name, Reason: "amount must not be negative"})
				continue
			}
			payload.setMoney(spec.Target, d)

		case KindDate:
			t, err := decodeDate(raw)
			if err != nil {
				violations = append(violations, FieldViolation{Field: spec.Name, Reason: err.Error()})
				continue
			}
			payload.setDate(spec.Target, t)

		case KindCurrency:
			code, err := decodeCurrency(raw)
			if err != nil {
				violations = append(violations, FieldViolation{Field: spec.Name, Reason: err.Error()})
				continue
			}
			payload.Currency = code

		case KindLineItems:
			items, errs := decodeLineItems(raw)
			if len(errs) > 0 {
				violations = append(violations, errs...)
				continue
			}
			payload.LineItems = items
		}
	}

	if len(violations) > 0 {
		return nil, &ValidationError{Contract: c.Name, Violations: violations}
	}
	return payload, nil
}

func (p *Payload) setString(t Target, s string) {
	switch t {
	case TargetDocumentNumber:
		p.DocumentNumber = s
	case TargetVendorName:
		p.VendorName = s
	case TargetVendorAddress:
		p.VendorAddress = s
	case TargetVendorTaxID:
		p.VendorTaxID = s
	case TargetVendorEmail:
		p.VendorEmail = s
	case TargetVendorPhone:
		p.VendorPhone = s
	case TargetCustomerName:
		p.CustomerName = s
	case TargetCustomerAddress:
		p.CustomerAddress = s
	case TargetCustomerTaxID:
		p.CustomerTaxID = s
	case TargetPaymentTerms:
		p.PaymentTerms = s
	case TargetPurchaseOrder:
		p.PurchaseOrder = s
	case TargetNotes:
		p.Notes = s
	}
}

func (p *Payload) setMoney(t Target, d decimal.Decimal) {
	switch t {
	case TargetSubtotal:
		p.Subtotal = d
	case TargetTaxRate:
		p.TaxRate = d
	case TargetTaxAmount:
		p.TaxAmount = d
	case TargetDiscountAmount:
		p.DiscountAmount = d
	case TargetTotal:
		p.Total = d
	}
}

func (p *Payload) setDate(t Target, d time.Time) {
	switch t {
	case TargetInvoiceDate:
		p.InvoiceDate = d
	case TargetDueDate:
		p.DueDate = &d
	}
}

func isJSONNull(raw json.RawMessage) bool {
	return string(bytes.TrimSpace(raw)) == "null"
}

func decodeString(raw json.RawMessage) (string, error) {
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return "", fmt.Errorf("expected a string, got %s", compact(raw))
	}
	return s, nil
}

// decodeMoney accepts JSON numbers and numeric strings. Models often emit
// formatted strings like "$1,234.50"; currency symbols, commas, and spaces
// are stripped before parsing.
func decodeMoney(raw json.RawMessage) (decimal.Decimal, error) {
	var num json.Number
	if err := json.Unmarshal(raw, &num); err == nil {
		d, derr := decimal.NewFromString(num.String())
		if derr != nil {
			return decimal.Zero, fmt.Errorf("unparseable amount %q", num.String())
		}
		return d, nil
	}

	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return decimal.Zero, fmt.Errorf("expected an amount, got %s", compact(raw))
	}
	cleaned := strings.Map(func(r rune) rune {
		switch r {
		case '$', '€', '£', '₹', ',', ' ', '%':
			return -1
		}
		return r
	}, strings.TrimSpace(s))
	if cleaned == "" {
		return decimal.Zero, fmt.Errorf("empty amount")
	}
	d, err := decimal.NewFromString(cleaned)
	if err != nil {
		return decimal.Zero, fmt.Errorf("unparseable amount %q", s)
	}
	return d, nil
}

func decodeDate(raw json.RawMessage) (time.Time, error) {
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return time.Time{}, fmt.Errorf("expected a date string, got %s", compact(raw))
	}
	s = strings.TrimSpace(s)
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unparseable date %q", s)
}

func decodeCurrency(raw json.RawMessage) (string, error) {
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return "", fmt.Errorf("expected a currency code, got %s", compact(raw))
	}
	code := strings.ToUpper(strings.TrimSpace(s))
	if code == "" {
		return string(domain.CurrencyUSD), nil
	}
	if !domain.Currency(code).Known() {
		return "", fmt.Errorf("unknown currency code %q", s)
	}
	return code, nil
}

type rawLineItem struct {
	Description string          `json:"description"`
	Quantity    json.RawMessage `json:"quantity"`
	UnitPrice   json.RawMessage `json:"unit_price"`
	Total       json.RawMessage `json:"total"`
	LineTotal   json.RawMessage `json:"line_total"`
	Amount      json.RawMessage `json:"amount"`
}

func decodeLineItems(raw json.RawMessage) ([]domain.LineItem, []FieldViolation) {
	var rows []rawLineItem
	if err := json.Unmarshal(raw, &rows); err != nil {
		return nil, []FieldViolation{{Field: "line_items", Reason: "expected an array of objects"}}
	}

	var violations []FieldViolation
	items := make([]domain.LineItem, 0, len(rows))
	for i, row := range rows {
		item := domain.LineItem{
			Position:    i + 1,
			Description: strings.TrimSpace(row.Description),
			Quantity:    decimal.NewFromInt(1),
		}
		if len(row.Quantity) > 0 && !isJSONNull(row.Quantity) {
			q, err := decodeMoney(row.Quantity)
			if err != nil {
				violations = append(violations, FieldViolation{
					Field:  fmt.Sprintf("line_items[%d].quantity", i),
					Reason: err.Error(),
				})
				continue
			}
			item.Quantity = q
		}
		if len(row.UnitPrice) > 0 && !isJSONNull(row.UnitPrice) {
			p, err := decodeMoney(row.UnitPrice)
			if err != nil {
				violations = append(violations, FieldViolation{
					Field:  fmt.Sprintf("line_items[%d].unit_price", i),
					Reason: err.Error(),
				})
				continue
			}
			item.UnitPrice = p
		}

		totalRaw := row.Total
		if len(totalRaw) == 0 || isJSONNull(totalRaw) {
			totalRaw = row.LineTotal
		}
		if len(totalRaw) == 0 || isJSONNull(totalRaw) {
			totalRaw = row.Amount
		}
		if len(totalRaw) > 0 && !isJSONNull(totalRaw) {
			t, err := decodeMoney(totalRaw)
			if err != nil {
				violations = append(violations, FieldViolation{
					Field:  fmt.Sprintf("line_items[%d].total", i),
					Reason: err.Error(),
				})
				continue
			}
			item.LineTotal = t
		} else {
			item.LineTotal = item.Quantity.Mul(item.UnitPrice)
		}
		items = append(items, item)
	}
	return items, violations
}

func compact(raw json.RawMessage) string {
	s := string(bytes.TrimSpace(raw))
	if len(s) > 40 {
		s = s[:40] + "..."
	}
	return s
}
