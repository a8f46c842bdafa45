package review

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"ledgerlens/internal/domain"
	"ledgerlens/internal/port"
)

// validationResult carries the validating stage's findings into assessment.
type validationResult struct {
	issues             []string
	completeness       float64
	arithmeticMismatch bool
}

// completenessFields are the fields counted toward the completeness score.
var completenessFields = []func(*domain.InvoiceRecord) bool{
	func(r *domain.InvoiceRecord) bool { return r.DocumentNumber != "" },
	func(r *domain.InvoiceRecord) bool { return r.VendorName != "" },
	func(r *domain.InvoiceRecord) bool { return r.VendorAddress != "" },
	func(r *domain.InvoiceRecord) bool { return r.VendorTaxID != "" },
	func(r *domain.InvoiceRecord) bool { return r.CustomerName != "" },
	func(r *domain.InvoiceRecord) bool { return !r.InvoiceDate.IsZero() },
	func(r *domain.InvoiceRecord) bool { return r.DueDate != nil },
	func(r *domain.InvoiceRecord) bool { return !r.Subtotal.IsZero() },
	func(r *domain.InvoiceRecord) bool { return !r.Total.IsZero() },
	func(r *domain.InvoiceRecord) bool { return r.PaymentTerms != "" },
	func(r *domain.InvoiceRecord) bool { return len(r.LineItems) > 0 },
}

// validate runs the deterministic checks, then asks the backend for any issues
// the heuristics cannot see. A backend answer that does not parse is dropped;
// only a transport failure aborts the stage.
func (p *Pipeline) validate(ctx context.Context, rec *domain.InvoiceRecord) (*validationResult, error) {
	res := &validationResult{}

	tol := decimal.NewFromFloat(p.cfg.ArithmeticTol)
	expected := rec.Subtotal.Add(rec.TaxAmount).Sub(rec.DiscountAmount)
	if diff := expected.Sub(rec.Total).Abs(); diff.GreaterThan(tol) {
		res.arithmeticMismatch = true
		res.issues = append(res.issues, fmt.Sprintf(
			"arithmetic mismatch: subtotal %s + tax %s - discount %s = %s, but total is %s",
			rec.Subtotal, rec.TaxAmount, rec.DiscountAmount, expected, rec.Total))
	}

	if len(rec.LineItems) > 0 {
		var sum decimal.Decimal
		for _, item := range rec.LineItems {
			sum = sum.Add(item.LineTotal)
		}
		if diff := sum.Sub(rec.Subtotal).Abs(); !rec.Subtotal.IsZero() && diff.GreaterThan(tol) {
			res.issues = append(res.issues, fmt.Sprintf(
				"line items sum to %s but subtotal is %s", sum, rec.Subtotal))
		}
	}

	if rec.DueDate != nil && !rec.InvoiceDate.IsZero() && rec.DueDate.Before(rec.InvoiceDate) {
		res.issues = append(res.issues, "due date precedes invoice date")
	}
	if !rec.InvoiceDate.IsZero() && rec.InvoiceDate.After(time.Now().AddDate(0, 0, 1)) {
		res.issues = append(res.issues, "invoice date is in the future")
	}

	present := 0
	for _, check := range completenessFields {
		if check(rec) {
			present++
		}
	}
	res.completeness = float64(present) / float64(len(completenessFields))

	raw, err := p.backend.Complete(ctx, port.CompletionRequest{
		System: "You are an accounts-payable reviewer. You answer with JSON only.",
		Prompt: buildValidatePrompt(rec),
	})
	if err != nil {
		return nil, err
	}
	var extra []string
	if jerr := json.Unmarshal([]byte(extractJSON(raw, '[', ']')), &extra); jerr != nil {
		p.logger.Debug("dropping unparseable validation answer", zap.Error(jerr))
	} else {
		for _, issue := range extra {
			if issue = strings.TrimSpace(issue); issue != "" {
				res.issues = append(res.issues, issue)
			}
		}
	}

	return res, nil
}

func buildValidatePrompt(rec *domain.InvoiceRecord) string {
	doc, _ := json.Marshal(rec)
	var b strings.Builder
	b.WriteString("Review the following extracted invoice data for internal inconsistencies ")
	b.WriteString("(implausible values, contradictory fields, malformed identifiers).\n")
	b.WriteString("Respond with a JSON array of issue strings. Respond with [] if you find none.\n\nDATA:\n")
	b.Write(doc)
	return b.String()
}

// extractJSON cuts the first open..close span out of a model answer.
func extractJSON(s string, open, close byte) string {
	first := strings.IndexByte(s, open)
	last := strings.LastIndexByte(s, close)
	if first >= 0 && last > first {
		return s[first : last+1]
	}
	return s
}
