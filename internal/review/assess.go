package review

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"ledgerlens/internal/domain"
	"ledgerlens/internal/port"
)

var suspiciousVendorKeywords = []string{"test", "temp", "dummy", "sample"}

// assessment is the assessing stage's result, consumed by reporting.
type assessment struct {
	level   domain.RiskLevel
	score   int
	factors []string
}

// assess scores the record against the anomaly heuristics, then lets the
// backend raise the level. The heuristic level is a floor: the model answer
// can never lower it.
func (p *Pipeline) assess(ctx context.Context, rec *domain.InvoiceRecord, validation *validationResult) (*assessment, error) {
	a := &assessment{level: domain.RiskLow}

	total := rec.Total.Abs()
	hundred := decimal.NewFromInt(100)
	roundFloor := decimal.NewFromFloat(p.cfg.RoundNumberFloor)
	if total.GreaterThan(roundFloor) && total.Mod(hundred).IsZero() {
		a.score++
		a.factors = append(a.factors, fmt.Sprintf("total is a round number: %s", rec.Total))
	}

	highFloor := decimal.NewFromFloat(p.cfg.HighAmountFloor)
	if total.GreaterThan(highFloor) {
		a.score += 2
		a.factors = append(a.factors, fmt.Sprintf("unusually high total: %s", rec.Total))
	}

	missing := 0
	if rec.VendorName == "" {
		missing++
	}
	if rec.InvoiceDate.IsZero() {
		missing++
	}
	if rec.PaymentTerms == "" {
		missing++
	}
	if missing > 0 {
		a.score += missing
		a.factors = append(a.factors, fmt.Sprintf("%d critical fields missing", missing))
	}

	vendor := strings.ToLower(rec.VendorName)
	suspiciousVendor := false
	for _, kw := range suspiciousVendorKeywords {
		if strings.Contains(vendor, kw) {
			suspiciousVendor = true
			a.score += 5
			a.factors = append(a.factors, fmt.Sprintf("vendor name contains suspicious keyword %q", kw))
			break
		}
	}

	if !rec.Subtotal.IsZero() && !rec.TaxAmount.IsZero() {
		rate, _ := rec.TaxAmount.Div(rec.Subtotal).Mul(hundred).Float64()
		if rate < 3 || rate > 20 {
			a.score++
			a.factors = append(a.factors, fmt.Sprintf("unusual tax rate: %.2f%%", rate))
		}
	}

	if rec.VendorName != "" {
		count, avg, err := p.repo.VendorHistory(ctx, rec.VendorName)
		switch {
		case err != nil:
			p.logger.Warn("vendor history unavailable", zap.String("vendor", rec.VendorName), zap.Error(err))
		case count == 0:
			a.score++
			a.factors = append(a.factors, "first invoice from this vendor")
		case avg > 0:
			if f, _ := total.Float64(); f > 3*avg {
				a.score += 2
				a.factors = append(a.factors, fmt.Sprintf("total is %.1fx the vendor average", f/avg))
			}
		}
	}

	switch {
	case a.score >= 5:
		a.level = domain.RiskHigh
	case a.score > 0:
		a.level = domain.RiskMedium
	}
	if validation.arithmeticMismatch {
		a.factors = append(a.factors, "arithmetic mismatch beyond tolerance")
	}
	if validation.arithmeticMismatch || suspiciousVendor {
		a.level = domain.MaxRiskLevel(a.level, domain.RiskMedium)
	}

	raw, err := p.backend.Complete(ctx, port.CompletionRequest{
		System: "You are a financial risk analyst. You answer with JSON only.",
		Prompt: buildAssessPrompt(rec, validation, a),
	})
	if err != nil {
		return nil, err
	}
	var answer struct {
		RiskLevel domain.RiskLevel `json:"risk_level"`
		Factors   []string         `json:"factors"`
	}
	if jerr := json.Unmarshal([]byte(extractJSON(raw, '{', '}')), &answer); jerr != nil {
		p.logger.Debug("dropping unparseable risk answer", zap.Error(jerr))
		return a, nil
	}
	if answer.RiskLevel.Valid() && answer.RiskLevel.Rank() > a.level.Rank() {
		a.level = answer.RiskLevel
		a.factors = append(a.factors, answer.Factors...)
	}

	return a, nil
}

func buildAssessPrompt(rec *domain.InvoiceRecord, validation *validationResult, a *assessment) string {
	doc, _ := json.Marshal(rec)
	var b strings.Builder
	b.WriteString("Assess the fraud and anomaly risk of this invoice.\n")
	fmt.Fprintf(&b, "Automated checks found issues %v and risk factors %v (heuristic level: %s).\n",
		validation.issues, a.factors, a.level)
	b.WriteString(`Respond with JSON: {"risk_level": "low"|"medium"|"high", "factors": [...]}.` + "\n\nDATA:\n")
	b.Write(doc)
	return b.String()
}
