package review

import (
	"context"
	"fmt"
	"strings"

	"ledgerlens/internal/domain"
	"ledgerlens/internal/port"
)

// report asks the backend for a short narrative summarizing the review. The
// narrative is presentation only; it cannot change the assessed level.
func (p *Pipeline) report(ctx context.Context, rec *domain.InvoiceRecord, validation *validationResult, a *assessment) (string, error) {
	raw, err := p.backend.Complete(ctx, port.CompletionRequest{
		System: "You write concise review summaries for accounts-payable staff. Plain text, no markdown.",
		Prompt: buildReportPrompt(rec, validation, a),
	})
	if err != nil {
		return "", err
	}

	narrative := strings.TrimSpace(raw)
	if narrative == "" {
		narrative = fmt.Sprintf("Invoice %s from %s assessed as %s risk (score %d).",
			rec.DocumentNumber, rec.VendorName, a.level, a.score)
	}
	return narrative, nil
}

func buildReportPrompt(rec *domain.InvoiceRecord, validation *validationResult, a *assessment) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Summarize the review of invoice %s from %s (total %s %s) in 2-4 sentences.\n",
		rec.DocumentNumber, rec.VendorName, rec.Total, rec.Currency)
	fmt.Fprintf(&b, "Risk level: %s (score %d).\n", a.level, a.score)
	if len(validation.issues) > 0 {
		fmt.Fprintf(&b, "Validation issues: %s.\n", strings.Join(validation.issues, "; "))
	}
	if len(a.factors) > 0 {
		fmt.Fprintf(&b, "Risk factors: %s.\n", strings.Join(a.factors, "; "))
	}
	if len(validation.issues) == 0 && len(a.factors) == 0 {
		b.WriteString("No issues or risk factors were found.\n")
	}
	return b.String()
}
