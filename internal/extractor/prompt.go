package extractor

import (
	"fmt"
	"strings"

	"ledgerlens/internal/contract"
)

const extractionSystemPrompt = `You are a document data extraction assistant. You read invoice-like documents and return structured JSON. You never invent values that are not present in the document.`

// BuildExtractionPrompt renders the extraction prompt for one contract. The
// JSON skeleton is generated from the contract's field specs so the prompt and
// the validation rules can never drift apart.
func BuildExtractionPrompt(c *contract.Contract, documentText string) string {
	var b strings.Builder

	fmt.Fprintf(&b, "Analyze the following %s document and extract its data.\n\n", strings.ReplaceAll(c.Name, "_", " "))
	b.WriteString("IMPORTANT INSTRUCTIONS:\n")
	b.WriteString("- Extract EVERY line item from every page. Do not skip, summarize, or omit any items.\n")
	b.WriteString("- Normalize all dates to YYYY-MM-DD format. Strip timestamps and annotations.\n")
	b.WriteString("- Amounts must be plain numbers without currency symbols or thousands separators.\n")
	b.WriteString("- Use the 3-letter uppercase code for the currency (e.g. USD, EUR).\n")
	b.WriteString("- If a field is not present in the document, use null.\n")
	b.WriteString("\nReturn ONLY valid JSON with no markdown formatting, no code fences, no explanation — just the raw JSON object.\n")
	b.WriteString("\nThe JSON object must follow this schema:\n")
	b.WriteString(schemaSkeleton(c))

	if required := c.RequiredFields(); len(required) > 0 {
		fmt.Fprintf(&b, "\nThe fields %s are mandatory.\n", strings.Join(required, ", "))
	}

	b.WriteString("\nDOCUMENT:\n")
	b.WriteString(documentText)
	return b.String()
}

func schemaSkeleton(c *contract.Contract) string {
	var b strings.Builder
	b.WriteString("{\n")
	for i, f := range c.Fields {
		fmt.Fprintf(&b, "  %q: %s", f.Name, fieldPlaceholder(f.Kind))
		if i < len(c.Fields)-1 {
			b.WriteString(",")
		}
		b.WriteString("\n")
	}
	b.WriteString("}\n")
	return b.String()
}

func fieldPlaceholder(k contract.FieldKind) string {
	switch k {
	case contract.KindMoney:
		return "0"
	case contract.KindDate:
		return `"YYYY-MM-DD"`
	case contract.KindCurrency:
		return `"USD"`
	case contract.KindLineItems:
		return `[{"description": "", "quantity": 0, "unit_price": 0, "total": 0}]`
	default:
		return `""`
	}
}

// BuildClassificationPrompt renders the document-type classification prompt.
// The model must answer with exactly one of the registered contract names.
func BuildClassificationPrompt(names []string, documentText string) string {
	var b strings.Builder
	b.WriteString("Classify the following document into exactly one of these categories:\n")
	for _, name := range names {
		fmt.Fprintf(&b, "- %s\n", name)
	}
	b.WriteString("\nRespond with ONLY the category name, nothing else.\n")
	b.WriteString("\nDOCUMENT:\n")
	b.WriteString(documentText)
	return b.String()
}
