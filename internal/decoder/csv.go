package decoder

import (
	"bytes"
	"context"
	"encoding/csv"
	"fmt"
	"strings"

	"ledgerlens/internal/domain"
	"ledgerlens/internal/port"
)

// decodeCSV parses the document as one table with a header row, and renders a
// pipe-separated text view of it for the extraction prompt.
func decodeCSV(_ context.Context, data []byte) (*port.DecodedDocument, error) {
	reader := csv.NewReader(bytes.NewReader(data))
	reader.FieldsPerRecord = -1
	records, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrDecode, err)
	}
	if len(records) == 0 {
		return nil, domain.ErrEmptyDocument
	}

	table := port.Table{Header: records[0]}
	if len(records) > 1 {
		table.Rows = records[1:]
	}

	var b strings.Builder
	for _, record := range records {
		b.WriteString(strings.Join(record, " | "))
		b.WriteByte('\n')
	}

	return &port.DecodedDocument{
		Text:      strings.TrimSpace(b.String()),
		Tables:    []port.Table{table},
		PageCount: 1,
	}, nil
}
