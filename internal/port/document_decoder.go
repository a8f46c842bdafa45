package port

import "context"

// DecodedDocument is the text/layout representation the extraction engine
// consumes. Raw bytes never reach a model backend.
type DecodedDocument struct {
	Text      string
	Tables    []Table
	PageCount int
}

// Table is a recognized tabular region, row-major.
type Table struct {
	Header []string
	Rows   [][]string
}

// DocumentDecoder turns a binary blob into recognized text and tables.
// Implementations for PDF and image formats are external collaborators; a
// decode failure aborts processing before any model call is made.
type DocumentDecoder interface {
	Decode(ctx context.Context, data []byte, contentType string) (*DecodedDocument, error)
}
