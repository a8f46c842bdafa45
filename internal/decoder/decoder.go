// Package decoder turns uploaded document bytes into text the extraction
// backends can read. Decoders are registered per MIME type.
package decoder

import (
	"context"
	"fmt"
	"mime"
	"strings"
	"unicode/utf8"

	"ledgerlens/internal/domain"
	"ledgerlens/internal/port"
)

// decodeFunc decodes one document body.
type decodeFunc func(ctx context.Context, data []byte) (*port.DecodedDocument, error)

// Registry dispatches on Content-Type. It implements port.DocumentDecoder.
type Registry struct {
	decoders map[string]decodeFunc
}

// NewRegistry creates a registry with the built-in text and CSV decoders.
func NewRegistry() *Registry {
	r := &Registry{decoders: map[string]decodeFunc{}}
	for _, mt := range []string{"text/plain", "text/markdown", "application/json"} {
		r.decoders[mt] = decodeText
	}
	r.decoders["text/csv"] = decodeCSV
	return r
}

// SupportedTypes returns the registered MIME types.
func (r *Registry) SupportedTypes() []string {
	types := make([]string, 0, len(r.decoders))
	for mt := range r.decoders {
		types = append(types, mt)
	}
	return types
}

// Decode decodes the document. Unregistered MIME types return
// domain.ErrUnsupportedMime; empty bodies return domain.ErrEmptyDocument.
func (r *Registry) Decode(ctx context.Context, data []byte, contentType string) (*port.DecodedDocument, error) {
	if len(data) == 0 {
		return nil, domain.ErrEmptyDocument
	}

	mediaType := contentType
	if parsed, _, err := mime.ParseMediaType(contentType); err == nil {
		mediaType = parsed
	}
	mediaType = strings.ToLower(strings.TrimSpace(mediaType))

	decode, ok := r.decoders[mediaType]
	if !ok {
		return nil, fmt.Errorf("%w: %s", domain.ErrUnsupportedMime, contentType)
	}
	return decode(ctx, data)
}

func decodeText(_ context.Context, data []byte) (*port.DecodedDocument, error) {
	if !utf8.Valid(data) {
		return nil, fmt.Errorf("%w: document is not valid UTF-8", domain.ErrDecode)
	}
	text := strings.TrimSpace(string(data))
	if text == "" {
		return nil, domain.ErrEmptyDocument
	}
	return &port.DecodedDocument{
		Text:      text,
		PageCount: 1 + strings.Count(text, "\f"),
	}, nil
}
