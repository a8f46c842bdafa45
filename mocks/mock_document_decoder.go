package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"ledgerlens/internal/port"
)

// MockDocumentDecoder is a mock implementation of port.DocumentDecoder.
type MockDocumentDecoder struct {
	mock.Mock
}

func (m *MockDocumentDecoder) Decode(ctx context.Context, data []byte, contentType string) (*port.DecodedDocument, error) {
	args := m.Called(ctx, data, contentType)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*port.DecodedDocument), args.Error(1)
}
