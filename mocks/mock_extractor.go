package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"ledgerlens/internal/extractor"
)

// MockExtractor is a mock implementation of service.Extractor.
type MockExtractor struct {
	mock.Mock
}

func (m *MockExtractor) Extract(ctx context.Context, contractName, documentText string) (*extractor.Result, error) {
	args := m.Called(ctx, contractName, documentText)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*extractor.Result), args.Error(1)
}

func (m *MockExtractor) Classify(ctx context.Context, documentText string) string {
	args := m.Called(ctx, documentText)
	return args.String(0)
}
