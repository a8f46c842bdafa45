package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"ledgerlens/internal/port"
)

// MockModelBackend is a mock implementation of port.ModelBackend.
type MockModelBackend struct {
	mock.Mock
}

func (m *MockModelBackend) Name() string {
	args := m.Called()
	return args.String(0)
}

func (m *MockModelBackend) Complete(ctx context.Context, req port.CompletionRequest) (string, error) {
	args := m.Called(ctx, req)
	return args.String(0), args.Error(1)
}
