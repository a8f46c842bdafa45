package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"ledgerlens/internal/port"
)

// MockReadOnlyQueryExecutor is a mock implementation of port.ReadOnlyQueryExecutor.
type MockReadOnlyQueryExecutor struct {
	mock.Mock
}

func (m *MockReadOnlyQueryExecutor) RunReadOnly(ctx context.Context, query string) (*port.QueryRows, error) {
	args := m.Called(ctx, query)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*port.QueryRows), args.Error(1)
}
