package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"ledgerlens/internal/domain"
)

// MockReviewer is a mock implementation of service.Reviewer.
type MockReviewer struct {
	mock.Mock
}

func (m *MockReviewer) Run(ctx context.Context, rec *domain.InvoiceRecord) (*domain.RiskAssessment, error) {
	args := m.Called(ctx, rec)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.RiskAssessment), args.Error(1)
}
