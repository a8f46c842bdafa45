package mocks

import (
	"context"
	"time"

	"github.com/stretchr/testify/mock"

	"ledgerlens/internal/domain"
)

// MockInvoiceRepository is a mock implementation of port.InvoiceRepository.
type MockInvoiceRepository struct {
	mock.Mock
}

func (m *MockInvoiceRepository) Upsert(ctx context.Context, rec *domain.InvoiceRecord) (domain.UpsertOutcome, error) {
	args := m.Called(ctx, rec)
	return args.Get(0).(domain.UpsertOutcome), args.Error(1)
}

func (m *MockInvoiceRepository) GetByNaturalKey(ctx context.Context, documentNumber, vendorName string) (*domain.InvoiceRecord, error) {
	args := m.Called(ctx, documentNumber, vendorName)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.InvoiceRecord), args.Error(1)
}

func (m *MockInvoiceRepository) ListByVendor(ctx context.Context, vendorName string, from, to *time.Time) ([]domain.InvoiceRecord, error) {
	args := m.Called(ctx, vendorName, from, to)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.InvoiceRecord), args.Error(1)
}

func (m *MockInvoiceRepository) AggregateByVendor(ctx context.Context, vendorName string, year *int) ([]domain.VendorAggregate, error) {
	args := m.Called(ctx, vendorName, year)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.VendorAggregate), args.Error(1)
}

func (m *MockInvoiceRepository) ListByRiskLevels(ctx context.Context, levels []domain.RiskLevel, limit int) ([]domain.InvoiceRecord, error) {
	args := m.Called(ctx, levels, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.InvoiceRecord), args.Error(1)
}

func (m *MockInvoiceRepository) Stats(ctx context.Context) (*domain.Stats, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Stats), args.Error(1)
}

func (m *MockInvoiceRepository) VendorHistory(ctx context.Context, vendorName string) (int, float64, error) {
	args := m.Called(ctx, vendorName)
	return args.Int(0), args.Get(1).(float64), args.Error(2)
}
