package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"doctriage/internal/domain"
	"doctriage/internal/port"
)

// MockConsolidator is a mock implementation of port.Consolidator.
type MockConsolidator struct {
	mock.Mock
}

func (m *MockConsolidator) Consolidate(ctx context.Context, input port.ConsolidationInput) (*domain.ConsolidationResult, error) {
	args := m.Called(ctx, input)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.ConsolidationResult), args.Error(1)
}
