package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"doctriage/internal/domain"
	"doctriage/internal/port"
)

// MockProvider is a mock implementation of port.Provider.
type MockProvider struct {
	mock.Mock
	ProviderID domain.ProviderID
}

// NewMockProvider creates a MockProvider with a fixed identity.
func NewMockProvider(id domain.ProviderID) *MockProvider {
	return &MockProvider{ProviderID: id}
}

func (m *MockProvider) ID() domain.ProviderID {
	return m.ProviderID
}

func (m *MockProvider) Invoke(ctx context.Context, input port.InvokeInput) (*port.InvokeOutput, error) {
	args := m.Called(ctx, input)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*port.InvokeOutput), args.Error(1)
}
