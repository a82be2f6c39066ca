package ledger

import (
	"context"

	"github.com/byblosmedia/bybx-activation/interfaces"
	"github.com/stretchr/testify/mock"
)

// MockLedger implements a mock BindingLedger for testing.
// The behavior is determined by how the mock is configured in tests.
type MockLedger struct {
	mock.Mock
}

// Lookup implements the BindingLedger interface for testing.
func (m *MockLedger) Lookup(ctx context.Context, orderNumber string, productID int32) (*interfaces.Binding, error) {
	args := m.Called(ctx, orderNumber, productID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*interfaces.Binding), args.Error(1)
}

// Record implements the BindingLedger interface for testing.
func (m *MockLedger) Record(ctx context.Context, binding interfaces.Binding) error {
	args := m.Called(ctx, binding)
	return args.Error(0)
}

// Snapshot implements the BindingLedger interface for testing.
func (m *MockLedger) Snapshot(ctx context.Context) ([]byte, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]byte), args.Error(1)
}

// Restore implements the BindingLedger interface for testing.
func (m *MockLedger) Restore(ctx context.Context, snapshot []byte) error {
	args := m.Called(ctx, snapshot)
	return args.Error(0)
}

// Close implements the BindingLedger interface for testing.
func (m *MockLedger) Close() error {
	args := m.Called()
	return args.Error(0)
}
