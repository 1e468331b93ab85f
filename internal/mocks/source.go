package mocks

import (
	"context"
	"io"

	"github.com/stretchr/testify/mock"
)

// MockSource implements adapters.Source for testing
type MockSource struct {
	mock.Mock
}

func (m *MockSource) Fetch(ctx context.Context) (io.ReadCloser, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(io.ReadCloser), args.Error(1)
}
