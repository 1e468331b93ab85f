package mocks

import (
	"time"

	"github.com/brettbedarf/memfs"
	"github.com/brettbedarf/memfs/metrics"
	"github.com/stretchr/testify/mock"
)

// MockRecorder implements metrics.Recorder for testing across packages
type MockRecorder struct {
	mock.Mock
}

func (m *MockRecorder) RecordOperation(operation string, duration time.Duration, size int64, err error) {
	m.Called(operation, duration, size, err)
}

func (m *MockRecorder) ObserveTree(st memfs.Stats) {
	m.Called(st)
}

var _ metrics.Recorder = (*MockRecorder)(nil)
