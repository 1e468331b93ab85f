package mocks

import (
	"time"

	"github.com/brettbedarf/memfs"
	"github.com/stretchr/testify/mock"
)

// MockOperator implements memfs.Operator for testing across packages
type MockOperator struct {
	mock.Mock
}

func (m *MockOperator) GetAttributes(path string) (memfs.Attr, error) {
	args := m.Called(path)
	return args.Get(0).(memfs.Attr), args.Error(1)
}

func (m *MockOperator) Lookup(path string) (memfs.Entry, error) {
	args := m.Called(path)
	return args.Get(0).(memfs.Entry), args.Error(1)
}

func (m *MockOperator) List(path string) (*memfs.Listing, error) {
	args := m.Called(path)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*memfs.Listing), args.Error(1)
}

func (m *MockOperator) Mkdir(path string, perm uint32) (memfs.Entry, error) {
	args := m.Called(path, perm)
	return args.Get(0).(memfs.Entry), args.Error(1)
}

func (m *MockOperator) CreateAndOpen(path string, perm uint32) (memfs.Handle, memfs.Entry, error) {
	args := m.Called(path, perm)
	return args.Get(0).(memfs.Handle), args.Get(1).(memfs.Entry), args.Error(2)
}

func (m *MockOperator) Open(path string) (memfs.Handle, error) {
	args := m.Called(path)
	return args.Get(0).(memfs.Handle), args.Error(1)
}

func (m *MockOperator) Read(fh memfs.Handle, offset int64, length int) ([]byte, error) {
	args := m.Called(fh, offset, length)

	// Handle function return types (for complex tests)
	if fn, ok := args.Get(0).(func(memfs.Handle, int64, int) []byte); ok {
		return fn(fh, offset, length), args.Error(1)
	}

	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]byte), args.Error(1)
}

func (m *MockOperator) Write(fh memfs.Handle, offset int64, data []byte) (int, error) {
	args := m.Called(fh, offset, data)
	return args.Int(0), args.Error(1)
}

func (m *MockOperator) Release(fh memfs.Handle) {
	m.Called(fh)
}

func (m *MockOperator) Truncate(path string, size int64) error {
	return m.Called(path, size).Error(0)
}

func (m *MockOperator) Chmod(path string, perm uint32) error {
	return m.Called(path, perm).Error(0)
}

func (m *MockOperator) SetTimes(path string, atime, mtime time.Time) error {
	return m.Called(path, atime, mtime).Error(0)
}

func (m *MockOperator) Remove(path string) error {
	return m.Called(path).Error(0)
}

func (m *MockOperator) RemoveDirectory(path string) error {
	return m.Called(path).Error(0)
}

func (m *MockOperator) RemoveAll(path string) error {
	return m.Called(path).Error(0)
}

func (m *MockOperator) Stats() memfs.Stats {
	return m.Called().Get(0).(memfs.Stats)
}

var _ memfs.Operator = (*MockOperator)(nil)
