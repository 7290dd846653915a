package testutil

import (
	"bytes"
	"fmt"
	"io"
	"sync"

	"camcheck/internal/camcheck"
)

// MockFilesystemManager is an in-memory filesystem for testing.
type MockFilesystemManager struct {
	mu       sync.Mutex
	files    map[string][]byte
	writeErr error
}

// NewMockFilesystemManager creates a new mock filesystem.
func NewMockFilesystemManager() *MockFilesystemManager {
	return &MockFilesystemManager{
		files: make(map[string][]byte),
	}
}

// AddFile adds a file to the mock filesystem.
func (m *MockFilesystemManager) AddFile(path string, content string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.files[path] = []byte(content)
}

// FailWrites makes every subsequent WriteFile return err.
func (m *MockFilesystemManager) FailWrites(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.writeErr = err
}

// ReadFile returns the content of a file and whether it exists.
func (m *MockFilesystemManager) ReadFile(path string) (string, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	data, ok := m.files[path]
	return string(data), ok
}

// Open opens a file for reading.
func (m *MockFilesystemManager) Open(path string) (io.ReadCloser, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	data, ok := m.files[path]
	if !ok {
		return nil, fmt.Errorf("file not found: %s", path)
	}
	return io.NopCloser(bytes.NewReader(data)), nil
}

// WriteFile replaces the content of path with everything read from r.
func (m *MockFilesystemManager) WriteFile(path string, r io.Reader) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.writeErr != nil {
		return m.writeErr
	}
	data, err := io.ReadAll(r)
	if err != nil {
		return fmt.Errorf("reading content: %w", err)
	}
	m.files[path] = data
	return nil
}

// Compile-time check that MockFilesystemManager implements camcheck.FilesystemManager interface
var _ camcheck.FilesystemManager = (*MockFilesystemManager)(nil)
