package vault

import (
	"bytes"
	"fmt"
	"io"
	"sort"
	"strings"
	"sync"

	"camcheck/internal/camcheck"
)

// MemoryVault is an in-memory implementation of the Vault interface.
// It keeps all artifacts in memory, making it useful for testing.
// This implementation is safe for concurrent use.
type MemoryVault struct {
	name      string
	artifacts map[string][]byte // "deviceID/name" -> content
	mu        sync.RWMutex
}

// NewMemoryVault creates a new in-memory vault with the given name.
func NewMemoryVault(name string) *MemoryVault {
	return &MemoryVault{
		name:      name,
		artifacts: make(map[string][]byte),
	}
}

// artifactKey returns the map key for a device/name pair.
func artifactKey(deviceID, name string) string {
	return deviceID + "/" + name
}

// PutArtifact stores an artifact, replacing any earlier one of the same name.
func (m *MemoryVault) PutArtifact(deviceID string, name string, r io.Reader, size int64) error {
	if err := checkArtifactName(name); err != nil {
		return err
	}

	data, err := io.ReadAll(r)
	if err != nil {
		return fmt.Errorf("failed to read artifact: %w", err)
	}

	if int64(len(data)) != size {
		return fmt.Errorf("size mismatch: expected %d bytes, got %d", size, len(data))
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	m.artifacts[artifactKey(deviceID, name)] = data
	return nil
}

// GetArtifact retrieves an artifact by name.
func (m *MemoryVault) GetArtifact(deviceID string, name string, w io.Writer) error {
	m.mu.RLock()
	defer m.mu.RUnlock()

	data, ok := m.artifacts[artifactKey(deviceID, name)]
	if !ok {
		return fmt.Errorf("artifact %q not found for device: %s", name, deviceID)
	}

	if _, err := io.Copy(w, bytes.NewReader(data)); err != nil {
		return fmt.Errorf("failed to write artifact: %w", err)
	}

	return nil
}

// ListArtifacts returns the sorted names of a device's artifacts starting with prefix.
func (m *MemoryVault) ListArtifacts(deviceID string, prefix string) ([]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	devicePrefix := artifactKey(deviceID, "")
	var names []string
	for key := range m.artifacts {
		name, ok := strings.CutPrefix(key, devicePrefix)
		if ok && strings.HasPrefix(name, prefix) {
			names = append(names, name)
		}
	}
	sort.Strings(names)
	return names, nil
}

// ValidateSetup always succeeds for in-memory vault.
func (m *MemoryVault) ValidateSetup() error {
	return nil
}

// Compile-time check that MemoryVault implements camcheck.Vault interface
var _ camcheck.Vault = (*MemoryVault)(nil)
