package camcheck

import "io"

// Vault stores run artifacts (rename maps, raw listings, database snapshots)
// for indefinite retention. Artifacts are namespaced by device ID; names may
// contain forward slashes to group artifacts of one run.
type Vault interface {
	// PutArtifact stores an artifact, replacing any previous artifact with the same name.
	// size is the number of bytes that will be read from r.
	PutArtifact(deviceID string, name string, r io.Reader, size int64) error

	// GetArtifact retrieves an artifact and writes it to w.
	GetArtifact(deviceID string, name string, w io.Writer) error

	// ListArtifacts returns the names of stored artifacts that start with prefix, sorted.
	ListArtifacts(deviceID string, prefix string) ([]string, error)

	// ValidateSetup verifies that the vault is accessible and properly configured.
	ValidateSetup() error
}
