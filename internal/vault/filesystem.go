package vault

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"camcheck/internal/camcheck"
)

// FileSystemVault is a filesystem-based implementation of the Vault interface.
// It stores artifacts as files in a directory structure:
//
//	<root>/
//	  artifacts/
//	    <deviceID>/
//	      <runID>/phone-media-orig-to-backup-filenames-map-....json
//	      <runID>/phone/<listing>
//	      <runID>/backup/<listing>
//	      index/camcheck.db
type FileSystemVault struct {
	name         string
	root         string
	artifactsDir string
}

// NewFileSystemVault creates a new filesystem vault rooted at the given path.
func NewFileSystemVault(name, root string) (*FileSystemVault, error) {
	artifactsDir := filepath.Join(root, "artifacts")

	if err := os.MkdirAll(artifactsDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create artifacts directory: %w", err)
	}

	return &FileSystemVault{
		name:         name,
		root:         root,
		artifactsDir: artifactsDir,
	}, nil
}

func (v *FileSystemVault) deviceDir(deviceID string) (string, error) {
	if deviceID == "" || !filepath.IsLocal(deviceID) || strings.ContainsRune(deviceID, filepath.Separator) {
		return "", fmt.Errorf("invalid device ID: %q", deviceID)
	}
	return filepath.Join(v.artifactsDir, deviceID), nil
}

func (v *FileSystemVault) artifactPath(deviceID, name string) (string, error) {
	if err := checkArtifactName(name); err != nil {
		return "", err
	}
	dir, err := v.deviceDir(deviceID)
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, filepath.FromSlash(name)), nil
}

// PutArtifact stores an artifact, replacing any earlier one of the same name.
func (v *FileSystemVault) PutArtifact(deviceID string, name string, r io.Reader, size int64) error {
	destPath, err := v.artifactPath(deviceID, name)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(destPath), 0755); err != nil {
		return fmt.Errorf("failed to create artifact directory: %w", err)
	}
	return v.writeFile(destPath, r, size)
}

// GetArtifact retrieves an artifact and writes it to w.
func (v *FileSystemVault) GetArtifact(deviceID string, name string, w io.Writer) error {
	srcPath, err := v.artifactPath(deviceID, name)
	if err != nil {
		return err
	}
	return v.readFile(srcPath, w, fmt.Sprintf("artifact %q not found for device: %s", name, deviceID))
}

// ListArtifacts returns the sorted names of a device's artifacts starting with prefix.
func (v *FileSystemVault) ListArtifacts(deviceID string, prefix string) ([]string, error) {
	dir, err := v.deviceDir(deviceID)
	if err != nil {
		return nil, err
	}

	var names []string
	err = filepath.WalkDir(dir, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) && p == dir {
				return filepath.SkipDir
			}
			return err
		}
		if d.IsDir() || strings.HasPrefix(d.Name(), ".tmp-") {
			return nil
		}
		rel, err := filepath.Rel(dir, p)
		if err != nil {
			return err
		}
		name := filepath.ToSlash(rel)
		if strings.HasPrefix(name, prefix) {
			names = append(names, name)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("listing artifacts: %w", err)
	}

	sort.Strings(names)
	return names, nil
}

// ValidateSetup verifies that the vault directories are accessible.
func (v *FileSystemVault) ValidateSetup() error {
	for _, dir := range []string{v.root, v.artifactsDir} {
		info, err := os.Stat(dir)
		if err != nil {
			return fmt.Errorf("vault directory not accessible: %w", err)
		}
		if !info.IsDir() {
			return fmt.Errorf("vault path is not a directory: %s", dir)
		}
	}
	return nil
}

// writeFile writes data from r to the specified path using atomic write (temp file + rename).
func (v *FileSystemVault) writeFile(destPath string, r io.Reader, expectedSize int64) error {
	// Create temp file in the same directory to ensure atomic rename works
	dir := filepath.Dir(destPath)
	tmpFile, err := os.CreateTemp(dir, ".tmp-*")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpPath := tmpFile.Name()

	success := false
	defer func() {
		if !success {
			os.Remove(tmpPath)
		}
	}()

	written, err := io.Copy(tmpFile, r)
	if err != nil {
		tmpFile.Close()
		return fmt.Errorf("failed to write data: %w", err)
	}

	if err := tmpFile.Close(); err != nil {
		return fmt.Errorf("failed to close temp file: %w", err)
	}

	if written != expectedSize {
		return fmt.Errorf("size mismatch: expected %d bytes, got %d", expectedSize, written)
	}

	if err := os.Rename(tmpPath, destPath); err != nil {
		return fmt.Errorf("failed to rename temp file: %w", err)
	}

	success = true
	return nil
}

// readFile reads from the specified path and writes to w.
func (v *FileSystemVault) readFile(srcPath string, w io.Writer, notFoundMsg string) error {
	f, err := os.Open(srcPath)
	if err != nil {
		if os.IsNotExist(err) {
			return fmt.Errorf("%s", notFoundMsg)
		}
		return fmt.Errorf("failed to open file: %w", err)
	}
	defer f.Close()

	if _, err := io.Copy(w, f); err != nil {
		return fmt.Errorf("failed to read file: %w", err)
	}

	return nil
}

// Compile-time check that FileSystemVault implements camcheck.Vault interface
var _ camcheck.Vault = (*FileSystemVault)(nil)
