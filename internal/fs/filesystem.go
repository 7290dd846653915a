package fs

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"camcheck/internal/camcheck"
)

// OSFilesystemManager is the real filesystem implementation of FilesystemManager.
type OSFilesystemManager struct{}

// NewOSFilesystemManager creates a new filesystem manager that operates on the real filesystem.
func NewOSFilesystemManager() *OSFilesystemManager {
	return &OSFilesystemManager{}
}

// Open opens a regular file for reading.
func (m *OSFilesystemManager) Open(path string) (io.ReadCloser, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("stat path: %w", err)
	}

	mode := info.Mode()
	switch {
	case mode.IsDir():
		return nil, fmt.Errorf("cannot open directory as file: %s", path)
	case mode&os.ModeDevice != 0:
		return nil, fmt.Errorf("device files not supported: %s", path)
	case mode&os.ModeNamedPipe != 0:
		return nil, fmt.Errorf("named pipes not supported: %s", path)
	case mode&os.ModeSocket != 0:
		return nil, fmt.Errorf("sockets not supported: %s", path)
	}

	return os.Open(path)
}

// WriteFile writes r to path through a temp file in the same directory and
// renames it into place, so readers never see a partial file.
func (m *OSFilesystemManager) WriteFile(path string, r io.Reader) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("creating directory: %w", err)
	}

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

	if _, err := io.Copy(tmpFile, r); err != nil {
		tmpFile.Close()
		return fmt.Errorf("failed to write data: %w", err)
	}
	if err := tmpFile.Chmod(0644); err != nil {
		tmpFile.Close()
		return fmt.Errorf("failed to set permissions: %w", err)
	}
	if err := tmpFile.Close(); err != nil {
		return fmt.Errorf("failed to close temp file: %w", err)
	}

	if err := os.Rename(tmpPath, path); err != nil {
		return fmt.Errorf("failed to rename temp file: %w", err)
	}

	success = true
	return nil
}

// FindListingDates returns the dates (YYYY-MM-DD, ascending) for which dir
// holds both a phone and a backup listing.
func (m *OSFilesystemManager) FindListingDates(dir, phonePrefix, backupPrefix string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("reading directory: %w", err)
	}

	phone := make(map[string]bool)
	backup := make(map[string]bool)
	for _, entry := range entries {
		if !entry.Type().IsRegular() {
			continue
		}
		name := entry.Name()
		if date, ok := listingDate(name, phonePrefix); ok {
			phone[date] = true
		}
		if date, ok := listingDate(name, backupPrefix); ok {
			backup[date] = true
		}
	}

	var dates []string
	for date := range phone {
		if backup[date] {
			dates = append(dates, date)
		}
	}
	sort.Strings(dates)
	return dates, nil
}

// listingDate extracts the date from <prefix><YYYY-MM-DD>.txt.
func listingDate(name, prefix string) (string, bool) {
	rest, ok := strings.CutPrefix(name, prefix)
	if !ok {
		return "", false
	}
	date, ok := strings.CutSuffix(rest, ".txt")
	if !ok {
		return "", false
	}
	if _, err := time.Parse(time.DateOnly, date); err != nil {
		return "", false
	}
	return date, true
}

// Compile-time check that OSFilesystemManager implements camcheck.FilesystemManager interface
var _ camcheck.FilesystemManager = (*OSFilesystemManager)(nil)
