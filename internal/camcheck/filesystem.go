package camcheck

import "io"

// FilesystemManager abstracts access to the listing files and the rename-map
// output so the service can be tested without touching the real filesystem.
type FilesystemManager interface {
	// Open opens a file for reading.
	Open(path string) (io.ReadCloser, error)

	// WriteFile writes the content of r to path, replacing the file atomically.
	WriteFile(path string, r io.Reader) error
}

// NameFilter decides which phone files are left out of a check.
type NameFilter interface {
	Match(name string) bool
}
