package fs

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"camcheck/internal/camcheck"
)

// IgnoreFileName is read from the listings directory, one pattern per line.
const IgnoreFileName = ".camcheckignore"

// ignorePattern is a parsed ignore pattern.
type ignorePattern struct {
	pattern string
	negate  bool // "!pattern" re-includes names matched by an earlier pattern
}

// IgnoreMatcher checks phone filenames against a set of glob patterns.
// Patterns are applied in order and the last matching pattern decides, so a
// later "!pattern" can re-include a name an earlier pattern ignored.
type IgnoreMatcher struct {
	patterns []ignorePattern
}

// NewIgnoreMatcher creates an IgnoreMatcher from raw pattern strings. There
// are no built-in patterns: with none configured every name is kept.
// Blank lines and lines starting with '#' are skipped. Invalid glob patterns
// are rejected.
func NewIgnoreMatcher(rawPatterns []string) (*IgnoreMatcher, error) {
	var patterns []ignorePattern
	for _, raw := range rawPatterns {
		raw = strings.TrimSpace(raw)
		if raw == "" || strings.HasPrefix(raw, "#") {
			continue
		}
		p := ignorePattern{pattern: raw}
		if rest, ok := strings.CutPrefix(raw, "!"); ok {
			p = ignorePattern{pattern: rest, negate: true}
		}
		if _, err := filepath.Match(p.pattern, ""); err != nil {
			return nil, fmt.Errorf("invalid ignore pattern %q: %w", raw, err)
		}
		patterns = append(patterns, p)
	}
	return &IgnoreMatcher{patterns: patterns}, nil
}

// Match reports whether the phone file name should be left out of a check.
func (m *IgnoreMatcher) Match(name string) bool {
	if name == "" {
		return false
	}

	ignored := false
	for _, p := range m.patterns {
		if matched, _ := filepath.Match(p.pattern, name); matched {
			ignored = !p.negate
		}
	}
	return ignored
}

// ParseIgnoreFile reads an ignore file and returns the raw pattern strings.
// Returns nil and no error if the file does not exist.
func ParseIgnoreFile(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("opening ignore file: %w", err)
	}
	defer f.Close()

	var patterns []string
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		patterns = append(patterns, scanner.Text())
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("reading ignore file: %w", err)
	}
	return patterns, nil
}

var _ camcheck.NameFilter = (*IgnoreMatcher)(nil)
