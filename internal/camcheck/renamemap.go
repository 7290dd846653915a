package camcheck

import (
	"encoding/json"
	"fmt"
	"io"
	"path"
	"strings"

	"gopkg.in/yaml.v3"
)

// Rename map serialization formats.
const (
	FormatJSON = "json"
	FormatYAML = "yaml"
)

// FormatExtension returns the file extension, without the dot, for a rename-map format.
func FormatExtension(format string) string {
	if format == FormatYAML {
		return "yaml"
	}
	return "json"
}

// FormatFromName infers the rename-map format from a file or artifact name,
// ignoring an encryption suffix.
func FormatFromName(name string, encryptionSuffix string) string {
	if encryptionSuffix != "" {
		name = strings.TrimSuffix(name, encryptionSuffix)
	}
	switch path.Ext(name) {
	case ".yaml", ".yml":
		return FormatYAML
	default:
		return FormatJSON
	}
}

// EncodeRenameMap writes entries as a JSON array indented by four spaces, or
// as a YAML sequence. An empty map is written as an empty array, never null.
func EncodeRenameMap(w io.Writer, entries []RenameEntry, format string) error {
	if entries == nil {
		entries = []RenameEntry{}
	}

	switch format {
	case FormatJSON, "":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "    ")
		enc.SetEscapeHTML(false)
		if err := enc.Encode(entries); err != nil {
			return fmt.Errorf("encoding rename map: %w", err)
		}
	case FormatYAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(4)
		if err := enc.Encode(entries); err != nil {
			return fmt.Errorf("encoding rename map: %w", err)
		}
		if err := enc.Close(); err != nil {
			return fmt.Errorf("finalizing rename map: %w", err)
		}
	default:
		return fmt.Errorf("unknown rename map format: %q", format)
	}
	return nil
}

// DecodeRenameMap reads a rename map written by EncodeRenameMap.
func DecodeRenameMap(r io.Reader, format string) ([]RenameEntry, error) {
	var entries []RenameEntry

	switch format {
	case FormatJSON, "":
		if err := json.NewDecoder(r).Decode(&entries); err != nil {
			return nil, fmt.Errorf("decoding rename map: %w", err)
		}
	case FormatYAML:
		if err := yaml.NewDecoder(r).Decode(&entries); err != nil && err != io.EOF {
			return nil, fmt.Errorf("decoding rename map: %w", err)
		}
	default:
		return nil, fmt.Errorf("unknown rename map format: %q", format)
	}
	return entries, nil
}
