package vault

import (
	"fmt"
	"path"
	"strings"
)

// checkArtifactName rejects names that would escape a device's namespace
// or could not be mapped onto both a directory tree and an object key.
func checkArtifactName(name string) error {
	if name == "" {
		return fmt.Errorf("artifact name is empty")
	}
	if strings.HasPrefix(name, "/") || strings.Contains(name, "\\") {
		return fmt.Errorf("invalid artifact name: %q", name)
	}
	if path.Clean(name) != name {
		return fmt.Errorf("invalid artifact name: %q", name)
	}
	for _, part := range strings.Split(name, "/") {
		if part == ".." || part == "." {
			return fmt.Errorf("invalid artifact name: %q", name)
		}
	}
	return nil
}
