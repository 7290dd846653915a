package app

import (
	"fmt"
	"os"
	"path/filepath"
)

// GetDefaults returns application default paths, checking environment variables first.
// Environment variables:
//   - CAMCHECK_CONFIG_PATH: config file location (default: ~/.config/camcheck.toml)
//   - CAMCHECK_HOME: base directory for camcheck data (default: ~/.local/share/camcheck)
func GetDefaults() (map[string]string, error) {
	configPath, err := getConfigPath()
	if err != nil {
		return nil, err
	}

	baseDir, err := getBaseDir()
	if err != nil {
		return nil, err
	}

	return map[string]string{
		"config_path":  configPath,
		"base_dir":     baseDir,
		"log_dir":      filepath.Join(baseDir, "log"),
		"listings_dir": filepath.Join(baseDir, "listings"),
	}, nil
}

func getConfigPath() (string, error) {
	if path := os.Getenv("CAMCHECK_CONFIG_PATH"); path != "" {
		return path, nil
	}

	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("cannot determine home directory: %w", err)
	}
	return filepath.Join(homeDir, ".config", "camcheck.toml"), nil
}

// getBaseDir returns the base directory for camcheck data, checking
// CAMCHECK_HOME first, then falling back to the XDG default.
func getBaseDir() (string, error) {
	if path := os.Getenv("CAMCHECK_HOME"); path != "" {
		return path, nil
	}

	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("cannot determine home directory: %w", err)
	}
	return filepath.Join(homeDir, ".local", "share", "camcheck"), nil
}
