package database

import (
	"fmt"
	"os"
	"path/filepath"

	"camcheck/internal/config"
)

// NewDatabaseFromConfig opens the run history database selected by the config type.
func NewDatabaseFromConfig(cfg config.DatabaseConfig, deviceID string) (*SQLiteDatabase, error) {
	switch cfg.Type {
	case "sqlite", "":
		if cfg.DataDir == "" {
			return nil, fmt.Errorf("data_dir required for sqlite database")
		}
		if err := os.MkdirAll(cfg.DataDir, 0755); err != nil {
			return nil, fmt.Errorf("creating data directory: %w", err)
		}
		return NewSQLiteDatabase(PathFor(cfg, deviceID))
	case "memory":
		return NewSQLiteDatabase(":memory:")
	default:
		return nil, fmt.Errorf("unknown database type: %s", cfg.Type)
	}
}

// PathFor returns the sqlite file used for deviceID under cfg.DataDir.
func PathFor(cfg config.DatabaseConfig, deviceID string) string {
	return filepath.Join(cfg.DataDir, deviceID+".db")
}
