package config

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"
)

// Config represents the main configuration for camcheck.
type Config struct {
	DeviceID   string           `toml:"device_id"`
	BaseDir    string           `toml:"base_dir"`
	LogDir     string           `toml:"log_dir"`
	LogLevel   string           `toml:"log_level"` // "debug", "info" (default), "warn" or "error"
	Listings   ListingsConfig   `toml:"listings"`
	Device     DeviceConfig     `toml:"device"`
	Vaults     []VaultConfig    `toml:"vaults"`
	Encryption EncryptionConfig `toml:"encryption"`
	Database   DatabaseConfig   `toml:"database"`
	Filter     FilterConfig     `toml:"filter"`
}

// ListingsConfig locates the dated listing files and the rename map written
// next to them.
type ListingsConfig struct {
	Dir          string `toml:"dir"`
	PhonePrefix  string `toml:"phone_prefix"`
	BackupPrefix string `toml:"backup_prefix"`
	MapPrefix    string `toml:"map_prefix"`
	MapFormat    string `toml:"map_format"` // "json" (default) or "yaml"
}

// ListingPaths are the files used by one check.
type ListingPaths struct {
	Phone  string
	Backup string
	Map    string
}

// Paths returns the listing and map paths for the given YYYY-MM-DD date.
func (l ListingsConfig) Paths(date string) ListingPaths {
	ext := ".json"
	if l.MapFormat == "yaml" {
		ext = ".yaml"
	}
	return ListingPaths{
		Phone:  filepath.Join(l.Dir, l.PhonePrefix+date+".txt"),
		Backup: filepath.Join(l.Dir, l.BackupPrefix+date+".txt"),
		Map:    filepath.Join(l.Dir, l.MapPrefix+date+ext),
	}
}

// DeviceConfig holds the on-device paths used in the suggested adb commands.
type DeviceConfig struct {
	CameraDir string `toml:"camera_dir"`
	ReviewDir string `toml:"review_dir"`
}

// EncryptionConfig holds paths to the age key pair used for encryption.
type EncryptionConfig struct {
	Type           string `toml:"type"` // "age" (default), "none" or "test"
	PublicKeyPath  string `toml:"public_key_path"`
	PrivateKeyPath string `toml:"private_key_path"`
	Armor          bool   `toml:"armor"` // ASCII-armored age output
}

// FilterConfig lists phone filenames left out of a check. Empty by default:
// ignored files are never verified against the backup.
type FilterConfig struct {
	Ignore []string `toml:"ignore"`
}

// VaultConfig represents configuration for a vault backend.
// This uses a tagged union pattern - the Type field determines which other fields are relevant.
type VaultConfig struct {
	Type string `toml:"type"` // "memory", "s3", or "filesystem"
	Name string `toml:"name"`

	// S3-specific fields (only used when Type == "s3")
	S3Bucket          string `toml:"s3_bucket,omitempty"`
	S3Prefix          string `toml:"s3_prefix,omitempty"`
	S3Region          string `toml:"s3_region,omitempty"`
	S3Endpoint        string `toml:"s3_endpoint,omitempty"` // S3-compatible services
	S3AccessKeyID     string `toml:"s3_access_key_id,omitempty"`
	S3SecretAccessKey string `toml:"s3_secret_access_key,omitempty"`

	// FileSystem-specific fields (only used when Type == "filesystem")
	FSVaultRoot string `toml:"fs_vault_root,omitempty"`
}

// DatabaseConfig represents configuration for the run history database.
// This uses a tagged union pattern - the Type field determines which other fields are relevant.
type DatabaseConfig struct {
	Type    string `toml:"type"`               // "sqlite" or "memory"
	DataDir string `toml:"data_dir,omitempty"` // only used for type=sqlite
}

// Default file name prefixes, matching the names the listing scripts produce.
const (
	DefaultPhonePrefix  = "phone-sdcard-dcim-camera-ls-"
	DefaultBackupPrefix = "backup-camera-uploads-ls-"
	DefaultMapPrefix    = "phone-media-orig-to-backup-filenames-map-"
	DefaultCameraDir    = "/sdcard/DCIM/Camera"
	DefaultReviewDir    = "/sdcard/DCIMCameraBackupReview"
)

// NewConfig creates a new Config with the provided values and defaults derived
// from baseDir.
func NewConfig(deviceID, baseDir string) *Config {
	return &Config{
		DeviceID: deviceID,
		BaseDir:  baseDir,
		LogDir:   filepath.Join(baseDir, "log"),
		LogLevel: "info",
		Listings: ListingsConfig{
			Dir:          filepath.Join(baseDir, "listings"),
			PhonePrefix:  DefaultPhonePrefix,
			BackupPrefix: DefaultBackupPrefix,
			MapPrefix:    DefaultMapPrefix,
			MapFormat:    "json",
		},
		Device: DeviceConfig{
			CameraDir: DefaultCameraDir,
			ReviewDir: DefaultReviewDir,
		},
		Vaults: []VaultConfig{
			{Type: "filesystem", Name: "local", FSVaultRoot: filepath.Join(baseDir, "vault")},
		},
		Encryption: EncryptionConfig{
			Type:           "age",
			PublicKeyPath:  filepath.Join(baseDir, "keys", "camcheck.pub"),
			PrivateKeyPath: filepath.Join(baseDir, "keys", "camcheck.key"),
		},
		Database: DatabaseConfig{Type: "sqlite", DataDir: filepath.Join(baseDir, "db")},
	}
}

// Manager handles reading and writing configuration.
type Manager struct{}

// Read decodes a Config from the provided reader.
func (m *Manager) Read(r io.Reader) (*Config, error) {
	var cfg Config
	if _, err := toml.NewDecoder(r).Decode(&cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}
	return &cfg, nil
}

// Write encodes a Config to the provided writer.
func (m *Manager) Write(w io.Writer, cfg *Config) error {
	if err := toml.NewEncoder(w).Encode(cfg); err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}
	return nil
}

// ReadFromFile reads a Config from the specified file path.
func ReadFromFile(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open config file: %w", err)
	}
	defer f.Close()

	m := &Manager{}
	cfg, err := m.Read(f)
	if err != nil {
		return nil, fmt.Errorf("reading config from %s: %w", path, err)
	}
	return cfg, nil
}

// writeToFile writes a Config to the specified file path.
func writeToFile(path string, cfg *Config) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create config file: %w", err)
	}
	defer f.Close()

	m := &Manager{}
	if err := m.Write(f, cfg); err != nil {
		return fmt.Errorf("writing config to %s: %w", path, err)
	}
	return nil
}

// Init initializes a new config file at the specified path with the provided Config.
func Init(path string, cfg *Config) error {
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("config file already exists at %s", path)
	}

	if err := writeToFile(path, cfg); err != nil {
		return fmt.Errorf("initializing config: %w", err)
	}
	return nil
}
