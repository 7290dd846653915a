package config

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestManager_ReadWrite_RoundTrip(t *testing.T) {
	original := &Config{
		DeviceID: "test-device-abc",
		BaseDir:  "/home/user/.local/share/camcheck",
		LogDir:   "/home/user/.local/share/camcheck/log",
		LogLevel: "debug",
		Listings: ListingsConfig{
			Dir:          "/home/user/listings",
			PhonePrefix:  "phone-",
			BackupPrefix: "backup-",
			MapPrefix:    "map-",
			MapFormat:    "yaml",
		},
		Device: DeviceConfig{CameraDir: "/sdcard/DCIM/Camera", ReviewDir: "/sdcard/Review"},
		Vaults: []VaultConfig{
			{Type: "filesystem", Name: "local", FSVaultRoot: "/backup/vault"},
			{Type: "s3", Name: "cloud", S3Bucket: "photos", S3Prefix: "camcheck", S3Region: "eu-west-1"},
		},
		Encryption: EncryptionConfig{
			Type:           "age",
			PublicKeyPath:  "/home/user/.local/share/camcheck/keys/camcheck.pub",
			PrivateKeyPath: "/home/user/.local/share/camcheck/keys/camcheck.key",
		},
		Database: DatabaseConfig{Type: "sqlite", DataDir: "/home/user/.local/share/camcheck/db"},
		Filter:   FilterConfig{Ignore: []string{".nomedia", ".pending-*"}},
	}

	var buf bytes.Buffer
	m := &Manager{}

	if err := m.Write(&buf, original); err != nil {
		t.Fatalf("Write() error = %v", err)
	}

	got, err := m.Read(&buf)
	if err != nil {
		t.Fatalf("Read() error = %v", err)
	}

	if got.DeviceID != original.DeviceID {
		t.Errorf("DeviceID = %q, want %q", got.DeviceID, original.DeviceID)
	}
	if got.BaseDir != original.BaseDir {
		t.Errorf("BaseDir = %q, want %q", got.BaseDir, original.BaseDir)
	}
	if got.LogLevel != "debug" {
		t.Errorf("LogLevel = %q, want %q", got.LogLevel, "debug")
	}
	if got.Listings != original.Listings {
		t.Errorf("Listings = %+v, want %+v", got.Listings, original.Listings)
	}
	if got.Device != original.Device {
		t.Errorf("Device = %+v, want %+v", got.Device, original.Device)
	}
	if len(got.Vaults) != 2 {
		t.Fatalf("len(Vaults) = %d, want 2", len(got.Vaults))
	}
	if got.Vaults[0].FSVaultRoot != "/backup/vault" {
		t.Errorf("Vault.FSVaultRoot = %q, want %q", got.Vaults[0].FSVaultRoot, "/backup/vault")
	}
	if got.Vaults[1].S3Bucket != "photos" || got.Vaults[1].S3Region != "eu-west-1" {
		t.Errorf("Vaults[1] = %+v, want s3 bucket photos in eu-west-1", got.Vaults[1])
	}
	if got.Encryption != original.Encryption {
		t.Errorf("Encryption = %+v, want %+v", got.Encryption, original.Encryption)
	}
	if got.Database.Type != "sqlite" {
		t.Errorf("Database.Type = %q, want %q", got.Database.Type, "sqlite")
	}
	if len(got.Filter.Ignore) != 2 {
		t.Fatalf("len(Filter.Ignore) = %d, want 2", len(got.Filter.Ignore))
	}
}

func TestNewConfig(t *testing.T) {
	cfg := NewConfig("device-1", "/data/camcheck")

	if cfg.DeviceID != "device-1" {
		t.Errorf("DeviceID = %q, want %q", cfg.DeviceID, "device-1")
	}
	if cfg.LogDir != "/data/camcheck/log" {
		t.Errorf("LogDir = %q, want %q", cfg.LogDir, "/data/camcheck/log")
	}
	if cfg.Listings.Dir != "/data/camcheck/listings" {
		t.Errorf("Listings.Dir = %q, want %q", cfg.Listings.Dir, "/data/camcheck/listings")
	}
	if cfg.Listings.MapFormat != "json" {
		t.Errorf("Listings.MapFormat = %q, want %q", cfg.Listings.MapFormat, "json")
	}
	if cfg.Device.CameraDir != DefaultCameraDir {
		t.Errorf("Device.CameraDir = %q, want %q", cfg.Device.CameraDir, DefaultCameraDir)
	}
	if cfg.Encryption.PublicKeyPath != "/data/camcheck/keys/camcheck.pub" {
		t.Errorf("Encryption.PublicKeyPath = %q, want %q", cfg.Encryption.PublicKeyPath, "/data/camcheck/keys/camcheck.pub")
	}
	if len(cfg.Vaults) != 1 || cfg.Vaults[0].FSVaultRoot != "/data/camcheck/vault" {
		t.Errorf("Vaults = %+v, want one filesystem vault under base dir", cfg.Vaults)
	}
	if cfg.Database.DataDir != "/data/camcheck/db" {
		t.Errorf("Database.DataDir = %q, want %q", cfg.Database.DataDir, "/data/camcheck/db")
	}
	if len(cfg.Filter.Ignore) != 0 {
		t.Errorf("Filter.Ignore = %v, want no patterns by default", cfg.Filter.Ignore)
	}
}

func TestListingsConfig_Paths(t *testing.T) {
	tests := []struct {
		name    string
		format  string
		wantMap string
	}{
		{name: "json map", format: "json", wantMap: "/l/phone-media-orig-to-backup-filenames-map-2020-12-17.json"},
		{name: "default format", format: "", wantMap: "/l/phone-media-orig-to-backup-filenames-map-2020-12-17.json"},
		{name: "yaml map", format: "yaml", wantMap: "/l/phone-media-orig-to-backup-filenames-map-2020-12-17.yaml"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			l := ListingsConfig{
				Dir:          "/l",
				PhonePrefix:  DefaultPhonePrefix,
				BackupPrefix: DefaultBackupPrefix,
				MapPrefix:    DefaultMapPrefix,
				MapFormat:    tt.format,
			}
			got := l.Paths("2020-12-17")

			if got.Phone != "/l/phone-sdcard-dcim-camera-ls-2020-12-17.txt" {
				t.Errorf("Phone = %q", got.Phone)
			}
			if got.Backup != "/l/backup-camera-uploads-ls-2020-12-17.txt" {
				t.Errorf("Backup = %q", got.Backup)
			}
			if got.Map != tt.wantMap {
				t.Errorf("Map = %q, want %q", got.Map, tt.wantMap)
			}
		})
	}
}

func TestInit(t *testing.T) {
	t.Run("creates config file", func(t *testing.T) {
		dir := t.TempDir()
		path := filepath.Join(dir, "nested", "camcheck.toml")
		cfg := NewConfig("d1", dir)

		if err := Init(path, cfg); err != nil {
			t.Fatalf("Init() error = %v", err)
		}

		data, err := os.ReadFile(path)
		if err != nil {
			t.Fatalf("config file not created: %v", err)
		}
		if !strings.Contains(string(data), `device_id = "d1"`) {
			t.Errorf("config file missing device_id:\n%s", data)
		}
	})

	t.Run("fails if file already exists", func(t *testing.T) {
		dir := t.TempDir()
		path := filepath.Join(dir, "camcheck.toml")
		cfg := NewConfig("d1", dir)

		if err := Init(path, cfg); err != nil {
			t.Fatalf("first Init() error = %v", err)
		}

		err := Init(path, cfg)
		if err == nil {
			t.Fatal("second Init() expected error")
		}
	})
}

func TestReadFromFile(t *testing.T) {
	t.Run("reads valid config", func(t *testing.T) {
		dir := t.TempDir()
		path := filepath.Join(dir, "camcheck.toml")
		cfg := NewConfig("read-test", dir)
		cfg.Database = DatabaseConfig{Type: "memory"}

		if err := Init(path, cfg); err != nil {
			t.Fatalf("Init() error = %v", err)
		}

		got, err := ReadFromFile(path)
		if err != nil {
			t.Fatalf("ReadFromFile() error = %v", err)
		}
		if got.DeviceID != "read-test" {
			t.Errorf("DeviceID = %q, want %q", got.DeviceID, "read-test")
		}
		if got.Database.Type != "memory" {
			t.Errorf("Database.Type = %q, want %q", got.Database.Type, "memory")
		}
	})

	t.Run("returns error for missing file", func(t *testing.T) {
		_, err := ReadFromFile("/nonexistent/path/camcheck.toml")
		if err == nil {
			t.Fatal("ReadFromFile() expected error for missing file")
		}
	})

	t.Run("returns error for malformed file", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "camcheck.toml")
		if err := os.WriteFile(path, []byte("device_id = \n"), 0644); err != nil {
			t.Fatal(err)
		}
		if _, err := ReadFromFile(path); err == nil {
			t.Fatal("ReadFromFile() expected error for malformed file")
		}
	})
}
