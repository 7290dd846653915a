package app

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"camcheck/internal/camcheck"
	"camcheck/internal/config"
	"camcheck/internal/database"
	"camcheck/internal/encryption"
	"camcheck/internal/fs"
	"camcheck/internal/vault"
)

// IndexArtifact is the vault artifact holding the latest database snapshot.
const IndexArtifact = "index/camcheck.db"

// PassphraseFunc supplies the passphrase that unlocks the private key.
type PassphraseFunc func() (string, error)

// App is the application layer between the CLI and camcheck.Service.
// It constructs all dependencies from config, exposes high-level operations
// that accept raw dates and paths, and manages the DB lifecycle on Close.
type App struct {
	cfg       *config.Config
	db        *database.SQLiteDatabase
	vault     camcheck.Vault
	fsmgr     *fs.OSFilesystemManager
	encryptor camcheck.Encryptor
	service   *camcheck.Service
	logger    *slog.Logger
	op        *Operation
	logFile   *os.File
}

// NewApp creates a fully wired App from the given config.
// operation identifies the CLI command being run (e.g. "Check", "History").
// The caller must call Close when done.
func NewApp(cfg *config.Config, operation string) (*App, error) {
	level, err := parseLevel(cfg.LogLevel)
	if err != nil {
		return nil, err
	}

	fsmgr := fs.NewOSFilesystemManager()

	matcher, err := newIgnoreMatcher(cfg)
	if err != nil {
		return nil, err
	}

	// A missing vault only disables archiving.
	var v camcheck.Vault
	if len(cfg.Vaults) > 0 {
		v, err = vault.NewVaultFromConfig(cfg.Vaults[0])
		if err != nil {
			return nil, fmt.Errorf("creating vault: %w", err)
		}
	}

	enc, err := encryption.NewEncryptorFromConfig(cfg.Encryption)
	if err != nil {
		return nil, fmt.Errorf("creating encryptor: %w", err)
	}

	db, err := database.NewDatabaseFromConfig(cfg.Database, cfg.DeviceID)
	if err != nil {
		return nil, fmt.Errorf("creating database: %w", err)
	}
	if err := db.CheckMigrations(); err != nil {
		db.Close()
		return nil, fmt.Errorf("database schema out of date: %w", err)
	}

	op := NewOperation(operation, "", time.Now())
	logger, logFile, err := newLogger(cfg.LogDir, op.ID, level, os.Stderr)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("creating logger: %w", err)
	}

	svc := camcheck.NewService(cfg.DeviceID, db, v, fsmgr, enc, matcher,
		&slogAdapter{l: logger}, camcheck.RealClock{}, camcheck.UUIDGenerator{})

	return &App{
		cfg:       cfg,
		db:        db,
		vault:     v,
		fsmgr:     fsmgr,
		encryptor: enc,
		service:   svc,
		logger:    logger,
		op:        op,
		logFile:   logFile,
	}, nil
}

// newIgnoreMatcher combines the configured ignore patterns with the
// .camcheckignore file in the listings directory.
func newIgnoreMatcher(cfg *config.Config) (*fs.IgnoreMatcher, error) {
	patterns := append([]string{}, cfg.Filter.Ignore...)
	if cfg.Listings.Dir != "" {
		filePatterns, err := fs.ParseIgnoreFile(filepath.Join(cfg.Listings.Dir, fs.IgnoreFileName))
		if err != nil {
			return nil, err
		}
		patterns = append(patterns, filePatterns...)
	}
	m, err := fs.NewIgnoreMatcher(patterns)
	if err != nil {
		return nil, fmt.Errorf("building ignore filter: %w", err)
	}
	return m, nil
}

// CheckOptions selects the listings for a check. An empty Date means today;
// Latest picks the newest date with both listings present instead. Explicit
// paths override the dated ones.
type CheckOptions struct {
	Date          string
	Latest        bool
	PhoneListing  string
	BackupListing string
}

// Check runs a check and records it. Missing files are reported in the
// outcome, not as an error.
func (a *App) Check(opts CheckOptions) (*camcheck.CheckOutcome, error) {
	date, err := a.checkDate(opts)
	if err != nil {
		a.op.Fail()
		return nil, err
	}
	a.op.Parameters = date

	paths := a.cfg.Listings.Paths(date)
	if opts.PhoneListing != "" {
		paths.Phone = opts.PhoneListing
	}
	if opts.BackupListing != "" {
		paths.Backup = opts.BackupListing
	}

	out, err := a.service.Check(camcheck.CheckRequest{
		PhoneListing:  paths.Phone,
		BackupListing: paths.Backup,
		MapPath:       paths.Map,
		MapFormat:     a.cfg.Listings.MapFormat,
	})
	if err != nil {
		a.op.Fail()
		return nil, err
	}
	a.op.MarkMutated()
	return out, nil
}

func (a *App) checkDate(opts CheckOptions) (string, error) {
	switch {
	case opts.Latest:
		return a.LatestListingDate()
	case opts.Date == "":
		return time.Now().Format(time.DateOnly), nil
	}
	if _, err := time.Parse(time.DateOnly, opts.Date); err != nil {
		return "", fmt.Errorf("invalid date %q: want YYYY-MM-DD", opts.Date)
	}
	return opts.Date, nil
}

// LatestListingDate returns the newest date for which both listings exist
// in the listings directory.
func (a *App) LatestListingDate() (string, error) {
	l := a.cfg.Listings
	dates, err := a.fsmgr.FindListingDates(l.Dir, l.PhonePrefix, l.BackupPrefix)
	if err != nil {
		return "", fmt.Errorf("finding listings: %w", err)
	}
	if len(dates) == 0 {
		return "", fmt.Errorf("no matching phone and backup listings found in %s", l.Dir)
	}
	return dates[len(dates)-1], nil
}

// ReportOptions returns the device paths used in the printed report.
func (a *App) ReportOptions() camcheck.ReportOptions {
	return camcheck.ReportOptions{
		CameraDir: a.cfg.Device.CameraDir,
		ReviewDir: a.cfg.Device.ReviewDir,
	}
}

// GetHistory returns the most recent runs.
func (a *App) GetHistory(limit int) ([]*camcheck.Run, error) {
	return a.service.GetHistory(limit)
}

// GetRun returns one run with its rename entries and missing files.
func (a *App) GetRun(id string) (*camcheck.Run, error) {
	return a.service.GetRun(id)
}

// Lookup returns every recorded rename involving filename.
func (a *App) Lookup(filename string) ([]*camcheck.RenameRecord, error) {
	return a.service.Lookup(filename)
}

// RunArtifacts lists the vault artifacts archived by a run.
func (a *App) RunArtifacts(runID string) ([]string, error) {
	if a.vault == nil {
		return nil, fmt.Errorf("no vault configured")
	}
	return a.vault.ListArtifacts(a.cfg.DeviceID, runID+"/")
}

// FetchRenameMap downloads the rename map archived by a run. passphrase is
// only called when the artifact is encrypted.
func (a *App) FetchRenameMap(runID string, passphrase PassphraseFunc) ([]camcheck.RenameEntry, error) {
	run, err := a.service.GetRun(runID)
	if err != nil {
		return nil, err
	}

	var decryptCtx camcheck.DecryptionContext
	suffix := a.encryptor.Suffix()
	if suffix != "" && strings.HasSuffix(run.MapArtifact, suffix) {
		if passphrase == nil {
			return nil, fmt.Errorf("rename map is encrypted and no passphrase was provided")
		}
		pass, err := passphrase()
		if err != nil {
			return nil, fmt.Errorf("reading passphrase: %w", err)
		}
		decryptCtx, err = a.encryptor.Unlock(pass)
		if err != nil {
			return nil, fmt.Errorf("unlocking private key: %w", err)
		}
	}
	return a.service.FetchRenameMap(runID, decryptCtx)
}

// ValidateVault checks that the configured vault is reachable.
func (a *App) ValidateVault() error {
	if a.vault == nil {
		return fmt.Errorf("no vault configured")
	}
	return a.vault.ValidateSetup()
}

// Close finalizes the operation and closes all resources.
// After a recorded check the database is snapshotted and uploaded to the
// vault as IndexArtifact; other operations just close the database.
func (a *App) Close() error {
	var errs []error

	if a.op.Mutated() && a.vault != nil {
		tmpPath, err := a.snapshot()
		if err != nil {
			errs = append(errs, err)
		}
		if err := a.db.Close(); err != nil {
			errs = append(errs, fmt.Errorf("closing database: %w", err))
		}
		if tmpPath != "" {
			if err := a.uploadIndex(tmpPath); err != nil {
				errs = append(errs, err)
			}
			os.Remove(tmpPath)
		}
	} else if err := a.db.Close(); err != nil {
		errs = append(errs, fmt.Errorf("closing database: %w", err))
	}

	a.logger.Debug("operation finished", "operation", a.op.Name, "status", a.op.Status)
	if a.logFile != nil {
		a.logFile.Close()
	}

	return errors.Join(errs...)
}

// snapshot writes a consistent copy of the database to a temp file.
func (a *App) snapshot() (string, error) {
	tmpFile, err := os.CreateTemp("", "camcheck-db-snapshot-*.db")
	if err != nil {
		return "", fmt.Errorf("creating temp file for db snapshot: %w", err)
	}
	tmpPath := tmpFile.Name()
	tmpFile.Close()
	// VACUUM INTO refuses to overwrite an existing file.
	os.Remove(tmpPath)

	if err := a.db.BackupTo(tmpPath); err != nil {
		os.Remove(tmpPath)
		return "", fmt.Errorf("snapshotting database: %w", err)
	}
	return tmpPath, nil
}

func (a *App) uploadIndex(path string) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("opening db snapshot for upload: %w", err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return fmt.Errorf("stat db snapshot: %w", err)
	}

	if err := a.vault.PutArtifact(a.cfg.DeviceID, IndexArtifact, f, info.Size()); err != nil {
		return fmt.Errorf("uploading db snapshot to vault: %w", err)
	}
	a.logger.Info("db snapshot uploaded", "artifact", IndexArtifact, "size", info.Size())
	return nil
}

// RestoreIndex downloads the latest database snapshot from the vault into the
// local sqlite data directory. It refuses to overwrite an existing database.
func RestoreIndex(cfg *config.Config) (string, error) {
	if cfg.Database.Type != "sqlite" && cfg.Database.Type != "" {
		return "", fmt.Errorf("restore requires a sqlite database, got %q", cfg.Database.Type)
	}
	if cfg.Database.DataDir == "" {
		return "", fmt.Errorf("data_dir required for sqlite database")
	}
	if len(cfg.Vaults) == 0 {
		return "", fmt.Errorf("no vaults configured")
	}
	v, err := vault.NewVaultFromConfig(cfg.Vaults[0])
	if err != nil {
		return "", fmt.Errorf("creating vault: %w", err)
	}

	dbPath := database.PathFor(cfg.Database, cfg.DeviceID)
	if _, err := os.Stat(dbPath); err == nil {
		return "", fmt.Errorf("database already exists at %s", dbPath)
	} else if !os.IsNotExist(err) {
		return "", fmt.Errorf("checking database: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return "", fmt.Errorf("creating data directory: %w", err)
	}
	tmp, err := os.CreateTemp(filepath.Dir(dbPath), ".tmp-restore-*")
	if err != nil {
		return "", fmt.Errorf("creating temp file: %w", err)
	}
	tmpPath := tmp.Name()

	if err := v.GetArtifact(cfg.DeviceID, IndexArtifact, tmp); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return "", fmt.Errorf("downloading db snapshot: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return "", fmt.Errorf("closing temp file: %w", err)
	}
	if err := os.Rename(tmpPath, dbPath); err != nil {
		os.Remove(tmpPath)
		return "", fmt.Errorf("moving db snapshot into place: %w", err)
	}
	return dbPath, nil
}
