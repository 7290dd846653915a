package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"camcheck/internal/camcheck"
	"camcheck/internal/database/migrations"
	"camcheck/internal/listing"

	_ "github.com/mattn/go-sqlite3" // SQLite driver
)

// SQLiteDatabase implements the camcheck.Database interface using SQLite.
type SQLiteDatabase struct {
	db   *sql.DB
	path string
}

// NewSQLiteDatabase opens a SQLite database and brings its schema up to date.
// path can be a file path or ":memory:" for in-memory database.
func NewSQLiteDatabase(path string) (*SQLiteDatabase, error) {
	db, err := OpenConnection(path)
	if err != nil {
		return nil, err
	}

	if err := migrations.MigrateUp(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrating database: %w", err)
	}

	return &SQLiteDatabase{db: db, path: path}, nil
}

// NewSQLiteDatabaseFromDB wraps an existing database connection.
// The caller is responsible for ensuring the connection is properly configured
// and migrated.
func NewSQLiteDatabaseFromDB(db *sql.DB) *SQLiteDatabase {
	return &SQLiteDatabase{db: db}
}

// OpenConnection opens and configures a SQLite database connection.
// path can be a file path or ":memory:" for in-memory database.
func OpenConnection(path string) (*sql.DB, error) {
	// Foreign keys are enabled through the DSN so the driver applies the
	// pragma to every pooled connection, not just the first.
	db, err := sql.Open("sqlite3", path+"?_foreign_keys=on")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Every connection to ":memory:" is a separate database.
	if path == ":memory:" {
		db.SetMaxOpenConns(1)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	return db, nil
}

// Run operations

func (s *SQLiteDatabase) CreateRun(run *camcheck.Run) error {
	ctx := context.Background()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("starting transaction: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO runs (
			id, device_id, created_at, phone_listing, backup_listing, map_path, map_artifact,
			phone_count, backed_up_count, backed_up_total_size, fuzzy_date_match_count,
			missing_count, ignored_count, collision_count
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		run.ID, run.DeviceID, run.CreatedAt, run.PhoneListing, run.BackupListing, run.MapPath, run.MapArtifact,
		run.PhoneCount, run.BackedUpCount, run.BackedUpTotalSize, run.FuzzyDateMatchCount,
		run.MissingCount, run.IgnoredCount, run.CollisionCount,
	)
	if err != nil {
		return fmt.Errorf("inserting run: %w", err)
	}

	renameStmt, err := tx.PrepareContext(ctx, `
		INSERT INTO rename_entries (run_id, position, original_filename, backup_filename, filesize, day_offset)
		VALUES (?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("preparing rename insert: %w", err)
	}
	defer renameStmt.Close()

	for i, e := range run.Renames {
		if _, err := renameStmt.ExecContext(ctx, run.ID, i, e.OriginalFilename, e.BackupFilename, e.Filesize, e.DayOffset); err != nil {
			return fmt.Errorf("inserting rename entry %s: %w", e.OriginalFilename, err)
		}
	}

	missingStmt, err := tx.PrepareContext(ctx, `
		INSERT INTO missing_files (run_id, position, permissions, ownership, filesize, date, time, filename)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("preparing missing file insert: %w", err)
	}
	defer missingStmt.Close()

	for i, r := range run.Missing {
		if _, err := missingStmt.ExecContext(ctx, run.ID, i, r.Permissions, r.Ownership, r.Filesize, r.Date.String(), r.Time, r.Filename); err != nil {
			return fmt.Errorf("inserting missing file %s: %w", r.Filename, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing transaction: %w", err)
	}
	return nil
}

const runColumns = `
	id, device_id, created_at, phone_listing, backup_listing, map_path, map_artifact,
	phone_count, backed_up_count, backed_up_total_size, fuzzy_date_match_count,
	missing_count, ignored_count, collision_count`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRun(row rowScanner) (*camcheck.Run, error) {
	var r camcheck.Run
	err := row.Scan(
		&r.ID, &r.DeviceID, &r.CreatedAt, &r.PhoneListing, &r.BackupListing, &r.MapPath, &r.MapArtifact,
		&r.PhoneCount, &r.BackedUpCount, &r.BackedUpTotalSize, &r.FuzzyDateMatchCount,
		&r.MissingCount, &r.IgnoredCount, &r.CollisionCount,
	)
	if err != nil {
		return nil, err
	}
	return &r, nil
}

func (s *SQLiteDatabase) FindRun(id string) (*camcheck.Run, error) {
	ctx := context.Background()

	run, err := scanRun(s.db.QueryRowContext(ctx, "SELECT"+runColumns+" FROM runs WHERE id = ?", id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil // Not found
		}
		return nil, fmt.Errorf("finding run: %w", err)
	}

	run.Renames, err = s.findRenamesForRun(ctx, id)
	if err != nil {
		return nil, err
	}
	run.Missing, err = s.findMissingForRun(ctx, id)
	if err != nil {
		return nil, err
	}
	return run, nil
}

func (s *SQLiteDatabase) findRenamesForRun(ctx context.Context, runID string) ([]camcheck.RenameEntry, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT original_filename, backup_filename, filesize, day_offset
		FROM rename_entries WHERE run_id = ? ORDER BY position`, runID)
	if err != nil {
		return nil, fmt.Errorf("finding rename entries: %w", err)
	}
	defer rows.Close()

	var entries []camcheck.RenameEntry
	for rows.Next() {
		var e camcheck.RenameEntry
		if err := rows.Scan(&e.OriginalFilename, &e.BackupFilename, &e.Filesize, &e.DayOffset); err != nil {
			return nil, fmt.Errorf("scanning rename entry: %w", err)
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("reading rename entries: %w", err)
	}
	return entries, nil
}

func (s *SQLiteDatabase) findMissingForRun(ctx context.Context, runID string) ([]listing.FileRecord, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT permissions, ownership, filesize, date, time, filename
		FROM missing_files WHERE run_id = ? ORDER BY position`, runID)
	if err != nil {
		return nil, fmt.Errorf("finding missing files: %w", err)
	}
	defer rows.Close()

	var records []listing.FileRecord
	for rows.Next() {
		var (
			r    listing.FileRecord
			date string
		)
		if err := rows.Scan(&r.Permissions, &r.Ownership, &r.Filesize, &date, &r.Time, &r.Filename); err != nil {
			return nil, fmt.Errorf("scanning missing file: %w", err)
		}
		if r.Date, err = listing.ParseDate(date); err != nil {
			return nil, fmt.Errorf("missing file %s: %w", r.Filename, err)
		}
		records = append(records, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("reading missing files: %w", err)
	}
	return records, nil
}

func (s *SQLiteDatabase) ListRuns(limit int) ([]*camcheck.Run, error) {
	rows, err := s.db.QueryContext(context.Background(),
		"SELECT"+runColumns+" FROM runs ORDER BY created_at DESC, rowid DESC LIMIT ?", limit)
	if err != nil {
		return nil, fmt.Errorf("listing runs: %w", err)
	}
	defer rows.Close()

	var runs []*camcheck.Run
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning run: %w", err)
		}
		runs = append(runs, run)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("reading runs: %w", err)
	}
	return runs, nil
}

func (s *SQLiteDatabase) FindRenames(filename string) ([]*camcheck.RenameRecord, error) {
	rows, err := s.db.QueryContext(context.Background(), `
		SELECT r.id, r.created_at, e.original_filename, e.backup_filename, e.filesize, e.day_offset
		FROM rename_entries e
		JOIN runs r ON r.id = e.run_id
		WHERE e.original_filename = ? OR e.backup_filename = ?
		ORDER BY r.created_at DESC, r.rowid DESC, e.position`, filename, filename)
	if err != nil {
		return nil, fmt.Errorf("finding renames: %w", err)
	}
	defer rows.Close()

	var records []*camcheck.RenameRecord
	for rows.Next() {
		var rec camcheck.RenameRecord
		err := rows.Scan(&rec.RunID, &rec.CreatedAt,
			&rec.OriginalFilename, &rec.BackupFilename, &rec.Filesize, &rec.DayOffset)
		if err != nil {
			return nil, fmt.Errorf("scanning rename: %w", err)
		}
		records = append(records, &rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("reading renames: %w", err)
	}
	return records, nil
}

// Path returns the database file path (or ":memory:" for in-memory databases).
func (s *SQLiteDatabase) Path() string {
	return s.path
}

// CheckMigrations verifies the database schema is up-to-date.
func (s *SQLiteDatabase) CheckMigrations() error {
	return migrations.CheckDBMigrationStatus(s.db)
}

// BackupTo creates a complete copy of the database at destPath using VACUUM INTO.
func (s *SQLiteDatabase) BackupTo(destPath string) error {
	_, err := s.db.Exec("VACUUM INTO ?", destPath)
	if err != nil {
		return fmt.Errorf("backing up database: %w", err)
	}
	return nil
}

// Close closes the database connection.
func (s *SQLiteDatabase) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// Compile-time check that SQLiteDatabase implements camcheck.Database interface
var _ camcheck.Database = (*SQLiteDatabase)(nil)
