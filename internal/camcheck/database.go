package camcheck

// Database stores the history of checks and the rename maps they produced,
// so that a renamed backup file can be traced back to its original name
// long after the phone copy is gone.
type Database interface {
	// CreateRun records a finished check together with its rename entries and
	// missing files. All rows are written in a single transaction.
	CreateRun(run *Run) error

	// FindRun returns a run with its rename entries and missing files loaded.
	// Returns nil if no run has the given ID.
	FindRun(id string) (*Run, error)

	// ListRuns returns the most recent runs, newest first, without entries.
	ListRuns(limit int) ([]*Run, error)

	// FindRenames returns every recorded rename whose original or backup
	// filename equals filename, newest run first.
	FindRenames(filename string) ([]*RenameRecord, error)

	// Close closes the database connection.
	Close() error
}
