package app

import "time"

// Operation tracks the CLI command being run. Only commands that record a
// check mark it mutated; Close snapshots the database for those alone.
type Operation struct {
	ID         string // also the log correlation ID
	Name       string
	Parameters string
	Status     string // "success" or "error"
	mutated    bool
}

// NewOperation creates an operation started at now.
func NewOperation(name, parameters string, now time.Time) *Operation {
	return &Operation{
		ID:         now.UTC().Format("20060102T150405Z"),
		Name:       name,
		Parameters: parameters,
		Status:     "success",
	}
}

// MarkMutated records that the database changed during this operation.
func (op *Operation) MarkMutated() { op.mutated = true }

// Mutated reports whether the database changed during this operation.
func (op *Operation) Mutated() bool { return op.mutated }

// Fail marks the operation as failed.
func (op *Operation) Fail() { op.Status = "error" }
