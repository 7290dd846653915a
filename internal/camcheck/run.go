package camcheck

import (
	"time"

	"camcheck/internal/listing"
)

// Run is the persisted record of one check.
type Run struct {
	ID            string
	DeviceID      string
	CreatedAt     time.Time
	PhoneListing  string
	BackupListing string
	MapPath       string // local rename-map file
	MapArtifact   string // vault artifact name, empty when not archived

	PhoneCount          int
	BackedUpCount       int
	BackedUpTotalSize   int64
	FuzzyDateMatchCount int
	MissingCount        int
	IgnoredCount        int
	CollisionCount      int

	Renames []RenameEntry
	Missing []listing.FileRecord
}

// RenameRecord is a rename entry together with the run that recorded it.
type RenameRecord struct {
	RunID     string
	CreatedAt time.Time
	RenameEntry
}
