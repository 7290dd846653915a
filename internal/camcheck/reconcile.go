package camcheck

import "camcheck/internal/listing"

// FuzzyOffsets are the day offsets tried, in order, when a phone file has
// no backup counterpart on its own date. The backup app names uploads after
// the upload date rather than the capture date, which can shift the date
// column by a day or two.
var FuzzyOffsets = []int{-1, -2, 1, 2}

// RenameEntry correlates a phone file with its renamed backup copy.
type RenameEntry struct {
	OriginalFilename string `json:"original_filename" yaml:"original_filename"`
	BackupFilename   string `json:"backup_filename" yaml:"backup_filename"`
	Filesize         int64  `json:"filesize" yaml:"filesize"`
	DayOffset        int    `json:"-" yaml:"-"` // 0 for exact matches
}

// Fuzzy reports whether the entry was matched through the date window.
func (e RenameEntry) Fuzzy() bool {
	return e.DayOffset != 0
}

// MatchResult is the outcome of reconciling a phone listing against a
// backup listing.
type MatchResult struct {
	PhoneCount          int
	BackedUpCount       int
	BackedUpTotalSize   int64
	FuzzyDateMatchCount int
	MissingCount        int
	RenameMap           []RenameEntry
	MissingFilenames    []string
	Missing             []listing.FileRecord
}

// AllBackedUp reports whether every phone file was found in the backup.
func (r *MatchResult) AllBackedUp() bool {
	return r.MissingCount == 0
}

// Reconcile classifies every phone record as backed up (exactly or through
// the fuzzy date window) or missing. Records are visited in listing order.
func Reconcile(phone, backup *listing.Listing) *MatchResult {
	res := &MatchResult{}

	for _, rec := range phone.Records() {
		res.PhoneCount++

		match, offset, ok := findBackup(rec, backup)
		if !ok {
			res.MissingCount++
			res.MissingFilenames = append(res.MissingFilenames, rec.Filename)
			res.Missing = append(res.Missing, rec)
			continue
		}

		if offset != 0 {
			res.FuzzyDateMatchCount++
		}
		res.BackedUpCount++
		res.BackedUpTotalSize += rec.Filesize
		res.RenameMap = append(res.RenameMap, RenameEntry{
			OriginalFilename: rec.Filename,
			BackupFilename:   match.Filename,
			Filesize:         rec.Filesize,
			DayOffset:        offset,
		})
	}

	return res
}

// findBackup looks up rec's exact key first and only then walks FuzzyOffsets.
func findBackup(rec listing.FileRecord, backup *listing.Listing) (listing.FileRecord, int, bool) {
	key := rec.Key()
	if match, ok := backup.Lookup(key); ok {
		return match, 0, true
	}

	for _, offset := range FuzzyOffsets {
		fuzzy := listing.Key{Date: key.Date.AddDays(offset), Size: key.Size}
		if match, ok := backup.Lookup(fuzzy); ok {
			return match, offset, true
		}
	}

	return listing.FileRecord{}, 0, false
}
