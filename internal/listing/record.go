package listing

import (
	"fmt"
	"time"
)

// Date is a calendar date without a time component, as printed in the
// date column of an `ls --time-style=long-iso` listing.
type Date struct {
	Year  int
	Month time.Month
	Day   int
}

// ParseDate parses a YYYY-MM-DD string. Dates that do not exist on the
// calendar (2021-02-30) are rejected.
func ParseDate(s string) (Date, error) {
	t, err := time.Parse(time.DateOnly, s)
	if err != nil {
		return Date{}, fmt.Errorf("parsing date %q: %w", s, err)
	}
	return DateOf(t), nil
}

// DateOf returns the calendar date of t in t's location.
func DateOf(t time.Time) Date {
	y, m, d := t.Date()
	return Date{Year: y, Month: m, Day: d}
}

// AddDays returns the date n days after d (before, for negative n),
// rolling over month and year boundaries.
func (d Date) AddDays(n int) Date {
	return DateOf(time.Date(d.Year, d.Month, d.Day+n, 0, 0, 0, 0, time.UTC))
}

func (d Date) String() string {
	return fmt.Sprintf("%04d-%02d-%02d", d.Year, d.Month, d.Day)
}

// Key addresses a record within one listing. Two records with the same
// capture date and exact byte size are considered the same file.
type Key struct {
	Date Date
	Size int64
}

// String renders the key as "<date>.<size>" for diagnostics.
func (k Key) String() string {
	return fmt.Sprintf("%s.%d", k.Date, k.Size)
}

// FileRecord is one parsed line of a directory listing.
type FileRecord struct {
	Permissions string // raw permission string, diagnostic only
	Ownership   string // link count, owner and group ids, diagnostic only
	Filesize    int64
	Date        Date
	Time        string // HH:MM, not used for matching
	Filename    string
}

// Key returns the record's lookup key.
func (r FileRecord) Key() Key {
	return Key{Date: r.Date, Size: r.Filesize}
}

func (r FileRecord) String() string {
	return fmt.Sprintf("%s %s %d %s %s %s", r.Permissions, r.Ownership, r.Filesize, r.Date, r.Time, r.Filename)
}
