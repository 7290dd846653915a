package listing

import (
	"bufio"
	"fmt"
	"io"
	"regexp"
	"strconv"
	"strings"
)

// linePattern matches one entry of `adb shell ls -An` or
// `ls -ltn --time-style=long-iso`, e.g.
//
//	-rw-rw---- 1 0 9997    7673692 2020-12-17 13:01 IMG_20201217_140101.jpg
var linePattern = regexp.MustCompile(
	`^(?P<permissions>\S+)\s+(?P<ownership>\d+\s+\d+\s+\d+)\s+` +
		`(?P<filesize>\d+)\s+(?P<date>\d{4}-\d{2}-\d{2})\s+(?P<time>\d{2}:\d{2}) (?P<filename>.+)$`)

// skipPrefix marks the summary line printed by ls before the entries.
const skipPrefix = "total"

const maxLineLength = 1024 * 1024

var (
	permissionsIdx = linePattern.SubexpIndex("permissions")
	ownershipIdx   = linePattern.SubexpIndex("ownership")
	filesizeIdx    = linePattern.SubexpIndex("filesize")
	dateIdx        = linePattern.SubexpIndex("date")
	timeIdx        = linePattern.SubexpIndex("time")
	filenameIdx    = linePattern.SubexpIndex("filename")
)

// ParseError reports a listing line that is neither an entry nor a
// "total" summary line. Parsing stops at the first such line.
type ParseError struct {
	Source  string // listing name, usually its file path
	Line    int    // 1-based line number
	Content string // raw line content
	Err     error  // underlying field error, nil when the line did not match at all
}

func (e *ParseError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s:%d: invalid entry %q: %v", e.Source, e.Line, e.Content, e.Err)
	}
	return fmt.Sprintf("%s:%d: no match found: %q", e.Source, e.Line, e.Content)
}

func (e *ParseError) Unwrap() error { return e.Err }

// Parse reads a whole listing from r. source names the listing in errors.
func Parse(r io.Reader, source string) (*Listing, error) {
	l := New()

	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineLength)

	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSuffix(scanner.Text(), "\r")

		rec, ok, err := parseLine(line)
		if ok {
			l.Add(rec)
			continue
		}
		if strings.HasPrefix(line, skipPrefix) {
			continue
		}
		return nil, &ParseError{Source: source, Line: lineNo, Content: line, Err: err}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("reading listing %s: %w", source, err)
	}

	return l, nil
}

// parseLine reports false with a nil error when the line does not have the
// shape of an entry, and false with an error when a field is out of range.
func parseLine(line string) (FileRecord, bool, error) {
	m := linePattern.FindStringSubmatch(line)
	if m == nil {
		return FileRecord{}, false, nil
	}

	size, err := strconv.ParseInt(m[filesizeIdx], 10, 64)
	if err != nil {
		return FileRecord{}, false, fmt.Errorf("parsing filesize: %w", err)
	}

	date, err := ParseDate(m[dateIdx])
	if err != nil {
		return FileRecord{}, false, err
	}

	return FileRecord{
		Permissions: m[permissionsIdx],
		Ownership:   m[ownershipIdx],
		Filesize:    size,
		Date:        date,
		Time:        m[timeIdx],
		Filename:    m[filenameIdx],
	}, true, nil
}
