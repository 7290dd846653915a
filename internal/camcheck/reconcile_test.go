package camcheck_test

import (
	"fmt"
	"strings"
	"testing"

	"camcheck/internal/camcheck"
	"camcheck/internal/listing"
)

// entry renders one `ls -l` style listing line.
func entry(date string, size int64, name string) string {
	return fmt.Sprintf("-rw-rw---- 1 0 9997 %d %s 12:00 %s\n", size, date, name)
}

func mustParse(t *testing.T, lines ...string) *listing.Listing {
	t.Helper()
	l, err := listing.Parse(strings.NewReader(strings.Join(lines, "")), "test")
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	return l
}

func TestReconcile_ExactMatch(t *testing.T) {
	phone := mustParse(t, entry("2020-12-17", 100, "IMG_1.jpg"))
	backup := mustParse(t,
		entry("2020-12-16", 100, "fuzzy.jpg"),
		entry("2020-12-17", 100, "exact.jpg"),
	)

	res := camcheck.Reconcile(phone, backup)

	if res.BackedUpCount != 1 || res.MissingCount != 0 {
		t.Fatalf("BackedUp/Missing = %d/%d, want 1/0", res.BackedUpCount, res.MissingCount)
	}
	if res.FuzzyDateMatchCount != 0 {
		t.Errorf("FuzzyDateMatchCount = %d, want 0", res.FuzzyDateMatchCount)
	}
	got := res.RenameMap[0]
	if got.BackupFilename != "exact.jpg" || got.DayOffset != 0 || got.Fuzzy() {
		t.Errorf("RenameMap[0] = %+v, want exact match to exact.jpg", got)
	}
}

func TestReconcile_FuzzyWindow(t *testing.T) {
	tests := []struct {
		name       string
		phoneDate  string
		backup     []string
		wantName   string
		wantOffset int
	}{
		{
			name:       "one day earlier",
			phoneDate:  "2020-12-17",
			backup:     []string{entry("2020-12-16", 7673692, "2020-12-16 14.01.01.jpg")},
			wantName:   "2020-12-16 14.01.01.jpg",
			wantOffset: -1,
		},
		{
			name:       "two days earlier",
			phoneDate:  "2020-12-17",
			backup:     []string{entry("2020-12-15", 7673692, "b.jpg")},
			wantName:   "b.jpg",
			wantOffset: -2,
		},
		{
			name:       "one day later",
			phoneDate:  "2020-12-17",
			backup:     []string{entry("2020-12-18", 7673692, "b.jpg")},
			wantName:   "b.jpg",
			wantOffset: 1,
		},
		{
			name:       "two days later",
			phoneDate:  "2020-12-17",
			backup:     []string{entry("2020-12-19", 7673692, "b.jpg")},
			wantName:   "b.jpg",
			wantOffset: 2,
		},
		{
			name:      "minus one beats plus one",
			phoneDate: "2020-12-17",
			backup: []string{
				entry("2020-12-18", 7673692, "plus.jpg"),
				entry("2020-12-16", 7673692, "minus.jpg"),
			},
			wantName:   "minus.jpg",
			wantOffset: -1,
		},
		{
			name:      "minus two beats plus one",
			phoneDate: "2020-12-17",
			backup: []string{
				entry("2020-12-18", 7673692, "plus1.jpg"),
				entry("2020-12-15", 7673692, "minus2.jpg"),
			},
			wantName:   "minus2.jpg",
			wantOffset: -2,
		},
		{
			name:      "plus one beats plus two",
			phoneDate: "2020-12-17",
			backup: []string{
				entry("2020-12-19", 7673692, "plus2.jpg"),
				entry("2020-12-18", 7673692, "plus1.jpg"),
			},
			wantName:   "plus1.jpg",
			wantOffset: 1,
		},
		{
			name:       "crosses month boundary",
			phoneDate:  "2021-03-01",
			backup:     []string{entry("2021-02-28", 7673692, "feb.jpg")},
			wantName:   "feb.jpg",
			wantOffset: -1,
		},
		{
			name:       "crosses year boundary",
			phoneDate:  "2020-12-31",
			backup:     []string{entry("2021-01-02", 7673692, "jan.jpg")},
			wantName:   "jan.jpg",
			wantOffset: 2,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			phone := mustParse(t, entry(tt.phoneDate, 7673692, "IMG_20201217_140101.jpg"))
			backup := mustParse(t, tt.backup...)

			res := camcheck.Reconcile(phone, backup)

			if res.BackedUpCount != 1 {
				t.Fatalf("BackedUpCount = %d, want 1", res.BackedUpCount)
			}
			if res.FuzzyDateMatchCount != 1 {
				t.Errorf("FuzzyDateMatchCount = %d, want exactly 1", res.FuzzyDateMatchCount)
			}
			got := res.RenameMap[0]
			if got.BackupFilename != tt.wantName {
				t.Errorf("BackupFilename = %q, want %q", got.BackupFilename, tt.wantName)
			}
			if got.DayOffset != tt.wantOffset {
				t.Errorf("DayOffset = %d, want %d", got.DayOffset, tt.wantOffset)
			}
			if got.Filesize != 7673692 {
				t.Errorf("Filesize = %d, want 7673692", got.Filesize)
			}
		})
	}
}

func TestReconcile_Missing(t *testing.T) {
	tests := []struct {
		name   string
		backup []string
	}{
		{name: "three days earlier", backup: []string{entry("2020-12-14", 500, "b.jpg")}},
		{name: "three days later", backup: []string{entry("2020-12-20", 500, "b.jpg")}},
		{name: "same date, size differs by one", backup: []string{entry("2020-12-17", 501, "b.jpg")}},
		{name: "empty backup", backup: nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			phone := mustParse(t, entry("2020-12-17", 500, "IMG lost.jpg"))
			backup := mustParse(t, tt.backup...)

			res := camcheck.Reconcile(phone, backup)

			if res.MissingCount != 1 || res.BackedUpCount != 0 {
				t.Fatalf("Missing/BackedUp = %d/%d, want 1/0", res.MissingCount, res.BackedUpCount)
			}
			if len(res.MissingFilenames) != 1 || res.MissingFilenames[0] != "IMG lost.jpg" {
				t.Errorf("MissingFilenames = %v, want [IMG lost.jpg]", res.MissingFilenames)
			}
			if len(res.Missing) != 1 || res.Missing[0].Filesize != 500 {
				t.Errorf("Missing = %+v, want the phone record", res.Missing)
			}
			if res.AllBackedUp() {
				t.Error("AllBackedUp() = true, want false")
			}
			if len(res.RenameMap) != 0 {
				t.Errorf("RenameMap = %+v, want empty", res.RenameMap)
			}
		})
	}
}

func TestReconcile_Aggregates(t *testing.T) {
	phone := mustParse(t,
		entry("2020-12-17", 1000, "IMG_1.jpg"),
		entry("2020-12-17", 2000, "IMG_2.jpg"),
		entry("2020-12-18", 3000, "VID_3.mp4"),
		entry("2020-12-18", 4000, "IMG_4.jpg"),
		entry("2020-12-19", 5000, "IMG 5 with spaces.jpg"),
	)
	backup := mustParse(t,
		"total 42\n",
		entry("2020-12-17", 1000, "2020-12-17 10.00.00.jpg"),
		entry("2020-12-16", 2000, "2020-12-16 10.00.00.jpg"),
		entry("2020-12-18", 3000, "2020-12-18 10.00.00.mp4"),
		entry("2020-12-20", 5000, "2020-12-20 10.00.00.jpg"),
	)

	res := camcheck.Reconcile(phone, backup)

	if res.PhoneCount != 5 {
		t.Errorf("PhoneCount = %d, want 5", res.PhoneCount)
	}
	if res.BackedUpCount+res.MissingCount != res.PhoneCount {
		t.Errorf("BackedUp (%d) + Missing (%d) != PhoneCount (%d)", res.BackedUpCount, res.MissingCount, res.PhoneCount)
	}
	if res.BackedUpCount != 4 {
		t.Errorf("BackedUpCount = %d, want 4", res.BackedUpCount)
	}
	if res.FuzzyDateMatchCount != 2 {
		t.Errorf("FuzzyDateMatchCount = %d, want 2", res.FuzzyDateMatchCount)
	}
	if res.BackedUpTotalSize != 1000+2000+3000+5000 {
		t.Errorf("BackedUpTotalSize = %d, want %d", res.BackedUpTotalSize, 1000+2000+3000+5000)
	}
	if len(res.RenameMap) != res.BackedUpCount {
		t.Errorf("len(RenameMap) = %d, want %d", len(res.RenameMap), res.BackedUpCount)
	}

	var sum int64
	for _, e := range res.RenameMap {
		sum += e.Filesize
	}
	if sum != res.BackedUpTotalSize {
		t.Errorf("sum of rename map sizes = %d, want %d", sum, res.BackedUpTotalSize)
	}

	wantOrder := []string{"IMG_1.jpg", "IMG_2.jpg", "VID_3.mp4", "IMG 5 with spaces.jpg"}
	for i, want := range wantOrder {
		if res.RenameMap[i].OriginalFilename != want {
			t.Errorf("RenameMap[%d].OriginalFilename = %q, want %q", i, res.RenameMap[i].OriginalFilename, want)
		}
	}
	if len(res.MissingFilenames) != 1 || res.MissingFilenames[0] != "IMG_4.jpg" {
		t.Errorf("MissingFilenames = %v, want [IMG_4.jpg]", res.MissingFilenames)
	}
}

func TestReconcile_EmptyPhone(t *testing.T) {
	res := camcheck.Reconcile(listing.New(), mustParse(t, entry("2020-12-17", 1, "a.jpg")))

	if res.PhoneCount != 0 || res.BackedUpCount != 0 || res.MissingCount != 0 {
		t.Errorf("counts = %d/%d/%d, want all zero", res.PhoneCount, res.BackedUpCount, res.MissingCount)
	}
	if !res.AllBackedUp() {
		t.Error("AllBackedUp() = false, want true")
	}
}

func TestReconcile_PhoneCollisionLastWins(t *testing.T) {
	phone := mustParse(t,
		entry("2020-12-17", 100, "IMG_first.jpg"),
		entry("2020-12-17", 100, "IMG_second.jpg"),
	)
	backup := mustParse(t, entry("2020-12-17", 100, "backup.jpg"))

	res := camcheck.Reconcile(phone, backup)

	if res.PhoneCount != 1 {
		t.Fatalf("PhoneCount = %d, want 1 (same key collapses)", res.PhoneCount)
	}
	if res.RenameMap[0].OriginalFilename != "IMG_second.jpg" {
		t.Errorf("OriginalFilename = %q, want the later entry", res.RenameMap[0].OriginalFilename)
	}
	if len(phone.Overwritten()) != 1 || phone.Overwritten()[0].Filename != "IMG_first.jpg" {
		t.Errorf("Overwritten() = %+v, want IMG_first.jpg", phone.Overwritten())
	}
}
