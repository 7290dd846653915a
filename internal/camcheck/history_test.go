package camcheck_test

import (
	"strings"
	"testing"
	"time"

	"camcheck/internal/camcheck"
	"camcheck/internal/encryption"
	"camcheck/internal/testutil"
)

// runChecks performs n checks against the same listings, one hour apart.
func runChecks(t *testing.T, svc *camcheck.Service, fsmgr *testutil.MockFilesystemManager, clock *testutil.StubClock, n int) {
	t.Helper()
	fsmgr.AddFile(phonePath,
		entry("2020-12-17", 7673692, "IMG_20201217_140101.jpg")+
			entry("2020-12-17", 42, "IMG lost.jpg"))
	fsmgr.AddFile(backupPath, entry("2020-12-16", 7673692, "2020-12-16 14.01.01.jpg"))

	for i := 0; i < n; i++ {
		if _, err := svc.Check(checkRequest()); err != nil {
			t.Fatalf("Check() error = %v", err)
		}
		clock.Advance(time.Hour)
	}
}

func newHistoryService(t *testing.T, enc camcheck.Encryptor) (*camcheck.Service, *testutil.MockFilesystemManager, *testutil.StubClock) {
	t.Helper()
	fsmgr := testutil.NewMockFilesystemManager()
	clock := testutil.FixedClock()
	svc := camcheck.NewService("pixel", testutil.NewTestDatabase(t), testutil.NewTestVault(), fsmgr, enc, nil,
		camcheck.NewNopLogger(), clock, testutil.NewStubIDGenerator())
	return svc, fsmgr, clock
}

func TestService_GetHistory(t *testing.T) {
	svc, fsmgr, clock := newHistoryService(t, testutil.NewTestEncryptor())
	runChecks(t, svc, fsmgr, clock, 3)

	runs, err := svc.GetHistory(2)
	if err != nil {
		t.Fatalf("GetHistory() error = %v", err)
	}
	if len(runs) != 2 {
		t.Fatalf("len(runs) = %d, want 2", len(runs))
	}
	if runs[0].ID != "run-3" || runs[1].ID != "run-2" {
		t.Errorf("GetHistory() = [%s %s], want [run-3 run-2]", runs[0].ID, runs[1].ID)
	}
	if runs[0].MissingCount != 1 || runs[0].FuzzyDateMatchCount != 1 {
		t.Errorf("run counts = %+v", runs[0])
	}
}

func TestService_GetRun(t *testing.T) {
	svc, fsmgr, clock := newHistoryService(t, testutil.NewTestEncryptor())
	runChecks(t, svc, fsmgr, clock, 1)

	t.Run("existing run", func(t *testing.T) {
		run, err := svc.GetRun("run-1")
		if err != nil {
			t.Fatalf("GetRun() error = %v", err)
		}
		if len(run.Missing) != 1 || run.Missing[0].Filename != "IMG lost.jpg" {
			t.Errorf("Missing = %+v, want IMG lost.jpg", run.Missing)
		}
	})

	t.Run("unknown run", func(t *testing.T) {
		_, err := svc.GetRun("run-99")
		if err == nil || !strings.Contains(err.Error(), "run not found") {
			t.Errorf("GetRun() error = %v, want run not found", err)
		}
	})
}

func TestService_Lookup(t *testing.T) {
	svc, fsmgr, clock := newHistoryService(t, testutil.NewTestEncryptor())
	runChecks(t, svc, fsmgr, clock, 2)

	tests := []struct {
		name     string
		filename string
		want     int
	}{
		{name: "original name", filename: "IMG_20201217_140101.jpg", want: 2},
		{name: "backup name", filename: "2020-12-16 14.01.01.jpg", want: 2},
		{name: "missing file was never renamed", filename: "IMG lost.jpg", want: 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := svc.Lookup(tt.filename)
			if err != nil {
				t.Fatalf("Lookup() error = %v", err)
			}
			if len(got) != tt.want {
				t.Fatalf("len(Lookup()) = %d, want %d", len(got), tt.want)
			}
			if tt.want > 0 && got[0].RunID != "run-2" {
				t.Errorf("Lookup()[0].RunID = %q, want newest run-2", got[0].RunID)
			}
		})
	}
}

func TestService_FetchRenameMap(t *testing.T) {
	t.Run("encrypted map", func(t *testing.T) {
		enc := testutil.NewTestEncryptor()
		svc, fsmgr, clock := newHistoryService(t, enc)
		runChecks(t, svc, fsmgr, clock, 1)

		if _, err := svc.FetchRenameMap("run-1", nil); err == nil {
			t.Error("FetchRenameMap() without decryption context expected error")
		}

		ctx, err := enc.Unlock("")
		if err != nil {
			t.Fatalf("Unlock() error = %v", err)
		}
		entries, err := svc.FetchRenameMap("run-1", ctx)
		if err != nil {
			t.Fatalf("FetchRenameMap() error = %v", err)
		}
		if len(entries) != 1 || entries[0].OriginalFilename != "IMG_20201217_140101.jpg" {
			t.Errorf("FetchRenameMap() = %+v", entries)
		}
	})

	t.Run("plaintext map", func(t *testing.T) {
		svc, fsmgr, clock := newHistoryService(t, encryption.NoneEncryptor{})
		runChecks(t, svc, fsmgr, clock, 1)

		entries, err := svc.FetchRenameMap("run-1", nil)
		if err != nil {
			t.Fatalf("FetchRenameMap() error = %v", err)
		}
		if len(entries) != 1 || entries[0].BackupFilename != "2020-12-16 14.01.01.jpg" {
			t.Errorf("FetchRenameMap() = %+v", entries)
		}
	})

	t.Run("unknown run", func(t *testing.T) {
		svc, _, _ := newHistoryService(t, nil)
		if _, err := svc.FetchRenameMap("nope", nil); err == nil {
			t.Error("FetchRenameMap() expected error for unknown run")
		}
	})
}

func TestService_HistoryWithoutDatabase(t *testing.T) {
	svc := camcheck.NewService("pixel", nil, nil, testutil.NewMockFilesystemManager(), nil, nil,
		camcheck.NewNopLogger(), testutil.FixedClock(), testutil.NewStubIDGenerator())

	if _, err := svc.GetHistory(10); err == nil {
		t.Error("GetHistory() expected error without database")
	}
	if _, err := svc.Lookup("a.jpg"); err == nil {
		t.Error("Lookup() expected error without database")
	}
	if _, err := svc.FetchRenameMap("run-1", nil); err == nil {
		t.Error("FetchRenameMap() expected error without vault")
	}
}
