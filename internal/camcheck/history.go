package camcheck

import (
	"bytes"
	"fmt"
	"strings"
)

// GetHistory returns the most recent runs, ordered newest first.
func (s *Service) GetHistory(limit int) ([]*Run, error) {
	if s.database == nil {
		return nil, fmt.Errorf("run history is not available without a database")
	}
	runs, err := s.database.ListRuns(limit)
	if err != nil {
		return nil, fmt.Errorf("listing runs: %w", err)
	}
	return runs, nil
}

// GetRun returns a single run with its rename entries and missing files.
func (s *Service) GetRun(id string) (*Run, error) {
	if s.database == nil {
		return nil, fmt.Errorf("run history is not available without a database")
	}
	run, err := s.database.FindRun(id)
	if err != nil {
		return nil, fmt.Errorf("finding run: %w", err)
	}
	if run == nil {
		return nil, fmt.Errorf("run not found: %s", id)
	}
	return run, nil
}

// Lookup returns every recorded rename involving filename, either as the
// original phone name or as the renamed backup name.
func (s *Service) Lookup(filename string) ([]*RenameRecord, error) {
	if s.database == nil {
		return nil, fmt.Errorf("rename lookup is not available without a database")
	}
	s.logger.Debug("looking up rename", "filename", filename)

	records, err := s.database.FindRenames(filename)
	if err != nil {
		return nil, fmt.Errorf("finding renames: %w", err)
	}
	return records, nil
}

// FetchRenameMap downloads the rename map archived by a run and decodes it.
// decryptCtx is required when the artifact was encrypted; pass nil otherwise.
func (s *Service) FetchRenameMap(runID string, decryptCtx DecryptionContext) ([]RenameEntry, error) {
	if s.vault == nil {
		return nil, fmt.Errorf("no vault configured")
	}

	run, err := s.GetRun(runID)
	if err != nil {
		return nil, err
	}
	if run.MapArtifact == "" {
		return nil, fmt.Errorf("run %s has no archived rename map", runID)
	}

	var buf bytes.Buffer
	if err := s.vault.GetArtifact(run.DeviceID, run.MapArtifact, &buf); err != nil {
		return nil, fmt.Errorf("downloading rename map: %w", err)
	}

	suffix := ""
	if s.encryptor != nil {
		suffix = s.encryptor.Suffix()
	}

	data := &buf
	if suffix != "" && strings.HasSuffix(run.MapArtifact, suffix) {
		if decryptCtx == nil {
			return nil, fmt.Errorf("rename map %s is encrypted and no decryption context was provided", run.MapArtifact)
		}
		var plain bytes.Buffer
		if err := decryptCtx.Decrypt(&buf, &plain); err != nil {
			return nil, fmt.Errorf("decrypting rename map: %w", err)
		}
		data = &plain
	}

	return DecodeRenameMap(data, FormatFromName(run.MapArtifact, suffix))
}
