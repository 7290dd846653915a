package camcheck

import (
	"bytes"
	"fmt"
	"io"
	"path/filepath"

	"camcheck/internal/listing"
)

// Service is the orchestration layer that turns two listing files into a
// reconciled, reported and archived check.
type Service struct {
	deviceID  string
	database  Database
	vault     Vault
	fsmgr     FilesystemManager
	encryptor Encryptor
	filter    NameFilter
	logger    Logger
	clock     Clock
	idgen     IDGenerator
}

// NewService creates a new Service with the provided dependencies.
// database, vault, encryptor and filter may be nil: a nil database skips
// run history, a nil vault skips archiving, a nil encryptor archives
// plaintext and a nil filter keeps every phone file.
func NewService(deviceID string, database Database, vault Vault, fsmgr FilesystemManager, encryptor Encryptor, filter NameFilter, logger Logger, clock Clock, idgen IDGenerator) *Service {
	return &Service{
		deviceID:  deviceID,
		database:  database,
		vault:     vault,
		fsmgr:     fsmgr,
		encryptor: encryptor,
		filter:    filter,
		logger:    logger,
		clock:     clock,
		idgen:     idgen,
	}
}

// CheckRequest names the inputs and output of a check.
type CheckRequest struct {
	PhoneListing  string
	BackupListing string
	MapPath       string
	MapFormat     string // FormatJSON or FormatYAML; empty means JSON
}

// CheckOutcome is everything a check produced.
type CheckOutcome struct {
	Run        *Run
	Result     *MatchResult
	Ignored    []listing.FileRecord
	Collisions []listing.FileRecord // records dropped by same-key overwrites, both listings
	MapPath    string
	Artifacts  []string
}

type loadedListing struct {
	path    string
	raw     []byte
	listing *listing.Listing
}

// Check parses both listings, reconciles them, writes the rename map to
// req.MapPath, archives the run in the vault and records it in the database.
//
// A listing that fails to parse aborts the check before anything is
// written. Missing files are not an error; they are reported in the outcome.
func (s *Service) Check(req CheckRequest) (*CheckOutcome, error) {
	s.logger.Info("check started", "phone", req.PhoneListing, "backup", req.BackupListing)

	if s.vault != nil && s.encryptor != nil && !s.encryptor.IsConfigured() {
		return nil, fmt.Errorf("encryption is not set up (run 'camcheck config init')")
	}

	backup, err := s.loadListing(req.BackupListing)
	if err != nil {
		return nil, err
	}
	phone, err := s.loadListing(req.PhoneListing)
	if err != nil {
		return nil, err
	}

	out := &CheckOutcome{MapPath: req.MapPath}
	out.Collisions = append(out.Collisions, s.collisions(phone)...)
	out.Collisions = append(out.Collisions, s.collisions(backup)...)

	phoneFiles := phone.listing
	if s.filter != nil {
		phoneFiles, out.Ignored = phoneFiles.Filter(func(r listing.FileRecord) bool {
			return s.filter.Match(r.Filename)
		})
		for _, r := range out.Ignored {
			s.logger.Debug("phone file ignored", "filename", r.Filename)
		}
	}

	res := Reconcile(phoneFiles, backup.listing)
	out.Result = res
	for _, r := range res.Missing {
		s.logger.Debug("phone file not found in backup", "record", r.String(), "key", r.Key().String())
	}

	var mapBuf bytes.Buffer
	if err := EncodeRenameMap(&mapBuf, res.RenameMap, req.MapFormat); err != nil {
		return nil, err
	}
	if err := s.fsmgr.WriteFile(req.MapPath, bytes.NewReader(mapBuf.Bytes())); err != nil {
		return nil, fmt.Errorf("writing rename map: %w", err)
	}
	s.logger.Info("rename map written", "path", req.MapPath, "entries", len(res.RenameMap))

	run := &Run{
		ID:                  s.idgen.New(),
		DeviceID:            s.deviceID,
		CreatedAt:           s.clock.Now(),
		PhoneListing:        req.PhoneListing,
		BackupListing:       req.BackupListing,
		MapPath:             req.MapPath,
		PhoneCount:          res.PhoneCount,
		BackedUpCount:       res.BackedUpCount,
		BackedUpTotalSize:   res.BackedUpTotalSize,
		FuzzyDateMatchCount: res.FuzzyDateMatchCount,
		MissingCount:        res.MissingCount,
		IgnoredCount:        len(out.Ignored),
		CollisionCount:      len(out.Collisions),
		Renames:             res.RenameMap,
		Missing:             res.Missing,
	}
	out.Run = run

	if s.vault != nil {
		mapName, err := s.archive(run.ID, filepath.Base(req.MapPath), mapBuf.Bytes())
		if err != nil {
			return nil, err
		}
		run.MapArtifact = mapName
		out.Artifacts = append(out.Artifacts, mapName)

		sides := []struct {
			dir string
			l   *loadedListing
		}{{"phone", phone}, {"backup", backup}}
		for _, side := range sides {
			name, err := s.archive(run.ID, side.dir+"/"+filepath.Base(side.l.path), side.l.raw)
			if err != nil {
				return nil, err
			}
			out.Artifacts = append(out.Artifacts, name)
		}
	}

	if s.database != nil {
		if err := s.database.CreateRun(run); err != nil {
			return nil, fmt.Errorf("recording run: %w", err)
		}
	}

	s.logger.Info("check complete",
		"run", run.ID,
		"backed_up", res.BackedUpCount,
		"backed_up_total_size", res.BackedUpTotalSize,
		"fuzzy_date_match", res.FuzzyDateMatchCount,
		"missing", res.MissingCount,
	)
	return out, nil
}

// loadListing reads a listing file to completion and parses it. The raw
// bytes are kept for archiving.
func (s *Service) loadListing(path string) (*loadedListing, error) {
	f, err := s.fsmgr.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening listing: %w", err)
	}
	defer f.Close()

	raw, err := io.ReadAll(f)
	if err != nil {
		return nil, fmt.Errorf("reading listing %s: %w", path, err)
	}

	l, err := listing.Parse(bytes.NewReader(raw), path)
	if err != nil {
		return nil, err
	}

	s.logger.Debug("listing parsed", "path", path, "records", l.Len())
	return &loadedListing{path: path, raw: raw, listing: l}, nil
}

func (s *Service) collisions(l *loadedListing) []listing.FileRecord {
	dropped := l.listing.Overwritten()
	for _, r := range dropped {
		s.logger.Warn("listing key collision, earlier entry dropped",
			"listing", l.path, "key", r.Key().String(), "filename", r.Filename)
	}
	return dropped
}

// archive stores data under <runID>/<name> in the vault, encrypting it
// first when an encryptor is configured. It returns the artifact name.
func (s *Service) archive(runID, name string, data []byte) (string, error) {
	artifact := runID + "/" + name

	payload := data
	if s.encryptor != nil {
		var enc bytes.Buffer
		if err := s.encryptor.Encrypt(bytes.NewReader(data), &enc); err != nil {
			return "", fmt.Errorf("encrypting %s: %w", name, err)
		}
		payload = enc.Bytes()
		artifact += s.encryptor.Suffix()
	}

	if err := s.vault.PutArtifact(s.deviceID, artifact, bytes.NewReader(payload), int64(len(payload))); err != nil {
		return "", fmt.Errorf("archiving %s: %w", name, err)
	}

	s.logger.Debug("artifact archived", "name", artifact, "size", len(payload))
	return artifact, nil
}
