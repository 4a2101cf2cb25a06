// Package progress persists wipe position across interruptions. One
// record file describes the single active session; the record is
// replaced wholesale on every checkpoint and deleted on completion.
package progress

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"time"

	"go.uber.org/zap"

	"wipeit/internal/device"
	"wipeit/internal/wipe"
)

// FreshnessWindow is how long a progress record stays resumable.
// Older records are treated as absent.
const FreshnessWindow = 24 * time.Hour

// DefaultFileName is the well-known session file.
const DefaultFileName = "wipeit_progress.json"

// ErrDeviceMismatch marks a progress record that belongs to a
// different physical device. Callers must treat it as fatal and never
// fall back to a fresh wipe of the possibly wrong device.
var ErrDeviceMismatch = errors.New("device identity mismatch")

// Record is the persisted state of one wipe session.
type Record struct {
	Device          string              `json:"device"`
	Written         int64               `json:"written"`
	TotalSize       int64               `json:"total_size"`
	ProgressPercent float64             `json:"progress_percent"`
	ChunkSize       int64               `json:"chunk_size"`
	Algorithm       wipe.Algorithm      `json:"algorithm"`
	Timestamp       int64               `json:"timestamp"`
	Pretest         *wipe.PretestResult `json:"pretest_results"`
	DeviceID        *device.Identity    `json:"device_id"`
}

// Store reads and writes the session file.
type Store struct {
	path   string
	expiry time.Duration
	log    *zap.SugaredLogger
}

func NewStore(path string, expiry time.Duration, log *zap.SugaredLogger) *Store {
	if path == "" {
		path = DefaultFileName
	}
	if expiry <= 0 {
		expiry = FreshnessWindow
	}
	if log == nil {
		log = zap.NewNop().Sugar()
	}

	return &Store{
		path:   path,
		expiry: expiry,
		log:    log,
	}
}

// Path returns the session file location.
func (s *Store) Path() string {
	return s.path
}

// Save replaces the session file with rec, stamping the derived
// percentage and the current time, and forces the record to durable
// storage before returning. A crash immediately afterwards still
// leaves an accurate record on disk.
func (s *Store) Save(rec *Record) error {
	if rec.TotalSize > 0 {
		rec.ProgressPercent = float64(rec.Written) / float64(rec.TotalSize) * 100
	}
	rec.Timestamp = time.Now().Unix()

	data, err := json.MarshalIndent(rec, "", "  ")
	if err != nil {
		return fmt.Errorf("cannot encode progress record: %w", err)
	}

	f, err := os.OpenFile(s.path, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o644)
	if err != nil {
		return fmt.Errorf("cannot open progress file %s: %w", s.path, err)
	}

	if _, err := f.Write(data); err != nil {
		f.Close() //nolint:errcheck
		return fmt.Errorf("cannot write progress file %s: %w", s.path, err)
	}

	if err := f.Sync(); err != nil {
		f.Close() //nolint:errcheck
		return fmt.Errorf("cannot sync progress file %s: %w", s.path, err)
	}

	return f.Close()
}

// Load returns the saved record, or nil when the file is absent,
// corrupt, invalid or stale. None of those conditions is an error: the
// caller simply starts from offset 0.
func (s *Store) Load() *Record {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if !os.IsNotExist(err) {
			s.log.Warnw("cannot read progress file", "path", s.path, "error", err)
		}
		return nil
	}

	var rec Record
	if err := json.Unmarshal(data, &rec); err != nil {
		s.log.Warnw("progress file is corrupt, ignoring", "path", s.path, "error", err)
		return nil
	}

	if rec.Device == "" || rec.TotalSize <= 0 || rec.Written < 0 || rec.Written > rec.TotalSize {
		s.log.Warnw("progress file is invalid, ignoring", "path", s.path)
		return nil
	}

	age := time.Since(time.Unix(rec.Timestamp, 0))
	if rec.Timestamp <= 0 || age > s.expiry {
		s.log.Infow("progress file is stale, ignoring", "path", s.path, "age", age)
		return nil
	}

	// Records written by older versions may miss these fields; default
	// them so the session is still resumable.
	if rec.ChunkSize <= 0 {
		rec.ChunkSize = wipe.DefaultChunkSize
	}
	if rec.Algorithm == "" {
		rec.Algorithm = wipe.AlgorithmStandard
	}

	return &rec
}

// VerifyIdentity checks that rec belongs to the live device. Serial
// and size must both match; a model mismatch alone is not
// disqualifying. Fields absent on either side are skipped, which keeps
// records from older versions resumable.
func (s *Store) VerifyIdentity(rec *Record, live device.Identity) error {
	if rec.DeviceID == nil {
		return nil
	}

	saved := rec.DeviceID

	if saved.Serial != "" && live.Serial != "" && saved.Serial != live.Serial {
		return fmt.Errorf("%w: serial %q does not match current %q (model %q vs %q)",
			ErrDeviceMismatch, saved.Serial, live.Serial, saved.Model, live.Model)
	}

	if saved.Size > 0 && live.Size > 0 && saved.Size != live.Size {
		return fmt.Errorf("%w: size %d does not match current %d",
			ErrDeviceMismatch, saved.Size, live.Size)
	}

	return nil
}

// Clear deletes the session file. Called only after a wipe completes.
func (s *Store) Clear() error {
	if err := os.Remove(s.path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("cannot remove progress file %s: %w", s.path, err)
	}

	return nil
}

// ResumeMilestone returns the 5%-bucketed milestone for a resume
// position, used to seed a resumed strategy so no already-announced
// milestone fires again.
func ResumeMilestone(written, totalSize int64) int {
	if totalSize <= 0 {
		return 0
	}

	percent := float64(written) / float64(totalSize) * 100

	return int(percent) / wipe.MilestoneIncrementPercent * wipe.MilestoneIncrementPercent
}
