// Package reporting writes JSON completion reports for finished wipe
// operations.
package reporting

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"wipeit/internal/device"
	"wipeit/internal/wipe"
)

// Report summarizes one completed wipe.
type Report struct {
	ID           string          `json:"id"`
	Device       string          `json:"device"`
	DeviceID     device.Identity `json:"device_id"`
	Algorithm    wipe.Algorithm  `json:"algorithm"`
	TotalBytes   int64           `json:"total_bytes"`
	StartTime    time.Time       `json:"start_time"`
	EndTime      time.Time       `json:"end_time"`
	Duration     string          `json:"duration"`
	SpeedMBps    float64         `json:"speed_mbps"`
	Resumed      bool            `json:"resumed"`
	ResumeOffset int64           `json:"resume_offset,omitempty"`
}

// New builds a completion report.
func New(devicePath string, id device.Identity, algorithm wipe.Algorithm, totalBytes, resumeOffset int64, start, end time.Time) *Report {
	rep := &Report{
		ID:           uuid.NewString(),
		Device:       devicePath,
		DeviceID:     id,
		Algorithm:    algorithm,
		TotalBytes:   totalBytes,
		StartTime:    start,
		EndTime:      end,
		Duration:     end.Sub(start).String(),
		Resumed:      resumeOffset > 0,
		ResumeOffset: resumeOffset,
	}

	if elapsed := end.Sub(start).Seconds(); elapsed > 0 {
		rep.SpeedMBps = float64(totalBytes-resumeOffset) / elapsed / wipe.Megabyte
	}

	return rep
}

// Write stores the report under dir and returns the file path.
func Write(dir string, rep *Report) (string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("cannot create report directory %s: %w", dir, err)
	}

	data, err := json.MarshalIndent(rep, "", "  ")
	if err != nil {
		return "", fmt.Errorf("cannot encode report: %w", err)
	}

	path := filepath.Join(dir, fmt.Sprintf("wipeit_report_%s.json", rep.EndTime.Format("20060102_150405")))

	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", fmt.Errorf("cannot write report %s: %w", path, err)
	}

	return path, nil
}
