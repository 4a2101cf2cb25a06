package progress

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"wipeit/internal/device"
	"wipeit/internal/wipe"
)

func testStore(t *testing.T) *Store {
	t.Helper()
	return NewStore(filepath.Join(t.TempDir(), "progress.json"), time.Hour, nil)
}

func testRecord() *Record {
	return &Record{
		Device:    "/dev/sdb",
		Written:   512 * wipe.Megabyte,
		TotalSize: 2 * wipe.Gigabyte,
		ChunkSize: 100 * wipe.Megabyte,
		Algorithm: wipe.AlgorithmAdaptive,
		Pretest: &wipe.PretestResult{
			Speeds:        []float64{80, 120, 100},
			AverageSpeed:  100,
			SpeedVariance: 16.3,
		},
		DeviceID: &device.Identity{
			Serial: "WD-1234",
			Model:  "WDC_WD20EZRZ",
			Size:   2 * wipe.Gigabyte,
		},
	}
}

func TestSaveLoadRoundTrip(t *testing.T) {
	s := testStore(t)

	require.NoError(t, s.Save(testRecord()))

	got := s.Load()
	require.NotNil(t, got)

	assert.Equal(t, "/dev/sdb", got.Device)
	assert.Equal(t, int64(512*wipe.Megabyte), got.Written)
	assert.Equal(t, int64(2*wipe.Gigabyte), got.TotalSize)
	assert.Equal(t, int64(100*wipe.Megabyte), got.ChunkSize)
	assert.Equal(t, wipe.AlgorithmAdaptive, got.Algorithm)
	assert.InDelta(t, 25.0, got.ProgressPercent, 0.001)
	assert.WithinDuration(t, time.Now(), time.Unix(got.Timestamp, 0), 5*time.Second)

	require.NotNil(t, got.Pretest)
	assert.Equal(t, []float64{80, 120, 100}, got.Pretest.Speeds)

	require.NotNil(t, got.DeviceID)
	assert.Equal(t, "WD-1234", got.DeviceID.Serial)
}

func TestSaveUsesStableKeys(t *testing.T) {
	s := testStore(t)

	require.NoError(t, s.Save(testRecord()))

	data, err := os.ReadFile(s.Path())
	require.NoError(t, err)

	var raw map[string]any
	require.NoError(t, json.Unmarshal(data, &raw))

	for _, key := range []string{
		"device", "written", "total_size", "progress_percent",
		"chunk_size", "algorithm", "timestamp", "pretest_results", "device_id",
	} {
		assert.Contains(t, raw, key)
	}

	assert.Equal(t, "adaptive_chunk", raw["algorithm"])
}

func TestLoadMissingFile(t *testing.T) {
	assert.Nil(t, testStore(t).Load())
}

func TestLoadCorruptFile(t *testing.T) {
	s := testStore(t)

	require.NoError(t, os.WriteFile(s.Path(), []byte("{not json"), 0o644))
	assert.Nil(t, s.Load())
}

func TestLoadInvalidRecord(t *testing.T) {
	s := testStore(t)

	writeRaw := func(rec map[string]any) {
		rec["timestamp"] = time.Now().Unix()
		data, err := json.Marshal(rec)
		require.NoError(t, err)
		require.NoError(t, os.WriteFile(s.Path(), data, 0o644))
	}

	// Written beyond the device.
	writeRaw(map[string]any{"device": "/dev/sdb", "written": 200, "total_size": 100})
	assert.Nil(t, s.Load())

	// Negative written.
	writeRaw(map[string]any{"device": "/dev/sdb", "written": -1, "total_size": 100})
	assert.Nil(t, s.Load())

	// No device path.
	writeRaw(map[string]any{"written": 50, "total_size": 100})
	assert.Nil(t, s.Load())
}

func TestLoadStaleRecord(t *testing.T) {
	s := testStore(t)

	rec := map[string]any{
		"device":     "/dev/sdb",
		"written":    50,
		"total_size": 100,
		"timestamp":  time.Now().Add(-2 * time.Hour).Unix(),
	}
	data, err := json.Marshal(rec)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(s.Path(), data, 0o644))

	// Store expiry is one hour.
	assert.Nil(t, s.Load())

	rec["timestamp"] = time.Now().Add(-30 * time.Minute).Unix()
	data, err = json.Marshal(rec)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(s.Path(), data, 0o644))

	assert.NotNil(t, s.Load())
}

func TestLoadDefaultsOlderRecords(t *testing.T) {
	s := testStore(t)

	// A record without chunk_size or algorithm, as written by older
	// versions, still resumes with defaults.
	rec := map[string]any{
		"device":     "/dev/sdb",
		"written":    50,
		"total_size": 100,
		"timestamp":  time.Now().Unix(),
	}
	data, err := json.Marshal(rec)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(s.Path(), data, 0o644))

	got := s.Load()
	require.NotNil(t, got)

	assert.Equal(t, int64(wipe.DefaultChunkSize), got.ChunkSize)
	assert.Equal(t, wipe.AlgorithmStandard, got.Algorithm)
	assert.Nil(t, got.Pretest)
}

func TestVerifyIdentity(t *testing.T) {
	s := testStore(t)
	rec := testRecord()

	live := device.Identity{
		Serial: "WD-1234",
		Model:  "WDC_WD20EZRZ",
		Size:   2 * wipe.Gigabyte,
	}

	assert.NoError(t, s.VerifyIdentity(rec, live))

	// Serial is the primary check and fails even when model and size
	// agree.
	serialMismatch := live
	serialMismatch.Serial = "WD-9999"
	assert.ErrorIs(t, s.VerifyIdentity(rec, serialMismatch), ErrDeviceMismatch)

	sizeMismatch := live
	sizeMismatch.Size = wipe.Gigabyte
	assert.ErrorIs(t, s.VerifyIdentity(rec, sizeMismatch), ErrDeviceMismatch)

	// Model alone is informational.
	modelMismatch := live
	modelMismatch.Model = "OTHER"
	assert.NoError(t, s.VerifyIdentity(rec, modelMismatch))

	// Fields absent on either side are skipped.
	noSerial := live
	noSerial.Serial = ""
	assert.NoError(t, s.VerifyIdentity(rec, noSerial))

	rec.DeviceID = nil
	assert.NoError(t, s.VerifyIdentity(rec, device.Identity{Serial: "anything"}))
}

func TestClear(t *testing.T) {
	s := testStore(t)

	require.NoError(t, s.Save(testRecord()))
	require.NoError(t, s.Clear())

	assert.Nil(t, s.Load())

	// Clearing an absent file is not an error.
	assert.NoError(t, s.Clear())
}

func TestResumeMilestone(t *testing.T) {
	tests := []struct {
		written, total int64
		want           int
	}{
		{0, 4 * wipe.Gigabyte, 0},
		{wipe.Gigabyte, 4 * wipe.Gigabyte, 25},
		{470, 1000, 45},
		{999 * wipe.Megabyte, 4 * wipe.Gigabyte, 20},
		{1000, 1000, 100},
		{100, 0, 0},
	}

	for _, tc := range tests {
		assert.Equal(t, tc.want, ResumeMilestone(tc.written, tc.total),
			"ResumeMilestone(%d, %d)", tc.written, tc.total)
	}
}
