package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"wipeit/internal/wipe"
)

func TestParseSize(t *testing.T) {
	tests := []struct {
		in      string
		want    int64
		wantErr bool
	}{
		{"100M", 100 * wipe.Megabyte, false},
		{"1G", wipe.Gigabyte, false},
		{"1T", wipe.Terabyte, false},
		{"0.5G", 512 * wipe.Megabyte, false},
		{"1g", wipe.Gigabyte, false},
		{" 100M ", 100 * wipe.Megabyte, false},
		{"", 0, true},
		{"100", 0, true},
		{"abcM", 0, true},
		{"100K", 0, true},
		{"0.5M", 0, true}, // below 1M floor
		{"2T", 0, true},   // above 1T ceiling
	}

	for _, tc := range tests {
		got, err := ParseSize(tc.in)
		if tc.wantErr {
			assert.Error(t, err, "ParseSize(%q)", tc.in)
			continue
		}
		require.NoError(t, err, "ParseSize(%q)", tc.in)
		assert.Equal(t, tc.want, got, "ParseSize(%q)", tc.in)
	}
}

func TestDefaultIsValid(t *testing.T) {
	cfg := Default()

	require.NoError(t, Validate(cfg))

	assert.Equal(t, int64(100*wipe.Megabyte), cfg.BufferSizeBytes())
	assert.Equal(t, int64(100*wipe.Megabyte), cfg.CheckpointThreshold())
	assert.Equal(t, 24*time.Hour, cfg.ProgressExpiry())
	assert.True(t, cfg.Reporting.Enabled)
}

func TestValidateRejectsBadValues(t *testing.T) {
	mutations := []func(*Config){
		func(c *Config) { c.Wipe.BufferSize = "lots" },
		func(c *Config) { c.Wipe.CheckpointMB = 0 },
		func(c *Config) { c.Pretest.ChunkSize = "" },
		func(c *Config) { c.Pretest.LowSpeedMBps = -1 },
		func(c *Config) { c.Pretest.HighVarianceMBps = 0 },
		func(c *Config) { c.Progress.File = "" },
		func(c *Config) { c.Progress.ExpiryHours = 0 },
		func(c *Config) { c.Logging.Level = "LOUD" },
	}

	for i, mutate := range mutations {
		cfg := Default()
		mutate(cfg)
		assert.Error(t, Validate(cfg), "mutation %d", i)
	}
}

func TestLoadMissingPathFallsBack(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)

	cfg, err = Load("/nonexistent/wipeit.yaml")
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
}

func TestLoadOverridesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "wipeit.yaml")

	content := `
wipe:
  buffer_size: 200M
  checkpoint_mb: 50
logging:
  level: DEBUG
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, int64(200*wipe.Megabyte), cfg.BufferSizeBytes())
	assert.Equal(t, int64(50*wipe.Megabyte), cfg.CheckpointThreshold())
	assert.Equal(t, "DEBUG", cfg.Logging.Level)

	// Untouched sections keep their defaults.
	assert.Equal(t, "wipeit_progress.json", cfg.Progress.File)
	assert.Equal(t, 24, cfg.Progress.ExpiryHours)
}

func TestLoadRejectsInvalidFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "wipeit.yaml")

	require.NoError(t, os.WriteFile(path, []byte("wipe:\n  checkpoint_mb: -5\n"), 0o644))

	_, err := Load(path)
	require.Error(t, err)
}
