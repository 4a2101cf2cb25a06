package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"wipeit/internal/wipe"
)

// Config is the application configuration.
type Config struct {
	Wipe      WipeConfig      `yaml:"wipe"`
	Pretest   PretestConfig   `yaml:"pretest"`
	Progress  ProgressConfig  `yaml:"progress"`
	Logging   LoggingConfig   `yaml:"logging"`
	Reporting ReportingConfig `yaml:"reporting"`
}

type WipeConfig struct {
	BufferSize   string `yaml:"buffer_size"`   // e.g. "100M", "1G"
	CheckpointMB int    `yaml:"checkpoint_mb"` // bytes between progress saves
	SkipPretest  bool   `yaml:"skip_pretest"`
}

type PretestConfig struct {
	ChunkSize        string  `yaml:"chunk_size"`
	LowSpeedMBps     float64 `yaml:"low_speed_mbps"`
	HighVarianceMBps float64 `yaml:"high_variance_mbps"`
}

type ProgressConfig struct {
	File        string `yaml:"file"`
	ExpiryHours int    `yaml:"expiry_hours"`
}

type LoggingConfig struct {
	Level string `yaml:"level"`
	File  string `yaml:"file"`
}

type ReportingConfig struct {
	Enabled bool   `yaml:"enabled"`
	Dir     string `yaml:"dir"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Wipe: WipeConfig{
			BufferSize:   "100M",
			CheckpointMB: 100,
			SkipPretest:  false,
		},
		Pretest: PretestConfig{
			ChunkSize:        "100M",
			LowSpeedMBps:     wipe.LowSpeedThresholdMBps,
			HighVarianceMBps: wipe.HighVarianceThresholdMBps,
		},
		Progress: ProgressConfig{
			File:        "wipeit_progress.json",
			ExpiryHours: 24,
		},
		Logging: LoggingConfig{
			Level: "INFO",
			File:  "",
		},
		Reporting: ReportingConfig{
			Enabled: true,
			Dir:     "./reports",
		},
	}
}

// Load reads the configuration from path, falling back to Default when
// path is empty or the file does not exist.
func Load(path string) (*Config, error) {
	if path == "" {
		return Default(), nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Default(), nil
		}
		return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
	}

	if err := Validate(cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// Validate checks the configuration for consistency.
func Validate(cfg *Config) error {
	if _, err := ParseSize(cfg.Wipe.BufferSize); err != nil {
		return fmt.Errorf("wipe.buffer_size: %w", err)
	}

	if cfg.Wipe.CheckpointMB <= 0 {
		return fmt.Errorf("wipe.checkpoint_mb must be positive, got %d", cfg.Wipe.CheckpointMB)
	}

	if _, err := ParseSize(cfg.Pretest.ChunkSize); err != nil {
		return fmt.Errorf("pretest.chunk_size: %w", err)
	}

	if cfg.Pretest.LowSpeedMBps <= 0 {
		return fmt.Errorf("pretest.low_speed_mbps must be positive, got %f", cfg.Pretest.LowSpeedMBps)
	}
	if cfg.Pretest.HighVarianceMBps <= 0 {
		return fmt.Errorf("pretest.high_variance_mbps must be positive, got %f", cfg.Pretest.HighVarianceMBps)
	}

	if cfg.Progress.File == "" {
		return fmt.Errorf("progress.file must not be empty")
	}
	if cfg.Progress.ExpiryHours <= 0 {
		return fmt.Errorf("progress.expiry_hours must be positive, got %d", cfg.Progress.ExpiryHours)
	}

	validLevels := map[string]bool{
		"DEBUG": true,
		"INFO":  true,
		"WARN":  true,
		"ERROR": true,
	}
	if !validLevels[strings.ToUpper(cfg.Logging.Level)] {
		return fmt.Errorf("invalid log level: %s", cfg.Logging.Level)
	}

	return nil
}

// BufferSizeBytes returns the parsed baseline buffer size.
func (cfg *Config) BufferSizeBytes() int64 {
	size, err := ParseSize(cfg.Wipe.BufferSize)
	if err != nil {
		return wipe.DefaultChunkSize
	}

	return size
}

// PretestChunkBytes returns the parsed pretest probe size.
func (cfg *Config) PretestChunkBytes() int64 {
	size, err := ParseSize(cfg.Pretest.ChunkSize)
	if err != nil {
		return wipe.DefaultChunkSize
	}

	return size
}

// CheckpointThreshold returns the checkpoint threshold in bytes.
func (cfg *Config) CheckpointThreshold() int64 {
	return int64(cfg.Wipe.CheckpointMB) * wipe.Megabyte
}

// ProgressExpiry returns the progress record freshness window.
func (cfg *Config) ProgressExpiry() time.Duration {
	return time.Duration(cfg.Progress.ExpiryHours) * time.Hour
}

// ParseSize parses a size string with an M, G or T suffix (e.g.
// "100M", "1G"). The result is bounded to [1M, 1T].
func ParseSize(sizeStr string) (int64, error) {
	sizeStr = strings.ToUpper(strings.TrimSpace(sizeStr))
	if sizeStr == "" {
		return 0, fmt.Errorf("empty size")
	}

	suffix := sizeStr[len(sizeStr)-1]

	var multiplier int64
	switch suffix {
	case 'M':
		multiplier = wipe.Megabyte
	case 'G':
		multiplier = wipe.Gigabyte
	case 'T':
		multiplier = wipe.Terabyte
	default:
		return 0, fmt.Errorf("size must end with M, G, or T: %s", sizeStr)
	}

	value, err := strconv.ParseFloat(sizeStr[:len(sizeStr)-1], 64)
	if err != nil {
		return 0, fmt.Errorf("invalid size format: %s", sizeStr)
	}

	size := int64(value * float64(multiplier))

	if size < wipe.Megabyte {
		return 0, fmt.Errorf("buffer size must be at least 1M")
	}
	if size > wipe.Terabyte {
		return 0, fmt.Errorf("buffer size must not exceed 1T")
	}

	return size, nil
}
