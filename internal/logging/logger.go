// Package logging builds the application logger: console output
// always, plus an optional JSON audit file.
package logging

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"wipeit/internal/config"
)

// New constructs the logger from configuration. With verbose set, the
// console shows every enabled level; otherwise only warnings and
// errors reach the terminal so progress output stays readable.
func New(cfg *config.Config, verbose bool) (*zap.SugaredLogger, error) {
	level := parseLevel(cfg.Logging.Level)

	consoleLevel := zapcore.WarnLevel
	if verbose {
		consoleLevel = level
	}

	encoderCfg := zap.NewProductionEncoderConfig()
	encoderCfg.EncodeTime = zapcore.ISO8601TimeEncoder

	consoleEncoderCfg := encoderCfg
	consoleEncoderCfg.EncodeLevel = zapcore.CapitalLevelEncoder

	cores := []zapcore.Core{
		zapcore.NewCore(
			zapcore.NewConsoleEncoder(consoleEncoderCfg),
			zapcore.Lock(os.Stderr),
			consoleLevel,
		),
	}

	if cfg.Logging.File != "" {
		logDir := filepath.Dir(cfg.Logging.File)
		if err := os.MkdirAll(logDir, 0o755); err != nil {
			return nil, fmt.Errorf("cannot create log directory %s: %w", logDir, err)
		}

		f, err := os.OpenFile(cfg.Logging.File, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
		if err != nil {
			return nil, fmt.Errorf("cannot open log file %s: %w", cfg.Logging.File, err)
		}

		cores = append(cores, zapcore.NewCore(
			zapcore.NewJSONEncoder(encoderCfg),
			zapcore.Lock(f),
			level,
		))
	}

	return zap.New(zapcore.NewTee(cores...)).Sugar(), nil
}

func parseLevel(level string) zapcore.Level {
	switch strings.ToUpper(level) {
	case "DEBUG":
		return zapcore.DebugLevel
	case "WARN":
		return zapcore.WarnLevel
	case "ERROR":
		return zapcore.ErrorLevel
	default:
		return zapcore.InfoLevel
	}
}
