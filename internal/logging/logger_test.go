package logging

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"

	"wipeit/internal/config"
)

func TestParseLevel(t *testing.T) {
	assert.Equal(t, zapcore.DebugLevel, parseLevel("DEBUG"))
	assert.Equal(t, zapcore.DebugLevel, parseLevel("debug"))
	assert.Equal(t, zapcore.InfoLevel, parseLevel("INFO"))
	assert.Equal(t, zapcore.WarnLevel, parseLevel("WARN"))
	assert.Equal(t, zapcore.ErrorLevel, parseLevel("ERROR"))
	assert.Equal(t, zapcore.InfoLevel, parseLevel("bogus"))
}

func TestNewWritesAuditFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", "wipeit.log")

	cfg := config.Default()
	cfg.Logging.File = path

	log, err := New(cfg, false)
	require.NoError(t, err)

	log.Infow("audit entry", "device", "/dev/sdb")
	log.Sync() //nolint:errcheck

	data, err := os.ReadFile(path)
	require.NoError(t, err)

	assert.True(t, strings.Contains(string(data), "audit entry"))
	assert.True(t, strings.Contains(string(data), "/dev/sdb"))
}
