package cdpconfig_test

import (
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Sumatoshi-tech/cascadedp/pkg/cdpconfig"
)

func TestLoadDefaults(t *testing.T) {
	t.Parallel()

	cfg, err := cdpconfig.Load("")
	require.NoError(t, err)

	assert.Equal(t, 100*time.Millisecond, cfg.System.StepInterval)
	assert.Equal(t, 64, cfg.System.MaxDepth)
	assert.Equal(t, "info", cfg.Logging.Level)
	assert.Equal(t, "json", cfg.Logging.Format)
	assert.False(t, cfg.Checkpoint.Enabled)
	assert.False(t, cfg.MCP.Enabled)
}

func TestLoadFromFile(t *testing.T) {
	t.Parallel()

	content := `
system:
  step_interval: 250ms
  max_depth: 16

logging:
  level: debug
  format: text

checkpoint:
  enabled: true
  dir: /tmp/cascadedp-checkpoints
  compression_threshold: 500

mcp:
  enabled: true
  addr: "localhost:7777"
`

	tmpFile := writeTempConfig(t, content)

	cfg, err := cdpconfig.Load(tmpFile)
	require.NoError(t, err)

	assert.Equal(t, 250*time.Millisecond, cfg.System.StepInterval)
	assert.Equal(t, 16, cfg.System.MaxDepth)
	assert.Equal(t, "debug", cfg.Logging.Level)
	assert.Equal(t, "text", cfg.Logging.Format)
	assert.True(t, cfg.Checkpoint.Enabled)
	assert.Equal(t, 500, cfg.Checkpoint.CompressionThreshold)
	assert.Equal(t, "localhost:7777", cfg.MCP.Addr)
}

func TestLoadRejectsBadLogLevel(t *testing.T) {
	t.Parallel()

	tmpFile := writeTempConfig(t, "logging:\n  level: loud\n")

	_, err := cdpconfig.Load(tmpFile)
	require.Error(t, err)
	assert.ErrorIs(t, err, cdpconfig.ErrSchemaValidation)
}

func TestLoadRejectsZeroStepInterval(t *testing.T) {
	t.Parallel()

	tmpFile := writeTempConfig(t, "system:\n  step_interval: 0s\n  max_depth: 8\n")

	_, err := cdpconfig.Load(tmpFile)
	require.Error(t, err)
	assert.ErrorIs(t, err, cdpconfig.ErrInvalidStepInterval)
}

func TestLoadRejectsEnabledCheckpointWithoutDir(t *testing.T) {
	t.Parallel()

	tmpFile := writeTempConfig(t, "checkpoint:\n  enabled: true\n  dir: \"\"\n")

	_, err := cdpconfig.Load(tmpFile)
	require.Error(t, err)
	assert.ErrorIs(t, err, cdpconfig.ErrInvalidCheckpointDir)
}

func TestDumpRoundTrip(t *testing.T) {
	t.Parallel()

	cfg, err := cdpconfig.Load("")
	require.NoError(t, err)

	text, err := cdpconfig.Dump(cfg)
	require.NoError(t, err)
	assert.Contains(t, text, "step_interval")
	assert.Contains(t, text, "100ms")
}

func writeTempConfig(t *testing.T, content string) string {
	t.Helper()

	tmpDir := t.TempDir()

	tmpFile, err := os.CreateTemp(tmpDir, "cascadedp-*.yaml")
	require.NoError(t, err)

	_, err = tmpFile.WriteString(content)
	require.NoError(t, err)
	require.NoError(t, tmpFile.Close())

	return tmpFile.Name()
}
