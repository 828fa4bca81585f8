package common

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	assert.Equal(t, 4, cfg.Scheduler.MaxWorkers)
	assert.Equal(t, 3, cfg.Scheduler.MaxActiveUsers)
	assert.Equal(t, 500*time.Millisecond, cfg.Scheduler.IntervalDuration())
	assert.Equal(t, 512, cfg.Runtime.TileSize)
	assert.Equal(t, 32, cfg.Runtime.Overlap)
	assert.Equal(t, 0.5, cfg.Runtime.PixelSizeUm)
	assert.Equal(t, "outputs", cfg.Storage.Outputs.Dir)
	assert.Equal(t, 7*24*time.Hour, cfg.Maintenance.RetentionDuration())
}

func TestLoadFromFiles_LayersOverrides(t *testing.T) {
	dir := t.TempDir()

	base := filepath.Join(dir, "base.toml")
	require.NoError(t, os.WriteFile(base, []byte(`
[server]
port = 9000

[scheduler]
max_workers = 8
`), 0644))

	override := filepath.Join(dir, "override.toml")
	require.NoError(t, os.WriteFile(override, []byte(`
[server]
port = 9100
`), 0644))

	cfg, err := LoadFromFiles(base, override)
	require.NoError(t, err)

	// Later file wins; untouched values keep earlier layers.
	assert.Equal(t, 9100, cfg.Server.Port)
	assert.Equal(t, 8, cfg.Scheduler.MaxWorkers)
	assert.Equal(t, 3, cfg.Scheduler.MaxActiveUsers, "default preserved")
}

func TestLoadFromFiles_MissingFileFails(t *testing.T) {
	_, err := LoadFromFiles("/no/such/config.toml")
	assert.Error(t, err)
}

func TestApplyFlagOverrides(t *testing.T) {
	cfg := DefaultConfig()
	ApplyFlagOverrides(cfg, 7777, "0.0.0.0")
	assert.Equal(t, 7777, cfg.Server.Port)
	assert.Equal(t, "0.0.0.0", cfg.Server.Host)

	ApplyFlagOverrides(cfg, 0, "")
	assert.Equal(t, 7777, cfg.Server.Port, "zero values do not override")
}

func TestIntervalDuration_FallsBackOnGarbage(t *testing.T) {
	cfg := SchedulerConfig{Interval: "not-a-duration"}
	assert.Equal(t, 500*time.Millisecond, cfg.IntervalDuration())
}
