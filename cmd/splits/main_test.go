package main

import (
	"flag"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func parseFlags(t *testing.T, args ...string) *flag.FlagSet {
	t.Helper()
	fs := flag.NewFlagSet("splits", flag.ContinueOnError)
	defineFlags(fs)
	require.NoError(t, fs.Parse(args))
	return fs
}

func TestLoadConfig_Defaults(t *testing.T) {
	cfg, err := loadConfig(parseFlags(t))
	require.NoError(t, err)
	assert.Equal(t, "mi", cfg.GetSplitUnit())
	assert.True(t, cfg.GetExcludePausedTime())
	assert.Equal(t, 4, cfg.GetBatchWorkers())
}

func TestLoadConfig_FileThenFlags(t *testing.T) {
	path := filepath.Join(t.TempDir(), "splits.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"split_distance": 5, "split_unit": "km", "display_units": "kph"}`), 0o644))

	fs := parseFlags(t, "-config", path, "-distance", "2", "-exclude-paused=false", "-db", "other.db", "-workers", "8")
	cfg, err := loadConfig(fs)
	require.NoError(t, err)
	assert.Equal(t, 2.0, cfg.GetSplitDistance())
	assert.Equal(t, "km", cfg.GetSplitUnit())
	assert.Equal(t, "kph", cfg.GetDisplayUnits())
	assert.False(t, cfg.GetExcludePausedTime())
	assert.Equal(t, "other.db", cfg.GetDBPath())
	assert.Equal(t, 8, cfg.GetBatchWorkers())

	opts := splitOptions(cfg)
	assert.Equal(t, 2000.0, opts.TargetMeters)
	assert.False(t, opts.ExcludePausedTime)
}

func TestLoadConfig_Invalid(t *testing.T) {
	_, err := loadConfig(parseFlags(t, "-unit", "furlong"))
	assert.Error(t, err)

	_, err = loadConfig(parseFlags(t, "-distance", "-1"))
	assert.Error(t, err)

	_, err = loadConfig(parseFlags(t, "-distance", "1e-7", "-unit", "m"))
	assert.Error(t, err)

	_, err = loadConfig(parseFlags(t, "-config", filepath.Join(t.TempDir(), "missing.json")))
	assert.Error(t, err)
}

func TestLocalTime(t *testing.T) {
	ts := time.Date(2025, 5, 3, 7, 0, 0, 0, time.UTC)
	assert.Equal(t, "2025-05-03 07:00", localTime(ts, "UTC"))
	assert.Equal(t, "2025-05-03 00:00", localTime(ts, "America/Los_Angeles"))
	assert.Equal(t, "2025-05-03 07:00", localTime(ts, "Not/AZone"))
}
