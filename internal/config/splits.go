package config

import (
	"encoding/json"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"time"

	"github.com/jagreenwood/healthkit-workout-splits/internal/units"
)

// minTargetMeters is the smallest split distance, in meters, the
// configuration accepts. It mirrors workout.MinTargetMeters.
const minTargetMeters = 1.0

// DefaultConfigPath is the path to the canonical split defaults file.
const DefaultConfigPath = "config/splits.defaults.json"

// SplitConfig is the root configuration for split computation and the
// services around it. The schema matches the /api/config endpoint.
// Unset fields fall back to the Get* defaults.
type SplitConfig struct {
	// Split params
	SplitDistance     *float64 `json:"split_distance,omitempty"`
	SplitUnit         *string  `json:"split_unit,omitempty"` // m, km or mi
	ExcludePausedTime *bool    `json:"exclude_paused_time,omitempty"`

	// Display params
	DisplayUnits *string `json:"display_units,omitempty"` // mps, mph, kmph, kph
	Timezone     *string `json:"timezone,omitempty"`

	// Service params
	DBPath           *string `json:"db_path,omitempty"`
	Listen           *string `json:"listen,omitempty"`
	BatchWorkers     *int    `json:"batch_workers,omitempty"`
	BackfillInterval *string `json:"backfill_interval,omitempty"` // duration string like "15m"
}

func ptrFloat64(v float64) *float64 { return &v }
func ptrBool(v bool) *bool          { return &v }
func ptrString(v string) *string    { return &v }
func ptrInt(v int) *int             { return &v }

// DefaultSplitConfig returns a config with every field set to its default:
// one-mile splits excluding paused time, displayed in mph.
func DefaultSplitConfig() *SplitConfig {
	return &SplitConfig{
		SplitDistance:     ptrFloat64(1),
		SplitUnit:         ptrString(units.Mile),
		ExcludePausedTime: ptrBool(true),
		DisplayUnits:      ptrString(units.MPH),
		Timezone:          ptrString("UTC"),
		DBPath:            ptrString("splits.db"),
		Listen:            ptrString(":8080"),
		BatchWorkers:      ptrInt(4),
		BackfillInterval:  ptrString("15m"),
	}
}

// LoadSplitConfig loads a SplitConfig from a JSON file.
// The file must have a .json extension and be under 1MB. Fields omitted
// from the file keep their Get* defaults, so partial configs are safe.
func LoadSplitConfig(path string) (*SplitConfig, error) {
	cleanPath := filepath.Clean(path)
	if ext := filepath.Ext(cleanPath); ext != ".json" {
		return nil, fmt.Errorf("config file must have .json extension, got %q", ext)
	}

	fileInfo, err := os.Stat(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to stat config file: %w", err)
	}
	const maxFileSize = 1 * 1024 * 1024
	if fileInfo.Size() > maxFileSize {
		return nil, fmt.Errorf("config file too large: %d bytes (max %d)", fileInfo.Size(), maxFileSize)
	}

	data, err := os.ReadFile(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := &SplitConfig{}
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config JSON: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// Validate checks that the configuration values are valid. The split
// target is rejected here, before any aggregation runs.
func (c *SplitConfig) Validate() error {
	if c.SplitDistance != nil {
		d := *c.SplitDistance
		if math.IsNaN(d) || math.IsInf(d, 0) || d <= 0 {
			return fmt.Errorf("split_distance must be positive, got %v", d)
		}
	}
	if c.SplitUnit != nil && !units.IsValidDistanceUnit(*c.SplitUnit) {
		return fmt.Errorf("invalid split_unit %q (valid: m, km, mi)", *c.SplitUnit)
	}
	if m, err := c.TargetMeters(); err != nil {
		return err
	} else if m < minTargetMeters {
		return fmt.Errorf("split_distance must be at least %vm, got %vm", minTargetMeters, m)
	}
	if c.DisplayUnits != nil && !units.IsValid(*c.DisplayUnits) {
		return fmt.Errorf("invalid display_units %q (valid: %s)", *c.DisplayUnits, units.GetValidUnitsString())
	}
	if c.Timezone != nil && *c.Timezone != "" && !units.IsTimezoneValid(*c.Timezone) {
		return fmt.Errorf("invalid timezone %q", *c.Timezone)
	}
	if c.BatchWorkers != nil && *c.BatchWorkers < 1 {
		return fmt.Errorf("batch_workers must be at least 1, got %d", *c.BatchWorkers)
	}
	if c.BackfillInterval != nil && *c.BackfillInterval != "" {
		d, err := time.ParseDuration(*c.BackfillInterval)
		if err != nil {
			return fmt.Errorf("invalid backfill_interval '%s': %w", *c.BackfillInterval, err)
		}
		if d < 0 {
			return fmt.Errorf("backfill_interval must be non-negative, got %s", d)
		}
	}
	return nil
}

// GetSplitDistance returns the split_distance value or the default.
func (c *SplitConfig) GetSplitDistance() float64 {
	if c.SplitDistance == nil {
		return 1
	}
	return *c.SplitDistance
}

// GetSplitUnit returns the split_unit value or the default.
func (c *SplitConfig) GetSplitUnit() string {
	if c.SplitUnit == nil || *c.SplitUnit == "" {
		return units.Mile
	}
	return *c.SplitUnit
}

// TargetMeters converts the configured split distance into meters.
func (c *SplitConfig) TargetMeters() (float64, error) {
	return units.ToMeters(c.GetSplitDistance(), c.GetSplitUnit())
}

// GetExcludePausedTime returns the exclude_paused_time value or the default.
func (c *SplitConfig) GetExcludePausedTime() bool {
	if c.ExcludePausedTime == nil {
		return true
	}
	return *c.ExcludePausedTime
}

// GetDisplayUnits returns the display_units value or the default.
func (c *SplitConfig) GetDisplayUnits() string {
	if c.DisplayUnits == nil || *c.DisplayUnits == "" {
		return units.MPH
	}
	return *c.DisplayUnits
}

// GetTimezone returns the timezone value or the default.
func (c *SplitConfig) GetTimezone() string {
	if c.Timezone == nil || *c.Timezone == "" {
		return "UTC"
	}
	return *c.Timezone
}

// GetDBPath returns the db_path value or the default.
func (c *SplitConfig) GetDBPath() string {
	if c.DBPath == nil || *c.DBPath == "" {
		return "splits.db"
	}
	return *c.DBPath
}

// GetListen returns the listen value or the default.
func (c *SplitConfig) GetListen() string {
	if c.Listen == nil || *c.Listen == "" {
		return ":8080"
	}
	return *c.Listen
}

// GetBatchWorkers returns the batch_workers value or the default.
func (c *SplitConfig) GetBatchWorkers() int {
	if c.BatchWorkers == nil {
		return 4
	}
	return *c.BatchWorkers
}

// GetBackfillInterval parses and returns the BackfillInterval. Zero
// disables the backfill loop.
func (c *SplitConfig) GetBackfillInterval() time.Duration {
	if c.BackfillInterval == nil || *c.BackfillInterval == "" {
		return 15 * time.Minute
	}
	d, err := time.ParseDuration(*c.BackfillInterval)
	if err != nil {
		return 15 * time.Minute
	}
	return d
}

// Resolved returns a copy with every field set to its effective value.
func (c *SplitConfig) Resolved() *SplitConfig {
	interval := c.GetBackfillInterval().String()
	return &SplitConfig{
		SplitDistance:     ptrFloat64(c.GetSplitDistance()),
		SplitUnit:         ptrString(c.GetSplitUnit()),
		ExcludePausedTime: ptrBool(c.GetExcludePausedTime()),
		DisplayUnits:      ptrString(c.GetDisplayUnits()),
		Timezone:          ptrString(c.GetTimezone()),
		DBPath:            ptrString(c.GetDBPath()),
		Listen:            ptrString(c.GetListen()),
		BatchWorkers:      ptrInt(c.GetBatchWorkers()),
		BackfillInterval:  &interval,
	}
}
