package common

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/pelletier/go-toml/v2"
)

// Config represents the application configuration
type Config struct {
	Server      ServerConfig      `toml:"server"`
	Scheduler   SchedulerConfig   `toml:"scheduler"`
	Runtime     RuntimeConfig     `toml:"runtime"`
	Storage     StorageConfig     `toml:"storage"`
	Maintenance MaintenanceConfig `toml:"maintenance"`
	Logging     LoggingConfig     `toml:"logging"`
}

type ServerConfig struct {
	Port int    `toml:"port"`
	Host string `toml:"host"`
}

// SchedulerConfig tunes the admission scheduler. All values are
// process-wide; there are no per-job overrides.
type SchedulerConfig struct {
	MaxWorkers     int    `toml:"max_workers"`      // Max concurrent RUNNING jobs globally
	MaxActiveUsers int    `toml:"max_active_users"` // Max distinct users with RUNNING jobs at once
	Interval       string `toml:"interval"`         // e.g. "500ms" - sleep between admission passes
}

// IntervalDuration parses the pass interval, falling back to the default.
func (c *SchedulerConfig) IntervalDuration() time.Duration {
	d, err := time.ParseDuration(c.Interval)
	if err != nil || d <= 0 {
		return 500 * time.Millisecond
	}
	return d
}

// RuntimeConfig tunes the tiled job runtime defaults. Per-job params may
// override tile geometry for cell segmentation jobs.
type RuntimeConfig struct {
	TileSize          int     `toml:"tile_size"`          // Default tile side in pixels
	Overlap           int     `toml:"overlap"`            // Default tile overlap in pixels
	PixelSizeUm       float64 `toml:"pixel_size_um"`      // Default microns-per-pixel hint to the analyzer
	SerializeAnalyzer bool    `toml:"serialize_analyzer"` // Gate the shared analyzer behind a mutex
}

type StorageConfig struct {
	Outputs OutputsConfig `toml:"outputs"`
	Badger  BadgerConfig  `toml:"badger"`
}

// OutputsConfig locates the per-job output directories served at /outputs/.
type OutputsConfig struct {
	Dir string `toml:"dir"`
}

// BadgerConfig represents BadgerDB-specific configuration for the terminal
// job archive.
type BadgerConfig struct {
	Path           string `toml:"path"`             // Database directory path
	ResetOnStartup bool   `toml:"reset_on_startup"` // Delete database on startup for clean test runs
}

// MaintenanceConfig drives the cron retention sweep over old outputs and
// archive records.
type MaintenanceConfig struct {
	Enabled   bool   `toml:"enabled"`
	Schedule  string `toml:"schedule"`  // Cron schedule format
	Retention string `toml:"retention"` // e.g. "168h" - how long terminal outputs are kept
}

// RetentionDuration parses the retention window, falling back to 7 days.
func (c *MaintenanceConfig) RetentionDuration() time.Duration {
	d, err := time.ParseDuration(c.Retention)
	if err != nil || d <= 0 {
		return 7 * 24 * time.Hour
	}
	return d
}

type LoggingConfig struct {
	Level      string   `toml:"level"`       // "debug", "info", "warn", "error"
	Output     []string `toml:"output"`      // "stdout", "file"
	TimeFormat string   `toml:"time_format"` // Time format for logs (default: "15:04:05.000")
}

// DefaultConfig returns the built-in defaults applied before any config
// file is read.
func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Host: "localhost",
			Port: 8080,
		},
		Scheduler: SchedulerConfig{
			MaxWorkers:     4,
			MaxActiveUsers: 3,
			Interval:       "500ms",
		},
		Runtime: RuntimeConfig{
			TileSize:    512,
			Overlap:     32,
			PixelSizeUm: 0.5,
		},
		Storage: StorageConfig{
			Outputs: OutputsConfig{Dir: "outputs"},
			Badger:  BadgerConfig{Path: "data/archive"},
		},
		Maintenance: MaintenanceConfig{
			Enabled:   true,
			Schedule:  "0 * * * *",
			Retention: "168h",
		},
		Logging: LoggingConfig{
			Level:  "info",
			Output: []string{"stdout"},
		},
	}
}

// LoadFromFiles loads configuration by layering: defaults, then each file in
// order (later files override earlier ones), then environment overrides.
func LoadFromFiles(paths ...string) (*Config, error) {
	config := DefaultConfig()

	for _, path := range paths {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
		}
		if err := toml.Unmarshal(data, config); err != nil {
			return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
		}
	}

	applyEnvOverrides(config)
	return config, nil
}

// applyEnvOverrides applies environment variable overrides (above files,
// below CLI flags).
func applyEnvOverrides(config *Config) {
	if v := os.Getenv("WFS_SERVER_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil && port > 0 {
			config.Server.Port = port
		}
	}
	if v := os.Getenv("WFS_SERVER_HOST"); v != "" {
		config.Server.Host = v
	}
	if v := os.Getenv("WFS_LOG_LEVEL"); v != "" {
		config.Logging.Level = v
	}
}

// ApplyFlagOverrides applies command-line flag overrides (highest priority).
func ApplyFlagOverrides(config *Config, port int, host string) {
	if port != 0 {
		config.Server.Port = port
	}
	if host != "" {
		config.Server.Host = host
	}
}
