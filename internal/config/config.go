// Package config loads and saves the quitc TOML configuration.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/BurntSushi/toml"

	"github.com/theirongolddev/quitc/internal/stats"
)

// Config holds all quitc configuration.
type Config struct {
	General    GeneralConfig    `toml:"general"`
	Stats      StatsConfig      `toml:"stats"`
	Reminder   ReminderConfig   `toml:"reminder"`
	Daemon     DaemonConfig     `toml:"daemon"`
	Appearance AppearanceConfig `toml:"appearance"`
}

// GeneralConfig holds storage and calendar preferences.
type GeneralConfig struct {
	DataDir  string `toml:"data_dir,omitempty"`
	Backend  string `toml:"backend"`
	Timezone string `toml:"timezone,omitempty"`
}

// StatsConfig selects the statistics policy.
type StatsConfig struct {
	HeartCountsAsSuccess bool `toml:"heart_counts_as_success"`
}

// ReminderConfig controls the daemon's daily "log today" reminder.
type ReminderConfig struct {
	Enabled bool   `toml:"enabled"`
	At      string `toml:"at"` // HH:MM, local to General.Timezone
}

// DaemonConfig holds the background service settings.
type DaemonConfig struct {
	Addr         string `toml:"addr"`
	EventsBuffer int    `toml:"events_buffer"`
}

// AppearanceConfig holds theme settings.
type AppearanceConfig struct {
	Theme string `toml:"theme"`
}

// DefaultConfig returns the default configuration.
func DefaultConfig() Config {
	return Config{
		General: GeneralConfig{
			Backend: "sqlite",
		},
		Reminder: ReminderConfig{
			Enabled: true,
			At:      "20:00",
		},
		Daemon: DaemonConfig{
			Addr:         "127.0.0.1:8789",
			EventsBuffer: 200,
		},
		Appearance: AppearanceConfig{
			Theme: "flexoki-dark",
		},
	}
}

// Dir returns the XDG-compliant config directory.
func Dir() string {
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, "quitc")
	}
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".config", "quitc")
}

// Path returns the full path to the config file.
func Path() string {
	return filepath.Join(Dir(), "config.toml")
}

// Load reads the config file, returning defaults if it doesn't exist.
func Load() (Config, error) {
	return LoadFrom(Path())
}

// LoadFrom reads the config at path, returning defaults if it doesn't exist.
func LoadFrom(path string) (Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path) //nolint:gosec // config path is chosen by the local user
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return cfg, fmt.Errorf("reading config: %w", err)
	}

	if err := toml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parsing config: %w", err)
	}

	return cfg, nil
}

// Save writes the config to the default path.
func Save(cfg Config) error {
	return SaveTo(cfg, Path())
}

// SaveTo writes the config to path.
func SaveTo(cfg Config, path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("creating config dir: %w", err)
	}

	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o600) //nolint:gosec // config path is chosen by the local user
	if err != nil {
		return fmt.Errorf("creating config file: %w", err)
	}
	defer f.Close()

	enc := toml.NewEncoder(f)
	return enc.Encode(cfg)
}

// Exists returns true if a config file exists on disk.
func Exists() bool {
	_, err := os.Stat(Path())
	return err == nil
}

// DataDir returns the data directory from QUITC_DATA_DIR or config, in that order.
func DataDir(cfg Config) string {
	if dir := strings.TrimSpace(os.Getenv("QUITC_DATA_DIR")); dir != "" {
		return expandHome(dir)
	}
	return expandHome(cfg.General.DataDir)
}

// Policy returns the statistics policy selected by cfg.
func (c Config) Policy() stats.Policy {
	return stats.Policy{HeartCountsAsSuccess: c.Stats.HeartCountsAsSuccess}
}

// Location resolves General.Timezone, falling back to time.Local.
func (c Config) Location() (*time.Location, error) {
	if c.General.Timezone == "" {
		return time.Local, nil
	}
	loc, err := time.LoadLocation(c.General.Timezone)
	if err != nil {
		return time.Local, fmt.Errorf("timezone %q: %w", c.General.Timezone, err)
	}
	return loc, nil
}

// ReminderTime parses Reminder.At into hour and minute.
func (c Config) ReminderTime() (hour, minute int, err error) {
	t, err := time.Parse("15:04", strings.TrimSpace(c.Reminder.At))
	if err != nil {
		return 0, 0, fmt.Errorf("reminder time %q: expected HH:MM", c.Reminder.At)
	}
	return t.Hour(), t.Minute(), nil
}

func expandHome(p string) string {
	if strings.HasPrefix(p, "~") {
		if home, err := os.UserHomeDir(); err == nil {
			return filepath.Join(home, strings.TrimPrefix(p, "~"))
		}
	}
	return p
}
