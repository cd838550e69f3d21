// Package config loads the daemon's TOML configuration file into a typed
// Config, falling back to DefaultConfig for anything the file omits.
package config

import (
	"fmt"
	"os"

	"github.com/BurntSushi/toml"
)

// Config is the full daemon configuration.
type Config struct {
	Server  ServerConfig  `toml:"server"`
	Store   StoreConfig   `toml:"store"`
	Engine  EngineConfig  `toml:"engine"`
	Metrics MetricsConfig `toml:"metrics"`
}

// ServerConfig controls the HTTP API listener.
type ServerConfig struct {
	Host           string `toml:"host"`
	Port           int    `toml:"port"`
	RequestTimeout string `toml:"request_timeout"` // decoded but not read; the API applies a fixed 30s timeout
}

// StoreConfig controls where learner and catalog data is persisted.
type StoreConfig struct {
	SQLitePath string `toml:"sqlite_path"`
}

// EngineConfig holds the adaptive-assessment engine's settings. Only
// RandomSeed is read (it seeds the engine's RNG); RecentWindowDays and
// PhaseSwitchQuizAt are decoded but not passed to the engine, which uses its
// own constants for the recency window and the phase switch.
type EngineConfig struct {
	RandomSeed        int64 `toml:"random_seed"`
	RecentWindowDays  int   `toml:"recent_window_days"`
	PhaseSwitchQuizAt int   `toml:"phase_switch_quiz_at"`
}

// MetricsConfig controls the Prometheus endpoint.
type MetricsConfig struct {
	Enabled bool `toml:"enabled"`
}

// DefaultConfig returns the configuration used when no file is supplied,
// or to fill in any table a supplied file omits.
func DefaultConfig() Config {
	return Config{
		Server: ServerConfig{
			Host:           "127.0.0.1",
			Port:           8080,
			RequestTimeout: "30s",
		},
		Store: StoreConfig{
			SQLitePath: "iidp.db",
		},
		Engine: EngineConfig{
			RandomSeed:        1,
			RecentWindowDays:  30,
			PhaseSwitchQuizAt: 14,
		},
		Metrics: MetricsConfig{
			Enabled: true,
		},
	}
}

// Load reads a TOML config file at path, applying DefaultConfig first so a
// partial file only overrides the tables it sets. A missing file is not an
// error — Load returns DefaultConfig() unchanged.
func Load(path string) (Config, error) {
	cfg := DefaultConfig()
	if path == "" {
		return cfg, nil
	}
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return cfg, nil
	}
	if _, err := toml.DecodeFile(path, &cfg); err != nil {
		return Config{}, fmt.Errorf("config: decode %s: %w", path, err)
	}
	return cfg, nil
}
