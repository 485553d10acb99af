package config

import (
	"os"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
)

type Config struct {
	Version     int        `toml:"version"`
	ProjectRoot string     `toml:"project_root"`
	WatchPaths  []string   `toml:"watch_paths"`
	Exclude     Exclude    `toml:"exclude"`
	Watch       Watch      `toml:"watch"`
	Extraction  Extraction `toml:"extraction"`
	Query       Query      `toml:"query"`
	Entries     Entries    `toml:"entries"`
	Metrics     Metrics    `toml:"metrics"`
	Logging     Logging    `toml:"logging"`
}

type Exclude struct {
	Dirs  []string `toml:"dirs"`
	Files []string `toml:"files"`
}

type Watch struct {
	Debounce time.Duration `toml:"debounce"`
}

type Extraction struct {
	// RatePerSecond caps how many files per second are re-extracted during
	// change bursts; Burst allows short spikes above it.
	RatePerSecond float64 `toml:"rate_per_second"`
	Burst         int     `toml:"burst"`
	Workers       int     `toml:"workers"`
	CacheSize     int     `toml:"cache_size"`
}

type Query struct {
	MaxHops        int `toml:"max_hops"`
	MaxResults     int `toml:"max_results"`
	MaxCycleLength int `toml:"max_cycle_length"`
}

// Entries configures the dead-code entry set: externally invoked function
// names plus entry scenes and autoload scripts (project-relative paths).
type Entries struct {
	Names []string `toml:"names"`
	Files []string `toml:"files"`
}

type Metrics struct {
	Enabled bool   `toml:"enabled"`
	Address string `toml:"address"`
}

type Logging struct {
	Level string `toml:"level"`
}

func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var cfg Config
	if _, err := toml.Decode(string(data), &cfg); err != nil {
		return nil, err
	}

	applyDefaults(&cfg)
	ApplyEnvOverrides(&cfg)

	if err := validate(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Default returns a ready configuration for running without a config file.
func Default() *Config {
	cfg := &Config{}
	applyDefaults(cfg)
	return cfg
}

func applyDefaults(cfg *Config) {
	if cfg.Version == 0 {
		cfg.Version = 1
	}
	if strings.TrimSpace(cfg.ProjectRoot) == "" {
		cfg.ProjectRoot = "."
	}
	if len(cfg.WatchPaths) == 0 {
		cfg.WatchPaths = []string{"."}
	}
	if len(cfg.Exclude.Dirs) == 0 {
		cfg.Exclude.Dirs = []string{".git", ".godot", ".import", "node_modules"}
	}
	if cfg.Watch.Debounce == 0 {
		cfg.Watch.Debounce = 500 * time.Millisecond
	}
	if cfg.Extraction.RatePerSecond <= 0 {
		cfg.Extraction.RatePerSecond = 200
	}
	if cfg.Extraction.Burst <= 0 {
		cfg.Extraction.Burst = 50
	}
	if cfg.Extraction.CacheSize <= 0 {
		cfg.Extraction.CacheSize = 4096
	}
	if cfg.Query.MaxHops <= 0 {
		cfg.Query.MaxHops = 10
	}
	if cfg.Query.MaxResults <= 0 {
		cfg.Query.MaxResults = 1000
	}
	if cfg.Query.MaxCycleLength <= 0 {
		cfg.Query.MaxCycleLength = 12
	}
	if strings.TrimSpace(cfg.Metrics.Address) == "" {
		cfg.Metrics.Address = "127.0.0.1:9620"
	}
	if strings.TrimSpace(cfg.Logging.Level) == "" {
		cfg.Logging.Level = "info"
	}
}
