package config

import (
	"fmt"
	"time"

	"github.com/gobwas/glob"
)

var logLevels = map[string]bool{"debug": true, "info": true, "warn": true, "error": true}

func validate(cfg *Config) error {
	if cfg.Version != 1 {
		return fmt.Errorf("unsupported config version %d", cfg.Version)
	}
	if cfg.Watch.Debounce < 10*time.Millisecond || cfg.Watch.Debounce > 30*time.Second {
		return fmt.Errorf("watch.debounce %s outside 10ms..30s", cfg.Watch.Debounce)
	}
	for _, pattern := range append(append([]string(nil), cfg.Exclude.Dirs...), cfg.Exclude.Files...) {
		if _, err := glob.Compile(pattern); err != nil {
			return fmt.Errorf("bad exclude pattern %q: %w", pattern, err)
		}
	}
	if cfg.Extraction.Workers < 0 {
		return fmt.Errorf("extraction.workers must not be negative")
	}
	if !logLevels[cfg.Logging.Level] {
		return fmt.Errorf("unknown logging.level %q", cfg.Logging.Level)
	}
	return nil
}
