package config

import (
	"log"
	"os"
	"strconv"
	"time"
)

// ApplyEnvOverrides applies environment variable overrides to the
// configuration. Pattern: REACHGRAPH_[SECTION]_[KEY].
func ApplyEnvOverrides(cfg *Config) {
	setEnvString(&cfg.ProjectRoot, "REACHGRAPH_PROJECT_ROOT")
	setEnvDuration(&cfg.Watch.Debounce, "REACHGRAPH_WATCH_DEBOUNCE")
	setEnvFloat64(&cfg.Extraction.RatePerSecond, "REACHGRAPH_EXTRACTION_RATE_PER_SECOND")
	setEnvInt(&cfg.Extraction.Workers, "REACHGRAPH_EXTRACTION_WORKERS")
	setEnvInt(&cfg.Extraction.CacheSize, "REACHGRAPH_EXTRACTION_CACHE_SIZE")
	setEnvInt(&cfg.Query.MaxHops, "REACHGRAPH_QUERY_MAX_HOPS")
	setEnvInt(&cfg.Query.MaxResults, "REACHGRAPH_QUERY_MAX_RESULTS")
	setEnvBool(&cfg.Metrics.Enabled, "REACHGRAPH_METRICS_ENABLED")
	setEnvString(&cfg.Metrics.Address, "REACHGRAPH_METRICS_ADDRESS")
	setEnvString(&cfg.Logging.Level, "REACHGRAPH_LOGGING_LEVEL")
}

func setEnvString(target *string, key string) {
	if val, ok := os.LookupEnv(key); ok {
		log.Printf("Applying env override: %s=%s", key, val)
		*target = val
	}
}

func setEnvInt(target *int, key string) {
	if val, ok := os.LookupEnv(key); ok {
		if i, err := strconv.Atoi(val); err == nil {
			log.Printf("Applying env override: %s=%s", key, val)
			*target = i
		}
	}
}

func setEnvBool(target *bool, key string) {
	if val, ok := os.LookupEnv(key); ok {
		if b, err := strconv.ParseBool(val); err == nil {
			log.Printf("Applying env override: %s=%s", key, val)
			*target = b
		}
	}
}

func setEnvFloat64(target *float64, key string) {
	if val, ok := os.LookupEnv(key); ok {
		if f, err := strconv.ParseFloat(val, 64); err == nil {
			log.Printf("Applying env override: %s=%s", key, val)
			*target = f
		}
	}
}

func setEnvDuration(target *time.Duration, key string) {
	if val, ok := os.LookupEnv(key); ok {
		if d, err := time.ParseDuration(val); err == nil {
			log.Printf("Applying env override: %s=%s", key, val)
			*target = d
		}
	}
}
