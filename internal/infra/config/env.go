package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// applyEnvOverrides applies CODEDOC_* variables over file values. DATABASE_URL is
// honoured as a fallback for the database URL.
func applyEnvOverrides(cfg *Config) {
	if val := os.Getenv("CODEDOC_OUTPUT_DIR"); val != "" {
		cfg.Output.Dir = val
	}

	if val := getEnvFirst("CODEDOC_DATABASE_URL", "DATABASE_URL"); val != "" {
		cfg.Database.URL = val
	}

	cfg.Generation.MaxConcurrentCalls = getEnvInt("CODEDOC_MAX_CONCURRENT_CALLS", cfg.Generation.MaxConcurrentCalls)
	cfg.Generation.ClusterConcurrency = getEnvInt("CODEDOC_CLUSTER_CONCURRENCY", cfg.Generation.ClusterConcurrency)
	cfg.Generation.RunTimeout = getEnvDuration("CODEDOC_RUN_TIMEOUT", cfg.Generation.RunTimeout)
	cfg.Generation.IncludeUnitTests = getEnvBool("CODEDOC_INCLUDE_UNIT_TESTS", cfg.Generation.IncludeUnitTests)
	cfg.Generation.IncludeFieldExamples = getEnvBool("CODEDOC_INCLUDE_FIELD_EXAMPLES", cfg.Generation.IncludeFieldExamples)
	if val := os.Getenv("CODEDOC_RATE_LIMIT_RPS"); val != "" {
		if rps, err := strconv.ParseFloat(val, 64); err == nil && rps >= 0 {
			cfg.Generation.RateLimit.RequestsPerSecond = rps
			if rps > 0 && cfg.Generation.RateLimit.Burst == 0 {
				cfg.Generation.RateLimit.Burst = 1
			}
		}
	}

	cfg.MockMode = getEnvBool("CODEDOC_MOCK_MODE", cfg.MockMode)

	if val := os.Getenv("CODEDOC_LOG_LEVEL"); val != "" {
		cfg.Logging.Level = strings.ToLower(val)
	}
	if val := os.Getenv("CODEDOC_LOG_FORMAT"); val != "" {
		cfg.Logging.Format = strings.ToLower(val)
	}

	if val := os.Getenv("CODEDOC_METRICS_ADDRESS"); val != "" {
		cfg.Metrics.ListenAddress = val
	}
	if val := os.Getenv("CODEDOC_METRICS_TEXTFILE"); val != "" {
		cfg.Metrics.Textfile = val
	}
}

func getEnvFirst(keys ...string) string {
	for _, k := range keys {
		if val := os.Getenv(k); val != "" {
			return val
		}
	}
	return ""
}

// getEnvInt returns the positive integer value of key, or defaultValue.
func getEnvInt(key string, defaultValue int) int {
	val := os.Getenv(key)
	if val == "" {
		return defaultValue
	}
	n, err := strconv.Atoi(val)
	if err != nil || n <= 0 {
		return defaultValue
	}
	return n
}

// getEnvDuration returns the positive duration value of key, or defaultValue.
func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	val := os.Getenv(key)
	if val == "" {
		return defaultValue
	}
	d, err := time.ParseDuration(val)
	if err != nil || d <= 0 {
		return defaultValue
	}
	return d
}

func getEnvBool(key string, defaultValue bool) bool {
	val := os.Getenv(key)
	if val == "" {
		return defaultValue
	}
	b, err := strconv.ParseBool(val)
	if err != nil {
		return defaultValue
	}
	return b
}
