package config

import "time"

const (
	DefaultModelTimeout     = 60 * time.Second
	DefaultModelMaxTokens   = 1024
	DefaultModelTemperature = 0.2

	DefaultMaxConcurrentCalls = 8
	DefaultClusterConcurrency = 4

	DefaultOutputDir = "docs/generated"

	DefaultLogLevel  = "info"
	DefaultLogFormat = "json"

	DefaultMetricsNamespace = "codedoc"
)

// ApplyDefaults fills zero values. Values explicitly set in the file are kept.
func ApplyDefaults(cfg *Config) {
	for i := range cfg.Models {
		m := &cfg.Models[i]
		if m.Timeout == 0 {
			m.Timeout = DefaultModelTimeout
		}
		if m.MaxTokens == 0 {
			m.MaxTokens = DefaultModelMaxTokens
		}
		if m.Temperature == nil {
			t := DefaultModelTemperature
			m.Temperature = &t
		}
	}

	if cfg.Generation.MaxConcurrentCalls == 0 {
		cfg.Generation.MaxConcurrentCalls = DefaultMaxConcurrentCalls
	}
	if cfg.Generation.ClusterConcurrency == 0 {
		cfg.Generation.ClusterConcurrency = DefaultClusterConcurrency
	}
	if cfg.Generation.RateLimit.RequestsPerSecond > 0 && cfg.Generation.RateLimit.Burst == 0 {
		cfg.Generation.RateLimit.Burst = 1
	}

	if cfg.Output.Dir == "" {
		cfg.Output.Dir = DefaultOutputDir
	}
	if cfg.Logging.Level == "" {
		cfg.Logging.Level = DefaultLogLevel
	}
	if cfg.Logging.Format == "" {
		cfg.Logging.Format = DefaultLogFormat
	}
	if cfg.Metrics.Namespace == "" {
		cfg.Metrics.Namespace = DefaultMetricsNamespace
	}
}
