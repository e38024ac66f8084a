package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/specvital/codedoc/internal/domain/docgen"
)

// Validate reports every problem at once, joined.
func Validate(cfg *Config) error {
	var errs []error

	seen := make(map[string]bool, len(cfg.Models))
	for i, m := range cfg.Models {
		name := strings.TrimSpace(m.Name)
		switch {
		case name == "":
			errs = append(errs, fmt.Errorf("models[%d]: name is required", i))
		case seen[name]:
			errs = append(errs, fmt.Errorf("models[%d]: duplicate model name %q", i, name))
		}
		seen[name] = true

		if m.Timeout < 0 {
			errs = append(errs, fmt.Errorf("models[%d]: timeout must be positive", i))
		}
		if m.MaxTokens < 0 {
			errs = append(errs, fmt.Errorf("models[%d]: max_tokens must be positive", i))
		}
		if m.Temperature != nil && (*m.Temperature < 0 || *m.Temperature > 2) {
			errs = append(errs, fmt.Errorf("models[%d]: temperature must be within [0, 2]", i))
		}
	}

	g := cfg.Generation
	if g.MaxConcurrentCalls < 0 {
		errs = append(errs, errors.New("generation.max_concurrent_calls must be positive"))
	}
	if g.ClusterConcurrency < 0 {
		errs = append(errs, errors.New("generation.cluster_concurrency must be positive"))
	}
	if g.RunTimeout < 0 {
		errs = append(errs, errors.New("generation.run_timeout must not be negative"))
	}
	if g.RateLimit.RequestsPerSecond < 0 {
		errs = append(errs, errors.New("generation.rate_limit.requests_per_second must not be negative"))
	}
	for key, n := range g.MaxModelsPerPurpose {
		if _, ok := purposeKeys[key]; !ok {
			errs = append(errs, fmt.Errorf("generation.max_models_per_purpose: unknown purpose %q", key))
		}
		if n < 0 {
			errs = append(errs, fmt.Errorf("generation.max_models_per_purpose.%s must not be negative", key))
		}
	}

	if strings.TrimSpace(cfg.Output.Dir) == "" {
		errs = append(errs, errors.New("output.dir is required"))
	}

	switch cfg.Logging.Format {
	case "json", "text":
	default:
		errs = append(errs, fmt.Errorf("logging.format must be json or text, got %q", cfg.Logging.Format))
	}
	switch cfg.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		errs = append(errs, fmt.Errorf("logging.level must be debug, info, warn or error, got %q", cfg.Logging.Level))
	}

	if len(errs) > 0 {
		return fmt.Errorf("%w: %w", docgen.ErrConfiguration, errors.Join(errs...))
	}
	return nil
}
