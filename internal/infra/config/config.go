package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/specvital/codedoc/internal/domain/docgen"
)

type Config struct {
	Database   DatabaseConfig   `yaml:"database"`
	Generation GenerationConfig `yaml:"generation"`
	Logging    LoggingConfig    `yaml:"logging"`
	Metrics    MetricsConfig    `yaml:"metrics"`
	MockMode   bool             `yaml:"mock_mode"`
	Models     []ModelConfig    `yaml:"models"`
	Output     OutputConfig     `yaml:"output"`
}

type ModelConfig struct {
	APIKey      string        `yaml:"api_key"`
	Endpoint    string        `yaml:"endpoint"`
	MaxTokens   int           `yaml:"max_tokens"`
	Name        string        `yaml:"name"`
	Provider    string        `yaml:"provider"`
	Temperature *float64      `yaml:"temperature"`
	Timeout     time.Duration `yaml:"timeout"`
}

type GenerationConfig struct {
	ClusterConcurrency   int            `yaml:"cluster_concurrency"`
	IncludeFieldExamples bool           `yaml:"include_field_examples"`
	IncludeUnitTests     bool           `yaml:"include_unit_tests"`
	MaxConcurrentCalls   int            `yaml:"max_concurrent_calls"`
	MaxModelsPerPurpose  map[string]int `yaml:"max_models_per_purpose"` // documentation, usage_examples, unit_tests
	RateLimit            RateLimit      `yaml:"rate_limit"`
	RunTimeout           time.Duration  `yaml:"run_timeout"`
}

// RateLimit throttles outbound model calls. Zero RequestsPerSecond disables it.
type RateLimit struct {
	Burst             int     `yaml:"burst"`
	RequestsPerSecond float64 `yaml:"requests_per_second"`
}

type DatabaseConfig struct {
	URL string `yaml:"url"` // empty disables the document cache
}

type LoggingConfig struct {
	Format string `yaml:"format"` // json or text
	Level  string `yaml:"level"`
}

type MetricsConfig struct {
	ListenAddress string `yaml:"listen_address"` // empty disables the /metrics endpoint
	Namespace     string `yaml:"namespace"`
	Textfile      string `yaml:"textfile"` // node_exporter textfile written at exit
}

type OutputConfig struct {
	Dir string `yaml:"dir"`
}

// Load reads a .env file when present, then the YAML file at path, and applies
// defaults, CODEDOC_* environment overrides and validation, in that order.
func Load(path string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config file %q: %w", path, err)
	}
	return Parse(data)
}

// Parse builds a configuration from YAML bytes. Environment overrides apply.
func Parse(data []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("%w: parse config: %w", docgen.ErrConfiguration, err)
	}

	ApplyDefaults(&cfg)
	applyEnvOverrides(&cfg)
	expandSecrets(&cfg)

	if err := Validate(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// ModelDescriptors converts the configured models, in order.
func (c *Config) ModelDescriptors() []docgen.ModelDescriptor {
	models := make([]docgen.ModelDescriptor, len(c.Models))
	for i, m := range c.Models {
		models[i] = docgen.ModelDescriptor{
			APIKey:    m.APIKey,
			Endpoint:  m.Endpoint,
			MaxTokens: m.MaxTokens,
			Name:      m.Name,
			Provider:  m.Provider,
			Timeout:   m.Timeout,
		}
		if m.Temperature != nil {
			models[i].Temperature = *m.Temperature
		}
	}
	return models
}

// PurposeLimits converts max_models_per_purpose.
func (c *Config) PurposeLimits() docgen.PurposeLimits {
	limits := docgen.DefaultPurposeLimits()
	for key, n := range c.Generation.MaxModelsPerPurpose {
		if p, ok := purposeKeys[key]; ok {
			limits[p] = n
		}
	}
	return limits
}

var purposeKeys = map[string]docgen.Purpose{
	"documentation":  docgen.PurposeDocumentation,
	"usage_examples": docgen.PurposeUsageExamples,
	"unit_tests":     docgen.PurposeUnitTests,
}

// expandSecrets resolves ${VAR} references in credentials and endpoints.
func expandSecrets(cfg *Config) {
	for i := range cfg.Models {
		cfg.Models[i].APIKey = os.ExpandEnv(cfg.Models[i].APIKey)
		cfg.Models[i].Endpoint = os.ExpandEnv(cfg.Models[i].Endpoint)
	}
	cfg.Database.URL = os.ExpandEnv(cfg.Database.URL)
}
