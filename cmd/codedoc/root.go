package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/specvital/codedoc/internal/app/bootstrap"
	"github.com/specvital/codedoc/internal/infra/config"
)

var (
	// Global flags
	cfgFile   string
	logFormat string
	logLevel  string
)

var rootCmd = &cobra.Command{
	Use:   "codedoc",
	Short: "Codedoc - multi-model reference documentation generator",
	Long: `Codedoc turns a list of code elements (classes, fields, methods) into one
Markdown document per class. Every section is requested from the configured
language models in parallel and the longest successful answer is kept.

Supported model families:
  - Local generation servers (Ollama style, port 11434)
  - Chat completions APIs (OpenAI, OpenRouter, Groq and compatibles)
  - Gemini
  - Generic JSON endpoints`,
	Version:       Version,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "codedoc.yaml", "config file path")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level: debug, info, warn, error (overrides config)")
	rootCmd.PersistentFlags().StringVar(&logFormat, "log-format", "", "log format: json, text (overrides config)")
}

// loadConfig reads the config file and installs the process logger.
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	if logLevel != "" {
		cfg.Logging.Level = logLevel
	}
	if logFormat != "" {
		cfg.Logging.Format = logFormat
	}

	slog.SetDefault(bootstrap.NewLogger(os.Stderr, cfg.Logging.Format, cfg.Logging.Level))
	return cfg, nil
}
