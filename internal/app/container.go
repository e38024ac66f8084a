package app

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/specvital/codedoc/internal/adapter/ai/gemini"
	"github.com/specvital/codedoc/internal/adapter/ai/mock"
	"github.com/specvital/codedoc/internal/adapter/ai/prompt"
	"github.com/specvital/codedoc/internal/adapter/ai/provider"
	"github.com/specvital/codedoc/internal/adapter/ai/reliability"
	"github.com/specvital/codedoc/internal/adapter/render/markdown"
	"github.com/specvital/codedoc/internal/adapter/repository/postgres"
	"github.com/specvital/codedoc/internal/adapter/writer/filesystem"
	"github.com/specvital/codedoc/internal/domain/docgen"
	"github.com/specvital/codedoc/internal/infra/config"
	"github.com/specvital/codedoc/internal/infra/metrics"
	docgenuc "github.com/specvital/codedoc/internal/usecase/docgen"
)

// ContainerConfig holds what the container needs beyond the loaded configuration.
type ContainerConfig struct {
	Config   *config.Config
	Pool     *pgxpool.Pool     // optional: enables the document cache
	Recorder *metrics.Recorder // optional
}

// Validate checks that required configuration fields are set.
func (c ContainerConfig) Validate() error {
	if c.Config == nil {
		return errors.New("config is required")
	}
	if !c.Config.MockMode && len(c.Config.Models) == 0 {
		slog.Warn("no models configured, documents will contain placeholders (set mock_mode to try the pipeline)")
	}
	return nil
}

// Container holds the dependencies of one codedoc process.
type Container struct {
	Caller            docgen.ModelCaller
	GenerateDocuments *docgenuc.GenerateDocumentsUseCase
	Renderer          *markdown.Renderer
	Repository        docgen.DocumentRepository
	Writer            *filesystem.Writer
}

// NewContainer creates and initializes a container with all required dependencies.
func NewContainer(cfg ContainerConfig) (*Container, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid container config: %w", err)
	}
	c := cfg.Config

	caller := newCaller(c, cfg.Recorder)

	writer, err := filesystem.New(filesystem.Options{OutputDir: c.Output.Dir})
	if err != nil {
		return nil, fmt.Errorf("create document writer: %w", err)
	}
	renderer := markdown.NewRenderer()

	// typed nil must not reach the use case as a non-nil interface
	var repository docgen.DocumentRepository
	if cfg.Pool != nil {
		repository = postgres.NewDocumentRepository(cfg.Pool)
	}

	opts := []docgenuc.Option{
		docgenuc.WithClusterConcurrency(int64(c.Generation.ClusterConcurrency)),
		docgenuc.WithMaxConcurrentCalls(int64(c.Generation.MaxConcurrentCalls)),
		docgenuc.WithPurposeLimits(c.PurposeLimits()),
		docgenuc.WithRunTimeout(c.Generation.RunTimeout),
		docgenuc.WithUnitTests(c.Generation.IncludeUnitTests),
		docgenuc.WithFieldExamples(c.Generation.IncludeFieldExamples),
	}
	if cfg.Recorder != nil {
		opts = append(opts, docgenuc.WithClusterObserver(cfg.Recorder))
	}

	uc := docgenuc.NewGenerateDocumentsUseCase(caller, prompt.Build, renderer, writer, repository, opts...)

	return &Container{
		Caller:            caller,
		GenerateDocuments: uc,
		Renderer:          renderer,
		Repository:        repository,
		Writer:            writer,
	}, nil
}

func newCaller(c *config.Config, recorder *metrics.Recorder) docgen.ModelCaller {
	if c.MockMode {
		slog.Info("mock mode enabled, using mock model caller")
		return mock.NewCaller(0)
	}

	opts := []provider.Option{provider.WithGeminiTransport(gemini.NewTransport())}
	if limiter := reliability.NewRateLimiter(reliability.RateLimiterConfig{
		Burst:             c.Generation.RateLimit.Burst,
		RequestsPerSecond: c.Generation.RateLimit.RequestsPerSecond,
	}); limiter != nil {
		opts = append(opts, provider.WithLimiter(limiter))
	}
	if recorder != nil {
		opts = append(opts, provider.WithObserver(recorder))
	}
	return provider.NewClient(opts...)
}
