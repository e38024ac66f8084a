package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os/signal"
	"syscall"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/specvital/codedoc/internal/adapter/elements"
	"github.com/specvital/codedoc/internal/app"
	"github.com/specvital/codedoc/internal/domain/docgen"
	"github.com/specvital/codedoc/internal/infra/config"
	"github.com/specvital/codedoc/internal/infra/db"
	"github.com/specvital/codedoc/internal/infra/metrics"
	docgenuc "github.com/specvital/codedoc/internal/usecase/docgen"
)

// GenerateConfig holds the inputs of one generate command.
type GenerateConfig struct {
	Config       *config.Config
	DryRun       bool
	ElementsPath string
}

// Validate checks that required generate configuration fields are set.
func (c *GenerateConfig) Validate() error {
	if c.Config == nil {
		return errors.New("config is required")
	}
	if c.ElementsPath == "" {
		return errors.New("elements file is required")
	}
	return nil
}

// RunGenerate performs one generation run and returns its summary. SIGINT and
// SIGTERM cancel the run; the partial summary is returned with the error.
func RunGenerate(ctx context.Context, cfg GenerateConfig) (*docgen.RunSummary, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	c := cfg.Config

	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	elems, err := elements.LoadFile(cfg.ElementsPath)
	if err != nil {
		return nil, fmt.Errorf("load elements: %w", err)
	}
	slog.InfoContext(ctx, "elements loaded", "path", cfg.ElementsPath, "count", len(elems))

	var pool *pgxpool.Pool
	if c.Database.URL != "" && !cfg.DryRun {
		pool, err = openDocumentCache(ctx, c.Database.URL)
		if err != nil {
			return nil, err
		}
		defer pool.Close()
	}

	recorder := metrics.NewRecorder(c.Metrics.Namespace)
	if c.Metrics.ListenAddress != "" {
		metricsCtx, cancel := context.WithCancel(ctx)
		defer cancel()
		go func() {
			if err := recorder.Serve(metricsCtx, c.Metrics.ListenAddress); err != nil {
				slog.Error("metrics endpoint failed", "error", err)
			}
		}()
	}
	if c.Metrics.Textfile != "" {
		defer func() {
			if err := recorder.WriteTextfile(c.Metrics.Textfile); err != nil {
				slog.Warn("failed to write metrics textfile (non-critical)", "error", err)
			}
		}()
	}

	container, err := app.NewContainer(app.ContainerConfig{
		Config:   c,
		Pool:     pool,
		Recorder: recorder,
	})
	if err != nil {
		return nil, fmt.Errorf("container: %w", err)
	}

	summary, err := container.GenerateDocuments.Execute(ctx, docgenuc.GenerateRequest{
		DryRun:   cfg.DryRun,
		Elements: elems,
		Models:   c.ModelDescriptors(),
	})
	if err != nil {
		if docgenuc.IsCancelled(err) {
			slog.Warn("generation run cancelled", "error", err)
		}
		return summary, err
	}
	return summary, nil
}

func openDocumentCache(ctx context.Context, databaseURL string) (*pgxpool.Pool, error) {
	slog.InfoContext(ctx, "connecting document cache", "database_url", maskURL(databaseURL))

	pool, err := db.NewPool(ctx, databaseURL)
	if err != nil {
		return nil, fmt.Errorf("database connection: %w", err)
	}
	if err := db.Migrate(ctx, pool); err != nil {
		pool.Close()
		return nil, fmt.Errorf("database migration: %w", err)
	}

	slog.InfoContext(ctx, "postgres connected")
	return pool, nil
}
