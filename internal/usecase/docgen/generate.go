package docgen

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"

	"github.com/specvital/codedoc/internal/domain/docgen"
)

const (
	DefaultClusterConcurrency = int64(4)

	// Progress logging thresholds
	progressLogBatchSize    = 10
	progressLogTimeInterval = 30 * time.Second
	progressLogMinClusters  = 10
)

// Run states, logged as the run moves through them.
const (
	StateContextAttached = "context_attached"
	StateFanningOut      = "fanning_out"
	StateConsolidating   = "consolidating"
	StateCleanedUp       = "cleaned_up"
)

// Cluster outcomes reported to the observer.
const (
	OutcomeCached  = "cached"
	OutcomeFailed  = "failed"
	OutcomeWritten = "written"
)

// ClusterObserver is notified once per finished cluster.
type ClusterObserver interface {
	ObserveCluster(outcome string, duration time.Duration)
}

// Config holds configuration for GenerateDocumentsUseCase.
type Config struct {
	ClusterConcurrency   int64                // Max clusters processed at once (default: 4)
	IncludeFieldExamples bool                 // Generate usage examples for fields
	IncludeUnitTests     bool                 // Generate unit tests for methods
	MaxConcurrentCalls   int64                // Max outbound model calls at once (default: 8)
	Observer             ClusterObserver      // Optional
	PurposeLimits        docgen.PurposeLimits // Models per purpose (default: all, 1, 1)
	RunTimeout           time.Duration        // Whole-run deadline, 0 for none
}

// Option is a functional option for configuring GenerateDocumentsUseCase.
type Option func(*Config)

// WithClusterConcurrency sets the max clusters processed at once.
func WithClusterConcurrency(n int64) Option {
	return func(cfg *Config) {
		if n > 0 {
			cfg.ClusterConcurrency = n
		}
	}
}

// WithMaxConcurrentCalls sets the max outbound model calls at once.
func WithMaxConcurrentCalls(n int64) Option {
	return func(cfg *Config) {
		if n > 0 {
			cfg.MaxConcurrentCalls = n
		}
	}
}

// WithRunTimeout bounds the whole run.
func WithRunTimeout(d time.Duration) Option {
	return func(cfg *Config) {
		if d > 0 {
			cfg.RunTimeout = d
		}
	}
}

// WithUnitTests enables unit-test generation for methods.
func WithUnitTests(enabled bool) Option {
	return func(cfg *Config) {
		cfg.IncludeUnitTests = enabled
	}
}

// WithFieldExamples enables usage-example generation for fields.
func WithFieldExamples(enabled bool) Option {
	return func(cfg *Config) {
		cfg.IncludeFieldExamples = enabled
	}
}

// WithPurposeLimits overrides how many models are asked per purpose.
func WithPurposeLimits(limits docgen.PurposeLimits) Option {
	return func(cfg *Config) {
		if limits != nil {
			cfg.PurposeLimits = limits
		}
	}
}

// WithClusterObserver registers an observer for finished clusters.
func WithClusterObserver(o ClusterObserver) Option {
	return func(cfg *Config) {
		cfg.Observer = o
	}
}

// GenerateRequest is the input of one generation run.
type GenerateRequest struct {
	DryRun   bool
	Elements []docgen.CodeElement
	Models   []docgen.ModelDescriptor
}

// GenerateDocumentsUseCase runs one documentation generation run per Execute call.
// Concurrent Execute calls are independent runs that share only the call and
// cluster pools.
type GenerateDocumentsUseCase struct {
	assembler  *Assembler
	clusterSem *semaphore.Weighted
	config     Config
	renderer   docgen.DocumentRenderer
	repository docgen.DocumentRepository
	writer     docgen.DocumentWriter
}

// NewGenerateDocumentsUseCase creates a new GenerateDocumentsUseCase. repository may
// be nil, which disables the document cache and run archive.
func NewGenerateDocumentsUseCase(
	caller docgen.ModelCaller,
	prompts docgen.PromptBuilder,
	renderer docgen.DocumentRenderer,
	writer docgen.DocumentWriter,
	repository docgen.DocumentRepository,
	opts ...Option,
) *GenerateDocumentsUseCase {
	cfg := Config{
		ClusterConcurrency: DefaultClusterConcurrency,
		MaxConcurrentCalls: DefaultMaxConcurrentCalls,
		PurposeLimits:      docgen.DefaultPurposeLimits(),
	}

	for _, opt := range opts {
		opt(&cfg)
	}

	orchestrator := NewOrchestrator(caller, prompts, cfg.MaxConcurrentCalls)
	assembler := NewAssembler(orchestrator, AssemblerOptions{
		FieldExamples: cfg.IncludeFieldExamples,
		UnitTests:     cfg.IncludeUnitTests,
	})

	return &GenerateDocumentsUseCase{
		assembler:  assembler,
		clusterSem: semaphore.NewWeighted(cfg.ClusterConcurrency),
		config:     cfg,
		renderer:   renderer,
		repository: repository,
		writer:     writer,
	}
}

// Execute runs one generation run. Per-cluster failures are collected in the summary
// and never abort the run. The error is non-nil for invalid input, or when the run
// was cancelled, in which case the partial summary is still returned.
func (uc *GenerateDocumentsUseCase) Execute(ctx context.Context, req GenerateRequest) (*docgen.RunSummary, error) {
	startTime := time.Now()

	for _, m := range req.Models {
		if err := m.Validate(); err != nil {
			return nil, err
		}
	}
	elements := validElements(ctx, req.Elements)

	if uc.config.RunTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, uc.config.RunTimeout)
		defer cancel()
	}

	gc := docgen.NewGenerationContext(req.Models, uc.config.PurposeLimits)
	slog.InfoContext(ctx, "generation context attached",
		"run_id", gc.RunID(),
		"state", StateContextAttached,
		"model_count", len(req.Models),
		"models", gc.ModelNames(),
	)
	if len(req.Models) == 0 {
		slog.WarnContext(ctx, "no models configured, documents will contain placeholders",
			"run_id", gc.RunID(),
		)
	}

	// released only after every task below has returned
	defer func() {
		gc.Release()
		slog.InfoContext(ctx, "generation context released",
			"run_id", gc.RunID(),
			"state", StateCleanedUp,
		)
	}()

	clusters := ClusterElements(elements)
	summary := &docgen.RunSummary{
		Calls:        make(map[docgen.Provenance]int),
		ClusterCount: len(clusters),
		ElementCount: len(elements),
		RunID:        gc.RunID(),
	}

	if req.DryRun {
		for _, c := range clusters {
			summary.Documents = append(summary.Documents, c.DocumentPath(uc.renderer.Extension()))
		}
		summary.Duration = time.Since(startTime)
		return summary, nil
	}

	slog.InfoContext(ctx, "generation started",
		"run_id", gc.RunID(),
		"state", StateFanningOut,
		"cluster_count", len(clusters),
		"element_count", len(elements),
	)

	var (
		summaryMu sync.Mutex
		tracker   = newProgressTracker(len(clusters))
		g         errgroup.Group
	)

	for _, cluster := range clusters {
		g.Go(func() error {
			clusterStart := time.Now()
			outcome := uc.runCluster(ctx, gc, cluster)

			summaryMu.Lock()
			switch {
			case outcome.failure != nil:
				summary.Failures = append(summary.Failures, *outcome.failure)
			case outcome.cached:
				summary.CachedClusters++
				summary.Documents = append(summary.Documents, outcome.path)
			default:
				summary.Documents = append(summary.Documents, outcome.path)
			}
			for p, n := range outcome.calls {
				summary.Calls[p] += n
			}
			summaryMu.Unlock()

			uc.observeCluster(outcome, time.Since(clusterStart))
			tracker.recordCompletion(ctx, gc.RunID(), outcome.failure != nil)
			return nil
		})
	}
	_ = g.Wait()

	sort.Strings(summary.Documents)
	sort.Slice(summary.Failures, func(i, j int) bool {
		return summary.Failures[i].ClusterKey < summary.Failures[j].ClusterKey
	})

	slog.InfoContext(ctx, "generation fan-out finished",
		"run_id", gc.RunID(),
		"state", StateConsolidating,
		"document_count", len(summary.Documents),
		"failed_clusters", summary.FailedClusters(),
	)

	summary.Duration = time.Since(startTime)
	uc.saveRunSummary(ctx, summary)

	slog.InfoContext(ctx, "generation run complete",
		"run_id", gc.RunID(),
		"cluster_count", summary.ClusterCount,
		"document_count", len(summary.Documents),
		"cached_clusters", summary.CachedClusters,
		"failed_clusters", summary.FailedClusters(),
		"calls_succeeded", summary.Calls[docgen.ProvenanceSuccess],
		"calls_timed_out", summary.Calls[docgen.ProvenanceTimedOut],
		"calls_failed", summary.Calls[docgen.ProvenanceError],
		"duration_ms", summary.Duration.Milliseconds(),
	)

	if err := ctx.Err(); err != nil {
		return summary, fmt.Errorf("%w: %w", docgen.ErrRunCancelled, err)
	}
	return summary, nil
}

// render splits the document so that only the run-independent body is cached.
func (uc *GenerateDocumentsUseCase) render(doc *docgen.ClassDocument) (header, body []byte, err error) {
	if header, err = uc.renderer.RenderHeader(doc); err != nil {
		return nil, nil, err
	}
	if body, err = uc.renderer.RenderBody(doc); err != nil {
		return nil, nil, err
	}
	return header, body, nil
}

func concat(header, body []byte) []byte {
	out := make([]byte, 0, len(header)+len(body))
	out = append(out, header...)
	return append(out, body...)
}

type clusterOutcome struct {
	cached  bool
	calls   CallStats
	failure *docgen.ClusterFailure
	path    string
}

func (uc *GenerateDocumentsUseCase) runCluster(ctx context.Context, gc *docgen.GenerationContext, cluster docgen.ClassCluster) (outcome clusterOutcome) {
	defer func() {
		if r := recover(); r != nil {
			outcome = uc.clusterFailed(ctx, gc, cluster.Key, StageGenerate, fmt.Errorf("%w: panic: %v", ErrGenerateFailed, r))
		}
	}()

	if err := uc.clusterSem.Acquire(ctx, 1); err != nil {
		return uc.clusterFailed(ctx, gc, cluster.Key, StageSchedule, fmt.Errorf("%w: %w", docgen.ErrRunCancelled, err))
	}
	defer uc.clusterSem.Release(1)

	path := cluster.DocumentPath(uc.renderer.Extension())

	var contentHash []byte
	if uc.repository != nil {
		contentHash = docgen.GenerateClusterHash(cluster, gc, uc.assembler.Sections())
		if cached := uc.findCached(ctx, gc, cluster.Key, contentHash); cached != nil {
			header, err := uc.renderer.RenderHeader(&docgen.ClassDocument{
				CachedFromRun: cached.RunID,
				GeneratedAt:   time.Now().UTC(),
				Key:           cluster.Key,
				Models:        gc.ModelNames(),
				RunID:         gc.RunID(),
				Title:         cluster.Title(),
			})
			if err != nil {
				return uc.clusterFailed(ctx, gc, cluster.Key, StageRender, fmt.Errorf("%w: %w", ErrRenderFailed, err))
			}
			if err := uc.writer.Write(ctx, path, concat(header, cached.Content)); err != nil {
				return uc.clusterFailed(ctx, gc, cluster.Key, StageWrite, fmt.Errorf("%w: %w", ErrWriteFailed, err))
			}
			slog.InfoContext(ctx, "cluster completed",
				"run_id", gc.RunID(),
				"cluster", cluster.Key,
				"path", path,
				"cache_hit", true,
			)
			return clusterOutcome{cached: true, path: path}
		}
	}

	doc, calls, err := uc.assembler.Assemble(ctx, gc, cluster)
	if err != nil {
		return uc.clusterFailed(ctx, gc, cluster.Key, StageGenerate, fmt.Errorf("%w: %w", ErrGenerateFailed, err))
	}

	header, body, err := uc.render(doc)
	if err != nil {
		outcome = uc.clusterFailed(ctx, gc, cluster.Key, StageRender, fmt.Errorf("%w: %w", ErrRenderFailed, err))
		outcome.calls = calls
		return outcome
	}

	if err := uc.writer.Write(ctx, path, concat(header, body)); err != nil {
		outcome = uc.clusterFailed(ctx, gc, cluster.Key, StageWrite, fmt.Errorf("%w: %w", ErrWriteFailed, err))
		outcome.calls = calls
		return outcome
	}

	if uc.repository != nil {
		uc.saveDocument(ctx, &docgen.StoredDocument{
			ClusterKey:  cluster.Key,
			Content:     body,
			ContentHash: contentHash,
			ID:          uuid.NewString(),
			Path:        path,
			RunID:       gc.RunID(),
		}, calls)
	}

	slog.InfoContext(ctx, "cluster completed",
		"run_id", gc.RunID(),
		"cluster", cluster.Key,
		"path", path,
		"element_count", cluster.Size(),
		"cache_hit", false,
	)
	return clusterOutcome{calls: calls, path: path}
}

func (uc *GenerateDocumentsUseCase) clusterFailed(ctx context.Context, gc *docgen.GenerationContext, key, stage string, err error) clusterOutcome {
	slog.ErrorContext(ctx, "cluster failed",
		"run_id", gc.RunID(),
		"cluster", key,
		"stage", stage,
		"error", err,
	)
	return clusterOutcome{
		failure: &docgen.ClusterFailure{
			ClusterKey: key,
			Err:        err,
			Stage:      stage,
		},
	}
}

func (uc *GenerateDocumentsUseCase) findCached(ctx context.Context, gc *docgen.GenerationContext, key string, contentHash []byte) *docgen.StoredDocument {
	doc, err := uc.repository.FindDocumentByContentHash(ctx, contentHash)
	if err != nil {
		slog.WarnContext(ctx, "document cache lookup failed (non-critical)",
			"run_id", gc.RunID(),
			"cluster", key,
			"error", err,
		)
		return nil
	}
	return doc
}

// saveDocument stores a newly rendered document unless any of its calls failed, so
// placeholder text is never served from the cache.
func (uc *GenerateDocumentsUseCase) saveDocument(ctx context.Context, doc *docgen.StoredDocument, calls CallStats) {
	if calls[docgen.ProvenanceError] > 0 || calls[docgen.ProvenanceTimedOut] > 0 {
		return
	}
	if err := uc.repository.SaveDocument(ctx, doc); err != nil {
		slog.WarnContext(ctx, "failed to cache document (non-critical)",
			"run_id", doc.RunID,
			"cluster", doc.ClusterKey,
			"error", err,
		)
	}
}

func (uc *GenerateDocumentsUseCase) saveRunSummary(ctx context.Context, summary *docgen.RunSummary) {
	if uc.repository == nil {
		return
	}
	// the run context may already be cancelled; archive the outcome regardless
	saveCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 10*time.Second)
	defer cancel()

	if err := uc.repository.SaveRunSummary(saveCtx, summary); err != nil {
		slog.WarnContext(ctx, "failed to archive run summary (non-critical)",
			"run_id", summary.RunID,
			"error", err,
		)
	}
}

func (uc *GenerateDocumentsUseCase) observeCluster(outcome clusterOutcome, d time.Duration) {
	if uc.config.Observer == nil {
		return
	}
	switch {
	case outcome.failure != nil:
		uc.config.Observer.ObserveCluster(OutcomeFailed, d)
	case outcome.cached:
		uc.config.Observer.ObserveCluster(OutcomeCached, d)
	default:
		uc.config.Observer.ObserveCluster(OutcomeWritten, d)
	}
}

func validElements(ctx context.Context, elements []docgen.CodeElement) []docgen.CodeElement {
	valid := make([]docgen.CodeElement, 0, len(elements))
	for _, e := range elements {
		if err := e.Validate(); err != nil {
			slog.WarnContext(ctx, "skipping invalid element",
				"qualified_name", e.QualifiedName,
				"error", err,
			)
			continue
		}
		valid = append(valid, e)
	}
	return valid
}

// IsCancelled reports whether err ended a run early.
func IsCancelled(err error) bool {
	return errors.Is(err, docgen.ErrRunCancelled)
}

// progressTracker tracks cluster progress and handles batch logging.
type progressTracker struct {
	completed   atomic.Int32
	failed      atomic.Int32
	lastLogTime atomic.Int64 // unix nano
	total       int32
}

func newProgressTracker(total int) *progressTracker {
	pt := &progressTracker{total: int32(total)}
	pt.lastLogTime.Store(time.Now().UnixNano())
	return pt
}

func (pt *progressTracker) recordCompletion(ctx context.Context, runID string, failed bool) {
	completed := pt.completed.Add(1)
	if failed {
		pt.failed.Add(1)
	}

	if pt.total < progressLogMinClusters {
		return
	}

	pt.maybeLogProgress(ctx, runID, completed)
}

func (pt *progressTracker) maybeLogProgress(ctx context.Context, runID string, completed int32) {
	lastLog := pt.lastLogTime.Load()
	now := time.Now().UnixNano()
	timeSinceLastLog := time.Duration(now - lastLog)

	shouldLogByBatch := completed%progressLogBatchSize == 0
	shouldLogByTime := timeSinceLastLog >= progressLogTimeInterval
	isComplete := completed >= pt.total

	if !shouldLogByBatch && !shouldLogByTime {
		return
	}
	if isComplete {
		return
	}

	if pt.lastLogTime.CompareAndSwap(lastLog, now) {
		slog.InfoContext(ctx, "generation progress",
			"run_id", runID,
			"completed", completed,
			"total", pt.total,
			"failed", pt.failed.Load(),
		)
	}
}
