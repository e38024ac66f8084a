package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/specvital/codedoc/internal/domain/docgen"
	"github.com/specvital/codedoc/internal/infra/db"
)

var _ docgen.DocumentRepository = (*DocumentRepository)(nil)

type DocumentRepository struct {
	pool *pgxpool.Pool
}

func NewDocumentRepository(pool *pgxpool.Pool) *DocumentRepository {
	return &DocumentRepository{pool: pool}
}

type failureRecord struct {
	ClusterKey string `json:"cluster_key"`
	Error      string `json:"error"`
	Stage      string `json:"stage"`
}

func (r *DocumentRepository) FindDocumentByContentHash(ctx context.Context, contentHash []byte) (*docgen.StoredDocument, error) {
	var (
		id, runID pgtype.UUID
		createdAt pgtype.Timestamptz
		doc       docgen.StoredDocument
	)
	err := r.pool.QueryRow(ctx, db.FindDocumentByContentHash, contentHash).Scan(
		&id, &runID, &doc.ClusterKey, &doc.Path, &doc.Content, &doc.ContentHash, &createdAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("find document: %w", err)
	}

	doc.ID = fromPgUUID(id).String()
	doc.RunID = fromPgUUID(runID).String()
	doc.CreatedAt = createdAt.Time
	return &doc, nil
}

func (r *DocumentRepository) SaveDocument(ctx context.Context, doc *docgen.StoredDocument) error {
	if doc == nil || len(doc.ContentHash) == 0 {
		return fmt.Errorf("%w: document content hash is required", docgen.ErrInvalidInput)
	}
	id, err := parseUUID(doc.ID)
	if err != nil {
		return fmt.Errorf("%w: document id: %w", docgen.ErrInvalidInput, err)
	}
	runID, err := parseUUID(doc.RunID)
	if err != nil {
		return fmt.Errorf("%w: run id: %w", docgen.ErrInvalidInput, err)
	}

	if _, err := r.pool.Exec(ctx, db.UpsertDocument,
		toPgUUID(id),
		toPgUUID(runID),
		doc.ClusterKey,
		doc.Path,
		doc.Content,
		doc.ContentHash,
	); err != nil {
		return fmt.Errorf("save document: %w", err)
	}
	return nil
}

func (r *DocumentRepository) SaveRunSummary(ctx context.Context, summary *docgen.RunSummary) error {
	if summary == nil {
		return fmt.Errorf("%w: nil run summary", docgen.ErrInvalidInput)
	}
	runID, err := parseUUID(summary.RunID)
	if err != nil {
		return fmt.Errorf("%w: run id: %w", docgen.ErrInvalidInput, err)
	}

	calls, err := json.Marshal(summary.Calls)
	if err != nil {
		return fmt.Errorf("marshal call stats: %w", err)
	}
	failures := make([]failureRecord, len(summary.Failures))
	for i, f := range summary.Failures {
		failures[i] = failureRecord{ClusterKey: f.ClusterKey, Stage: f.Stage}
		if f.Err != nil {
			failures[i].Error = f.Err.Error()
		}
	}
	failuresJSON, err := json.Marshal(failures)
	if err != nil {
		return fmt.Errorf("marshal failures: %w", err)
	}

	if _, err := r.pool.Exec(ctx, db.InsertGenerationRun,
		toPgUUID(runID),
		summary.ElementCount,
		summary.ClusterCount,
		len(summary.Documents),
		summary.CachedClusters,
		summary.FailedClusters(),
		calls,
		failuresJSON,
		summary.Duration.Milliseconds(),
	); err != nil {
		return fmt.Errorf("save run summary: %w", err)
	}
	return nil
}

// RunRecord is an archived run as stored in generation_runs.
type RunRecord struct {
	CachedClusters int
	Calls          map[docgen.Provenance]int
	ClusterCount   int
	DocumentCount  int
	Duration       time.Duration
	ElementCount   int
	FailedClusters int
	Failures       []docgen.ClusterFailure
	FinishedAt     time.Time
	RunID          string
}

// FindRun returns the archived run, or nil without error when it does not exist.
func (r *DocumentRepository) FindRun(ctx context.Context, runID string) (*RunRecord, error) {
	id, err := parseUUID(runID)
	if err != nil {
		return nil, fmt.Errorf("%w: run id: %w", docgen.ErrInvalidInput, err)
	}

	var (
		pgID        pgtype.UUID
		calls       []byte
		failures    []byte
		durationMS  int64
		finishedAt  pgtype.Timestamptz
		rec         RunRecord
		failureRecs []failureRecord
	)
	err = r.pool.QueryRow(ctx, db.FindGenerationRun, toPgUUID(id)).Scan(
		&pgID, &rec.ElementCount, &rec.ClusterCount, &rec.DocumentCount, &rec.CachedClusters,
		&rec.FailedClusters, &calls, &failures, &durationMS, &finishedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("find run: %w", err)
	}

	if err := json.Unmarshal(calls, &rec.Calls); err != nil {
		return nil, fmt.Errorf("unmarshal call stats for run %s: %w", runID, err)
	}
	if err := json.Unmarshal(failures, &failureRecs); err != nil {
		return nil, fmt.Errorf("unmarshal failures for run %s: %w", runID, err)
	}
	for _, f := range failureRecs {
		rec.Failures = append(rec.Failures, docgen.ClusterFailure{
			ClusterKey: f.ClusterKey,
			Err:        errors.New(f.Error),
			Stage:      f.Stage,
		})
	}

	rec.Duration = time.Duration(durationMS) * time.Millisecond
	rec.FinishedAt = finishedAt.Time
	rec.RunID = fromPgUUID(pgID).String()
	return &rec, nil
}
