package db

const FindDocumentByContentHash = `
SELECT id, run_id, cluster_key, path, content, content_hash, created_at
FROM generated_documents
WHERE content_hash = $1`

const UpsertDocument = `
INSERT INTO generated_documents (id, run_id, cluster_key, path, content, content_hash)
VALUES ($1, $2, $3, $4, $5, $6)
ON CONFLICT (content_hash) DO UPDATE
SET run_id = EXCLUDED.run_id,
    cluster_key = EXCLUDED.cluster_key,
    path = EXCLUDED.path,
    content = EXCLUDED.content,
    created_at = now()`

const InsertGenerationRun = `
INSERT INTO generation_runs (
    id, element_count, cluster_count, document_count, cached_clusters,
    failed_clusters, calls, failures, duration_ms
)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
ON CONFLICT (id) DO NOTHING`

const FindGenerationRun = `
SELECT id, element_count, cluster_count, document_count, cached_clusters,
       failed_clusters, calls, failures, duration_ms, finished_at
FROM generation_runs
WHERE id = $1`
