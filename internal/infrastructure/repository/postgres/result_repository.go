package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/avolkhin/findoc-analyzer/internal/core/domain"
)

// ResultRepository stores one terminal pipeline result per document as a
// JSONB payload. Re-processing a document overwrites the previous result.
type ResultRepository struct {
	db *sql.DB
}

func NewResultRepository(db *sql.DB) *ResultRepository {
	return &ResultRepository{db: db}
}

func (r *ResultRepository) EnsureSchema(ctx context.Context) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin schema tx: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	if _, err := tx.ExecContext(ctx, `SELECT pg_advisory_xact_lock($1)`, int64(2026082902)); err != nil {
		return fmt.Errorf("acquire schema lock: %w", err)
	}

	const query = `
CREATE TABLE IF NOT EXISTS pipeline_results (
	document_id TEXT PRIMARY KEY,
	status TEXT NOT NULL,
	fallback_used BOOLEAN NOT NULL DEFAULT FALSE,
	payload JSONB NOT NULL,
	created_at TIMESTAMPTZ NOT NULL
);
`
	if _, err := tx.ExecContext(ctx, query); err != nil {
		return fmt.Errorf("execute schema ddl: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit schema tx: %w", err)
	}
	return nil
}

func (r *ResultRepository) SaveResult(ctx context.Context, documentID string, result *domain.PipelineResult) error {
	payload, err := json.Marshal(result)
	if err != nil {
		return fmt.Errorf("marshal result: %w", err)
	}

	_, err = r.db.ExecContext(ctx, `
INSERT INTO pipeline_results (document_id, status, fallback_used, payload, created_at)
VALUES ($1,$2,$3,$4,$5)
ON CONFLICT (document_id) DO UPDATE
SET status = EXCLUDED.status, fallback_used = EXCLUDED.fallback_used, payload = EXCLUDED.payload, created_at = EXCLUDED.created_at
`, documentID, string(result.Status), result.Metadata.FallbackUsed, payload, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("upsert result: %w", err)
	}
	return nil
}

func (r *ResultRepository) GetResult(ctx context.Context, documentID string) (*domain.PipelineResult, error) {
	row := r.db.QueryRowContext(ctx, `
SELECT payload FROM pipeline_results WHERE document_id = $1
`, documentID)

	var payload []byte
	if err := row.Scan(&payload); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.WrapError(domain.ErrDocumentNotFound, "fetch result", fmt.Errorf("document %s", documentID))
		}
		return nil, fmt.Errorf("scan result: %w", err)
	}

	var result domain.PipelineResult
	if err := json.Unmarshal(payload, &result); err != nil {
		return nil, fmt.Errorf("unmarshal result: %w", err)
	}
	return &result, nil
}
