package ports

import (
	"context"
	"io"

	"github.com/avolkhin/findoc-analyzer/internal/core/domain"
)

// DocumentAnalyzer is the inbound contract for one synchronous pipeline run.
type DocumentAnalyzer interface {
	Analyze(ctx context.Context, filename, mimeType string, raw []byte, query string) (*domain.PipelineResult, error)
}

// DocumentIngestor is the inbound contract for asynchronous upload intake.
type DocumentIngestor interface {
	Upload(ctx context.Context, filename, mimeType, query string, body io.Reader) (*domain.StoredDocument, error)
}

// DocumentReader is the inbound read model for stored document state.
type DocumentReader interface {
	GetByID(ctx context.Context, id string) (*domain.StoredDocument, error)
	GetResult(ctx context.Context, documentID string) (*domain.PipelineResult, error)
}

// DocumentProcessor is the inbound contract for worker-driven processing.
// The pipeline result is returned even when the document ends up failed, so
// callers can observe how the run terminated.
type DocumentProcessor interface {
	ProcessByID(ctx context.Context, documentID string) (*domain.PipelineResult, error)
}
