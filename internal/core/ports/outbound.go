package ports

import (
	"context"
	"io"

	"github.com/avolkhin/findoc-analyzer/internal/core/domain"
)

// ModelBackend is the single call contract against the language-model
// provider. Errors carry a domain.BackendFailure in their chain so callers
// can branch on the failure kind.
type ModelBackend interface {
	Invoke(ctx context.Context, systemPrompt, userPrompt string) (string, error)
}

// DocumentRepository persists stored upload state for the async path.
type DocumentRepository interface {
	Create(ctx context.Context, doc *domain.StoredDocument) error
	GetByID(ctx context.Context, id string) (*domain.StoredDocument, error)
	UpdateStatus(ctx context.Context, id string, status domain.DocumentStatus, errMessage string) error
}

// ResultRepository persists the terminal pipeline result per document.
type ResultRepository interface {
	SaveResult(ctx context.Context, documentID string, result *domain.PipelineResult) error
	GetResult(ctx context.Context, documentID string) (*domain.PipelineResult, error)
}

// ObjectStorage stores raw uploaded files.
type ObjectStorage interface {
	Save(ctx context.Context, key string, data io.Reader) error
	Open(ctx context.Context, key string) (io.ReadCloser, error)
	Remove(ctx context.Context, key string) error
}

// MessageQueue publishes/consumes ingestion events.
type MessageQueue interface {
	PublishDocumentIngested(ctx context.Context, documentID string) error
	SubscribeDocumentIngested(ctx context.Context, handler func(context.Context, string) error) error
}

// DocumentExtractor converts raw upload bytes into a SourceDocument. It must
// report malformed input through the extraction status, never via panic.
type DocumentExtractor interface {
	Extract(ctx context.Context, filename, mimeType string, raw []byte) (*domain.SourceDocument, error)
}

// TaskBuilder derives the per-run instruction payloads. Pure function of its
// inputs.
type TaskBuilder interface {
	BuildTasks(doc *domain.SourceDocument, query string) domain.TaskSet
}

// AnalysisRunner produces a draft analysis from the analysis task.
type AnalysisRunner interface {
	RunAnalysis(ctx context.Context, task domain.AnalysisTask) (*domain.DraftAnalysis, error)
}

// VerificationRunner checks every draft claim against the source text.
type VerificationRunner interface {
	Verify(task domain.VerificationTask, draft *domain.DraftAnalysis) domain.VerificationVerdict
}

// FallbackResponder produces the deterministic offline result.
type FallbackResponder interface {
	MockResult(meta domain.ResultMetadata) *domain.PipelineResult
}
