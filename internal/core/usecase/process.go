package usecase

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/avolkhin/findoc-analyzer/internal/core/domain"
	"github.com/avolkhin/findoc-analyzer/internal/core/ports"
)

// ProcessDocumentUseCase drives one queued document through the analysis
// pipeline and persists the terminal result. The stored file is removed
// after a successful run.
type ProcessDocumentUseCase struct {
	repo     ports.DocumentRepository
	results  ports.ResultRepository
	storage  ports.ObjectStorage
	analyzer ports.DocumentAnalyzer
}

func NewProcessDocumentUseCase(
	repo ports.DocumentRepository,
	results ports.ResultRepository,
	storage ports.ObjectStorage,
	analyzer ports.DocumentAnalyzer,
) *ProcessDocumentUseCase {
	return &ProcessDocumentUseCase{
		repo:     repo,
		results:  results,
		storage:  storage,
		analyzer: analyzer,
	}
}

func (uc *ProcessDocumentUseCase) ProcessByID(ctx context.Context, documentID string) (*domain.PipelineResult, error) {
	if err := uc.markStatus(ctx, documentID, domain.StatusProcessing, ""); err != nil {
		return nil, fmt.Errorf("set status=processing: %w", err)
	}

	result, err := uc.runPipeline(ctx, documentID)
	if err != nil {
		if failErr := uc.markFailed(ctx, documentID, err); failErr != nil {
			return nil, fmt.Errorf("%w; mark failed status: %v", err, failErr)
		}
		return nil, err
	}

	if err := uc.results.SaveResult(ctx, documentID, result); err != nil {
		if failErr := uc.markFailed(ctx, documentID, err); failErr != nil {
			return result, fmt.Errorf("save result: %w; mark failed status: %v", err, failErr)
		}
		return result, fmt.Errorf("save result: %w", err)
	}

	status := domain.StatusAnalyzed
	errMessage := ""
	if result.Status == domain.ResultStatusError {
		status = domain.StatusFailed
		errMessage = result.Message
	}
	if err := uc.markStatus(ctx, documentID, status, errMessage); err != nil {
		return result, fmt.Errorf("set status=%s: %w", status, err)
	}

	return result, nil
}

func (uc *ProcessDocumentUseCase) runPipeline(ctx context.Context, documentID string) (*domain.PipelineResult, error) {
	doc, err := uc.repo.GetByID(ctx, documentID)
	if err != nil {
		return nil, fmt.Errorf("fetch document by id: %w", err)
	}

	raw, err := uc.loadRaw(ctx, doc.StoragePath)
	if err != nil {
		return nil, err
	}

	result, err := uc.analyzer.Analyze(ctx, doc.Filename, doc.MimeType, raw, doc.Query)
	if err != nil {
		return nil, fmt.Errorf("run analysis pipeline: %w", err)
	}

	if removeErr := uc.storage.Remove(ctx, doc.StoragePath); removeErr != nil {
		// Leftover files are harmless; the run already produced its result.
		slog.Warn("stored_file_cleanup_failed", "document_id", documentID, "error", removeErr)
	}

	return result, nil
}

func (uc *ProcessDocumentUseCase) loadRaw(ctx context.Context, storageKey string) ([]byte, error) {
	reader, err := uc.storage.Open(ctx, storageKey)
	if err != nil {
		return nil, fmt.Errorf("open stored file: %w", err)
	}
	defer reader.Close()

	raw, err := io.ReadAll(reader)
	if err != nil {
		return nil, fmt.Errorf("read stored file: %w", err)
	}
	return raw, nil
}

func (uc *ProcessDocumentUseCase) markStatus(ctx context.Context, documentID string, status domain.DocumentStatus, errMessage string) error {
	return uc.repo.UpdateStatus(ctx, documentID, status, errMessage)
}

func (uc *ProcessDocumentUseCase) markFailed(ctx context.Context, documentID string, processErr error) error {
	if processErr == nil {
		return nil
	}
	return uc.markStatus(ctx, documentID, domain.StatusFailed, processErr.Error())
}
