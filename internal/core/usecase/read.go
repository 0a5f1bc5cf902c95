package usecase

import (
	"context"
	"fmt"

	"github.com/avolkhin/findoc-analyzer/internal/core/domain"
	"github.com/avolkhin/findoc-analyzer/internal/core/ports"
)

// ReadDocumentUseCase serves document and result lookups for the HTTP API.
type ReadDocumentUseCase struct {
	repo    ports.DocumentRepository
	results ports.ResultRepository
}

func NewReadDocumentUseCase(repo ports.DocumentRepository, results ports.ResultRepository) *ReadDocumentUseCase {
	return &ReadDocumentUseCase{repo: repo, results: results}
}

func (uc *ReadDocumentUseCase) GetByID(ctx context.Context, id string) (*domain.StoredDocument, error) {
	doc, err := uc.repo.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("fetch document by id: %w", err)
	}
	return doc, nil
}

func (uc *ReadDocumentUseCase) GetResult(ctx context.Context, documentID string) (*domain.PipelineResult, error) {
	result, err := uc.results.GetResult(ctx, documentID)
	if err != nil {
		return nil, fmt.Errorf("fetch result by document id: %w", err)
	}
	return result, nil
}
