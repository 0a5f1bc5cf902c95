package bootstrap

import (
	"context"
	"fmt"

	"github.com/avolkhin/findoc-analyzer/internal/config"
	"github.com/avolkhin/findoc-analyzer/internal/core/ports"
	"github.com/avolkhin/findoc-analyzer/internal/core/usecase"
	"github.com/avolkhin/findoc-analyzer/internal/infrastructure/extractor/docfile"
	"github.com/avolkhin/findoc-analyzer/internal/infrastructure/llm/openai"
	"github.com/avolkhin/findoc-analyzer/internal/infrastructure/queue/nats"
	"github.com/avolkhin/findoc-analyzer/internal/infrastructure/repository/postgres"
	"github.com/avolkhin/findoc-analyzer/internal/infrastructure/resilience"
	"github.com/avolkhin/findoc-analyzer/internal/infrastructure/storage/localfs"
)

// App wires the full dependency graph once; the api and worker binaries each
// take the slices of it they need.
type App struct {
	Config config.Config

	Queue     ports.MessageQueue
	Repo      ports.DocumentRepository
	AnalyzeUC ports.DocumentAnalyzer
	IngestUC  ports.DocumentIngestor
	ProcessUC ports.DocumentProcessor
	ReadUC    ports.DocumentReader

	closeFn func()
}

func New(ctx context.Context, cfg config.Config) (*App, error) {
	db, err := postgres.OpenDB(cfg.PostgresDSN)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	repo := postgres.NewDocumentRepository(db)
	if err := repo.EnsureSchema(ctx); err != nil {
		return nil, fmt.Errorf("ensure documents schema: %w", err)
	}
	results := postgres.NewResultRepository(db)
	if err := results.EnsureSchema(ctx); err != nil {
		return nil, fmt.Errorf("ensure results schema: %w", err)
	}

	storage, err := localfs.New(cfg.StoragePath)
	if err != nil {
		return nil, fmt.Errorf("init object storage: %w", err)
	}

	executor := resilience.NewExecutor(resilience.Config{
		RetryMaxAttempts:    cfg.RetryMaxAttempts,
		RetryInitialBackoff: cfg.RetryInitialBackoff,
		RetryMaxBackoff:     cfg.RetryMaxBackoff,
		BreakerEnabled:      true,
	})

	queue, err := nats.NewWithOptions(cfg.NATSURL, cfg.NATSSubject, nats.Options{
		ResilienceExecutor: executor,
	})
	if err != nil {
		return nil, fmt.Errorf("init message queue: %w", err)
	}

	backend := openai.New(openai.Options{
		APIKey:            cfg.OpenAIAPIKey,
		BaseURL:           cfg.OpenAIBaseURL,
		Model:             cfg.OpenAIModel,
		RequestsPerMinute: cfg.BackendRequestsPerMin,
		CallTimeout:       cfg.BackendCallTimeout,
		Executor:          executor,
	})

	fallback, err := usecase.NewMockResponder()
	if err != nil {
		return nil, fmt.Errorf("init fallback responder: %w", err)
	}

	analyzeUC := usecase.NewAnalyzeDocumentUseCase(
		docfile.New(cfg.MaxFileSizeBytes),
		usecase.NewPromptBuilder(cfg.PromptContextChars),
		usecase.NewAnalysisStageRunner(backend, cfg.MaxAnalysisIterations),
		usecase.NewVerificationStageRunner(),
		fallback,
		usecase.PipelineLimits{
			MaxRevisions:    cfg.MaxVerificationRevision,
			PipelineTimeout: cfg.PipelineTimeout,
		},
	)

	policy := usecase.UploadPolicy{
		MaxFileSizeBytes:  cfg.MaxFileSizeBytes,
		AllowedExtensions: cfg.AllowedExtensions,
	}
	ingestUC := usecase.NewIngestDocumentUseCase(repo, storage, queue, policy)
	processUC := usecase.NewProcessDocumentUseCase(repo, results, storage, analyzeUC)
	readUC := usecase.NewReadDocumentUseCase(repo, results)

	return &App{
		Config: cfg,
		Queue:  queue,
		Repo:   repo,

		AnalyzeUC: analyzeUC,
		IngestUC:  ingestUC,
		ProcessUC: processUC,
		ReadUC:    readUC,

		closeFn: func() {
			queue.Close()
			_ = db.Close()
		},
	}, nil
}

func (a *App) Close() {
	if a.closeFn != nil {
		a.closeFn()
	}
}
