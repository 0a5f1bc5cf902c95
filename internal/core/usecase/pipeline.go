package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"

	"github.com/avolkhin/findoc-analyzer/internal/core/domain"
	"github.com/avolkhin/findoc-analyzer/internal/core/ports"
)

// PipelineLimits is the explicit per-run configuration for the orchestrator.
// No stage reads process-wide state.
type PipelineLimits struct {
	MaxRevisions    int
	PipelineTimeout time.Duration
}

func (l PipelineLimits) normalize() PipelineLimits {
	out := l
	if out.MaxRevisions < 0 {
		out.MaxRevisions = 0
	}
	if out.PipelineTimeout <= 0 {
		out.PipelineTimeout = 120 * time.Second
	}
	return out
}

// AnalyzeDocumentUseCase sequences extraction, analysis and verification for
// one request and guarantees a well-formed PipelineResult on every path
// except input validation.
//
// State machine:
//
//	Received -> Extracting -> Analyzing -> Verifying
//	    -> (Revising -> Analyzing)* | Approved | Fallback -> Completed
type AnalyzeDocumentUseCase struct {
	extractor ports.DocumentExtractor
	builder   ports.TaskBuilder
	analyst   ports.AnalysisRunner
	verifier  ports.VerificationRunner
	fallback  ports.FallbackResponder
	limits    PipelineLimits
}

func NewAnalyzeDocumentUseCase(
	extractor ports.DocumentExtractor,
	builder ports.TaskBuilder,
	analyst ports.AnalysisRunner,
	verifier ports.VerificationRunner,
	fallback ports.FallbackResponder,
	limits PipelineLimits,
) *AnalyzeDocumentUseCase {
	return &AnalyzeDocumentUseCase{
		extractor: extractor,
		builder:   builder,
		analyst:   analyst,
		verifier:  verifier,
		fallback:  fallback,
		limits:    limits.normalize(),
	}
}

func (uc *AnalyzeDocumentUseCase) Analyze(ctx context.Context, filename, mimeType string, raw []byte, query string) (*domain.PipelineResult, error) {
	start := time.Now()
	states := []domain.PipelineState{domain.StateReceived}

	runCtx, cancel := context.WithTimeout(ctx, uc.limits.PipelineTimeout)
	defer cancel()

	meta := domain.ResultMetadata{
		FileName: filename,
		FileSize: int64(len(raw)),
	}

	states = append(states, domain.StateExtracting)
	doc, err := uc.extractor.Extract(runCtx, filename, mimeType, raw)
	if err != nil {
		// Validation errors are the only fatal outcome of a run.
		return nil, err
	}
	if doc.Status == domain.ExtractionFailed {
		slog.Warn("extraction_failed", "stage", "extracting", "file", filename, "reason", doc.FailureReason)
		meta.AnalysisTimeMS = time.Since(start).Milliseconds()
		return &domain.PipelineResult{
			Status:   domain.ResultStatusError,
			Message:  fmt.Sprintf("document could not be processed: %s", doc.FailureReason),
			Metadata: meta,
			States:   append(states, domain.StateCompleted),
		}, nil
	}

	tasks := uc.builder.BuildTasks(doc, query)
	task := tasks.Analysis
	revisions := 0

	for {
		if runCtx.Err() != nil {
			return uc.completeFallback(doc, meta, start, states, "timeout"), nil
		}

		states = append(states, domain.StateAnalyzing)
		draft, err := uc.runAnalysisDetached(runCtx, task)
		if err != nil {
			kind := domain.FailureOther
			if failure, ok := domain.AsBackendFailure(err); ok {
				kind = failure.Kind
			}
			slog.Warn("backend_failure", "stage", "analyzing", "kind", string(kind), "error", err)
			return uc.completeFallback(doc, meta, start, states, string(kind)), nil
		}
		draft.Revision = revisions

		states = append(states, domain.StateVerifying)
		verdict := uc.verifier.Verify(tasks.Verification, draft)

		switch verdict.Status {
		case domain.VerdictApproved:
			meta.Revisions = revisions
			meta.AnalysisTimeMS = time.Since(start).Milliseconds()
			states = append(states, domain.StateApproved, domain.StateCompleted)
			return &domain.PipelineResult{
				Status:           domain.ResultStatusSuccess,
				Analysis:         renderAnalysis(draft),
				ExecutiveSummary: draft.ExecutiveSummary,
				Metadata:         meta,
				States:           states,
			}, nil

		case domain.VerdictRevise:
			if revisions >= uc.limits.MaxRevisions {
				slog.Warn("revision_budget_exhausted",
					"stage", "verifying",
					"revisions", revisions,
					"flagged_claims", len(verdict.FlaggedClaims),
				)
				meta.Revisions = revisions
				states = append(states, domain.StateFallback)
				return uc.completeFallback(doc, meta, start, states, "revision_exhausted"), nil
			}
			revisions++
			states = append(states, domain.StateRevising)
			task = WithRevisionNotes(task, verdict.FlaggedClaims)

		default: // rejected
			meta.Revisions = revisions
			return uc.completeFallback(doc, meta, start, states, "verification_rejected"), nil
		}
	}
}

// runAnalysisDetached abandons an in-flight backend call once the run
// deadline passes. The goroutine finishes on its own; its result is
// discarded.
func (uc *AnalyzeDocumentUseCase) runAnalysisDetached(ctx context.Context, task domain.AnalysisTask) (*domain.DraftAnalysis, error) {
	type outcome struct {
		draft *domain.DraftAnalysis
		err   error
	}
	ch := make(chan outcome, 1)
	go func() {
		draft, err := uc.analyst.RunAnalysis(ctx, task)
		ch <- outcome{draft: draft, err: err}
	}()

	select {
	case <-ctx.Done():
		return nil, domain.NewBackendFailure(domain.FailureTimeout, "analysis", ctx.Err())
	case out := <-ch:
		return out.draft, out.err
	}
}

func (uc *AnalyzeDocumentUseCase) completeFallback(
	doc *domain.SourceDocument,
	meta domain.ResultMetadata,
	start time.Time,
	states []domain.PipelineState,
	reason string,
) *domain.PipelineResult {
	meta.AnalysisTimeMS = time.Since(start).Milliseconds()
	meta.FallbackReason = reason

	result := uc.fallback.MockResult(meta)
	if doc != nil && doc.Text != "" {
		if addendum := screenAddendum(doc.Text); addendum != "" {
			result.Analysis += addendum
		}
	}
	if len(states) == 0 || states[len(states)-1] != domain.StateFallback {
		states = append(states, domain.StateFallback)
	}
	result.States = append(states, domain.StateCompleted)
	return result
}

// screenAddendum grounds the canned fallback in the uploaded document using
// the deterministic keyword screens. Output ordering is fixed.
func screenAddendum(text string) string {
	metrics := ScreenMetrics(text)
	risks := ScreenRisks(text)
	if len(metrics) == 0 && len(risks) == 0 {
		return ""
	}

	var sb strings.Builder
	sb.WriteString("\n\n## Indicators Detected in Document\n")
	names := make([]string, 0, len(metrics))
	for name := range metrics {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		sb.WriteString(fmt.Sprintf("- %s: %s\n", name, metrics[name]))
	}
	for _, risk := range risks {
		sb.WriteString(fmt.Sprintf("- Risk indicator: %s\n", risk))
	}
	return strings.TrimRight(sb.String(), "\n")
}

func renderAnalysis(draft *domain.DraftAnalysis) string {
	var sb strings.Builder

	sb.WriteString("## Financial Overview\n")
	if len(draft.Metrics) == 0 {
		sb.WriteString("No specific financial metrics reported.\n")
	} else {
		names := make([]string, 0, len(draft.Metrics))
		for name := range draft.Metrics {
			names = append(names, name)
		}
		sort.Strings(names)
		for _, name := range names {
			metric := draft.Metrics[name]
			if metric.Trend != "" && metric.Trend != "unknown" {
				sb.WriteString(fmt.Sprintf("- %s: %s (%s)\n", name, metric.Value, metric.Trend))
			} else {
				sb.WriteString(fmt.Sprintf("- %s: %s\n", name, metric.Value))
			}
		}
	}

	sb.WriteString("\n## Risks\n")
	if len(draft.Risks) == 0 {
		sb.WriteString("No significant risks identified in the document.\n")
	} else {
		for _, risk := range draft.Risks {
			sb.WriteString(fmt.Sprintf("- %s\n", risk))
		}
	}

	sb.WriteString("\n## Recommendation\n")
	sb.WriteString(draft.Recommendation)
	sb.WriteString("\n")
	sb.WriteString(fmt.Sprintf("\nConfidence: %.2f\n", draft.Confidence))

	return sb.String()
}
