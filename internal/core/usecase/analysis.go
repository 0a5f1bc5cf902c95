package usecase

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"github.com/avolkhin/findoc-analyzer/internal/core/domain"
	"github.com/avolkhin/findoc-analyzer/internal/core/ports"
)

// AnalysisStageRunner drives the model backend to a structured draft. It
// tolerates malformed completions by re-asking up to the configured
// iteration budget; everything else becomes a typed BackendFailure for the
// orchestrator to branch on.
type AnalysisStageRunner struct {
	backend       ports.ModelBackend
	maxIterations int
}

func NewAnalysisStageRunner(backend ports.ModelBackend, maxIterations int) *AnalysisStageRunner {
	if maxIterations <= 1 {
		// A single iteration cannot recover from a malformed completion.
		maxIterations = 3
	}
	return &AnalysisStageRunner{backend: backend, maxIterations: maxIterations}
}

func (r *AnalysisStageRunner) RunAnalysis(ctx context.Context, task domain.AnalysisTask) (*domain.DraftAnalysis, error) {
	userPrompt := task.UserPrompt
	var lastErr error

	for iteration := 1; iteration <= r.maxIterations; iteration++ {
		if err := ctx.Err(); err != nil {
			return nil, domain.NewBackendFailure(domain.FailureTimeout, "analysis", err)
		}

		raw, err := r.backend.Invoke(ctx, task.SystemPrompt, userPrompt)
		if err != nil {
			return nil, err
		}

		draft, err := parseDraft(raw)
		if err == nil {
			return draft, nil
		}

		lastErr = err
		slog.Warn("draft_parse_failed",
			"stage", "analysis",
			"iteration", iteration,
			"max_iterations", r.maxIterations,
			"error", err,
		)
		userPrompt = task.UserPrompt + fmt.Sprintf(
			"\n\nYour previous response was not a valid JSON object (%v). Respond again with exactly one JSON object per schema.", err)
	}

	return nil, domain.NewBackendFailure(domain.FailureInvalidResponse, "analysis", lastErr)
}

func parseDraft(raw string) (*domain.DraftAnalysis, error) {
	var draft domain.DraftAnalysis
	if err := json.Unmarshal([]byte(extractJSONObject(raw)), &draft); err != nil {
		return nil, fmt.Errorf("parse draft json: %w", err)
	}
	if draft.Metrics == nil {
		draft.Metrics = map[string]domain.MetricValue{}
	}
	if draft.Risks == nil {
		draft.Risks = []string{}
	}
	if strings.TrimSpace(draft.Recommendation) == "" {
		return nil, fmt.Errorf("draft missing recommendation")
	}
	if strings.TrimSpace(draft.ExecutiveSummary) == "" {
		return nil, fmt.Errorf("draft missing executive summary")
	}
	if draft.Confidence < 0 {
		draft.Confidence = 0
	}
	if draft.Confidence > 1 {
		draft.Confidence = 1
	}
	return &draft, nil
}

func extractJSONObject(raw string) string {
	start := strings.Index(raw, "{")
	end := strings.LastIndex(raw, "}")
	if start >= 0 && end > start {
		return raw[start : end+1]
	}
	return raw
}
