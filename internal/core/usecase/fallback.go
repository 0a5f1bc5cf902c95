package usecase

import (
	_ "embed"
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/avolkhin/findoc-analyzer/internal/core/domain"
)

//go:embed sample_result.yaml
var sampleResultYAML []byte

type samplePayload struct {
	Analysis         string `yaml:"analysis"`
	ExecutiveSummary string `yaml:"executive_summary"`
	Message          string `yaml:"message"`
}

// MockResponder produces the deterministic offline result. Same schema as a
// real pipeline result, always marked fallback_used so callers can tell
// sample data from model-grounded analysis.
type MockResponder struct {
	payload samplePayload
}

func NewMockResponder() (*MockResponder, error) {
	var payload samplePayload
	if err := yaml.Unmarshal(sampleResultYAML, &payload); err != nil {
		return nil, fmt.Errorf("parse sample result fixture: %w", err)
	}
	if strings.TrimSpace(payload.Analysis) == "" || strings.TrimSpace(payload.ExecutiveSummary) == "" {
		return nil, fmt.Errorf("sample result fixture incomplete")
	}
	return &MockResponder{payload: payload}, nil
}

func (m *MockResponder) MockResult(meta domain.ResultMetadata) *domain.PipelineResult {
	meta.FallbackUsed = true
	return &domain.PipelineResult{
		Status:           domain.ResultStatusSuccess,
		Analysis:         strings.TrimSpace(m.payload.Analysis),
		ExecutiveSummary: strings.TrimSpace(m.payload.ExecutiveSummary),
		Message:          m.payload.Message,
		Metadata:         meta,
	}
}
