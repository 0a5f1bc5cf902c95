package config

import (
	"testing"
	"time"
)

func TestLoadIncludesPipelineDefaults(t *testing.T) {
	t.Setenv("MAX_ANALYSIS_ITERATIONS", "")
	t.Setenv("BACKEND_REQUESTS_PER_MINUTE", "")
	t.Setenv("MAX_VERIFICATION_REVISIONS", "")
	t.Setenv("PIPELINE_TIMEOUT", "")
	t.Setenv("MAX_FILE_SIZE_BYTES", "")

	cfg := Load()
	if cfg.MaxAnalysisIterations != 3 {
		t.Fatalf("expected default analysis iterations 3, got %d", cfg.MaxAnalysisIterations)
	}
	if cfg.BackendRequestsPerMin != 10 {
		t.Fatalf("expected default backend rpm 10, got %d", cfg.BackendRequestsPerMin)
	}
	if cfg.MaxVerificationRevision != 2 {
		t.Fatalf("expected default max revisions 2, got %d", cfg.MaxVerificationRevision)
	}
	if cfg.PipelineTimeout != 120*time.Second {
		t.Fatalf("expected default pipeline timeout 120s, got %v", cfg.PipelineTimeout)
	}
	if cfg.MaxFileSizeBytes != 10*1024*1024 {
		t.Fatalf("expected default max file size 10MiB, got %d", cfg.MaxFileSizeBytes)
	}
}

func TestLoadParsesPipelineOverrides(t *testing.T) {
	t.Setenv("MAX_ANALYSIS_ITERATIONS", "5")
	t.Setenv("BACKEND_REQUESTS_PER_MINUTE", "30")
	t.Setenv("MAX_VERIFICATION_REVISIONS", "4")
	t.Setenv("PIPELINE_TIMEOUT", "45s")
	t.Setenv("ALLOWED_EXTENSIONS", ".PDF, .docx")

	cfg := Load()
	if cfg.MaxAnalysisIterations != 5 {
		t.Fatalf("expected analysis iterations 5, got %d", cfg.MaxAnalysisIterations)
	}
	if cfg.BackendRequestsPerMin != 30 {
		t.Fatalf("expected backend rpm 30, got %d", cfg.BackendRequestsPerMin)
	}
	if cfg.MaxVerificationRevision != 4 {
		t.Fatalf("expected max revisions 4, got %d", cfg.MaxVerificationRevision)
	}
	if cfg.PipelineTimeout != 45*time.Second {
		t.Fatalf("expected pipeline timeout 45s, got %v", cfg.PipelineTimeout)
	}
	if len(cfg.AllowedExtensions) != 2 || cfg.AllowedExtensions[0] != ".pdf" || cfg.AllowedExtensions[1] != ".docx" {
		t.Fatalf("expected normalized extensions [.pdf .docx], got %v", cfg.AllowedExtensions)
	}
}

func TestLoadIgnoresMalformedNumericOverrides(t *testing.T) {
	t.Setenv("BACKEND_REQUESTS_PER_MINUTE", "not-a-number")
	t.Setenv("PIPELINE_TIMEOUT", "soon")

	cfg := Load()
	if cfg.BackendRequestsPerMin != 10 {
		t.Fatalf("expected fallback backend rpm 10, got %d", cfg.BackendRequestsPerMin)
	}
	if cfg.PipelineTimeout != 120*time.Second {
		t.Fatalf("expected fallback pipeline timeout 120s, got %v", cfg.PipelineTimeout)
	}
}
