package domain

import "time"

// AnalysisRequest ties one uploaded document to one pipeline run. It is never
// shared across requests.
type AnalysisRequest struct {
	Document  *SourceDocument
	Query     string
	CreatedAt time.Time
}

// TaskSet holds the instruction payloads for the model-calling stages.
// Built once per run by the task builder; the pipeline mutates only
// Analysis.RevisionNotes between revisions.
type TaskSet struct {
	Analysis     AnalysisTask
	Verification VerificationTask
}

type AnalysisTask struct {
	SystemPrompt  string
	UserPrompt    string
	RevisionNotes []string
}

type VerificationTask struct {
	Instructions string
	SourceText   string
}

// MetricValue is one extracted financial metric with its reported trend.
type MetricValue struct {
	Value string `json:"value"`
	Trend string `json:"trend,omitempty"`
}

// DraftAnalysis is the unverified model output. The verification runner is
// the only component allowed to send it back for revision; once a verdict of
// approved is reached it is treated as immutable.
type DraftAnalysis struct {
	Metrics          map[string]MetricValue `json:"metrics"`
	Risks            []string               `json:"risks"`
	Recommendation   string                 `json:"recommendation"`
	ExecutiveSummary string                 `json:"executive_summary"`
	Confidence       float64                `json:"confidence"`
	Revision         int                    `json:"-"`
}

type VerdictStatus string

const (
	VerdictApproved VerdictStatus = "approved"
	VerdictRevise   VerdictStatus = "revise"
	VerdictRejected VerdictStatus = "rejected"
)

// FlaggedClaim is a draft statement that could not be traced to the source.
type FlaggedClaim struct {
	Claim  string `json:"claim"`
	Reason string `json:"reason"`
}

// VerificationVerdict is produced once per verification pass. A new draft
// revision invalidates the prior verdict.
type VerificationVerdict struct {
	Status        VerdictStatus  `json:"status"`
	FlaggedClaims []FlaggedClaim `json:"flagged_claims,omitempty"`
}

func (v VerificationVerdict) Approved() bool { return v.Status == VerdictApproved }

type PipelineState string

const (
	StateReceived   PipelineState = "received"
	StateExtracting PipelineState = "extracting"
	StateAnalyzing  PipelineState = "analyzing"
	StateVerifying  PipelineState = "verifying"
	StateRevising   PipelineState = "revising"
	StateApproved   PipelineState = "approved"
	StateFallback   PipelineState = "fallback"
	StateCompleted  PipelineState = "completed"
)

// ResultMetadata is the response metadata block exposed to HTTP callers.
type ResultMetadata struct {
	FileName       string `json:"file_name"`
	FileSize       int64  `json:"file_size"`
	AnalysisTimeMS int64  `json:"analysis_time_ms"`
	FallbackUsed   bool   `json:"fallback_used"`
	Revisions      int    `json:"revisions,omitempty"`
	FallbackReason string `json:"fallback_reason,omitempty"`
}

// PipelineResult is the terminal artifact of one request. Every path except a
// validation failure resolves to a well-formed result.
type PipelineResult struct {
	Status           string         `json:"status"`
	Analysis         string         `json:"analysis"`
	ExecutiveSummary string         `json:"executive_summary"`
	Message          string         `json:"message,omitempty"`
	Metadata         ResultMetadata `json:"metadata"`

	States []PipelineState `json:"-"`
}

const (
	ResultStatusSuccess = "success"
	ResultStatusError   = "error"
)
