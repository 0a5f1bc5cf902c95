package domain

import "time"

type ExtractionStatus string

const (
	ExtractionOK        ExtractionStatus = "ok"
	ExtractionFailed    ExtractionStatus = "failed"
	ExtractionTruncated ExtractionStatus = "truncated"
)

type DocumentStatus string

const (
	StatusUploaded   DocumentStatus = "uploaded"
	StatusProcessing DocumentStatus = "processing"
	StatusAnalyzed   DocumentStatus = "analyzed"
	StatusFailed     DocumentStatus = "failed"
)

// SourceDocument is the extracted form of one uploaded file. It is immutable
// once extraction finishes and owned exclusively by a single pipeline run.
type SourceDocument struct {
	ID            string           `json:"id"`
	Filename      string           `json:"filename"`
	MimeType      string           `json:"mime_type"`
	RawSize       int64            `json:"raw_size"`
	Text          string           `json:"-"`
	Status        ExtractionStatus `json:"extraction_status"`
	FailureReason string           `json:"failure_reason,omitempty"`
}

// StoredDocument is the persisted upload record for the asynchronous path.
type StoredDocument struct {
	ID          string         `json:"id"`
	Filename    string         `json:"filename"`
	MimeType    string         `json:"mime_type"`
	StoragePath string         `json:"storage_path"`
	SizeBytes   int64          `json:"size_bytes"`
	Query       string         `json:"query,omitempty"`
	Status      DocumentStatus `json:"status"`
	Error       string         `json:"error,omitempty"`
	CreatedAt   time.Time      `json:"created_at"`
	UpdatedAt   time.Time      `json:"updated_at"`
}
