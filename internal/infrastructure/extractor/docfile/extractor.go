package docfile

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/google/uuid"

	"github.com/avolkhin/findoc-analyzer/internal/core/domain"
)

// Extractor converts raw upload bytes into a normalized SourceDocument.
// Malformed input is reported through the extraction status; parser panics
// from third-party readers are contained here and never cross the boundary.
type Extractor struct {
	maxSizeBytes int64
}

func New(maxSizeBytes int64) *Extractor {
	if maxSizeBytes <= 0 {
		maxSizeBytes = 10 * 1024 * 1024
	}
	return &Extractor{maxSizeBytes: maxSizeBytes}
}

func (e *Extractor) Extract(ctx context.Context, filename, mimeType string, raw []byte) (*domain.SourceDocument, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if len(raw) == 0 {
		return nil, domain.WrapError(domain.ErrInvalidInput, "extract", errors.New("empty file"))
	}
	if int64(len(raw)) > e.maxSizeBytes {
		return nil, domain.WrapError(domain.ErrInvalidInput, "extract",
			fmt.Errorf("file size %d exceeds limit %d", len(raw), e.maxSizeBytes))
	}

	doc := &domain.SourceDocument{
		ID:       uuid.NewString(),
		Filename: filename,
		MimeType: mimeType,
		RawSize:  int64(len(raw)),
	}

	text, err := e.extractByFormat(filename, raw)
	if err != nil {
		doc.Status = domain.ExtractionFailed
		doc.FailureReason = err.Error()
		return doc, nil
	}

	normalized, lossy := NormalizeText(text)
	if strings.TrimSpace(normalized) == "" {
		doc.Status = domain.ExtractionFailed
		doc.FailureReason = "document contains no extractable text"
		return doc, nil
	}

	doc.Text = normalized
	doc.Status = domain.ExtractionOK
	if lossy {
		doc.Status = domain.ExtractionTruncated
		doc.FailureReason = "some characters could not be decoded and were replaced"
	}
	return doc, nil
}

func (e *Extractor) extractByFormat(filename string, raw []byte) (text string, err error) {
	// Third-party parsers are not panic-safe on corrupted input.
	defer func() {
		if r := recover(); r != nil {
			text = ""
			err = fmt.Errorf("document parser aborted: %v", r)
		}
	}()

	switch detectFormat(filename, raw) {
	case formatPDF:
		return extractPDF(raw)
	case formatDOCX:
		return extractDOCX(raw)
	case formatXLSX:
		return extractXLSX(raw)
	case formatText:
		return decodePlainText(raw)
	default:
		return "", fmt.Errorf("unsupported document format: %s", filepath.Ext(filename))
	}
}

type fileFormat int

const (
	formatUnknown fileFormat = iota
	formatPDF
	formatDOCX
	formatXLSX
	formatText
)

func detectFormat(filename string, raw []byte) fileFormat {
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".pdf":
		return formatPDF
	case ".docx", ".doc":
		return formatDOCX
	case ".xlsx":
		return formatXLSX
	case ".txt", ".md", ".csv":
		return formatText
	}

	// Extension missing or unknown: sniff the magic bytes.
	if bytes.HasPrefix(raw, []byte("%PDF-")) {
		return formatPDF
	}
	if bytes.HasPrefix(raw, []byte("PK\x03\x04")) {
		return formatDOCX
	}
	return formatUnknown
}
