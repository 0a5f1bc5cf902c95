package docfile

import (
	"archive/zip"
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/avolkhin/findoc-analyzer/internal/core/domain"
)

func buildDOCX(t *testing.T, paragraphs []string) []byte {
	t.Helper()

	var body strings.Builder
	body.WriteString(`<?xml version="1.0" encoding="UTF-8" standalone="yes"?>`)
	body.WriteString(`<w:document xmlns:w="http://schemas.openxmlformats.org/wordprocessingml/2006/main"><w:body>`)
	for _, p := range paragraphs {
		body.WriteString(`<w:p><w:r><w:t>`)
		if err := escapeXML(&body, p); err != nil {
			t.Fatalf("escape paragraph: %v", err)
		}
		body.WriteString(`</w:t></w:r></w:p>`)
	}
	body.WriteString(`</w:body></w:document>`)

	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	f, err := zw.Create("word/document.xml")
	if err != nil {
		t.Fatalf("create zip entry: %v", err)
	}
	if _, err := f.Write([]byte(body.String())); err != nil {
		t.Fatalf("write zip entry: %v", err)
	}
	if err := zw.Close(); err != nil {
		t.Fatalf("close zip: %v", err)
	}
	return buf.Bytes()
}

func escapeXML(sb *strings.Builder, s string) error {
	replacer := strings.NewReplacer("&", "&amp;", "<", "&lt;", ">", "&gt;")
	_, err := replacer.WriteString(sb, s)
	return err
}

func TestExtractRejectsEmptyInput(t *testing.T) {
	e := New(1024)
	_, err := e.Extract(context.Background(), "report.pdf", "application/pdf", nil)
	if !domain.IsKind(err, domain.ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput for empty file, got %v", err)
	}
}

func TestExtractRejectsOversizeInput(t *testing.T) {
	e := New(8)
	_, err := e.Extract(context.Background(), "report.pdf", "application/pdf", make([]byte, 9))
	if !domain.IsKind(err, domain.ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput for oversize file, got %v", err)
	}
}

func TestExtractCorruptedPDFReturnsFailedStatus(t *testing.T) {
	e := New(1024)
	doc, err := e.Extract(context.Background(), "broken.pdf", "application/pdf", []byte("%PDF-1.4 garbage"))
	if err != nil {
		t.Fatalf("corrupted input must not raise past the boundary, got %v", err)
	}
	if doc.Status != domain.ExtractionFailed {
		t.Fatalf("expected failed status, got %s", doc.Status)
	}
	if doc.FailureReason == "" {
		t.Fatalf("expected diagnostic reason for failed extraction")
	}
}

func TestExtractDOCXParagraphs(t *testing.T) {
	raw := buildDOCX(t, []string{
		"Q2 revenue was €1.2B, up 15% YoY.",
		"Net income reached ¥150M.",
	})

	e := New(int64(len(raw)) + 1)
	doc, err := e.Extract(context.Background(), "report.docx", "application/vnd.openxmlformats-officedocument.wordprocessingml.document", raw)
	if err != nil {
		t.Fatalf("Extract() error = %v", err)
	}
	if doc.Status != domain.ExtractionOK {
		t.Fatalf("expected ok status, got %s (%s)", doc.Status, doc.FailureReason)
	}
	if !strings.Contains(doc.Text, "€1.2B") {
		t.Fatalf("currency symbol lost in extraction: %q", doc.Text)
	}
	if !strings.Contains(doc.Text, "¥150M") {
		t.Fatalf("non-ASCII figure lost in extraction: %q", doc.Text)
	}
}

func TestExtractDOCXMissingDocumentXML(t *testing.T) {
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	f, _ := zw.Create("other.xml")
	_, _ = f.Write([]byte("<x/>"))
	_ = zw.Close()

	e := New(1024)
	doc, err := e.Extract(context.Background(), "weird.docx", "", buf.Bytes())
	if err != nil {
		t.Fatalf("Extract() error = %v", err)
	}
	if doc.Status != domain.ExtractionFailed {
		t.Fatalf("expected failed status, got %s", doc.Status)
	}
}

func TestExtractPlainTextUTF16(t *testing.T) {
	// "Revenue €5M" in UTF-16LE with BOM.
	text := "Revenue €5M"
	raw := []byte{0xFF, 0xFE}
	for _, r := range utf16Encode(text) {
		raw = append(raw, byte(r), byte(r>>8))
	}

	e := New(1024)
	doc, err := e.Extract(context.Background(), "summary.txt", "text/plain", raw)
	if err != nil {
		t.Fatalf("Extract() error = %v", err)
	}
	if doc.Status != domain.ExtractionOK {
		t.Fatalf("expected ok status, got %s (%s)", doc.Status, doc.FailureReason)
	}
	if doc.Text != "Revenue €5M" {
		t.Fatalf("unexpected decoded text: %q", doc.Text)
	}
}

func utf16Encode(s string) []uint16 {
	out := make([]uint16, 0, len(s))
	for _, r := range s {
		out = append(out, uint16(r))
	}
	return out
}

func TestNormalizeTextCollapsesWhitespaceAndKeepsFigures(t *testing.T) {
	in := "Revenue:\t $1.2B\r\n\r\n\r\nNet   income: €150M\x00"
	got, lossy := NormalizeText(in)
	if lossy {
		t.Fatalf("valid UTF-8 must not be reported lossy")
	}
	if strings.Contains(got, "\x00") {
		t.Fatalf("control characters must be stripped: %q", got)
	}
	if !strings.Contains(got, "$1.2B") || !strings.Contains(got, "€150M") {
		t.Fatalf("figures altered by normalization: %q", got)
	}
	if strings.Contains(got, "  ") {
		t.Fatalf("whitespace runs must collapse: %q", got)
	}
}

func TestNormalizeTextReportsLossyInput(t *testing.T) {
	_, lossy := NormalizeText("ok\xff\xfebroken")
	if !lossy {
		t.Fatalf("invalid UTF-8 must be reported lossy")
	}
}
