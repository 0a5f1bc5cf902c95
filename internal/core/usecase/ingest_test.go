package usecase

import (
	"bytes"
	"context"
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/avolkhin/findoc-analyzer/internal/core/domain"
)

type repoFake struct {
	created     *domain.StoredDocument
	createErr   error
	doc         *domain.StoredDocument
	getErr      error
	statusCalls []statusCall
	statusErr   error
}

type statusCall struct {
	status domain.DocumentStatus
	errMsg string
}

func (f *repoFake) Create(_ context.Context, doc *domain.StoredDocument) error {
	if f.createErr != nil {
		return f.createErr
	}
	f.created = doc
	return nil
}

func (f *repoFake) GetByID(context.Context, string) (*domain.StoredDocument, error) {
	if f.getErr != nil {
		return nil, f.getErr
	}
	copyDoc := *f.doc
	return &copyDoc, nil
}

func (f *repoFake) UpdateStatus(_ context.Context, _ string, status domain.DocumentStatus, errMessage string) error {
	f.statusCalls = append(f.statusCalls, statusCall{status: status, errMsg: errMessage})
	return f.statusErr
}

type storageFake struct {
	saved   map[string][]byte
	saveErr error
	openErr error
	removed []string
}

func newStorageFake() *storageFake {
	return &storageFake{saved: make(map[string][]byte)}
}

func (f *storageFake) Save(_ context.Context, key string, data io.Reader) error {
	if f.saveErr != nil {
		return f.saveErr
	}
	raw, err := io.ReadAll(data)
	if err != nil {
		return err
	}
	f.saved[key] = raw
	return nil
}

func (f *storageFake) Open(_ context.Context, key string) (io.ReadCloser, error) {
	if f.openErr != nil {
		return nil, f.openErr
	}
	raw, ok := f.saved[key]
	if !ok {
		return nil, errors.New("not found")
	}
	return io.NopCloser(bytes.NewReader(raw)), nil
}

func (f *storageFake) Remove(_ context.Context, key string) error {
	f.removed = append(f.removed, key)
	delete(f.saved, key)
	return nil
}

type queueFake struct {
	published  []string
	publishErr error
}

func (f *queueFake) PublishDocumentIngested(_ context.Context, documentID string) error {
	if f.publishErr != nil {
		return f.publishErr
	}
	f.published = append(f.published, documentID)
	return nil
}

func (f *queueFake) SubscribeDocumentIngested(context.Context, func(context.Context, string) error) error {
	return nil
}

func testPolicy() UploadPolicy {
	return UploadPolicy{
		MaxFileSizeBytes:  1024,
		AllowedExtensions: []string{".pdf", ".docx", ".xlsx", ".txt"},
	}
}

func TestUploadSuccess(t *testing.T) {
	repo := &repoFake{}
	storage := newStorageFake()
	queue := &queueFake{}
	uc := NewIngestDocumentUseCase(repo, storage, queue, testPolicy())

	doc, err := uc.Upload(context.Background(), "Q3 report.pdf", "application/pdf", "focus on margins", strings.NewReader("pdf bytes"))
	if err != nil {
		t.Fatalf("Upload: %v", err)
	}
	if doc.ID == "" {
		t.Fatal("document must get an id")
	}
	if doc.Status != domain.StatusUploaded {
		t.Fatalf("status = %q, want uploaded", doc.Status)
	}
	if doc.Query != "focus on margins" {
		t.Fatalf("query = %q", doc.Query)
	}
	if strings.Contains(doc.StoragePath, " ") {
		t.Fatalf("storage key %q not sanitized", doc.StoragePath)
	}
	if _, ok := storage.saved[doc.StoragePath]; !ok {
		t.Fatal("file bytes not stored")
	}
	if len(queue.published) != 1 || queue.published[0] != doc.ID {
		t.Fatalf("published = %v, want [%s]", queue.published, doc.ID)
	}
	if repo.created == nil || repo.created.SizeBytes != int64(len("pdf bytes")) {
		t.Fatalf("persisted record wrong: %+v", repo.created)
	}
}

func TestUploadRejectsDisallowedExtension(t *testing.T) {
	uc := NewIngestDocumentUseCase(&repoFake{}, newStorageFake(), &queueFake{}, testPolicy())

	_, err := uc.Upload(context.Background(), "malware.exe", "application/octet-stream", "", strings.NewReader("x"))
	if !domain.IsKind(err, domain.ErrInvalidInput) {
		t.Fatalf("err = %v, want invalid input", err)
	}
}

func TestUploadRejectsOversizedFile(t *testing.T) {
	storage := newStorageFake()
	uc := NewIngestDocumentUseCase(&repoFake{}, storage, &queueFake{}, testPolicy())

	big := strings.Repeat("a", 2048)
	_, err := uc.Upload(context.Background(), "big.pdf", "application/pdf", "", strings.NewReader(big))
	if !domain.IsKind(err, domain.ErrInvalidInput) {
		t.Fatalf("err = %v, want invalid input", err)
	}
	if len(storage.saved) != 0 {
		t.Fatal("oversized upload must not reach storage")
	}
}

func TestUploadRejectsEmptyFile(t *testing.T) {
	uc := NewIngestDocumentUseCase(&repoFake{}, newStorageFake(), &queueFake{}, testPolicy())

	_, err := uc.Upload(context.Background(), "empty.pdf", "application/pdf", "", strings.NewReader(""))
	if !domain.IsKind(err, domain.ErrInvalidInput) {
		t.Fatalf("err = %v, want invalid input", err)
	}
}

func TestUploadPublishFailure(t *testing.T) {
	queue := &queueFake{publishErr: errors.New("nats down")}
	uc := NewIngestDocumentUseCase(&repoFake{}, newStorageFake(), queue, testPolicy())

	_, err := uc.Upload(context.Background(), "q3.pdf", "application/pdf", "", strings.NewReader("x"))
	if err == nil || !strings.Contains(err.Error(), "publish ingestion event") {
		t.Fatalf("err = %v, want publish failure", err)
	}
}

func TestSanitizeFilename(t *testing.T) {
	cases := map[string]string{
		"Q3 report (final).pdf": "Q3_report__final_.pdf",
		"../../../etc/passwd":   "passwd",
		"отчёт.pdf":             "_____.pdf",
	}
	for in, want := range cases {
		if got := sanitizeFilename(in); got != want {
			t.Fatalf("sanitizeFilename(%q) = %q, want %q", in, got, want)
		}
	}
}
