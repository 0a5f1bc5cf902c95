package httpadapter

import (
	"encoding/json"
	"io"
	"net/http"
	"path/filepath"
	"strings"
	"time"

	"github.com/avolkhin/findoc-analyzer/internal/core/ports"
	"github.com/avolkhin/findoc-analyzer/internal/observability/metrics"
)

type Router struct {
	analyzer ports.DocumentAnalyzer
	ingestor ports.DocumentIngestor
	reader   ports.DocumentReader
	options  Options
}

type Options struct {
	ServiceName       string
	MaxUploadBytes    int64
	AllowedExtensions []string
	RateLimitRPS      float64
	RateLimitBurst    int
	MaxConcurrent     int
	HTTPMetrics       *metrics.HTTPServerMetrics
	PipelineMetrics   *metrics.PipelineMetrics
}

func NewRouter(
	analyzer ports.DocumentAnalyzer,
	ingestor ports.DocumentIngestor,
	reader ports.DocumentReader,
	options Options,
) *Router {
	if options.ServiceName == "" {
		options.ServiceName = "findoc-api"
	}
	return &Router{
		analyzer: analyzer,
		ingestor: ingestor,
		reader:   reader,
		options:  options,
	}
}

func (rt *Router) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", rt.healthz)
	mux.HandleFunc("/v1/analyze", rt.analyzeDocument)
	mux.HandleFunc("/v1/documents", rt.uploadDocument)
	mux.HandleFunc("/v1/documents/", rt.getDocument)
	if rt.options.HTTPMetrics != nil {
		mux.Handle("/metrics", rt.options.HTTPMetrics.Handler())
	}

	var handler http.Handler = mux
	handler = backpressureMiddleware(handler, rt.options.MaxConcurrent, 50*time.Millisecond)
	handler = rateLimitMiddleware(handler, rt.options.RateLimitRPS, rt.options.RateLimitBurst)
	if rt.options.HTTPMetrics != nil {
		handler = rt.options.HTTPMetrics.Middleware(rt.options.ServiceName, handler)
	}
	handler = accessLogMiddleware(handler)
	handler = requestIDMiddleware(handler)
	return handler
}

func (rt *Router) healthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// analyzeDocument runs the whole pipeline within the request and returns the
// terminal result. Fallback results are a 200: the response schema is the
// contract, the metadata says how it was produced.
func (rt *Router) analyzeDocument(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "method not allowed"})
		return
	}

	if rt.options.MaxUploadBytes > 0 {
		// Extra headroom for the multipart framing around the file part.
		r.Body = http.MaxBytesReader(w, r.Body, rt.options.MaxUploadBytes+64*1024)
	}

	file, fileHeader, err := r.FormFile("file")
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "multipart field 'file' is required"})
		return
	}
	defer file.Close()

	// Disallowed file types are rejected here; the pipeline never starts.
	if !rt.extensionAllowed(fileHeader.Filename) {
		writeJSON(w, http.StatusBadRequest, map[string]string{
			"error": "unsupported file type " + strings.ToLower(filepath.Ext(fileHeader.Filename)),
		})
		return
	}

	raw, err := io.ReadAll(file)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "failed to read uploaded file"})
		return
	}

	start := time.Now()
	if rt.options.PipelineMetrics != nil {
		rt.options.PipelineMetrics.StartRun()
	}

	result, err := rt.analyzer.Analyze(
		r.Context(),
		fileHeader.Filename,
		fileHeader.Header.Get("Content-Type"),
		raw,
		r.FormValue("query"),
	)

	if rt.options.PipelineMetrics != nil {
		rt.options.PipelineMetrics.FinishRun(rt.options.ServiceName, time.Since(start), result, err)
	}

	if err != nil {
		writeJSON(w, mapErrorToHTTPStatus(err), map[string]string{"error": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, result)
}

// extensionAllowed mirrors the upload policy: an empty list means no
// restriction.
func (rt *Router) extensionAllowed(filename string) bool {
	if len(rt.options.AllowedExtensions) == 0 {
		return true
	}
	ext := strings.ToLower(filepath.Ext(filename))
	for _, allowed := range rt.options.AllowedExtensions {
		if ext == strings.ToLower(allowed) {
			return true
		}
	}
	return false
}

func (rt *Router) uploadDocument(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "method not allowed"})
		return
	}

	if rt.options.MaxUploadBytes > 0 {
		r.Body = http.MaxBytesReader(w, r.Body, rt.options.MaxUploadBytes+64*1024)
	}

	file, fileHeader, err := r.FormFile("file")
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "multipart field 'file' is required"})
		return
	}
	defer file.Close()

	doc, err := rt.ingestor.Upload(
		r.Context(),
		fileHeader.Filename,
		fileHeader.Header.Get("Content-Type"),
		r.FormValue("query"),
		file,
	)
	if err != nil {
		writeJSON(w, mapErrorToHTTPStatus(err), map[string]string{"error": err.Error()})
		return
	}

	writeJSON(w, http.StatusAccepted, doc)
}

func (rt *Router) getDocument(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "method not allowed"})
		return
	}

	rest := strings.TrimPrefix(r.URL.Path, "/v1/documents/")
	id, wantResult := strings.CutSuffix(rest, "/result")
	id = strings.TrimSuffix(id, "/")
	if id == "" || strings.Contains(id, "/") {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "document id is required"})
		return
	}

	if wantResult {
		result, err := rt.reader.GetResult(r.Context(), id)
		if err != nil {
			writeJSON(w, mapErrorToHTTPStatus(err), map[string]string{"error": err.Error()})
			return
		}
		writeJSON(w, http.StatusOK, result)
		return
	}

	doc, err := rt.reader.GetByID(r.Context(), id)
	if err != nil {
		writeJSON(w, mapErrorToHTTPStatus(err), map[string]string{"error": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, doc)
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
