package main

import (
	"context"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	httpadapter "github.com/avolkhin/findoc-analyzer/internal/adapters/http"
	"github.com/avolkhin/findoc-analyzer/internal/bootstrap"
	"github.com/avolkhin/findoc-analyzer/internal/config"
	"github.com/avolkhin/findoc-analyzer/internal/observability/logging"
	"github.com/avolkhin/findoc-analyzer/internal/observability/metrics"
)

func main() {
	cfg := config.Load()
	slog.SetDefault(logging.NewJSONLogger("findoc-api", cfg.LogLevel))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	app, err := bootstrap.New(ctx, cfg)
	if err != nil {
		log.Fatalf("bootstrap error: %v", err)
	}
	defer app.Close()

	router := httpadapter.NewRouter(app.AnalyzeUC, app.IngestUC, app.ReadUC, httpadapter.Options{
		ServiceName:       "findoc-api",
		MaxUploadBytes:    cfg.MaxFileSizeBytes,
		AllowedExtensions: cfg.AllowedExtensions,
		RateLimitRPS:      cfg.APIRateLimitRPS,
		RateLimitBurst:    cfg.APIRateLimitBurst,
		MaxConcurrent:     cfg.APIMaxConcurrent,
		HTTPMetrics:       metrics.NewHTTPServerMetrics("findoc-api"),
		PipelineMetrics:   metrics.NewPipelineMetrics("findoc-api"),
	}).Handler()

	server := &http.Server{
		Addr:    ":" + cfg.APIPort,
		Handler: router,
		// The sync analyze endpoint holds the connection for a full
		// pipeline run, so the write timeout must exceed it.
		ReadTimeout:  30 * time.Second,
		WriteTimeout: cfg.PipelineTimeout + 30*time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Printf("api listening on :%s", cfg.APIPort)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("api server error: %v", err)
		}
	}()

	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Printf("api shutdown error: %v", err)
	}
}
