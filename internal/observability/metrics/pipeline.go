package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/avolkhin/findoc-analyzer/internal/core/domain"
)

// PipelineMetrics covers one analysis run end to end, regardless of whether
// it was triggered synchronously over HTTP or by a queued document.
type PipelineMetrics struct {
	registry *prometheus.Registry

	runsTotal     *prometheus.CounterVec
	runDuration   *prometheus.HistogramVec
	runsInFlight  prometheus.Gauge
	fallbackTotal *prometheus.CounterVec
	revisions     *prometheus.HistogramVec
	queueLag      *prometheus.HistogramVec
}

func NewPipelineMetrics(service string) *PipelineMetrics {
	registry := prometheus.NewRegistry()

	runsTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "findoc",
			Subsystem: "pipeline",
			Name:      "runs_total",
			Help:      "Total pipeline runs by result status.",
		},
		[]string{"service", "status"},
	)
	runDuration := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "findoc",
			Subsystem: "pipeline",
			Name:      "run_duration_seconds",
			Help:      "Pipeline run duration in seconds by result status.",
			Buckets:   []float64{0.5, 1, 2, 5, 10, 20, 40, 60, 90, 120, 180},
		},
		[]string{"service", "status"},
	)
	runsInFlight := prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "findoc",
			Subsystem: "pipeline",
			Name:      "runs_in_flight",
			Help:      "Number of pipeline runs currently executing.",
			ConstLabels: prometheus.Labels{
				"service": service,
			},
		},
	)
	fallbackTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "findoc",
			Subsystem: "pipeline",
			Name:      "fallback_total",
			Help:      "Total runs that returned the offline fallback result, by reason.",
		},
		[]string{"service", "reason"},
	)
	revisions := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "findoc",
			Subsystem: "pipeline",
			Name:      "verification_revisions",
			Help:      "Distribution of verification revision passes per run.",
			Buckets:   []float64{0, 1, 2, 3, 4, 5},
		},
		[]string{"service"},
	)
	queueLag := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "findoc",
			Subsystem: "pipeline",
			Name:      "queue_lag_seconds",
			Help:      "Delay between document upload and processing start.",
			Buckets:   []float64{0.1, 0.5, 1, 2, 5, 10, 30, 60, 120, 300, 600},
		},
		[]string{"service"},
	)

	registry.MustRegister(runsTotal, runDuration, runsInFlight, fallbackTotal, revisions, queueLag)

	return &PipelineMetrics{
		registry:      registry,
		runsTotal:     runsTotal,
		runDuration:   runDuration,
		runsInFlight:  runsInFlight,
		fallbackTotal: fallbackTotal,
		revisions:     revisions,
		queueLag:      queueLag,
	}
}

func (m *PipelineMetrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *PipelineMetrics) StartRun() {
	m.runsInFlight.Inc()
}

// FinishRun records the terminal outcome of one run. A nil result with a
// non-nil err means the run never produced a response payload.
func (m *PipelineMetrics) FinishRun(service string, duration time.Duration, result *domain.PipelineResult, err error) {
	m.runsInFlight.Dec()

	status := "success"
	switch {
	case err != nil:
		status = "error"
	case result != nil && result.Status == domain.ResultStatusError:
		status = "error"
	case result != nil && result.Metadata.FallbackUsed:
		status = "fallback"
	}

	m.runsTotal.WithLabelValues(service, status).Inc()
	m.runDuration.WithLabelValues(service, status).Observe(duration.Seconds())

	if result == nil {
		return
	}
	if result.Metadata.FallbackUsed {
		reason := result.Metadata.FallbackReason
		if reason == "" {
			reason = "unknown"
		}
		m.fallbackTotal.WithLabelValues(service, reason).Inc()
	}
	m.revisions.WithLabelValues(service).Observe(float64(result.Metadata.Revisions))
}

func (m *PipelineMetrics) ObserveQueueLag(service string, lag time.Duration) {
	if lag < 0 {
		return
	}
	m.queueLag.WithLabelValues(service).Observe(lag.Seconds())
}
