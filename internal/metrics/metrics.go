// Package metrics provides Prometheus instrumentation for generation runs.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const (
	statusSuccess = "success"
	statusError   = "error"
)

// Recorder records pipeline metrics. Implementations must be safe for concurrent use.
type Recorder interface {
	// ObserveLLMRequest records one model call for a pipeline stage (outline, slide).
	ObserveLLMRequest(model, stage string, success bool, errorType string, duration time.Duration)

	// IncSlide counts one generated slide by source (ok, fallback).
	IncSlide(source string)

	// IncCollectorRead counts one collector read by step and outcome.
	IncCollectorRead(step string, success bool)

	// IncRun counts one finished run by final status.
	IncRun(status string)

	// IncImage counts one enrichment attempt.
	IncImage(success bool)
}

// PrometheusRecorder implements Recorder using Prometheus metrics.
type PrometheusRecorder struct {
	llmRequestsTotal   *prometheus.CounterVec
	llmRequestDuration *prometheus.HistogramVec
	slidesTotal        *prometheus.CounterVec
	collectorReads     *prometheus.CounterVec
	runsTotal          *prometheus.CounterVec
	imagesTotal        *prometheus.CounterVec
}

// NewPrometheusRecorder registers the pitch metrics with reg.
// Pass prometheus.DefaultRegisterer to expose them on the default /metrics handler.
func NewPrometheusRecorder(reg prometheus.Registerer) *PrometheusRecorder {
	factory := promauto.With(reg)

	return &PrometheusRecorder{
		llmRequestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "pitch_llm_requests_total",
				Help: "Total number of LLM requests by model, pipeline stage, and status",
			},
			[]string{"model", "stage", "status", "error_type"},
		),
		llmRequestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "pitch_llm_request_duration_seconds",
				Help:    "Duration of LLM requests in seconds",
				Buckets: []float64{0.5, 1, 2.5, 5, 10, 20, 40, 80, 160},
			},
			[]string{"model", "stage"},
		),
		slidesTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "pitch_slides_total",
				Help: "Total number of slides produced, by source",
			},
			[]string{"source"},
		),
		collectorReads: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "pitch_collector_reads_total",
				Help: "Total number of project data reads by step and status",
			},
			[]string{"step", "status"},
		),
		runsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "pitch_runs_total",
				Help: "Total number of generation runs by final status",
			},
			[]string{"status"},
		),
		imagesTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "pitch_images_total",
				Help: "Total number of image enrichment attempts by status",
			},
			[]string{"status"},
		),
	}
}

// ObserveLLMRequest records metrics for a completed LLM request.
func (p *PrometheusRecorder) ObserveLLMRequest(model, stage string, success bool, errorType string, duration time.Duration) {
	p.llmRequestsTotal.WithLabelValues(model, stage, statusLabel(success), errorType).Inc()
	p.llmRequestDuration.WithLabelValues(model, stage).Observe(duration.Seconds())
}

// IncSlide increments the slide counter.
func (p *PrometheusRecorder) IncSlide(source string) {
	p.slidesTotal.WithLabelValues(source).Inc()
}

// IncCollectorRead increments the collector read counter.
func (p *PrometheusRecorder) IncCollectorRead(step string, success bool) {
	p.collectorReads.WithLabelValues(step, statusLabel(success)).Inc()
}

// IncRun increments the run counter.
func (p *PrometheusRecorder) IncRun(status string) {
	p.runsTotal.WithLabelValues(status).Inc()
}

// IncImage increments the image enrichment counter.
func (p *PrometheusRecorder) IncImage(success bool) {
	p.imagesTotal.WithLabelValues(statusLabel(success)).Inc()
}

func statusLabel(success bool) string {
	if success {
		return statusSuccess
	}
	return statusError
}

// NoopRecorder implements Recorder with no-op behavior for when metrics are disabled.
type NoopRecorder struct{}

// Nop returns a no-op metrics recorder that discards all metrics.
func Nop() Recorder {
	return &NoopRecorder{}
}

// ObserveLLMRequest does nothing in the no-op recorder.
func (n *NoopRecorder) ObserveLLMRequest(_, _ string, _ bool, _ string, _ time.Duration) {}

// IncSlide does nothing in the no-op recorder.
func (n *NoopRecorder) IncSlide(_ string) {}

// IncCollectorRead does nothing in the no-op recorder.
func (n *NoopRecorder) IncCollectorRead(_ string, _ bool) {}

// IncRun does nothing in the no-op recorder.
func (n *NoopRecorder) IncRun(_ string) {}

// IncImage does nothing in the no-op recorder.
func (n *NoopRecorder) IncImage(_ bool) {}
