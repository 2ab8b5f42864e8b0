// Package telemetry holds the prometheus collectors and the otel tracer used by the
// report pipeline and its HTTP surface.
package telemetry

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"
)

const namespace = "channel_profit"

// Metrics groups every collector. Each instance owns its registry so tests can create
// as many as they like.
type Metrics struct {
	registry *prometheus.Registry

	PipelineRuns     *prometheus.CounterVec
	PipelineDuration prometheus.Histogram
	Files            *prometheus.CounterVec
	Sheets           *prometheus.CounterVec
	Rows             *prometheus.CounterVec
	HTTPRequests     *prometheus.CounterVec
	HTTPDuration     *prometheus.HistogramVec
}

// NewMetrics registers the pipeline and HTTP collectors plus the Go runtime collectors.
func NewMetrics() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		PipelineRuns: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "pipeline_runs_total",
			Help:      "Report pipeline runs by result.",
		}, []string{"result"}),
		PipelineDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "pipeline_duration_seconds",
			Help:      "Time to build one report.",
			Buckets:   prometheus.DefBuckets,
		}),
		Files: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "files_total",
			Help:      "Uploaded files by role and read outcome.",
		}, []string{"role", "outcome"}),
		Sheets: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "sheets_total",
			Help:      "Sales sheets by detected layout.",
		}, []string{"layout"}),
		Rows: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "rows_total",
			Help:      "Sales data rows by normalization result.",
		}, []string{"result"}),
		HTTPRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "HTTP requests by route and status code.",
		}, []string{"route", "code"}),
		HTTPDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency by route.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"route"}),
	}

	m.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.PipelineRuns,
		m.PipelineDuration,
		m.Files,
		m.Sheets,
		m.Rows,
		m.HTTPRequests,
		m.HTTPDuration,
	)
	return m
}

// Registry exposes the registry for gathering in tests.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the registry in the prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// ObservePipeline records one pipeline run.
func (m *Metrics) ObservePipeline(result string, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.PipelineRuns.WithLabelValues(result).Inc()
	m.PipelineDuration.Observe(elapsed.Seconds())
}

// ObserveFile records one uploaded file.
func (m *Metrics) ObserveFile(role, outcome string) {
	if m == nil {
		return
	}
	m.Files.WithLabelValues(role, outcome).Inc()
}

// ObserveSheet records the layout detected for one sales sheet.
func (m *Metrics) ObserveSheet(layout string) {
	if m == nil {
		return
	}
	m.Sheets.WithLabelValues(layout).Inc()
}

// AddRows adds n rows to a normalization result.
func (m *Metrics) AddRows(result string, n int) {
	if m == nil || n == 0 {
		return
	}
	m.Rows.WithLabelValues(result).Add(float64(n))
}

// ObserveHTTP records one served request.
func (m *Metrics) ObserveHTTP(route, code string, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.HTTPRequests.WithLabelValues(route, code).Inc()
	m.HTTPDuration.WithLabelValues(route).Observe(elapsed.Seconds())
}

// Tracer returns the named tracer from the global provider. Without an exporter
// configured the global provider is a no-op.
func Tracer(name string) trace.Tracer {
	return otel.Tracer(name)
}
