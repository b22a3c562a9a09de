// Package metrics provides Prometheus metrics export for the HTTP API.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Upstream names used as label values.
const (
	UpstreamEmbedding = "embedding"
	UpstreamDatastore = "datastore"
	UpstreamSlack     = "slack"
)

// PrometheusExporter exports API metrics in Prometheus format.
type PrometheusExporter struct {
	registry *prometheus.Registry

	// HTTP API metrics
	requestLatency *prometheus.HistogramVec
	requests       *prometheus.CounterVec

	// Outbound call metrics
	upstreamCalls   *prometheus.CounterVec
	upstreamLatency *prometheus.HistogramVec

	// Reply policy metrics
	truncations  prometheus.Counter
	rateLimitHit prometheus.Counter
}

// Config configures the Prometheus exporter.
type Config struct {
	// Registry to use (if nil, creates a new one)
	Registry *prometheus.Registry

	// Buckets for latency histograms (in seconds)
	LatencyBuckets []float64
}

// DefaultConfig returns default Prometheus configuration.
func DefaultConfig() Config {
	return Config{
		LatencyBuckets: []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10, 30},
	}
}

// NewPrometheusExporter creates a new Prometheus metrics exporter.
func NewPrometheusExporter(cfg Config) *PrometheusExporter {
	if len(cfg.LatencyBuckets) == 0 {
		cfg.LatencyBuckets = DefaultConfig().LatencyBuckets
	}

	registry := cfg.Registry
	if registry == nil {
		registry = prometheus.NewRegistry()
	}

	e := &PrometheusExporter{registry: registry}

	e.requestLatency = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "slackqa",
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request latency in seconds",
			Buckets:   cfg.LatencyBuckets,
		},
		[]string{"method", "route"},
	)

	e.requests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "slackqa",
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total number of HTTP requests",
		},
		[]string{"method", "route", "status"},
	)

	e.upstreamCalls = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "slackqa",
			Subsystem: "upstream",
			Name:      "calls_total",
			Help:      "Total number of outbound calls by upstream and outcome",
		},
		[]string{"upstream", "outcome"},
	)

	e.upstreamLatency = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "slackqa",
			Subsystem: "upstream",
			Name:      "call_duration_seconds",
			Help:      "Outbound call latency in seconds",
			Buckets:   cfg.LatencyBuckets,
		},
		[]string{"upstream"},
	)

	e.truncations = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "slackqa",
		Subsystem: "reply",
		Name:      "truncations_total",
		Help:      "Replies whose answer exceeded the word limit",
	})

	e.rateLimitHit = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "slackqa",
		Subsystem: "reply",
		Name:      "rate_limited_total",
		Help:      "Slack posts rejected with 429",
	})

	registry.MustRegister(
		e.requestLatency,
		e.requests,
		e.upstreamCalls,
		e.upstreamLatency,
		e.truncations,
		e.rateLimitHit,
	)

	return e
}

// RecordRequest records a served HTTP request.
func (e *PrometheusExporter) RecordRequest(method, route, status string, latency time.Duration) {
	e.requests.WithLabelValues(method, route, status).Inc()
	e.requestLatency.WithLabelValues(method, route).Observe(latency.Seconds())
}

// RecordUpstream records an outbound call.
func (e *PrometheusExporter) RecordUpstream(upstream string, latency time.Duration, err error) {
	outcome := "success"
	if err != nil {
		outcome = "error"
	}
	e.upstreamCalls.WithLabelValues(upstream, outcome).Inc()
	e.upstreamLatency.WithLabelValues(upstream).Observe(latency.Seconds())
}

// RecordTruncation records a reply truncated by policy.
func (e *PrometheusExporter) RecordTruncation() {
	e.truncations.Inc()
}

// RecordRateLimited records a Slack 429.
func (e *PrometheusExporter) RecordRateLimited() {
	e.rateLimitHit.Inc()
}

// Handler returns the HTTP handler for Prometheus metrics.
func (e *PrometheusExporter) Handler() http.Handler {
	return promhttp.HandlerFor(e.registry, promhttp.HandlerOpts{})
}

// GetRegistry returns the Prometheus registry.
func (e *PrometheusExporter) GetRegistry() *prometheus.Registry {
	return e.registry
}
