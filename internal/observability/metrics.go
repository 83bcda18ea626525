package observability

import (
	"context"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics collects application metrics.
type Metrics interface {
	RecordRequest(ctx context.Context, labels RequestLabels)
	RecordLatency(ctx context.Context, seconds float64, labels RequestLabels)
}

// RequestLabels contains metric dimensions.
type RequestLabels struct {
	Method string
	Route  string
	Status string
}

// NopMetrics discards everything.
type NopMetrics struct{}

func (NopMetrics) RecordRequest(context.Context, RequestLabels)          {}
func (NopMetrics) RecordLatency(context.Context, float64, RequestLabels) {}

// PrometheusMetrics is a Metrics backed by a private Prometheus registry.
type PrometheusMetrics struct {
	registry *prometheus.Registry
	requests *prometheus.CounterVec
	latency  *prometheus.HistogramVec
}

var _ Metrics = (*PrometheusMetrics)(nil)

// NewPrometheusMetrics registers the HTTP collectors plus Go runtime and
// process collectors. inFlight, when non-nil, backs the in-flight gauge.
func NewPrometheusMetrics(inFlight func() int) *PrometheusMetrics {
	reg := prometheus.NewRegistry()

	m := &PrometheusMetrics{
		registry: reg,
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Number of HTTP requests by method, route and status.",
		}, []string{"method", "route", "status"}),
		latency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request latency by method and route.",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "route"}),
	}

	reg.MustRegister(
		m.requests,
		m.latency,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	if inFlight != nil {
		reg.MustRegister(prometheus.NewGaugeFunc(prometheus.GaugeOpts{
			Name: "http_requests_in_flight",
			Help: "Requests that have been received but not yet logged.",
		}, func() float64 { return float64(inFlight()) }))
	}

	return m
}

// RecordRequest increments the request counter.
func (m *PrometheusMetrics) RecordRequest(_ context.Context, labels RequestLabels) {
	m.requests.WithLabelValues(labels.Method, labels.Route, labels.Status).Inc()
}

// RecordLatency observes one request duration.
func (m *PrometheusMetrics) RecordLatency(_ context.Context, seconds float64, labels RequestLabels) {
	m.latency.WithLabelValues(labels.Method, labels.Route).Observe(seconds)
}

// Registry exposes the underlying registry, mainly for tests.
func (m *PrometheusMetrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the exposition format for the private registry.
func (m *PrometheusMetrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}
