// Package metrics exposes Prometheus counters for API traffic and
// announcement screening.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "speedhive"

// Metrics holds the collectors on a private registry.
type Metrics struct {
	Registry *prometheus.Registry

	announcements *prometheus.CounterVec
	apiRequests   *prometheus.CounterVec
	apiDuration   *prometheus.HistogramVec
	apiRetries    *prometheus.CounterVec
	exported      *prometheus.CounterVec
}

// New creates and registers a fresh set of collectors.
func New() *Metrics {
	m := &Metrics{Registry: prometheus.NewRegistry()}

	m.announcements = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "announcements_total",
		Help:      "Announcements screened, by outcome status",
	}, []string{"status"})
	m.apiRequests = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "api_requests_total",
		Help:      "Results API requests, by endpoint and HTTP status",
	}, []string{"endpoint", "status"})
	m.apiDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "api_request_duration_seconds",
		Help:      "Results API request latency",
		Buckets:   prometheus.DefBuckets,
	}, []string{"endpoint"})
	m.apiRetries = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "api_retries_total",
		Help:      "Results API requests retried after a transient failure",
	}, []string{"endpoint"})
	m.exported = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "records_exported_total",
		Help:      "Records written, by output format",
	}, []string{"format"})

	m.Registry.MustRegister(m.announcements, m.apiRequests, m.apiDuration, m.apiRetries, m.exported)
	return m
}

// Default is the process-wide instance used by the CLI and the server.
var Default = New()

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.Registry, promhttp.HandlerOpts{})
}

// ObserveAnnouncement counts one screened announcement.
func (m *Metrics) ObserveAnnouncement(status string) {
	m.announcements.WithLabelValues(status).Inc()
}

// ObserveRequest records one API request. A zero status means the request
// failed before a response arrived.
func (m *Metrics) ObserveRequest(endpoint string, status int, d time.Duration) {
	label := "error"
	if status > 0 {
		label = strconv.Itoa(status)
	}
	m.apiRequests.WithLabelValues(endpoint, label).Inc()
	m.apiDuration.WithLabelValues(endpoint).Observe(d.Seconds())
}

// ObserveRetry counts a retried API request.
func (m *Metrics) ObserveRetry(endpoint string) {
	m.apiRetries.WithLabelValues(endpoint).Inc()
}

// ObserveExport counts records written in format.
func (m *Metrics) ObserveExport(format string, n int) {
	m.exported.WithLabelValues(format).Add(float64(n))
}
