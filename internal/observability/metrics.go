package observability

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/binkeyit/storefront/internal/domain"
)

// Refresh exchange outcomes.
const (
	RefreshOutcomeSuccess  = "success"
	RefreshOutcomeRejected = "rejected"
	RefreshOutcomeRevoked  = "revoked"
)

// Metrics exposes Prometheus collectors on a private registry.
type Metrics struct {
	registry     *prometheus.Registry
	requestCount *prometheus.CounterVec
	latency      *prometheus.HistogramVec
	errorCount   *prometheus.CounterVec
	tokensIssued *prometheus.CounterVec
	refreshes    *prometheus.CounterVec
}

// NewMetrics registers the storefront collectors.
func NewMetrics() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		requestCount: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "storefront",
			Name:      "http_requests_total",
			Help:      "HTTP requests by route, method and status.",
		}, []string{"path", "method", "status"}),
		latency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "storefront",
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency by route and method.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"path", "method"}),
		errorCount: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "storefront",
			Name:      "http_errors_total",
			Help:      "Failed HTTP requests by route, method and error code.",
		}, []string{"path", "method", "code"}),
		tokensIssued: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "storefront",
			Name:      "auth_tokens_issued_total",
			Help:      "Credentials minted by kind.",
		}, []string{"kind"}),
		refreshes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "storefront",
			Name:      "auth_refresh_exchanges_total",
			Help:      "Refresh exchanges by outcome.",
		}, []string{"outcome"}),
	}
	m.registry.MustRegister(m.requestCount, m.latency, m.errorCount, m.tokensIssued, m.refreshes)
	return m
}

// RecordRequest increments counters for requests.
func (m *Metrics) RecordRequest(path, method string, status int, duration time.Duration) {
	if m == nil {
		return
	}
	m.requestCount.WithLabelValues(path, method, strconv.Itoa(status)).Inc()
	m.latency.WithLabelValues(path, method).Observe(duration.Seconds())
}

// RecordError increments error counters.
func (m *Metrics) RecordError(path, method, code string) {
	if m == nil {
		return
	}
	m.errorCount.WithLabelValues(path, method, code).Inc()
}

// RecordTokenIssued counts a minted credential.
func (m *Metrics) RecordTokenIssued(kind domain.TokenKind) {
	if m == nil {
		return
	}
	m.tokensIssued.WithLabelValues(string(kind)).Inc()
}

// RecordRefresh counts a refresh exchange outcome.
func (m *Metrics) RecordRefresh(outcome string) {
	if m == nil {
		return
	}
	m.refreshes.WithLabelValues(outcome).Inc()
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
