package api

import (
	"net/http"
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the Prometheus metrics of the REST API.
type Metrics struct {
	RequestsTotal            *prometheus.CounterVec
	RequestDuration          *prometheus.HistogramVec
	RateLimitRejectionsTotal prometheus.Counter

	gatherer prometheus.Gatherer
}

// NewMetrics creates the API metrics and registers them with reg. The
// gatherer backs Handler.
func NewMetrics(reg prometheus.Registerer, gatherer prometheus.Gatherer) *Metrics {
	m := &Metrics{
		RequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "netdash_http_requests_total",
				Help: "Total number of HTTP requests by method, route, and status.",
			},
			[]string{"method", "route", "status"},
		),
		RequestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "netdash_http_request_duration_seconds",
				Help:    "Duration of HTTP requests in seconds.",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "route"},
		),
		RateLimitRejectionsTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "netdash_ratelimit_rejections_total",
				Help: "Total number of requests rejected by rate limiting.",
			},
		),
		gatherer: gatherer,
	}

	reg.MustRegister(
		m.RequestsTotal,
		m.RequestDuration,
		m.RateLimitRejectionsTotal,
	)
	return m
}

// observe records one finished request. route is the matched mux pattern.
func (m *Metrics) observe(method, route string, status int, seconds float64) {
	if m == nil {
		return
	}
	if route == "" {
		route = "unmatched"
	}
	m.RequestsTotal.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	m.RequestDuration.WithLabelValues(method, route).Observe(seconds)
	if status == http.StatusTooManyRequests {
		m.RateLimitRejectionsTotal.Inc()
	}
}

// Handler returns an http.Handler that serves the gathered metrics.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.gatherer, promhttp.HandlerOpts{})
}
