package api

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

// Metrics holds the HTTP collectors of one router.
type Metrics struct {
	Registry *prometheus.Registry

	requestsTotal    *prometheus.CounterVec
	requestDuration  *prometheus.HistogramVec
	responseSize     *prometheus.HistogramVec
	requestsInFlight prometheus.Gauge
	rateLimited      prometheus.Counter
	authFailures     *prometheus.CounterVec
}

// NewMetrics registers the runtime and HTTP collectors on a new registry.
func NewMetrics() (*Metrics, error) {
	m := &Metrics{
		Registry: prometheus.NewRegistry(),
		requestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "secure_backend_http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"method", "path", "status"},
		),
		requestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "secure_backend_http_request_duration_seconds",
				Help:    "HTTP request duration in seconds",
				Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
			},
			[]string{"method", "path"},
		),
		responseSize: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "secure_backend_http_response_size_bytes",
				Help:    "HTTP response size in bytes",
				Buckets: []float64{100, 1000, 10000, 100000, 1000000},
			},
			[]string{"method", "path"},
		),
		requestsInFlight: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "secure_backend_http_requests_in_flight",
				Help: "Number of HTTP requests currently being processed",
			},
		),
		rateLimited: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "secure_backend_rate_limited_total",
				Help: "Requests rejected by the per-IP rate limiter",
			},
		),
		authFailures: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "secure_backend_auth_failures_total",
				Help: "Rejected bearer authentications by reason",
			},
			[]string{"reason"},
		),
	}
	cs := []prometheus.Collector{
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.requestsTotal,
		m.requestDuration,
		m.responseSize,
		m.requestsInFlight,
		m.rateLimited,
		m.authFailures,
	}
	for _, c := range cs {
		if err := m.Registry.Register(c); err != nil {
			return nil, err
		}
	}
	return m, nil
}
