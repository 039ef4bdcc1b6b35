package monitoring

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics for the application.
type Metrics struct {
	CapturesTotal       *prometheus.CounterVec
	CaptureDuration     *prometheus.HistogramVec
	FallbackTotal       prometheus.Counter
	XHRObserved         prometheus.Counter
	HTTPRequestsTotal   *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec
}

// NewMetrics registers every collector with reg. Pass prometheus.DefaultRegisterer
// in production and a fresh prometheus.NewRegistry() in tests.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		CapturesTotal: f.NewCounterVec(prometheus.CounterOpts{
			Name: "captures_total",
			Help: "The total number of capture requests processed",
		}, []string{"kind", "outcome"}), // outcome is domain.Class of the error, "none" on success
		CaptureDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "capture_duration_seconds",
			Help:    "Wall time of a capture, browser launch to teardown",
			Buckets: []float64{1, 2.5, 5, 10, 20, 30, 60, 120},
		}, []string{"kind"}),
		FallbackTotal: f.NewCounter(prometheus.CounterOpts{
			Name: "capture_fallback_total",
			Help: "Profile captures that fell back to the full page",
		}),
		XHRObserved: f.NewCounter(prometheus.CounterOpts{
			Name: "capture_xhr_responses_observed",
			Help: "XHR responses seen while capturing profiles",
		}),
		HTTPRequestsTotal: f.NewCounterVec(prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests",
		}, []string{"method", "route", "status"}),
		HTTPRequestDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "Duration of HTTP requests",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "route"}),
	}
}

func (m *Metrics) ObserveCapture(kind, outcome string, seconds float64) {
	m.CapturesTotal.WithLabelValues(kind, outcome).Inc()
	m.CaptureDuration.WithLabelValues(kind).Observe(seconds)
}

func (m *Metrics) IncFallback() {
	m.FallbackTotal.Inc()
}

func (m *Metrics) AddXHRObserved(n int) {
	m.XHRObserved.Add(float64(n))
}
