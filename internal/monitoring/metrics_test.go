package monitoring

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestNewMetrics_IndependentRegistries(t *testing.T) {
	assert.NotPanics(t, func() {
		NewMetrics(prometheus.NewRegistry())
		NewMetrics(prometheus.NewRegistry())
	})
}

func TestMetrics_Record(t *testing.T) {
	m := NewMetrics(prometheus.NewRegistry())

	m.ObserveCapture("post", "none", 1.5)
	m.ObserveCapture("post", "no_text", 0.5)
	m.ObserveCapture("post", "none", 2)
	m.IncFallback()
	m.AddXHRObserved(3)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.CapturesTotal.WithLabelValues("post", "none")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.CapturesTotal.WithLabelValues("post", "no_text")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.FallbackTotal))
	assert.Equal(t, 3.0, testutil.ToFloat64(m.XHRObserved))
}
