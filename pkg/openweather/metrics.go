package openweather

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const (
	outcomeOK             = "ok"
	outcomeHTTPError      = "http_error"
	outcomeTransportError = "transport_error"
)

type clientMetrics struct {
	requests *prometheus.CounterVec
	duration *prometheus.HistogramVec
}

// Registered once per process; tests swap the registry.
var (
	cmInstance *clientMetrics
	cmOnce     sync.Once
	cmRegistry = prometheus.DefaultRegisterer
)

func newClientMetrics() *clientMetrics {
	cmOnce.Do(func() {
		cmInstance = &clientMetrics{
			requests: promauto.With(cmRegistry).NewCounterVec(prometheus.CounterOpts{
				Name: "openweather_requests_total",
				Help: "Requests sent to the OpenWeatherMap API",
			}, []string{"endpoint", "outcome"}),
			duration: promauto.With(cmRegistry).NewHistogramVec(prometheus.HistogramOpts{
				Name:    "openweather_request_duration_seconds",
				Help:    "Latency of OpenWeatherMap API requests",
				Buckets: []float64{.05, .1, .25, .5, 1, 2.5, 5, 10},
			}, []string{"endpoint"}),
		}
	})
	return cmInstance
}

func (m *clientMetrics) observe(endpoint, outcome string, elapsed time.Duration) {
	m.requests.WithLabelValues(endpoint, outcome).Inc()
	if elapsed > 0 {
		m.duration.WithLabelValues(endpoint).Observe(elapsed.Seconds())
	}
}

// resetClientMetricsForTesting installs a fresh registry and returns it.
func resetClientMetricsForTesting() *prometheus.Registry {
	reg := prometheus.NewRegistry()
	cmRegistry = reg
	cmInstance = nil
	cmOnce = sync.Once{}
	return reg
}
