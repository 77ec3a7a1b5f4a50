package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// PrometheusRecorder exports response-time observations as prometheus
// metrics. It backs the optional --metrics-addr listener in serve mode.
type PrometheusRecorder struct {
	registry     *prometheus.Registry
	responseTime prometheus.Histogram
	requests     prometheus.Counter
}

// NewPrometheusRecorder creates a recorder with its own registry so that
// serve-mode metrics stay isolated from anything else in the process.
func NewPrometheusRecorder() *PrometheusRecorder {
	registry := prometheus.NewRegistry()
	factory := promauto.With(registry)

	return &PrometheusRecorder{
		registry: registry,
		responseTime: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: "mend",
			Name:      "api_response_time_seconds",
			Help:      "Response time of API requests issued by scenario steps.",
			Buckets:   prometheus.DefBuckets,
		}),
		requests: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "mend",
			Name:      "api_requests_total",
			Help:      "Total number of API requests issued by scenario steps.",
		}),
	}
}

// RecordResponseTime observes one API response time.
func (p *PrometheusRecorder) RecordResponseTime(d time.Duration) {
	p.requests.Inc()
	p.responseTime.Observe(d.Seconds())
}

// Handler returns the HTTP handler exposing the recorder's registry in
// prometheus text format.
func (p *PrometheusRecorder) Handler() http.Handler {
	return promhttp.HandlerFor(p.registry, promhttp.HandlerOpts{})
}
