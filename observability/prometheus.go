package observability

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// PrometheusRecorder is a MetricsRecorder backed by Prometheus collectors.
type PrometheusRecorder struct {
	requests  *prometheus.CounterVec
	durations *prometheus.HistogramVec
	retries   *prometheus.CounterVec
	rateWaits *prometheus.HistogramVec
	cancels   *prometheus.CounterVec
	errors    *prometheus.CounterVec
}

// NewPrometheusRecorder creates the collectors under namespace and registers
// them with reg. A nil reg leaves them unregistered.
func NewPrometheusRecorder(reg prometheus.Registerer, namespace string) *PrometheusRecorder {
	r := &PrometheusRecorder{
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "http_client",
			Name:      "requests_total",
			Help:      "Completed HTTP requests by method, path and status code.",
		}, []string{"method", "path", "status"}),
		durations: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "http_client",
			Name:      "request_duration_seconds",
			Help:      "Time from demand to response headers.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "path"}),
		retries: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "http_client",
			Name:      "retries_total",
			Help:      "Retry attempts by endpoint.",
		}, []string{"endpoint"}),
		rateWaits: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "http_client",
			Name:      "rate_limit_wait_seconds",
			Help:      "Time spent waiting for the client-side rate limiter.",
			Buckets:   prometheus.ExponentialBuckets(0.001, 4, 8),
		}, []string{"endpoint"}),
		cancels: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "http_client",
			Name:      "canceled_total",
			Help:      "Calls canceled before completion.",
		}, []string{"endpoint"}),
		errors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "http_client",
			Name:      "errors_total",
			Help:      "Errors by operation and type.",
		}, []string{"operation", "type"}),
	}

	if reg != nil {
		reg.MustRegister(r.Collectors()...)
	}

	return r
}

// Collectors returns every collector owned by the recorder.
func (r *PrometheusRecorder) Collectors() []prometheus.Collector {
	return []prometheus.Collector{r.requests, r.durations, r.retries, r.rateWaits, r.cancels, r.errors}
}

func (r *PrometheusRecorder) RecordHTTPRequest(method, path string, statusCode int, duration time.Duration) {
	r.requests.WithLabelValues(method, path, strconv.Itoa(statusCode)).Inc()
	r.durations.WithLabelValues(method, path).Observe(duration.Seconds())
}

func (r *PrometheusRecorder) RecordRetry(_ int, endpoint string) {
	r.retries.WithLabelValues(endpoint).Inc()
}

func (r *PrometheusRecorder) RecordRateLimit(endpoint string, wait time.Duration) {
	r.rateWaits.WithLabelValues(endpoint).Observe(wait.Seconds())
}

func (r *PrometheusRecorder) RecordCancel(endpoint string) {
	r.cancels.WithLabelValues(endpoint).Inc()
}

func (r *PrometheusRecorder) RecordError(operation, errorType string) {
	r.errors.WithLabelValues(operation, errorType).Inc()
}
