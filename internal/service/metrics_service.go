package service

import (
	"fmt"
	"net/http"
	"runtime"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// MetricsService encapsulates Prometheus instrumentation for the relay and triage servers.
type MetricsService struct {
	registry         *prometheus.Registry
	handler          http.Handler
	requestDuration  *prometheus.HistogramVec
	requestTotal     *prometheus.CounterVec
	upstreamDuration *prometheus.HistogramVec
	partialFailures  prometheus.Counter
	fetchRuns        *prometheus.CounterVec
	assignments      *prometheus.GaugeVec
	persistDuration  *prometheus.HistogramVec
}

// NewMetricsService registers core Prometheus collectors.
func NewMetricsService() *MetricsService {
	registry := prometheus.NewRegistry()

	requestDuration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "http_request_duration_seconds",
		Help:    "Duration of HTTP requests in seconds",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "path", "status"})

	requestTotal := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "http_requests_total",
		Help: "Total number of HTTP requests",
	}, []string{"method", "path", "status"})

	upstreamDuration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "canvas_upstream_request_duration_seconds",
		Help:    "Duration of calls to the Canvas API",
		Buckets: prometheus.DefBuckets,
	}, []string{"endpoint", "status"})

	partialFailures := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "canvas_partial_fetch_failures_total",
		Help: "Courses whose assignments could not be fetched during aggregation",
	})

	fetchRuns := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "canvas_fetch_runs_total",
		Help: "Aggregation runs by outcome",
	}, []string{"outcome"})

	assignments := prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name: "canvas_assignments",
		Help: "Assignments currently held by the store",
	}, []string{"state"})

	persistDuration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "store_persist_duration_seconds",
		Help:    "Latency of store writes to the persistence backend",
		Buckets: prometheus.DefBuckets,
	}, []string{"key"})

	goroutines := prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Name: "goroutines_total",
		Help: "Total number of goroutines",
	}, func() float64 {
		return float64(runtime.NumGoroutine())
	})

	registry.MustRegister(requestDuration, requestTotal, upstreamDuration, partialFailures, fetchRuns, assignments, persistDuration, goroutines)

	return &MetricsService{
		registry:         registry,
		handler:          promhttp.HandlerFor(registry, promhttp.HandlerOpts{}),
		requestDuration:  requestDuration,
		requestTotal:     requestTotal,
		upstreamDuration: upstreamDuration,
		partialFailures:  partialFailures,
		fetchRuns:        fetchRuns,
		assignments:      assignments,
		persistDuration:  persistDuration,
	}
}

// Registry exposes the underlying registry, mainly for tests.
func (m *MetricsService) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

// Handler exposes the Prometheus HTTP handler.
func (m *MetricsService) Handler() http.Handler {
	if m == nil {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusServiceUnavailable)
		})
	}
	return m.handler
}

// ObserveHTTPRequest records request metrics.
func (m *MetricsService) ObserveHTTPRequest(method, path string, status int, duration time.Duration) {
	if m == nil {
		return
	}
	labelStatus := fmt.Sprintf("%d", status)
	m.requestDuration.WithLabelValues(method, path, labelStatus).Observe(duration.Seconds())
	m.requestTotal.WithLabelValues(method, path, labelStatus).Inc()
}

// ObserveUpstreamRequest records a Canvas API call. Status 0 means the call never completed.
func (m *MetricsService) ObserveUpstreamRequest(endpoint string, status int, duration time.Duration) {
	if m == nil {
		return
	}
	m.upstreamDuration.WithLabelValues(endpoint, fmt.Sprintf("%d", status)).Observe(duration.Seconds())
}

// RecordPartialFailure counts a course dropped from an aggregation run.
func (m *MetricsService) RecordPartialFailure() {
	if m == nil {
		return
	}
	m.partialFailures.Inc()
}

// RecordFetchRun counts aggregation runs by outcome ("success" or "error").
func (m *MetricsService) RecordFetchRun(outcome string) {
	if m == nil {
		return
	}
	m.fetchRuns.WithLabelValues(outcome).Inc()
}

// SetAssignmentCounts publishes the store's collection shape.
func (m *MetricsService) SetAssignmentCounts(total, visible, hidden, selected int) {
	if m == nil {
		return
	}
	m.assignments.WithLabelValues("total").Set(float64(total))
	m.assignments.WithLabelValues("visible").Set(float64(visible))
	m.assignments.WithLabelValues("hidden").Set(float64(hidden))
	m.assignments.WithLabelValues("selected").Set(float64(selected))
}

// ObservePersist tracks the duration of a store write.
func (m *MetricsService) ObservePersist(key string, duration time.Duration) {
	if m == nil {
		return
	}
	m.persistDuration.WithLabelValues(key).Observe(duration.Seconds())
}
