package service

import (
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/noah-isme/lab-issue-tracker/internal/models"
)

// MetricsService encapsulates Prometheus instrumentation for HTTP traffic and the issue lifecycle.
type MetricsService struct {
	registry          *prometheus.Registry
	handler           http.Handler
	requestDuration   *prometheus.HistogramVec
	requestTotal      *prometheus.CounterVec
	issueEvents       *prometheus.CounterVec
	statusTransitions *prometheus.CounterVec
	reconcileDuration prometheus.Histogram
	loginFailures     prometheus.Counter
}

// NewMetricsService registers the collectors on a private registry.
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

	issueEvents := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "issue_events_total",
		Help: "Issue lifecycle events by kind",
	}, []string{"event"})

	statusTransitions := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "lab_status_transitions_total",
		Help: "Lab status changes written by reconciliation or override",
	}, []string{"from", "to", "source"})

	reconcileDuration := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "lab_reconcile_duration_seconds",
		Help:    "Duration of lab status reconciliation",
		Buckets: prometheus.DefBuckets,
	})

	loginFailures := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "auth_login_failures_total",
		Help: "Failed login attempts",
	})

	registry.MustRegister(
		requestDuration,
		requestTotal,
		issueEvents,
		statusTransitions,
		reconcileDuration,
		loginFailures,
		collectors.NewGoCollector(),
	)

	return &MetricsService{
		registry:          registry,
		handler:           promhttp.HandlerFor(registry, promhttp.HandlerOpts{}),
		requestDuration:   requestDuration,
		requestTotal:      requestTotal,
		issueEvents:       issueEvents,
		statusTransitions: statusTransitions,
		reconcileDuration: reconcileDuration,
		loginFailures:     loginFailures,
	}
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

// Registry returns the underlying registry.
func (m *MetricsService) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
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

// RecordIssueEvent counts reported/resolved/deleted issues.
func (m *MetricsService) RecordIssueEvent(event string) {
	if m == nil {
		return
	}
	m.issueEvents.WithLabelValues(event).Inc()
}

// RecordStatusTransition counts lab status changes.
func (m *MetricsService) RecordStatusTransition(from, to models.LabStatus, source string) {
	if m == nil {
		return
	}
	m.statusTransitions.WithLabelValues(string(from), string(to), source).Inc()
}

// ObserveReconcile records reconciliation latency.
func (m *MetricsService) ObserveReconcile(duration time.Duration) {
	if m == nil {
		return
	}
	m.reconcileDuration.Observe(duration.Seconds())
}

// RecordLoginFailure counts rejected logins.
func (m *MetricsService) RecordLoginFailure() {
	if m == nil {
		return
	}
	m.loginFailures.Inc()
}
