package metrics

import (
	"bufio"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type HTTPServerMetrics struct {
	registry *prometheus.Registry

	requestTotal    *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
	requestInFlight prometheus.Gauge

	documentsSubmittedTotal *prometheus.CounterVec
	stageEnqueuedTotal      *prometheus.CounterVec
	enqueueFailuresTotal    *prometheus.CounterVec
	transitionsTotal        *prometheus.CounterVec
	invalidTransitionsTotal *prometheus.CounterVec

	routeRequestsTotal *prometheus.CounterVec
	routeDuration      *prometheus.HistogramVec
}

func NewHTTPServerMetrics(service string) *HTTPServerMetrics {
	registry := prometheus.NewRegistry()

	requestTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "docflow",
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total HTTP requests processed.",
		},
		[]string{"service", "method", "path", "status"},
	)
	requestDuration := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "docflow",
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request duration in seconds.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"service", "method", "path"},
	)
	requestInFlight := prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "docflow",
			Subsystem: "http",
			Name:      "in_flight_requests",
			Help:      "Number of in-flight HTTP requests.",
			ConstLabels: prometheus.Labels{
				"service": service,
			},
		},
	)
	documentsSubmittedTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "docflow",
			Subsystem: "pipeline",
			Name:      "documents_submitted_total",
			Help:      "Total documents accepted for processing.",
		},
		[]string{"service", "processing_type"},
	)
	stageEnqueuedTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "docflow",
			Subsystem: "pipeline",
			Name:      "stage_enqueued_total",
			Help:      "Total stage messages published.",
		},
		[]string{"service", "stage"},
	)
	enqueueFailuresTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "docflow",
			Subsystem: "pipeline",
			Name:      "enqueue_failures_total",
			Help:      "Total stage publish failures after retries.",
		},
		[]string{"service", "stage"},
	)
	transitionsTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "docflow",
			Subsystem: "pipeline",
			Name:      "transitions_total",
			Help:      "Total applied status transitions.",
		},
		[]string{"service", "from", "to"},
	)
	invalidTransitionsTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "docflow",
			Subsystem: "pipeline",
			Name:      "invalid_transitions_total",
			Help:      "Total rejected status transition signals.",
		},
		[]string{"service", "from", "to"},
	)
	routeRequestsTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "docflow",
			Subsystem: "routing",
			Name:      "requests_total",
			Help:      "Total agent routing requests by outcome.",
		},
		[]string{"service", "target", "outcome"},
	)
	routeDuration := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "docflow",
			Subsystem: "routing",
			Name:      "duration_seconds",
			Help:      "Agent call duration in seconds.",
			Buckets:   []float64{0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60, 90},
		},
		[]string{"service", "target"},
	)

	registry.MustRegister(
		requestTotal,
		requestDuration,
		requestInFlight,
		documentsSubmittedTotal,
		stageEnqueuedTotal,
		enqueueFailuresTotal,
		transitionsTotal,
		invalidTransitionsTotal,
		routeRequestsTotal,
		routeDuration,
	)

	return &HTTPServerMetrics{
		registry:                registry,
		requestTotal:            requestTotal,
		requestDuration:         requestDuration,
		requestInFlight:         requestInFlight,
		documentsSubmittedTotal: documentsSubmittedTotal,
		stageEnqueuedTotal:      stageEnqueuedTotal,
		enqueueFailuresTotal:    enqueueFailuresTotal,
		transitionsTotal:        transitionsTotal,
		invalidTransitionsTotal: invalidTransitionsTotal,
		routeRequestsTotal:      routeRequestsTotal,
		routeDuration:           routeDuration,
	}
}

func (m *HTTPServerMetrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *HTTPServerMetrics) Middleware(service string, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		path := normalizePath(r.URL.Path)
		recorder := &statusRecorder{
			ResponseWriter: w,
			statusCode:     http.StatusOK,
		}

		m.requestInFlight.Inc()
		defer m.requestInFlight.Dec()

		next.ServeHTTP(recorder, r)

		m.requestTotal.WithLabelValues(
			service,
			r.Method,
			path,
			strconv.Itoa(recorder.statusCode),
		).Inc()
		m.requestDuration.WithLabelValues(service, r.Method, path).Observe(time.Since(start).Seconds())
	})
}

func normalizePath(path string) string {
	switch {
	case strings.HasPrefix(path, "/v1/documents/") && strings.HasSuffix(path, "/status"):
		return "/v1/documents/{document_id}/status"
	case strings.HasPrefix(path, "/v1/documents/") && strings.HasSuffix(path, "/download"):
		return "/v1/documents/{document_id}/download"
	case strings.HasPrefix(path, "/v1/documents/") && path != "/v1/documents/batch":
		return "/v1/documents/{document_id}"
	case strings.HasPrefix(path, "/v1/collections/"):
		return "/v1/collections/{collection_id}/documents"
	case strings.HasPrefix(path, "/internal/documents/") && strings.HasSuffix(path, "/advance"):
		return "/internal/documents/{document_id}/advance"
	case strings.HasPrefix(path, "/internal/documents/") && strings.HasSuffix(path, "/fail"):
		return "/internal/documents/{document_id}/fail"
	case strings.HasPrefix(path, "/files/"):
		return "/files/{key}"
	default:
		return path
	}
}

func (m *HTTPServerMetrics) RecordDocumentSubmitted(service, processingType string) {
	m.documentsSubmittedTotal.WithLabelValues(service, processingType).Inc()
}

func (m *HTTPServerMetrics) RecordStageEnqueued(service, stage string) {
	m.stageEnqueuedTotal.WithLabelValues(service, stage).Inc()
}

func (m *HTTPServerMetrics) RecordEnqueueFailure(service, stage string) {
	m.enqueueFailuresTotal.WithLabelValues(service, stage).Inc()
}

func (m *HTTPServerMetrics) RecordTransition(service, from, to string, applied bool) {
	if applied {
		m.transitionsTotal.WithLabelValues(service, from, to).Inc()
		return
	}
	m.invalidTransitionsTotal.WithLabelValues(service, from, to).Inc()
}

func (m *HTTPServerMetrics) RecordRouteRequest(service, target, outcome string, duration time.Duration) {
	if target == "" {
		target = "unknown"
	}
	if outcome == "" {
		outcome = "unknown"
	}
	m.routeRequestsTotal.WithLabelValues(service, target, outcome).Inc()
	m.routeDuration.WithLabelValues(service, target).Observe(duration.Seconds())
}

type statusRecorder struct {
	http.ResponseWriter
	statusCode int
}

func (w *statusRecorder) WriteHeader(statusCode int) {
	w.statusCode = statusCode
	w.ResponseWriter.WriteHeader(statusCode)
}

func (w *statusRecorder) Flush() {
	flusher, ok := w.ResponseWriter.(http.Flusher)
	if ok {
		flusher.Flush()
	}
}

func (w *statusRecorder) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	hijacker, ok := w.ResponseWriter.(http.Hijacker)
	if !ok {
		return nil, nil, fmt.Errorf("response writer does not implement http.Hijacker")
	}
	return hijacker.Hijack()
}

func (w *statusRecorder) Push(target string, opts *http.PushOptions) error {
	pusher, ok := w.ResponseWriter.(http.Pusher)
	if !ok {
		return http.ErrNotSupported
	}
	return pusher.Push(target, opts)
}
