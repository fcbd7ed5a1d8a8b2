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

	ragRequestsTotal       *prometheus.CounterVec
	ragIntentRoutesTotal   *prometheus.CounterVec
	ragNoContextTotal      *prometheus.CounterVec
	ragMatches             *prometheus.HistogramVec
	ragDuration            *prometheus.HistogramVec
	enrichFailuresTotal    *prometheus.CounterVec
	countFallbackTotal     *prometheus.CounterVec
	storeMatchesTotal      *prometheus.CounterVec
	rateLimitedTotal       prometheus.Counter
	backpressureShedsTotal prometheus.Counter
	breakerOpen            *prometheus.GaugeVec
}

func NewHTTPServerMetrics(service string) *HTTPServerMetrics {
	registry := prometheus.NewRegistry()

	requestTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "graphrag",
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total HTTP requests processed.",
		},
		[]string{"service", "method", "path", "status"},
	)
	requestDuration := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "graphrag",
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request duration in seconds.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"service", "method", "path"},
	)
	requestInFlight := prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "graphrag",
			Subsystem: "http",
			Name:      "in_flight_requests",
			Help:      "Number of in-flight HTTP requests.",
			ConstLabels: prometheus.Labels{
				"service": service,
			},
		},
	)
	ragRequestsTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "graphrag",
			Subsystem: "rag",
			Name:      "requests_total",
			Help:      "Total successful search and answer requests.",
		},
		[]string{"service", "endpoint"},
	)
	ragIntentRoutesTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "graphrag",
			Subsystem: "rag",
			Name:      "intent_routes_total",
			Help:      "Total requests by resolved main and count intent.",
		},
		[]string{"service", "endpoint", "main_intent", "count_intent"},
	)
	ragNoContextTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "graphrag",
			Subsystem: "rag",
			Name:      "no_context_total",
			Help:      "Total retrieval requests without any ranked match.",
		},
		[]string{"service", "endpoint"},
	)
	ragMatches := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "graphrag",
			Subsystem: "rag",
			Name:      "matches",
			Help:      "Distribution of ranked matches per retrieval request.",
			Buckets:   []float64{0, 1, 2, 3, 5, 8, 13, 21, 34, 50},
		},
		[]string{"service", "endpoint"},
	)
	ragDuration := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "graphrag",
			Subsystem: "rag",
			Name:      "duration_seconds",
			Help:      "Search and answer execution duration in seconds.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"service", "endpoint"},
	)
	enrichFailuresTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "graphrag",
			Subsystem: "graph",
			Name:      "enrichment_failures_total",
			Help:      "Total chunk entity lookups that failed or timed out.",
		},
		[]string{"service", "endpoint"},
	)
	countFallbackTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "graphrag",
			Subsystem: "graph",
			Name:      "count_fallback_total",
			Help:      "Total category count questions answered with the overall total.",
		},
		[]string{"service", "endpoint"},
	)
	storeMatchesTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "graphrag",
			Subsystem: "stores",
			Name:      "lookups_total",
			Help:      "Total store lookups by outcome.",
		},
		[]string{"service", "outcome"},
	)
	rateLimitedTotal := prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace:   "graphrag",
			Subsystem:   "http",
			Name:        "rate_limited_total",
			Help:        "Total requests rejected by the rate limiter.",
			ConstLabels: prometheus.Labels{"service": service},
		},
	)
	backpressureShedsTotal := prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace:   "graphrag",
			Subsystem:   "http",
			Name:        "backpressure_shed_total",
			Help:        "Total requests rejected because the in-flight limit was reached.",
			ConstLabels: prometheus.Labels{"service": service},
		},
	)

	breakerOpen := newBreakerOpenGauge(service)

	registry.MustRegister(
		breakerOpen,
		requestTotal,
		requestDuration,
		requestInFlight,
		ragRequestsTotal,
		ragIntentRoutesTotal,
		ragNoContextTotal,
		ragMatches,
		ragDuration,
		enrichFailuresTotal,
		countFallbackTotal,
		storeMatchesTotal,
		rateLimitedTotal,
		backpressureShedsTotal,
	)

	return &HTTPServerMetrics{
		registry:               registry,
		requestTotal:           requestTotal,
		requestDuration:        requestDuration,
		requestInFlight:        requestInFlight,
		ragRequestsTotal:       ragRequestsTotal,
		ragIntentRoutesTotal:   ragIntentRoutesTotal,
		ragNoContextTotal:      ragNoContextTotal,
		ragMatches:             ragMatches,
		ragDuration:            ragDuration,
		enrichFailuresTotal:    enrichFailuresTotal,
		countFallbackTotal:     countFallbackTotal,
		storeMatchesTotal:      storeMatchesTotal,
		rateLimitedTotal:       rateLimitedTotal,
		backpressureShedsTotal: backpressureShedsTotal,
		breakerOpen:            breakerOpen,
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

// normalizePath folds the unversioned aliases onto their /v1 route and keeps
// unknown paths out of the label space.
func normalizePath(path string) string {
	switch path {
	case "/v1/search", "/search":
		return "/v1/search"
	case "/v1/answer", "/answer":
		return "/v1/answer"
	case "/v1/stores", "/stores":
		return "/v1/stores"
	case "/v1/ingest", "/ingest":
		return "/v1/ingest"
	case "/healthz", "/metrics":
		return path
	default:
		if strings.HasPrefix(path, "/v1/") {
			return "/v1/other"
		}
		return "other"
	}
}

// RecordRAGObservation counts one search or answer request. matches is the
// number of ranked chunks; count-routed requests pass -1 and skip the
// retrieval series.
func (m *HTTPServerMetrics) RecordRAGObservation(service, endpoint string, matches int, duration time.Duration) {
	m.ragRequestsTotal.WithLabelValues(service, endpoint).Inc()
	m.ragDuration.WithLabelValues(service, endpoint).Observe(duration.Seconds())
	if matches < 0 {
		return
	}
	m.ragMatches.WithLabelValues(service, endpoint).Observe(float64(matches))
	if matches == 0 {
		m.ragNoContextTotal.WithLabelValues(service, endpoint).Inc()
	}
}

func (m *HTTPServerMetrics) RecordIntentRoute(service, endpoint, mainIntent, countIntent string) {
	if mainIntent == "" {
		mainIntent = "unknown"
	}
	if countIntent == "" {
		countIntent = "unknown"
	}
	m.ragIntentRoutesTotal.WithLabelValues(service, endpoint, mainIntent, countIntent).Inc()
}

func (m *HTTPServerMetrics) RecordEnrichmentFailures(service, endpoint string, failures int) {
	if failures <= 0 {
		return
	}
	m.enrichFailuresTotal.WithLabelValues(service, endpoint).Add(float64(failures))
}

func (m *HTTPServerMetrics) RecordCountFallback(service, endpoint string) {
	m.countFallbackTotal.WithLabelValues(service, endpoint).Inc()
}

func (m *HTTPServerMetrics) RecordStoreLookup(service string, stores int) {
	outcome := "found"
	if stores == 0 {
		outcome = "none"
	}
	m.storeMatchesTotal.WithLabelValues(service, outcome).Inc()
}

func (m *HTTPServerMetrics) RecordRateLimited() {
	m.rateLimitedTotal.Inc()
}

func (m *HTTPServerMetrics) RecordBackpressureShed() {
	m.backpressureShedsTotal.Inc()
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

// RecordBreakerState is a resilience state observer for query-path dependencies.
func (m *HTTPServerMetrics) RecordBreakerState(operation string, open bool) {
	setBreakerState(m.breakerOpen, operation, open)
}
