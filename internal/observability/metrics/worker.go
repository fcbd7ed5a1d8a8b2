package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type WorkerMetrics struct {
	registry *prometheus.Registry

	processTotal    *prometheus.CounterVec
	processDuration *prometheus.HistogramVec
	processInFlight prometheus.Gauge
	queueLag        *prometheus.HistogramVec
	entitiesLinked  *prometheus.CounterVec
	breakerOpen     *prometheus.GaugeVec
}

func NewWorkerMetrics(service string) *WorkerMetrics {
	registry := prometheus.NewRegistry()

	processTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "graphrag",
			Subsystem: "worker",
			Name:      "chunk_process_total",
			Help:      "Total processed chunks by status.",
		},
		[]string{"service", "status"},
	)
	processDuration := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "graphrag",
			Subsystem: "worker",
			Name:      "chunk_process_duration_seconds",
			Help:      "Chunk processing duration in seconds by status.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"service", "status"},
	)
	processInFlight := prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "graphrag",
			Subsystem: "worker",
			Name:      "chunk_process_in_flight",
			Help:      "Number of chunks being embedded, indexed and linked.",
			ConstLabels: prometheus.Labels{
				"service": service,
			},
		},
	)
	queueLag := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "graphrag",
			Subsystem: "worker",
			Name:      "queue_lag_seconds",
			Help:      "Delay between chunk publication and processing start.",
			Buckets:   []float64{0.1, 0.5, 1, 2, 5, 10, 30, 60, 120, 300, 600},
		},
		[]string{"service"},
	)

	entitiesLinked := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "graphrag",
			Subsystem: "worker",
			Name:      "entities_linked_total",
			Help:      "Total extracted entities merged into the graph by type.",
		},
		[]string{"service", "entity_type"},
	)

	breakerOpen := newBreakerOpenGauge(service)

	registry.MustRegister(processTotal, processDuration, processInFlight, queueLag, entitiesLinked, breakerOpen)

	return &WorkerMetrics{
		registry:        registry,
		processTotal:    processTotal,
		processDuration: processDuration,
		processInFlight: processInFlight,
		queueLag:        queueLag,
		entitiesLinked:  entitiesLinked,
		breakerOpen:     breakerOpen,
	}
}

func (m *WorkerMetrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *WorkerMetrics) StartChunk() {
	m.processInFlight.Inc()
}

func (m *WorkerMetrics) FinishChunk(service string, duration time.Duration, err error) {
	m.processInFlight.Dec()

	status := "success"
	if err != nil {
		status = "error"
	}

	m.processTotal.WithLabelValues(service, status).Inc()
	m.processDuration.WithLabelValues(service, status).Observe(duration.Seconds())
}

func (m *WorkerMetrics) ObserveQueueLag(service string, lag time.Duration) {
	if lag < 0 {
		return
	}
	m.queueLag.WithLabelValues(service).Observe(lag.Seconds())
}

func (m *WorkerMetrics) RecordEntitiesLinked(service string, byType map[string]int) {
	for entityType, n := range byType {
		if n > 0 {
			m.entitiesLinked.WithLabelValues(service, entityType).Add(float64(n))
		}
	}
}

func (m *WorkerMetrics) RecordBreakerState(operation string, open bool) {
	setBreakerState(m.breakerOpen, operation, open)
}
