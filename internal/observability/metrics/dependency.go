package metrics

import "github.com/prometheus/client_golang/prometheus"

func newBreakerOpenGauge(service string) *prometheus.GaugeVec {
	return prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace:   "graphrag",
			Subsystem:   "dependency",
			Name:        "breaker_open",
			Help:        "1 while the circuit breaker for an outbound operation is open.",
			ConstLabels: prometheus.Labels{"service": service},
		},
		[]string{"operation"},
	)
}

func setBreakerState(gauge *prometheus.GaugeVec, operation string, open bool) {
	v := 0.0
	if open {
		v = 1
	}
	gauge.WithLabelValues(operation).Set(v)
}
