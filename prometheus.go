package vecidx

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// PrometheusCollector exports index metrics to Prometheus.
type PrometheusCollector struct {
	operations   *prometheus.CounterVec
	errors       *prometheus.CounterVec
	duration     *prometheus.HistogramVec
	nodesCreated prometheus.Counter
}

// NewPrometheusCollector registers the index metrics with reg. A nil reg
// selects prometheus.DefaultRegisterer.
func NewPrometheusCollector(reg prometheus.Registerer) *PrometheusCollector {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	factory := promauto.With(reg)

	return &PrometheusCollector{
		operations: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "vecidx_operations_total",
				Help: "Total number of index operations",
			},
			[]string{"op"},
		),
		errors: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "vecidx_operation_errors_total",
				Help: "Total number of failed index operations",
			},
			[]string{"op"},
		),
		duration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "vecidx_operation_duration_seconds",
				Help:    "Duration of index operations in seconds",
				Buckets: []float64{0.00001, 0.0001, 0.001, 0.01, 0.1, 1, 10},
			},
			[]string{"op"},
		),
		nodesCreated: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "vecidx_nodes_created_total",
				Help: "Total number of graph nodes created",
			},
		),
	}
}

func (p *PrometheusCollector) record(op string, duration time.Duration, err error) {
	p.operations.WithLabelValues(op).Inc()
	p.duration.WithLabelValues(op).Observe(duration.Seconds())
	if err != nil {
		p.errors.WithLabelValues(op).Inc()
	}
}

// RecordRegister implements MetricsCollector.
func (p *PrometheusCollector) RecordRegister(duration time.Duration, err error) {
	p.record("register", duration, err)
}

// RecordRemove implements MetricsCollector.
func (p *PrometheusCollector) RecordRemove(duration time.Duration, err error) {
	p.record("remove", duration, err)
}

// RecordCommit implements MetricsCollector.
func (p *PrometheusCollector) RecordCommit(nodesCreated int, duration time.Duration, err error) {
	p.record("commit", duration, err)
	p.nodesCreated.Add(float64(nodesCreated))
}

// RecordSearch implements MetricsCollector.
func (p *PrometheusCollector) RecordSearch(_ int, duration time.Duration, err error) {
	p.record("search", duration, err)
}
