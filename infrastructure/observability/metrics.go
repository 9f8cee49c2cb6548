// Package observability replaces the teacher's CloudWatch-backed Metrics
// type (pkg/observability/metrics.go) with a local Prometheus registry —
// appropriate for a local-first process with no push gateway to call. The
// RecordCommandExecution/RecordLatency/RecordError method shape is kept so
// the mediator's MetricsBehavior did not need to change its call sites.
package observability

import (
	"context"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds every gauge/histogram the core's ingest, search, health,
// and proactive operations record.
type Metrics struct {
	commandDuration *prometheus.HistogramVec
	commandTotal    *prometheus.CounterVec
	operationLatency *prometheus.HistogramVec
	errorsTotal     *prometheus.CounterVec

	IngestLatency     prometheus.Histogram
	SearchLatency     prometheus.Histogram
	HealthScanLatency prometheus.Histogram

	CoactivationPairs prometheus.Gauge
	HealthStatusGauge *prometheus.GaugeVec
}

// NewMetrics registers every collector against reg (pass
// prometheus.NewRegistry() for test isolation, or
// prometheus.DefaultRegisterer in production).
func NewMetrics(namespace string, reg prometheus.Registerer) *Metrics {
	factory := prometheus.WrapRegistererWithPrefix(namespace+"_", reg)

	m := &Metrics{
		commandDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "command_duration_seconds",
			Help:    "Duration of command execution by command name and status.",
			Buckets: prometheus.DefBuckets,
		}, []string{"command", "status"}),
		commandTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "command_total",
			Help: "Count of command executions by command name and status.",
		}, []string{"command", "status"}),
		operationLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "operation_latency_seconds",
			Help:    "Latency of an arbitrary named operation.",
			Buckets: prometheus.DefBuckets,
		}, []string{"operation"}),
		errorsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "errors_total",
			Help: "Count of errors by kind and operation.",
		}, []string{"kind", "operation"}),
		IngestLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "ingest_latency_seconds",
			Help:    "add_memory end-to-end latency.",
			Buckets: prometheus.DefBuckets,
		}),
		SearchLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "search_latency_seconds",
			Help:    "search end-to-end latency.",
			Buckets: prometheus.DefBuckets,
		}),
		HealthScanLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "health_scan_latency_seconds",
			Help:    "health_report full-corpus scan latency.",
			Buckets: prometheus.DefBuckets,
		}),
		CoactivationPairs: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "coactivation_pairs",
			Help: "Number of distinct ordered memory-id pairs with a non-zero co-activation count.",
		}),
		HealthStatusGauge: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "memories_by_health_status",
			Help: "Count of memories currently in each health status.",
		}, []string{"status"}),
	}

	factory.MustRegister(
		m.commandDuration, m.commandTotal, m.operationLatency, m.errorsTotal,
		m.IngestLatency, m.SearchLatency, m.HealthScanLatency,
		m.CoactivationPairs, m.HealthStatusGauge,
	)
	return m
}

// RecordCommandExecution records both a duration histogram and a count for
// one command execution, labeled by success/failure.
func (m *Metrics) RecordCommandExecution(_ context.Context, commandName string, duration time.Duration, err error) {
	status := "success"
	if err != nil {
		status = "failure"
	}
	m.commandDuration.WithLabelValues(commandName, status).Observe(duration.Seconds())
	m.commandTotal.WithLabelValues(commandName, status).Inc()
}

// RecordLatency records latency for an arbitrary named operation (queries,
// background scans).
func (m *Metrics) RecordLatency(_ context.Context, operation string, latency time.Duration) {
	m.operationLatency.WithLabelValues(operation).Observe(latency.Seconds())
}

// RecordError increments the error counter for a (kind, operation) pair.
func (m *Metrics) RecordError(_ context.Context, kind, operation string) {
	m.errorsTotal.WithLabelValues(kind, operation).Inc()
}
