package audit

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	entriesRecorded = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "healthdir_audit_entries_recorded_total",
		Help: "Total audit entries accepted by a recorder",
	}, []string{"mode", "action"})

	persistFailures = promauto.NewCounter(prometheus.CounterOpts{
		Name: "healthdir_audit_persist_failures_total",
		Help: "Total failed audit store flush attempts (entries are retried, not dropped)",
	})

	entriesDropped = promauto.NewCounter(prometheus.CounterOpts{
		Name: "healthdir_audit_entries_dropped_total",
		Help: "Total non-critical entries shed to the structured log because the queue was full",
	})

	queueDepth = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "healthdir_audit_queue_depth",
		Help: "Current number of entries waiting in the durable recorder queue",
	})

	flushDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "healthdir_audit_flush_duration_seconds",
		Help:    "Latency of audit batch flushes",
		Buckets: []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 5},
	})
)
