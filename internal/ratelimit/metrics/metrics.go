package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	checksTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "healthdir_ratelimit_checks_total",
		Help: "Total number of rate limit checks by outcome",
	}, []string{"outcome"})

	storeErrorsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "healthdir_ratelimit_store_errors_total",
		Help: "Total number of counter store failures (fail-open events)",
	})

	checkDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "healthdir_ratelimit_check_duration_seconds",
		Help:    "Latency of rate limit checks",
		Buckets: []float64{0.0005, 0.001, 0.0025, 0.005, 0.01, 0.025, 0.05, 0.1},
	})
)

func IncAllowed()  { checksTotal.WithLabelValues("allowed").Inc() }
func IncRejected() { checksTotal.WithLabelValues("rejected").Inc() }
func IncStoreError() {
	checksTotal.WithLabelValues("degraded").Inc()
	storeErrorsTotal.Inc()
}
func ObserveCheckDuration(seconds float64) { checkDuration.Observe(seconds) }
