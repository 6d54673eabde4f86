package gateway

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	requestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "healthdir_gateway_requests_total",
		Help: "Total requests through the pipeline by gateway and outcome",
	}, []string{"gateway", "outcome"})

	upstreamFailures = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "healthdir_gateway_upstream_failures_total",
		Help: "Total forwarded requests that ended in a 502/504",
	}, []string{"gateway"})
)
