package exchange

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

//nolint:gochecknoglobals // Prometheus metrics
var (
	RequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "cryptomcp_exchange_request_duration_seconds",
		Help:    "Duration of upstream exchange API requests",
		Buckets: prometheus.DefBuckets,
	}, []string{"exchange", "op"})

	RequestErrorsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "cryptomcp_exchange_request_errors_total",
		Help: "Total number of failed upstream exchange API requests",
	}, []string{"exchange", "op"})
)
