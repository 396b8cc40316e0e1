package pipeline

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

//nolint:gochecknoglobals // Prometheus metrics
var (
	FetchDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "cryptomcp_pipeline_fetch_duration_seconds",
		Help:    "Duration of pipeline fetches by kind and outcome",
		Buckets: prometheus.DefBuckets,
	}, []string{"kind", "outcome"})

	FetchErrorsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "cryptomcp_pipeline_fetch_errors_total",
		Help: "Total number of pipeline fetches that failed after retries",
	}, []string{"kind", "exchange"})

	FetchSharedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "cryptomcp_pipeline_fetch_shared_total",
		Help: "Total number of fetches deduplicated by single-flight",
	}, []string{"kind"})
)
