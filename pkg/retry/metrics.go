package retry

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

//nolint:gochecknoglobals // Prometheus metrics
var (
	RetryAttemptsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "cryptomcp_retry_attempts_total",
		Help: "Total number of operation attempts made under retry policies",
	})

	RetryExhaustedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "cryptomcp_retry_exhausted_total",
		Help: "Total number of operations that failed after exhausting retries",
	})
)
