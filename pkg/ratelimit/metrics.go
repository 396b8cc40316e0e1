package ratelimit

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

//nolint:gochecknoglobals // Prometheus metrics
var (
	RateLimitAcquiresTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "cryptomcp_ratelimit_acquires_total",
		Help: "Total number of successful token acquisitions",
	}, []string{"exchange"})

	RateLimitRejectionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "cryptomcp_ratelimit_rejections_total",
		Help: "Total number of rejected or cancelled acquisitions",
	}, []string{"exchange"})

	RateLimitWaitSeconds = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "cryptomcp_ratelimit_wait_seconds",
		Help:    "Time spent waiting for rate limit tokens",
		Buckets: prometheus.DefBuckets,
	}, []string{"exchange"})
)
