package tools

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

//nolint:gochecknoglobals // Prometheus metrics
var (
	ToolCallsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "cryptomcp_tool_calls_total",
		Help: "Total number of tool calls by name and outcome",
	}, []string{"tool", "outcome"})

	ToolCallDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "cryptomcp_tool_call_duration_seconds",
		Help:    "Duration of tool calls end to end",
		Buckets: prometheus.DefBuckets,
	}, []string{"tool"})
)
