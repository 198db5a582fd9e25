package telemetry

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	scansTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "osvscan_scans_total",
			Help: "Total number of package scans started",
		},
		[]string{"ecosystem"},
	)

	toolCallsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "osvscan_agent_tool_calls_total",
			Help: "Total number of OSV tool calls issued by the agent",
		},
		[]string{"tool"},
	)

	agentLatency = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "osvscan_agent_latency_seconds",
			Help:    "Latency of complete agent runs in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"provider"},
	)
)

// TrackScan increments the scan counter for an ecosystem.
func TrackScan(ecosystem string) {
	scansTotal.WithLabelValues(ecosystem).Inc()
}

// TrackToolCall increments the tool-call counter.
func TrackToolCall(tool string) {
	toolCallsTotal.WithLabelValues(tool).Inc()
}

// ObserveAgentLatency records the duration of one agent run.
func ObserveAgentLatency(provider string, seconds float64) {
	agentLatency.WithLabelValues(provider).Observe(seconds)
}

// StartMetricsServer starts a HTTP server exposing Prometheus metrics.
func StartMetricsServer(addr string) error {
	http.Handle("/metrics", promhttp.Handler())

	LogInfo("Starting metrics server", "addr", addr)
	return http.ListenAndServe(addr, nil)
}
