// Package metrics exposes the server's Prometheus collectors.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "debugger_mcp"

// Metrics groups the collectors. A nil *Metrics is valid and records nothing.
type Metrics struct {
	rpcRequests  *prometheus.CounterVec
	toolCalls    *prometheus.CounterVec
	toolDuration *prometheus.HistogramVec
	collections  *prometheus.CounterVec
}

// New creates the collectors and registers them with reg.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		rpcRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "rpc_requests_total",
			Help:      "JSON-RPC requests handled, by method and outcome.",
		}, []string{"method", "outcome"}),
		toolCalls: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "tool_calls_total",
			Help:      "Tool invocations, by tool and outcome.",
		}, []string{"tool", "outcome"}),
		toolDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "tool_call_duration_seconds",
			Help:      "Tool invocation latency.",
			Buckets:   prometheus.ExponentialBuckets(0.005, 2, 12),
		}, []string{"tool"}),
		collections: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "collections_total",
			Help:      "Asynchronous debugger collections, by kind and outcome.",
		}, []string{"kind", "outcome"}),
	}
	if reg != nil {
		reg.MustRegister(m.rpcRequests, m.toolCalls, m.toolDuration, m.collections)
	}
	return m
}

// RPCRequest counts one handled JSON-RPC message.
func (m *Metrics) RPCRequest(method, outcome string) {
	if m == nil {
		return
	}
	m.rpcRequests.WithLabelValues(method, outcome).Inc()
}

// ToolCall records one tool invocation.
func (m *Metrics) ToolCall(tool string, isError bool, elapsed time.Duration) {
	if m == nil {
		return
	}
	outcome := "success"
	if isError {
		outcome = "error"
	}
	m.toolCalls.WithLabelValues(tool, outcome).Inc()
	m.toolDuration.WithLabelValues(tool).Observe(elapsed.Seconds())
}

// Collection records how an asynchronous collection resolved.
func (m *Metrics) Collection(kind, outcome string) {
	if m == nil {
		return
	}
	m.collections.WithLabelValues(kind, outcome).Inc()
}
