package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestMetricsRecord(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := New(reg)

	m.ToolCall("set_breakpoint", false, 10*time.Millisecond)
	m.ToolCall("set_breakpoint", true, time.Millisecond)
	m.Collection("frames", "timeout")
	m.RPCRequest("tools/call", "ok")

	if got := testutil.ToFloat64(m.toolCalls.WithLabelValues("set_breakpoint", "error")); got != 1 {
		t.Fatalf("expected 1 error call, got %v", got)
	}
	if got := testutil.ToFloat64(m.collections.WithLabelValues("frames", "timeout")); got != 1 {
		t.Fatalf("expected 1 timed out collection, got %v", got)
	}
	if got := testutil.CollectAndCount(m.toolDuration); got != 1 {
		t.Fatalf("expected 1 histogram series, got %d", got)
	}
}

func TestNilMetricsIsNoop(t *testing.T) {
	var m *Metrics
	m.ToolCall("x", false, time.Second)
	m.Collection("frames", "complete")
	m.RPCRequest("ping", "ok")
}
