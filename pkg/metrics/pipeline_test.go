package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestPipelineMetricsRecord(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewPipelineMetrics(reg)

	m.IncCompleted("purchase_commit")
	m.IncCompleted("purchase_commit")
	m.IncRejected("purchase_commit", "rate_mismatch")
	m.ObserveDuration("purchase_commit", 25*time.Millisecond)

	if got := testutil.ToFloat64(m.completed.WithLabelValues("purchase_commit")); got != 2 {
		t.Fatalf("expected 2 completions, got %v", got)
	}
	if got := testutil.ToFloat64(m.rejected.WithLabelValues("purchase_commit", "rate_mismatch")); got != 1 {
		t.Fatalf("expected 1 rejection, got %v", got)
	}
}

func TestPipelineMetricsNilSafe(t *testing.T) {
	var m *PipelineMetrics
	m.IncCompleted("redemption_create")
	m.IncRejected("redemption_create", "insufficient_grams")
	m.ObserveDuration("redemption_create", time.Second)

	empty := NewPipelineMetrics(nil)
	empty.IncCompleted("redemption_create")
}
