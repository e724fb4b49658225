package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// PipelineMetrics records outcomes of the purchase and redemption pipelines.
type PipelineMetrics struct {
	duration  *prometheus.HistogramVec
	completed *prometheus.CounterVec
	rejected  *prometheus.CounterVec
}

// NewPipelineMetrics registers the pipeline metrics on the provided registerer.
func NewPipelineMetrics(reg prometheus.Registerer) *PipelineMetrics {
	if reg == nil {
		return &PipelineMetrics{}
	}
	duration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "pipeline_duration_seconds",
		Help:    "Duration of pipeline operations in seconds.",
		Buckets: prometheus.DefBuckets,
	}, []string{"operation"})
	completed := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "pipeline_completed",
		Help: "Successful pipeline operations.",
	}, []string{"operation"})
	rejected := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "pipeline_rejected",
		Help: "Pipeline operations rejected by a business rule.",
	}, []string{"operation", "reason"})
	reg.MustRegister(duration, completed, rejected)
	return &PipelineMetrics{
		duration:  duration,
		completed: completed,
		rejected:  rejected,
	}
}

// ObserveDuration records the duration for the named operation.
func (m *PipelineMetrics) ObserveDuration(operation string, duration time.Duration) {
	if m == nil || m.duration == nil {
		return
	}
	m.duration.WithLabelValues(normalizeLabel(operation)).Observe(duration.Seconds())
}

// IncCompleted increments the success counter for the named operation.
func (m *PipelineMetrics) IncCompleted(operation string) {
	if m == nil || m.completed == nil {
		return
	}
	m.completed.WithLabelValues(normalizeLabel(operation)).Inc()
}

// IncRejected increments the rejection counter for the named operation.
func (m *PipelineMetrics) IncRejected(operation, reason string) {
	if m == nil || m.rejected == nil {
		return
	}
	m.rejected.WithLabelValues(normalizeLabel(operation), normalizeLabel(reason)).Inc()
}

func normalizeLabel(value string) string {
	if value == "" {
		return "unknown"
	}
	return value
}
