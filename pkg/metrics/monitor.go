package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// MonitorMetrics records metadata for payment status sweeps.
type MonitorMetrics struct {
	sweepDuration prometheus.Histogram
	fetchFailures prometheus.Counter
	notifications *prometheus.CounterVec
}

// NewMonitorMetrics registers the monitor metrics on the provided registerer.
func NewMonitorMetrics(reg prometheus.Registerer) *MonitorMetrics {
	if reg == nil {
		return &MonitorMetrics{}
	}
	sweepDuration := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "payment_sweep_duration_seconds",
		Help:    "Duration of payment status sweeps in seconds.",
		Buckets: prometheus.DefBuckets,
	})
	fetchFailures := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "payment_sweep_fetch_failures",
		Help: "Per-order status fetches that failed during a sweep.",
	})
	notifications := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "payment_notifications_emitted",
		Help: "User-facing payment notifications emitted by terminal status.",
	}, []string{"status"})
	reg.MustRegister(sweepDuration, fetchFailures, notifications)
	return &MonitorMetrics{
		sweepDuration: sweepDuration,
		fetchFailures: fetchFailures,
		notifications: notifications,
	}
}

// ObserveSweep records the duration of one sweep.
func (m *MonitorMetrics) ObserveSweep(duration time.Duration) {
	if m == nil || m.sweepDuration == nil {
		return
	}
	m.sweepDuration.Observe(duration.Seconds())
}

// IncFetchFailure counts a skipped order within a sweep.
func (m *MonitorMetrics) IncFetchFailure() {
	if m == nil || m.fetchFailures == nil {
		return
	}
	m.fetchFailures.Inc()
}

// IncNotification counts an emitted notification for the given status.
func (m *MonitorMetrics) IncNotification(status string) {
	if m == nil || m.notifications == nil {
		return
	}
	if status == "" {
		status = "unknown"
	}
	m.notifications.WithLabelValues(status).Inc()
}
