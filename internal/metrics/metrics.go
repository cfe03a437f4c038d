package metrics

import "github.com/prometheus/client_golang/prometheus"

// CancellationMetrics exposes counters/histograms for the cancellation flow.
type CancellationMetrics struct {
	cancelTotal    *prometheus.CounterVec
	notifyTotal    *prometheus.CounterVec
	notifyLatency  prometheus.Histogram
	decisionsTotal *prometheus.CounterVec
}

func NewCancellationMetrics(reg prometheus.Registerer) *CancellationMetrics {
	m := &CancellationMetrics{
		cancelTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "portal",
			Subsystem: "cancellation",
			Name:      "cancel_total",
			Help:      "Total cancellation attempts by outcome",
		}, []string{"outcome"}),
		notifyTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "portal",
			Subsystem: "cancellation",
			Name:      "notification_total",
			Help:      "Total cancellation webhook deliveries by status",
		}, []string{"status"}),
		notifyLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "portal",
			Subsystem: "cancellation",
			Name:      "notification_latency_seconds",
			Help:      "Latency of cancellation webhook deliveries",
			Buckets:   prometheus.DefBuckets,
		}),
		decisionsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "portal",
			Subsystem: "cancellation",
			Name:      "decision_total",
			Help:      "Eligibility decisions taken before a cancel",
		}, []string{"eligible"}),
	}
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	reg.MustRegister(m.cancelTotal, m.notifyTotal, m.notifyLatency, m.decisionsTotal)
	return m
}

// ObserveCancellation counts a cancel by outcome ("cancelled", "store_error").
func (m *CancellationMetrics) ObserveCancellation(outcome string) {
	if m == nil {
		return
	}
	m.cancelTotal.WithLabelValues(outcome).Inc()
}

func (m *CancellationMetrics) ObserveNotification(status string, seconds float64) {
	if m == nil {
		return
	}
	m.notifyTotal.WithLabelValues(status).Inc()
	m.notifyLatency.Observe(seconds)
}

func (m *CancellationMetrics) ObserveDecision(eligible bool) {
	if m == nil {
		return
	}
	label := "false"
	if eligible {
		label = "true"
	}
	m.decisionsTotal.WithLabelValues(label).Inc()
}
