package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// SettlementMetrics records webhook settlement outcomes.
type SettlementMetrics struct {
	duration  *prometheus.HistogramVec
	settled   *prometheus.CounterVec
	duplicate *prometheus.CounterVec
	failure   *prometheus.CounterVec
}

// NewSettlementMetrics registers the settlement metrics on the provided registerer.
func NewSettlementMetrics(reg prometheus.Registerer) *SettlementMetrics {
	if reg == nil {
		return &SettlementMetrics{}
	}
	duration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "settlement_duration_seconds",
		Help:    "Duration of webhook settlement in seconds.",
		Buckets: prometheus.DefBuckets,
	}, []string{"event"})
	settled := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "settlement_settled",
		Help: "Webhook events settled into durable orders.",
	}, []string{"event"})
	duplicate := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "settlement_duplicate",
		Help: "Webhook deliveries resolved to an already-settled order.",
	}, []string{"event"})
	failure := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "settlement_failure",
		Help: "Webhook deliveries that failed to settle.",
	}, []string{"event"})
	reg.MustRegister(duration, settled, duplicate, failure)
	return &SettlementMetrics{
		duration:  duration,
		settled:   settled,
		duplicate: duplicate,
		failure:   failure,
	}
}

// ObserveDuration records how long settling the named event type took.
func (s *SettlementMetrics) ObserveDuration(event string, duration time.Duration) {
	if s == nil || s.duration == nil {
		return
	}
	s.duration.WithLabelValues(normalizeLabel(event)).Observe(duration.Seconds())
}

// IncSettled increments the settled counter for the named event type.
func (s *SettlementMetrics) IncSettled(event string) {
	if s == nil || s.settled == nil {
		return
	}
	s.settled.WithLabelValues(normalizeLabel(event)).Inc()
}

// IncDuplicate increments the duplicate counter for the named event type.
func (s *SettlementMetrics) IncDuplicate(event string) {
	if s == nil || s.duplicate == nil {
		return
	}
	s.duplicate.WithLabelValues(normalizeLabel(event)).Inc()
}

// IncFailure increments the failure counter for the named event type.
func (s *SettlementMetrics) IncFailure(event string) {
	if s == nil || s.failure == nil {
		return
	}
	s.failure.WithLabelValues(normalizeLabel(event)).Inc()
}

func normalizeLabel(event string) string {
	if event == "" {
		return "unknown"
	}
	return event
}
