package metrics

import "github.com/prometheus/client_golang/prometheus"

// SchedulingMetrics exposes counters/histograms for the scheduling flows.
type SchedulingMetrics struct {
	turnsTotal      *prometheus.CounterVec
	bookingsTotal   *prometheus.CounterVec
	slotComputeTime prometheus.Histogram
}

func NewSchedulingMetrics(reg prometheus.Registerer) *SchedulingMetrics {
	m := &SchedulingMetrics{
		turnsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "clinic",
			Subsystem: "agent",
			Name:      "turns_total",
			Help:      "Total dialogue turns by emitted action",
		}, []string{"action"}),
		bookingsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "clinic",
			Subsystem: "booking",
			Name:      "transactions_total",
			Help:      "Total booking/cancellation transactions by outcome",
		}, []string{"operation", "outcome"}),
		slotComputeTime: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "clinic",
			Subsystem: "availability",
			Name:      "slot_computation_seconds",
			Help:      "Latency of availability slot computation",
			Buckets:   prometheus.DefBuckets,
		}),
	}
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	reg.MustRegister(m.turnsTotal, m.bookingsTotal, m.slotComputeTime)
	return m
}

func (m *SchedulingMetrics) ObserveTurn(action string) {
	if m == nil {
		return
	}
	m.turnsTotal.WithLabelValues(action).Inc()
}

func (m *SchedulingMetrics) ObserveBooking(operation, outcome string) {
	if m == nil {
		return
	}
	m.bookingsTotal.WithLabelValues(operation, outcome).Inc()
}

func (m *SchedulingMetrics) ObserveSlotComputation(seconds float64) {
	if m == nil {
		return
	}
	m.slotComputeTime.Observe(seconds)
}
