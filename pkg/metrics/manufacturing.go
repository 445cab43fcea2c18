package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// ManufacturingMetrics records work order lifecycle and material availability signals.
type ManufacturingMetrics struct {
	transitions  *prometheus.CounterVec
	shortages    *prometheus.CounterVec
	reservations *prometheus.CounterVec
	cycleTime    *prometheus.HistogramVec
}

// NewManufacturingMetrics registers the manufacturing metrics on the provided registerer.
func NewManufacturingMetrics(reg prometheus.Registerer) *ManufacturingMetrics {
	if reg == nil {
		return &ManufacturingMetrics{}
	}
	transitions := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "work_order_transitions_total",
		Help: "Work order status transitions by resulting status.",
	}, []string{"status"})
	shortages := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "component_shortages_total",
		Help: "Component shortages detected during reservation attempts.",
	}, []string{"item"})
	reservations := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "material_reservations_total",
		Help: "Reservation attempts by outcome.",
	}, []string{"outcome"})
	cycleTime := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "work_order_cycle_seconds",
		Help:    "Elapsed time from actual start to completion.",
		Buckets: prometheus.ExponentialBuckets(60, 4, 10),
	}, []string{"item"})
	reg.MustRegister(transitions, shortages, reservations, cycleTime)
	return &ManufacturingMetrics{
		transitions:  transitions,
		shortages:    shortages,
		reservations: reservations,
		cycleTime:    cycleTime,
	}
}

// IncTransition increments the transition counter for the resulting status.
func (m *ManufacturingMetrics) IncTransition(status string) {
	if m == nil || m.transitions == nil {
		return
	}
	m.transitions.WithLabelValues(normalizeLabel(status)).Inc()
}

// IncShortage increments the shortage counter for the named item.
func (m *ManufacturingMetrics) IncShortage(item string) {
	if m == nil || m.shortages == nil {
		return
	}
	m.shortages.WithLabelValues(normalizeLabel(item)).Inc()
}

// IncReservation increments the reservation counter for the given outcome.
func (m *ManufacturingMetrics) IncReservation(outcome string) {
	if m == nil || m.reservations == nil {
		return
	}
	m.reservations.WithLabelValues(normalizeLabel(outcome)).Inc()
}

// ObserveCycleTime records elapsed build time for the named item.
func (m *ManufacturingMetrics) ObserveCycleTime(item string, elapsed time.Duration) {
	if m == nil || m.cycleTime == nil {
		return
	}
	m.cycleTime.WithLabelValues(normalizeLabel(item)).Observe(elapsed.Seconds())
}

func normalizeLabel(value string) string {
	if value == "" {
		return "unknown"
	}
	return value
}
