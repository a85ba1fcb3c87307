package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// MatcherMetrics records tick and order outcomes for the scheduled
// order matcher. A nil receiver or unregistered instance is a no-op so
// tests and tooling can skip metrics wiring entirely.
type MatcherMetrics struct {
	tickDuration   *prometheus.HistogramVec
	ordersExecuted *prometheus.CounterVec
	ordersFailed   *prometheus.CounterVec
	ordersExpired  prometheus.Counter
	allocations    prometheus.Counter
	allocatedTotal prometheus.Counter
}

// NewMatcherMetrics registers the matcher metrics on the provided registerer.
func NewMatcherMetrics(reg prometheus.Registerer) *MatcherMetrics {
	if reg == nil {
		return &MatcherMetrics{}
	}
	tickDuration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "matcher_tick_duration_seconds",
		Help:    "Duration of matcher ticks in seconds.",
		Buckets: prometheus.DefBuckets,
	}, []string{"outcome"})
	ordersExecuted := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "matcher_orders_executed_total",
		Help: "Conditional orders executed, by direction.",
	}, []string{"direction"})
	ordersFailed := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "matcher_orders_failed_total",
		Help: "Conditional orders that failed during execution.",
	}, []string{"reason"})
	ordersExpired := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "matcher_orders_expired_total",
		Help: "Conditional orders expired without executing.",
	})
	allocations := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "charity_allocations_total",
		Help: "Charitable allocations created from profitable sells.",
	})
	allocatedTotal := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "charity_allocated_amount_total",
		Help: "Cumulative allocated amount across all users.",
	})
	reg.MustRegister(tickDuration, ordersExecuted, ordersFailed, ordersExpired, allocations, allocatedTotal)
	return &MatcherMetrics{
		tickDuration:   tickDuration,
		ordersExecuted: ordersExecuted,
		ordersFailed:   ordersFailed,
		ordersExpired:  ordersExpired,
		allocations:    allocations,
		allocatedTotal: allocatedTotal,
	}
}

// ObserveTick records the duration of a matcher tick.
func (m *MatcherMetrics) ObserveTick(outcome string, duration time.Duration) {
	if m == nil || m.tickDuration == nil {
		return
	}
	m.tickDuration.WithLabelValues(normalizeLabel(outcome)).Observe(duration.Seconds())
}

// IncExecuted increments the executed counter for the given direction.
func (m *MatcherMetrics) IncExecuted(direction string) {
	if m == nil || m.ordersExecuted == nil {
		return
	}
	m.ordersExecuted.WithLabelValues(normalizeLabel(direction)).Inc()
}

// IncFailed increments the failure counter for the given reason.
func (m *MatcherMetrics) IncFailed(reason string) {
	if m == nil || m.ordersFailed == nil {
		return
	}
	m.ordersFailed.WithLabelValues(normalizeLabel(reason)).Inc()
}

// AddExpired adds swept orders to the expired counter.
func (m *MatcherMetrics) AddExpired(count int64) {
	if m == nil || m.ordersExpired == nil || count <= 0 {
		return
	}
	m.ordersExpired.Add(float64(count))
}

// IncAllocation records a created allocation and its amount.
func (m *MatcherMetrics) IncAllocation(amount float64) {
	if m == nil || m.allocations == nil {
		return
	}
	m.allocations.Inc()
	m.allocatedTotal.Add(amount)
}

func normalizeLabel(value string) string {
	if value == "" {
		return "unknown"
	}
	return value
}
