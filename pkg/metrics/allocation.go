package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// AllocationMetrics counts charitable allocations created by the API
// process. The matcher worker records the same series through
// MatcherMetrics; the two never share a registry.
type AllocationMetrics struct {
	allocations    prometheus.Counter
	allocatedTotal prometheus.Counter
}

// NewAllocationMetrics registers the allocation counters on the provided registerer.
func NewAllocationMetrics(reg prometheus.Registerer) *AllocationMetrics {
	if reg == nil {
		return &AllocationMetrics{}
	}
	allocations := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "charity_allocations_total",
		Help: "Charitable allocations created from profitable sells.",
	})
	allocatedTotal := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "charity_allocated_amount_total",
		Help: "Cumulative allocated amount across all users.",
	})
	reg.MustRegister(allocations, allocatedTotal)
	return &AllocationMetrics{allocations: allocations, allocatedTotal: allocatedTotal}
}

// IncAllocation records a created allocation and its amount.
func (m *AllocationMetrics) IncAllocation(amount float64) {
	if m == nil || m.allocations == nil {
		return
	}
	m.allocations.Inc()
	m.allocatedTotal.Add(amount)
}
