package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics tracks seat allocation outcomes and administrator actions.
// A nil *Metrics is valid and records nothing.
type Metrics struct {
	AllocationsSucceeded prometheus.Counter
	AllocationsFailed    *prometheus.CounterVec
	RegistrationsRemoved prometheus.Counter
	BlockToggles         prometheus.Counter
	EventsPublishFailed  prometheus.Counter
}

// New registers the seating metrics on reg.  Tests pass a fresh
// prometheus.NewRegistry() so counters start at zero.
func New(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		AllocationsSucceeded: f.NewCounter(prometheus.CounterOpts{
			Name: "seating_allocations_succeeded_total",
			Help: "Total number of registrations that received their seats",
		}),
		AllocationsFailed: f.NewCounterVec(prometheus.CounterOpts{
			Name: "seating_allocations_failed_total",
			Help: "Total number of rejected or failed allocations by reason",
		}, []string{"reason"}),
		RegistrationsRemoved: f.NewCounter(prometheus.CounterOpts{
			Name: "seating_registrations_removed_total",
			Help: "Total number of registrations removed by administrators",
		}),
		BlockToggles: f.NewCounter(prometheus.CounterOpts{
			Name: "seating_block_toggles_total",
			Help: "Total number of seat block/unblock actions",
		}),
		EventsPublishFailed: f.NewCounter(prometheus.CounterOpts{
			Name: "seating_events_publish_failed_total",
			Help: "Total number of registration events that could not be published",
		}),
	}
}

// IncrementAllocationSucceeded records a successful allocation.
func (m *Metrics) IncrementAllocationSucceeded() {
	if m == nil {
		return
	}
	m.AllocationsSucceeded.Inc()
}

// IncrementAllocationFailed records a failed allocation under reason.
func (m *Metrics) IncrementAllocationFailed(reason string) {
	if m == nil {
		return
	}
	m.AllocationsFailed.WithLabelValues(reason).Inc()
}

// IncrementRegistrationRemoved records an administrator removal.
func (m *Metrics) IncrementRegistrationRemoved() {
	if m == nil {
		return
	}
	m.RegistrationsRemoved.Inc()
}

// IncrementBlockToggle records a block toggle.
func (m *Metrics) IncrementBlockToggle() {
	if m == nil {
		return
	}
	m.BlockToggles.Inc()
}

// IncrementPublishFailed records an event that was dropped.
func (m *Metrics) IncrementPublishFailed() {
	if m == nil {
		return
	}
	m.EventsPublishFailed.Inc()
}
