// Package metrics holds the Prometheus collectors exported on /metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Outcome label values.
const (
	OutcomeOK       = "ok"
	OutcomeRejected = "rejected"
	OutcomeStale    = "stale"
	OutcomeError    = "error"
)

// Metrics groups the service collectors. A nil *Metrics is valid and records nothing.
type Metrics struct {
	Transitions     *prometheus.CounterVec
	Checkins        *prometheus.CounterVec
	VisibleRequests prometheus.Histogram
}

// New creates the collectors and registers them on reg.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		Transitions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "internship_transitions_total",
			Help: "Status transition attempts by source state, target state and outcome.",
		}, []string{"from", "to", "outcome"}),
		Checkins: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "internship_checkins_total",
			Help: "Check-in writes by outcome.",
		}, []string{"outcome"}),
		VisibleRequests: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "internship_visible_requests",
			Help:    "Size of the request set returned to a viewer.",
			Buckets: []float64{0, 1, 5, 10, 25, 50, 100, 250, 500, 1000},
		}),
	}
	reg.MustRegister(m.Transitions, m.Checkins, m.VisibleRequests)
	return m
}

// Transition counts one transition attempt. to is empty when the attempt was rejected.
func (m *Metrics) Transition(from, to, outcome string) {
	if m == nil {
		return
	}
	m.Transitions.WithLabelValues(from, to, outcome).Inc()
}

// Checkin counts one check-in write.
func (m *Metrics) Checkin(outcome string) {
	if m == nil {
		return
	}
	m.Checkins.WithLabelValues(outcome).Inc()
}

// Visible observes the size of a visible request listing.
func (m *Metrics) Visible(n int) {
	if m == nil {
		return
	}
	m.VisibleRequests.Observe(float64(n))
}
