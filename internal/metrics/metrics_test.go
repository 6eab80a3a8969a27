package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestCounters(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := New(reg)

	m.Transition("pending_advisor", "pending_admin_review", OutcomeOK)
	m.Transition("pending_advisor", "pending_admin_review", OutcomeOK)
	m.Checkin(OutcomeRejected)
	m.Visible(3)

	if got := testutil.ToFloat64(m.Transitions.WithLabelValues("pending_advisor", "pending_admin_review", OutcomeOK)); got != 2 {
		t.Fatalf("expected 2 transitions got %v", got)
	}
	if got := testutil.ToFloat64(m.Checkins.WithLabelValues(OutcomeRejected)); got != 1 {
		t.Fatalf("expected 1 rejected checkin got %v", got)
	}
	if n := testutil.CollectAndCount(m.VisibleRequests); n != 1 {
		t.Fatalf("expected histogram to be collected, got %d", n)
	}
}

func TestNilMetricsIsNoop(t *testing.T) {
	var m *Metrics
	m.Transition("a", "b", OutcomeOK)
	m.Checkin(OutcomeOK)
	m.Visible(1)
}
