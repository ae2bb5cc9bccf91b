package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestNewMetricsWith(t *testing.T) {
	m := NewMetricsWith(prometheus.NewRegistry())

	m.EventsProcessed.Inc()
	m.EventsProcessed.Inc()
	if got := testutil.ToFloat64(m.EventsProcessed); got != 2 {
		t.Errorf("EventsProcessed = %v, want 2", got)
	}

	m.RecordDiscard("no_text")
	m.RecordDiscard("no_text")
	m.RecordDiscard("excluded")
	if got := testutil.ToFloat64(m.EventsDiscarded.WithLabelValues("no_text")); got != 2 {
		t.Errorf("EventsDiscarded[no_text] = %v, want 2", got)
	}
	if got := testutil.ToFloat64(m.EventsDiscarded.WithLabelValues("excluded")); got != 1 {
		t.Errorf("EventsDiscarded[excluded] = %v, want 1", got)
	}

	m.ActiveProcessors.Inc()
	m.ActiveProcessors.Dec()
	if got := testutil.ToFloat64(m.ActiveProcessors); got != 0 {
		t.Errorf("ActiveProcessors = %v, want 0", got)
	}
}

func TestSeparateRegistries(t *testing.T) {
	// Two instances on separate registries must not collide.
	a := NewMetricsWith(prometheus.NewRegistry())
	b := NewMetricsWith(prometheus.NewRegistry())

	a.EventsMatched.Inc()
	if got := testutil.ToFloat64(b.EventsMatched); got != 0 {
		t.Errorf("second registry EventsMatched = %v, want 0", got)
	}
}
