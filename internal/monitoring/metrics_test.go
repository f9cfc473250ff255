package monitoring

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestCountersIncrement(t *testing.T) {
	before := testutil.ToFloat64(HitsReconstructed)
	HitsReconstructed.Add(3)
	if got := testutil.ToFloat64(HitsReconstructed) - before; got != 3 {
		t.Errorf("expected delta 3, got %f", got)
	}

	c := ProjectionFailures.WithLabelValues("not_on_surface")
	before = testutil.ToFloat64(c)
	c.Inc()
	if got := testutil.ToFloat64(c) - before; got != 1 {
		t.Errorf("expected delta 1, got %f", got)
	}
}

func TestMetricNames(t *testing.T) {
	EventsProcessed.WithLabelValues("ok").Add(0)
	if got := testutil.CollectAndCount(EventsProcessed, "mtpc_events_processed_total"); got < 1 {
		t.Errorf("expected at least one series, got %d", got)
	}
}
