package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestCollector_RecordLoad(t *testing.T) {
	c := NewCollectorWithRegistry("flights_test", prometheus.NewRegistry())

	c.RecordLoad("spreadsheet", 2464, 150*time.Millisecond)
	c.RecordLoadError("postgres")

	if got := testutil.ToFloat64(c.LoadRowsTotal.WithLabelValues("spreadsheet")); got != 2464 {
		t.Errorf("load_rows_total = %v, want 2464", got)
	}
	if got := testutil.ToFloat64(c.TableRows); got != 2464 {
		t.Errorf("table_rows = %v, want 2464", got)
	}
	if got := testutil.ToFloat64(c.LoadErrorsTotal.WithLabelValues("postgres")); got != 1 {
		t.Errorf("load_errors_total = %v, want 1", got)
	}
}

func TestCollector_RecordView(t *testing.T) {
	c := NewCollectorWithRegistry("flights_test", prometheus.NewRegistry())

	c.RecordView(12)
	c.RecordView(0)
	c.RecordView(0)

	if got := testutil.ToFloat64(c.EmptyViewsTotal); got != 2 {
		t.Errorf("empty_views_total = %v, want 2", got)
	}
}

func TestTimer_ObserveDuration(t *testing.T) {
	c := NewCollectorWithRegistry("flights_test", prometheus.NewRegistry())

	timer := c.NewTimer(c.FilterDuration)
	if d := timer.ObserveDuration(); d < 0 {
		t.Errorf("negative duration %v", d)
	}
	if n := testutil.CollectAndCount(c.FilterDuration); n != 1 {
		t.Errorf("filter_duration series = %d, want 1", n)
	}

	// A nil observer only measures.
	if d := c.NewTimer(nil).ObserveDuration(); d < 0 {
		t.Errorf("negative duration %v", d)
	}
}
