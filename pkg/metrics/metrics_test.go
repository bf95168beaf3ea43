package metrics

import (
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestPrometheusObserver(t *testing.T) {
	reg := prometheus.NewRegistry()
	o, err := NewPrometheusObserver("test", reg)
	if err != nil {
		t.Fatalf("NewPrometheusObserver failed: %v", err)
	}

	o.RecordResolution("s3", OutcomeInternal)
	o.RecordResolution("s3", OutcomeInternal)
	o.RecordResolution("local", OutcomeExcluded)
	o.RecordFetch("s3", 20*time.Millisecond, 512, nil)
	o.RecordFetch("s3", 5*time.Millisecond, 0, errors.New("boom"))

	if got := testutil.ToFloat64(o.resolutions.WithLabelValues("s3", OutcomeInternal)); got != 2 {
		t.Errorf("internal resolutions = %v, want 2", got)
	}
	if got := testutil.ToFloat64(o.resolutions.WithLabelValues("local", OutcomeExcluded)); got != 1 {
		t.Errorf("excluded resolutions = %v, want 1", got)
	}
	if got := testutil.ToFloat64(o.fetchBytes.WithLabelValues("s3")); got != 512 {
		t.Errorf("fetched bytes = %v, want 512", got)
	}
	if got := testutil.ToFloat64(o.fetchErrors.WithLabelValues("s3")); got != 1 {
		t.Errorf("fetch errors = %v, want 1", got)
	}

	// registering twice against the same registry is tolerated
	if _, err := NewPrometheusObserver("test", reg); err != nil {
		t.Errorf("second registration failed: %v", err)
	}
}

func TestNilObserverIsSafe(t *testing.T) {
	var o *PrometheusObserver
	o.RecordResolution("s3", OutcomeInternal)
	o.RecordFetch("s3", time.Second, 1, nil)
}
