package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestObserveHTTP(t *testing.T) {
	before := testutil.CollectAndCount(HTTPRequestDuration)
	ObserveHTTP("GET", "/api/pack/picker", 200, 15*time.Millisecond)
	ObserveHTTP("GET", "/api/pack/picker", 429, time.Millisecond)
	if got := testutil.CollectAndCount(HTTPRequestDuration); got < before+2 {
		t.Fatalf("expected two new series, got %d (before %d)", got, before)
	}
}

func TestSnapshotRequestsCounter(t *testing.T) {
	c := SnapshotRequests.WithLabelValues("fresh")
	before := testutil.ToFloat64(c)
	c.Inc()
	if got := testutil.ToFloat64(c); got != before+1 {
		t.Fatalf("counter = %v, want %v", got, before+1)
	}
}
