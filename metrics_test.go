package tokenAuth

import (
	"sync"
	"testing"
	"time"
)

func TestMetricsDisabledNoIncrement(t *testing.T) {
	m := NewMetrics(MetricsConfig{Enabled: false})
	m.Inc(MetricSignInSuccess)

	if got := m.Value(MetricSignInSuccess); got != 0 {
		t.Fatalf("expected 0, got %d", got)
	}
	if snap := m.Snapshot(); len(snap.Counters) != 0 {
		t.Fatalf("expected empty snapshot, got %v", snap.Counters)
	}
}

func TestMetricsEnabledIncrement(t *testing.T) {
	m := NewMetrics(MetricsConfig{Enabled: true})
	m.Inc(MetricGateRenewed)
	m.Inc(MetricGateRenewed)
	m.Inc(MetricGateRenewed)

	if got := m.Value(MetricGateRenewed); got != 3 {
		t.Fatalf("expected 3, got %d", got)
	}
}

func TestMetricsConcurrentIncrementSafe(t *testing.T) {
	m := NewMetrics(MetricsConfig{Enabled: true})

	const goroutines = 32
	const perG = 4000

	var wg sync.WaitGroup
	wg.Add(goroutines)
	for i := 0; i < goroutines; i++ {
		go func() {
			defer wg.Done()
			for j := 0; j < perG; j++ {
				m.Inc(MetricGateAccessValid)
			}
		}()
	}
	wg.Wait()

	want := uint64(goroutines * perG)
	if got := m.Value(MetricGateAccessValid); got != want {
		t.Fatalf("expected %d, got %d", want, got)
	}
}

func TestMetricsHistogramBucketCorrectness(t *testing.T) {
	m := NewMetrics(MetricsConfig{
		Enabled:                 true,
		EnableLatencyHistograms: true,
	})

	observations := []time.Duration{
		5 * time.Millisecond,
		10 * time.Millisecond,
		25 * time.Millisecond,
		50 * time.Millisecond,
		100 * time.Millisecond,
		250 * time.Millisecond,
		500 * time.Millisecond,
		700 * time.Millisecond,
	}

	for _, d := range observations {
		m.Observe(MetricGateLatency, d)
	}
	// non-histogram ids are ignored
	m.Observe(MetricSignInSuccess, time.Millisecond)

	snap := m.Snapshot()
	buckets := snap.Histograms[MetricGateLatency]
	if len(buckets) != 8 {
		t.Fatalf("expected 8 buckets, got %d", len(buckets))
	}
	for i, n := range buckets {
		if n != 1 {
			t.Fatalf("bucket %d: expected 1, got %d", i, n)
		}
	}
	if _, ok := snap.Counters[MetricGateLatency]; ok {
		t.Fatal("histogram id must not appear as a counter")
	}
}

func TestMetricIDNames(t *testing.T) {
	if MetricGateRenewed.String() != "gate_renewed" {
		t.Fatalf("unexpected name %q", MetricGateRenewed.String())
	}
	for id := MetricID(0); id < metricIDCount; id++ {
		if id.String() == "" {
			t.Fatalf("metric %d has no name", id)
		}
	}
	if MetricID(9999).String() != "unknown" {
		t.Fatal("expected unknown for out-of-range id")
	}
}
