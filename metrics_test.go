package goSession

import (
	"sync"
	"testing"
	"time"
)

func TestMetricsDisabledNoIncrement(t *testing.T) {
	m := NewMetrics(MetricsConfig{Enabled: false})
	m.Inc(MetricSessionCreated)

	if got := m.Value(MetricSessionCreated); got != 0 {
		t.Fatalf("expected 0, got %d", got)
	}
	if snap := m.Snapshot(); len(snap.Counters) != 0 {
		t.Fatalf("disabled snapshot must be empty, got %v", snap.Counters)
	}
}

func TestMetricsNilSafe(t *testing.T) {
	var m *Metrics
	m.Inc(MetricSessionCreated)
	m.Observe(MetricRequestLatency, time.Millisecond)
	if m.Value(MetricSessionCreated) != 0 || m.Enabled() {
		t.Fatal("nil metrics must record nothing")
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
				m.Inc(MetricRequestAuthenticated)
			}
		}()
	}
	wg.Wait()

	want := uint64(goroutines * perG)
	if got := m.Value(MetricRequestAuthenticated); got != want {
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
		m.Observe(MetricRequestLatency, d)
	}
	// Only the request latency metric carries a histogram.
	m.Observe(MetricSessionCreated, time.Millisecond)

	snap := m.Snapshot()
	buckets := snap.Histograms[MetricRequestLatency]
	if len(buckets) != 8 {
		t.Fatalf("expected 8 buckets, got %d", len(buckets))
	}
	for i, v := range buckets {
		if v != 1 {
			t.Fatalf("bucket %d expected 1, got %d", i, v)
		}
	}
	if _, ok := snap.Histograms[MetricSessionCreated]; ok {
		t.Fatal("unexpected histogram for a counter")
	}
}

func TestMetricsSnapshotConsistency(t *testing.T) {
	m := NewMetrics(MetricsConfig{Enabled: true})
	m.Inc(MetricSessionCreated)
	m.Inc(MetricSessionExpired)
	m.Inc(MetricSessionExpired)

	snap := m.Snapshot()

	if snap.Counters[MetricSessionCreated] != 1 {
		t.Fatalf("expected MetricSessionCreated=1 got %d", snap.Counters[MetricSessionCreated])
	}
	if snap.Counters[MetricSessionExpired] != 2 {
		t.Fatalf("expected MetricSessionExpired=2 got %d", snap.Counters[MetricSessionExpired])
	}
	if _, ok := snap.Counters[MetricRequestLatency]; ok {
		t.Fatal("histogram id must not appear among counters")
	}
	if len(snap.Histograms) != 0 {
		t.Fatal("latency histograms are off by default")
	}
}

func TestMetricIDNames(t *testing.T) {
	seen := map[string]bool{}
	for _, id := range MetricIDs() {
		name := id.String()
		if name == "" || name == "unknown" {
			t.Fatalf("metric %d has no name", id)
		}
		if seen[name] {
			t.Fatalf("duplicate metric name %q", name)
		}
		seen[name] = true
	}
	if MetricID(9999).String() != "unknown" {
		t.Fatal("out of range id must be unknown")
	}
}
