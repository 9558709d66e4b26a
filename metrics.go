package goSession

import (
	"sync/atomic"
	"time"
)

// MetricID names one in-process counter.
type MetricID uint16

const (
	// MetricSessionCreated counts successful logins.
	MetricSessionCreated MetricID = iota
	// MetricSessionRestored counts sessions restored at start.
	MetricSessionRestored
	// MetricSessionExtended counts extensions, local or adopted from storage.
	MetricSessionExtended
	// MetricSessionCleared counts logouts and other non-forced clears.
	MetricSessionCleared
	// MetricSessionExpired counts watchdog-driven clears.
	MetricSessionExpired
	// MetricExpiryWarning counts warnings delivered.
	MetricExpiryWarning
	// MetricUnauthorized counts 401 responses seen by the transport.
	MetricUnauthorized
	// MetricExternalRemoval counts sessions ended by a resync.
	MetricExternalRemoval
	// MetricLoginRejected counts logins rejected for missing credentials.
	MetricLoginRejected
	// MetricStorageFailure counts backend errors surfaced by facade calls.
	MetricStorageFailure
	// MetricRequestAuthenticated counts requests sent with credentials.
	MetricRequestAuthenticated
	// MetricRequestAnonymous counts requests sent without credentials.
	MetricRequestAnonymous
	// MetricRequestLatency is the latency histogram of authenticated requests.
	MetricRequestLatency
	metricIDCount
)

var metricNames = [metricIDCount]string{
	MetricSessionCreated:       "session_created",
	MetricSessionRestored:      "session_restored",
	MetricSessionExtended:      "session_extended",
	MetricSessionCleared:       "session_cleared",
	MetricSessionExpired:       "session_expired",
	MetricExpiryWarning:        "expiry_warning",
	MetricUnauthorized:         "unauthorized",
	MetricExternalRemoval:      "external_removal",
	MetricLoginRejected:        "login_rejected",
	MetricStorageFailure:       "storage_failure",
	MetricRequestAuthenticated: "request_authenticated",
	MetricRequestAnonymous:     "request_anonymous",
	MetricRequestLatency:       "request_latency",
}

// String returns the snake_case name used by exporters.
func (id MetricID) String() string {
	if id >= metricIDCount {
		return "unknown"
	}
	return metricNames[id]
}

// MetricIDs lists every counter id in order.
func MetricIDs() []MetricID {
	out := make([]MetricID, 0, metricIDCount)
	for id := MetricID(0); id < metricIDCount; id++ {
		out = append(out, id)
	}
	return out
}

const (
	histBucketCount = 8
	cacheLineSize   = 64
)

// HistogramBounds are the inclusive upper bounds, in milliseconds, of every latency
// bucket but the last, which is unbounded.
var HistogramBounds = [histBucketCount - 1]int64{5, 10, 25, 50, 100, 250, 500}

type metricHistogram struct {
	buckets [histBucketCount]uint64
}

type paddedCounter struct {
	value uint64
	_     [cacheLineSize - 8]byte
}

// Metrics holds lock-free counters. A nil *Metrics is valid and records nothing.
type Metrics struct {
	enabled       bool
	enableLatency bool
	counters      [metricIDCount]paddedCounter
	histograms    [metricIDCount]metricHistogram
}

// MetricsSnapshot is a point-in-time copy of every counter.
type MetricsSnapshot struct {
	Counters   map[MetricID]uint64
	Histograms map[MetricID][]uint64
}

// NewMetrics returns counters configured by cfg.
func NewMetrics(cfg MetricsConfig) *Metrics {
	return &Metrics{
		enabled:       cfg.Enabled,
		enableLatency: cfg.Enabled && cfg.EnableLatencyHistograms,
	}
}

// Enabled reports whether counters record.
func (m *Metrics) Enabled() bool {
	return m != nil && m.enabled
}

// LatencyEnabled reports whether the latency histogram records.
func (m *Metrics) LatencyEnabled() bool {
	return m != nil && m.enableLatency
}

// Inc adds one to id.
func (m *Metrics) Inc(id MetricID) {
	if m == nil || !m.enabled || id >= metricIDCount {
		return
	}
	atomic.AddUint64(&m.counters[id].value, 1)
}

// Observe records d in the histogram of id. Only MetricRequestLatency has one.
func (m *Metrics) Observe(id MetricID, d time.Duration) {
	if m == nil || !m.enabled || !m.enableLatency || id != MetricRequestLatency {
		return
	}
	atomic.AddUint64(&m.histograms[id].buckets[bucketIndex(d)], 1)
}

// Value returns the current count of id.
func (m *Metrics) Value(id MetricID) uint64 {
	if m == nil || id >= metricIDCount {
		return 0
	}
	return atomic.LoadUint64(&m.counters[id].value)
}

// Snapshot copies every counter. A disabled Metrics yields empty maps.
func (m *Metrics) Snapshot() MetricsSnapshot {
	if m == nil || !m.enabled {
		return MetricsSnapshot{
			Counters:   map[MetricID]uint64{},
			Histograms: map[MetricID][]uint64{},
		}
	}

	s := MetricsSnapshot{
		Counters:   make(map[MetricID]uint64, int(metricIDCount)),
		Histograms: make(map[MetricID][]uint64, 1),
	}

	for id := MetricID(0); id < metricIDCount; id++ {
		if id == MetricRequestLatency {
			continue
		}
		s.Counters[id] = atomic.LoadUint64(&m.counters[id].value)
	}

	if m.enableLatency {
		buckets := make([]uint64, histBucketCount)
		for i := 0; i < histBucketCount; i++ {
			buckets[i] = atomic.LoadUint64(&m.histograms[MetricRequestLatency].buckets[i])
		}
		s.Histograms[MetricRequestLatency] = buckets
	}

	return s
}

func bucketIndex(d time.Duration) int {
	ms := d.Milliseconds()
	for i, bound := range HistogramBounds {
		if ms <= bound {
			return i
		}
	}
	return histBucketCount - 1
}
