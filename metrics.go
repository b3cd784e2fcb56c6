package goSession

import (
	"sync/atomic"
	"time"
)

// MetricID identifies a session counter or histogram.
type MetricID uint16

const (
	// MetricSignInSuccess counts sign-ins that reached Authenticated.
	MetricSignInSuccess MetricID = iota
	// MetricSignInFailure counts sign-ins that returned an error.
	MetricSignInFailure
	// MetricSecondFactorRequired counts first factors that asked for a code.
	MetricSecondFactorRequired
	// MetricSecondFactorSuccess counts accepted second-factor codes.
	MetricSecondFactorSuccess
	// MetricSecondFactorFailure counts rejected second-factor codes.
	MetricSecondFactorFailure
	// MetricBackupCodeUsed counts accepted backup codes.
	MetricBackupCodeUsed
	// MetricRefreshSuccess counts network refreshes that rotated the pair.
	MetricRefreshSuccess
	// MetricRefreshFailure counts refreshes that moved the session to RefreshFailed.
	MetricRefreshFailure
	// MetricRefreshShared counts callers that waited on another caller's refresh.
	MetricRefreshShared
	// MetricRefreshDiscarded counts refresh results dropped because the
	// session moved on while the request was in flight.
	MetricRefreshDiscarded
	// MetricPrincipalRefetchFailure counts failed principal re-fetches.
	MetricPrincipalRefetchFailure
	// MetricRolesDegraded counts principals built with an empty role list
	// because the roles endpoint failed.
	MetricRolesDegraded
	// MetricSignOut counts sign-outs.
	MetricSignOut
	// MetricRestoreSuccess counts restores that reached Authenticated.
	MetricRestoreSuccess
	// MetricRestoreFailure counts restores that ended Unauthenticated.
	MetricRestoreFailure
	// MetricPersistFailure counts failed best-effort store writes.
	MetricPersistFailure
	// MetricRefreshLatency is the refresh round-trip latency histogram.
	MetricRefreshLatency
	metricIDCount
)

const (
	histBucketCount = 8
	cacheLineSize   = 64
)

type metricHistogram struct {
	buckets [histBucketCount]uint64
}

type paddedCounter struct {
	value uint64
	_     [cacheLineSize - 8]byte
}

// Metrics holds cache-line padded atomic counters and fixed-bucket latency
// histograms. A nil or disabled *Metrics ignores every update.
type Metrics struct {
	enabled       bool
	enableLatency bool
	counters      [metricIDCount]paddedCounter
	histograms    [metricIDCount]metricHistogram
}

// MetricsSnapshot is a point-in-time copy of all counters and histograms.
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

// Enabled reports whether counters are recorded.
func (m *Metrics) Enabled() bool {
	return m != nil && m.enabled
}

// LatencyEnabled reports whether latency histograms are recorded.
func (m *Metrics) LatencyEnabled() bool {
	return m != nil && m.enableLatency
}

// Inc adds one to the counter id.
func (m *Metrics) Inc(id MetricID) {
	if m == nil || !m.enabled || id >= metricIDCount {
		return
	}
	atomic.AddUint64(&m.counters[id].value, 1)
}

// Observe records d in the histogram of id. Only MetricRefreshLatency has one.
func (m *Metrics) Observe(id MetricID, d time.Duration) {
	if m == nil || !m.enabled || !m.enableLatency || id >= metricIDCount {
		return
	}
	if id != MetricRefreshLatency {
		return
	}

	b := bucketIndex(d)
	atomic.AddUint64(&m.histograms[id].buckets[b], 1)
}

// Value returns the current counter value.
func (m *Metrics) Value(id MetricID) uint64 {
	if m == nil || id >= metricIDCount {
		return 0
	}
	return atomic.LoadUint64(&m.counters[id].value)
}

// Snapshot copies every counter, and the histograms when enabled.
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
		s.Counters[id] = atomic.LoadUint64(&m.counters[id].value)
	}

	if m.enableLatency {
		buckets := make([]uint64, histBucketCount)
		for i := 0; i < histBucketCount; i++ {
			buckets[i] = atomic.LoadUint64(&m.histograms[MetricRefreshLatency].buckets[i])
		}
		s.Histograms[MetricRefreshLatency] = buckets
	}

	return s
}

// bucketIndex maps a network round-trip to one of eight buckets:
// 25ms, 50ms, 100ms, 250ms, 500ms, 1s, 2.5s, +Inf.
func bucketIndex(d time.Duration) int {
	ms := d.Milliseconds()

	switch {
	case ms <= 25:
		return 0
	case ms <= 50:
		return 1
	case ms <= 100:
		return 2
	case ms <= 250:
		return 3
	case ms <= 500:
		return 4
	case ms <= 1000:
		return 5
	case ms <= 2500:
		return 6
	default:
		return 7
	}
}
