package metrics

import (
	"sync/atomic"
	"time"
)

// ID identifies one counter or histogram slot.
type ID uint16

const (
	// MetricCeremonyBegun counts sign-in and sign-up ceremonies started.
	MetricCeremonyBegun ID = iota
	// MetricPromptAccepted counts prompt submissions a factor accepted.
	MetricPromptAccepted
	// MetricPromptRejected counts prompt submissions a factor rejected.
	MetricPromptRejected
	// MetricPromptSkipped counts factors the resolver skipped.
	MetricPromptSkipped
	// MetricPromptSent counts out-of-band prompt deliveries.
	MetricPromptSent
	// MetricValidationSent counts validation code deliveries.
	MetricValidationSent
	// MetricValidationAccepted counts accepted validation codes.
	MetricValidationAccepted
	// MetricValidationRejected counts rejected validation codes.
	MetricValidationRejected
	// MetricCeremonyCompleted counts ceremonies that reached the terminal.
	MetricCeremonyCompleted
	// MetricIdentityCreated counts identities persisted by registration.
	MetricIdentityCreated
	// MetricSessionCreated counts session records written.
	MetricSessionCreated
	// MetricRefreshSuccess counts successful refresh operations.
	MetricRefreshSuccess
	// MetricRefreshFailure counts rejected refresh operations.
	MetricRefreshFailure
	// MetricSignOut counts sign-out operations.
	MetricSignOut
	// MetricRateLimitHit counts requests denied by a rate window.
	MetricRateLimitHit
	// MetricSubmitLatency is the submit-prompt latency histogram.
	MetricSubmitLatency
	idCount
)

const (
	histBucketCount = 8
	cacheLineSize   = 64
)

type histogram struct {
	buckets [histBucketCount]uint64
}

type paddedCounter struct {
	value uint64
	_     [cacheLineSize - 8]byte
}

// Config enables metric collection. Latency histograms cost one extra
// atomic add per submit and are off unless requested.
type Config struct {
	Enabled                 bool
	EnableLatencyHistograms bool
}

// Metrics is the in-process metric store. The zero value is disabled;
// a nil *Metrics is safe to call.
type Metrics struct {
	enabled       bool
	enableLatency bool
	counters      [idCount]paddedCounter
	histograms    [idCount]histogram
}

// Snapshot is a point-in-time copy of every counter and histogram.
type Snapshot struct {
	Counters   map[ID]uint64
	Histograms map[ID][]uint64
}

func New(cfg Config) *Metrics {
	return &Metrics{
		enabled:       cfg.Enabled,
		enableLatency: cfg.Enabled && cfg.EnableLatencyHistograms,
	}
}

func (m *Metrics) Enabled() bool {
	return m != nil && m.enabled
}

// Inc adds one to the counter. Disabled stores and unknown ids are no-ops.
func (m *Metrics) Inc(id ID) {
	if m == nil || !m.enabled || id >= idCount {
		return
	}
	atomic.AddUint64(&m.counters[id].value, 1)
}

// Observe records a submit-prompt duration. Only [MetricSubmitLatency]
// carries a histogram.
func (m *Metrics) Observe(id ID, d time.Duration) {
	if m == nil || !m.enableLatency || id != MetricSubmitLatency {
		return
	}
	atomic.AddUint64(&m.histograms[id].buckets[bucketIndex(d)], 1)
}

func (m *Metrics) Value(id ID) uint64 {
	if m == nil || id >= idCount {
		return 0
	}
	return atomic.LoadUint64(&m.counters[id].value)
}

func (m *Metrics) Snapshot() Snapshot {
	if m == nil || !m.enabled {
		return Snapshot{
			Counters:   map[ID]uint64{},
			Histograms: map[ID][]uint64{},
		}
	}

	s := Snapshot{
		Counters:   make(map[ID]uint64, int(idCount)),
		Histograms: make(map[ID][]uint64, 1),
	}
	for id := ID(0); id < idCount; id++ {
		s.Counters[id] = atomic.LoadUint64(&m.counters[id].value)
	}
	if m.enableLatency {
		buckets := make([]uint64, histBucketCount)
		for i := 0; i < histBucketCount; i++ {
			buckets[i] = atomic.LoadUint64(&m.histograms[MetricSubmitLatency].buckets[i])
		}
		s.Histograms[MetricSubmitLatency] = buckets
	}
	return s
}

func bucketIndex(d time.Duration) int {
	ms := d.Milliseconds()

	switch {
	case ms <= 5:
		return 0
	case ms <= 10:
		return 1
	case ms <= 25:
		return 2
	case ms <= 50:
		return 3
	case ms <= 100:
		return 4
	case ms <= 250:
		return 5
	case ms <= 500:
		return 6
	default:
		return 7
	}
}
