package metrics

import (
	"sync"
	"sync/atomic"
	"time"
)

// MetricID identifies one counter slot.
type MetricID uint16

const (
	MetricSessionStored MetricID = iota
	MetricSessionStoredFallback
	MetricSessionEvicted
	MetricSessionLookupHit
	MetricSessionLookupMiss
	MetricSessionCorrupt
	MetricSessionDeleted
	MetricSessionInvalidated
	MetricSessionSwept
	MetricSessionExpired
	MetricDeviceIPMismatch
	MetricDeviceUAMismatch
	MetricTierFailure
	MetricTierDisabled
	MetricStoreLatency
	MetricValidateLatency
	MetricIDCount
)

// HistBucketCount is the number of fixed latency buckets.
const HistBucketCount = 8

const cacheLineSize = 64

type histogram struct {
	buckets [HistBucketCount]uint64
}

type paddedCounter struct {
	value uint64
	_     [cacheLineSize - 8]byte
}

// Config toggles collection.
type Config struct {
	Enabled                 bool
	EnableLatencyHistograms bool
}

// TierOp labels a per-tier series. Both fields come from fixed sets (tier
// names and chain operations), so the series count stays bounded.
type TierOp struct {
	Tier string
	Op   string
}

// Snapshot is a point-in-time copy of every counter and histogram.
type Snapshot struct {
	Counters   map[MetricID]uint64
	Histograms map[MetricID][]uint64

	// TierFailures counts failed tier calls by tier and operation.
	TierFailures map[TierOp]uint64
	// FallbackServed counts calls answered by the process-local tier.
	FallbackServed map[TierOp]uint64
}

// Metrics stores counters in cache-line padded slots.
type Metrics struct {
	enabled       bool
	enableLatency bool
	counters      [MetricIDCount]paddedCounter
	histograms    [MetricIDCount]histogram

	tierFailures   labeled
	fallbackServed labeled
}

// labeled is a lazily grown set of counters keyed by TierOp.
type labeled struct {
	mu     sync.RWMutex
	series map[TierOp]*atomic.Uint64
}

func (l *labeled) add(key TierOp, n uint64) {
	l.mu.RLock()
	c := l.series[key]
	l.mu.RUnlock()
	if c == nil {
		l.mu.Lock()
		if l.series == nil {
			l.series = make(map[TierOp]*atomic.Uint64)
		}
		if c = l.series[key]; c == nil {
			c = new(atomic.Uint64)
			l.series[key] = c
		}
		l.mu.Unlock()
	}
	c.Add(n)
}

func (l *labeled) snapshot() map[TierOp]uint64 {
	l.mu.RLock()
	defer l.mu.RUnlock()
	out := make(map[TierOp]uint64, len(l.series))
	for k, c := range l.series {
		out[k] = c.Load()
	}
	return out
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

func (m *Metrics) LatencyEnabled() bool {
	return m != nil && m.enableLatency
}

func (m *Metrics) Inc(id MetricID) {
	m.Add(id, 1)
}

// Add increments id by n.
func (m *Metrics) Add(id MetricID, n uint64) {
	if m == nil || !m.enabled || id >= MetricIDCount || n == 0 {
		return
	}
	atomic.AddUint64(&m.counters[id].value, n)
}

// IncTierFailure counts one failed call of op on tier.
func (m *Metrics) IncTierFailure(tier, op string) {
	if m == nil || !m.enabled {
		return
	}
	m.tierFailures.add(TierOp{Tier: tier, Op: op}, 1)
}

// IncFallback counts one call of op answered by the fallback tier.
func (m *Metrics) IncFallback(tier, op string) {
	if m == nil || !m.enabled {
		return
	}
	m.fallbackServed.add(TierOp{Tier: tier, Op: op}, 1)
}

// Observe records d into id's histogram. Only latency metrics carry one.
func (m *Metrics) Observe(id MetricID, d time.Duration) {
	if m == nil || !m.enableLatency || !IsLatency(id) {
		return
	}
	atomic.AddUint64(&m.histograms[id].buckets[bucketIndex(d)], 1)
}

func (m *Metrics) Value(id MetricID) uint64 {
	if m == nil || id >= MetricIDCount {
		return 0
	}
	return atomic.LoadUint64(&m.counters[id].value)
}

func (m *Metrics) Snapshot() Snapshot {
	if m == nil || !m.enabled {
		return EmptySnapshot()
	}

	s := Snapshot{
		Counters:       make(map[MetricID]uint64, int(MetricIDCount)),
		Histograms:     make(map[MetricID][]uint64, 2),
		TierFailures:   m.tierFailures.snapshot(),
		FallbackServed: m.fallbackServed.snapshot(),
	}
	for id := MetricID(0); id < MetricIDCount; id++ {
		if IsLatency(id) {
			continue
		}
		s.Counters[id] = atomic.LoadUint64(&m.counters[id].value)
	}

	if m.enableLatency {
		for _, id := range []MetricID{MetricStoreLatency, MetricValidateLatency} {
			buckets := make([]uint64, HistBucketCount)
			for i := 0; i < HistBucketCount; i++ {
				buckets[i] = atomic.LoadUint64(&m.histograms[id].buckets[i])
			}
			s.Histograms[id] = buckets
		}
	}
	return s
}

// EmptySnapshot returns a snapshot with every map allocated and empty.
func EmptySnapshot() Snapshot {
	return Snapshot{
		Counters:       map[MetricID]uint64{},
		Histograms:     map[MetricID][]uint64{},
		TierFailures:   map[TierOp]uint64{},
		FallbackServed: map[TierOp]uint64{},
	}
}

// IsLatency reports whether id is a histogram rather than a counter.
func IsLatency(id MetricID) bool {
	return id == MetricStoreLatency || id == MetricValidateLatency
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
