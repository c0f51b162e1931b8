package internaldefs

import (
	"cmp"
	"slices"

	goSession "github.com/MrEthical07/goSession"
)

// CounterDef binds a counter [goSession.MetricID] to its exported name.
type CounterDef struct {
	ID   goSession.MetricID
	Name string
	Help string
}

// HistogramDef binds a latency [goSession.MetricID] to its exported name.
type HistogramDef struct {
	ID   goSession.MetricID
	Name string
	Help string
}

// CounterDefs lists every exported counter in render order.
var CounterDefs = []CounterDef{
	{ID: goSession.MetricSessionStored, Name: "gosession_session_stored_total", Help: "Sessions written to any tier."},
	{ID: goSession.MetricSessionStoredFallback, Name: "gosession_session_stored_fallback_total", Help: "Sessions written to the in-memory fallback tier."},
	{ID: goSession.MetricSessionEvicted, Name: "gosession_session_evicted_total", Help: "Sessions evicted by the per-user limit."},
	{ID: goSession.MetricSessionLookupHit, Name: "gosession_session_lookup_hit_total", Help: "Session lookups answered by some tier."},
	{ID: goSession.MetricSessionLookupMiss, Name: "gosession_session_lookup_miss_total", Help: "Session lookups no tier could answer."},
	{ID: goSession.MetricSessionCorrupt, Name: "gosession_session_corrupt_total", Help: "Undecodable session records treated as missing."},
	{ID: goSession.MetricSessionDeleted, Name: "gosession_session_deleted_total", Help: "Single-session deletions."},
	{ID: goSession.MetricSessionInvalidated, Name: "gosession_session_invalidated_total", Help: "Per-tier removals from user-wide invalidation."},
	{ID: goSession.MetricSessionSwept, Name: "gosession_session_swept_total", Help: "Expired sessions removed by cleanup."},
	{ID: goSession.MetricSessionExpired, Name: "gosession_session_expired_total", Help: "Validations rejected for age or idleness."},
	{ID: goSession.MetricDeviceIPMismatch, Name: "gosession_device_ip_mismatch_total", Help: "Validations from a different IP address."},
	{ID: goSession.MetricDeviceUAMismatch, Name: "gosession_device_ua_mismatch_total", Help: "Validations from a different user agent."},
	{ID: goSession.MetricTierFailure, Name: "gosession_tier_failure_total", Help: "Tier calls that failed and fell through."},
	{ID: goSession.MetricTierDisabled, Name: "gosession_tier_disabled_total", Help: "Tiers disabled at startup by security checks."},
}

// HistogramDefs lists every exported latency histogram.
var HistogramDefs = []HistogramDef{
	{ID: goSession.MetricStoreLatency, Name: "gosession_store_latency_seconds", Help: "StoreSession latency histogram."},
	{ID: goSession.MetricValidateLatency, Name: "gosession_validate_latency_seconds", Help: "ValidateSession latency histogram."},
}

// LabeledDef binds a per-tier series family of [goSession.MetricsSnapshot]
// to its exported name. Every series carries tier and op labels.
type LabeledDef struct {
	Name   string
	Help   string
	Series func(goSession.MetricsSnapshot) map[goSession.TierOp]uint64
}

// LabeledDefs lists every exported per-tier family in render order.
var LabeledDefs = []LabeledDef{
	{
		Name:   "gosession_tier_call_failures_total",
		Help:   "Failed tier calls by tier and operation.",
		Series: func(s goSession.MetricsSnapshot) map[goSession.TierOp]uint64 { return s.TierFailures },
	},
	{
		Name:   "gosession_fallback_served_total",
		Help:   "Calls answered by the process-memory fallback tier, by operation.",
		Series: func(s goSession.MetricsSnapshot) map[goSession.TierOp]uint64 { return s.FallbackServed },
	},
}

// LabeledSample is one series of a [LabeledDef].
type LabeledSample struct {
	Tier  string
	Op    string
	Value uint64
}

// SortedSamples flattens series ordered by tier, then op.
func SortedSamples(series map[goSession.TierOp]uint64) []LabeledSample {
	out := make([]LabeledSample, 0, len(series))
	for k, v := range series {
		out = append(out, LabeledSample{Tier: k.Tier, Op: k.Op, Value: v})
	}
	slices.SortFunc(out, func(a, b LabeledSample) int {
		if c := cmp.Compare(a.Tier, b.Tier); c != 0 {
			return c
		}
		return cmp.Compare(a.Op, b.Op)
	})
	return out
}

// HistogramBounds are the upper bounds of the eight latency buckets, in
// seconds, as Prometheus le labels.
var HistogramBounds = []string{
	"0.005",
	"0.01",
	"0.025",
	"0.05",
	"0.1",
	"0.25",
	"0.5",
	"+Inf",
}

// HistogramBoundSuffix is HistogramBounds made safe for instrument names.
var HistogramBoundSuffix = []string{
	"0_005",
	"0_01",
	"0_025",
	"0_05",
	"0_1",
	"0_25",
	"0_5",
	"inf",
}

// NormalizeBuckets copies raw into a fixed eight-bucket array, zero-filling
// missing buckets and ignoring extras.
func NormalizeBuckets(raw []uint64) [8]uint64 {
	var out [8]uint64
	for i := 0; i < len(out) && i < len(raw); i++ {
		out[i] = raw[i]
	}
	return out
}

// CumulativeBuckets turns per-bucket counts into running totals.
func CumulativeBuckets(raw [8]uint64) [8]uint64 {
	var out [8]uint64
	var running uint64
	for i := 0; i < len(raw); i++ {
		running += raw[i]
		out[i] = running
	}
	return out
}
