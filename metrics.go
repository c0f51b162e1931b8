package goSession

import internalmetrics "github.com/MrEthical07/goSession/internal/metrics"

// MetricID identifies one in-process counter or latency histogram.
type MetricID = internalmetrics.MetricID

// MetricsSnapshot is a point-in-time copy of every counter and histogram,
// plus the per-tier failure and fallback series.
type MetricsSnapshot = internalmetrics.Snapshot

// TierOp labels a per-tier series in [MetricsSnapshot].
type TierOp = internalmetrics.TierOp

const (
	// MetricSessionStored counts successful writes on any tier.
	MetricSessionStored = internalmetrics.MetricSessionStored
	// MetricSessionStoredFallback counts writes that landed in process memory.
	MetricSessionStoredFallback = internalmetrics.MetricSessionStoredFallback
	// MetricSessionEvicted counts sessions removed by the per-user limit.
	MetricSessionEvicted = internalmetrics.MetricSessionEvicted
	// MetricSessionLookupHit counts lookups answered by some tier.
	MetricSessionLookupHit = internalmetrics.MetricSessionLookupHit
	// MetricSessionLookupMiss counts lookups no tier could answer.
	MetricSessionLookupMiss = internalmetrics.MetricSessionLookupMiss
	// MetricSessionCorrupt counts undecodable records treated as missing.
	MetricSessionCorrupt = internalmetrics.MetricSessionCorrupt
	// MetricSessionDeleted counts single-session deletions.
	MetricSessionDeleted = internalmetrics.MetricSessionDeleted
	// MetricSessionInvalidated sums per-tier removals from logout-everywhere.
	MetricSessionInvalidated = internalmetrics.MetricSessionInvalidated
	// MetricSessionSwept counts expired records removed by cleanup.
	MetricSessionSwept = internalmetrics.MetricSessionSwept
	// MetricSessionExpired counts validations rejected for age or idleness.
	MetricSessionExpired = internalmetrics.MetricSessionExpired
	// MetricDeviceIPMismatch counts validations from a different IP address.
	MetricDeviceIPMismatch = internalmetrics.MetricDeviceIPMismatch
	// MetricDeviceUAMismatch counts validations from a different user agent.
	MetricDeviceUAMismatch = internalmetrics.MetricDeviceUAMismatch
	// MetricTierFailure counts tier calls that failed and fell through.
	MetricTierFailure = internalmetrics.MetricTierFailure
	// MetricTierDisabled counts tiers disabled at build time by security checks.
	MetricTierDisabled = internalmetrics.MetricTierDisabled
	// MetricStoreLatency is the StoreSession latency histogram.
	MetricStoreLatency = internalmetrics.MetricStoreLatency
	// MetricValidateLatency is the ValidateSession latency histogram.
	MetricValidateLatency = internalmetrics.MetricValidateLatency
)
