package pricing

import "time"

// Metrics defines the interface for tracking pricing operations.
type Metrics interface {
	// RecordCountLookup records a purchase count resolution.
	// source is "forced", "store", "provider" or "default".
	RecordCountLookup(source string, duration time.Duration, err error)

	// RecordTierResolution records which tier a pricing query resolved to.
	RecordTierResolution(tier Tier)

	// RecordCacheHit records a pricing snapshot cache hit.
	RecordCacheHit(cacheType string)

	// RecordCacheMiss records a pricing snapshot cache miss.
	RecordCacheMiss(cacheType string)

	// RecordStoreOperation records the duration and status of a profile
	// store operation.
	RecordStoreOperation(operation string, duration time.Duration, err error)
}

// NoopMetrics is a no-op implementation of the Metrics interface.
type NoopMetrics struct{}

func (n *NoopMetrics) RecordCountLookup(source string, duration time.Duration, err error)     {}
func (n *NoopMetrics) RecordTierResolution(tier Tier)                                         {}
func (n *NoopMetrics) RecordCacheHit(cacheType string)                                        {}
func (n *NoopMetrics) RecordCacheMiss(cacheType string)                                       {}
func (n *NoopMetrics) RecordStoreOperation(operation string, duration time.Duration, err error) {
}
