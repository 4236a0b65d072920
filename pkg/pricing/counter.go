package pricing

import (
	"context"
	"time"
)

const (
	countSourceForced   = "forced"
	countSourceStore    = "store"
	countSourceProvider = "provider"
	countSourceDefault  = "default"
)

// CounterConfig holds purchase counter configuration
type CounterConfig struct {
	// Store is the profile store, the primary count source.
	Store Store

	// Fallback is consulted when the store is unavailable, typically the
	// payment provider's order-listing counter. Best-effort: it may
	// undercount if the provider's response shape drifts.
	Fallback Counter

	// ForcedCount short-circuits both paths when non-nil. Injected at
	// construction so a forced count never leaks across requests the way
	// a process-global switch would.
	ForcedCount *int

	// Logger is used for structured logging (default: NoopLogger)
	Logger Logger

	// Metrics tracks count resolutions (default: NoopMetrics)
	Metrics Metrics
}

// PurchaseCounter resolves the number of completed, non-refunded lifetime
// purchases. Read-only; safe for unlimited concurrent callers.
type PurchaseCounter struct {
	store    Store
	fallback Counter
	forced   *int
	logger   Logger
	metrics  Metrics
}

// NewPurchaseCounter creates a purchase counter
func NewPurchaseCounter(config CounterConfig) *PurchaseCounter {
	logger := config.Logger
	if logger == nil {
		logger = &NoopLogger{}
	}
	metrics := config.Metrics
	if metrics == nil {
		metrics = &NoopMetrics{}
	}

	var forced *int
	if config.ForcedCount != nil && *config.ForcedCount >= 0 {
		f := *config.ForcedCount
		forced = &f
	}

	return &PurchaseCounter{
		store:    config.Store,
		fallback: config.Fallback,
		forced:   forced,
		logger:   logger,
		metrics:  metrics,
	}
}

// PurchaseCount returns the current purchase count.
// Resolution order: forced override, profile store, provider fallback.
// On total failure it returns 0 and a nil error: zero is the safe default
// when data is unavailable, and callers must not treat it as proof that
// zero purchases occurred.
func (c *PurchaseCounter) PurchaseCount(ctx context.Context) (int, error) {
	if c.forced != nil {
		c.metrics.RecordCountLookup(countSourceForced, 0, nil)
		c.logger.Debug("using forced purchase count", Field{Key: "count", Value: *c.forced})
		return *c.forced, nil
	}

	if c.store != nil {
		start := time.Now()
		count, err := c.store.CountLifetimeProfiles(ctx)
		c.metrics.RecordCountLookup(countSourceStore, time.Since(start), err)
		if err == nil {
			return count, nil
		}
		c.logger.Warn("store count failed, trying provider fallback",
			Field{Key: "error", Value: err.Error()})
	}

	if c.fallback != nil {
		start := time.Now()
		count, err := c.fallback.PurchaseCount(ctx)
		c.metrics.RecordCountLookup(countSourceProvider, time.Since(start), err)
		if err == nil {
			return count, nil
		}
		c.logger.Error("provider count failed, defaulting to 0",
			Field{Key: "error", Value: err.Error()})
	}

	c.metrics.RecordCountLookup(countSourceDefault, 0, nil)
	return 0, nil
}

// CounterFunc adapts a function to the Counter interface
type CounterFunc func(ctx context.Context) (int, error)

// PurchaseCount implements Counter
func (f CounterFunc) PurchaseCount(ctx context.Context) (int, error) {
	return f(ctx)
}
