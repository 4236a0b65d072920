package pricing

import (
	"context"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"
)

const (
	defaultSnapshotTTL = 5 * time.Second

	cacheTypeSnapshot = "snapshot"
	refreshKey        = "pricing_state"
)

// ServiceConfig holds pricing state service configuration
type ServiceConfig struct {
	// Counter resolves the purchase count (required)
	Counter Counter

	// Resolver maps counts to tiers (required)
	Resolver *Resolver

	// SnapshotTTL bounds how long a computed state is served before a
	// fresh count is read (default: 5 seconds). The state is eventually
	// consistent by contract; the checkout provider is the final price
	// authority at payment time.
	SnapshotTTL time.Duration

	// Logger is used for structured logging (default: NoopLogger)
	Logger Logger

	// Metrics tracks pricing queries (default: NoopMetrics)
	Metrics Metrics
}

// Service composes the purchase counter and tier resolver and exposes the
// current pricing state with a short TTL snapshot cache. Concurrent
// refreshes are collapsed into a single count read.
type Service struct {
	counter  Counter
	resolver *Resolver
	ttl      time.Duration
	logger   Logger
	metrics  Metrics

	group singleflight.Group

	mu        sync.RWMutex
	snapshot  *State
	fetchedAt time.Time
}

// NewService creates a pricing state service
func NewService(config ServiceConfig) (*Service, error) {
	if config.Counter == nil || config.Resolver == nil {
		return nil, ErrNotConfigured
	}

	ttl := config.SnapshotTTL
	if ttl == 0 {
		ttl = defaultSnapshotTTL
	}

	logger := config.Logger
	if logger == nil {
		logger = &NoopLogger{}
	}
	metrics := config.Metrics
	if metrics == nil {
		metrics = &NoopMetrics{}
	}

	return &Service{
		counter:  config.Counter,
		resolver: config.Resolver,
		ttl:      ttl,
		logger:   logger,
		metrics:  metrics,
	}, nil
}

// State returns the current pricing state, serving the cached snapshot
// while it is fresh.
func (s *Service) State(ctx context.Context) (State, error) {
	if ttl := s.ttl; ttl > 0 {
		s.mu.RLock()
		snap, fetchedAt := s.snapshot, s.fetchedAt
		s.mu.RUnlock()

		if snap != nil && time.Since(fetchedAt) < ttl {
			s.metrics.RecordCacheHit(cacheTypeSnapshot)
			return *snap, nil
		}
	}

	s.metrics.RecordCacheMiss(cacheTypeSnapshot)
	return s.Refresh(ctx)
}

// Refresh recomputes the pricing state from a fresh count read, bypassing
// the snapshot cache. Simultaneous callers share one read.
func (s *Service) Refresh(ctx context.Context) (State, error) {
	result, err, _ := s.group.Do(refreshKey, func() (interface{}, error) {
		count, err := s.counter.PurchaseCount(ctx)
		if err != nil {
			return State{}, err
		}

		state := s.resolver.Resolve(count)
		s.metrics.RecordTierResolution(state.Tier)
		s.logger.Debug("pricing state resolved",
			Field{Key: "count", Value: count},
			Field{Key: "tier", Value: string(state.Tier)})

		s.mu.Lock()
		s.snapshot = &state
		s.fetchedAt = time.Now()
		s.mu.Unlock()

		return state, nil
	})
	if err != nil {
		return State{}, err
	}
	return result.(State), nil
}

// Invalidate drops the cached snapshot so the next query reads a fresh
// count. Called by webhook ingestion after profile mutations.
func (s *Service) Invalidate() {
	s.mu.Lock()
	s.snapshot = nil
	s.fetchedAt = time.Time{}
	s.mu.Unlock()
}
