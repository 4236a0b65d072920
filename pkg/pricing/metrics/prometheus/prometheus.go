package prommetrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/mihaimyh/gopricing/pkg/pricing"
)

// Metrics implements pricing.Metrics using Prometheus.
type Metrics struct {
	countLookupDuration *prometheus.HistogramVec
	countLookupErrors   *prometheus.CounterVec
	tierResolutions     *prometheus.CounterVec
	cacheHitsTotal      *prometheus.CounterVec
	cacheMissesTotal    *prometheus.CounterVec
	storeOpsDuration    *prometheus.HistogramVec
	storeOpsErrors      *prometheus.CounterVec
}

// NewMetrics creates a new Prometheus metrics implementation.
func NewMetrics(reg prometheus.Registerer, namespace string) *Metrics {
	factory := promauto.With(reg)

	return &Metrics{
		countLookupDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "purchase_count_lookup_duration_seconds",
			Help:      "Latency of purchase count lookups by source.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"source"}),

		countLookupErrors: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "purchase_count_lookup_errors_total",
			Help:      "Total number of failed purchase count lookups.",
		}, []string{"source"}),

		tierResolutions: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "tier_resolutions_total",
			Help:      "Total number of pricing queries by resolved tier.",
		}, []string{"tier"}),

		cacheHitsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cache_hits_total",
			Help:      "Total number of pricing snapshot cache hits.",
		}, []string{"type"}),

		cacheMissesTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cache_misses_total",
			Help:      "Total number of pricing snapshot cache misses.",
		}, []string{"type"}),

		storeOpsDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "store_operation_duration_seconds",
			Help:      "Latency of profile store operations.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"operation"}),

		storeOpsErrors: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "store_operation_errors_total",
			Help:      "Total number of profile store operation errors.",
		}, []string{"operation"}),
	}
}

func (m *Metrics) RecordCountLookup(source string, duration time.Duration, err error) {
	m.countLookupDuration.WithLabelValues(source).Observe(duration.Seconds())
	if err != nil {
		m.countLookupErrors.WithLabelValues(source).Inc()
	}
}

func (m *Metrics) RecordTierResolution(tier pricing.Tier) {
	m.tierResolutions.WithLabelValues(string(tier)).Inc()
}

func (m *Metrics) RecordCacheHit(cacheType string) {
	m.cacheHitsTotal.WithLabelValues(cacheType).Inc()
}

func (m *Metrics) RecordCacheMiss(cacheType string) {
	m.cacheMissesTotal.WithLabelValues(cacheType).Inc()
}

func (m *Metrics) RecordStoreOperation(operation string, duration time.Duration, err error) {
	m.storeOpsDuration.WithLabelValues(operation).Observe(duration.Seconds())
	if err != nil {
		m.storeOpsErrors.WithLabelValues(operation).Inc()
	}
}

// DefaultMetrics returns a Metrics implementation using the default Prometheus registerer.
func DefaultMetrics(namespace string) *Metrics {
	return NewMetrics(prometheus.DefaultRegisterer, namespace)
}
