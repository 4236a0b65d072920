package billing

import (
	"context"
	"net/http"

	"github.com/mihaimyh/gopricing/pkg/pricing"
)

// Config defines the standard configuration all providers should accept
type Config struct {
	// Store is the profile/identity store mutated by webhook ingestion (required)
	Store pricing.Store

	// LifetimeProductID is the provider product id for the lifetime plan.
	// When empty, all order events are ignored with a configuration
	// warning rather than failing.
	LifetimeProductID string

	// WebhookSecret is used to verify incoming webhook signatures
	// (HMAC-SHA256). When empty, signature verification is skipped.
	WebhookSecret string

	// APIKey is used for outbound API calls to the payment provider
	// (order listing). When empty, the fallback count path reports
	// not-configured instead of calling out.
	APIKey string

	// HTTPClient is an optional HTTP client for API calls.
	// If nil, a default client with a 10s timeout is used.
	HTTPClient *http.Client

	// WebhookCallback is invoked after an event has been applied to the
	// store, e.g. to invalidate a cached pricing snapshot. Optional.
	WebhookCallback func(context.Context, WebhookEvent) error

	// Logger is used for structured logging (default: NoopLogger)
	Logger pricing.Logger

	// Metrics is an optional metrics collector for provider operations.
	// If nil, metrics are silently ignored.
	Metrics Metrics
}
