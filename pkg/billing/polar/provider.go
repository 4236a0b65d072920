// Package polar implements the billing.Provider interface for Polar.sh.
// Polar sells through checkout links with dashboard-managed discount codes,
// so checkout targets are composed URLs rather than API-created sessions.
package polar

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/mihaimyh/gopricing/pkg/billing"
	"github.com/mihaimyh/gopricing/pkg/billing/internal"
	"github.com/mihaimyh/gopricing/pkg/pricing"
)

const (
	providerName             = "polar"
	defaultAPIBaseURL        = "https://api.polar.sh"
	defaultCheckoutBaseURL   = "https://buy.polar.sh"
	defaultHTTPTimeout       = 10 * time.Second
	defaultRateLimitWindow   = time.Minute
	defaultRateLimitRequests = 100

	// Polar checkout link slugs carry this prefix in buy.polar.sh URLs
	checkoutLinkPrefix = "polar_cl_"

	maxWebhookBody = 256 * 1024

	signatureHeader = "X-Polar-Signature"
)

// Config extends billing.Config with Polar-specific options
type Config struct {
	billing.Config // Base config (Store, LifetimeProductID, secrets, ...)

	// APIBaseURL overrides the Polar API base URL (default: https://api.polar.sh).
	// Used by tests and self-hosted gateways.
	APIBaseURL string

	// CheckoutBaseURL overrides the checkout host (default: https://buy.polar.sh)
	CheckoutBaseURL string

	// SiteBaseURL is the landing page origin used to build the
	// post-purchase success redirect. When empty no success_url is added.
	SiteBaseURL string
}

// Provider implements the billing.Provider interface for Polar
type Provider struct {
	store           pricing.Store
	httpClient      *http.Client
	rateLimiter     *internal.RateLimiter
	productID       string
	webhookSecret   []byte
	apiKey          string
	apiBaseURL      string
	checkoutBaseURL string
	siteBaseURL     string
	callback        func(ctx context.Context, event billing.WebhookEvent) error
	logger          pricing.Logger
	metrics         billing.Metrics
}

// NewProvider creates a new Polar billing provider
func NewProvider(config Config) (*Provider, error) {
	if config.Store == nil {
		return nil, billing.ErrProviderNotConfigured
	}

	httpClient := config.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: defaultHTTPTimeout}
	}

	apiKey := strings.TrimSpace(config.APIKey)
	if strings.HasPrefix(strings.ToLower(apiKey), "bearer ") {
		apiKey = strings.TrimSpace(apiKey[len("bearer "):])
	}

	apiBaseURL := strings.TrimRight(config.APIBaseURL, "/")
	if apiBaseURL == "" {
		apiBaseURL = defaultAPIBaseURL
	}
	checkoutBaseURL := strings.TrimRight(config.CheckoutBaseURL, "/")
	if checkoutBaseURL == "" {
		checkoutBaseURL = defaultCheckoutBaseURL
	}

	logger := config.Logger
	if logger == nil {
		logger = &pricing.NoopLogger{}
	}
	metrics := config.Metrics
	if metrics == nil {
		metrics = &billing.NoopMetrics{}
	}

	return &Provider{
		store:           config.Store,
		httpClient:      httpClient,
		rateLimiter:     internal.NewRateLimiter(defaultRateLimitRequests, defaultRateLimitWindow),
		productID:       strings.TrimSpace(config.LifetimeProductID),
		webhookSecret:   []byte(strings.TrimSpace(config.WebhookSecret)),
		apiKey:          apiKey,
		apiBaseURL:      apiBaseURL,
		checkoutBaseURL: checkoutBaseURL,
		siteBaseURL:     strings.TrimRight(config.SiteBaseURL, "/"),
		callback:        config.WebhookCallback,
		logger:          logger,
		metrics:         metrics,
	}, nil
}

// Name returns the provider name
func (p *Provider) Name() string {
	return providerName
}

// WebhookHandler returns the HTTP handler for Polar webhooks
func (p *Provider) WebhookHandler() http.Handler {
	return p.rateLimiter.Middleware(http.HandlerFunc(p.handleWebhook))
}

// Counter adapts the provider's order-listing count to pricing.Counter,
// for use as the purchase counter's fallback path.
func (p *Provider) Counter() pricing.Counter {
	return pricing.CounterFunc(p.CountPurchases)
}
