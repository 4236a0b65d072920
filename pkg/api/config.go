package api

import (
	"fmt"
	"net/http"

	"github.com/mihaimyh/gopricing/pkg/billing"
	"github.com/mihaimyh/gopricing/pkg/mailing/loops"
	"github.com/mihaimyh/gopricing/pkg/pricing"
)

// Config holds configuration for the pricing API handler
type Config struct {
	// Service resolves the current pricing state (required)
	Service *pricing.Service

	// Provider handles checkout links and webhook ingestion (optional).
	// Without it the checkout and webhook endpoints return 503.
	Provider billing.Provider

	// Store backs the profile lookup endpoint (optional).
	// Without it GET /profile returns 503.
	Store pricing.Store

	// Mailer captures signup and waitlist emails (optional).
	// Without it the subscribe endpoints return 503.
	Mailer *loops.Client

	// Counter backs the debug purchase count endpoint (optional)
	Counter pricing.Counter

	// EnableDebug mounts the debug endpoints (raw purchase count and
	// provider orders). Keep off in production.
	EnableDebug bool

	// OnError handles errors before the JSON error response is written.
	// If nil, errors are only logged.
	OnError func(http.ResponseWriter, *http.Request, error)

	Logger  pricing.Logger
	Metrics pricing.Metrics
}

// Validate checks that the configuration is valid
func (c *Config) Validate() error {
	if c.Service == nil {
		return fmt.Errorf("service is required")
	}
	return nil
}

// NewHandler creates a new pricing API handler with the given configuration
func NewHandler(config Config) (*Handler, error) {
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	if config.Logger == nil {
		config.Logger = &pricing.NoopLogger{}
	}
	if config.Metrics == nil {
		config.Metrics = &pricing.NoopMetrics{}
	}
	return &Handler{
		config: config,
	}, nil
}
