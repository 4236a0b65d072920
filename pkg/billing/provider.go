package billing

import (
	"context"
	"net/http"
)

// Provider is the generic interface that any payment backend must implement.
// This keeps the application independent of the concrete provider's API.
type Provider interface {
	// Name returns the provider name (e.g., "polar")
	Name() string

	// WebhookHandler returns the HTTP handler that processes payment
	// event callbacks. The implementation handles validation, parsing,
	// and profile updates internally.
	WebhookHandler() http.Handler

	// CountPurchases queries the provider's order listing for the number
	// of successful, non-refunded lifetime purchases. Used as the
	// fallback purchase count source when the profile store is down.
	CountPurchases(ctx context.Context) (int, error)

	// CheckoutURL builds the redirect target for the given checkout
	// identifier ("link_id" or "link_id|discount_code").
	// Returns ErrCheckoutNotAvailable when the identifier is empty.
	CheckoutURL(checkoutID string) (string, error)
}
