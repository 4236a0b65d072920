package pricing

import (
	"context"
	"time"
)

// Plan identifies a user's subscription plan
type Plan string

const (
	// PlanFree is the default plan with bounded limits
	PlanFree Plan = "free"
	// PlanLifetime is a one-time lifetime purchase
	PlanLifetime Plan = "lifetime"
	// PlanPro is a recurring subscription plan
	PlanPro Plan = "pro"
)

// UnlimitedLimit is the sentinel stored for plans without a usage cap
const UnlimitedLimit = 999999

// PlanLimits holds the feature limits attached to a plan
type PlanLimits struct {
	Plan           Plan
	NotesLimit     int
	OCRLimit       int
	IsEarlyAdopter bool
}

// Tier identifies a discount band keyed by cumulative purchase count
type Tier string

const (
	// TierFounders75 covers the first 10 purchases at 75% off
	TierFounders75 Tier = "FOUNDERS_75"
	// TierEarly50 covers purchases 10-19 at 50% off
	TierEarly50 Tier = "EARLY_50"
	// TierLaunch25 covers purchases 20-49 at 25% off
	TierLaunch25 Tier = "LAUNCH_25"
	// TierFull is the undiscounted standard price
	TierFull Tier = "FULL"
)

// State is a computed pricing snapshot for the active tier.
// It is a pure projection of the purchase count and is never persisted.
type State struct {
	Tier Tier `json:"tier"`

	// Price is the effective price for the active tier
	Price float64 `json:"price"`

	// Remaining is the number of slots left in the active tier.
	// Nil for TierFull, which has no upper bound.
	Remaining *int `json:"remaining"`

	// DisplayPrice is the formatted price string (e.g. "$9.75")
	DisplayPrice string `json:"displayPrice"`

	// CheckoutID is the checkout link id, joined with the tier's
	// discount code as "link|code" for discounted tiers.
	CheckoutID string `json:"checkoutId"`

	// Discount is the discount percentage (0-100)
	Discount int `json:"discount"`

	// OriginalPrice is the undiscounted price
	OriginalPrice float64 `json:"originalPrice"`
}

// Badge holds display metadata for a tier
type Badge struct {
	Label string `json:"label"`
	Color string `json:"color"`
}

// Profile is the persisted per-user plan record.
// It is the system of record for the purchase count and is mutated only
// by webhook ingestion and user creation.
type Profile struct {
	ID             string    `json:"id"`
	Email          string    `json:"email"`
	Plan           Plan      `json:"plan"`
	NotesLimit     int       `json:"notes_limit"`
	OCRLimit       int       `json:"ocr_limit"`
	IsEarlyAdopter bool      `json:"is_early_adopter"`
	CustomerID     string    `json:"customer_id,omitempty"`
	SubscriptionID string    `json:"subscription_id,omitempty"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// User is an identity record owned by the identity store
type User struct {
	ID        string
	Email     string
	Confirmed bool
	CreatedAt time.Time
}

// Counter derives the number of completed, non-refunded lifetime purchases
type Counter interface {
	// PurchaseCount returns the current count. Implementations should
	// apply bounded timeouts to any outbound calls via ctx.
	PurchaseCount(ctx context.Context) (int, error)
}
