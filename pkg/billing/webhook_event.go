package billing

import (
	"time"

	"github.com/mihaimyh/gopricing/pkg/pricing"
)

// WebhookEvent describes a webhook event that was successfully applied to
// the profile store. It is passed to the WebhookCallback after the profile
// transition has been persisted.
type WebhookEvent struct {
	// UserID is the internal user identifier
	UserID string

	// Email is the customer email the event resolved to
	Email string

	// PreviousPlan is the plan before the event (PlanFree for new users)
	PreviousPlan pricing.Plan

	// NewPlan is the plan after the event
	NewPlan pricing.Plan

	// Provider is the payment provider name ("polar")
	Provider string

	// EventType is the provider-specific event type
	// (e.g. "order.paid", "subscription.canceled")
	EventType string

	// ReceivedAt is when the event was processed
	ReceivedAt time.Time
}
