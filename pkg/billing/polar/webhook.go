package polar

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/mihaimyh/gopricing/pkg/billing"
	"github.com/mihaimyh/gopricing/pkg/billing/internal"
	"github.com/mihaimyh/gopricing/pkg/pricing"
)

// webhookPayload is the Polar webhook envelope
type webhookPayload struct {
	Type string      `json:"type"`
	Data webhookData `json:"data"`
}

type webhookData struct {
	ID       string `json:"id"`
	Customer struct {
		ID    string `json:"id"`
		Email string `json:"email"`
	} `json:"customer"`
	Product struct {
		ID   string `json:"id"`
		Name string `json:"name"`
	} `json:"product"`
	Price struct {
		ID string `json:"id"`
	} `json:"price"`
	Status string `json:"status"`
}

// handleWebhook processes incoming Polar webhook events.
// Dispatched events always get 200 so the provider does not retry-storm on
// events we deliberately ignore; only parse/processing failures get 500,
// which leaves redelivery to the provider's own retry policy.
func (p *Provider) handleWebhook(w http.ResponseWriter, r *http.Request) {
	startTime := time.Now()
	w.Header().Set("Cache-Control", "no-store")
	w.Header().Set("X-Content-Type-Options", "nosniff")

	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	body, err := internal.ReadBody(w, r, maxWebhookBody)
	if err != nil {
		status := http.StatusBadRequest
		if errors.Is(err, internal.ErrPayloadTooLarge) {
			status = http.StatusRequestEntityTooLarge
			p.metrics.RecordWebhookError(providerName, "payload_too_large")
		} else {
			p.metrics.RecordWebhookError(providerName, "invalid_payload")
		}
		http.Error(w, err.Error(), status)
		return
	}

	if len(p.webhookSecret) > 0 {
		if !p.verifySignature(body, r.Header.Get(signatureHeader)) {
			p.metrics.RecordWebhookError(providerName, "auth_failed")
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}
	}

	var payload webhookPayload
	if err := json.Unmarshal(body, &payload); err != nil {
		p.metrics.RecordWebhookError(providerName, "invalid_payload")
		_ = internal.WriteJSON(w, http.StatusInternalServerError,
			map[string]string{"error": "Webhook processing failed"})
		return
	}

	eventType := payload.Type
	if eventType == "" {
		eventType = "UNKNOWN"
	}

	if err := p.processEvent(r.Context(), eventType, payload.Data); err != nil {
		p.metrics.RecordWebhookEvent(providerName, eventType, "error")
		p.metrics.RecordWebhookError(providerName, "processing_error")
		p.metrics.RecordWebhookProcessingDuration(providerName, eventType, time.Since(startTime))
		_ = internal.WriteJSON(w, http.StatusInternalServerError,
			map[string]string{"error": "Webhook processing failed"})
		return
	}

	p.metrics.RecordWebhookEvent(providerName, eventType, "success")
	p.metrics.RecordWebhookProcessingDuration(providerName, eventType, time.Since(startTime))
	_ = internal.WriteJSON(w, http.StatusOK, map[string]bool{"received": true})
}

// verifySignature checks the hex-encoded HMAC-SHA256 of the body against
// the signature header.
func (p *Provider) verifySignature(body []byte, signature string) bool {
	if signature == "" {
		return false
	}
	provided, err := hex.DecodeString(signature)
	if err != nil {
		return false
	}
	mac := hmac.New(sha256.New, p.webhookSecret)
	mac.Write(body)
	return hmac.Equal(mac.Sum(nil), provided)
}

// processEvent dispatches an event to its plan transition.
// Validation drops (missing email, irrelevant product or status, unknown
// user) are logged no-ops; only store failures propagate as errors.
func (p *Provider) processEvent(ctx context.Context, eventType string, data webhookData) error {
	switch eventType {
	case "order.created", "order.updated", "order.paid":
		return p.applyOrderPaid(ctx, eventType, data)
	case "subscription.created", "subscription.updated", "subscription.active":
		return p.applySubscriptionActive(ctx, eventType, data)
	case "subscription.canceled", "subscription.revoked":
		return p.applySubscriptionCanceled(ctx, eventType, data)
	case "order.refunded":
		return p.applyOrderRefunded(ctx, eventType, data)
	default:
		p.logger.Info("ignoring unhandled webhook event",
			pricing.Field{Key: "type", Value: eventType})
		p.metrics.RecordWebhookEvent(providerName, eventType, "ignored")
		return nil
	}
}

// applyOrderPaid upgrades a profile to the lifetime plan for a completed
// order on the lifetime product. Find-or-create by email, then upsert
// keyed by user id: redelivery of the same event converges to the same
// profile instead of creating duplicates.
func (p *Provider) applyOrderPaid(ctx context.Context, eventType string, data webhookData) error {
	email := data.Customer.Email
	if email == "" {
		p.logger.Warn("order event missing customer email",
			pricing.Field{Key: "order_id", Value: data.ID})
		p.metrics.RecordWebhookError(providerName, "missing_email")
		return nil
	}

	if data.Status != "paid" && data.Status != "completed" {
		p.logger.Debug("order not completed, skipping",
			pricing.Field{Key: "status", Value: data.Status})
		return nil
	}

	if p.productID == "" {
		// Fail-safe default: without a configured product id we cannot
		// tell lifetime orders apart, so no order mutates anything.
		p.logger.Warn("lifetime product id not configured, ignoring order event")
		return nil
	}
	if data.Product.ID != p.productID {
		p.logger.Debug("not a lifetime product, skipping",
			pricing.Field{Key: "product_id", Value: data.Product.ID})
		return nil
	}

	user, err := p.findOrCreateUser(ctx, email)
	if err != nil {
		return err
	}

	previousPlan := pricing.PlanFree
	var subscriptionID string
	if existing, err := p.store.GetProfile(ctx, user.ID); err == nil {
		previousPlan = existing.Plan
		subscriptionID = existing.SubscriptionID
	} else if !errors.Is(err, pricing.ErrProfileNotFound) {
		return err
	}

	limits := pricing.LimitsFor(pricing.PlanLifetime)
	profile := &pricing.Profile{
		ID:             user.ID,
		Email:          email,
		Plan:           pricing.PlanLifetime,
		NotesLimit:     limits.NotesLimit,
		OCRLimit:       limits.OCRLimit,
		IsEarlyAdopter: true,
		CustomerID:     data.Customer.ID,
		SubscriptionID: subscriptionID,
		UpdatedAt:      time.Now().UTC(),
	}
	if err := p.store.UpsertProfile(ctx, profile); err != nil {
		return err
	}

	p.logger.Info("profile upgraded to lifetime",
		pricing.Field{Key: "email", Value: email})
	p.recordTransition(ctx, eventType, user.ID, email, previousPlan, pricing.PlanLifetime)
	return nil
}

// applySubscriptionActive upgrades an existing user to the pro plan
func (p *Provider) applySubscriptionActive(ctx context.Context, eventType string, data webhookData) error {
	email := data.Customer.Email
	if email == "" {
		p.logger.Warn("subscription event missing customer email",
			pricing.Field{Key: "subscription_id", Value: data.ID})
		p.metrics.RecordWebhookError(providerName, "missing_email")
		return nil
	}

	if data.Status != "active" && data.Status != "trialing" {
		p.logger.Debug("subscription not active, skipping",
			pricing.Field{Key: "status", Value: data.Status})
		return nil
	}

	user, err := p.store.FindUserByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, pricing.ErrUserNotFound) {
			p.logger.Warn("user not found for subscription",
				pricing.Field{Key: "email", Value: email})
			return nil
		}
		return err
	}

	profile, previousPlan, err := p.profileOrDefault(ctx, user, email)
	if err != nil {
		return err
	}

	limits := pricing.LimitsFor(pricing.PlanPro)
	profile.Plan = pricing.PlanPro
	profile.NotesLimit = limits.NotesLimit
	profile.OCRLimit = limits.OCRLimit
	profile.CustomerID = data.Customer.ID
	profile.SubscriptionID = data.ID
	profile.UpdatedAt = time.Now().UTC()

	if err := p.store.UpsertProfile(ctx, profile); err != nil {
		return err
	}

	p.logger.Info("profile upgraded to pro",
		pricing.Field{Key: "email", Value: email})
	p.recordTransition(ctx, eventType, user.ID, email, previousPlan, pricing.PlanPro)
	return nil
}

// applySubscriptionCanceled downgrades an existing user to the free plan
// and clears the subscription binding.
func (p *Provider) applySubscriptionCanceled(ctx context.Context, eventType string, data webhookData) error {
	email := data.Customer.Email
	if email == "" {
		p.logger.Warn("subscription canceled event missing customer email",
			pricing.Field{Key: "subscription_id", Value: data.ID})
		p.metrics.RecordWebhookError(providerName, "missing_email")
		return nil
	}

	user, err := p.store.FindUserByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, pricing.ErrUserNotFound) {
			p.logger.Warn("user not found for canceled subscription",
				pricing.Field{Key: "email", Value: email})
			return nil
		}
		return err
	}

	profile, previousPlan, err := p.profileOrDefault(ctx, user, email)
	if err != nil {
		return err
	}

	limits := pricing.LimitsFor(pricing.PlanFree)
	profile.Plan = pricing.PlanFree
	profile.NotesLimit = limits.NotesLimit
	profile.OCRLimit = limits.OCRLimit
	profile.SubscriptionID = ""
	profile.UpdatedAt = time.Now().UTC()

	if err := p.store.UpsertProfile(ctx, profile); err != nil {
		return err
	}

	p.logger.Info("profile downgraded to free",
		pricing.Field{Key: "email", Value: email})
	p.recordTransition(ctx, eventType, user.ID, email, previousPlan, pricing.PlanFree)
	return nil
}

// applyOrderRefunded reverses a lifetime purchase: back to the free plan
// with bounded limits. The early-adopter flag is permanent and survives
// the refund.
func (p *Provider) applyOrderRefunded(ctx context.Context, eventType string, data webhookData) error {
	email := data.Customer.Email
	if email == "" {
		p.logger.Warn("order refunded event missing customer email",
			pricing.Field{Key: "order_id", Value: data.ID})
		p.metrics.RecordWebhookError(providerName, "missing_email")
		return nil
	}

	if p.productID == "" || data.Product.ID != p.productID {
		p.logger.Debug("not a lifetime product refund, skipping",
			pricing.Field{Key: "product_id", Value: data.Product.ID})
		return nil
	}

	user, err := p.store.FindUserByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, pricing.ErrUserNotFound) {
			p.logger.Warn("user not found for refunded order",
				pricing.Field{Key: "email", Value: email})
			return nil
		}
		return err
	}

	profile, previousPlan, err := p.profileOrDefault(ctx, user, email)
	if err != nil {
		return err
	}

	limits := pricing.LimitsFor(pricing.PlanFree)
	profile.Plan = pricing.PlanFree
	profile.NotesLimit = limits.NotesLimit
	profile.OCRLimit = limits.OCRLimit
	profile.CustomerID = ""
	profile.UpdatedAt = time.Now().UTC()

	if err := p.store.UpsertProfile(ctx, profile); err != nil {
		return err
	}

	p.logger.Info("profile downgraded to free after refund",
		pricing.Field{Key: "email", Value: email})
	p.recordTransition(ctx, eventType, user.ID, email, previousPlan, pricing.PlanFree)
	return nil
}

// findOrCreateUser resolves an email to a user, creating a confirmed user
// when none exists. Lookup-then-create is not atomic: two concurrent
// first-time events for the same email can race. The ErrUserExists
// re-lookup closes that window for stores that enforce email uniqueness.
func (p *Provider) findOrCreateUser(ctx context.Context, email string) (*pricing.User, error) {
	user, err := p.store.FindUserByEmail(ctx, email)
	if err == nil {
		return user, nil
	}
	if !errors.Is(err, pricing.ErrUserNotFound) {
		return nil, err
	}

	user, err = p.store.CreateUser(ctx, email)
	if err == nil {
		return user, nil
	}
	if errors.Is(err, pricing.ErrUserExists) {
		return p.store.FindUserByEmail(ctx, email)
	}
	return nil, err
}

// profileOrDefault loads the user's profile, or a fresh free-plan profile
// when none exists yet. Returns the profile and its previous plan.
func (p *Provider) profileOrDefault(ctx context.Context, user *pricing.User, email string) (*pricing.Profile, pricing.Plan, error) {
	profile, err := p.store.GetProfile(ctx, user.ID)
	if err == nil {
		return profile, profile.Plan, nil
	}
	if !errors.Is(err, pricing.ErrProfileNotFound) {
		return nil, pricing.PlanFree, err
	}

	limits := pricing.LimitsFor(pricing.PlanFree)
	return &pricing.Profile{
		ID:         user.ID,
		Email:      email,
		Plan:       pricing.PlanFree,
		NotesLimit: limits.NotesLimit,
		OCRLimit:   limits.OCRLimit,
	}, pricing.PlanFree, nil
}

// InvalidateOnChange adapts a cache invalidation function into a webhook
// callback that fires whenever a profile's plan actually changed. Wire it
// to the pricing service so purchases take effect without waiting out the
// snapshot TTL.
func InvalidateOnChange(invalidate func()) func(context.Context, billing.WebhookEvent) error {
	return func(ctx context.Context, event billing.WebhookEvent) error {
		if event.PreviousPlan != event.NewPlan {
			invalidate()
		}
		return nil
	}
}

// recordTransition emits metrics and the optional applied-event callback
func (p *Provider) recordTransition(ctx context.Context, eventType, userID, email string, from, to pricing.Plan) {
	if from != to {
		p.metrics.RecordPlanChange(providerName, string(from), string(to))
	}
	if p.callback == nil {
		return
	}
	event := billing.WebhookEvent{
		UserID:       userID,
		Email:        email,
		PreviousPlan: from,
		NewPlan:      to,
		Provider:     providerName,
		EventType:    eventType,
		ReceivedAt:   time.Now().UTC(),
	}
	if err := p.callback(ctx, event); err != nil {
		p.logger.Warn("webhook callback failed",
			pricing.Field{Key: "error", Value: err.Error()})
	}
}
