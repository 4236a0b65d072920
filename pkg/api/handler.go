package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/mihaimyh/gopricing/pkg/billing"
	"github.com/mihaimyh/gopricing/pkg/mailing/loops"
	"github.com/mihaimyh/gopricing/pkg/pricing"
)

const (
	maxBodyBytes = 16 * 1024

	sourceLandingPage = "landing-page"
	groupSubscribers  = "subscribers"
	groupWaitlist     = "waitlist"
)

// Handler provides HTTP endpoints for the pricing service
type Handler struct {
	config Config
}

// GetPricing returns the current pricing state. Responses are marked
// uncacheable end to end so a sold-out tier never lingers in a CDN or
// browser cache.
func (h *Handler) GetPricing(w http.ResponseWriter, r *http.Request) {
	setNoCacheHeaders(w)

	state, err := h.config.Service.State(r.Context())
	if err != nil {
		h.handleError(w, r, fmt.Errorf("failed to fetch pricing state: %w", err),
			http.StatusInternalServerError, "Failed to fetch pricing")
		return
	}

	h.writeJSON(w, http.StatusOK, state)
}

// CreateCheckout resolves the active tier and returns its hosted
// checkout URL.
func (h *Handler) CreateCheckout(w http.ResponseWriter, r *http.Request) {
	setNoCacheHeaders(w)

	if h.config.Provider == nil {
		h.handleError(w, r, billing.ErrCheckoutNotAvailable,
			http.StatusServiceUnavailable, "checkout not available")
		return
	}

	state, err := h.config.Service.State(r.Context())
	if err != nil {
		h.handleError(w, r, fmt.Errorf("failed to fetch pricing state: %w", err),
			http.StatusInternalServerError, "Failed to fetch pricing")
		return
	}

	checkoutURL, err := h.config.Provider.CheckoutURL(state.CheckoutID)
	if err != nil {
		status := http.StatusInternalServerError
		message := "Failed to create checkout"
		if errors.Is(err, billing.ErrCheckoutNotAvailable) {
			status = http.StatusServiceUnavailable
			message = "checkout not available"
		}
		h.handleError(w, r, err, status, message)
		return
	}

	h.writeJSON(w, http.StatusOK, CheckoutResponse{URL: checkoutURL})
}

// Webhook returns the provider's webhook handler, or a 503 handler when
// no provider is configured.
func (h *Handler) Webhook() http.Handler {
	if h.config.Provider == nil {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			h.handleError(w, r, billing.ErrProviderNotConfigured,
				http.StatusServiceUnavailable, "webhooks not configured")
		})
	}
	return h.config.Provider.WebhookHandler()
}

// Subscribe captures a landing page email signup
func (h *Handler) Subscribe(w http.ResponseWriter, r *http.Request) {
	h.captureEmail(w, r, groupSubscribers)
}

// JoinWaitlist captures a waitlist signup
func (h *Handler) JoinWaitlist(w http.ResponseWriter, r *http.Request) {
	h.captureEmail(w, r, groupWaitlist)
}

func (h *Handler) captureEmail(w http.ResponseWriter, r *http.Request, userGroup string) {
	if h.config.Mailer == nil {
		h.handleError(w, r, fmt.Errorf("mailer not configured"),
			http.StatusServiceUnavailable, "signups not available")
		return
	}

	var req SubscribeRequest
	body := http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(body).Decode(&req); err != nil {
		h.handleError(w, r, fmt.Errorf("decoding subscribe request: %w", err),
			http.StatusBadRequest, "invalid request body")
		return
	}

	err := h.config.Mailer.CreateContact(r.Context(), loops.Contact{
		Email:     req.Email,
		Source:    sourceLandingPage,
		UserGroup: userGroup,
	})
	if err != nil {
		if errors.Is(err, loops.ErrInvalidEmail) {
			h.handleError(w, r, err, http.StatusBadRequest, "invalid email address")
			return
		}
		h.handleError(w, r, err, http.StatusInternalServerError, "subscription failed")
		return
	}

	h.writeJSON(w, http.StatusOK, SubscribeResponse{Success: true})
}

// GetProfile looks up a profile by email. Intended for the landing page's
// post-purchase status check, not as a general account API.
func (h *Handler) GetProfile(w http.ResponseWriter, r *http.Request) {
	setNoCacheHeaders(w)

	if h.config.Store == nil {
		h.handleError(w, r, pricing.ErrStoreUnavailable,
			http.StatusServiceUnavailable, "profiles not available")
		return
	}

	email := r.URL.Query().Get("email")
	if email == "" {
		h.handleError(w, r, fmt.Errorf("missing email parameter"),
			http.StatusBadRequest, "email parameter is required")
		return
	}

	profile, err := h.config.Store.GetProfileByEmail(r.Context(), email)
	if err != nil {
		if errors.Is(err, pricing.ErrProfileNotFound) {
			h.handleError(w, r, err, http.StatusNotFound, "profile not found")
			return
		}
		h.handleError(w, r, fmt.Errorf("fetching profile: %w", err),
			http.StatusInternalServerError, "Failed to fetch profile")
		return
	}

	h.writeJSON(w, http.StatusOK, profile)
}

// rawOrderLister is implemented by providers that expose their raw order
// listing for debugging.
type rawOrderLister interface {
	RawOrders(ctx context.Context) (json.RawMessage, error)
}

// DebugPurchaseCount returns the live purchase count, bypassing the
// pricing snapshot cache.
func (h *Handler) DebugPurchaseCount(w http.ResponseWriter, r *http.Request) {
	if !h.config.EnableDebug {
		http.NotFound(w, r)
		return
	}
	setNoCacheHeaders(w)

	if h.config.Counter == nil {
		h.handleError(w, r, fmt.Errorf("counter not configured"),
			http.StatusServiceUnavailable, "count not available")
		return
	}

	count, err := h.config.Counter.PurchaseCount(r.Context())
	if err != nil {
		h.handleError(w, r, err, http.StatusInternalServerError, "Failed to fetch count")
		return
	}
	h.writeJSON(w, http.StatusOK, DebugCountResponse{Count: count})
}

// DebugOrders proxies the provider's raw order listing
func (h *Handler) DebugOrders(w http.ResponseWriter, r *http.Request) {
	if !h.config.EnableDebug {
		http.NotFound(w, r)
		return
	}
	setNoCacheHeaders(w)

	lister, ok := h.config.Provider.(rawOrderLister)
	if !ok {
		h.handleError(w, r, billing.ErrProviderNotConfigured,
			http.StatusServiceUnavailable, "orders not available")
		return
	}

	raw, err := lister.RawOrders(r.Context())
	if err != nil {
		h.handleError(w, r, err, http.StatusBadGateway, "Failed to fetch orders")
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(raw)
}

func (h *Handler) handleError(w http.ResponseWriter, r *http.Request, err error, status int, message string) {
	h.config.Logger.Error("request failed",
		pricing.Field{Key: "path", Value: r.URL.Path},
		pricing.Field{Key: "status", Value: status},
		pricing.Field{Key: "error", Value: err.Error()})
	if h.config.OnError != nil {
		h.config.OnError(w, r, err)
	}
	h.writeJSON(w, status, ErrorResponse{Error: message})
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		h.config.Logger.Error("encoding response",
			pricing.Field{Key: "error", Value: err.Error()})
	}
}

// setNoCacheHeaders marks a response uncacheable at every layer
func setNoCacheHeaders(w http.ResponseWriter) {
	w.Header().Set("Cache-Control", "no-store, no-cache, must-revalidate, proxy-revalidate")
	w.Header().Set("Pragma", "no-cache")
	w.Header().Set("Expires", "0")
}
