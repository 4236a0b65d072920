// Package http provides HTTP middleware for plan-based feature gating
package http

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/mihaimyh/gopricing/pkg/pricing"
)

// UserIDExtractor extracts the user ID from an HTTP request.
// Return empty string if the user is not authenticated.
type UserIDExtractor func(r *http.Request) string

// Config holds middleware configuration
type Config struct {
	// Store is the profile store (required)
	Store pricing.Store

	// GetUserID extracts user ID from request (required)
	GetUserID UserIDExtractor

	// Feature is the capability the wrapped handler requires (required).
	// Users whose plan lacks the feature are rejected.
	Feature pricing.Feature

	// OnDenied is called when the user's plan lacks the feature.
	// If nil, returns 403 Forbidden with an upgrade hint.
	OnDenied func(w http.ResponseWriter, r *http.Request, profile *pricing.Profile)

	// OnUnauthorized is called when user is not authenticated
	// If nil, returns 401 Unauthorized
	OnUnauthorized func(w http.ResponseWriter, r *http.Request)

	// OnError is called when an internal error occurs
	// If nil, returns 500 Internal Server Error
	OnError func(w http.ResponseWriter, r *http.Request, err error)
}

// Middleware creates an HTTP middleware that gates a handler behind a plan
// feature. Users without a profile are treated as free-plan users.
func Middleware(config Config) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			userID := config.GetUserID(r)
			if userID == "" {
				if config.OnUnauthorized != nil {
					config.OnUnauthorized(w, r)
				} else {
					http.Error(w, "Unauthorized", http.StatusUnauthorized)
				}
				return
			}

			plan := pricing.PlanFree
			profile, err := config.Store.GetProfile(r.Context(), userID)
			if err != nil && !errors.Is(err, pricing.ErrProfileNotFound) {
				if config.OnError != nil {
					config.OnError(w, r, err)
				} else {
					http.Error(w, "Internal Server Error", http.StatusInternalServerError)
				}
				return
			}
			if profile != nil {
				plan = profile.Plan
			}

			if !pricing.HasFeature(plan, config.Feature) {
				if config.OnDenied != nil {
					config.OnDenied(w, r, profile)
				} else {
					msg := fmt.Sprintf("Feature %q requires an upgraded plan (current: %s)",
						config.Feature, pricing.FormatPlanName(plan))
					http.Error(w, msg, http.StatusForbidden)
				}
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// HandlerFunc creates the same middleware for http.HandlerFunc chains
func HandlerFunc(config Config) func(http.HandlerFunc) http.HandlerFunc {
	middleware := Middleware(config)
	return func(next http.HandlerFunc) http.HandlerFunc {
		return middleware(next).ServeHTTP
	}
}

// FromHeader returns a UserIDExtractor that reads a header
func FromHeader(headerName string) UserIDExtractor {
	return func(r *http.Request) string {
		return r.Header.Get(headerName)
	}
}

// FromContext returns a UserIDExtractor that reads the request context
func FromContext(key interface{}) UserIDExtractor {
	return func(r *http.Request) string {
		if userID, ok := r.Context().Value(key).(string); ok {
			return userID
		}
		return ""
	}
}
