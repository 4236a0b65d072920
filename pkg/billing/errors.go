package billing

import "errors"

var (
	// ErrProviderNotConfigured is returned when a provider is not properly configured
	ErrProviderNotConfigured = errors.New("payment provider not configured")

	// ErrInvalidWebhookSignature is returned when webhook signature validation fails
	ErrInvalidWebhookSignature = errors.New("invalid webhook signature")

	// ErrInvalidWebhookPayload is returned when webhook payload cannot be parsed
	ErrInvalidWebhookPayload = errors.New("invalid webhook payload")

	// ErrMissingCustomerEmail is returned when an event carries no customer email
	ErrMissingCustomerEmail = errors.New("webhook event missing customer email")

	// ErrProviderAPIError is returned when the provider's API returns an error
	ErrProviderAPIError = errors.New("payment provider API error")

	// ErrUnexpectedResponse is returned when the provider's response does not
	// match the documented schema
	ErrUnexpectedResponse = errors.New("unexpected payment provider response shape")

	// ErrCheckoutNotAvailable is returned when no checkout link is configured
	ErrCheckoutNotAvailable = errors.New("checkout not available")
)
