package api

// CheckoutResponse carries the hosted checkout URL for the active tier
type CheckoutResponse struct {
	URL string `json:"url"`
}

// SubscribeRequest is the body of the email capture endpoints
type SubscribeRequest struct {
	Email string `json:"email"`
}

// SubscribeResponse acknowledges an email capture
type SubscribeResponse struct {
	Success bool `json:"success"`
}

// DebugCountResponse reports the raw purchase count and its source
type DebugCountResponse struct {
	Count int `json:"count"`
}

// ErrorResponse is the standard error body
type ErrorResponse struct {
	Error string `json:"error"`
}
