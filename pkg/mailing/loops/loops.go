// Package loops provides a minimal client for the Loops contacts API,
// used to capture landing page email signups.
package loops

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/mihaimyh/gopricing/pkg/pricing"
)

const (
	defaultBaseURL     = "https://app.loops.so/api/v1"
	defaultHTTPTimeout = 10 * time.Second
)

// ErrInvalidEmail is returned when the email fails basic shape validation.
var ErrInvalidEmail = errors.New("loops: invalid email address")

// ErrAPIError is returned when the Loops API rejects a request for a
// reason other than the contact already existing.
var ErrAPIError = errors.New("loops: api error")

// Config configures a Client.
type Config struct {
	// APIKey authorizes requests. When empty the client logs and drops
	// every contact instead of failing, so signup endpoints keep working
	// in environments without a Loops account.
	APIKey string

	// BaseURL overrides the Loops API endpoint, mainly for tests.
	BaseURL string

	HTTPClient *http.Client
	Logger     pricing.Logger
}

// Client creates contacts in a Loops audience.
type Client struct {
	apiKey     string
	baseURL    string
	httpClient *http.Client
	logger     pricing.Logger
}

// Contact is a single audience entry.
type Contact struct {
	Email     string `json:"email"`
	Source    string `json:"source,omitempty"`
	UserGroup string `json:"userGroup,omitempty"`
}

// NewClient creates a Loops client from config.
func NewClient(config Config) *Client {
	if config.BaseURL == "" {
		config.BaseURL = defaultBaseURL
	}
	if config.HTTPClient == nil {
		config.HTTPClient = &http.Client{Timeout: defaultHTTPTimeout}
	}
	if config.Logger == nil {
		config.Logger = &pricing.NoopLogger{}
	}
	return &Client{
		apiKey:     config.APIKey,
		baseURL:    strings.TrimRight(config.BaseURL, "/"),
		httpClient: config.HTTPClient,
		logger:     config.Logger,
	}
}

// Configured reports whether an API key is set.
func (c *Client) Configured() bool {
	return c.apiKey != ""
}

// CreateContact adds an email to the audience. An already-subscribed
// email is treated as success so resubmitting a form never surfaces an
// error to the visitor.
func (c *Client) CreateContact(ctx context.Context, contact Contact) error {
	if !validEmail(contact.Email) {
		return ErrInvalidEmail
	}
	if c.apiKey == "" {
		c.logger.Warn("loops api key not configured, dropping contact",
			pricing.Field{Key: "email", Value: contact.Email})
		return nil
	}

	body, err := json.Marshal(contact)
	if err != nil {
		return fmt.Errorf("loops: marshaling contact: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		c.baseURL+"/contacts/create", bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("loops: creating request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("loops: sending request: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return nil
	}

	respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	if alreadyExists(respBody) {
		c.logger.Debug("contact already subscribed",
			pricing.Field{Key: "email", Value: contact.Email})
		return nil
	}

	c.logger.Error("loops contact creation failed",
		pricing.Field{Key: "status", Value: resp.StatusCode},
		pricing.Field{Key: "body", Value: string(respBody)})
	return fmt.Errorf("%w: status %d", ErrAPIError, resp.StatusCode)
}

// alreadyExists checks the error body for the duplicate-contact message.
func alreadyExists(body []byte) bool {
	var payload struct {
		Message string `json:"message"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		return false
	}
	return strings.Contains(strings.ToLower(payload.Message), "already exists") ||
		strings.Contains(strings.ToLower(payload.Message), "already on list")
}

// validEmail is a shape check, not RFC validation; the Loops API does
// the real validation.
func validEmail(email string) bool {
	at := strings.IndexByte(email, '@')
	if at <= 0 || at == len(email)-1 {
		return false
	}
	return strings.IndexByte(email[at+1:], '.') > 0
}
