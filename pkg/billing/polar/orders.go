package polar

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/mihaimyh/gopricing/pkg/billing"
	"github.com/mihaimyh/gopricing/pkg/pricing"
)

const ordersEndpoint = "/v1/orders"

// orderPage is the documented shape of GET /v1/orders. The decoder is the
// single validation point for this schema: if Polar's response drifts, the
// count path fails loudly here instead of silently filtering to zero.
type orderPage struct {
	Items []order `json:"items"`
}

type order struct {
	ID         string     `json:"id"`
	Status     string     `json:"status"`
	Refunded   bool       `json:"refunded"`
	RefundedAt *time.Time `json:"refunded_at"`
	ProductID  string     `json:"product_id"`
	Product    struct {
		ID string `json:"id"`
	} `json:"product"`
}

// succeeded reports whether the order represents a completed payment.
func (o order) succeeded() bool {
	switch o.Status {
	case "paid", "completed", "succeeded":
		return true
	}
	return false
}

// refunded reports whether the order has been reversed.
func (o order) refunded() bool {
	return o.Refunded || o.RefundedAt != nil
}

// productID returns the order's product id, tolerating both the flat and
// the nested field Polar has used.
func (o order) productID() string {
	if o.ProductID != "" {
		return o.ProductID
	}
	return o.Product.ID
}

// readAll drains a response body with a sanity cap.
func readAll(resp *http.Response) ([]byte, error) {
	return io.ReadAll(io.LimitReader(resp.Body, 4<<20))
}

// decodeOrderPage parses an order-listing response body against the
// documented schema.
func decodeOrderPage(body []byte) ([]order, error) {
	var page orderPage
	if err := json.Unmarshal(body, &page); err != nil {
		return nil, fmt.Errorf("%w: %v", billing.ErrUnexpectedResponse, err)
	}
	if page.Items == nil {
		return nil, fmt.Errorf("%w: missing items field", billing.ErrUnexpectedResponse)
	}
	return page.Items, nil
}

// CountPurchases queries Polar's order listing for the number of
// successful, non-refunded lifetime purchases. Best-effort: this is the
// fallback count source when the profile store is unavailable.
func (p *Provider) CountPurchases(ctx context.Context) (int, error) {
	if p.apiKey == "" || p.productID == "" {
		p.metrics.RecordAPICall(providerName, ordersEndpoint, "not_configured")
		p.logger.Warn("polar credentials not configured, cannot count orders")
		return 0, billing.ErrProviderNotConfigured
	}

	startTime := time.Now()

	endpoint := p.apiBaseURL + ordersEndpoint + "?product_id=" + url.QueryEscape(p.productID)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to build orders request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+p.apiKey)
	req.Header.Set("Accept", "application/json")

	resp, err := p.httpClient.Do(req)
	if err != nil {
		p.metrics.RecordAPICall(providerName, ordersEndpoint, "error")
		p.metrics.RecordAPICallDuration(providerName, ordersEndpoint, time.Since(startTime))
		return 0, fmt.Errorf("%w: %v", billing.ErrProviderAPIError, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		p.metrics.RecordAPICall(providerName, ordersEndpoint, "error")
		p.metrics.RecordAPICallDuration(providerName, ordersEndpoint, time.Since(startTime))
		return 0, fmt.Errorf("%w: status %d", billing.ErrProviderAPIError, resp.StatusCode)
	}

	body, err := readAll(resp)
	if err != nil {
		p.metrics.RecordAPICall(providerName, ordersEndpoint, "error")
		return 0, fmt.Errorf("failed to read orders response: %w", err)
	}

	orders, err := decodeOrderPage(body)
	if err != nil {
		p.metrics.RecordAPICall(providerName, ordersEndpoint, "bad_schema")
		return 0, err
	}

	count := 0
	for _, o := range orders {
		if o.succeeded() && !o.refunded() && o.productID() == p.productID {
			count++
		}
	}

	p.metrics.RecordAPICall(providerName, ordersEndpoint, "success")
	p.metrics.RecordAPICallDuration(providerName, ordersEndpoint, time.Since(startTime))
	p.logger.Debug("counted lifetime orders from provider",
		pricing.Field{Key: "count", Value: count})

	return count, nil
}

// RawOrders returns the raw order-listing response for debug endpoints.
func (p *Provider) RawOrders(ctx context.Context) (json.RawMessage, error) {
	if p.apiKey == "" || p.productID == "" {
		return nil, billing.ErrProviderNotConfigured
	}

	endpoint := p.apiBaseURL + ordersEndpoint + "?product_id=" + url.QueryEscape(p.productID)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+p.apiKey)
	req.Header.Set("Accept", "application/json")

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", billing.ErrProviderAPIError, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("%w: status %d", billing.ErrProviderAPIError, resp.StatusCode)
	}

	return readAll(resp)
}
