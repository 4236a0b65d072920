package polar

import (
	"net/url"
	"strings"

	"github.com/mihaimyh/gopricing/pkg/billing"
)

// CheckoutURL builds the hosted checkout link for a resolver checkout
// identifier. The identifier is either a bare checkout link id or
// "linkID|discountCode"; the discount code rides along as a query
// parameter so the hosted page pre-applies it.
func (p *Provider) CheckoutURL(checkoutID string) (string, error) {
	if checkoutID == "" {
		return "", billing.ErrCheckoutNotAvailable
	}

	linkID := checkoutID
	discountCode := ""
	if idx := strings.IndexByte(checkoutID, '|'); idx >= 0 {
		linkID = checkoutID[:idx]
		discountCode = checkoutID[idx+1:]
	}
	if linkID == "" {
		return "", billing.ErrCheckoutNotAvailable
	}

	query := url.Values{}
	if discountCode != "" {
		query.Set("discount_code", discountCode)
	}
	if p.siteBaseURL != "" {
		query.Set("success_url", p.siteBaseURL+"/success")
	}

	checkoutURL := p.checkoutBaseURL + "/" + checkoutLinkPrefix + linkID
	if encoded := query.Encode(); encoded != "" {
		checkoutURL += "?" + encoded
	}
	return checkoutURL, nil
}
