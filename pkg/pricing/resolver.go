package pricing

import (
	"fmt"
	"math"
)

const (
	// DefaultOriginalPrice is the undiscounted lifetime price
	DefaultOriginalPrice = 39.00

	defaultFoundersCode = "FOUNDER75"
	defaultEarlyCode    = "EARLY50"
	defaultLaunchCode   = "FIRSTFIFTY50"

	// checkoutSeparator joins the checkout link id and discount code
	checkoutSeparator = "|"
)

// band is one row of the tier partition. End is exclusive; End == 0 marks
// the unbounded final band.
type band struct {
	tier     Tier
	discount int
	start    int
	end      int
}

// The four bands partition the non-negative integers: contiguous,
// non-overlapping, price non-decreasing.
var bands = []band{
	{tier: TierFounders75, discount: 75, start: 0, end: 10},
	{tier: TierEarly50, discount: 50, start: 10, end: 20},
	{tier: TierLaunch25, discount: 25, start: 20, end: 50},
	{tier: TierFull, discount: 0, start: 50, end: 0},
}

// ResolverConfig holds tier resolver configuration
type ResolverConfig struct {
	// CheckoutLinkID is the payment provider checkout link id.
	// When empty the resolved state carries an empty checkout identifier
	// and checkout initiation reports "not available".
	CheckoutLinkID string

	// DiscountCodes overrides the per-tier discount codes configured in
	// the provider dashboard. Missing tiers fall back to the defaults
	// (FOUNDER75, EARLY50, FIRSTFIFTY50). TierFull never has a code.
	DiscountCodes map[Tier]string

	// OriginalPrice is the undiscounted price (default: 39.00)
	OriginalPrice float64
}

// Resolver maps a purchase count to the active pricing tier.
// Resolve is a pure, total function over count >= 0.
type Resolver struct {
	checkoutLinkID string
	discountCodes  map[Tier]string
	originalPrice  float64
}

// NewResolver creates a tier resolver with the given configuration
func NewResolver(config ResolverConfig) *Resolver {
	originalPrice := config.OriginalPrice
	if originalPrice <= 0 {
		originalPrice = DefaultOriginalPrice
	}

	codes := map[Tier]string{
		TierFounders75: defaultFoundersCode,
		TierEarly50:    defaultEarlyCode,
		TierLaunch25:   defaultLaunchCode,
	}
	for tier, code := range config.DiscountCodes {
		if code != "" {
			codes[tier] = code
		}
	}

	return &Resolver{
		checkoutLinkID: config.CheckoutLinkID,
		discountCodes:  codes,
		originalPrice:  originalPrice,
	}
}

// Resolve returns the pricing state for a purchase count.
// Negative counts are treated as 0.
func (r *Resolver) Resolve(count int) State {
	if count < 0 {
		count = 0
	}

	b := bands[len(bands)-1]
	for _, candidate := range bands {
		if candidate.end == 0 || count < candidate.end {
			b = candidate
			break
		}
	}

	price := tierPrice(r.originalPrice, b.discount)

	var remaining *int
	if b.end > 0 {
		left := b.end - count
		if left < 0 {
			// Concurrent purchases can race past the boundary between
			// the count read and this resolution.
			left = 0
		}
		remaining = &left
	}

	return State{
		Tier:          b.tier,
		Price:         price,
		Remaining:     remaining,
		DisplayPrice:  FormatPrice(price),
		CheckoutID:    r.checkoutIdentifier(b.tier),
		Discount:      b.discount,
		OriginalPrice: r.originalPrice,
	}
}

// DiscountCode returns the configured discount code for a tier.
// TierFull and unknown tiers have none.
func (r *Resolver) DiscountCode(tier Tier) string {
	return r.discountCodes[tier]
}

// checkoutIdentifier composes the checkout link with the tier's discount
// code. Format: "link_id|discount_code", or the bare link id for TierFull.
func (r *Resolver) checkoutIdentifier(tier Tier) string {
	if r.checkoutLinkID == "" {
		return ""
	}
	code := r.discountCodes[tier]
	if code == "" {
		return r.checkoutLinkID
	}
	return r.checkoutLinkID + checkoutSeparator + code
}

// tierPrice applies a discount percentage to the original price, rounded
// to cents.
func tierPrice(originalPrice float64, discount int) float64 {
	price := originalPrice * float64(100-discount) / 100
	return math.Round(price*100) / 100
}

// FormatPrice formats a price for display, dropping cents when they are
// zero ("$39" rather than "$39.00").
func FormatPrice(price float64) string {
	if price == math.Trunc(price) {
		return fmt.Sprintf("$%d", int64(price))
	}
	return fmt.Sprintf("$%.2f", price)
}

// BadgeFor returns display metadata for a tier
func BadgeFor(tier Tier) Badge {
	switch tier {
	case TierFounders75:
		return Badge{Label: "Founder Tier - 75% OFF", Color: "bg-orange-500"}
	case TierEarly50:
		return Badge{Label: "Early Supporter - 50% OFF", Color: "bg-yellow-500"}
	case TierLaunch25:
		return Badge{Label: "Launch Pricing - 25% OFF", Color: "bg-blue-500"}
	default:
		return Badge{Label: "Standard Price", Color: "bg-slate-500"}
	}
}
