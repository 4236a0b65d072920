package polar

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mihaimyh/gopricing/pkg/billing"
)

func TestCheckoutURL(t *testing.T) {
	store := newFakeStore()
	p, err := NewProvider(Config{
		Config:      billing.Config{Store: store},
		SiteBaseURL: "https://example.com",
	})
	require.NoError(t, err)

	t.Run("link with discount code", func(t *testing.T) {
		u, err := p.CheckoutURL("abc123|FOUNDER75")
		require.NoError(t, err)
		assert.Equal(t, "https://buy.polar.sh/polar_cl_abc123?discount_code=FOUNDER75&success_url=https%3A%2F%2Fexample.com%2Fsuccess", u)
	})

	t.Run("bare link", func(t *testing.T) {
		u, err := p.CheckoutURL("abc123")
		require.NoError(t, err)
		assert.Equal(t, "https://buy.polar.sh/polar_cl_abc123?success_url=https%3A%2F%2Fexample.com%2Fsuccess", u)
	})

	t.Run("empty identifier", func(t *testing.T) {
		_, err := p.CheckoutURL("")
		assert.ErrorIs(t, err, billing.ErrCheckoutNotAvailable)
	})

	t.Run("discount code without link", func(t *testing.T) {
		_, err := p.CheckoutURL("|FOUNDER75")
		assert.ErrorIs(t, err, billing.ErrCheckoutNotAvailable)
	})
}

func TestCheckoutURLNoSiteBase(t *testing.T) {
	store := newFakeStore()
	p, err := NewProvider(Config{Config: billing.Config{Store: store}})
	require.NoError(t, err)

	u, err := p.CheckoutURL("abc123|EARLY50")
	require.NoError(t, err)
	assert.Equal(t, "https://buy.polar.sh/polar_cl_abc123?discount_code=EARLY50", u)
}
