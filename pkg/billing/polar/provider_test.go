package polar

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mihaimyh/gopricing/pkg/billing"
)

func TestNewProviderRequiresStore(t *testing.T) {
	_, err := NewProvider(Config{})
	assert.Error(t, err)
}

func TestNewProviderDefaults(t *testing.T) {
	p, err := NewProvider(Config{Config: billing.Config{Store: newFakeStore()}})
	require.NoError(t, err)
	assert.Equal(t, "polar", p.Name())
	assert.Equal(t, defaultAPIBaseURL, p.apiBaseURL)
	assert.Equal(t, defaultCheckoutBaseURL, p.checkoutBaseURL)
	assert.NotNil(t, p.WebhookHandler())
}

func TestNewProviderTrimsTrailingSlashes(t *testing.T) {
	p, err := NewProvider(Config{
		Config:          billing.Config{Store: newFakeStore()},
		APIBaseURL:      "https://api.example.com/",
		CheckoutBaseURL: "https://buy.example.com/",
		SiteBaseURL:     "https://example.com/",
	})
	require.NoError(t, err)
	assert.Equal(t, "https://api.example.com", p.apiBaseURL)
	assert.Equal(t, "https://buy.example.com", p.checkoutBaseURL)
	assert.Equal(t, "https://example.com", p.siteBaseURL)
}
