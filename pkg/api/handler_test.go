package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mihaimyh/gopricing/pkg/billing"
	"github.com/mihaimyh/gopricing/pkg/mailing/loops"
	"github.com/mihaimyh/gopricing/pkg/pricing"
)

// stubProvider implements billing.Provider for handler tests.
type stubProvider struct {
	checkoutURL string
	checkoutErr error
}

func (s *stubProvider) Name() string { return "stub" }

func (s *stubProvider) WebhookHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"received":true}`))
	})
}

func (s *stubProvider) CountPurchases(ctx context.Context) (int, error) { return 0, nil }

func (s *stubProvider) CheckoutURL(checkoutID string) (string, error) {
	if s.checkoutErr != nil {
		return "", s.checkoutErr
	}
	return s.checkoutURL, nil
}

// stubStore implements just enough of pricing.Store for profile lookups.
type stubStore struct {
	mu       sync.Mutex
	profiles map[string]*pricing.Profile
}

func (s *stubStore) CountLifetimeProfiles(ctx context.Context) (int, error) { return 0, nil }
func (s *stubStore) GetProfile(ctx context.Context, userID string) (*pricing.Profile, error) {
	return nil, pricing.ErrProfileNotFound
}
func (s *stubStore) GetProfileByEmail(ctx context.Context, email string) (*pricing.Profile, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.profiles[email]
	if !ok {
		return nil, pricing.ErrProfileNotFound
	}
	return p, nil
}
func (s *stubStore) UpsertProfile(ctx context.Context, profile *pricing.Profile) error { return nil }
func (s *stubStore) FindUserByEmail(ctx context.Context, email string) (*pricing.User, error) {
	return nil, pricing.ErrUserNotFound
}
func (s *stubStore) CreateUser(ctx context.Context, email string) (*pricing.User, error) {
	return nil, pricing.ErrUserNotFound
}

func newTestService(t *testing.T, count int) *pricing.Service {
	t.Helper()
	svc, err := pricing.NewService(pricing.ServiceConfig{
		Counter: pricing.CounterFunc(func(ctx context.Context) (int, error) {
			return count, nil
		}),
		Resolver: pricing.NewResolver(pricing.ResolverConfig{
			CheckoutLinkID: "abc123",
		}),
		SnapshotTTL: time.Minute,
	})
	require.NoError(t, err)
	return svc
}

func TestNewHandlerRequiresService(t *testing.T) {
	_, err := NewHandler(Config{})
	assert.Error(t, err)
}

func TestGetPricing(t *testing.T) {
	h, err := NewHandler(Config{Service: newTestService(t, 5)})
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "/pricing", nil)
	rec := httptest.NewRecorder()
	h.GetPricing(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "no-store, no-cache, must-revalidate, proxy-revalidate",
		rec.Header().Get("Cache-Control"))
	assert.Equal(t, "no-cache", rec.Header().Get("Pragma"))
	assert.Equal(t, "0", rec.Header().Get("Expires"))

	var state pricing.State
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &state))
	assert.Equal(t, pricing.TierFounders75, state.Tier)
	assert.Equal(t, 9.75, state.Price)
	require.NotNil(t, state.Remaining)
	assert.Equal(t, 5, *state.Remaining)
	assert.Equal(t, "abc123|FOUNDER75", state.CheckoutID)
}

func TestGetPricingServiceFailure(t *testing.T) {
	svc, err := pricing.NewService(pricing.ServiceConfig{
		Counter: pricing.CounterFunc(func(ctx context.Context) (int, error) {
			return 0, pricing.ErrStoreUnavailable
		}),
		Resolver: pricing.NewResolver(pricing.ResolverConfig{}),
	})
	require.NoError(t, err)

	h, err := NewHandler(Config{Service: svc})
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "/pricing", nil)
	rec := httptest.NewRecorder()
	h.GetPricing(rec, req)

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.JSONEq(t, `{"error":"Failed to fetch pricing"}`, rec.Body.String())
}

func TestCreateCheckout(t *testing.T) {
	h, err := NewHandler(Config{
		Service:  newTestService(t, 5),
		Provider: &stubProvider{checkoutURL: "https://buy.polar.sh/polar_cl_abc123?discount_code=FOUNDER75"},
	})
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodPost, "/checkout", nil)
	rec := httptest.NewRecorder()
	h.CreateCheckout(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var resp CheckoutResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Contains(t, resp.URL, "polar_cl_abc123")
}

func TestCreateCheckoutUnavailable(t *testing.T) {
	t.Run("no provider", func(t *testing.T) {
		h, err := NewHandler(Config{Service: newTestService(t, 5)})
		require.NoError(t, err)

		req := httptest.NewRequest(http.MethodPost, "/checkout", nil)
		rec := httptest.NewRecorder()
		h.CreateCheckout(rec, req)
		assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	})

	t.Run("no checkout link", func(t *testing.T) {
		h, err := NewHandler(Config{
			Service:  newTestService(t, 5),
			Provider: &stubProvider{checkoutErr: billing.ErrCheckoutNotAvailable},
		})
		require.NoError(t, err)

		req := httptest.NewRequest(http.MethodPost, "/checkout", nil)
		rec := httptest.NewRecorder()
		h.CreateCheckout(rec, req)
		assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
		assert.JSONEq(t, `{"error":"checkout not available"}`, rec.Body.String())
	})
}

func TestWebhookMount(t *testing.T) {
	h, err := NewHandler(Config{
		Service:  newTestService(t, 0),
		Provider: &stubProvider{},
	})
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodPost, "/webhooks/polar", strings.NewReader("{}"))
	rec := httptest.NewRecorder()
	h.Webhook().ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestWebhookNoProvider(t *testing.T) {
	h, err := NewHandler(Config{Service: newTestService(t, 0)})
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodPost, "/webhooks/polar", strings.NewReader("{}"))
	rec := httptest.NewRecorder()
	h.Webhook().ServeHTTP(rec, req)
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestSubscribe(t *testing.T) {
	var captured loops.Contact
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewDecoder(r.Body).Decode(&captured)
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"success": true}`))
	}))
	defer srv.Close()

	h, err := NewHandler(Config{
		Service: newTestService(t, 0),
		Mailer:  loops.NewClient(loops.Config{APIKey: "lp_test", BaseURL: srv.URL}),
	})
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodPost, "/subscribe",
		strings.NewReader(`{"email":"alice@example.com"}`))
	rec := httptest.NewRecorder()
	h.Subscribe(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"success":true}`, rec.Body.String())
	assert.Equal(t, "alice@example.com", captured.Email)
	assert.Equal(t, "subscribers", captured.UserGroup)
}

func TestJoinWaitlistUserGroup(t *testing.T) {
	var captured loops.Contact
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewDecoder(r.Body).Decode(&captured)
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"success": true}`))
	}))
	defer srv.Close()

	h, err := NewHandler(Config{
		Service: newTestService(t, 0),
		Mailer:  loops.NewClient(loops.Config{APIKey: "lp_test", BaseURL: srv.URL}),
	})
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodPost, "/waitlist",
		strings.NewReader(`{"email":"bob@example.com"}`))
	rec := httptest.NewRecorder()
	h.JoinWaitlist(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "waitlist", captured.UserGroup)
}

func TestSubscribeInvalidEmail(t *testing.T) {
	h, err := NewHandler(Config{
		Service: newTestService(t, 0),
		Mailer:  loops.NewClient(loops.Config{APIKey: "lp_test"}),
	})
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodPost, "/subscribe",
		strings.NewReader(`{"email":"not-an-email"}`))
	rec := httptest.NewRecorder()
	h.Subscribe(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestSubscribeBadBody(t *testing.T) {
	h, err := NewHandler(Config{
		Service: newTestService(t, 0),
		Mailer:  loops.NewClient(loops.Config{APIKey: "lp_test"}),
	})
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodPost, "/subscribe", strings.NewReader("{broken"))
	rec := httptest.NewRecorder()
	h.Subscribe(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestGetProfile(t *testing.T) {
	store := &stubStore{profiles: map[string]*pricing.Profile{
		"alice@example.com": {
			ID:             "user-1",
			Email:          "alice@example.com",
			Plan:           pricing.PlanLifetime,
			NotesLimit:     pricing.UnlimitedLimit,
			OCRLimit:       pricing.UnlimitedLimit,
			IsEarlyAdopter: true,
		},
	}}

	h, err := NewHandler(Config{Service: newTestService(t, 0), Store: store})
	require.NoError(t, err)

	t.Run("found", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/profile?email=alice%40example.com", nil)
		rec := httptest.NewRecorder()
		h.GetProfile(rec, req)

		require.Equal(t, http.StatusOK, rec.Code)
		var profile pricing.Profile
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &profile))
		assert.Equal(t, pricing.PlanLifetime, profile.Plan)
		assert.True(t, profile.IsEarlyAdopter)
	})

	t.Run("not found", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/profile?email=nobody%40example.com", nil)
		rec := httptest.NewRecorder()
		h.GetProfile(rec, req)
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})

	t.Run("missing email", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/profile", nil)
		rec := httptest.NewRecorder()
		h.GetProfile(rec, req)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})
}

func TestDebugEndpointsDisabledByDefault(t *testing.T) {
	h, err := NewHandler(Config{
		Service: newTestService(t, 0),
		Counter: pricing.CounterFunc(func(ctx context.Context) (int, error) { return 7, nil }),
	})
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "/debug/purchase-count", nil)
	rec := httptest.NewRecorder()
	h.DebugPurchaseCount(rec, req)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestDebugPurchaseCount(t *testing.T) {
	h, err := NewHandler(Config{
		Service:     newTestService(t, 0),
		Counter:     pricing.CounterFunc(func(ctx context.Context) (int, error) { return 7, nil }),
		EnableDebug: true,
	})
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "/debug/purchase-count", nil)
	rec := httptest.NewRecorder()
	h.DebugPurchaseCount(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"count":7}`, rec.Body.String())
}

func TestOnErrorHook(t *testing.T) {
	var hookErr error
	h, err := NewHandler(Config{
		Service: newTestService(t, 0),
		OnError: func(w http.ResponseWriter, r *http.Request, err error) {
			hookErr = err
		},
	})
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodPost, "/checkout", nil)
	rec := httptest.NewRecorder()
	h.CreateCheckout(rec, req)

	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Error(t, hookErr)
}
