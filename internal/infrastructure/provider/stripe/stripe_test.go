package stripe

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	domainErrors "github.com/Peluchemoreno/esti-mate-billing/internal/domain/errors"
	"github.com/Peluchemoreno/esti-mate-billing/internal/domain/provider"
)

func newTestProvider(t *testing.T, handler http.HandlerFunc, timeout time.Duration) *StripeProvider {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	return NewStripeProvider(Options{
		SecretKey: "sk_test_123",
		Timeout:   timeout,
		BaseURL:   srv.URL,
	}, zap.NewNop())
}

func TestStripeProvider_CreateCheckoutSession(t *testing.T) {
	p := newTestProvider(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/checkout/sessions", r.URL.Path)
		assert.Equal(t, "checkout:acct-1:price_basic:20250101", r.Header.Get("Idempotency-Key"))
		require.NoError(t, r.ParseForm())
		assert.Equal(t, "subscription", r.PostForm.Get("mode"))
		assert.Equal(t, "cus_1", r.PostForm.Get("customer"))
		assert.Equal(t, "price_basic", r.PostForm.Get("line_items[0][price]"))
		assert.Equal(t, "1", r.PostForm.Get("line_items[0][quantity]"))
		assert.Equal(t, "true", r.PostForm.Get("allow_promotion_codes"))
		assert.Equal(t, "acct-1", r.PostForm.Get("client_reference_id"))
		assert.Equal(t, "acct-1", r.PostForm.Get("metadata[appUserId]"))

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id":"cs_1","object":"checkout.session","url":"https://checkout.stripe.test/cs_1"}`))
	}, time.Second)

	s, err := p.CreateCheckoutSession(context.Background(), &provider.CheckoutSessionRequest{
		AccountID:      "acct-1",
		CustomerID:     "cus_1",
		PriceID:        "price_basic",
		SuccessURL:     "https://app/billing/success?session_id={CHECKOUT_SESSION_ID}",
		CancelURL:      "https://app/billing/cancelled",
		IdempotencyKey: "checkout:acct-1:price_basic:20250101",
	})
	require.NoError(t, err)
	assert.Equal(t, "cs_1", s.ID)
	assert.Equal(t, "https://checkout.stripe.test/cs_1", s.URL)
}

func TestStripeProvider_CreateCustomer(t *testing.T) {
	p := newTestProvider(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/customers", r.URL.Path)
		assert.Equal(t, "customer:acct-1", r.Header.Get("Idempotency-Key"))
		require.NoError(t, r.ParseForm())
		assert.Equal(t, "a@example.com", r.PostForm.Get("email"))
		assert.Equal(t, "acct-1", r.PostForm.Get("metadata[appUserId]"))
		_, _ = w.Write([]byte(`{"id":"cus_new","object":"customer"}`))
	}, time.Second)

	id, err := p.CreateCustomer(context.Background(), &provider.CreateCustomerRequest{
		AccountID:      "acct-1",
		Email:          "a@example.com",
		IdempotencyKey: "customer:acct-1",
	})
	require.NoError(t, err)
	assert.Equal(t, "cus_new", id)
}

func TestStripeProvider_ErrorClassification(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		body    string
		delay   time.Duration
		wantErr error
	}{
		{"server error", http.StatusInternalServerError, `{"error":{"type":"api_error","message":"boom"}}`, 0, domainErrors.ErrUpstreamUnavailable},
		{"rate limited", http.StatusTooManyRequests, `{"error":{"type":"rate_limit_error","message":"slow down"}}`, 0, domainErrors.ErrUpstreamUnavailable},
		{"bad request", http.StatusBadRequest, `{"error":{"type":"invalid_request_error","message":"No such customer"}}`, 0, domainErrors.ErrProcessorRejected},
		{"timeout", http.StatusOK, `{"id":"bps_1"}`, 300 * time.Millisecond, domainErrors.ErrUpstreamUnavailable},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := newTestProvider(t, func(w http.ResponseWriter, r *http.Request) {
				if tt.delay > 0 {
					select {
					case <-time.After(tt.delay):
					case <-r.Context().Done():
						return
					}
				}
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			}, 100*time.Millisecond)

			_, err := p.CreatePortalSession(context.Background(), &provider.PortalSessionRequest{
				CustomerID: "cus_1",
				ReturnURL:  "https://app/dashboard/products",
			})
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}
