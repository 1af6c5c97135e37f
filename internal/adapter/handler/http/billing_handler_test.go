package http

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/Peluchemoreno/esti-mate-billing/internal/domain/entity"
	domainErrors "github.com/Peluchemoreno/esti-mate-billing/internal/domain/errors"
	"github.com/Peluchemoreno/esti-mate-billing/internal/domain/provider"
	"github.com/Peluchemoreno/esti-mate-billing/internal/middleware/auth"
	"github.com/Peluchemoreno/esti-mate-billing/internal/middleware/entitlement"
	"github.com/Peluchemoreno/esti-mate-billing/internal/usecase"
)

func TestBillingHandler_CreateCheckout(t *testing.T) {
	user := testUser()
	identity := usecase.Identity{AccountID: user.AccountID, Email: user.Email}

	t.Run("by price id", func(t *testing.T) {
		sessions := new(MockSessionStarter)
		sessions.On("CreateCheckoutSession", mock.Anything, identity, "price_basic").
			Return(&provider.Session{ID: "cs_1", URL: "https://checkout.example/cs_1"}, nil).Once()

		rec := doRequest(newBillingRouter(t, sessions, user), http.MethodPost, "/api/v1/billing/checkout", `{"priceId":"price_basic"}`, nil)

		assert.Equal(t, http.StatusOK, rec.Code)
		assert.JSONEq(t, `{"id":"cs_1","url":"https://checkout.example/cs_1"}`, rec.Body.String())
		sessions.AssertExpectations(t)
	})

	t.Run("by plan name", func(t *testing.T) {
		sessions := new(MockSessionStarter)
		sessions.On("CreateCheckoutSession", mock.Anything, identity, "basic").
			Return(&provider.Session{ID: "cs_2", URL: "https://checkout.example/cs_2"}, nil).Once()

		rec := doRequest(newBillingRouter(t, sessions, user), http.MethodPost, "/api/v1/billing/checkout", `{"plan":"basic"}`, nil)

		assert.Equal(t, http.StatusOK, rec.Code)
		sessions.AssertExpectations(t)
	})

	t.Run("missing reference", func(t *testing.T) {
		sessions := new(MockSessionStarter)
		rec := doRequest(newBillingRouter(t, sessions, user), http.MethodPost, "/api/v1/billing/checkout", `{}`, nil)

		assert.Equal(t, http.StatusBadRequest, rec.Code)
		sessions.AssertNotCalled(t, "CreateCheckoutSession", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("unauthenticated", func(t *testing.T) {
		rec := doRequest(newBillingRouter(t, new(MockSessionStarter), nil), http.MethodPost, "/api/v1/billing/checkout", `{"plan":"basic"}`, nil)
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})
}

func TestBillingHandler_ErrorMapping(t *testing.T) {
	user := testUser()

	tests := []struct {
		name   string
		err    error
		status int
		code   string
	}{
		{"unknown plan", fmt.Errorf("%w: %q", domainErrors.ErrUnknownPlanReference, "gold"), http.StatusBadRequest, "INVALID_ARGUMENT"},
		{"unknown account", domainErrors.ErrUnknownAccount, http.StatusNotFound, "NOT_FOUND"},
		{"processor unavailable", fmt.Errorf("checkout: %w", domainErrors.ErrUpstreamUnavailable), http.StatusServiceUnavailable, "UNAVAILABLE"},
		{"processor rejected", fmt.Errorf("checkout: %w", domainErrors.ErrProcessorRejected), http.StatusBadGateway, "BAD_GATEWAY"},
		{"store failure", fmt.Errorf("link: %w", domainErrors.ErrTransientStore), http.StatusInternalServerError, "INTERNAL"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sessions := new(MockSessionStarter)
			sessions.On("CreateCheckoutSession", mock.Anything, mock.Anything, mock.Anything).Return(nil, tt.err)

			rec := doRequest(newBillingRouter(t, sessions, user), http.MethodPost, "/api/v1/billing/checkout", `{"plan":"gold"}`, nil)

			assert.Equal(t, tt.status, rec.Code)
			var body map[string]interface{}
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
			assert.Equal(t, tt.code, body["code"])
		})
	}
}

func TestBillingHandler_CheckoutIdempotencyKey(t *testing.T) {
	user := testUser()
	sessions := new(MockSessionStarter)
	sessions.On("CreateCheckoutSession", mock.Anything, mock.Anything, "price_basic").
		Return(&provider.Session{ID: "cs_once", URL: "https://checkout.example/cs_once"}, nil).Once()

	router := newBillingRouter(t, sessions, user)
	headers := map[string]string{IdempotencyKeyHeader: "retry-123"}

	first := doRequest(router, http.MethodPost, "/api/v1/billing/checkout", `{"priceId":"price_basic"}`, headers)
	second := doRequest(router, http.MethodPost, "/api/v1/billing/checkout", `{"priceId":"price_basic"}`, headers)

	assert.Equal(t, http.StatusOK, first.Code)
	assert.Equal(t, http.StatusOK, second.Code)
	assert.JSONEq(t, first.Body.String(), second.Body.String())
	assert.Empty(t, first.Header().Get("Idempotent-Replayed"))
	assert.Equal(t, "true", second.Header().Get("Idempotent-Replayed"))
	sessions.AssertExpectations(t)
}

func TestBillingHandler_FailedRequestIsRetryableWithSameKey(t *testing.T) {
	user := testUser()
	sessions := new(MockSessionStarter)
	sessions.On("CreateCheckoutSession", mock.Anything, mock.Anything, "basic").
		Return(nil, domainErrors.ErrUpstreamUnavailable).Once()
	sessions.On("CreateCheckoutSession", mock.Anything, mock.Anything, "basic").
		Return(&provider.Session{ID: "cs_ok", URL: "https://checkout.example/cs_ok"}, nil).Once()

	router := newBillingRouter(t, sessions, user)
	headers := map[string]string{IdempotencyKeyHeader: "retry-after-outage"}

	first := doRequest(router, http.MethodPost, "/api/v1/billing/checkout", `{"plan":"basic"}`, headers)
	second := doRequest(router, http.MethodPost, "/api/v1/billing/checkout", `{"plan":"basic"}`, headers)

	assert.Equal(t, http.StatusServiceUnavailable, first.Code)
	assert.Equal(t, http.StatusOK, second.Code)
	sessions.AssertExpectations(t)
}

func TestBillingHandler_Portal(t *testing.T) {
	user := testUser()

	sessions := new(MockSessionStarter)
	sessions.On("CreatePortalSession", mock.Anything, mock.Anything).Return(nil, domainErrors.ErrNoBillingLinkage).Once()
	sessions.On("CreatePortalSession", mock.Anything, mock.Anything).
		Return(&provider.Session{ID: "bps_1", URL: "https://portal.example/bps_1"}, nil).Once()
	router := newBillingRouter(t, sessions, user)

	rec := doRequest(router, http.MethodPost, "/api/v1/billing/portal", "", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = doRequest(router, http.MethodPost, "/api/v1/billing/portal", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"url":"https://portal.example/bps_1"}`, rec.Body.String())
}

func TestBillingHandler_GetMe(t *testing.T) {
	user := testUser()
	end := time.Date(2025, 2, 1, 0, 0, 0, 0, time.UTC)
	customer, sub := "cus_1", "sub_1"
	account := &entity.BillingAccount{
		AccountID:               user.AccountID,
		Email:                   user.Email,
		Plan:                    entity.PlanBasic,
		Status:                  entity.StatusActive,
		ExternalCustomerRef:     &customer,
		ExternalSubscriptionRef: &sub,
		CurrentPeriodEnd:        &end,
	}

	sessions := new(MockSessionStarter)
	sessions.On("GetAccount", mock.Anything, usecase.Identity{AccountID: user.AccountID, Email: user.Email}).Return(account, nil)

	rec := doRequest(newBillingRouter(t, sessions, user), http.MethodGet, "/api/v1/billing/me", "", nil)

	require.Equal(t, http.StatusOK, rec.Code)
	var got AccountSummary
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.Equal(t, user.AccountID.String(), got.AccountID)
	assert.Equal(t, "basic", got.Plan)
	assert.Equal(t, "active", got.Status)
	assert.True(t, got.HasCustomer)
	assert.True(t, got.HasSubscription)
	assert.Equal(t, "entitled", got.Entitlement)
	assert.True(t, end.Equal(*got.CurrentPeriodEnd))
	assert.NotContains(t, rec.Body.String(), "cus_1", "processor references stay internal")
}

func TestBillingHandler_GetMeUnknownAccount(t *testing.T) {
	user := &auth.AuthUser{AccountID: uuid.New()}
	sessions := new(MockSessionStarter)
	sessions.On("GetAccount", mock.Anything, mock.Anything).Return(nil, domainErrors.ErrUnknownAccount)

	rec := doRequest(newBillingRouter(t, sessions, user), http.MethodGet, "/api/v1/billing/me", "", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

type accountsByID map[uuid.UUID]*entity.BillingAccount

func (a accountsByID) GetByAccountID(_ context.Context, id uuid.UUID) (*entity.BillingAccount, error) {
	return a[id], nil
}

func TestBillingHandler_GetEntitlementUsesTierRecord(t *testing.T) {
	user := testUser()
	sub := "sub_1"
	accounts := accountsByID{user.AccountID: {
		AccountID:               user.AccountID,
		Email:                   user.Email,
		Plan:                    entity.PlanBasic,
		Status:                  entity.StatusTrialing,
		ExternalSubscriptionRef: &sub,
	}}

	sessions := new(MockSessionStarter)
	e := newTestEcho()
	h := NewBillingHandler(zap.NewNop(), sessions, newTestIdempotency(t))
	e.GET("/api/v1/billing/entitlement", h.GetEntitlement, asUser(user), entitlement.RequireTier(accounts, zap.NewNop()))

	rec := doRequest(e, http.MethodGet, "/api/v1/billing/entitlement", "", nil)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"entitled":true,"plan":"basic","status":"trialing"}`, rec.Body.String())
	sessions.AssertNotCalled(t, "GetAccount", mock.Anything, mock.Anything)
}
