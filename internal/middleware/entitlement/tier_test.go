package entitlement

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/Peluchemoreno/esti-mate-billing/internal/domain/entity"
	"github.com/Peluchemoreno/esti-mate-billing/internal/middleware/auth"
)

type stubReader map[uuid.UUID]*entity.BillingAccount

func (s stubReader) GetByAccountID(_ context.Context, id uuid.UUID) (*entity.BillingAccount, error) {
	if a, ok := s[id]; ok {
		return a, nil
	}
	return nil, nil
}

type failingReader struct{}

func (failingReader) GetByAccountID(context.Context, uuid.UUID) (*entity.BillingAccount, error) {
	return nil, errors.New("db down")
}

func account(plan entity.Plan, status entity.Status, subscribed bool) *entity.BillingAccount {
	a := entity.NewBillingAccount(uuid.New(), "a@example.com")
	a.Plan = plan
	a.Status = status
	if subscribed {
		sub := "sub_1"
		a.ExternalSubscriptionRef = &sub
	}
	return a
}

func serve(t *testing.T, reader AccountReader, user *auth.AuthUser, allowed ...entity.Plan) (*httptest.ResponseRecorder, error) {
	t.Helper()
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/api/v1/reports", nil)
	if user != nil {
		req = req.WithContext(auth.WithUser(req.Context(), user))
	}
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	h := RequireTier(reader, zap.NewNop(), allowed...)(func(c echo.Context) error {
		a, ok := AccountFromContext(c)
		require.True(t, ok)
		return c.String(http.StatusOK, string(a.Plan))
	})
	return rec, h(c)
}

func TestRequireTier(t *testing.T) {
	paying := account(entity.PlanBasic, entity.StatusActive, true)
	trialing := account(entity.PlanTest, entity.StatusTrialing, true)
	pastDue := account(entity.PlanBasic, entity.StatusPastDue, true)
	noSub := account(entity.PlanBasic, entity.StatusActive, false)
	free := account(entity.PlanFree, entity.StatusDisabled, false)
	reader := stubReader{
		paying.AccountID:   paying,
		trialing.AccountID: trialing,
		pastDue.AccountID:  pastDue,
		noSub.AccountID:    noSub,
		free.AccountID:     free,
	}

	tests := []struct {
		name    string
		user    *auth.AuthUser
		allowed []entity.Plan
		status  int
	}{
		{"unauthenticated", nil, nil, http.StatusUnauthorized},
		{"no billing record", &auth.AuthUser{AccountID: uuid.New()}, nil, http.StatusPaymentRequired},
		{"free account", &auth.AuthUser{AccountID: free.AccountID}, nil, http.StatusPaymentRequired},
		{"past due", &auth.AuthUser{AccountID: pastDue.AccountID}, []entity.Plan{entity.PlanBasic}, http.StatusPaymentRequired},
		{"active without subscription", &auth.AuthUser{AccountID: noSub.AccountID}, nil, http.StatusPaymentRequired},
		{"wrong plan", &auth.AuthUser{AccountID: paying.AccountID}, []entity.Plan{entity.PlanPremium}, http.StatusForbidden},
		{"any paid plan", &auth.AuthUser{AccountID: paying.AccountID}, nil, http.StatusOK},
		{"trialing allowed plan", &auth.AuthUser{AccountID: trialing.AccountID}, []entity.Plan{entity.PlanBasic, entity.PlanTest}, http.StatusOK},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec, err := serve(t, reader, tt.user, tt.allowed...)
			require.NoError(t, err)
			assert.Equal(t, tt.status, rec.Code)
		})
	}
}

func TestRequireTier_ReaderError(t *testing.T) {
	_, err := serve(t, failingReader{}, &auth.AuthUser{AccountID: uuid.New()})
	assert.Error(t, err)
}
