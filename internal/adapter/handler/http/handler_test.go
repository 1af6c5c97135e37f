package http

import (
	"context"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v8"
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/mock"
	"go.uber.org/zap"

	"github.com/Peluchemoreno/esti-mate-billing/internal/adapter/repository"
	"github.com/Peluchemoreno/esti-mate-billing/internal/domain/entity"
	"github.com/Peluchemoreno/esti-mate-billing/internal/domain/provider"
	"github.com/Peluchemoreno/esti-mate-billing/internal/metrics"
	"github.com/Peluchemoreno/esti-mate-billing/internal/middleware/auth"
	"github.com/Peluchemoreno/esti-mate-billing/internal/usecase"
	"github.com/Peluchemoreno/esti-mate-billing/pkg/logger"
	"github.com/Peluchemoreno/esti-mate-billing/pkg/validation"
)

// MockSessionStarter is a mock implementation of SessionStarter
type MockSessionStarter struct {
	mock.Mock
}

func (m *MockSessionStarter) GetAccount(ctx context.Context, id usecase.Identity) (*entity.BillingAccount, error) {
	args := m.Called(ctx, id)
	if a := args.Get(0); a != nil {
		return a.(*entity.BillingAccount), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockSessionStarter) CreateCheckoutSession(ctx context.Context, id usecase.Identity, planReference string) (*provider.Session, error) {
	args := m.Called(ctx, id, planReference)
	if s := args.Get(0); s != nil {
		return s.(*provider.Session), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockSessionStarter) CreatePortalSession(ctx context.Context, id usecase.Identity) (*provider.Session, error) {
	args := m.Called(ctx, id)
	if s := args.Get(0); s != nil {
		return s.(*provider.Session), args.Error(1)
	}
	return nil, args.Error(1)
}

// MockWebhookProcessor is a mock implementation of WebhookProcessor
type MockWebhookProcessor struct {
	mock.Mock
}

func (m *MockWebhookProcessor) Process(ctx context.Context, payload []byte, signatureHeader string) (usecase.WebhookOutcome, error) {
	args := m.Called(ctx, payload, signatureHeader)
	return args.Get(0).(usecase.WebhookOutcome), args.Error(1)
}

func newTestEcho() *echo.Echo {
	e := echo.New()
	e.Validator = validation.NewEchoValidator()
	logger.WithEchoLogger(e, zap.NewNop())
	return e
}

// asUser authenticates every request as user, standing in for the JWT middleware.
func asUser(user *auth.AuthUser) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if user != nil {
				c.SetRequest(c.Request().WithContext(auth.WithUser(c.Request().Context(), user)))
			}
			return next(c)
		}
	}
}

func newTestIdempotency(t *testing.T) *usecase.RequestIdempotency {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return usecase.NewRequestIdempotency(
		repository.NewIdempotencyRepository(client, zap.NewNop()),
		time.Hour, time.Minute, time.Second, zap.NewNop(),
		metrics.NewBillingMetrics(prometheus.NewRegistry()))
}

func newBillingRouter(t *testing.T, sessions SessionStarter, user *auth.AuthUser) *echo.Echo {
	t.Helper()
	e := newTestEcho()
	h := NewBillingHandler(zap.NewNop(), sessions, newTestIdempotency(t))
	g := e.Group("/api/v1/billing", asUser(user))
	g.POST("/checkout", h.CreateCheckout)
	g.POST("/portal", h.CreatePortal)
	g.GET("/me", h.GetMe)
	g.GET("/entitlement", h.GetEntitlement)
	return e
}

func doRequest(e *echo.Echo, method, path, body string, headers map[string]string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if body != "" {
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func testUser() *auth.AuthUser {
	return &auth.AuthUser{AccountID: uuid.New(), Email: "user@example.com"}
}
