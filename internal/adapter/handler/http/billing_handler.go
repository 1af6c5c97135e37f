package http

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/Peluchemoreno/esti-mate-billing/internal/domain/entity"
	"github.com/Peluchemoreno/esti-mate-billing/internal/domain/provider"
	"github.com/Peluchemoreno/esti-mate-billing/internal/middleware/auth"
	"github.com/Peluchemoreno/esti-mate-billing/internal/middleware/entitlement"
	"github.com/Peluchemoreno/esti-mate-billing/internal/usecase"
	apperrors "github.com/Peluchemoreno/esti-mate-billing/pkg/errors"
)

// IdempotencyKeyHeader carries an optional client token making retries safe.
const IdempotencyKeyHeader = "X-Idempotency-Key"

// SessionStarter starts processor sessions for an authenticated caller.
type SessionStarter interface {
	GetAccount(ctx context.Context, id usecase.Identity) (*entity.BillingAccount, error)
	CreateCheckoutSession(ctx context.Context, id usecase.Identity, planReference string) (*provider.Session, error)
	CreatePortalSession(ctx context.Context, id usecase.Identity) (*provider.Session, error)
}

type BillingHandler struct {
	logger      *zap.Logger
	sessions    SessionStarter
	idempotency *usecase.RequestIdempotency
}

func NewBillingHandler(logger *zap.Logger, sessions SessionStarter, idempotency *usecase.RequestIdempotency) *BillingHandler {
	return &BillingHandler{
		logger:      logger,
		sessions:    sessions,
		idempotency: idempotency,
	}
}

type CreateCheckoutRequest struct {
	PriceID string `json:"priceId" validate:"required_without=Plan,max=255"`
	Plan    string `json:"plan" validate:"required_without=PriceID,max=32"`
}

type SessionResponse struct {
	ID  string `json:"id,omitempty"`
	URL string `json:"url"`
}

type AccountSummary struct {
	AccountID          string     `json:"account_id"`
	Email              string     `json:"email"`
	Plan               string     `json:"plan"`
	Status             string     `json:"status"`
	CurrentPeriodStart *time.Time `json:"current_period_start,omitempty"`
	CurrentPeriodEnd   *time.Time `json:"current_period_end,omitempty"`
	TrialEnd           *time.Time `json:"trial_end,omitempty"`
	CancelAtPeriodEnd  bool       `json:"cancel_at_period_end"`
	HasCustomer        bool       `json:"has_customer"`
	HasSubscription    bool       `json:"has_subscription"`
	Entitlement        string     `json:"entitlement"`
}

func newAccountSummary(a *entity.BillingAccount) AccountSummary {
	return AccountSummary{
		AccountID:          a.AccountID.String(),
		Email:              a.Email,
		Plan:               string(a.Plan),
		Status:             string(a.Status),
		CurrentPeriodStart: a.CurrentPeriodStart,
		CurrentPeriodEnd:   a.CurrentPeriodEnd,
		TrialEnd:           a.TrialEnd,
		CancelAtPeriodEnd:  a.CancelAtPeriodEnd,
		HasCustomer:        a.HasCustomer(),
		HasSubscription:    a.HasSubscription(),
		Entitlement:        a.Entitlement().String(),
	}
}

func identityOf(user *auth.AuthUser) usecase.Identity {
	return usecase.Identity{AccountID: user.AccountID, Email: user.Email}
}

// CreateCheckout starts a subscription checkout for a price id or plan name.
func (h *BillingHandler) CreateCheckout(c echo.Context) error {
	user, err := auth.RequireAuth(c)
	if err != nil {
		return err
	}

	var req CreateCheckoutRequest
	if err := c.Bind(&req); err != nil {
		return apperrors.NewAppError(apperrors.ErrInvalidArgument, "Invalid request body", err)
	}
	if err := c.Validate(&req); err != nil {
		return apperrors.NewAppError(apperrors.ErrInvalidArgument, "priceId or plan is required", err)
	}

	reference := strings.TrimSpace(req.PriceID)
	if reference == "" {
		reference = strings.TrimSpace(req.Plan)
	}

	h.logger.Info("Creating checkout session",
		zap.String("account_id", user.AccountID.String()),
		zap.String("reference", reference))

	return h.respond(c, "checkout", user, func(ctx context.Context) (int, interface{}, error) {
		session, err := h.sessions.CreateCheckoutSession(ctx, identityOf(user), reference)
		if err != nil {
			return 0, nil, err
		}
		return http.StatusOK, SessionResponse{ID: session.ID, URL: session.URL}, nil
	})
}

// CreatePortal opens the processor billing portal for the caller.
func (h *BillingHandler) CreatePortal(c echo.Context) error {
	user, err := auth.RequireAuth(c)
	if err != nil {
		return err
	}

	return h.respond(c, "portal", user, func(ctx context.Context) (int, interface{}, error) {
		session, err := h.sessions.CreatePortalSession(ctx, identityOf(user))
		if err != nil {
			return 0, nil, err
		}
		return http.StatusOK, SessionResponse{URL: session.URL}, nil
	})
}

// GetMe returns the caller's billing record.
func (h *BillingHandler) GetMe(c echo.Context) error {
	user, err := auth.RequireAuth(c)
	if err != nil {
		return err
	}

	account, err := h.sessions.GetAccount(c.Request().Context(), identityOf(user))
	if err != nil {
		return toAppError(err)
	}
	return c.JSON(http.StatusOK, newAccountSummary(account))
}

// GetEntitlement is mounted behind entitlement.RequireTier; reaching it means
// the caller is entitled.
func (h *BillingHandler) GetEntitlement(c echo.Context) error {
	user, err := auth.RequireAuth(c)
	if err != nil {
		return err
	}

	account, ok := entitlement.AccountFromContext(c)
	if !ok {
		if account, err = h.sessions.GetAccount(c.Request().Context(), identityOf(user)); err != nil {
			return toAppError(err)
		}
	}
	return c.JSON(http.StatusOK, echo.Map{
		"entitled": true,
		"plan":     account.Plan,
		"status":   account.Status,
	})
}

// respond runs fn directly, or once per client token when the request carries
// an idempotency key. Replays return the stored status and body.
func (h *BillingHandler) respond(c echo.Context, operation string, user *auth.AuthUser, fn func(ctx context.Context) (int, interface{}, error)) error {
	ctx := c.Request().Context()

	token := strings.TrimSpace(c.Request().Header.Get(IdempotencyKeyHeader))
	if token == "" {
		status, body, err := fn(ctx)
		if err != nil {
			return toAppError(err)
		}
		return c.JSON(status, body)
	}

	key, err := h.idempotency.Key(operation, user.AccountID.String(), token)
	if err != nil {
		return apperrors.NewAppError(apperrors.ErrInvalidArgument, "Invalid "+IdempotencyKeyHeader, err)
	}

	result, err := h.idempotency.Do(ctx, operation, key, fn)
	if err != nil {
		return toAppError(err)
	}
	if result.Replayed {
		c.Response().Header().Set("Idempotent-Replayed", "true")
	}
	return c.JSONBlob(result.StatusCode, result.Body)
}
