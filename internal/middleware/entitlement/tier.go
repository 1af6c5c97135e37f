package entitlement

import (
	"context"
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/Peluchemoreno/esti-mate-billing/internal/domain/entity"
	"github.com/Peluchemoreno/esti-mate-billing/internal/middleware/auth"
)

// AccountReader loads billing records; nil means the account has none.
type AccountReader interface {
	GetByAccountID(ctx context.Context, accountID uuid.UUID) (*entity.BillingAccount, error)
}

const accountContextKey = "billing_account"

// RequireTier lets a request through only for accounts in good standing with
// a subscription on one of the allowed plans. No plans means any paid plan.
func RequireTier(reader AccountReader, logger *zap.Logger, allowed ...entity.Plan) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			user, err := auth.GetUserFromContext(c)
			if err != nil {
				return c.JSON(http.StatusUnauthorized, echo.Map{
					"error": "Authentication required",
					"code":  "AUTH_REQUIRED",
				})
			}

			account, err := reader.GetByAccountID(c.Request().Context(), user.AccountID)
			if err != nil {
				return err
			}
			if account == nil {
				return c.JSON(http.StatusPaymentRequired, echo.Map{
					"error": "Active subscription required",
					"code":  "SUBSCRIPTION_REQUIRED",
				})
			}

			switch account.Entitlement(allowed...) {
			case entity.NotPaying:
				return c.JSON(http.StatusPaymentRequired, echo.Map{
					"error":  "Active subscription required",
					"code":   "SUBSCRIPTION_REQUIRED",
					"status": account.Status,
				})
			case entity.WrongPlan:
				logger.Debug("Plan not allowed for route",
					zap.String("account_id", user.AccountID.String()),
					zap.String("plan", string(account.Plan)),
					zap.String("path", c.Path()))
				return c.JSON(http.StatusForbidden, echo.Map{
					"error": "Current plan does not include this feature",
					"code":  "PLAN_NOT_ALLOWED",
					"plan":  account.Plan,
				})
			}

			c.Set(accountContextKey, account)
			return next(c)
		}
	}
}

// AccountFromContext returns the record loaded by RequireTier.
func AccountFromContext(c echo.Context) (*entity.BillingAccount, bool) {
	account, ok := c.Get(accountContextKey).(*entity.BillingAccount)
	return account, ok
}
