package usecase

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/Peluchemoreno/esti-mate-billing/internal/domain/entity"
	domainErrors "github.com/Peluchemoreno/esti-mate-billing/internal/domain/errors"
	"github.com/Peluchemoreno/esti-mate-billing/internal/domain/provider"
	"github.com/Peluchemoreno/esti-mate-billing/internal/domain/repository"
	"github.com/Peluchemoreno/esti-mate-billing/internal/metrics"
)

// Identity is the authenticated caller as vouched for by the account service.
type Identity struct {
	AccountID uuid.UUID
	Email     string
}

// SessionService starts processor-hosted checkout and portal sessions.
type SessionService struct {
	accounts    repository.BillingAccountRepository
	events      repository.AccountEventPublisher
	provider    provider.BillingProvider
	plans       *entity.PlanTable
	frontendURL string
	logger      *zap.Logger
	metrics     metrics.BillingMetrics
	now         func() time.Time
}

func NewSessionService(
	accounts repository.BillingAccountRepository,
	events repository.AccountEventPublisher,
	billingProvider provider.BillingProvider,
	plans *entity.PlanTable,
	frontendURL string,
	logger *zap.Logger,
	m metrics.BillingMetrics,
) *SessionService {
	return &SessionService{
		accounts:    accounts,
		events:      events,
		provider:    billingProvider,
		plans:       plans,
		frontendURL: strings.TrimRight(frontendURL, "/"),
		logger:      logger,
		metrics:     m,
		now:         time.Now,
	}
}

// CheckoutIdempotencyKey is stable for one account, price and UTC day, so
// retries on the same day resolve to the same processor session.
func CheckoutIdempotencyKey(accountID uuid.UUID, priceID string, at time.Time) string {
	return fmt.Sprintf("checkout:%s:%s:%s", accountID, priceID, at.UTC().Format("20060102"))
}

// GetAccount returns the caller's billing record, creating the default record
// on first contact when the identity carries an email.
func (s *SessionService) GetAccount(ctx context.Context, id Identity) (*entity.BillingAccount, error) {
	account, err := s.accounts.GetByAccountID(ctx, id.AccountID)
	if err != nil {
		return nil, err
	}
	if account != nil {
		return account, nil
	}
	if id.Email == "" {
		return nil, domainErrors.ErrUnknownAccount
	}
	return s.accounts.EnsureAccount(ctx, id.AccountID, id.Email)
}

// CreateCheckoutSession opens a subscription checkout for planReference,
// which may be a configured price id or a plan name.
func (s *SessionService) CreateCheckoutSession(ctx context.Context, id Identity, planReference string) (*provider.Session, error) {
	priceID, plan, ok := s.plans.ResolveReference(planReference)
	if !ok {
		s.metrics.IncSession("checkout", "unknown_plan")
		return nil, fmt.Errorf("%w: %q", domainErrors.ErrUnknownPlanReference, planReference)
	}

	account, err := s.GetAccount(ctx, id)
	if err != nil {
		s.metrics.IncSession("checkout", "unknown_account")
		return nil, err
	}

	customerID, err := s.ensureCustomer(ctx, account)
	if err != nil {
		s.metrics.IncSession("checkout", "failed")
		return nil, err
	}

	session, err := s.provider.CreateCheckoutSession(ctx, &provider.CheckoutSessionRequest{
		AccountID:      account.AccountID.String(),
		CustomerID:     customerID,
		PriceID:        priceID,
		SuccessURL:     s.frontendURL + "/billing/success?session_id={CHECKOUT_SESSION_ID}",
		CancelURL:      s.frontendURL + "/billing/cancelled",
		IdempotencyKey: CheckoutIdempotencyKey(account.AccountID, priceID, s.now()),
	})
	if err != nil {
		s.metrics.IncSession("checkout", "failed")
		return nil, err
	}

	s.logger.Info("Checkout session started",
		zap.String("provider", s.provider.GetProviderName()),
		zap.String("account_id", account.AccountID.String()),
		zap.String("plan", string(plan)),
		zap.String("session_id", session.ID))
	s.metrics.IncSession("checkout", "created")
	return session, nil
}

// CreatePortalSession opens the billing portal for an account that has
// completed a checkout before.
func (s *SessionService) CreatePortalSession(ctx context.Context, id Identity) (*provider.Session, error) {
	account, err := s.accounts.GetByAccountID(ctx, id.AccountID)
	if err != nil {
		s.metrics.IncSession("portal", "failed")
		return nil, err
	}
	if account == nil {
		s.metrics.IncSession("portal", "unknown_account")
		return nil, domainErrors.ErrUnknownAccount
	}
	if !account.HasCustomer() {
		s.metrics.IncSession("portal", "no_customer")
		return nil, domainErrors.ErrNoBillingLinkage
	}

	session, err := s.provider.CreatePortalSession(ctx, &provider.PortalSessionRequest{
		CustomerID: *account.ExternalCustomerRef,
		ReturnURL:  s.frontendURL + "/dashboard/products",
	})
	if err != nil {
		s.metrics.IncSession("portal", "failed")
		return nil, err
	}
	s.metrics.IncSession("portal", "created")
	return session, nil
}

// ensureCustomer returns the linked customer, creating one on first checkout.
// The processor idempotency key collapses concurrent creations for the same
// account into one customer, and the conditional link keeps the first stored
// reference.
func (s *SessionService) ensureCustomer(ctx context.Context, account *entity.BillingAccount) (string, error) {
	if account.HasCustomer() {
		return *account.ExternalCustomerRef, nil
	}

	created, err := s.provider.CreateCustomer(ctx, &provider.CreateCustomerRequest{
		AccountID:      account.AccountID.String(),
		Email:          account.Email,
		IdempotencyKey: "customer:" + account.AccountID.String(),
	})
	if err != nil {
		return "", err
	}

	linked, err := s.accounts.LinkCustomer(ctx, account.AccountID, created)
	if err != nil {
		return "", err
	}
	if linked != created {
		s.logger.Warn("Customer created concurrently; using stored link",
			zap.String("account_id", account.AccountID.String()),
			zap.String("created_customer_id", created),
			zap.String("linked_customer_id", linked))
		return linked, nil
	}

	updated := account.Clone()
	updated.ExternalCustomerRef = &linked
	if err := s.events.PublishAccountUpdated(ctx, updated, "customer.linked"); err != nil {
		s.logger.Warn("Failed to publish account update", zap.String("account_id", account.AccountID.String()), zap.Error(err))
	}
	return linked, nil
}
