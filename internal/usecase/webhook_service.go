package usecase

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/Peluchemoreno/esti-mate-billing/internal/domain/entity"
	domainErrors "github.com/Peluchemoreno/esti-mate-billing/internal/domain/errors"
	"github.com/Peluchemoreno/esti-mate-billing/internal/domain/event"
	"github.com/Peluchemoreno/esti-mate-billing/internal/domain/provider"
	"github.com/Peluchemoreno/esti-mate-billing/internal/domain/repository"
	"github.com/Peluchemoreno/esti-mate-billing/internal/metrics"
)

// WebhookOutcome reports what happened to a delivered event. Every outcome
// is acknowledged to the processor; only errors cause a redelivery.
type WebhookOutcome string

const (
	OutcomeProcessed WebhookOutcome = "processed"
	OutcomeDuplicate WebhookOutcome = "duplicate"
	OutcomeIgnored   WebhookOutcome = "ignored"
	OutcomeUnlinked  WebhookOutcome = "unlinked"
	OutcomeConflict  WebhookOutcome = "conflict"
)

// WebhookService verifies, deduplicates and reconciles processor events.
type WebhookService struct {
	verifier provider.WebhookVerifier
	ledger   repository.EventLedgerRepository
	accounts repository.BillingAccountRepository
	events   repository.AccountEventPublisher
	plans    *entity.PlanTable
	logger   *zap.Logger
	metrics  metrics.BillingMetrics
}

func NewWebhookService(
	verifier provider.WebhookVerifier,
	ledger repository.EventLedgerRepository,
	accounts repository.BillingAccountRepository,
	events repository.AccountEventPublisher,
	plans *entity.PlanTable,
	logger *zap.Logger,
	m metrics.BillingMetrics,
) *WebhookService {
	return &WebhookService{
		verifier: verifier,
		ledger:   ledger,
		accounts: accounts,
		events:   events,
		plans:    plans,
		logger:   logger,
		metrics:  m,
	}
}

// Process handles one raw delivery: signature first, then the ledger claim,
// then reconciliation. Nothing is written for a payload that fails
// verification.
func (s *WebhookService) Process(ctx context.Context, payload []byte, signatureHeader string) (WebhookOutcome, error) {
	ev, err := s.verifier.Verify(payload, signatureHeader)
	if err != nil {
		if errors.Is(err, domainErrors.ErrInvalidSignature) {
			s.metrics.IncSignatureFailure()
			s.logger.Warn("Rejected webhook with invalid signature",
				zap.Bool("security", true),
				zap.Int("payload_bytes", len(payload)),
				zap.Error(err))
		} else {
			s.logger.Warn("Rejected malformed webhook", zap.Error(err))
		}
		return "", err
	}
	return s.HandleEvent(ctx, ev)
}

// HandleEvent claims and reconciles an already verified event.
func (s *WebhookService) HandleEvent(ctx context.Context, ev event.Event) (WebhookOutcome, error) {
	log := s.logger.With(
		zap.String("event_id", ev.ID()),
		zap.String("event_type", ev.Type()))
	category := string(ev.Category())

	claim, err := s.ledger.Claim(ctx, ev.ID(), ev.Type())
	if err != nil {
		s.metrics.IncWebhookEvent(category, "failed")
		return "", err
	}
	if claim == repository.ClaimAlreadyClaimed {
		log.Info("Duplicate webhook event skipped")
		s.metrics.IncWebhookEvent(category, string(OutcomeDuplicate))
		return OutcomeDuplicate, nil
	}

	outcome, err := s.dispatch(ctx, log, ev)
	if err != nil {
		// Give the redelivery a chance; a crash before this point loses the event.
		if relErr := s.ledger.Release(context.WithoutCancel(ctx), ev.ID()); relErr != nil {
			log.Error("Failed to release event claim", zap.Error(relErr))
		}
		s.metrics.IncWebhookEvent(category, "failed")
		return "", err
	}

	s.metrics.IncWebhookEvent(category, string(outcome))
	log.Info("Webhook event handled", zap.String("outcome", string(outcome)))
	return outcome, nil
}

func (s *WebhookService) dispatch(ctx context.Context, log *zap.Logger, ev event.Event) (WebhookOutcome, error) {
	switch e := ev.(type) {
	case event.CheckoutCompleted:
		return s.handleCheckoutCompleted(ctx, log, e)

	case event.SubscriptionChanged:
		if _, known := NormalizeStatus(e.Status); !known {
			log.Warn("Unrecognized subscription status treated as active", zap.String("status", e.Status))
		}
		if _, mapped := s.plans.PlanForPrice(e.PriceID); !mapped && e.PriceID != "" {
			log.Warn("Subscription price not in plan table; keeping current plan", zap.String("price_id", e.PriceID))
		}
		return s.updateByCustomer(ctx, log, e.CustomerID, ev.Type(), func(cur *entity.BillingAccount) *entity.BillingAccount {
			return ApplySubscriptionChanged(cur, e, s.plans)
		})

	case event.InvoicePaid:
		return s.updateByCustomer(ctx, log, e.CustomerID, ev.Type(), ApplyInvoicePaid)

	case event.InvoicePaymentFailed:
		return s.updateByCustomer(ctx, log, e.CustomerID, ev.Type(), ApplyInvoicePaymentFailed)

	case event.Unrecognized:
		log.Debug("Ignoring unhandled event type")
		return OutcomeIgnored, nil
	}

	return "", fmt.Errorf("%w: %T", domainErrors.ErrUnrecognizedEventCategory, ev)
}

func (s *WebhookService) updateByCustomer(ctx context.Context, log *zap.Logger, customerID, reason string, m repository.Mutation) (WebhookOutcome, error) {
	account, changed, err := s.accounts.UpdateByCustomerRef(ctx, customerID, m)
	if err != nil {
		if errors.Is(err, domainErrors.ErrUnlinkedAccount) {
			log.Info("No account linked to customer", zap.String("customer_id", customerID))
			return OutcomeUnlinked, nil
		}
		return "", err
	}
	s.publish(ctx, log, account, changed, reason)
	return OutcomeProcessed, nil
}

// handleCheckoutCompleted finds the account by explicit reference, then by
// email, and provisions a minimal account keyed by email as a last resort.
func (s *WebhookService) handleCheckoutCompleted(ctx context.Context, log *zap.Logger, e event.CheckoutCompleted) (WebhookOutcome, error) {
	target, err := s.resolveCheckoutAccount(ctx, log, e)
	if err != nil {
		return "", err
	}
	if target == nil {
		log.Warn("Checkout completed without account reference or email", zap.String("session_id", e.SessionID))
		return OutcomeIgnored, nil
	}

	account, changed, err := s.accounts.UpdateByAccountID(ctx, target.AccountID, func(cur *entity.BillingAccount) *entity.BillingAccount {
		return ApplyCheckoutCompleted(cur, e)
	})
	if errors.Is(err, domainErrors.ErrCustomerRefConflict) {
		// a redelivery would fail the same way; leave both records untouched
		fields := []zap.Field{
			zap.String("account_id", target.AccountID.String()),
			zap.String("customer_id", e.CustomerID),
			zap.String("session_id", e.SessionID),
		}
		if holder, _ := s.accounts.GetByCustomerRef(ctx, e.CustomerID); holder != nil {
			fields = append(fields, zap.String("linked_account_id", holder.AccountID.String()))
		}
		log.Warn("Checkout customer is linked to another account", fields...)
		return OutcomeConflict, nil
	}
	if err != nil {
		return "", err
	}
	s.publish(ctx, log, account, changed, e.Type())
	return OutcomeProcessed, nil
}

func (s *WebhookService) resolveCheckoutAccount(ctx context.Context, log *zap.Logger, e event.CheckoutCompleted) (*entity.BillingAccount, error) {
	if id, err := uuid.Parse(e.AccountRef); err == nil {
		account, err := s.accounts.GetByAccountID(ctx, id)
		if err != nil {
			return nil, err
		}
		if account != nil {
			return account, nil
		}
		log.Warn("Checkout account reference has no billing record", zap.String("account_ref", e.AccountRef))
	}

	if e.Email == "" {
		return nil, nil
	}

	account, err := s.accounts.GetByEmail(ctx, e.Email)
	if err != nil || account != nil {
		return account, err
	}

	account, err = s.accounts.EnsureAccount(ctx, uuid.New(), e.Email)
	if errors.Is(err, domainErrors.ErrUnknownAccount) {
		// lost a provisioning race for the same email
		return s.accounts.GetByEmail(ctx, e.Email)
	}
	if err == nil {
		log.Info("Provisioned account from checkout", zap.String("account_id", account.AccountID.String()))
	}
	return account, err
}

func (s *WebhookService) publish(ctx context.Context, log *zap.Logger, account *entity.BillingAccount, changed bool, reason string) {
	if !changed {
		return
	}
	if err := s.events.PublishAccountUpdated(ctx, account, reason); err != nil {
		log.Warn("Failed to publish account update", zap.String("account_id", account.AccountID.String()), zap.Error(err))
	}
}
