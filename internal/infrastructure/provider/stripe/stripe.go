package stripe

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	stripeapi "github.com/stripe/stripe-go/v79"
	"github.com/stripe/stripe-go/v79/client"
	"go.uber.org/zap"

	domainErrors "github.com/Peluchemoreno/esti-mate-billing/internal/domain/errors"
	"github.com/Peluchemoreno/esti-mate-billing/internal/domain/provider"
)

// Options configures the Stripe API client.
type Options struct {
	SecretKey         string
	Timeout           time.Duration
	MaxNetworkRetries int64
	// BaseURL overrides the API endpoint; used by tests.
	BaseURL string
}

// StripeProvider implements provider.BillingProvider against the Stripe API.
type StripeProvider struct {
	api     *client.API
	timeout time.Duration
	logger  *zap.Logger
}

// NewStripeProvider creates a provider with its own backend so calls are
// bounded by the configured timeout and never touch the global stripe.Key.
func NewStripeProvider(opts Options, logger *zap.Logger) *StripeProvider {
	cfg := &stripeapi.BackendConfig{
		HTTPClient:        &http.Client{Timeout: opts.Timeout},
		LeveledLogger:     logger.Named("stripe").Sugar(),
		MaxNetworkRetries: stripeapi.Int64(opts.MaxNetworkRetries),
	}
	if opts.BaseURL != "" {
		cfg.URL = stripeapi.String(opts.BaseURL)
	}

	backend := stripeapi.GetBackendWithConfig(stripeapi.APIBackend, cfg)
	api := &client.API{}
	api.Init(opts.SecretKey, &stripeapi.Backends{
		API:     backend,
		Connect: backend,
		Uploads: backend,
	})

	return &StripeProvider{
		api:     api,
		timeout: opts.Timeout,
		logger:  logger,
	}
}

// GetProviderName returns the provider name
func (s *StripeProvider) GetProviderName() string {
	return "stripe"
}

func (s *StripeProvider) CreateCustomer(ctx context.Context, req *provider.CreateCustomerRequest) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	params := &stripeapi.CustomerParams{
		Email: stripeapi.String(req.Email),
	}
	params.AddMetadata(metadataAccountKey, req.AccountID)
	params.Context = ctx
	if req.IdempotencyKey != "" {
		params.SetIdempotencyKey(req.IdempotencyKey)
	}

	cus, err := s.api.Customers.New(params)
	if err != nil {
		return "", s.classify("create customer", err, zap.String("account_id", req.AccountID))
	}

	s.logger.Info("Stripe customer created",
		zap.String("customer_id", cus.ID),
		zap.String("account_id", req.AccountID))
	return cus.ID, nil
}

func (s *StripeProvider) CreateCheckoutSession(ctx context.Context, req *provider.CheckoutSessionRequest) (*provider.Session, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	params := &stripeapi.CheckoutSessionParams{
		Mode:     stripeapi.String(string(stripeapi.CheckoutSessionModeSubscription)),
		Customer: stripeapi.String(req.CustomerID),
		LineItems: []*stripeapi.CheckoutSessionLineItemParams{
			{
				Price:    stripeapi.String(req.PriceID),
				Quantity: stripeapi.Int64(1),
			},
		},
		AllowPromotionCodes: stripeapi.Bool(true),
		SuccessURL:          stripeapi.String(req.SuccessURL),
		CancelURL:           stripeapi.String(req.CancelURL),
		ClientReferenceID:   stripeapi.String(req.AccountID),
	}
	params.AddMetadata(metadataAccountKey, req.AccountID)
	params.Context = ctx
	if req.IdempotencyKey != "" {
		params.SetIdempotencyKey(req.IdempotencyKey)
	}

	cs, err := s.api.CheckoutSessions.New(params)
	if err != nil {
		return nil, s.classify("create checkout session", err,
			zap.String("account_id", req.AccountID),
			zap.String("price_id", req.PriceID))
	}

	s.logger.Info("Checkout session created",
		zap.String("session_id", cs.ID),
		zap.String("account_id", req.AccountID),
		zap.String("price_id", req.PriceID))
	return &provider.Session{ID: cs.ID, URL: cs.URL}, nil
}

func (s *StripeProvider) CreatePortalSession(ctx context.Context, req *provider.PortalSessionRequest) (*provider.Session, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	params := &stripeapi.BillingPortalSessionParams{
		Customer:  stripeapi.String(req.CustomerID),
		ReturnURL: stripeapi.String(req.ReturnURL),
	}
	params.Context = ctx

	ps, err := s.api.BillingPortalSessions.New(params)
	if err != nil {
		return nil, s.classify("create portal session", err, zap.String("customer_id", req.CustomerID))
	}

	s.logger.Info("Portal session created",
		zap.String("portal_session_id", ps.ID),
		zap.String("customer_id", req.CustomerID))
	return &provider.Session{ID: ps.ID, URL: ps.URL}, nil
}

// classify maps SDK errors onto the domain: 5xx, 429, timeouts and transport
// failures are retryable upstream outages; other API errors are rejections.
func (s *StripeProvider) classify(op string, err error, fields ...zap.Field) error {
	fields = append(fields, zap.Error(err))

	var stripeErr *stripeapi.Error
	if errors.As(err, &stripeErr) {
		fields = append(fields,
			zap.Int("http_status", stripeErr.HTTPStatusCode),
			zap.String("stripe_code", string(stripeErr.Code)),
			zap.String("request_id", stripeErr.RequestID))

		if stripeErr.HTTPStatusCode >= http.StatusInternalServerError ||
			stripeErr.HTTPStatusCode == http.StatusTooManyRequests {
			s.logger.Warn("Stripe unavailable: "+op, fields...)
			return fmt.Errorf("stripe: %s: %w: %v", op, domainErrors.ErrUpstreamUnavailable, err)
		}
		if stripeErr.HTTPStatusCode != 0 {
			s.logger.Error("Stripe rejected request: "+op, fields...)
			return fmt.Errorf("stripe: %s: %w: %s", op, domainErrors.ErrProcessorRejected, stripeErr.Msg)
		}
	}

	s.logger.Warn("Stripe call failed: "+op, fields...)
	return fmt.Errorf("stripe: %s: %w: %v", op, domainErrors.ErrUpstreamUnavailable, err)
}
