package provider

import (
	"context"

	"github.com/Peluchemoreno/esti-mate-billing/internal/domain/event"
)

// BillingProvider defines the calls the service makes to the payment processor.
// Implementations must bound every call by a timeout and report timeouts,
// network failures and 5xx/429 responses as ErrUpstreamUnavailable.
type BillingProvider interface {
	// CreateCustomer registers a customer and returns its processor id
	CreateCustomer(ctx context.Context, req *CreateCustomerRequest) (string, error)

	// CreateCheckoutSession opens a hosted subscription checkout
	CreateCheckoutSession(ctx context.Context, req *CheckoutSessionRequest) (*Session, error)

	// CreatePortalSession opens the self-service billing portal
	CreatePortalSession(ctx context.Context, req *PortalSessionRequest) (*Session, error)

	// GetProviderName returns the provider name
	GetProviderName() string
}

// WebhookVerifier authenticates a raw notification and decodes it.
type WebhookVerifier interface {
	Verify(payload []byte, signatureHeader string) (event.Event, error)
}

// CreateCustomerRequest represents a provider-agnostic customer creation request
type CreateCustomerRequest struct {
	AccountID      string `json:"account_id"`
	Email          string `json:"email"`
	IdempotencyKey string `json:"-"`
}

// CheckoutSessionRequest represents a subscription checkout request
type CheckoutSessionRequest struct {
	AccountID      string `json:"account_id"`
	CustomerID     string `json:"customer_id"`
	PriceID        string `json:"price_id"`
	SuccessURL     string `json:"success_url"`
	CancelURL      string `json:"cancel_url"`
	IdempotencyKey string `json:"-"`
}

// PortalSessionRequest represents a billing portal request
type PortalSessionRequest struct {
	CustomerID string `json:"customer_id"`
	ReturnURL  string `json:"return_url"`
}

// Session is an opaque redirect handle issued by the processor.
type Session struct {
	ID  string `json:"id,omitempty"`
	URL string `json:"url"`
}
