// Package event defines the verified processor notifications the billing
// service reacts to. The set of variants is closed; anything else decodes to
// Unrecognized.
package event

import "time"

// Category groups notifications by how they are reconciled.
type Category string

const (
	CategoryCheckoutCompleted    Category = "checkout_completed"
	CategorySubscriptionChanged  Category = "subscription_changed"
	CategoryInvoicePaid          Category = "invoice_paid"
	CategoryInvoicePaymentFailed Category = "invoice_payment_failed"
	CategoryUnrecognized         Category = "unrecognized"
)

// Event is a verified, decoded processor notification.
type Event interface {
	// ID is the processor-assigned event id used for deduplication.
	ID() string
	// Type is the raw processor event type, e.g. "invoice.paid".
	Type() string
	Category() Category
	isEvent()
}

// Header carries the fields common to every variant.
type Header struct {
	EventID   string
	EventType string
	Created   time.Time
}

func (h Header) ID() string   { return h.EventID }
func (h Header) Type() string { return h.EventType }

// CheckoutCompleted: a customer finished a hosted checkout.
type CheckoutCompleted struct {
	Header
	SessionID      string
	AccountRef     string // metadata.appUserId or client_reference_id
	Email          string // customer_details.email
	CustomerID     string
	SubscriptionID string
}

func (CheckoutCompleted) Category() Category { return CategoryCheckoutCompleted }
func (CheckoutCompleted) isEvent()           {}

// SubscriptionChange distinguishes created, updated and deleted notifications.
type SubscriptionChange string

const (
	SubscriptionCreated SubscriptionChange = "created"
	SubscriptionUpdated SubscriptionChange = "updated"
	SubscriptionDeleted SubscriptionChange = "deleted"
)

// SubscriptionChanged carries the full subscription snapshot.
type SubscriptionChanged struct {
	Header
	Change             SubscriptionChange
	SubscriptionID     string
	CustomerID         string
	Status             string // raw processor status, normalized by the reconciler
	PriceID            string // first item, empty if none
	ProductID          string
	CurrentPeriodStart *time.Time
	CurrentPeriodEnd   *time.Time
	TrialEnd           *time.Time
	CancelAtPeriodEnd  bool
}

func (SubscriptionChanged) Category() Category { return CategorySubscriptionChanged }
func (SubscriptionChanged) isEvent()           {}

type InvoicePaid struct {
	Header
	InvoiceID  string
	CustomerID string
}

func (InvoicePaid) Category() Category { return CategoryInvoicePaid }
func (InvoicePaid) isEvent()           {}

type InvoicePaymentFailed struct {
	Header
	InvoiceID  string
	CustomerID string
}

func (InvoicePaymentFailed) Category() Category { return CategoryInvoicePaymentFailed }
func (InvoicePaymentFailed) isEvent()           {}

// Unrecognized is any verified event type the service does not act on.
type Unrecognized struct {
	Header
}

func (Unrecognized) Category() Category { return CategoryUnrecognized }
func (Unrecognized) isEvent()           {}
