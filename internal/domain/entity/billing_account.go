package entity

import (
	"time"

	"github.com/google/uuid"
)

// Plan is the internal tier an account is billed at.
type Plan string

const (
	PlanFree    Plan = "free"
	PlanBasic   Plan = "basic"
	PlanTest    Plan = "test"
	PlanMedium  Plan = "medium"
	PlanPremium Plan = "premium"
)

// Valid reports whether p is one of the known tiers.
func (p Plan) Valid() bool {
	switch p {
	case PlanFree, PlanBasic, PlanTest, PlanMedium, PlanPremium:
		return true
	}
	return false
}

// Status is the normalized subscription status of an account.
type Status string

const (
	StatusDisabled Status = "disabled"
	StatusTrialing Status = "trialing"
	StatusActive   Status = "active"
	StatusPastDue  Status = "past_due"
	StatusUnpaid   Status = "unpaid"
	StatusCanceled Status = "canceled"
)

// BillingAccount is the billing view of one application account.
type BillingAccount struct {
	AccountID               uuid.UUID
	Email                   string
	ExternalCustomerRef     *string
	ExternalSubscriptionRef *string
	Plan                    Plan
	Status                  Status
	PriceID                 *string
	ProductID               *string
	CurrentPeriodStart      *time.Time
	CurrentPeriodEnd        *time.Time
	TrialEnd                *time.Time
	CancelAtPeriodEnd       bool
	CreatedAt               time.Time
	UpdatedAt               time.Time
}

// NewBillingAccount returns the record every account starts with.
func NewBillingAccount(accountID uuid.UUID, email string) *BillingAccount {
	return &BillingAccount{
		AccountID: accountID,
		Email:     email,
		Plan:      PlanFree,
		Status:    StatusDisabled,
	}
}

// HasCustomer reports whether the account is linked to a processor customer.
func (a *BillingAccount) HasCustomer() bool {
	return a.ExternalCustomerRef != nil && *a.ExternalCustomerRef != ""
}

// HasSubscription reports whether the account is linked to a processor subscription.
func (a *BillingAccount) HasSubscription() bool {
	return a.ExternalSubscriptionRef != nil && *a.ExternalSubscriptionRef != ""
}

// InGoodStanding is true for statuses that grant access to paid features.
func (a *BillingAccount) InGoodStanding() bool {
	return a.Status == StatusActive || a.Status == StatusTrialing
}

// Entitlement is the outcome of checking an account against a set of tiers.
type Entitlement int

const (
	Entitled Entitlement = iota
	// NotPaying: status not in good standing or no subscription on file.
	NotPaying
	// WrongPlan: paying, but for a tier outside the allowed set.
	WrongPlan
)

func (e Entitlement) String() string {
	switch e {
	case Entitled:
		return "entitled"
	case NotPaying:
		return "not_paying"
	case WrongPlan:
		return "wrong_plan"
	}
	return "unknown"
}

// Entitlement checks the account against the allowed plans. An empty set
// allows any paid plan.
func (a *BillingAccount) Entitlement(allowed ...Plan) Entitlement {
	if !a.InGoodStanding() {
		return NotPaying
	}
	if len(allowed) > 0 {
		ok := false
		for _, p := range allowed {
			if p == a.Plan {
				ok = true
				break
			}
		}
		if !ok {
			return WrongPlan
		}
	}
	if !a.HasSubscription() {
		return NotPaying
	}
	return Entitled
}

// Clone returns a deep copy so pure transitions never alias the caller's record.
func (a *BillingAccount) Clone() *BillingAccount {
	if a == nil {
		return nil
	}
	cp := *a
	cp.ExternalCustomerRef = cloneString(a.ExternalCustomerRef)
	cp.ExternalSubscriptionRef = cloneString(a.ExternalSubscriptionRef)
	cp.PriceID = cloneString(a.PriceID)
	cp.ProductID = cloneString(a.ProductID)
	cp.CurrentPeriodStart = cloneTime(a.CurrentPeriodStart)
	cp.CurrentPeriodEnd = cloneTime(a.CurrentPeriodEnd)
	cp.TrialEnd = cloneTime(a.TrialEnd)
	return &cp
}

func cloneString(s *string) *string {
	if s == nil {
		return nil
	}
	v := *s
	return &v
}

func cloneTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	v := *t
	return &v
}

// SameState compares the billing fields of two records, ignoring timestamps
// maintained by the store.
func (a *BillingAccount) SameState(b *BillingAccount) bool {
	if a == nil || b == nil {
		return a == b
	}
	return a.AccountID == b.AccountID &&
		a.Email == b.Email &&
		a.Plan == b.Plan &&
		a.Status == b.Status &&
		a.CancelAtPeriodEnd == b.CancelAtPeriodEnd &&
		equalString(a.ExternalCustomerRef, b.ExternalCustomerRef) &&
		equalString(a.ExternalSubscriptionRef, b.ExternalSubscriptionRef) &&
		equalString(a.PriceID, b.PriceID) &&
		equalString(a.ProductID, b.ProductID) &&
		equalTime(a.CurrentPeriodStart, b.CurrentPeriodStart) &&
		equalTime(a.CurrentPeriodEnd, b.CurrentPeriodEnd) &&
		equalTime(a.TrialEnd, b.TrialEnd)
}

func equalString(a, b *string) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}

func equalTime(a, b *time.Time) bool {
	if a == nil || b == nil {
		return a == b
	}
	return a.Equal(*b)
}
