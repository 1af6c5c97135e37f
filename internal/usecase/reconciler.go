package usecase

import (
	"strings"

	"github.com/Peluchemoreno/esti-mate-billing/internal/domain/entity"
	"github.com/Peluchemoreno/esti-mate-billing/internal/domain/event"
)

// The reconciliation functions below are pure: they derive the next record
// from the current one and a decoded event. Applying the same event twice
// yields the same record.

// NormalizeStatus maps a processor subscription status onto the internal set.
// Statuses with their own meaning pass through; everything else (active,
// incomplete, incomplete_expired, paused, unknown values) becomes active. The
// second return is false when the raw value was not one the service knows.
func NormalizeStatus(raw string) (entity.Status, bool) {
	switch entity.Status(strings.ToLower(strings.TrimSpace(raw))) {
	case entity.StatusPastDue:
		return entity.StatusPastDue, true
	case entity.StatusUnpaid:
		return entity.StatusUnpaid, true
	case entity.StatusCanceled:
		return entity.StatusCanceled, true
	case entity.StatusTrialing:
		return entity.StatusTrialing, true
	case entity.StatusActive:
		return entity.StatusActive, true
	}
	return entity.StatusActive, false
}

// ApplyCheckoutCompleted links the account to the processor customer and,
// when the checkout created one, the subscription.
func ApplyCheckoutCompleted(current *entity.BillingAccount, ev event.CheckoutCompleted) *entity.BillingAccount {
	next := current.Clone()
	if ev.CustomerID != "" {
		next.ExternalCustomerRef = stringRef(ev.CustomerID)
	}
	if ev.SubscriptionID != "" {
		next.ExternalSubscriptionRef = stringRef(ev.SubscriptionID)
	}
	return next
}

// ApplySubscriptionChanged overwrites the subscription snapshot. An unmapped
// price keeps the current plan while status and periods still update.
func ApplySubscriptionChanged(current *entity.BillingAccount, ev event.SubscriptionChanged, plans *entity.PlanTable) *entity.BillingAccount {
	next := current.Clone()

	if plan, ok := plans.PlanForPrice(ev.PriceID); ok {
		next.Plan = plan
	}
	next.Status, _ = NormalizeStatus(ev.Status)

	if ev.SubscriptionID != "" {
		next.ExternalSubscriptionRef = stringRef(ev.SubscriptionID)
	}
	// an event without items keeps the last known price
	if ev.PriceID != "" {
		next.PriceID = stringRef(ev.PriceID)
		next.ProductID = optionalRef(ev.ProductID)
	}
	next.CurrentPeriodStart = copyTime(ev.CurrentPeriodStart)
	next.CurrentPeriodEnd = copyTime(ev.CurrentPeriodEnd)
	next.TrialEnd = copyTime(ev.TrialEnd)
	next.CancelAtPeriodEnd = ev.CancelAtPeriodEnd
	return next
}

// ApplyInvoicePaid marks the account active.
func ApplyInvoicePaid(current *entity.BillingAccount) *entity.BillingAccount {
	next := current.Clone()
	if next.Status != entity.StatusActive {
		next.Status = entity.StatusActive
	}
	return next
}

// ApplyInvoicePaymentFailed marks the account past due.
func ApplyInvoicePaymentFailed(current *entity.BillingAccount) *entity.BillingAccount {
	next := current.Clone()
	next.Status = entity.StatusPastDue
	return next
}
