package stripe

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	stripeapi "github.com/stripe/stripe-go/v79"

	"github.com/Peluchemoreno/esti-mate-billing/internal/domain/event"
	domainErrors "github.com/Peluchemoreno/esti-mate-billing/internal/domain/errors"
)

// metadataAccountKey links Stripe objects back to the application account.
const metadataAccountKey = "appUserId"

// DecodeEvent converts a verified Stripe event into the billing event union.
func DecodeEvent(ev *stripeapi.Event) (event.Event, error) {
	header := event.Header{
		EventID:   ev.ID,
		EventType: string(ev.Type),
		Created:   time.Unix(ev.Created, 0).UTC(),
	}
	if ev.ID == "" {
		return nil, fmt.Errorf("%w: event without id", domainErrors.ErrMalformedEvent)
	}

	switch ev.Type {
	case stripeapi.EventTypeCheckoutSessionCompleted:
		var s stripeapi.CheckoutSession
		if err := unmarshalObject(ev, &s); err != nil {
			return nil, err
		}
		out := event.CheckoutCompleted{
			Header:         header,
			SessionID:      s.ID,
			AccountRef:     s.Metadata[metadataAccountKey],
			CustomerID:     customerID(s.Customer),
			SubscriptionID: subscriptionID(s.Subscription),
		}
		if out.AccountRef == "" {
			out.AccountRef = s.ClientReferenceID
		}
		if s.CustomerDetails != nil {
			out.Email = strings.ToLower(strings.TrimSpace(s.CustomerDetails.Email))
		}
		return out, nil

	case stripeapi.EventTypeCustomerSubscriptionCreated,
		stripeapi.EventTypeCustomerSubscriptionUpdated,
		stripeapi.EventTypeCustomerSubscriptionDeleted:
		var s stripeapi.Subscription
		if err := unmarshalObject(ev, &s); err != nil {
			return nil, err
		}
		out := event.SubscriptionChanged{
			Header:             header,
			Change:             subscriptionChange(ev.Type),
			SubscriptionID:     s.ID,
			CustomerID:         customerID(s.Customer),
			Status:             string(s.Status),
			CurrentPeriodStart: unixTime(s.CurrentPeriodStart),
			CurrentPeriodEnd:   unixTime(s.CurrentPeriodEnd),
			TrialEnd:           unixTime(s.TrialEnd),
			CancelAtPeriodEnd:  s.CancelAtPeriodEnd,
		}
		if s.Items != nil && len(s.Items.Data) > 0 && s.Items.Data[0].Price != nil {
			price := s.Items.Data[0].Price
			out.PriceID = price.ID
			if price.Product != nil {
				out.ProductID = price.Product.ID
			}
		}
		return out, nil

	case stripeapi.EventTypeInvoicePaid:
		var inv stripeapi.Invoice
		if err := unmarshalObject(ev, &inv); err != nil {
			return nil, err
		}
		return event.InvoicePaid{Header: header, InvoiceID: inv.ID, CustomerID: customerID(inv.Customer)}, nil

	case stripeapi.EventTypeInvoicePaymentFailed:
		var inv stripeapi.Invoice
		if err := unmarshalObject(ev, &inv); err != nil {
			return nil, err
		}
		return event.InvoicePaymentFailed{Header: header, InvoiceID: inv.ID, CustomerID: customerID(inv.Customer)}, nil
	}

	return event.Unrecognized{Header: header}, nil
}

func unmarshalObject(ev *stripeapi.Event, v interface{}) error {
	if ev.Data == nil || len(ev.Data.Raw) == 0 {
		return fmt.Errorf("%w: %s has no data object", domainErrors.ErrMalformedEvent, ev.Type)
	}
	if err := json.Unmarshal(ev.Data.Raw, v); err != nil {
		return fmt.Errorf("%w: %s: %v", domainErrors.ErrMalformedEvent, ev.Type, err)
	}
	return nil
}

func subscriptionChange(t stripeapi.EventType) event.SubscriptionChange {
	switch t {
	case stripeapi.EventTypeCustomerSubscriptionCreated:
		return event.SubscriptionCreated
	case stripeapi.EventTypeCustomerSubscriptionDeleted:
		return event.SubscriptionDeleted
	}
	return event.SubscriptionUpdated
}

func customerID(c *stripeapi.Customer) string {
	if c == nil {
		return ""
	}
	return c.ID
}

func subscriptionID(s *stripeapi.Subscription) string {
	if s == nil {
		return ""
	}
	return s.ID
}

func unixTime(secs int64) *time.Time {
	if secs == 0 {
		return nil
	}
	t := time.Unix(secs, 0).UTC()
	return &t
}
