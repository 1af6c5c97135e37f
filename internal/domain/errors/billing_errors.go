package errors

import "errors"

var (
	// ErrInvalidSignature: webhook signature missing, malformed, wrong or outside tolerance.
	ErrInvalidSignature = errors.New("invalid webhook signature")

	// ErrMalformedEvent: signature verified but the payload does not decode for its type.
	ErrMalformedEvent = errors.New("malformed webhook event")

	// ErrUnrecognizedEventCategory: verified event of a type the service does not handle.
	ErrUnrecognizedEventCategory = errors.New("unrecognized event category")

	// ErrUnlinkedAccount: event refers to a processor customer no account is linked to.
	ErrUnlinkedAccount = errors.New("no account linked to customer")

	// ErrUpstreamUnavailable: processor call timed out, failed on the network or returned 5xx/429.
	ErrUpstreamUnavailable = errors.New("payment processor unavailable")

	// ErrTransientStore: a store read or write failed and the operation may be retried.
	ErrTransientStore = errors.New("billing store unavailable")

	// ErrUnknownAccount indicates that the account has no billing record
	ErrUnknownAccount = errors.New("unknown account")

	// ErrUnknownPlanReference indicates the requested price or plan is not configured
	ErrUnknownPlanReference = errors.New("unknown plan reference")

	// ErrNoBillingLinkage indicates that the account has no associated processor customer
	ErrNoBillingLinkage = errors.New("no processor customer linked to account")

	// ErrRequestInFlight: another request with the same idempotency token is still running.
	ErrRequestInFlight = errors.New("request with this idempotency key is in progress")

	// ErrCustomerRefConflict: the processor customer is already linked to a different account.
	ErrCustomerRefConflict = errors.New("processor customer already linked to another account")

	// ErrProcessorRejected: the processor refused the request (4xx other than rate limiting).
	ErrProcessorRejected = errors.New("payment processor rejected request")
)
