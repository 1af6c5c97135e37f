package http

import (
	"errors"

	domainErrors "github.com/Peluchemoreno/esti-mate-billing/internal/domain/errors"
	apperrors "github.com/Peluchemoreno/esti-mate-billing/pkg/errors"
)

// toAppError maps domain failures onto client-facing error codes.
func toAppError(err error) error {
	switch {
	case errors.Is(err, domainErrors.ErrUnknownPlanReference):
		return apperrors.NewAppError(apperrors.ErrInvalidArgument, "Unknown plan or price", err)
	case errors.Is(err, domainErrors.ErrUnknownAccount):
		return apperrors.NewAppError(apperrors.ErrNotFound, "Billing account not found", err)
	case errors.Is(err, domainErrors.ErrNoBillingLinkage):
		return apperrors.NewAppError(apperrors.ErrInvalidArgument, "No billing customer on file; complete a checkout first", err)
	case errors.Is(err, domainErrors.ErrRequestInFlight):
		return apperrors.NewAppError(apperrors.ErrConflict, "A request with this idempotency key is still in progress", err)
	case errors.Is(err, domainErrors.ErrCustomerRefConflict):
		return apperrors.NewAppError(apperrors.ErrConflict, "Billing customer is linked to another account", err)
	case errors.Is(err, domainErrors.ErrUpstreamUnavailable):
		return apperrors.NewAppError(apperrors.ErrUnavailable, "Payment processor unavailable, try again later", err)
	case errors.Is(err, domainErrors.ErrProcessorRejected):
		return apperrors.NewAppError(apperrors.ErrBadGateway, "Payment processor rejected the request", err)
	case errors.Is(err, domainErrors.ErrInvalidSignature):
		return apperrors.NewAppError(apperrors.ErrInvalidArgument, "Invalid webhook signature", err)
	case errors.Is(err, domainErrors.ErrMalformedEvent):
		return apperrors.NewAppError(apperrors.ErrInvalidArgument, "Malformed webhook payload", err)
	}
	return apperrors.Wrap(err, "Internal error")
}
