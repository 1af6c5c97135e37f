package repository

import (
	"context"

	"github.com/google/uuid"

	"github.com/Peluchemoreno/esti-mate-billing/internal/domain/entity"
)

// Mutation computes the next state of a record from its current state. It must
// not retain or modify current.
type Mutation func(current *entity.BillingAccount) *entity.BillingAccount

// BillingAccountRepository stores one billing record per account. Lookups
// return nil, nil when nothing matches.
type BillingAccountRepository interface {
	GetByAccountID(ctx context.Context, accountID uuid.UUID) (*entity.BillingAccount, error)
	GetByEmail(ctx context.Context, email string) (*entity.BillingAccount, error)
	GetByCustomerRef(ctx context.Context, customerRef string) (*entity.BillingAccount, error)

	// EnsureAccount creates the initial free/disabled record if absent and
	// returns the stored record either way.
	EnsureAccount(ctx context.Context, accountID uuid.UUID, email string) (*entity.BillingAccount, error)

	// LinkCustomer sets the customer reference only if none is stored and
	// returns the reference that is stored afterwards.
	LinkCustomer(ctx context.Context, accountID uuid.UUID, customerRef string) (string, error)

	// UpdateByAccountID and UpdateByCustomerRef apply m under a row lock. The
	// bool reports whether anything changed. A missing record yields
	// ErrUnknownAccount or ErrUnlinkedAccount respectively.
	UpdateByAccountID(ctx context.Context, accountID uuid.UUID, m Mutation) (*entity.BillingAccount, bool, error)
	UpdateByCustomerRef(ctx context.Context, customerRef string, m Mutation) (*entity.BillingAccount, bool, error)
}
