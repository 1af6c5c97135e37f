package repository

import (
	"context"
	"time"

	"github.com/Peluchemoreno/esti-mate-billing/internal/domain/entity"
)

// IdempotencyRepository stores request outcomes by idempotency key.
type IdempotencyRepository interface {
	// Reserve writes a pending marker if the key is unused. It returns false
	// when the key already holds a pending or completed entry.
	Reserve(ctx context.Context, key string, ttl time.Duration) (bool, error)
	// Get returns nil, nil for an unknown or expired key.
	Get(ctx context.Context, key string) (*entity.IdempotencyRecord, error)
	Complete(ctx context.Context, key string, rec *entity.IdempotencyRecord, ttl time.Duration) error
	Release(ctx context.Context, key string) error
}

// AccountEventPublisher notifies collaborators that a billing record changed.
type AccountEventPublisher interface {
	PublishAccountUpdated(ctx context.Context, account *entity.BillingAccount, reason string) error
}
