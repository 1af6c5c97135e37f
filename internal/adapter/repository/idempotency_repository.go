package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"

	"github.com/Peluchemoreno/esti-mate-billing/internal/domain/entity"
	domainErrors "github.com/Peluchemoreno/esti-mate-billing/internal/domain/errors"
	"github.com/Peluchemoreno/esti-mate-billing/internal/domain/repository"
)

const idempotencyKeyPrefix = "idem:"

type idempotencyRepository struct {
	client redis.UniversalClient
	logger *zap.Logger
	now    func() time.Time
}

// NewIdempotencyRepository stores idempotency records in Redis. Expiry is
// delegated to key TTLs.
func NewIdempotencyRepository(client redis.UniversalClient, logger *zap.Logger) repository.IdempotencyRepository {
	return &idempotencyRepository{
		client: client,
		logger: logger,
		now:    time.Now,
	}
}

// Reserve is SET NX with a pending marker.
func (r *idempotencyRepository) Reserve(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	payload, err := json.Marshal(&entity.IdempotencyRecord{
		State:     entity.IdempotencyPending,
		CreatedAt: r.now().UTC(),
	})
	if err != nil {
		return false, fmt.Errorf("failed to encode idempotency marker: %w", err)
	}

	ok, err := r.client.SetNX(ctx, idempotencyKeyPrefix+key, payload, ttl).Result()
	if err != nil {
		r.logger.Error("Failed to reserve idempotency key", zap.String("key", key), zap.Error(err))
		return false, fmt.Errorf("failed to reserve idempotency key: %w: %w", domainErrors.ErrTransientStore, err)
	}
	return ok, nil
}

func (r *idempotencyRepository) Get(ctx context.Context, key string) (*entity.IdempotencyRecord, error) {
	raw, err := r.client.Get(ctx, idempotencyKeyPrefix+key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		r.logger.Error("Failed to read idempotency key", zap.String("key", key), zap.Error(err))
		return nil, fmt.Errorf("failed to read idempotency key: %w: %w", domainErrors.ErrTransientStore, err)
	}

	var rec entity.IdempotencyRecord
	if err := json.Unmarshal(raw, &rec); err != nil {
		return nil, fmt.Errorf("failed to decode idempotency record %s: %w", key, err)
	}
	return &rec, nil
}

// Complete overwrites the pending marker with the final result.
func (r *idempotencyRepository) Complete(ctx context.Context, key string, rec *entity.IdempotencyRecord, ttl time.Duration) error {
	stored := *rec
	stored.State = entity.IdempotencyComplete
	if stored.CreatedAt.IsZero() {
		stored.CreatedAt = r.now().UTC()
	}

	payload, err := json.Marshal(&stored)
	if err != nil {
		return fmt.Errorf("failed to encode idempotency record: %w", err)
	}
	if err := r.client.Set(ctx, idempotencyKeyPrefix+key, payload, ttl).Err(); err != nil {
		r.logger.Error("Failed to store idempotency result", zap.String("key", key), zap.Error(err))
		return fmt.Errorf("failed to store idempotency result: %w: %w", domainErrors.ErrTransientStore, err)
	}
	return nil
}

func (r *idempotencyRepository) Release(ctx context.Context, key string) error {
	if err := r.client.Del(ctx, idempotencyKeyPrefix+key).Err(); err != nil {
		r.logger.Error("Failed to release idempotency key", zap.String("key", key), zap.Error(err))
		return fmt.Errorf("failed to release idempotency key: %w: %w", domainErrors.ErrTransientStore, err)
	}
	return nil
}
