package usecase

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v4"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/Peluchemoreno/esti-mate-billing/internal/domain/entity"
	domainErrors "github.com/Peluchemoreno/esti-mate-billing/internal/domain/errors"
	"github.com/Peluchemoreno/esti-mate-billing/internal/domain/repository"
	"github.com/Peluchemoreno/esti-mate-billing/internal/metrics"
)

// MaxIdempotencyTokenLength bounds client supplied tokens.
const MaxIdempotencyTokenLength = 255

var errStillPending = errors.New("idempotency key still pending")

// IdempotentResult is the response a request produced, replayable verbatim.
type IdempotentResult struct {
	StatusCode int
	Body       json.RawMessage
	// Replayed is true when the result came from an earlier execution.
	Replayed bool
}

// RequestIdempotency makes client requests carrying the same token execute
// once. Results are kept for ttl. A reservation only holds the token for
// lease, so a process that dies mid-request frees it on its own; a caller
// racing an in-flight execution waits up to wait for it to finish.
type RequestIdempotency struct {
	repo    repository.IdempotencyRepository
	ttl     time.Duration
	lease   time.Duration
	wait    time.Duration
	logger  *zap.Logger
	metrics metrics.BillingMetrics
	group   singleflight.Group
}

func NewRequestIdempotency(repo repository.IdempotencyRepository, ttl, lease, wait time.Duration, logger *zap.Logger, m metrics.BillingMetrics) *RequestIdempotency {
	return &RequestIdempotency{
		repo:    repo,
		ttl:     ttl,
		lease:   lease,
		wait:    wait,
		logger:  logger,
		metrics: m,
	}
}

// Key scopes a client token to an operation and account.
func (r *RequestIdempotency) Key(operation, accountID, token string) (string, error) {
	if token == "" || len(token) > MaxIdempotencyTokenLength {
		return "", fmt.Errorf("idempotency key must be 1-%d characters", MaxIdempotencyTokenLength)
	}
	return operation + ":" + accountID + ":" + token, nil
}

// Begin returns the stored result for key, or nil when the caller has
// reserved the key and must execute the request and then Complete or Abandon.
func (r *RequestIdempotency) Begin(ctx context.Context, key string) (*entity.IdempotencyRecord, error) {
	var cached *entity.IdempotencyRecord

	op := func() error {
		reserved, err := r.repo.Reserve(ctx, key, r.lease)
		if err != nil {
			return backoff.Permanent(err)
		}
		if reserved {
			return nil
		}

		rec, err := r.repo.Get(ctx, key)
		if err != nil {
			return backoff.Permanent(err)
		}
		if rec != nil && rec.State == entity.IdempotencyComplete {
			cached = rec
			return nil
		}
		// pending, or released/expired between the two calls
		return errStillPending
	}

	b := backoff.NewExponentialBackOff()
	b.InitialInterval = 20 * time.Millisecond
	b.MaxInterval = 500 * time.Millisecond
	b.MaxElapsedTime = r.wait

	if err := backoff.Retry(op, backoff.WithContext(b, ctx)); err != nil {
		if errors.Is(err, errStillPending) {
			return nil, domainErrors.ErrRequestInFlight
		}
		return nil, err
	}
	return cached, nil
}

// Complete stores the result of a reserved request.
func (r *RequestIdempotency) Complete(ctx context.Context, key string, statusCode int, body json.RawMessage) error {
	return r.repo.Complete(ctx, key, &entity.IdempotencyRecord{
		StatusCode: statusCode,
		Body:       body,
		CreatedAt:  time.Now().UTC(),
	}, r.ttl)
}

// Abandon frees a reservation whose request failed so the token can be retried.
func (r *RequestIdempotency) Abandon(ctx context.Context, key string) error {
	return r.repo.Release(ctx, key)
}

// Do executes fn once for key. Concurrent callers in this process share one
// execution; callers elsewhere wait on the stored marker. Failed executions
// are not cached.
//
// The shared execution does not inherit the cancellation of whichever caller
// started it and is bounded by the lease instead. A caller whose own context
// ends stops waiting without affecting the others.
func (r *RequestIdempotency) Do(ctx context.Context, operation, key string, fn func(ctx context.Context) (int, interface{}, error)) (*IdempotentResult, error) {
	ch := r.group.DoChan(key, func() (interface{}, error) {
		flightCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), r.lease)
		defer cancel()
		return r.execute(flightCtx, key, fn)
	})

	var res IdempotentResult
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case out := <-ch:
		if out.Err != nil {
			return nil, out.Err
		}
		res = *out.Val.(*IdempotentResult)
		if out.Shared {
			res.Replayed = true
		}
	}

	if res.Replayed {
		r.metrics.IncIdempotencyReplay(operation)
	}
	return &res, nil
}

func (r *RequestIdempotency) execute(ctx context.Context, key string, fn func(ctx context.Context) (int, interface{}, error)) (*IdempotentResult, error) {
	cached, err := r.Begin(ctx, key)
	if err != nil {
		return nil, err
	}
	if cached != nil {
		return &IdempotentResult{StatusCode: cached.StatusCode, Body: cached.Body, Replayed: true}, nil
	}

	status, body, err := fn(ctx)
	if err != nil {
		if relErr := r.Abandon(context.WithoutCancel(ctx), key); relErr != nil {
			r.logger.Warn("Failed to release idempotency key", zap.String("key", key), zap.Error(relErr))
		}
		if errors.Is(err, context.DeadlineExceeded) {
			// the lease ran out before the processor answered
			return nil, fmt.Errorf("%w: %w", domainErrors.ErrUpstreamUnavailable, err)
		}
		return nil, err
	}

	raw, err := json.Marshal(body)
	if err != nil {
		_ = r.Abandon(context.WithoutCancel(ctx), key)
		return nil, fmt.Errorf("failed to encode result: %w", err)
	}
	if err := r.Complete(context.WithoutCancel(ctx), key, status, raw); err != nil {
		// The effect happened; the caller still gets its result. Dropping the
		// marker keeps later retries from waiting on it until the lease ends.
		r.logger.Error("Failed to store idempotent result", zap.String("key", key), zap.Error(err))
		_ = r.Abandon(context.WithoutCancel(ctx), key)
	}
	return &IdempotentResult{StatusCode: status, Body: raw}, nil
}
