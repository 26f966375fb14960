package service

import (
	"context"
	"errors"
	"time"

	"github.com/cenkalti/backoff/v5"

	"commentboard/internal/models"
	"commentboard/internal/observability"
	"commentboard/internal/repository"
)

// RetryPolicy bounds how often a transient store failure is retried.
type RetryPolicy struct {
	MaxTries        uint
	InitialInterval time.Duration
	MaxInterval     time.Duration
}

// DefaultRetryPolicy retries a failed transaction up to three more times
// with jittered exponential backoff.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxTries:        4,
		InitialInterval: 50 * time.Millisecond,
		MaxInterval:     500 * time.Millisecond,
	}
}

func (p RetryPolicy) backOff() backoff.BackOff {
	b := backoff.NewExponentialBackOff()
	if p.InitialInterval > 0 {
		b.InitialInterval = p.InitialInterval
	}
	if p.MaxInterval > 0 {
		b.MaxInterval = p.MaxInterval
	}
	return b
}

// retryStore runs op until it succeeds, fails permanently or the policy is
// exhausted. Only transient storage errors are retried.
func retryStore[T any](ctx context.Context, p RetryPolicy, operation string, op func() (T, error)) (T, error) {
	tries := p.MaxTries
	if tries == 0 {
		tries = 1
	}
	return backoff.Retry(ctx, func() (T, error) {
		v, err := op()
		if err != nil && !repository.IsTransient(err) {
			return v, backoff.Permanent(err)
		}
		return v, err
	},
		backoff.WithBackOff(p.backOff()),
		backoff.WithMaxTries(tries),
		backoff.WithNotify(func(err error, next time.Duration) {
			observability.StoreRetries.WithLabelValues(operation).Inc()
			observability.GlobalLogger.WarnContext(ctx, "retrying store operation",
				"operation", operation,
				"backoff", next,
				"error", err.Error(),
			)
		}),
	)
}

// storeError maps a store failure onto the caller-facing taxonomy.
func storeError(resource, id string, err error) error {
	var appErr *models.AppError
	switch {
	case errors.As(err, &appErr):
		return err
	case repository.IsNotFound(err):
		return models.NewNotFoundError(resource, id)
	case repository.IsTransient(err), errors.Is(err, context.Canceled):
		return models.NewStorageUnavailableError(err)
	default:
		return models.NewInternalError(err)
	}
}
