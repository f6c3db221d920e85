package utils

import (
	"context"
	"time"

	"github.com/cenkalti/backoff/v4"
)

// RetryOptions contains configuration for retry behavior.
type RetryOptions struct {
	MaxElapsedTime  time.Duration
	InitialInterval time.Duration
	MaxInterval     time.Duration
	MaxRetries      uint64
}

// GetRequestRetryOptions returns retry options for calls to the remote platform.
// The per-call timeout still bounds every single attempt.
func GetRequestRetryOptions(maxRetries uint64, delay, maxDelay time.Duration) RetryOptions {
	if delay <= 0 {
		delay = 500 * time.Millisecond
	}

	if maxDelay < delay {
		maxDelay = delay
	}

	return RetryOptions{
		MaxElapsedTime:  15 * time.Second,
		InitialInterval: delay,
		MaxInterval:     maxDelay,
		MaxRetries:      maxRetries,
	}
}

// WithRetry executes the given operation with exponential backoff using provided options.
// Errors wrapped with backoff.Permanent stop the retry loop immediately and are unwrapped.
func WithRetry[T any](ctx context.Context, operation func() (T, error), opts RetryOptions) (T, error) {
	var result T

	// Configure exponential backoff
	b := backoff.WithMaxRetries(backoff.NewExponentialBackOff(
		backoff.WithMaxElapsedTime(opts.MaxElapsedTime),
		backoff.WithInitialInterval(opts.InitialInterval),
		backoff.WithMaxInterval(opts.MaxInterval),
	), opts.MaxRetries)

	backoffOperation := func() error {
		var err error
		result, err = operation()
		return err
	}

	err := backoff.Retry(backoffOperation, backoff.WithContext(b, ctx))

	return result, err
}
