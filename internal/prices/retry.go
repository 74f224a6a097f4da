package prices

import (
	"context"
	"errors"
	"time"

	kiteconnect "github.com/zerodha/gokiteconnect/v4"
)

// RetryConfig controls how failed quote requests are retried.
type RetryConfig struct {
	MaxAttempts   int
	InitialDelay  time.Duration
	MaxDelay      time.Duration
	BackoffFactor float64
}

// DefaultRetryConfig returns the retry policy used for Kite quote calls.
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxAttempts:   3,
		InitialDelay:  200 * time.Millisecond,
		MaxDelay:      2 * time.Second,
		BackoffFactor: 2.0,
	}
}

// retryWithResult runs fn until it succeeds, returns a non-retryable error,
// runs out of attempts or ctx is done.
func retryWithResult[T any](ctx context.Context, cfg RetryConfig, fn func() (T, error)) (T, error) {
	var zero T
	var lastErr error
	delay := cfg.InitialDelay
	attempts := cfg.MaxAttempts
	if attempts < 1 {
		attempts = 1
	}

	for attempt := 0; attempt < attempts; attempt++ {
		result, err := fn()
		if err == nil {
			return result, nil
		}
		lastErr = err
		if !retryable(err) || attempt == attempts-1 {
			break
		}

		select {
		case <-ctx.Done():
			return zero, ctx.Err()
		case <-time.After(delay):
		}
		delay = time.Duration(float64(delay) * cfg.BackoffFactor)
		if delay > cfg.MaxDelay {
			delay = cfg.MaxDelay
		}
	}
	return zero, lastErr
}

// retryable reports whether a quote error may succeed on a later attempt.
// Kite token, permission and input errors never do.
func retryable(err error) bool {
	var kerr kiteconnect.Error
	if errors.As(err, &kerr) {
		return kerr.ErrorType == kiteconnect.NetworkError ||
			kerr.ErrorType == kiteconnect.GeneralError ||
			kerr.Code >= 500
	}
	return true
}
