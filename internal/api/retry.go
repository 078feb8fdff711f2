package api

import (
	"context"
	"errors"
	"time"

	"bagger/internal/apperror"
)

// RetryPolicy controls Retry. The delay before attempt i+1 is Step*(i+1).
type RetryPolicy struct {
	Attempts int
	Step     time.Duration
}

// DefaultRetryPolicy is three attempts with a linear one-second step.
var DefaultRetryPolicy = RetryPolicy{Attempts: 3, Step: time.Second}

// Retry calls fn until it succeeds, returns a permanent error, or the
// attempts run out. The last error is returned unchanged.
func Retry(ctx context.Context, policy RetryPolicy, fn func(context.Context) error) error {
	attempts := policy.Attempts
	if attempts < 1 {
		attempts = 1
	}

	var err error
	for i := 0; i < attempts; i++ {
		err = fn(ctx)
		if err == nil {
			return nil
		}
		if i == attempts-1 || !retryable(err) {
			return err
		}

		timer := time.NewTimer(policy.Step * time.Duration(i+1))
		select {
		case <-ctx.Done():
			timer.Stop()
			return err
		case <-timer.C:
		}
	}
	return err
}

func retryable(err error) bool {
	switch {
	case errors.Is(err, apperror.ErrUnauthorized),
		errors.Is(err, apperror.ErrValidation),
		errors.Is(err, context.Canceled):
		return false
	}
	return true
}
