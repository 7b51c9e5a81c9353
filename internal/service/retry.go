package service

import (
	"context"
	"time"
)

// RetryPolicy decides how individual gateway sends are retried. The policy is
// injectable so deployments can opt into bounded retry without changing the
// dispatcher's sequential, failure-isolated semantics.
type RetryPolicy interface {
	// Do runs fn, retrying per the policy, and returns the last error.
	Do(ctx context.Context, fn func() error) error
}

// NoRetry attempts each send exactly once. This is the default: gateway
// failures are recorded per recipient, never retried.
type NoRetry struct{}

// Do runs fn once.
func (NoRetry) Do(_ context.Context, fn func() error) error {
	return fn()
}

// BoundedBackoff retries failed sends a fixed number of times with a doubling
// delay between attempts.
type BoundedBackoff struct {
	Attempts int
	Initial  time.Duration
}

// Do runs fn up to Attempts times.
func (b BoundedBackoff) Do(ctx context.Context, fn func() error) error {
	attempts := b.Attempts
	if attempts < 1 {
		attempts = 1
	}
	delay := b.Initial
	if delay <= 0 {
		delay = 500 * time.Millisecond
	}

	var err error
	for i := 0; i < attempts; i++ {
		if err = fn(); err == nil {
			return nil
		}
		if i == attempts-1 {
			break
		}
		select {
		case <-ctx.Done():
			return err
		case <-time.After(delay):
		}
		delay *= 2
	}
	return err
}
