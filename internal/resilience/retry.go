// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package resilience

import (
	"context"
	"math/rand/v2"
	"time"
)

// Backoff describes how often and how patiently a collaborator call is
// repeated after a retryable failure.
type Backoff struct {
	// Attempts is the total number of calls, including the first
	Attempts int

	// Base is the wait before the second call; each later wait doubles
	Base time.Duration
	Cap  time.Duration

	// Jitter adds up to this fraction of the wait at random
	Jitter float64
}

// DefaultBackoff suits a local binary such as the OCR engine: three calls,
// waiting 200ms then 400ms.
func DefaultBackoff() Backoff {
	return Backoff{
		Attempts: 3,
		Base:     200 * time.Millisecond,
		Cap:      2 * time.Second,
		Jitter:   0.25,
	}
}

// Wait returns the pause before call number attempt (2 for the first retry)
func (b Backoff) Wait(attempt int) time.Duration {
	if attempt < 2 || b.Base <= 0 {
		return 0
	}
	wait := b.Base << (attempt - 2)
	if wait <= 0 || (b.Cap > 0 && wait > b.Cap) {
		wait = b.Cap
	}
	if b.Jitter > 0 {
		wait += time.Duration(float64(wait) * b.Jitter * rand.Float64())
	}
	return wait
}

// RetryNotify is told about each failed call that will be retried
type RetryNotify func(attempt int, wait time.Duration, err error)

// Do calls fn until it succeeds, fails with an error ClassifyError deems
// final, or the attempts run out. The last error is returned. A cancelled
// ctx interrupts the wait and returns ctx.Err().
func Do[T any](ctx context.Context, b Backoff, fn func(ctx context.Context) (T, error), notify RetryNotify) (T, error) {
	var zero T
	attempts := max(b.Attempts, 1)

	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		if attempt > 1 {
			wait := b.Wait(attempt)
			if notify != nil {
				notify(attempt-1, wait, lastErr)
			}
			timer := time.NewTimer(wait)
			select {
			case <-ctx.Done():
				timer.Stop()
				return zero, ctx.Err()
			case <-timer.C:
			}
		}

		result, err := fn(ctx)
		if err == nil {
			return result, nil
		}
		lastErr = err
		if !ClassifyError(err).IsRetryable() {
			break
		}
	}
	return zero, lastErr
}
