// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package resilience

import (
	"context"
	"errors"
	"time"

	"github.com/sony/gobreaker/v2"

	"prikit/internal/observability"
)

// CircuitBreakerConfig holds circuit breaker configuration
type CircuitBreakerConfig struct {
	Name             string        // Name for logging
	FailureThreshold uint32        // Consecutive failures before opening
	Timeout          time.Duration // How long to stay open before trying half-open
	MaxRequests      uint32        // Max requests in half-open state
	Interval         time.Duration // Closed-state count reset period; 0 never resets
}

// DefaultCircuitBreakerConfig returns sensible defaults
func DefaultCircuitBreakerConfig(name string) CircuitBreakerConfig {
	return CircuitBreakerConfig{
		Name:             name,
		FailureThreshold: 5,
		Timeout:          30 * time.Second,
		MaxRequests:      1,
	}
}

// CircuitBreaker guards calls to a collaborator. Only retryable failures
// count toward opening; cancellations are not counted at all.
type CircuitBreaker[T any] struct {
	cb *gobreaker.CircuitBreaker[T]
}

// NewCircuitBreaker creates a breaker that reports state changes to observer
func NewCircuitBreaker[T any](config CircuitBreakerConfig, observer *observability.StandardObserver) *CircuitBreaker[T] {
	threshold := config.FailureThreshold
	if threshold == 0 {
		threshold = 1
	}

	settings := gobreaker.Settings{
		Name:        config.Name,
		MaxRequests: config.MaxRequests,
		Interval:    config.Interval,
		Timeout:     config.Timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= threshold
		},
		IsSuccessful: func(err error) bool {
			return err == nil || !ClassifyError(err).IsRetryable()
		},
		IsExcluded: func(err error) bool {
			return errors.Is(err, context.Canceled)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			observer.Warn("circuit_breaker", "state_change", map[string]interface{}{
				"breaker": name,
				"from":    from.String(),
				"to":      to.String(),
			})
		},
	}

	return &CircuitBreaker[T]{cb: gobreaker.NewCircuitBreaker[T](settings)}
}

// Execute runs fn unless the breaker is open
func (b *CircuitBreaker[T]) Execute(ctx context.Context, fn func(ctx context.Context) (T, error)) (T, error) {
	if err := ctx.Err(); err != nil {
		var zero T
		return zero, err
	}
	result, err := b.cb.Execute(func() (T, error) {
		return fn(ctx)
	})
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return result, ClassifyError(err)
	}
	return result, err
}

// State returns the breaker state name
func (b *CircuitBreaker[T]) State() string {
	return b.cb.State().String()
}

// Name returns the breaker name
func (b *CircuitBreaker[T]) Name() string {
	return b.cb.Name()
}
