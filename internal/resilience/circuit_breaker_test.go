// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package resilience

import (
	"bytes"
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"prikit/internal/observability"
)

func TestCircuitBreaker_OpensAfterRetryableFailures(t *testing.T) {
	var logs bytes.Buffer
	observer := observability.NewStandardObserver(observability.ObservabilityInfo, &logs)

	cb := NewCircuitBreaker[string](CircuitBreakerConfig{
		Name:             "ocr",
		FailureThreshold: 2,
		Timeout:          time.Hour,
		MaxRequests:      1,
	}, observer)

	busy := func(ctx context.Context) (string, error) {
		return "", NewTransientError("busy", nil)
	}
	for range 2 {
		_, err := cb.Execute(context.Background(), busy)
		require.Error(t, err)
	}
	assert.Equal(t, "open", cb.State())
	assert.Equal(t, "ocr", cb.Name())

	called := false
	_, err := cb.Execute(context.Background(), func(ctx context.Context) (string, error) {
		called = true
		return "ok", nil
	})
	assert.False(t, called)
	assert.Equal(t, ErrorTypeServiceUnavailable, ClassifyError(err).Type)
	assert.Contains(t, logs.String(), `"state_change"`)
}

func TestCircuitBreaker_IgnoresPermanentFailures(t *testing.T) {
	cb := NewCircuitBreaker[int](CircuitBreakerConfig{Name: "ocr", FailureThreshold: 1, Timeout: time.Hour}, observability.Nop())

	for range 3 {
		_, err := cb.Execute(context.Background(), func(ctx context.Context) (int, error) {
			return 0, errors.New("invalid image")
		})
		require.Error(t, err)
	}
	assert.Equal(t, "closed", cb.State())

	got, err := cb.Execute(context.Background(), func(ctx context.Context) (int, error) { return 7, nil })
	require.NoError(t, err)
	assert.Equal(t, 7, got)
}

func TestCircuitBreaker_CancelledContext(t *testing.T) {
	cb := NewCircuitBreaker[int](DefaultCircuitBreakerConfig("ocr"), observability.Nop())
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := cb.Execute(ctx, func(ctx context.Context) (int, error) { return 1, nil })
	assert.ErrorIs(t, err, context.Canceled)
}
