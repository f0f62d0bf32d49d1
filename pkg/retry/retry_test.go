// SPDX-FileCopyrightText: 2025 Jon Thor Kristinsson
// SPDX-License-Identifier: Apache-2.0

package retry

import (
	"context"
	"testing"
	"time"

	distschederrors "github.com/jontk/distsched/pkg/errors"
	"github.com/stretchr/testify/assert"
)

func TestExponentialBackoffPolicy_Defaults(t *testing.T) {
	policy := NewExponentialBackoffPolicy()
	assert.Equal(t, 3, policy.MaxRetries())
	assert.Equal(t, 100*time.Millisecond, policy.minWaitTime)
	assert.Equal(t, 5*time.Second, policy.maxWaitTime)
	assert.Equal(t, 2.0, policy.backoffFactor)
	assert.True(t, policy.jitter)
}

func TestExponentialBackoffPolicy_WithMethods(t *testing.T) {
	policy := NewExponentialBackoffPolicy().
		WithMaxRetries(5).
		WithMinWaitTime(2 * time.Second).
		WithMaxWaitTime(60 * time.Second).
		WithBackoffFactor(1.5).
		WithJitter(false)

	assert.Equal(t, 5, policy.MaxRetries())
	assert.Equal(t, 2*time.Second, policy.minWaitTime)
	assert.Equal(t, 60*time.Second, policy.maxWaitTime)
	assert.Equal(t, 1.5, policy.backoffFactor)
	assert.False(t, policy.jitter)
}

func TestExponentialBackoffPolicy_ShouldRetry(t *testing.T) {
	policy := NewExponentialBackoffPolicy().WithMaxRetries(3)
	ctx := context.Background()

	retryable := distschederrors.New(distschederrors.ErrorCodeBrokerTimeout, "timed out")
	notRetryable := distschederrors.New(distschederrors.ErrorCodeInfeasible, "no host")

	assert.True(t, policy.ShouldRetry(ctx, retryable, 1))
	assert.False(t, policy.ShouldRetry(ctx, retryable, 3), "max retries exceeded")
	assert.False(t, policy.ShouldRetry(ctx, notRetryable, 1), "infeasible is not retryable")
	assert.False(t, policy.ShouldRetry(ctx, nil, 1), "nil error should not retry")
}

func TestExponentialBackoffPolicy_ShouldRetryWithCancelledContext(t *testing.T) {
	policy := NewExponentialBackoffPolicy()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := distschederrors.New(distschederrors.ErrorCodeBrokerTimeout, "timed out")
	assert.False(t, policy.ShouldRetry(ctx, err, 1))
}

func TestExponentialBackoffPolicy_WaitTime(t *testing.T) {
	policy := NewExponentialBackoffPolicy().
		WithMinWaitTime(1 * time.Second).
		WithMaxWaitTime(10 * time.Second).
		WithBackoffFactor(2.0).
		WithJitter(false)

	tests := []struct {
		attempt  int
		expected time.Duration
	}{
		{0, 1 * time.Second},
		{1, 1 * time.Second},
		{2, 2 * time.Second},
		{3, 4 * time.Second},
		{4, 8 * time.Second},
		{5, 10 * time.Second}, // capped at max
	}

	for _, tt := range tests {
		assert.Equal(t, tt.expected, policy.WaitTime(tt.attempt))
	}
}

func TestExponentialBackoffPolicy_WaitTimeWithJitter(t *testing.T) {
	policy := NewExponentialBackoffPolicy().
		WithMinWaitTime(1 * time.Second).
		WithMaxWaitTime(10 * time.Second).
		WithBackoffFactor(2.0).
		WithJitter(true)

	baseWaitTime := 2 * time.Second
	waitTime := policy.WaitTime(2)
	assert.GreaterOrEqual(t, waitTime, baseWaitTime)
	assert.LessOrEqual(t, waitTime, baseWaitTime+time.Duration(float64(baseWaitTime)*0.1))
}

func TestFixedDelay(t *testing.T) {
	policy := NewFixedDelay(3, 5*time.Second)
	ctx := context.Background()
	err := distschederrors.New(distschederrors.ErrorCodeBrokerUnavailable, "down")

	assert.Equal(t, 3, policy.MaxRetries())
	assert.Equal(t, 5*time.Second, policy.WaitTime(1))
	assert.Equal(t, 5*time.Second, policy.WaitTime(5))
	assert.True(t, policy.ShouldRetry(ctx, err, 1))
	assert.False(t, policy.ShouldRetry(ctx, err, 3), "max retries exceeded")
}

func TestNoRetry(t *testing.T) {
	policy := NewNoRetry()
	ctx := context.Background()
	err := distschederrors.New(distschederrors.ErrorCodeBrokerUnavailable, "down")

	assert.Equal(t, 0, policy.MaxRetries())
	assert.Equal(t, time.Duration(0), policy.WaitTime(1))
	assert.False(t, policy.ShouldRetry(ctx, err, 0))
}

func TestPolicyInterface(t *testing.T) {
	var _ Policy = &ExponentialBackoffPolicy{}
	var _ Policy = &FixedDelay{}
	var _ Policy = &NoRetry{}
}

func TestDoRetriesUntilSuccess(t *testing.T) {
	policy := NewFixedDelay(5, time.Millisecond)
	attempts := 0
	err := Do(context.Background(), policy, func() error {
		attempts++
		if attempts < 3 {
			return distschederrors.New(distschederrors.ErrorCodeBrokerTimeout, "timed out")
		}
		return nil
	})
	assert.NoError(t, err)
	assert.Equal(t, 3, attempts)
}

func TestDoStopsOnNonRetryableError(t *testing.T) {
	policy := NewExponentialBackoffPolicy()
	attempts := 0
	err := Do(context.Background(), policy, func() error {
		attempts++
		return distschederrors.New(distschederrors.ErrorCodeInfeasible, "no host")
	})
	assert.Error(t, err)
	assert.Equal(t, 1, attempts)
}
