// SPDX-FileCopyrightText: 2025 Jon Thor Kristinsson
// SPDX-License-Identifier: Apache-2.0

package watch

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestLoopRunsImmediatelyAndOnTick(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var calls int32
	done := make(chan struct{})

	go func() {
		_ = Loop(ctx, 10*time.Millisecond, func(ctx context.Context) error {
			n := atomic.AddInt32(&calls, 1)
			if n >= 3 {
				cancel()
			}
			return nil
		})
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("loop did not exit after cancellation")
	}

	assert.GreaterOrEqual(t, atomic.LoadInt32(&calls), int32(3))
}

func TestLoopReturnsFnError(t *testing.T) {
	sentinel := errors.New("stop")
	err := Loop(context.Background(), time.Millisecond, func(ctx context.Context) error {
		return sentinel
	})
	assert.ErrorIs(t, err, sentinel)
}

func TestCompensatedLoopHoldsAverageCadence(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 120*time.Millisecond)
	defer cancel()

	var calls int32
	start := time.Now()
	_ = CompensatedLoop(ctx, 20*time.Millisecond, func(ctx context.Context) error {
		atomic.AddInt32(&calls, 1)
		time.Sleep(5 * time.Millisecond) // simulate work eating into the interval
		return nil
	})
	elapsed := time.Since(start)

	n := atomic.LoadInt32(&calls)
	assert.Greater(t, n, int32(0))
	// average interval should stay near 20ms despite the 5ms of work each tick
	avg := elapsed / time.Duration(n)
	assert.Less(t, avg, 30*time.Millisecond)
}

func TestCompensatedLoopReturnsFnError(t *testing.T) {
	sentinel := errors.New("stop")
	err := CompensatedLoop(context.Background(), time.Millisecond, func(ctx context.Context) error {
		return sentinel
	})
	assert.ErrorIs(t, err, sentinel)
}
