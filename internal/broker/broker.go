// SPDX-FileCopyrightText: 2025 Jon Thor Kristinsson
// SPDX-License-Identifier: Apache-2.0

// Package broker defines the shared key-value/list store abstraction that
// the scheduler, workers and dispatcher cooperate through. Every operation
// is atomic with respect to other operations on the same key; no multi-key
// transaction is assumed, so callers achieve cross-key correctness with
// compensating actions rather than locks.
package broker

import (
	"context"
	"time"
)

// Broker is the minimal set of primitives every scheduling component needs.
// Lists model queues (pending, per-node dispatch queues, the slot-token
// pool); strings model counters (cap, cap_total, run_count).
type Broker interface {
	// AppendTail appends value to the tail of the list at key.
	AppendTail(ctx context.Context, key string, value []byte) error

	// PopHead removes and returns the head of the list at key. Returns
	// ErrEmpty if the list is empty.
	PopHead(ctx context.Context, key string) ([]byte, error)

	// PeekHead returns, without removing, the head of the list at key.
	// Returns ErrEmpty if the list is empty.
	PeekHead(ctx context.Context, key string) ([]byte, error)

	// BlockingPopTail removes and returns the tail of the list at key,
	// waiting up to timeout for an element to appear. Returns ErrEmpty if
	// the timeout elapses first.
	BlockingPopTail(ctx context.Context, key string, timeout time.Duration) ([]byte, error)

	// Length returns the number of elements in the list at key.
	Length(ctx context.Context, key string) (int64, error)

	// Range returns elements [start, end] (inclusive, 0-indexed; negative
	// indices count from the tail) of the list at key.
	Range(ctx context.Context, key string, start, end int64) ([][]byte, error)

	// RemoveOccurrence removes up to n occurrences of value from the list
	// at key (n > 0 removes from head to tail, n < 0 from tail to head;
	// n == 0 removes all). Returns the number actually removed.
	RemoveOccurrence(ctx context.Context, key string, value []byte, n int64) (int64, error)

	// Get returns the string value at key. Returns ErrNotFound if unset.
	Get(ctx context.Context, key string) ([]byte, error)

	// Set unconditionally sets key to value.
	Set(ctx context.Context, key string, value []byte) error

	// SetIfAbsent sets key to value only if it does not already exist.
	// Returns true if the value was set.
	SetIfAbsent(ctx context.Context, key string, value []byte) (bool, error)

	// IncrBy atomically adds delta to the integer counter at key (treating
	// an unset key as 0) and returns the new value.
	IncrBy(ctx context.Context, key string, delta int64) (int64, error)

	// KeysMatching returns all keys matching the given glob-style pattern,
	// e.g. "cap:*".
	KeysMatching(ctx context.Context, pattern string) ([]string, error)

	// Close releases any resources held by the broker client.
	Close() error
}
