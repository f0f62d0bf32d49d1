// SPDX-FileCopyrightText: 2025 Jon Thor Kristinsson
// SPDX-License-Identifier: Apache-2.0

// Package redisstore implements broker.Broker on top of a shared Redis (or
// Redis-protocol-compatible) instance, the production backend for every
// scheduling component.
package redisstore

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/jontk/distsched/internal/broker"
)

// client is the subset of *redis.Client this package calls, narrowed so
// tests can substitute a mock without a live server.
type client interface {
	RPush(ctx context.Context, key string, values ...interface{}) *redis.IntCmd
	LPop(ctx context.Context, key string) *redis.StringCmd
	LIndex(ctx context.Context, key string, index int64) *redis.StringCmd
	BRPop(ctx context.Context, timeout time.Duration, keys ...string) *redis.StringSliceCmd
	LLen(ctx context.Context, key string) *redis.IntCmd
	LRange(ctx context.Context, key string, start, stop int64) *redis.StringSliceCmd
	LRem(ctx context.Context, key string, count int64, value interface{}) *redis.IntCmd
	Get(ctx context.Context, key string) *redis.StringCmd
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.StatusCmd
	SetNX(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.BoolCmd
	IncrBy(ctx context.Context, key string, value int64) *redis.IntCmd
	Scan(ctx context.Context, cursor uint64, match string, count int64) *redis.ScanCmd
	Close() error
}

// scanCount is the COUNT hint passed to each SCAN call; it bounds how many
// keys the server inspects per round trip, not the number returned.
const scanCount = 100

// Store is a Broker backed by a Redis list/string keyspace. Lists map
// straight onto RPUSH/LPOP/BRPOP/LRANGE/LREM; strings map onto GET/SET/
// SETNX/INCRBY.
type Store struct {
	c client
}

// New wraps an existing *redis.Client as a Broker.
func New(c *redis.Client) *Store {
	return &Store{c: c}
}

func (s *Store) AppendTail(ctx context.Context, key string, value []byte) error {
	return s.c.RPush(ctx, key, value).Err()
}

func (s *Store) PopHead(ctx context.Context, key string) ([]byte, error) {
	v, err := s.c.LPop(ctx, key).Bytes()
	if err == redis.Nil {
		return nil, broker.ErrEmpty
	}
	return v, err
}

func (s *Store) PeekHead(ctx context.Context, key string) ([]byte, error) {
	v, err := s.c.LIndex(ctx, key, 0).Bytes()
	if err == redis.Nil {
		return nil, broker.ErrEmpty
	}
	return v, err
}

// BlockingPopTail issues BRPOP, which pops the tail element (the newest
// entry for a right-pushed queue) or blocks until timeout.
func (s *Store) BlockingPopTail(ctx context.Context, key string, timeout time.Duration) ([]byte, error) {
	res, err := s.c.BRPop(ctx, timeout, key).Result()
	if err == redis.Nil {
		return nil, broker.ErrEmpty
	}
	if err != nil {
		return nil, err
	}
	// BRPop returns [key, value].
	if len(res) < 2 {
		return nil, broker.ErrEmpty
	}
	return []byte(res[1]), nil
}

func (s *Store) Length(ctx context.Context, key string) (int64, error) {
	return s.c.LLen(ctx, key).Result()
}

func (s *Store) Range(ctx context.Context, key string, start, end int64) ([][]byte, error) {
	vals, err := s.c.LRange(ctx, key, start, end).Result()
	if err != nil {
		return nil, err
	}
	out := make([][]byte, len(vals))
	for i, v := range vals {
		out[i] = []byte(v)
	}
	return out, nil
}

func (s *Store) RemoveOccurrence(ctx context.Context, key string, value []byte, n int64) (int64, error) {
	return s.c.LRem(ctx, key, n, value).Result()
}

func (s *Store) Get(ctx context.Context, key string) ([]byte, error) {
	v, err := s.c.Get(ctx, key).Bytes()
	if err == redis.Nil {
		return nil, broker.ErrNotFound
	}
	return v, err
}

func (s *Store) Set(ctx context.Context, key string, value []byte) error {
	return s.c.Set(ctx, key, value, 0).Err()
}

func (s *Store) SetIfAbsent(ctx context.Context, key string, value []byte) (bool, error) {
	return s.c.SetNX(ctx, key, value, 0).Result()
}

func (s *Store) IncrBy(ctx context.Context, key string, delta int64) (int64, error) {
	return s.c.IncrBy(ctx, key, delta).Result()
}

// KeysMatching walks the keyspace with SCAN/MATCH rather than KEYS: KEYS
// blocks the Redis event loop for the full keyspace scan, which is unsafe
// against a shared production instance under load. SCAN trades that for an
// incremental, cursor-based walk that never blocks other clients for more
// than one COUNT-sized batch at a time.
func (s *Store) KeysMatching(ctx context.Context, pattern string) ([]string, error) {
	var out []string
	var cursor uint64
	for {
		keys, next, err := s.c.Scan(ctx, cursor, pattern, scanCount).Result()
		if err != nil {
			return nil, err
		}
		out = append(out, keys...)
		cursor = next
		if cursor == 0 {
			break
		}
	}
	return out, nil
}

func (s *Store) Close() error {
	return s.c.Close()
}

var _ broker.Broker = (*Store)(nil)
