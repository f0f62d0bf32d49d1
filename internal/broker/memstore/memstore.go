// SPDX-FileCopyrightText: 2025 Jon Thor Kristinsson
// SPDX-License-Identifier: Apache-2.0

// Package memstore is an in-process Broker implementation, used for unit
// tests and single-process demos where a real broker would be overkill.
package memstore

import (
	"bytes"
	"context"
	"sort"
	"strconv"
	"sync"
	"time"

	"github.com/jontk/distsched/internal/broker"
)

// Store is a mutex-guarded in-memory implementation of broker.Broker.
type Store struct {
	mu    sync.Mutex
	lists map[string][][]byte
	kv    map[string][]byte
}

// New creates an empty in-memory broker.
func New() *Store {
	return &Store{
		lists: make(map[string][][]byte),
		kv:    make(map[string][]byte),
	}
}

func (s *Store) AppendTail(ctx context.Context, key string, value []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := append([]byte(nil), value...)
	s.lists[key] = append(s.lists[key], cp)
	return nil
}

func (s *Store) PopHead(ctx context.Context, key string) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	l := s.lists[key]
	if len(l) == 0 {
		return nil, broker.ErrEmpty
	}
	head := l[0]
	s.lists[key] = l[1:]
	return head, nil
}

func (s *Store) PeekHead(ctx context.Context, key string) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	l := s.lists[key]
	if len(l) == 0 {
		return nil, broker.ErrEmpty
	}
	return l[0], nil
}

// BlockingPopTail removes and returns the tail element of key, waiting up
// to timeout for one to appear if the list is currently empty. Polls on a
// short fixed interval rather than relying on sync.Cond's lack of a timed
// wait; fine for the test/demo scale this implementation targets.
func (s *Store) BlockingPopTail(ctx context.Context, key string, timeout time.Duration) ([]byte, error) {
	deadline := time.Now().Add(timeout)
	const pollInterval = 10 * time.Millisecond

	for {
		s.mu.Lock()
		l := s.lists[key]
		if len(l) > 0 {
			tail := l[len(l)-1]
			s.lists[key] = l[:len(l)-1]
			s.mu.Unlock()
			return tail, nil
		}
		s.mu.Unlock()

		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if time.Now().After(deadline) {
			return nil, broker.ErrEmpty
		}

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(pollInterval):
		}
	}
}

func (s *Store) Length(ctx context.Context, key string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return int64(len(s.lists[key])), nil
}

func (s *Store) Range(ctx context.Context, key string, start, end int64) ([][]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	l := s.lists[key]
	n := int64(len(l))
	start = normalizeIndex(start, n)
	end = normalizeIndex(end, n)
	if start > end || start >= n || n == 0 {
		return nil, nil
	}
	if end >= n {
		end = n - 1
	}
	out := make([][]byte, 0, end-start+1)
	for i := start; i <= end; i++ {
		out = append(out, l[i])
	}
	return out, nil
}

func normalizeIndex(i, n int64) int64 {
	if i < 0 {
		i = n + i
	}
	if i < 0 {
		i = 0
	}
	return i
}

func (s *Store) RemoveOccurrence(ctx context.Context, key string, value []byte, count int64) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	l := s.lists[key]
	if len(l) == 0 {
		return 0, nil
	}

	var removed int64
	switch {
	case count == 0:
		var kept [][]byte
		for _, v := range l {
			if bytes.Equal(v, value) {
				removed++
				continue
			}
			kept = append(kept, v)
		}
		s.lists[key] = kept
	case count > 0:
		kept := make([][]byte, 0, len(l))
		for _, v := range l {
			if removed < count && bytes.Equal(v, value) {
				removed++
				continue
			}
			kept = append(kept, v)
		}
		s.lists[key] = kept
	default:
		limit := -count
		kept := make([][]byte, len(l))
		copy(kept, l)
		for i := len(kept) - 1; i >= 0 && removed < limit; i-- {
			if bytes.Equal(kept[i], value) {
				kept = append(kept[:i], kept[i+1:]...)
				removed++
			}
		}
		s.lists[key] = kept
	}
	return removed, nil
}

func (s *Store) Get(ctx context.Context, key string) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.kv[key]
	if !ok {
		return nil, broker.ErrNotFound
	}
	return v, nil
}

func (s *Store) Set(ctx context.Context, key string, value []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.kv[key] = append([]byte(nil), value...)
	return nil
}

func (s *Store) SetIfAbsent(ctx context.Context, key string, value []byte) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.kv[key]; ok {
		return false, nil
	}
	s.kv[key] = append([]byte(nil), value...)
	return true, nil
}

func (s *Store) IncrBy(ctx context.Context, key string, delta int64) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var current int64
	if v, ok := s.kv[key]; ok {
		parsed, err := strconv.ParseInt(string(v), 10, 64)
		if err != nil {
			return 0, err
		}
		current = parsed
	}
	current += delta
	s.kv[key] = []byte(strconv.FormatInt(current, 10))
	return current, nil
}

func (s *Store) KeysMatching(ctx context.Context, pattern string) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	matcher := globPrefixMatcher(pattern)
	var out []string
	for k := range s.kv {
		if matcher(k) {
			out = append(out, k)
		}
	}
	for k := range s.lists {
		if matcher(k) {
			out = append(out, k)
		}
	}
	sort.Strings(out)
	return out, nil
}

// globPrefixMatcher supports the "prefix*" patterns this module actually
// uses (e.g. "cap:*"); it is not a general glob implementation.
func globPrefixMatcher(pattern string) func(string) bool {
	if len(pattern) > 0 && pattern[len(pattern)-1] == '*' {
		prefix := pattern[:len(pattern)-1]
		return func(k string) bool { return len(k) >= len(prefix) && k[:len(prefix)] == prefix }
	}
	return func(k string) bool { return k == pattern }
}

func (s *Store) Close() error {
	return nil
}

var _ broker.Broker = (*Store)(nil)
