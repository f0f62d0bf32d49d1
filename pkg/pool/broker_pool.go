// SPDX-FileCopyrightText: 2025 Jon Thor Kristinsson
// SPDX-License-Identifier: Apache-2.0

// Package pool manages broker client lifecycles, keyed by broker address.
// The daemons' shared broker setup in internal/cli obtains its Redis client
// from this pool; each daemon connects to a single broker address.
package pool

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/jontk/distsched/pkg/logging"
	"github.com/jontk/distsched/pkg/retry"
)

// BrokerClientPool manages redis.Client instances keyed by broker address.
type BrokerClientPool struct {
	mu      sync.RWMutex
	clients map[string]*pooledClient
	config  *PoolConfig
	logger  logging.Logger
}

type pooledClient struct {
	client   *redis.Client
	created  time.Time
	lastUsed time.Time
	useCount int64
}

// PoolConfig holds configuration shared by every broker client created by
// this pool.
type PoolConfig struct {
	// PoolSize is the per-address connection pool size handed to go-redis.
	PoolSize int

	// MinIdleConns keeps this many idle connections warm per address.
	MinIdleConns int

	// DialTimeout bounds the initial TCP+auth handshake.
	DialTimeout time.Duration

	// ReadTimeout bounds a single command's response wait, separate from
	// the broker's own blocking-pop timeout.
	ReadTimeout time.Duration

	// WriteTimeout bounds writing a command onto the wire.
	WriteTimeout time.Duration
}

// DefaultPoolConfig returns a pool configuration suitable for broker access
// from the scheduler, worker, or dispatcher daemons.
func DefaultPoolConfig() *PoolConfig {
	return &PoolConfig{
		PoolSize:     10,
		MinIdleConns: 2,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
	}
}

// NewBrokerClientPool creates a new broker client pool.
func NewBrokerClientPool(config *PoolConfig, logger logging.Logger) *BrokerClientPool {
	if config == nil {
		config = DefaultPoolConfig()
	}
	if logger == nil {
		logger = logging.NewLogger(nil)
	}

	return &BrokerClientPool{
		clients: make(map[string]*pooledClient),
		config:  config,
		logger:  logger,
	}
}

// GetClient returns a *redis.Client for addr, creating one on first use.
func (p *BrokerClientPool) GetClient(addr string) (*redis.Client, error) {
	p.mu.RLock()
	pc, exists := p.clients[addr]
	p.mu.RUnlock()

	if exists {
		p.touch(pc)
		return pc.client, nil
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if pc, exists := p.clients[addr]; exists {
		p.touch(pc)
		return pc.client, nil
	}

	opts, err := redis.ParseURL(addr)
	if err != nil {
		return nil, fmt.Errorf("parsing broker address %q: %w", addr, err)
	}
	opts.PoolSize = p.config.PoolSize
	opts.MinIdleConns = p.config.MinIdleConns
	opts.DialTimeout = p.config.DialTimeout
	opts.ReadTimeout = p.config.ReadTimeout
	opts.WriteTimeout = p.config.WriteTimeout

	client := redis.NewClient(opts)
	pc = &pooledClient{client: client, created: time.Now(), lastUsed: time.Now(), useCount: 1}
	p.clients[addr] = pc

	p.logger.Info("created new broker client", "addr", addr)
	return client, nil
}

func (p *BrokerClientPool) touch(pc *pooledClient) {
	p.mu.Lock()
	pc.lastUsed = time.Now()
	pc.useCount++
	p.mu.Unlock()
}

// Stats returns statistics about the connection pool.
func (p *BrokerClientPool) Stats() PoolStats {
	p.mu.RLock()
	defer p.mu.RUnlock()

	stats := PoolStats{
		TotalClients: len(p.clients),
		ClientStats:  make(map[string]ClientStats),
	}
	for addr, pc := range p.clients {
		stats.ClientStats[addr] = ClientStats{
			Created:  pc.created,
			LastUsed: pc.lastUsed,
			UseCount: pc.useCount,
		}
	}
	return stats
}

// CleanupIdleClients closes and removes clients unused for longer than maxIdleTime.
func (p *BrokerClientPool) CleanupIdleClients(maxIdleTime time.Duration) int {
	p.mu.Lock()
	defer p.mu.Unlock()

	removed := 0
	cutoff := time.Now().Add(-maxIdleTime)

	for addr, pc := range p.clients {
		if pc.lastUsed.Before(cutoff) {
			_ = pc.client.Close()
			delete(p.clients, addr)
			removed++
			p.logger.Info("removed idle broker client", "addr", addr, "idle_duration", time.Since(pc.lastUsed))
		}
	}
	return removed
}

// Close closes every client in the pool.
func (p *BrokerClientPool) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	var firstErr error
	for addr, pc := range p.clients {
		if err := pc.client.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
		delete(p.clients, addr)
	}
	p.logger.Info("closed all broker clients in pool")
	return firstErr
}

// PoolStats contains statistics about the connection pool.
type PoolStats struct {
	TotalClients int
	ClientStats  map[string]ClientStats
}

// ClientStats contains statistics for a single client.
type ClientStats struct {
	Created  time.Time
	LastUsed time.Time
	UseCount int64
}

// ConnectionManager runs periodic idle-client cleanup and exposes
// health-checked client lookup.
type ConnectionManager struct {
	pool            *BrokerClientPool
	cleanupInterval time.Duration
	maxIdleTime     time.Duration
	ctx             context.Context
	cancel          context.CancelFunc
	wg              sync.WaitGroup
	logger          logging.Logger
}

// NewConnectionManager creates a new connection manager over pool.
func NewConnectionManager(pool *BrokerClientPool, logger logging.Logger) *ConnectionManager {
	ctx, cancel := context.WithCancel(context.Background())
	if logger == nil {
		logger = logging.NewLogger(nil)
	}
	return &ConnectionManager{
		pool:            pool,
		cleanupInterval: 5 * time.Minute,
		maxIdleTime:     15 * time.Minute,
		ctx:             ctx,
		cancel:          cancel,
		logger:          logger,
	}
}

// Start begins the background cleanup routine.
func (cm *ConnectionManager) Start() {
	cm.wg.Add(1)
	go cm.cleanupRoutine()
}

// Stop halts the background cleanup routine and waits for it to exit.
func (cm *ConnectionManager) Stop() {
	cm.cancel()
	cm.wg.Wait()
}

func (cm *ConnectionManager) cleanupRoutine() {
	defer cm.wg.Done()

	ticker := time.NewTicker(cm.cleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if removed := cm.pool.CleanupIdleClients(cm.maxIdleTime); removed > 0 {
				cm.logger.Info("cleaned up idle broker clients", "removed", removed)
			}
		case <-cm.ctx.Done():
			return
		}
	}
}

// GetHealthyClient returns a client for addr after confirming it answers
// PING, retrying the ping with exponential backoff so a broker that's
// still coming up (daemon started before its broker container) doesn't
// fail the caller's very first connection attempt.
func (cm *ConnectionManager) GetHealthyClient(ctx context.Context, addr string) (*redis.Client, error) {
	client, err := cm.pool.GetClient(addr)
	if err != nil {
		return nil, err
	}

	policy := retry.NewExponentialBackoffPolicy().
		WithMaxRetries(5).
		WithMinWaitTime(50 * time.Millisecond).
		WithMaxWaitTime(2 * time.Second)

	if err := retry.Do(ctx, policy, func() error {
		return client.Ping(ctx).Err()
	}); err != nil {
		return nil, fmt.Errorf("broker health check failed for %q: %w", addr, err)
	}
	return client, nil
}
