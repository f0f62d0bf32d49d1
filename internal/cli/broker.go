// SPDX-FileCopyrightText: 2025 Jon Thor Kristinsson
// SPDX-License-Identifier: Apache-2.0

// Package cli builds the cobra commands shared by the per-daemon binaries
// (cmd/scheduler, cmd/worker, cmd/dispatcher, cmd/normalizer, cmd/exporter)
// and the distsched-cli umbrella binary that wraps all five as subcommands.
package cli

import (
	"context"
	"fmt"
	"strings"

	"github.com/jontk/distsched/internal/broker"
	"github.com/jontk/distsched/internal/broker/memstore"
	"github.com/jontk/distsched/internal/broker/redisstore"
	"github.com/jontk/distsched/pkg/logging"
	"github.com/jontk/distsched/pkg/pool"
)

// openBroker resolves a broker connection string into a broker.Broker. The
// "memstore://" scheme selects the in-process store (tests, single-process
// demos, --dump-state inspection); anything else is treated as a Redis URL.
func openBroker(addr string, log logging.Logger) (broker.Broker, func() error, error) {
	if strings.HasPrefix(addr, "memstore://") {
		store := memstore.New()
		return store, store.Close, nil
	}

	p := pool.NewBrokerClientPool(pool.DefaultPoolConfig(), log)
	client, err := p.GetHealthyClient(context.Background(), addr)
	if err != nil {
		return nil, nil, fmt.Errorf("connecting to broker %q: %w", redactAddr(addr), err)
	}
	store := redisstore.New(client)
	return store, func() error { return p.Close() }, nil
}

// redactAddr masks credentials in a broker URL before it's logged.
func redactAddr(addr string) string {
	if i := strings.Index(addr, "@"); i >= 0 {
		if j := strings.Index(addr, "://"); j >= 0 && j+3 < i {
			return addr[:j+3] + "***" + addr[i:]
		}
	}
	return addr
}

// dumpState writes a point-in-time broker snapshot and reports whether the
// caller should exit immediately afterward (path != "").
func dumpState(b broker.Broker, path string, brokerAddr string, log logging.Logger) (bool, error) {
	if path == "" {
		return false, nil
	}
	store, ok := b.(*memstore.Store)
	if !ok {
		return true, fmt.Errorf("--dump-state requires an in-memory broker (memstore://), got %q", brokerAddr)
	}
	if err := store.Snapshot(path); err != nil {
		return true, err
	}
	log.Info("wrote dump-state snapshot", "path", path)
	return true, nil
}
