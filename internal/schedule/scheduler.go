// SPDX-FileCopyrightText: 2025 Jon Thor Kristinsson
// SPDX-License-Identifier: Apache-2.0

// Package schedule implements the central scheduler: a single-threaded
// head-of-line FIFO dispatcher that assigns the pending queue's head task to
// one feasible node per tick, under CPU-capacity and concurrency-slot
// constraints.
package schedule

import (
	"context"
	"time"

	"github.com/jontk/distsched/internal/broker"
	"github.com/jontk/distsched/internal/task"
	distschederrors "github.com/jontk/distsched/pkg/errors"
	"github.com/jontk/distsched/pkg/logging"
	"github.com/jontk/distsched/pkg/metrics"
	"github.com/jontk/distsched/pkg/watch"
)

// Config parameterizes one scheduler run.
type Config struct {
	PollInterval time.Duration
	ScanSlots    int
	Weigher      WeigherKind
	WeigherOrder Order

	// PendingKey and SlotsKeyOverride, if set, replace the default
	// "q:pending"/"slots:available" broker keys, so multiple independent
	// scheduling domains can share one broker (the CLI's --pending and
	// --slots flags).
	PendingKey       string
	SlotsKeyOverride string
}

// Scheduler runs the central-dispatch loop against a shared broker.
type Scheduler struct {
	b          broker.Broker
	cfg        Config
	weigher    Weigher
	log        logging.Logger
	metrics    metrics.Collector
	pendingKey string
	slotsKey   string
}

// New constructs a Scheduler over the given broker.
func New(b broker.Broker, cfg Config, log logging.Logger, collector metrics.Collector) *Scheduler {
	if collector == nil {
		collector = metrics.GetDefaultCollector()
	}
	pendingKey := cfg.PendingKey
	if pendingKey == "" {
		pendingKey = PendingKey
	}
	slotsKey := cfg.SlotsKeyOverride
	if slotsKey == "" {
		slotsKey = SlotsKey
	}
	return &Scheduler{
		b:          b,
		cfg:        cfg,
		weigher:    NewWeigher(cfg.Weigher, cfg.WeigherOrder),
		log:        log,
		metrics:    collector,
		pendingKey: pendingKey,
		slotsKey:   slotsKey,
	}
}

// Run drives the scheduler loop until ctx is canceled, ticking at
// cfg.PollInterval whenever a tick makes no progress.
func (s *Scheduler) Run(ctx context.Context) error {
	return watch.Loop(ctx, s.cfg.PollInterval, func(ctx context.Context) error {
		_, err := s.Tick(ctx)
		return err
	})
}

// outcome describes what one Tick did, for tests and --dump-state tooling.
type outcome int

const (
	outcomeNoOp outcome = iota
	outcomeDispatched
	outcomeDispatchedCapacityOnly
	outcomeInfeasible
)

// Tick performs one iteration of the §4.3 loop. It never blocks.
func (s *Scheduler) Tick(ctx context.Context) (outcome, error) {
	start := time.Now()

	raw, err := s.b.PeekHead(ctx, s.pendingKey)
	if err == broker.ErrEmpty {
		return outcomeNoOp, nil
	}
	if err != nil {
		return outcomeNoOp, distschederrors.NewBrokerError("peek_head", err)
	}

	tk, err := task.Decode(raw)
	if err != nil {
		return outcomeNoOp, distschederrors.NewSchemaViolationError("pending", "task", err.Error())
	}
	need := int64(tk.CPUUnits)
	if need < 1 {
		need = 1
	}

	slotNodes, slotsUsed, err := s.feasibleFromSlots(ctx, need)
	if err != nil {
		return outcomeNoOp, err
	}

	if len(slotNodes) > 0 {
		chosen := s.weigher(slotNodes)
		dispatched, err := s.tryDispatch(ctx, chosen, need, true)
		if err != nil {
			return outcomeNoOp, err
		}
		if dispatched {
			s.metrics.RecordDispatch(chosen, time.Since(start))
			return outcomeDispatched, nil
		}
	}

	// Slot snapshot yielded nothing usable (empty, or reservation raced
	// and lost); fall back to a capacity-only scan so a leaking slot
	// pool never deadlocks the queue.
	capNodes, err := s.feasibleFromCapacity(ctx, need)
	if err != nil {
		return outcomeNoOp, err
	}
	if len(capNodes) == 0 {
		s.metrics.RecordInfeasible()
		return outcomeInfeasible, nil
	}

	chosen := s.weigher(capNodes)
	dispatched, err := s.tryDispatch(ctx, chosen, need, false)
	if err != nil {
		return outcomeNoOp, err
	}
	if !dispatched {
		return outcomeInfeasible, nil
	}
	s.metrics.RecordCapacityOnlyFallback(chosen)
	_ = slotsUsed
	return outcomeDispatchedCapacityOnly, nil
}

// feasibleFromSlots snapshots up to cfg.ScanSlots rightmost slot tokens,
// tallies per-node occurrence counts, and returns the nodes with at least
// one token and sufficient capacity.
func (s *Scheduler) feasibleFromSlots(ctx context.Context, need int64) ([]nodeState, bool, error) {
	length, err := s.b.Length(ctx, s.slotsKey)
	if err != nil {
		return nil, false, distschederrors.NewBrokerError("length", err)
	}
	if length == 0 {
		return nil, false, nil
	}

	scan := int64(s.cfg.ScanSlots)
	if scan <= 0 || scan > length {
		scan = length
	}
	tokens, err := s.b.Range(ctx, s.slotsKey, -scan, -1)
	if err != nil {
		return nil, false, distschederrors.NewBrokerError("range", err)
	}

	counts := make(map[string]int)
	for _, t := range tokens {
		counts[string(t)]++
	}

	var out []nodeState
	for node, count := range counts {
		if count == 0 {
			continue
		}
		st, ok, err := s.loadNodeState(ctx, node)
		if err != nil {
			return nil, false, err
		}
		if ok && st.Cap >= need {
			out = append(out, st)
		}
	}
	return out, true, nil
}

// feasibleFromCapacity scans every registered node's capacity counter
// directly, ignoring the slot pool entirely.
func (s *Scheduler) feasibleFromCapacity(ctx context.Context, need int64) ([]nodeState, error) {
	keys, err := s.b.KeysMatching(ctx, "cap:*")
	if err != nil {
		return nil, distschederrors.NewBrokerError("keys_matching", err)
	}

	var out []nodeState
	for _, k := range keys {
		node := NodeFromCapKey(k)
		if node == "" {
			continue
		}
		st, ok, err := s.loadNodeState(ctx, node)
		if err != nil {
			return nil, err
		}
		if ok && st.Cap >= need {
			out = append(out, st)
		}
	}
	return out, nil
}

func (s *Scheduler) loadNodeState(ctx context.Context, node string) (nodeState, bool, error) {
	capVal, err := s.b.Get(ctx, CapKey(node))
	if err == broker.ErrNotFound {
		return nodeState{}, false, nil
	}
	if err != nil {
		return nodeState{}, false, distschederrors.NewBrokerError("get", err)
	}
	cap, err := parseInt64(capVal)
	if err != nil {
		return nodeState{}, false, distschederrors.NewSchemaViolationError(CapKey(node), "value", err.Error())
	}

	capTotalVal, err := s.b.Get(ctx, CapTotalKey(node))
	var capTotal int64
	if err == nil {
		capTotal, _ = parseInt64(capTotalVal)
	}

	runCountVal, err := s.b.Get(ctx, RunCountKey(node))
	var runCount int64
	if err == nil {
		runCount, _ = parseInt64(runCountVal)
	}

	return nodeState{Node: node, Cap: cap, CapTotal: capTotal, RunCount: runCount}, true, nil
}

// tryDispatch reserves capacity on node, optionally consumes a slot token,
// and commits the head task. It returns false (no error) if the capacity
// reservation raced and lost, so the caller can fall through to the next
// strategy.
func (s *Scheduler) tryDispatch(ctx context.Context, node string, need int64, consumeSlot bool) (bool, error) {
	if node == "" {
		return false, nil
	}

	capVal, err := s.b.Get(ctx, CapKey(node))
	if err != nil {
		return false, distschederrors.NewBrokerError("get", err)
	}
	cur, err := parseInt64(capVal)
	if err != nil {
		return false, distschederrors.NewSchemaViolationError(CapKey(node), "value", err.Error())
	}
	if cur < need {
		return false, nil
	}
	if _, err := s.b.IncrBy(ctx, CapKey(node), -need); err != nil {
		return false, distschederrors.NewBrokerError("incr_by", err)
	}

	if consumeSlot {
		if err := s.consumeSlot(ctx, node); err != nil {
			// Compensate: restore the capacity we just reserved and
			// surface the error so the caller retries next tick.
			_, _ = s.b.IncrBy(ctx, CapKey(node), need)
			return false, err
		}
	}

	raw, err := s.b.PopHead(ctx, s.pendingKey)
	if err == broker.ErrEmpty {
		// Someone else drained pending between our peek and now;
		// compensate and report no-op.
		_, _ = s.b.IncrBy(ctx, CapKey(node), need)
		return false, nil
	}
	if err != nil {
		_, _ = s.b.IncrBy(ctx, CapKey(node), need)
		return false, distschederrors.NewBrokerError("pop_head", err)
	}

	if err := s.b.AppendTail(ctx, NodeQueueKey(node), raw); err != nil {
		return false, distschederrors.NewBrokerError("append_tail", err)
	}
	if _, err := s.b.IncrBy(ctx, RunCountKey(node), 1); err != nil {
		return false, distschederrors.NewBrokerError("incr_by", err)
	}

	if s.log != nil {
		logging.LogDispatch(s.log, node, int(need), cur-need).Info("dispatched task")
	}
	return true, nil
}

// consumeSlot removes one occurrence of node from the slot pool. It pops the
// tail token up to length times, returning as soon as a popped token names
// node and appending any other token back onto the tail. The broker has no
// head push, so a token put back is the next one popped: only the tail
// token is examined, not the rest of the pool. When that does not surface
// node, a remove_occurrence scan removes it.
func (s *Scheduler) consumeSlot(ctx context.Context, node string) error {
	length, err := s.b.Length(ctx, s.slotsKey)
	if err != nil {
		return distschederrors.NewBrokerError("length", err)
	}

	for i := int64(0); i < length; i++ {
		// A short, non-zero timeout: the broker's blocking pop is the
		// only tail-pop primitive available, and a literal 0 would
		// block a real Redis BRPOP indefinitely if the list emptied
		// out from under us mid-rotation.
		v, err := s.b.BlockingPopTail(ctx, s.slotsKey, 10*time.Millisecond)
		if err == broker.ErrEmpty {
			break
		}
		if err != nil {
			return distschederrors.NewBrokerError("blocking_pop_tail", err)
		}
		if string(v) == node {
			return nil
		}
		if err := s.b.AppendTail(ctx, s.slotsKey, v); err != nil {
			return distschederrors.NewBrokerError("append_tail", err)
		}
	}

	// Rotation didn't surface it (token already consumed by a
	// concurrent scheduler, or it never existed); fall back to a direct
	// scan.
	removed, err := s.b.RemoveOccurrence(ctx, s.slotsKey, []byte(node), 1)
	if err != nil {
		return distschederrors.NewBrokerError("remove_occurrence", err)
	}
	if removed == 0 {
		return distschederrors.NewStaleTokenError("", node)
	}
	return nil
}
