// SPDX-FileCopyrightText: 2025 Jon Thor Kristinsson
// SPDX-License-Identifier: Apache-2.0

package worker

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/jontk/distsched/internal/broker"
	"github.com/jontk/distsched/internal/cgroup"
	"github.com/jontk/distsched/internal/fairshare"
	"github.com/jontk/distsched/internal/schedule"
	"github.com/jontk/distsched/internal/task"
	distschederrors "github.com/jontk/distsched/pkg/errors"
	"github.com/jontk/distsched/pkg/logging"
)

// BindingMode selects the worker's CPU isolation strategy.
type BindingMode string

const (
	BindingExclusive BindingMode = "exclusive"
	BindingShared    BindingMode = "shared"
)

// Environment is the set of launch parameters the adapter receives for one
// invocation.
type Environment struct {
	RunID    string
	NodeID   string
	Stage    string
	TsEnqueue int64

	// Exclusive-mode pinning.
	CPUSet CPUSet

	// Shared-mode resource control.
	UnitName        string
	CPUQuotaPercent int
}

// Result is what the adapter reports back after a child exits.
type Result struct {
	Status int
}

// Adapter launches one instrumented child invocation and waits for it to
// exit; internal/adapter implements this for the worker.
type Adapter interface {
	Run(ctx context.Context, t *task.Task, env Environment) (Result, error)
}

// Config parameterizes one Worker.
type Config struct {
	Node            string
	Parallel        int
	CapTotal        int
	Binding         BindingMode
	FetchTimeout    time.Duration
	CPUWeightPerVCPU int
}

// Worker runs the fetch/executor loop for one node.
type Worker struct {
	b       broker.Broker
	cfg     Config
	adapter Adapter
	log     logging.Logger

	pools *ExclusivePools
	fair  *fairshare.Controller

	stopped atomic.Bool
	wg      sync.WaitGroup
}

// New constructs a Worker. poolCores is the node's logical core count, used
// to build exclusive-mode cpuset pools.
func New(b broker.Broker, cfg Config, adapter Adapter, log logging.Logger, poolCores int) *Worker {
	w := &Worker{b: b, cfg: cfg, adapter: adapter, log: log}
	if cfg.Binding == BindingExclusive {
		w.pools = NewExclusivePools(poolCores)
	} else {
		w.fair = fairshare.NewController(cfg.CapTotal)
	}
	return w
}

// Run blocks, dispatching tasks to a bounded executor pool, until ctx is
// canceled or Stop is called.
func (w *Worker) Run(ctx context.Context) error {
	poolSize := w.cfg.Parallel
	if poolSize <= 0 {
		poolSize = w.cfg.CapTotal
	}
	if poolSize <= 0 {
		poolSize = 1
	}

	slots := make(chan int, poolSize)
	for i := 0; i < poolSize; i++ {
		slots <- i
	}

	for {
		if w.stopped.Load() || ctx.Err() != nil {
			w.wg.Wait()
			return ctx.Err()
		}

		var slotIndex int
		select {
		case slotIndex = <-slots:
		case <-ctx.Done():
			w.wg.Wait()
			return ctx.Err()
		}

		raw, err := w.b.BlockingPopTail(ctx, schedule.NodeQueueKey(w.cfg.Node), w.cfg.FetchTimeout)
		if err == broker.ErrEmpty {
			slots <- slotIndex
			continue
		}
		if err == context.Canceled || err == context.DeadlineExceeded {
			slots <- slotIndex
			w.wg.Wait()
			return err
		}
		if err != nil {
			if w.log != nil {
				w.log.Warn("broker fetch error", "error", err)
			}
			slots <- slotIndex
			continue
		}

		tk, err := task.Decode(raw)
		if err != nil {
			if w.log != nil {
				w.log.Error("undecodable task dropped", "error", err)
			}
			slots <- slotIndex
			continue
		}

		w.wg.Add(1)
		go func(slotIndex int, tk *task.Task) {
			defer w.wg.Done()
			defer func() { slots <- slotIndex }()
			w.execute(ctx, slotIndex, tk)
		}(slotIndex, tk)
	}
}

// Stop signals the fetch loop to exit after in-flight executors drain.
func (w *Worker) Stop() {
	w.stopped.Store(true)
}

func (w *Worker) execute(ctx context.Context, slotIndex int, tk *task.Task) {
	env := Environment{
		NodeID:    w.cfg.Node,
		Stage:     "execute",
		TsEnqueue: tk.TsEnqueue,
	}

	var unitName string
	if w.cfg.Binding == BindingExclusive {
		env.CPUSet = w.pools.Assign(slotIndex, tk.CPUUnits)
	} else {
		unitName = fmt.Sprintf("%s-%d-%d", w.cfg.Node, slotIndex, time.Now().UnixNano())
		shares := w.fair.Admit(unitName, tk.CPUUnits)
		env.UnitName = unitName
		env.CPUQuotaPercent = quotaFor(shares, unitName)
		w.reapplyShares(ctx, shares)
	}

	_, err := w.adapter.Run(ctx, tk, env)
	if err != nil && w.log != nil {
		w.log.Warn("task execution error", "error", err, "node", w.cfg.Node)
	}

	if w.cfg.Binding == BindingShared {
		shares := w.fair.Complete(unitName)
		w.reapplyShares(ctx, shares)
	}

	w.reconcile(ctx, tk)
}

func quotaFor(shares []fairshare.Share, id string) int {
	for _, s := range shares {
		if s.ID == id {
			return s.QuotaPercent
		}
	}
	return 100
}

// reapplyShares pushes every recomputed quota onto its unit's cgroup, not
// just the newly admitted one: Admit and Complete both shrink or grow the
// shares of units that are already running, and those siblings need their
// cpu.max rewritten for the new split to take effect on the machine.
func (w *Worker) reapplyShares(ctx context.Context, shares []fairshare.Share) {
	for _, s := range shares {
		if err := cgroup.ApplyCPUQuota(s.ID, s.QuotaPercent); err != nil && w.log != nil {
			w.log.Warn("fair-share reapply failed", "unit", s.ID, "quota_percent", s.QuotaPercent, "error", err)
			continue
		}
		if w.log != nil {
			w.log.Debug("fair-share recompute", "unit", s.ID, "quota_percent", s.QuotaPercent)
		}
	}
}

// reconcile releases capacity and the slot token (if any) for a completed
// task, matching §4.4 step 3.
func (w *Worker) reconcile(ctx context.Context, tk *task.Task) {
	if _, err := w.b.IncrBy(ctx, schedule.RunCountKey(w.cfg.Node), -1); err != nil && w.log != nil {
		w.log.Warn("run_count reconciliation failed", "error", err)
	}
	if err := clampNonNegative(ctx, w.b, schedule.RunCountKey(w.cfg.Node)); err != nil && w.log != nil {
		w.log.Warn("run_count clamp failed", "error", err)
	}

	if _, err := w.b.IncrBy(ctx, schedule.CapKey(w.cfg.Node), int64(tk.CPUUnits)); err != nil && w.log != nil {
		w.log.Warn("capacity reconciliation failed", "error", err)
	}

	if w.cfg.Parallel > 0 {
		if err := w.b.AppendTail(ctx, schedule.SlotsKey, []byte(w.cfg.Node)); err != nil && w.log != nil {
			w.log.Warn("slot return failed", "error", err)
		}
	}
}

func clampNonNegative(ctx context.Context, b broker.Broker, key string) error {
	v, err := b.Get(ctx, key)
	if err == broker.ErrNotFound {
		return nil
	}
	if err != nil {
		return distschederrors.NewBrokerError("get", err)
	}
	n, err := parseInt(v)
	if err != nil {
		return nil
	}
	if n < 0 {
		return b.Set(ctx, key, []byte("0"))
	}
	return nil
}

func parseInt(b []byte) (int64, error) {
	var n int64
	_, err := fmt.Sscanf(string(b), "%d", &n)
	return n, err
}
