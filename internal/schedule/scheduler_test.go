// SPDX-FileCopyrightText: 2025 Jon Thor Kristinsson
// SPDX-License-Identifier: Apache-2.0

package schedule

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jontk/distsched/internal/broker/memstore"
	"github.com/jontk/distsched/internal/task"
)

func registerNode(t *testing.T, b *memstore.Store, node string, cap, capTotal int64, parallel int) {
	t.Helper()
	ctx := context.Background()
	require.NoError(t, b.Set(ctx, CapKey(node), []byte(itoa(cap))))
	require.NoError(t, b.Set(ctx, CapTotalKey(node), []byte(itoa(capTotal))))
	require.NoError(t, b.Set(ctx, RunCountKey(node), []byte("0")))
	for i := 0; i < parallel; i++ {
		require.NoError(t, b.AppendTail(ctx, SlotsKey, []byte(node)))
	}
}

func enqueue(t *testing.T, b *memstore.Store, input string, cpuUnits int, seq int64) {
	t.Helper()
	tk, err := task.NewBuilder(input, input+".out").
		WithProfile(task.Profile{Name: "p"}).
		WithCPUUnits(cpuUnits).
		WithSeq(seq).
		Build()
	require.NoError(t, err)
	data, err := tk.Encode()
	require.NoError(t, err)
	require.NoError(t, b.AppendTail(context.Background(), PendingKey, data))
}

func itoa(n int64) string {
	if n == 0 {
		return "0"
	}
	neg := n < 0
	if neg {
		n = -n
	}
	var buf [20]byte
	i := len(buf)
	for n > 0 {
		i--
		buf[i] = byte('0' + n%10)
		n /= 10
	}
	if neg {
		i--
		buf[i] = '-'
	}
	return string(buf[i:])
}

func popNodeQueueTask(t *testing.T, b *memstore.Store, node string) *task.Task {
	t.Helper()
	raw, err := b.PopHead(context.Background(), NodeQueueKey(node))
	require.NoError(t, err)
	tk, err := task.Decode(raw)
	require.NoError(t, err)
	return tk
}

// Scenario A — FIFO order preservation.
func TestSchedulerFIFOOrderPreservation(t *testing.T) {
	b := memstore.New()
	ctx := context.Background()
	registerNode(t, b, "n1", 1, 1, 1)
	enqueue(t, b, "in0", 1, 0)
	enqueue(t, b, "in1", 1, 1)
	enqueue(t, b, "in2", 1, 2)

	sched := New(b, Config{ScanSlots: 64, Weigher: WeigherFirstFit}, nil, nil)

	for i := 0; i < 3; i++ {
		out, err := sched.Tick(ctx)
		require.NoError(t, err)
		assert.Equal(t, outcomeDispatched, out)

		tk := popNodeQueueTask(t, b, "n1")
		assert.Equal(t, int64(i), tk.Seq)

		// Simulate worker completion: release capacity before the next
		// tick so the single-capacity node becomes feasible again.
		_, err = b.IncrBy(ctx, CapKey("n1"), 1)
		require.NoError(t, err)
		require.NoError(t, b.AppendTail(ctx, SlotsKey, []byte("n1")))
	}
}

// Scenario B — capacity constraint.
func TestSchedulerCapacityConstraint(t *testing.T) {
	b := memstore.New()
	ctx := context.Background()
	registerNode(t, b, "A", 2, 2, 1)
	registerNode(t, b, "B", 3, 3, 1)
	enqueue(t, b, "in0", 3, 0)
	enqueue(t, b, "in1", 3, 1)

	sched := New(b, Config{ScanSlots: 64, Weigher: WeigherFirstFit}, nil, nil)

	out, err := sched.Tick(ctx)
	require.NoError(t, err)
	assert.NotEqual(t, outcomeInfeasible, out)

	tk := popNodeQueueTask(t, b, "B")
	assert.Equal(t, int64(0), tk.Seq)

	capA, err := b.Get(ctx, CapKey("A"))
	require.NoError(t, err)
	assert.Equal(t, "2", string(capA))

	capB, err := b.Get(ctx, CapKey("B"))
	require.NoError(t, err)
	assert.Equal(t, "0", string(capB))

	// Complete B's task; capacity returns, second task also lands on B.
	_, err = b.IncrBy(ctx, CapKey("B"), 3)
	require.NoError(t, err)
	require.NoError(t, b.AppendTail(ctx, SlotsKey, []byte("B")))

	out, err = sched.Tick(ctx)
	require.NoError(t, err)
	assert.NotEqual(t, outcomeInfeasible, out)
	tk = popNodeQueueTask(t, b, "B")
	assert.Equal(t, int64(1), tk.Seq)

	capB, err = b.Get(ctx, CapKey("B"))
	require.NoError(t, err)
	assert.Equal(t, "0", string(capB))
}

// Scenario C — stale-token fallback.
func TestSchedulerStaleTokenFallback(t *testing.T) {
	b := memstore.New()
	ctx := context.Background()
	// Stray token for a node with no capacity.
	registerNode(t, b, "stale", 0, 1, 0)
	require.NoError(t, b.AppendTail(ctx, SlotsKey, []byte("stale")))
	// A feasible node reachable only via the capacity-only scan.
	registerNode(t, b, "ready", 1, 1, 0)
	enqueue(t, b, "in0", 1, 0)

	sched := New(b, Config{ScanSlots: 64, Weigher: WeigherFirstFit}, nil, nil)

	out, err := sched.Tick(ctx)
	require.NoError(t, err)
	assert.Equal(t, outcomeDispatchedCapacityOnly, out)

	tk := popNodeQueueTask(t, b, "ready")
	assert.Equal(t, "in0", tk.Input)
}

// Scenario D — weigher: min instance-count.
func TestSchedulerWeigherMinInstanceCount(t *testing.T) {
	b := memstore.New()
	ctx := context.Background()
	registerNode(t, b, "A", 1, 1, 1)
	registerNode(t, b, "B", 1, 1, 1)
	_, err := b.IncrBy(ctx, RunCountKey("A"), 2)
	require.NoError(t, err)
	enqueue(t, b, "in0", 1, 0)

	sched := New(b, Config{ScanSlots: 64, Weigher: WeigherInstanceCount, WeigherOrder: OrderMin}, nil, nil)

	out, err := sched.Tick(ctx)
	require.NoError(t, err)
	assert.Equal(t, outcomeDispatched, out)

	tk := popNodeQueueTask(t, b, "B")
	assert.Equal(t, "in0", tk.Input)
}

func TestSchedulerEmptyPendingIsNoOp(t *testing.T) {
	b := memstore.New()
	ctx := context.Background()
	registerNode(t, b, "A", 1, 1, 1)

	sched := New(b, Config{ScanSlots: 64, Weigher: WeigherFirstFit}, nil, nil)
	out, err := sched.Tick(ctx)
	require.NoError(t, err)
	assert.Equal(t, outcomeNoOp, out)

	capA, err := b.Get(ctx, CapKey("A"))
	require.NoError(t, err)
	assert.Equal(t, "1", string(capA))
}

func TestSchedulerCPUUnitsExceedingCapacityNeverChosen(t *testing.T) {
	b := memstore.New()
	ctx := context.Background()
	registerNode(t, b, "small", 1, 1, 1)
	enqueue(t, b, "in0", 2, 0)

	sched := New(b, Config{ScanSlots: 64, Weigher: WeigherFirstFit}, nil, nil)
	out, err := sched.Tick(ctx)
	require.NoError(t, err)
	assert.Equal(t, outcomeInfeasible, out)

	capSmall, err := b.Get(ctx, CapKey("small"))
	require.NoError(t, err)
	assert.Equal(t, "1", string(capSmall))
}
