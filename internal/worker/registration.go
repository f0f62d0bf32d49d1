// SPDX-FileCopyrightText: 2025 Jon Thor Kristinsson
// SPDX-License-Identifier: Apache-2.0

// Package worker implements the worker runtime: registration, the dispatch
// loop, per-task CPU binding and child supervision.
package worker

import (
	"context"
	"strconv"

	"github.com/jontk/distsched/internal/broker"
	"github.com/jontk/distsched/internal/schedule"
	distschederrors "github.com/jontk/distsched/pkg/errors"
)

// RegistrationOptions controls how a node publishes its capacity at
// startup.
type RegistrationOptions struct {
	Node            string
	LogicalCores    int
	AllocationRatio float64
	// CapacityOverride, if > 0, replaces the ratio*cores computation.
	CapacityOverride int
	Parallel         int
	ResetCapacity    bool
	ClearQueue       bool
}

// Register publishes a node's capacity, physical core count and allocation
// ratio, and seeds the slot pool with Parallel tokens if parallel mode is
// in use.
func Register(ctx context.Context, b broker.Broker, opts RegistrationOptions) error {
	capTotal := opts.CapacityOverride
	if capTotal <= 0 {
		capTotal = int(float64(opts.LogicalCores) * opts.AllocationRatio)
		if capTotal < 1 {
			capTotal = 1
		}
	}

	if err := b.Set(ctx, schedule.CapTotalKey(opts.Node), []byte(strconv.Itoa(capTotal))); err != nil {
		return distschederrors.NewBrokerError("set", err)
	}

	if opts.ResetCapacity {
		if err := b.Set(ctx, schedule.CapKey(opts.Node), []byte(strconv.Itoa(capTotal))); err != nil {
			return distschederrors.NewBrokerError("set", err)
		}
	} else {
		if _, err := b.SetIfAbsent(ctx, schedule.CapKey(opts.Node), []byte(strconv.Itoa(capTotal))); err != nil {
			return distschederrors.NewBrokerError("set_if_absent", err)
		}
	}

	if _, err := b.SetIfAbsent(ctx, schedule.RunCountKey(opts.Node), []byte("0")); err != nil {
		return distschederrors.NewBrokerError("set_if_absent", err)
	}
	if err := b.Set(ctx, schedule.PhysKey(opts.Node), []byte(strconv.Itoa(opts.LogicalCores))); err != nil {
		return distschederrors.NewBrokerError("set", err)
	}
	if err := b.Set(ctx, schedule.RatioKey(opts.Node), []byte(strconv.FormatFloat(opts.AllocationRatio, 'f', -1, 64))); err != nil {
		return distschederrors.NewBrokerError("set", err)
	}

	if opts.ClearQueue {
		if err := drainQueue(ctx, b, schedule.NodeQueueKey(opts.Node)); err != nil {
			return err
		}
	}

	if opts.Parallel > 0 {
		for i := 0; i < opts.Parallel; i++ {
			if err := b.AppendTail(ctx, schedule.SlotsKey, []byte(opts.Node)); err != nil {
				return distschederrors.NewBrokerError("append_tail", err)
			}
		}
	}
	return nil
}

func drainQueue(ctx context.Context, b broker.Broker, key string) error {
	for {
		_, err := b.PopHead(ctx, key)
		if err == broker.ErrEmpty {
			return nil
		}
		if err != nil {
			return distschederrors.NewBrokerError("pop_head", err)
		}
	}
}
