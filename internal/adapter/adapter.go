// SPDX-FileCopyrightText: 2025 Jon Thor Kristinsson
// SPDX-License-Identifier: Apache-2.0

package adapter

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"time"

	"github.com/jontk/distsched/internal/cgroup"
	"github.com/jontk/distsched/internal/span"
	"github.com/jontk/distsched/internal/spanstream"
	"github.com/jontk/distsched/internal/task"
	"github.com/jontk/distsched/internal/worker"
	"github.com/jontk/distsched/pkg/logging"
)

// Config parameterizes one Adapter instance, shared by every invocation it
// wraps on a node.
type Config struct {
	// Executable is the wrapped binary, e.g. "ffmpeg".
	Executable string

	// SpanPath is the node's span file; one JSON line appended per
	// invocation, regardless of exit status.
	SpanPath string

	// SentinelDir is the whitelist-sampler's PID sentinel directory; empty
	// disables sentinel lifecycle management (scan-mode sampling).
	SentinelDir string
}

// Adapter wraps one child-process invocation per Run call and satisfies
// worker.Adapter.
type Adapter struct {
	cfg Config
	log logging.Logger
	hub *spanstream.Hub
}

// New constructs an Adapter.
func New(cfg Config, log logging.Logger) *Adapter {
	return &Adapter{cfg: cfg, log: log}
}

// WithHub attaches a live span-tail websocket hub; every span this adapter
// appends is also published to hub's connected dashboard clients.
func (a *Adapter) WithHub(hub *spanstream.Hub) *Adapter {
	a.hub = hub
	return a
}

// Run launches the wrapped executable, applies the worker's resource
// control decision, waits for it to exit, and appends exactly one span
// record before returning.
func (a *Adapter) Run(ctx context.Context, t *task.Task, env worker.Environment) (worker.Result, error) {
	args := BuildArgs(t)
	cmd := exec.CommandContext(ctx, a.cfg.Executable, args...)
	cmd.Cancel = func() error { return cmd.Process.Signal(os.Interrupt) }

	bytesIn := fileSize(t.Input)

	if err := cmd.Start(); err != nil {
		a.appendFailedSpan(t, env, err)
		return worker.Result{Status: -1}, err
	}
	pid := cmd.Process.Pid

	if err := a.createSentinel(pid); err != nil && a.log != nil {
		a.log.Warn("sentinel create failed", "pid", pid, "error", err)
	}
	defer a.removeSentinel(pid)

	if len(env.CPUSet) > 0 {
		if err := worker.PinCPUSet(pid, env.CPUSet); err != nil && a.log != nil {
			a.log.Warn("cpuset pin failed", "pid", pid, "error", err)
		}
	} else if env.UnitName != "" {
		if err := cgroup.AddPID(env.UnitName, pid); err != nil && a.log != nil {
			a.log.Warn("cgroup attach failed", "unit", env.UnitName, "error", err)
		}
		if err := cgroup.ApplyCPUQuota(env.UnitName, env.CPUQuotaPercent); err != nil && a.log != nil {
			a.log.Warn("cpu quota apply failed", "unit", env.UnitName, "error", err)
		}
	}

	tsStart := ProcStartEpochMs(pid)
	waitErr := cmd.Wait()
	tsEnd := time.Now().UnixMilli()

	status := 0
	if waitErr != nil {
		if exitErr, ok := waitErr.(*exec.ExitError); ok {
			status = exitErr.ExitCode()
		} else {
			status = -1
		}
	}

	tsEnqueue := env.TsEnqueue
	if tsEnqueue == 0 {
		tsEnqueue = tsStart
	}

	s := span.Span{
		TraceID:   t.TraceID,
		ModuleID:  a.cfg.Executable,
		TsEnqueue: tsEnqueue,
		TsStart:   tsStart,
		TsEnd:     tsEnd,
		Node:      env.NodeID,
		Stage:     env.Stage,
		Method:    "CLI",
		Path:      a.cfg.Executable,
		Input:     filepath.Base(t.Input),
		Output:    filepath.Base(t.Output),
		Pid:       pid,
		Cpuset:    env.CPUSet.String(),
		BytesIn:   bytesIn,
		BytesOut:  fileSize(t.Output),
		Status:    status,
	}
	if err := a.appendSpan(s); err != nil && a.log != nil {
		a.log.Error("span append failed", "trace_id", t.TraceID, "error", err)
	}
	if a.hub != nil {
		a.hub.Publish(s)
	}

	return worker.Result{Status: status}, nil
}

// appendFailedSpan records a span for invocations that never successfully
// started, so the normalizer's completeness audit still sees one record.
func (a *Adapter) appendFailedSpan(t *task.Task, env worker.Environment, startErr error) {
	now := time.Now().UnixMilli()
	s := span.Span{
		TraceID:   t.TraceID,
		ModuleID:  a.cfg.Executable,
		TsEnqueue: env.TsEnqueue,
		TsStart:   now,
		TsEnd:     now,
		Node:      env.NodeID,
		Stage:     env.Stage,
		Method:    "CLI",
		Path:      a.cfg.Executable,
		Input:     filepath.Base(t.Input),
		Output:    filepath.Base(t.Output),
		Status:    -1,
	}
	if err := a.appendSpan(s); err != nil && a.log != nil {
		a.log.Error("span append failed", "trace_id", t.TraceID, "error", startErr, "append_error", err)
	}
	if a.hub != nil {
		a.hub.Publish(s)
	}
}

func (a *Adapter) appendSpan(s span.Span) error {
	w, err := span.NewWriter(a.cfg.SpanPath)
	if err != nil {
		return err
	}
	defer w.Close()
	return w.Append(s)
}

func (a *Adapter) createSentinel(pid int) error {
	if a.cfg.SentinelDir == "" {
		return nil
	}
	if err := os.MkdirAll(a.cfg.SentinelDir, 0o755); err != nil {
		return err
	}
	return os.WriteFile(filepath.Join(a.cfg.SentinelDir, fmt.Sprintf("%d", pid)), nil, 0o644)
}

func (a *Adapter) removeSentinel(pid int) {
	if a.cfg.SentinelDir == "" {
		return
	}
	_ = os.Remove(filepath.Join(a.cfg.SentinelDir, fmt.Sprintf("%d", pid)))
}
