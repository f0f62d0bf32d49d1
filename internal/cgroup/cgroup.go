// SPDX-FileCopyrightText: 2025 Jon Thor Kristinsson
// SPDX-License-Identifier: Apache-2.0

// Package cgroup writes cgroup v2 resource-control files. It is split out
// from internal/adapter and internal/worker (rather than living in either)
// because both need to apply quotas: the adapter when first launching a
// unit, the worker when fair-share recompute changes an already-running
// sibling's share.
package cgroup

import (
	"fmt"
	"os"
	"path/filepath"

	distschederrors "github.com/jontk/distsched/pkg/errors"
)

// Root is the cgroup v2 mount point; overridable in tests.
var Root = "/sys/fs/cgroup"

// DefaultPeriodUs is the cpu.max period in microseconds; a quota percent is
// expressed relative to this period.
const DefaultPeriodUs = 100000

// ApplyCPUQuota writes a cgroup v2 cpu.max limit of quotaPercent% (e.g. 150
// for 1.5 cores) to the scope named unitName, creating the cgroup directory
// if it does not already exist. Missing cgroup v2 support degrades to a
// ResourceControlError the caller may log and continue past, since shared
// mode is fair-share best-effort, not a hard isolation guarantee.
func ApplyCPUQuota(unitName string, quotaPercent int) error {
	if unitName == "" || quotaPercent <= 0 {
		return nil
	}
	dir := filepath.Join(Root, unitName)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return distschederrors.NewResourceControlError(distschederrors.ErrorCodeResourceControlUnavailable, unitName, err)
	}

	quotaUs := quotaPercent * DefaultPeriodUs / 100
	limit := fmt.Sprintf("%d %d\n", quotaUs, DefaultPeriodUs)
	if err := os.WriteFile(filepath.Join(dir, "cpu.max"), []byte(limit), 0o644); err != nil {
		return distschederrors.NewResourceControlError(distschederrors.ErrorCodeResourceControlUnavailable, unitName, err)
	}
	return nil
}

// ApplyCPUWeight writes cgroup v2 cpu.weight (1-10000, proportional share
// among siblings when all are CPU-bound) to the scope named unitName.
func ApplyCPUWeight(unitName string, weight int) error {
	if unitName == "" || weight <= 0 {
		return nil
	}
	dir := filepath.Join(Root, unitName)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return distschederrors.NewResourceControlError(distschederrors.ErrorCodeResourceControlUnavailable, unitName, err)
	}
	if err := os.WriteFile(filepath.Join(dir, "cpu.weight"), []byte(fmt.Sprintf("%d\n", weight)), 0o644); err != nil {
		return distschederrors.NewResourceControlError(distschederrors.ErrorCodeResourceControlUnavailable, unitName, err)
	}
	return nil
}

// AddPID adds pid to the cgroup's process list, placing it under the
// scope's resource control.
func AddPID(unitName string, pid int) error {
	if unitName == "" {
		return nil
	}
	path := filepath.Join(Root, unitName, "cgroup.procs")
	if err := os.WriteFile(path, []byte(fmt.Sprintf("%d\n", pid)), 0o644); err != nil {
		return distschederrors.NewResourceControlError(distschederrors.ErrorCodeResourceControlUnavailable, unitName, err)
	}
	return nil
}
