// SPDX-FileCopyrightText: 2025 Jon Thor Kristinsson
// SPDX-License-Identifier: Apache-2.0

//go:build linux

package worker

import (
	"golang.org/x/sys/unix"

	distschederrors "github.com/jontk/distsched/pkg/errors"
)

// PinCPUSet restricts pid's scheduling affinity to the given cpuset,
// taskset-equivalent exclusive-mode pinning.
func PinCPUSet(pid int, set CPUSet) error {
	if len(set) == 0 {
		return nil
	}
	var mask unix.CPUSet
	mask.Zero()
	for _, core := range set {
		mask.Set(core)
	}
	if err := unix.SchedSetaffinity(pid, &mask); err != nil {
		return distschederrors.NewResourceControlError(distschederrors.ErrorCodeCpusetUnavailable, "", err)
	}
	return nil
}
