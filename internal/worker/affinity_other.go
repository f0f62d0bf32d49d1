// SPDX-FileCopyrightText: 2025 Jon Thor Kristinsson
// SPDX-License-Identifier: Apache-2.0

//go:build !linux

package worker

import distschederrors "github.com/jontk/distsched/pkg/errors"

// PinCPUSet is unsupported outside Linux; callers treat this as a
// resource-control-missing condition and continue unpinned (§7).
func PinCPUSet(pid int, set CPUSet) error {
	return distschederrors.NewResourceControlError(distschederrors.ErrorCodeCpusetUnavailable, "", nil)
}
