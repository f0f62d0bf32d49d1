// SPDX-FileCopyrightText: 2025 Jon Thor Kristinsson
// SPDX-License-Identifier: Apache-2.0

package sampler

import (
	"bytes"
	"fmt"
	"os"
	"strconv"
	"strings"

	distschederrors "github.com/jontk/distsched/pkg/errors"
)

// ProcRoot is the mount point read for all /proc access; overridable so
// tests can point it at a fixture tree.
var ProcRoot = "/proc"

// ReadStat reads utime, stime (clock ticks, fields 14 and 15) and RSS
// (kilobytes, via /proc/<pid>/status) for pid. Returns ErrProcGone if the
// process has exited.
func ReadStat(pid int) (utime, stime uint64, rssKB int64, err error) {
	statPath := fmt.Sprintf("%s/%d/stat", ProcRoot, pid)
	data, readErr := os.ReadFile(statPath)
	if os.IsNotExist(readErr) {
		return 0, 0, 0, distschederrors.New(distschederrors.ErrorCodeProcGone, fmt.Sprintf("pid %d: /proc entry gone", pid))
	}
	if readErr != nil {
		return 0, 0, 0, readErr
	}

	// comm is parenthesized and may itself contain spaces/parens; find
	// the last ')' and split from there.
	closeParen := bytes.LastIndexByte(data, ')')
	if closeParen < 0 || closeParen+2 >= len(data) {
		return 0, 0, 0, fmt.Errorf("sampler: malformed stat for pid %d", pid)
	}
	fields := strings.Fields(string(data[closeParen+2:]))
	// Fields after comm start at index 2 (state); utime is field 14
	// overall, i.e. index 14-3=11 here; stime is field 15, index 12.
	const utimeIdx, stimeIdx = 11, 12
	if len(fields) <= stimeIdx {
		return 0, 0, 0, fmt.Errorf("sampler: short stat for pid %d", pid)
	}
	utime, err = strconv.ParseUint(fields[utimeIdx], 10, 64)
	if err != nil {
		return 0, 0, 0, err
	}
	stime, err = strconv.ParseUint(fields[stimeIdx], 10, 64)
	if err != nil {
		return 0, 0, 0, err
	}

	rssKB, err = readRSSKB(pid)
	if err != nil {
		return 0, 0, 0, err
	}
	return utime, stime, rssKB, nil
}

func readRSSKB(pid int) (int64, error) {
	statusPath := fmt.Sprintf("%s/%d/status", ProcRoot, pid)
	data, err := os.ReadFile(statusPath)
	if os.IsNotExist(err) {
		return 0, distschederrors.New(distschederrors.ErrorCodeProcGone, fmt.Sprintf("pid %d: /proc entry gone", pid))
	}
	if err != nil {
		return 0, err
	}
	for _, line := range strings.Split(string(data), "\n") {
		if strings.HasPrefix(line, "VmRSS:") {
			fields := strings.Fields(line)
			if len(fields) < 2 {
				return 0, nil
			}
			return strconv.ParseInt(fields[1], 10, 64)
		}
	}
	return 0, nil
}

// CommandName returns the command name (/proc/<pid>/comm, trimmed) for pid.
func CommandName(pid int) (string, error) {
	commPath := fmt.Sprintf("%s/%d/comm", ProcRoot, pid)
	data, err := os.ReadFile(commPath)
	if os.IsNotExist(err) {
		return "", distschederrors.New(distschederrors.ErrorCodeProcGone, fmt.Sprintf("pid %d: /proc entry gone", pid))
	}
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(string(data)), nil
}
