// SPDX-FileCopyrightText: 2025 Jon Thor Kristinsson
// SPDX-License-Identifier: Apache-2.0

package adapter

import (
	"bytes"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// ClockTicksPerSecond is USER_HZ; 100 on every Linux architecture this
// module targets. Overridable for tests.
var ClockTicksPerSecond int64 = 100

// ProcRoot is the mount point read for /proc access; overridable in tests.
var ProcRoot = "/proc"

// ProcStartEpochMs computes a process's start time in epoch ms from its
// /proc/<pid>/stat starttime (field 22, clock ticks since boot) and the
// system boot time in /proc/stat's btime line. This is more accurate than
// wall-clock capture taken after Start() returns, since the scheduler may
// have queued the fork for some time. Falls back to now() if /proc is
// unavailable (e.g. non-Linux).
func ProcStartEpochMs(pid int) int64 {
	startTicks, err := readStartTicks(pid)
	if err != nil {
		return time.Now().UnixMilli()
	}
	btime, err := readBootTime()
	if err != nil {
		return time.Now().UnixMilli()
	}
	startSec := float64(btime) + float64(startTicks)/float64(ClockTicksPerSecond)
	return int64(startSec * 1000.0)
}

func readStartTicks(pid int) (int64, error) {
	data, err := os.ReadFile(fmt.Sprintf("%s/%d/stat", ProcRoot, pid))
	if err != nil {
		return 0, err
	}
	closeParen := bytes.LastIndexByte(data, ')')
	if closeParen < 0 || closeParen+2 >= len(data) {
		return 0, fmt.Errorf("adapter: malformed stat for pid %d", pid)
	}
	fields := strings.Fields(string(data[closeParen+2:]))
	// starttime is field 22 overall; after comm, index = 22-3 = 19.
	const startTimeIdx = 19
	if len(fields) <= startTimeIdx {
		return 0, fmt.Errorf("adapter: short stat for pid %d", pid)
	}
	return strconv.ParseInt(fields[startTimeIdx], 10, 64)
}

func readBootTime() (int64, error) {
	data, err := os.ReadFile(ProcRoot + "/stat")
	if err != nil {
		return 0, err
	}
	for _, line := range strings.Split(string(data), "\n") {
		if strings.HasPrefix(line, "btime ") {
			fields := strings.Fields(line)
			if len(fields) < 2 {
				return 0, fmt.Errorf("adapter: malformed btime line")
			}
			return strconv.ParseInt(fields[1], 10, 64)
		}
	}
	return 0, fmt.Errorf("adapter: no btime line in /proc/stat")
}
