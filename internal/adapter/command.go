// SPDX-FileCopyrightText: 2025 Jon Thor Kristinsson
// SPDX-License-Identifier: Apache-2.0

// Package adapter is the instrumentation adapter: it wraps one child-process
// invocation, applies the worker's resource-control decision (exclusive
// cpuset or shared cgroup quota), and emits exactly one span record per
// invocation.
package adapter

import (
	"os"

	"github.com/jontk/distsched/internal/task"
)

// BuildArgs renders the resolved profile into a command-line argv for the
// configured executable, e.g. ffmpeg. Input/output are opaque locators the
// scheduler never interprets; only the adapter knows how to place them into
// an argv.
func BuildArgs(t *task.Task) []string {
	args := []string{"-i", t.Input}
	if t.Profile.Scale != "" {
		args = append(args, "-vf", "scale="+t.Profile.Scale)
	}
	if t.Profile.Codec != "" {
		args = append(args, "-c:v", t.Profile.Codec)
	}
	if t.Profile.Preset != "" {
		args = append(args, "-preset", t.Profile.Preset)
	}
	if t.Profile.Quality > 0 {
		args = append(args, "-crf", itoa(t.Profile.Quality))
	}
	if t.Profile.ThreadCaps > 0 {
		args = append(args, "-threads", itoa(t.Profile.ThreadCaps))
	}
	for k, v := range t.Profile.Extras {
		args = append(args, "-"+k, v)
	}
	args = append(args, t.Output)
	return args
}

func itoa(n int) string {
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

// fileSize is a best-effort stat; missing or unreadable files report 0,
// matching the wrapper's "never fail the invocation over byte accounting"
// contract.
func fileSize(path string) int64 {
	if path == "" {
		return 0
	}
	info, err := os.Stat(path)
	if err != nil {
		return 0
	}
	return info.Size()
}
