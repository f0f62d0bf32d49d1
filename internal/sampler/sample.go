// SPDX-FileCopyrightText: 2025 Jon Thor Kristinsson
// SPDX-License-Identifier: Apache-2.0

// Package sampler implements the per-PID /proc sampler: a fixed-cadence,
// sleep-compensated tick that records raw CPU-tick and RSS samples for a
// tracked PID set, later diffed offline by the normalizer.
package sampler

// RawSample is one (ts, pid) observation as written to the node's raw
// sample file; cpu fields are unconverted clock ticks.
type RawSample struct {
	TsMs  int64 `json:"ts_ms"`
	Pid   int   `json:"pid"`
	Utime uint64 `json:"utime"`
	Stime uint64 `json:"stime"`
	RSSKB int64  `json:"rss_kb"`
}
