// SPDX-FileCopyrightText: 2025 Jon Thor Kristinsson
// SPDX-License-Identifier: Apache-2.0

package normalize

import (
	"sort"

	"github.com/jontk/distsched/internal/sampler"
)

// DiffSamples converts raw /proc samples into diffed CPU-time deltas: for
// each pid's sample sequence (sorted by ts_ms), dt_ms and cpu_ms are the
// deltas since that pid's previous sample; the first sample of a pid emits
// zeros, matching the sampler's restart-safe contract.
func DiffSamples(samples []sampler.RawSample, clockTicksPerSecond int64) []ProcMetric {
	if clockTicksPerSecond <= 0 {
		clockTicksPerSecond = 100
	}

	sorted := make([]sampler.RawSample, len(samples))
	copy(sorted, samples)
	sort.SliceStable(sorted, func(i, j int) bool {
		if sorted[i].TsMs != sorted[j].TsMs {
			return sorted[i].TsMs < sorted[j].TsMs
		}
		return sorted[i].Pid < sorted[j].Pid
	})

	type prevState struct {
		tsMs  int64
		ticks uint64
	}
	prev := make(map[int]prevState)

	out := make([]ProcMetric, 0, len(sorted))
	for _, s := range sorted {
		ticks := s.Utime + s.Stime
		m := ProcMetric{TsMs: s.TsMs, Pid: s.Pid, RSSKB: s.RSSKB}
		if p, ok := prev[s.Pid]; ok {
			m.DtMs = s.TsMs - p.tsMs
			m.CPUMs = (int64(ticks) - int64(p.ticks)) * 1000 / clockTicksPerSecond
		}
		prev[s.Pid] = prevState{tsMs: s.TsMs, ticks: ticks}
		out = append(out, m)
	}
	return out
}
