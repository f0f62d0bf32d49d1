// SPDX-FileCopyrightText: 2025 Jon Thor Kristinsson
// SPDX-License-Identifier: Apache-2.0

package normalize

import (
	"fmt"
	"strings"
)

// Audit holds the counts behind the rendered audit_report.md.
type Audit struct {
	TotalInvocations int
	MissingPid       int
	MissingTsEnqueue int
	MissingTsStart   int
	MissingTsEnd     int

	TemporalViolations  int // ts_enqueue <= ts_start <= ts_end broken
	PerPidMonotoneViolations int
	NegativeDtCount     int

	InvocationPids   int
	SamplePids       int
	MatchedPids      int
	UnmatchedSamplePids int
}

// BuildAudit computes completeness, temporal-consistency and cross-
// reference statistics over one node's normalized invocations and metrics.
func BuildAudit(invocations []Invocation, metrics []ProcMetric) Audit {
	a := Audit{TotalInvocations: len(invocations)}

	invocationPids := make(map[int]struct{})
	for _, inv := range invocations {
		if inv.Pid == 0 {
			a.MissingPid++
		} else {
			invocationPids[inv.Pid] = struct{}{}
		}
		if inv.TsEnqueue == 0 {
			a.MissingTsEnqueue++
		}
		if inv.TsStart == 0 {
			a.MissingTsStart++
		}
		if inv.TsEnd == 0 {
			a.MissingTsEnd++
		}
		if !(inv.TsEnqueue <= inv.TsStart && inv.TsStart <= inv.TsEnd) {
			a.TemporalViolations++
		}
	}
	a.InvocationPids = len(invocationPids)

	samplePids := make(map[int]struct{})
	lastTs := make(map[int]int64)
	seen := make(map[int]bool)
	for _, m := range metrics {
		samplePids[m.Pid] = struct{}{}
		if m.DtMs < 0 {
			a.NegativeDtCount++
		}
		if seen[m.Pid] && m.TsMs <= lastTs[m.Pid] {
			a.PerPidMonotoneViolations++
		}
		lastTs[m.Pid] = m.TsMs
		seen[m.Pid] = true
	}
	a.SamplePids = len(samplePids)

	for pid := range samplePids {
		if _, ok := invocationPids[pid]; ok {
			a.MatchedPids++
		} else {
			a.UnmatchedSamplePids++
		}
	}
	return a
}

// Render writes the audit as markdown, grounded on the teacher's CLI doc
// generator's plain heading/table style (no templating library needed for
// a single fixed report shape).
func (a Audit) Render() string {
	var b strings.Builder
	b.WriteString("# Audit Report\n\n")

	b.WriteString("## Field completeness\n\n")
	fmt.Fprintf(&b, "- total invocations: %d\n", a.TotalInvocations)
	fmt.Fprintf(&b, "- missing pid: %d (%.2f%%)\n", a.MissingPid, rate(a.MissingPid, a.TotalInvocations))
	fmt.Fprintf(&b, "- missing ts_enqueue: %d (%.2f%%)\n", a.MissingTsEnqueue, rate(a.MissingTsEnqueue, a.TotalInvocations))
	fmt.Fprintf(&b, "- missing ts_start: %d (%.2f%%)\n", a.MissingTsStart, rate(a.MissingTsStart, a.TotalInvocations))
	fmt.Fprintf(&b, "- missing ts_end: %d (%.2f%%)\n\n", a.MissingTsEnd, rate(a.MissingTsEnd, a.TotalInvocations))

	b.WriteString("## Temporal consistency\n\n")
	fmt.Fprintf(&b, "- ts_enqueue <= ts_start <= ts_end violations: %d\n", a.TemporalViolations)
	fmt.Fprintf(&b, "- per-pid monotone ts_ms violations: %d\n", a.PerPidMonotoneViolations)
	fmt.Fprintf(&b, "- negative dt_ms count: %d\n\n", a.NegativeDtCount)

	b.WriteString("## Cross-reference\n\n")
	fmt.Fprintf(&b, "- distinct invocation pids: %d\n", a.InvocationPids)
	fmt.Fprintf(&b, "- distinct sample pids: %d\n", a.SamplePids)
	fmt.Fprintf(&b, "- matched pids: %d (%.2f%%)\n", a.MatchedPids, rate(a.MatchedPids, a.SamplePids))
	fmt.Fprintf(&b, "- unmatched sample pids: %d\n", a.UnmatchedSamplePids)

	return b.String()
}

func rate(n, total int) float64 {
	if total == 0 {
		return 0
	}
	return 100 * float64(n) / float64(total)
}
