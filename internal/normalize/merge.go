// SPDX-FileCopyrightText: 2025 Jon Thor Kristinsson
// SPDX-License-Identifier: Apache-2.0

package normalize

import (
	"sort"

	"github.com/jontk/distsched/internal/span"
)

// MergeSpans concatenates every node's span files and sorts by
// (ts_enqueue or ts_start, pid), rewriting node/stage to the bundle's
// descriptor values so spans collected under different transient names
// still agree with nodes.json.
func MergeSpans(files [][]span.Span, node, stage string) []span.Span {
	var merged []span.Span
	for _, f := range files {
		merged = append(merged, f...)
	}

	sort.SliceStable(merged, func(i, j int) bool {
		return sortKey(merged[i]) < sortKey(merged[j]) ||
			(sortKey(merged[i]) == sortKey(merged[j]) && merged[i].Pid < merged[j].Pid)
	})

	for i := range merged {
		merged[i].Node = node
		merged[i].Stage = stage
	}
	return merged
}

func sortKey(s span.Span) int64 {
	if s.TsEnqueue != 0 {
		return s.TsEnqueue
	}
	return s.TsStart
}

// ToInvocations projects spans to the slim invocations.jsonl shape.
func ToInvocations(spans []span.Span) []Invocation {
	out := make([]Invocation, 0, len(spans))
	for _, s := range spans {
		out = append(out, Invocation{
			TraceID:   s.TraceID,
			Pid:       s.Pid,
			TsEnqueue: s.TsEnqueue,
			TsStart:   s.TsStart,
			TsEnd:     s.TsEnd,
			BytesIn:   s.BytesIn,
			BytesOut:  s.BytesOut,
		})
	}
	return out
}
