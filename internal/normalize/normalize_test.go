// SPDX-FileCopyrightText: 2025 Jon Thor Kristinsson
// SPDX-License-Identifier: Apache-2.0

package normalize

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jontk/distsched/internal/sampler"
	"github.com/jontk/distsched/internal/span"
)

func TestMergeSpansSortsByTsEnqueueThenPid(t *testing.T) {
	a := []span.Span{{TraceID: "a", TsEnqueue: 20, Pid: 2}}
	b := []span.Span{{TraceID: "b", TsEnqueue: 10, Pid: 1}, {TraceID: "c", TsEnqueue: 10, Pid: 0}}

	merged := MergeSpans([][]span.Span{a, b}, "n1", "cloud")
	require.Len(t, merged, 3)
	assert.Equal(t, "c", merged[0].TraceID)
	assert.Equal(t, "b", merged[1].TraceID)
	assert.Equal(t, "a", merged[2].TraceID)
	for _, s := range merged {
		assert.Equal(t, "n1", s.Node)
		assert.Equal(t, "cloud", s.Stage)
	}
}

func TestMergeSpansFallsBackToTsStartWhenTsEnqueueZero(t *testing.T) {
	a := []span.Span{{TraceID: "late", TsStart: 50}}
	b := []span.Span{{TraceID: "early", TsStart: 10}}

	merged := MergeSpans([][]span.Span{a, b}, "n1", "")
	require.Len(t, merged, 2)
	assert.Equal(t, "early", merged[0].TraceID)
}

func TestDiffSamplesFirstSampleIsZero(t *testing.T) {
	samples := []sampler.RawSample{
		{TsMs: 1000, Pid: 1, Utime: 10, Stime: 5, RSSKB: 100},
		{TsMs: 1200, Pid: 1, Utime: 30, Stime: 15, RSSKB: 120},
	}
	metrics := DiffSamples(samples, 100)
	require.Len(t, metrics, 2)
	assert.Equal(t, int64(0), metrics[0].DtMs)
	assert.Equal(t, int64(0), metrics[0].CPUMs)
	assert.Equal(t, int64(200), metrics[1].DtMs)
	// (30+15 - 10-5) = 30 ticks; at 100 ticks/sec -> 300ms
	assert.Equal(t, int64(300), metrics[1].CPUMs)
}

func TestDiffSamplesTracksIndependentPids(t *testing.T) {
	samples := []sampler.RawSample{
		{TsMs: 1000, Pid: 1, Utime: 0, Stime: 0},
		{TsMs: 1000, Pid: 2, Utime: 0, Stime: 0},
		{TsMs: 1200, Pid: 2, Utime: 20, Stime: 0},
		{TsMs: 1200, Pid: 1, Utime: 10, Stime: 0},
	}
	metrics := DiffSamples(samples, 100)
	require.Len(t, metrics, 4)
	byPidSecond := map[int]ProcMetric{}
	for _, m := range metrics {
		if m.DtMs != 0 {
			byPidSecond[m.Pid] = m
		}
	}
	assert.Equal(t, int64(100), byPidSecond[1].CPUMs)
	assert.Equal(t, int64(200), byPidSecond[2].CPUMs)
}

func TestRoundFrequencyAndMemory(t *testing.T) {
	assert.Equal(t, 2400, RoundFrequencyMHz(2367))
	assert.Equal(t, 2400, RoundFrequencyMHz(2449))
	assert.Equal(t, int64(8192), RoundMemoryMB(8100))
}

func TestBuildAuditCountsMissingFieldsAndViolations(t *testing.T) {
	invocations := []Invocation{
		{TraceID: "a", Pid: 1, TsEnqueue: 10, TsStart: 20, TsEnd: 30},
		{TraceID: "b", Pid: 0, TsEnqueue: 0, TsStart: 0, TsEnd: 0},
		{TraceID: "c", Pid: 2, TsEnqueue: 30, TsStart: 20, TsEnd: 10}, // out of order
	}
	metrics := []ProcMetric{
		{TsMs: 100, Pid: 1, DtMs: 0},
		{TsMs: 50, Pid: 1, DtMs: -50}, // non-monotone + negative dt
		{TsMs: 200, Pid: 9, DtMs: 0},  // unmatched pid
	}

	audit := BuildAudit(invocations, metrics)
	assert.Equal(t, 3, audit.TotalInvocations)
	assert.Equal(t, 1, audit.MissingPid)
	assert.Equal(t, 1, audit.MissingTsEnqueue)
	assert.Equal(t, 1, audit.TemporalViolations)
	assert.Equal(t, 1, audit.PerPidMonotoneViolations)
	assert.Equal(t, 1, audit.NegativeDtCount)
	assert.Equal(t, 1, audit.MatchedPids)
	assert.Equal(t, 1, audit.UnmatchedSamplePids)

	md := audit.Render()
	assert.Contains(t, md, "# Audit Report")
	assert.Contains(t, md, "missing pid: 1")
}

func TestWriteBundleIsIdempotentAndPrunesExtraFiles(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "stray.tmp"), []byte("junk"), 0o644))

	descriptor := NodeDescriptor{Node: "n1", Cores: 4, FrequencyMHz: 2367, MemoryMB: 8100, Stage: "cloud"}
	spans := [][]span.Span{{{TraceID: "a", Pid: 1, TsEnqueue: 10, TsStart: 20, TsEnd: 30}}}
	samples := []sampler.RawSample{{TsMs: 100, Pid: 1, Utime: 1, Stime: 1, RSSKB: 10}}

	audit1, err := WriteBundle(dir, descriptor, spans, samples, 100)
	require.NoError(t, err)

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	names := make(map[string]bool)
	for _, e := range entries {
		names[e.Name()] = true
	}
	assert.Len(t, names, 4)
	for _, name := range AllowedFiles {
		assert.True(t, names[name], "missing allowed file %s", name)
	}
	assert.False(t, names["stray.tmp"])

	nodesData, err := os.ReadFile(filepath.Join(dir, "nodes.json"))
	require.NoError(t, err)

	audit2, err := WriteBundle(dir, descriptor, spans, samples, 100)
	require.NoError(t, err)
	assert.Equal(t, audit1, audit2)

	nodesData2, err := os.ReadFile(filepath.Join(dir, "nodes.json"))
	require.NoError(t, err)
	assert.Equal(t, nodesData, nodesData2)

	var decoded NodeDescriptor
	require.NoError(t, json.Unmarshal(nodesData, &decoded))
	assert.Equal(t, 2400, decoded.FrequencyMHz)
	assert.Equal(t, int64(8192), decoded.MemoryMB)
}
