// SPDX-FileCopyrightText: 2025 Jon Thor Kristinsson
// SPDX-License-Identifier: Apache-2.0

package cli

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReadDescriptorFallsBackToNodeName(t *testing.T) {
	dir := t.TempDir()
	d, err := readDescriptor(dir, "node-a")
	require.NoError(t, err)
	assert.Equal(t, "node-a", d.Node)
}

func TestReadDescriptorParsesJSON(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "node.json"), []byte(`{"node":"node-b","cores":4,"frequency_mhz":2400}`), 0644))

	d, err := readDescriptor(dir, "node-b")
	require.NoError(t, err)
	assert.Equal(t, 4, d.Cores)
	assert.Equal(t, 2400, d.FrequencyMHz)
}

func TestReadSpanFilesOnlyMatchesSpansGlob(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "spans-0.jsonl"), []byte(`{"trace_id":"t1","span_id":"s1","node":"n"}`+"\n"), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "node.json"), []byte(`{}`), 0644))

	groups, err := readSpanFiles(dir)
	require.NoError(t, err)
	require.Len(t, groups, 1)
	require.Len(t, groups[0], 1)
	assert.Equal(t, "t1", groups[0][0].TraceID)
}

func TestReadSamplesMissingFileReturnsNilNoError(t *testing.T) {
	samples, err := readSamples(filepath.Join(t.TempDir(), "samples.jsonl"))
	require.NoError(t, err)
	assert.Nil(t, samples)
}

func TestReadSamplesParsesLines(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "samples.jsonl")
	require.NoError(t, os.WriteFile(path, []byte(
		`{"ts_ms":1,"pid":100,"utime":5,"stime":2,"rss_kb":2048}`+"\n"+
			"\n"+
			`{"ts_ms":2,"pid":100,"utime":6,"stime":2,"rss_kb":2048}`+"\n",
	), 0644))

	samples, err := readSamples(path)
	require.NoError(t, err)
	require.Len(t, samples, 2)
	assert.Equal(t, int64(1), samples[0].TsMs)
	assert.Equal(t, uint64(6), samples[1].Utime)
}

func TestReadSamplesRejectsMalformedLine(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "samples.jsonl")
	require.NoError(t, os.WriteFile(path, []byte("not json\n"), 0644))

	_, err := readSamples(path)
	assert.Error(t, err)
}
