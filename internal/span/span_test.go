// SPDX-FileCopyrightText: 2025 Jon Thor Kristinsson
// SPDX-License-Identifier: Apache-2.0

package span

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidateRejectsOutOfOrderTimestamps(t *testing.T) {
	assert.NoError(t, (&Span{TsEnqueue: 1, TsStart: 2, TsEnd: 3}).Validate())
	assert.Error(t, (&Span{TsEnqueue: 3, TsStart: 2, TsEnd: 1}).Validate())
	assert.Error(t, (&Span{TsEnqueue: 1, TsStart: 3, TsEnd: 2}).Validate())
}

func TestWriterAppendsOneLinePerSpan(t *testing.T) {
	path := filepath.Join(t.TempDir(), "events.jsonl")
	w, err := NewWriter(path)
	require.NoError(t, err)

	require.NoError(t, w.Append(Span{TraceID: "a", Pid: 1, TsEnqueue: 1, TsStart: 2, TsEnd: 3}))
	require.NoError(t, w.Append(Span{TraceID: "b", Pid: 2, TsEnqueue: 4, TsStart: 5, TsEnd: 6}))
	require.NoError(t, w.Close())

	w2, err := NewWriter(path)
	require.NoError(t, err)
	require.NoError(t, w2.Append(Span{TraceID: "c", Pid: 3, TsEnqueue: 7, TsStart: 8, TsEnd: 9}))
	require.NoError(t, w2.Close())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	spans, err := ReadAll(bytes.NewReader(data))
	require.NoError(t, err)
	require.Len(t, spans, 3)
	assert.Equal(t, "a", spans[0].TraceID)
	assert.Equal(t, "c", spans[2].TraceID)
}
