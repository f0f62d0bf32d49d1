// SPDX-FileCopyrightText: 2025 Jon Thor Kristinsson
// SPDX-License-Identifier: Apache-2.0

package memstore

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSnapshotWritesKVAndLists(t *testing.T) {
	ctx := context.Background()
	s := New()

	require.NoError(t, s.Set(ctx, "slots:available", []byte("4")))
	require.NoError(t, s.AppendTail(ctx, "q:pending", []byte("task-1")))
	require.NoError(t, s.AppendTail(ctx, "q:pending", []byte("task-2")))

	path := filepath.Join(t.TempDir(), "dump.db")
	require.NoError(t, s.Snapshot(path))

	out, err := ReadSnapshot(path)
	require.NoError(t, err)

	assert.Equal(t, "4", out["kv:slots:available"])
	assert.Contains(t, out["list:q:pending"], "task-1")
	assert.Contains(t, out["list:q:pending"], "task-2")
}

func TestSnapshotEmptyStore(t *testing.T) {
	s := New()
	path := filepath.Join(t.TempDir(), "empty.db")
	require.NoError(t, s.Snapshot(path))

	out, err := ReadSnapshot(path)
	require.NoError(t, err)
	assert.Empty(t, out)
}

func TestReadSnapshotMissingFile(t *testing.T) {
	_, err := ReadSnapshot(filepath.Join(t.TempDir(), "nonexistent", "dump.db"))
	assert.Error(t, err)
}
