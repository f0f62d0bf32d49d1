// SPDX-FileCopyrightText: 2025 Jon Thor Kristinsson
// SPDX-License-Identifier: Apache-2.0

package cgroup

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestApplyCPUQuotaWritesCgroupFile(t *testing.T) {
	orig := Root
	Root = t.TempDir()
	defer func() { Root = orig }()

	require.NoError(t, ApplyCPUQuota("unit-1", 150))

	data, err := os.ReadFile(filepath.Join(Root, "unit-1", "cpu.max"))
	require.NoError(t, err)
	assert.Equal(t, "150000 100000\n", string(data))
}

func TestApplyCPUQuotaNoopForZeroPercent(t *testing.T) {
	orig := Root
	Root = t.TempDir()
	defer func() { Root = orig }()

	require.NoError(t, ApplyCPUQuota("unit-1", 0))
	_, err := os.Stat(filepath.Join(Root, "unit-1"))
	assert.True(t, os.IsNotExist(err))
}

func TestApplyCPUWeightWritesCgroupFile(t *testing.T) {
	orig := Root
	Root = t.TempDir()
	defer func() { Root = orig }()

	require.NoError(t, ApplyCPUWeight("unit-1", 500))

	data, err := os.ReadFile(filepath.Join(Root, "unit-1", "cpu.weight"))
	require.NoError(t, err)
	assert.Equal(t, "500\n", string(data))
}

func TestAddPIDWritesCgroupProcs(t *testing.T) {
	orig := Root
	Root = t.TempDir()
	defer func() { Root = orig }()
	require.NoError(t, os.MkdirAll(filepath.Join(Root, "unit-1"), 0o755))

	require.NoError(t, AddPID("unit-1", 4242))

	data, err := os.ReadFile(filepath.Join(Root, "unit-1", "cgroup.procs"))
	require.NoError(t, err)
	assert.Equal(t, "4242\n", string(data))
}
