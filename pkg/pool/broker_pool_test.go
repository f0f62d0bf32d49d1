// SPDX-FileCopyrightText: 2025 Jon Thor Kristinsson
// SPDX-License-Identifier: Apache-2.0

package pool

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetClientReusesSameAddress(t *testing.T) {
	p := NewBrokerClientPool(nil, nil)
	defer p.Close()

	c1, err := p.GetClient("redis://localhost:6379/0")
	require.NoError(t, err)
	c2, err := p.GetClient("redis://localhost:6379/0")
	require.NoError(t, err)

	assert.Same(t, c1, c2)
	assert.Equal(t, 1, p.Stats().TotalClients)
}

func TestGetClientCreatesSeparateClientsPerAddress(t *testing.T) {
	p := NewBrokerClientPool(nil, nil)
	defer p.Close()

	_, err := p.GetClient("redis://localhost:6379/0")
	require.NoError(t, err)
	_, err = p.GetClient("redis://localhost:6379/1")
	require.NoError(t, err)

	assert.Equal(t, 2, p.Stats().TotalClients)
}

func TestGetClientRejectsMalformedAddress(t *testing.T) {
	p := NewBrokerClientPool(nil, nil)
	defer p.Close()

	_, err := p.GetClient("not a url \x7f")
	assert.Error(t, err)
}

func TestCleanupIdleClientsRemovesStaleEntries(t *testing.T) {
	p := NewBrokerClientPool(nil, nil)
	defer p.Close()

	_, err := p.GetClient("redis://localhost:6379/0")
	require.NoError(t, err)

	removed := p.CleanupIdleClients(-1 * time.Second)
	assert.Equal(t, 1, removed)
	assert.Equal(t, 0, p.Stats().TotalClients)
}

func TestCloseRemovesAllClients(t *testing.T) {
	p := NewBrokerClientPool(nil, nil)
	_, err := p.GetClient("redis://localhost:6379/0")
	require.NoError(t, err)

	require.NoError(t, p.Close())
	assert.Equal(t, 0, p.Stats().TotalClients)
}
