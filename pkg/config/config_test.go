// SPDX-FileCopyrightText: 2025 Jon Thor Kristinsson
// SPDX-License-Identifier: Apache-2.0

package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestSchedulerConfigDefaults(t *testing.T) {
	c := NewDefaultSchedulerConfig()
	assert.Equal(t, "redis://localhost:6379/0", c.BrokerAddr)
	assert.Equal(t, 200*time.Millisecond, c.PollInterval)
	assert.Equal(t, "min", c.WeigherOrder)
	assert.NoError(t, c.Validate())
}

func TestSchedulerConfigRejectsBadWeigher(t *testing.T) {
	c := NewDefaultSchedulerConfig()
	c.Weigher = "bogus"
	assert.ErrorIs(t, c.Validate(), ErrInvalidWeigher)
}

func TestSchedulerConfigRejectsBadWeigherOrder(t *testing.T) {
	c := NewDefaultSchedulerConfig()
	c.WeigherOrder = "sideways"
	assert.ErrorIs(t, c.Validate(), ErrInvalidWeigherOrder)
}

func TestSchedulerConfigRejectsMissingBroker(t *testing.T) {
	c := NewDefaultSchedulerConfig()
	c.BrokerAddr = ""
	assert.ErrorIs(t, c.Validate(), ErrMissingBrokerAddr)
}

func TestWorkerConfigRequiresNodeName(t *testing.T) {
	c := NewDefaultWorkerConfig()
	c.PhysicalCores = 8
	assert.ErrorIs(t, c.Validate(), ErrMissingNodeName)
	c.NodeName = "node-01"
	assert.NoError(t, c.Validate())
}

func TestWorkerConfigRequiresCapacity(t *testing.T) {
	c := NewDefaultWorkerConfig()
	c.NodeName = "node-01"
	assert.ErrorIs(t, c.Validate(), ErrInvalidCapacity)
	c.CapacityUnits = 4
	assert.NoError(t, c.Validate())
}

func TestDispatcherConfigRejectsBadMode(t *testing.T) {
	c := NewDefaultDispatcherConfig()
	c.Mode = "bogus"
	assert.ErrorIs(t, c.Validate(), ErrInvalidDispatcherMode)
	c.Mode = "duration-greedy"
	assert.NoError(t, c.Validate())
}

func TestNormalizerConfigRequiresDirs(t *testing.T) {
	c := NewDefaultNormalizerConfig()
	c.OutputDir = ""
	assert.ErrorIs(t, c.Validate(), ErrMissingOutputDir)
}

func TestExporterConfigRequiresDirs(t *testing.T) {
	c := NewDefaultExporterConfig()
	c.InputDir = ""
	assert.ErrorIs(t, c.Validate(), ErrMissingOutputDir)
}
