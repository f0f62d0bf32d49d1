// SPDX-FileCopyrightText: 2025 Jon Thor Kristinsson
// SPDX-License-Identifier: Apache-2.0

package metrics

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestInMemoryCollectorRecordsDispatches(t *testing.T) {
	c := NewInMemoryCollector()
	c.RecordDispatch("node-01", 5*time.Millisecond)
	c.RecordDispatch("node-01", 7*time.Millisecond)
	c.RecordDispatch("node-02", 3*time.Millisecond)

	stats := c.GetStats()
	assert.Equal(t, int64(3), stats.TotalDispatches)
	assert.Equal(t, int64(2), stats.DispatchesByNode["node-01"])
	assert.Equal(t, int64(1), stats.DispatchesByNode["node-02"])
}

func TestInMemoryCollectorRecordsCapacityOnlyAndInfeasible(t *testing.T) {
	c := NewInMemoryCollector()
	c.RecordCapacityOnlyFallback("node-01")
	c.RecordCapacityOnlyFallback("node-01")
	c.RecordInfeasible()

	stats := c.GetStats()
	assert.Equal(t, int64(2), stats.CapacityOnlyFallbacks)
	assert.Equal(t, int64(1), stats.InfeasibleCount)
}

func TestInMemoryCollectorRecordsBrokerCalls(t *testing.T) {
	c := NewInMemoryCollector()
	c.RecordBrokerCall("blocking_pop_tail", 10*time.Millisecond, nil)
	c.RecordBrokerCall("blocking_pop_tail", 20*time.Millisecond, errors.New("timeout"))

	stats := c.GetStats()
	assert.Equal(t, int64(2), stats.TotalBrokerCalls)
	assert.Equal(t, int64(1), stats.BrokerErrors)
	assert.Equal(t, int64(2), stats.BrokerCallsByOp["blocking_pop_tail"])
	assert.Equal(t, int64(2), stats.BrokerCallDuration.Count)
	assert.Equal(t, 10*time.Millisecond, stats.BrokerCallDuration.Min)
	assert.Equal(t, 20*time.Millisecond, stats.BrokerCallDuration.Max)
}

func TestInMemoryCollectorReset(t *testing.T) {
	c := NewInMemoryCollector()
	c.RecordDispatch("node-01", time.Millisecond)
	c.RecordSamplingGap(123, 500)
	c.Reset()

	stats := c.GetStats()
	assert.Equal(t, int64(0), stats.TotalDispatches)
	assert.Equal(t, int64(0), stats.SamplingGaps)
	assert.Empty(t, stats.DispatchesByNode)
}

func TestNoOpCollectorIsSafe(t *testing.T) {
	var c Collector = NoOpCollector{}
	c.RecordDispatch("n", time.Millisecond)
	c.RecordCapacityOnlyFallback("n")
	c.RecordInfeasible()
	c.RecordBrokerCall("op", time.Millisecond, nil)
	c.RecordSamplingGap(1, 1)
	c.Reset()
	assert.NotNil(t, c.GetStats())
}

func TestDefaultCollectorFallsBackToNoOp(t *testing.T) {
	SetDefaultCollector(nil)
	assert.IsType(t, NoOpCollector{}, GetDefaultCollector())
}

func TestPrometheusRegistryRegistersMetrics(t *testing.T) {
	reg := NewPrometheusRegistry()
	reg.RunCount.WithLabelValues("node-01").Set(3)
	reg.CapAvailable.WithLabelValues("node-01").Set(12.5)
	reg.CapacityOnlyDispatches.Inc()

	families, err := reg.Registry.Gather()
	assert.NoError(t, err)
	assert.NotEmpty(t, families)
}
