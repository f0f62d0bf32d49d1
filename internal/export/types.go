// SPDX-FileCopyrightText: 2025 Jon Thor Kristinsson
// SPDX-License-Identifier: Apache-2.0

// Package export builds the simulator bundle (tasks.parquet,
// fragments.parquet, small_datacenter.json) from one or more normalized
// CTS node bundles.
package export

import "github.com/jontk/distsched/internal/normalize"

// TaskIDMode selects how the exporter assigns a task's simulator id.
type TaskIDMode string

const (
	// TaskIDModePID uses the invocation's OS pid directly, when pids are
	// unique across every node in the run.
	TaskIDModePID TaskIDMode = "pid"
	// TaskIDModeSequential assigns 1..N in processing order.
	TaskIDModeSequential TaskIDMode = "sequential"
	// TaskIDModeAuto picks pid mode if safe, else falls back to sequential.
	TaskIDModeAuto TaskIDMode = "auto"
)

// TaskRecord is one row of tasks.parquet.
type TaskRecord struct {
	ID             int32   `parquet:"name=id, type=INT32"`
	SubmissionTime int64   `parquet:"name=submission_time, type=INT64"`
	Duration       int64   `parquet:"name=duration, type=INT64"`
	CPUCount       int32   `parquet:"name=cpu_count, type=INT32"`
	CPUCapacity    float64 `parquet:"name=cpu_capacity, type=DOUBLE"`
	MemCapacity    int64   `parquet:"name=mem_capacity, type=INT64"`
}

// FragmentRecord is one row of fragments.parquet.
type FragmentRecord struct {
	ID       int32   `parquet:"name=id, type=INT32"`
	Duration int64   `parquet:"name=duration, type=INT64"`
	CPUUsage float64 `parquet:"name=cpu_usage, type=DOUBLE"`
}

// CPUSpec is a host's {coreCount, coreSpeed} pair in small_datacenter.json.
type CPUSpec struct {
	CoreCount int `json:"coreCount"`
	CoreSpeed int `json:"coreSpeed"`
}

// MemorySpec is a host's memory size in small_datacenter.json.
type MemorySpec struct {
	MemorySize int64 `json:"memorySize"`
}

// HostEntry is one aggregated topology entry.
type HostEntry struct {
	Name   string     `json:"name"`
	Count  int        `json:"count"`
	CPU    CPUSpec    `json:"cpu"`
	Memory MemorySpec `json:"memory"`
}

// Cluster groups hosts under a single cluster id, matching the fixed
// C01/Hxx naming the simulator expects.
type Cluster struct {
	Name  string      `json:"name"`
	Count int         `json:"count"`
	Hosts []HostEntry `json:"hosts"`
}

// epsilon lower-bounds fragment cpu_usage so a near-idle interval never
// rounds to exactly zero, matching §4.10's synthetic-fragment floor rule.
const epsilon = 1e-6

// nodeSample is the window of one node's hardware facts carried alongside
// its invocations/metrics for per-task derivation.
type nodeSample struct {
	descriptor normalize.NodeDescriptor
	invocations []normalize.Invocation
	metrics     []normalize.ProcMetric
}
