// SPDX-FileCopyrightText: 2025 Jon Thor Kristinsson
// SPDX-License-Identifier: Apache-2.0

// Package task defines the canonical task envelope and encode profile
// shared by the dispatcher, scheduler, worker and tracing pipeline.
package task

import (
	"encoding/json"
	"fmt"
)

// Task is the immutable-once-enqueued unit of work. Fields set at
// submission time are never rewritten once Seq/TsEnqueue are assigned.
type Task struct {
	// Input and Output are opaque locators (a file path, an object-store
	// URI) interpreted by the adapter, not by the scheduler.
	Input  string `json:"input"`
	Output string `json:"output"`

	// Profile carries resolved encode parameters and thread caps.
	Profile Profile `json:"profile"`

	// CPUUnits is vCPU demand; used for capacity accounting and, in
	// exclusive mode, for core-pool selection. Must be >= 1.
	CPUUnits int `json:"cpu_units"`

	// TsEnqueue is the broker-side submission timestamp in epoch ms. Set
	// exactly once by whoever first places the task into a queue.
	TsEnqueue int64 `json:"ts_enqueue"`

	// Seq is an optional strict-ordering key for concurrent submission
	// modes; when present, head-of-pending semantics preserve it.
	Seq int64 `json:"seq,omitempty"`

	// TraceID identifies this task across span, sample and export records.
	TraceID string `json:"trace_id"`
}

// Profile holds resolved encode parameters. Extras carries forward-
// compatible fields the source system's open-ended map format allowed but
// this envelope doesn't name explicitly.
type Profile struct {
	Name       string            `json:"name"`
	Scale      string            `json:"scale,omitempty"`
	Codec      string            `json:"codec,omitempty"`
	Preset     string            `json:"preset,omitempty"`
	Quality    int               `json:"quality,omitempty"`
	ThreadCaps int               `json:"thread_caps,omitempty"`
	Extras     map[string]string `json:"extras,omitempty"`
}

// Validate checks the task envelope's required fields and invariants.
func (t *Task) Validate() error {
	if t.Input == "" {
		return fmt.Errorf("task: input is required")
	}
	if t.Output == "" {
		return fmt.Errorf("task: output is required")
	}
	if t.CPUUnits < 1 {
		return fmt.Errorf("task: cpu_units must be >= 1, got %d", t.CPUUnits)
	}
	if t.Profile.Name == "" {
		return fmt.Errorf("task: profile.name is required")
	}
	if t.TraceID == "" {
		return fmt.Errorf("task: trace_id is required")
	}
	return nil
}

// Encode marshals the task to JSON for broker storage.
func (t *Task) Encode() ([]byte, error) {
	return json.Marshal(t)
}

// Decode unmarshals a task previously written by Encode.
func Decode(data []byte) (*Task, error) {
	var t Task
	if err := json.Unmarshal(data, &t); err != nil {
		return nil, fmt.Errorf("decoding task: %w", err)
	}
	return &t, nil
}
