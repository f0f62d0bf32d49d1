// SPDX-FileCopyrightText: 2025 Jon Thor Kristinsson
// SPDX-License-Identifier: Apache-2.0

package task

import (
	"fmt"

	"github.com/google/uuid"
)

// Builder provides a fluent interface for constructing a Task, accumulating
// validation errors until Build is called.
type Builder struct {
	task   *Task
	errors []error
}

// NewBuilder creates a task builder for the given input/output locators.
func NewBuilder(input, output string) *Builder {
	return &Builder{
		task: &Task{
			Input:    input,
			Output:   output,
			CPUUnits: 1,
			TraceID:  uuid.NewString(),
		},
	}
}

// WithProfile sets the resolved encode profile.
func (b *Builder) WithProfile(p Profile) *Builder {
	if p.Name == "" {
		b.addError(fmt.Errorf("profile name cannot be empty"))
		return b
	}
	b.task.Profile = p
	return b
}

// WithCPUUnits sets the vCPU demand.
func (b *Builder) WithCPUUnits(units int) *Builder {
	if units < 1 {
		b.addError(fmt.Errorf("cpu_units must be >= 1, got %d", units))
		return b
	}
	b.task.CPUUnits = units
	return b
}

// WithSeq sets the strict-ordering key used under concurrent submission.
func (b *Builder) WithSeq(seq int64) *Builder {
	b.task.Seq = seq
	return b
}

// WithTraceID overrides the generated trace id, e.g. to resume a prior run.
func (b *Builder) WithTraceID(traceID string) *Builder {
	if traceID == "" {
		b.addError(fmt.Errorf("trace_id cannot be empty"))
		return b
	}
	b.task.TraceID = traceID
	return b
}

// WithTsEnqueue stamps the broker-side submission time. Callers normally
// leave this to the broker's append_tail wrapper; exposed for pulse-mode
// forced monotonic stamping.
func (b *Builder) WithTsEnqueue(tsMs int64) *Builder {
	b.task.TsEnqueue = tsMs
	return b
}

// Build returns the constructed task, or an error listing every accumulated
// validation error.
func (b *Builder) Build() (*Task, error) {
	if len(b.errors) > 0 {
		return nil, fmt.Errorf("task builder: %v", b.errors)
	}
	if err := b.task.Validate(); err != nil {
		return nil, err
	}
	return b.task, nil
}

// MustBuild builds the task, panicking on error. Intended for tests and
// fixed synthetic-workload generators where the inputs are known-good.
func (b *Builder) MustBuild() *Task {
	t, err := b.Build()
	if err != nil {
		panic(err)
	}
	return t
}

func (b *Builder) addError(err error) {
	b.errors = append(b.errors, err)
}

// Errors returns accumulated validation errors so far.
func (b *Builder) Errors() []error {
	return b.errors
}
