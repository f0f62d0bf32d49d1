// SPDX-FileCopyrightText: 2025 Jon Thor Kristinsson
// SPDX-License-Identifier: Apache-2.0

package export

import (
	"sort"

	"github.com/jontk/distsched/internal/normalize"
)

// NodeBundle is one normalized CTS bundle's in-memory contents, as read
// from nodes.json/invocations.jsonl/proc_metrics.jsonl.
type NodeBundle struct {
	Descriptor  normalize.NodeDescriptor
	Invocations []normalize.Invocation
	Metrics     []normalize.ProcMetric
}

// Bundle is the fully built, not-yet-written simulator export.
type Bundle struct {
	Tasks     []TaskRecord
	Fragments []FragmentRecord
	Topology  Cluster
}

// Build derives the simulator bundle from one or more node bundles. Task
// processing order is the bundles' order, then each node's invocations
// sorted by ts_enqueue (stable, so equal timestamps keep their input
// order), which combined with a fixed task-id mode makes the export
// deterministic (the round-trip law in §8).
func Build(bundles []NodeBundle, idMode TaskIDMode) Bundle {
	samples := make([]nodeSample, 0, len(bundles))
	for _, b := range bundles {
		samples = append(samples, nodeSample{descriptor: b.Descriptor, invocations: b.Invocations, metrics: b.Metrics})
	}
	resolved := ResolveTaskIDMode(idMode, samples)

	var tasks []TaskRecord
	var fragments []FragmentRecord
	seq := int32(1)

	for _, b := range bundles {
		invs := make([]normalize.Invocation, len(b.Invocations))
		copy(invs, b.Invocations)
		sort.SliceStable(invs, func(i, j int) bool { return invs[i].TsEnqueue < invs[j].TsEnqueue })

		for _, inv := range invs {
			d := deriveTask(inv, b.Descriptor, b.Metrics)

			var id int32
			if resolved == TaskIDModePID {
				id = int32(inv.Pid)
			} else {
				id = seq
				seq++
			}

			capacity := cpuCapacity(d.cpuUsages)
			tasks = append(tasks, TaskRecord{
				ID:             id,
				SubmissionTime: d.submissionTime,
				Duration:       d.duration,
				CPUCount:       recomputeCPUCount(capacity, b.Descriptor.FrequencyMHz, b.Descriptor.Cores),
				CPUCapacity:    capacity,
				MemCapacity:    d.memCapacity,
			})

			for _, f := range d.fragments {
				f.ID = id
				fragments = append(fragments, f)
			}
		}
	}

	descriptors := make([]normalize.NodeDescriptor, 0, len(bundles))
	for _, b := range bundles {
		descriptors = append(descriptors, b.Descriptor)
	}

	return Bundle{Tasks: tasks, Fragments: fragments, Topology: BuildTopology(descriptors)}
}

// WriteBundle writes a built Bundle's three files under dir.
func WriteBundle(dir string, bundle Bundle) error {
	if err := WriteParquetTasks(dir, bundle.Tasks); err != nil {
		return err
	}
	if err := WriteParquetFragments(dir, bundle.Fragments); err != nil {
		return err
	}
	return WriteTopology(dir, bundle.Topology)
}
