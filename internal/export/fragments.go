// SPDX-FileCopyrightText: 2025 Jon Thor Kristinsson
// SPDX-License-Identifier: Apache-2.0

package export

import (
	"math"
	"sort"

	"github.com/jontk/distsched/internal/normalize"
)

// taskDerivation is the per-task intermediate state produced while walking
// one invocation's matched sample window, before ids are assigned.
type taskDerivation struct {
	submissionTime int64
	duration       int64
	memCapacity    int64
	fragments      []FragmentRecord // ids filled in later by the caller
	cpuUsages      []float64
}

// deriveTask synthesizes a task's fragments and capacity fields from its
// invocation and the node's diffed sample window [ts_start, ts_end],
// implementing §4.10's head-fragment synthesis, ε floor and
// synthetic-fragment fallback exactly as specified (cf. scenario F).
func deriveTask(inv normalize.Invocation, node normalize.NodeDescriptor, metrics []normalize.ProcMetric) taskDerivation {
	d := taskDerivation{
		submissionTime: inv.TsEnqueue,
		duration:       inv.TsEnd - inv.TsStart,
	}

	window := samplesInWindow(metrics, inv.Pid, inv.TsStart, inv.TsEnd)
	if len(window) == 0 {
		cores := 0.5 * float64(node.Cores)
		usage := math.Max(cores*float64(node.FrequencyMHz), epsilon)
		d.fragments = append(d.fragments, FragmentRecord{Duration: d.duration, CPUUsage: usage})
		d.cpuUsages = append(d.cpuUsages, usage)
		d.memCapacity = memCapacityFromDataSize(inv.BytesIn, inv.BytesOut)
		return d
	}

	var peakRSS int64
	for _, m := range window {
		if m.RSSKB > peakRSS {
			peakRSS = m.RSSKB
		}
	}
	d.memCapacity = peakRSS

	first := window[0]
	headEnd := first.TsMs - first.DtMs
	headDuration := headEnd - inv.TsStart

	firstCores := coresFromMetric(first, node.Cores)
	if headDuration > 0 {
		usage := math.Max(firstCores*float64(node.FrequencyMHz), epsilon)
		d.fragments = append(d.fragments, FragmentRecord{Duration: headDuration, CPUUsage: usage})
		d.cpuUsages = append(d.cpuUsages, usage)
	}

	for i, m := range window {
		dur := m.DtMs
		if i == 0 && headDuration <= 0 {
			// No room for a head fragment; clip the first real interval so
			// the task's total fragment span never exceeds its duration.
			dur = m.TsMs - inv.TsStart
			if dur < 0 {
				dur = 0
			}
		}
		cores := coresFromMetric(m, node.Cores)
		usage := math.Max(cores*float64(node.FrequencyMHz), epsilon)
		d.fragments = append(d.fragments, FragmentRecord{Duration: dur, CPUUsage: usage})
		d.cpuUsages = append(d.cpuUsages, usage)
	}

	return d
}

// memCapacityMinKB is the floor applied to the data-size fallback, mirroring
// the original exporter's "minimum 64MB" assumption for tasks with no
// sampled RSS.
const memCapacityMinKB = 65536

// memCapacityFromDataSize estimates mem_capacity for a task with no
// matching samples as twice its transferred bytes, in KB, floored at
// memCapacityMinKB.
func memCapacityFromDataSize(bytesIn, bytesOut int64) int64 {
	dataSizeKB := float64(bytesIn+bytesOut) / 1024
	estimate := int64(dataSizeKB * 2)
	if estimate < memCapacityMinKB {
		return memCapacityMinKB
	}
	return estimate
}

func coresFromMetric(m normalize.ProcMetric, nodeCores int) float64 {
	if m.DtMs <= 0 {
		return 0
	}
	cores := float64(m.CPUMs) / float64(m.DtMs)
	if cores > float64(nodeCores) {
		cores = float64(nodeCores)
	}
	if cores < 0 {
		cores = 0
	}
	return cores
}

func samplesInWindow(metrics []normalize.ProcMetric, pid int, start, end int64) []normalize.ProcMetric {
	var out []normalize.ProcMetric
	for _, m := range metrics {
		if m.Pid == pid && m.TsMs >= start && m.TsMs <= end {
			out = append(out, m)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].TsMs < out[j].TsMs })
	return out
}

// cpuCapacity is the per-task P95 of fragment cpu_usage values, the
// refined replacement for the initial average-utilization estimate.
func cpuCapacity(usages []float64) float64 {
	if len(usages) == 0 {
		return 0
	}
	sorted := make([]float64, len(usages))
	copy(sorted, usages)
	sort.Float64s(sorted)
	idx := int(math.Ceil(0.95*float64(len(sorted)))) - 1
	if idx < 0 {
		idx = 0
	}
	if idx >= len(sorted) {
		idx = len(sorted) - 1
	}
	return sorted[idx]
}

// recomputeCPUCount derives cpu_count from the finalized cpu_capacity,
// clamped to the node's physical core count, per §4.10's final step.
func recomputeCPUCount(capacityMHz float64, frequencyMHz, nodeCores int) int32 {
	if frequencyMHz <= 0 {
		return 1
	}
	count := int(math.Ceil(capacityMHz / float64(frequencyMHz)))
	if count < 1 {
		count = 1
	}
	if count > nodeCores {
		count = nodeCores
	}
	return int32(count)
}
