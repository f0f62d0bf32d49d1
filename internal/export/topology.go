// SPDX-FileCopyrightText: 2025 Jon Thor Kristinsson
// SPDX-License-Identifier: Apache-2.0

package export

import (
	"fmt"
	"sort"

	"github.com/jontk/distsched/internal/normalize"
)

type hostSpec struct {
	cores     int
	freqMHz   int
	memoryMB  int64
}

// BuildTopology aggregates identical (cores, frequency, memory) node
// descriptors into Hxx host entries under a single cluster C01, per
// §4.10's topology rule. Host ordering is deterministic (sorted by spec)
// so repeated runs over the same node set produce byte-identical JSON.
func BuildTopology(descriptors []normalize.NodeDescriptor) Cluster {
	counts := make(map[hostSpec]int)
	for _, d := range descriptors {
		spec := hostSpec{cores: d.Cores, freqMHz: d.FrequencyMHz, memoryMB: d.MemoryMB}
		counts[spec]++
	}

	specs := make([]hostSpec, 0, len(counts))
	for s := range counts {
		specs = append(specs, s)
	}
	sort.Slice(specs, func(i, j int) bool {
		if specs[i].cores != specs[j].cores {
			return specs[i].cores < specs[j].cores
		}
		if specs[i].freqMHz != specs[j].freqMHz {
			return specs[i].freqMHz < specs[j].freqMHz
		}
		return specs[i].memoryMB < specs[j].memoryMB
	})

	hosts := make([]HostEntry, 0, len(specs))
	for i, s := range specs {
		hosts = append(hosts, HostEntry{
			Name:  fmt.Sprintf("H%02d", i+1),
			Count: counts[s],
			CPU:   CPUSpec{CoreCount: s.cores, CoreSpeed: s.freqMHz},
			Memory: MemorySpec{MemorySize: s.memoryMB * 1024 * 1024},
		})
	}

	return Cluster{Name: "C01", Count: len(descriptors), Hosts: hosts}
}
