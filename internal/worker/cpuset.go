// SPDX-FileCopyrightText: 2025 Jon Thor Kristinsson
// SPDX-License-Identifier: Apache-2.0

package worker

import "fmt"

// CPUSet is an ordered set of logical core ids to pin a process to.
type CPUSet []int

// String renders the set as a taskset-style list, e.g. "0,1,2,3".
func (c CPUSet) String() string {
	s := ""
	for i, core := range c {
		if i > 0 {
			s += ","
		}
		s += fmt.Sprintf("%d", core)
	}
	return s
}

// ExclusivePools partitions a node's logical cores into fixed-size
// contiguous blocks (1, 2 and 4 cores), one pool per block size, so that
// exclusive-mode executors never share a physical core slot. Executor slot
// index i is assigned pool[i % len(pool)] within the pool matching its
// cpu_units request.
type ExclusivePools struct {
	totalCores int
	pools      map[int][]CPUSet
}

// NewExclusivePools precomputes contiguous-block pools for block sizes
// 1, 2 and 4, plus a fallback generator for any other size.
func NewExclusivePools(totalCores int) *ExclusivePools {
	p := &ExclusivePools{totalCores: totalCores, pools: make(map[int][]CPUSet)}
	for _, size := range []int{1, 2, 4} {
		p.pools[size] = buildBlocks(totalCores, size)
	}
	return p
}

func buildBlocks(totalCores, size int) []CPUSet {
	if size <= 0 || totalCores <= 0 {
		return nil
	}
	var blocks []CPUSet
	for start := 0; start+size <= totalCores; start += size {
		block := make(CPUSet, size)
		for i := 0; i < size; i++ {
			block[i] = start + i
		}
		blocks = append(blocks, block)
	}
	return blocks
}

// Assign returns the cpuset for executor slot index handling a task that
// needs cpuUnits cores. Pools rotate by slot index; if no precomputed pool
// exists for the requested size, a contiguous block is generated on demand
// (wrapping around totalCores).
func (p *ExclusivePools) Assign(slotIndex, cpuUnits int) CPUSet {
	pool, ok := p.pools[cpuUnits]
	if !ok || len(pool) == 0 {
		return p.fallbackBlock(slotIndex, cpuUnits)
	}
	return pool[slotIndex%len(pool)]
}

func (p *ExclusivePools) fallbackBlock(slotIndex, cpuUnits int) CPUSet {
	if p.totalCores <= 0 || cpuUnits <= 0 {
		return nil
	}
	start := (slotIndex * cpuUnits) % p.totalCores
	block := make(CPUSet, 0, cpuUnits)
	for i := 0; i < cpuUnits; i++ {
		block = append(block, (start+i)%p.totalCores)
	}
	return block
}
