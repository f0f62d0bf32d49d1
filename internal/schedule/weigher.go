// SPDX-FileCopyrightText: 2025 Jon Thor Kristinsson
// SPDX-License-Identifier: Apache-2.0

package schedule

import "sort"

// Order selects whether a weigher prefers the min or max of its metric.
type Order string

const (
	OrderMin Order = "min"
	OrderMax Order = "max"
)

// WeigherKind names the configured host-selection strategy.
type WeigherKind string

const (
	WeigherFirstFit      WeigherKind = "first-fit"
	WeigherInstanceCount WeigherKind = "instances"
	WeigherVCPU          WeigherKind = "vcpu"
)

// nodeState is the snapshot of per-node counters a weigher picks among.
type nodeState struct {
	Node      string
	Cap       int64
	CapTotal  int64
	RunCount  int64
}

// Weigher picks one node out of a feasible set. Ties are always broken by
// node id, lexicographically smallest first.
type Weigher func(nodes []nodeState) string

// NewWeigher builds the configured weigher. first-fit ignores order.
func NewWeigher(kind WeigherKind, order Order) Weigher {
	switch kind {
	case WeigherInstanceCount:
		return metricWeigher(order, func(n nodeState) int64 { return n.RunCount })
	case WeigherVCPU:
		return metricWeigher(order, func(n nodeState) int64 { return n.CapTotal - n.Cap })
	default:
		return firstFitWeigher
	}
}

func firstFitWeigher(nodes []nodeState) string {
	if len(nodes) == 0 {
		return ""
	}
	best := nodes[0].Node
	for _, n := range nodes[1:] {
		if n.Node < best {
			best = n.Node
		}
	}
	return best
}

func metricWeigher(order Order, metric func(nodeState) int64) Weigher {
	return func(nodes []nodeState) string {
		if len(nodes) == 0 {
			return ""
		}
		sorted := make([]nodeState, len(nodes))
		copy(sorted, nodes)
		sort.Slice(sorted, func(i, j int) bool {
			mi, mj := metric(sorted[i]), metric(sorted[j])
			if mi != mj {
				if order == OrderMax {
					return mi > mj
				}
				return mi < mj
			}
			return sorted[i].Node < sorted[j].Node
		})
		return sorted[0].Node
	}
}
