// SPDX-FileCopyrightText: 2025 Jon Thor Kristinsson
// SPDX-License-Identifier: Apache-2.0

package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// PrometheusRegistry exposes the scheduler and worker's hot counters/gauges
// to a Prometheus scrape endpoint.
type PrometheusRegistry struct {
	Registry *prometheus.Registry

	CapacityOnlyDispatches prometheus.Counter
	InfeasibleTotal        prometheus.Counter
	PulseEnqueueSkewMs     prometheus.Histogram
	RunCount               *prometheus.GaugeVec
	CapAvailable           *prometheus.GaugeVec
	BrokerCallDuration     *prometheus.HistogramVec
	BrokerErrorsTotal      *prometheus.CounterVec
}

// NewPrometheusRegistry builds and registers the metric set described in
// the exporter/scheduler's observability surface.
func NewPrometheusRegistry() *PrometheusRegistry {
	reg := prometheus.NewRegistry()

	p := &PrometheusRegistry{
		Registry: reg,
		CapacityOnlyDispatches: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "distsched",
			Subsystem: "scheduler",
			Name:      "capacity_only_dispatches_total",
			Help:      "Dispatches that bypassed slot tokens due to a stale snapshot.",
		}),
		InfeasibleTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "distsched",
			Subsystem: "scheduler",
			Name:      "infeasible_total",
			Help:      "Scheduling passes that found no feasible node for the head task.",
		}),
		PulseEnqueueSkewMs: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "distsched",
			Subsystem: "dispatcher",
			Name:      "pulse_enqueue_skew_ms",
			Help:      "Difference between intended and actual enqueue time in pulse mode.",
			Buckets:   prometheus.ExponentialBuckets(1, 2, 12),
		}),
		RunCount: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: "distsched",
			Subsystem: "worker",
			Name:      "run_count",
			Help:      "Number of tasks currently executing per node.",
		}, []string{"node"}),
		CapAvailable: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: "distsched",
			Subsystem: "worker",
			Name:      "cap_available",
			Help:      "Remaining advertised vCPU capacity per node.",
		}, []string{"node"}),
		BrokerCallDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "distsched",
			Subsystem: "broker",
			Name:      "call_duration_seconds",
			Help:      "Broker round-trip latency by operation.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"op"}),
		BrokerErrorsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "distsched",
			Subsystem: "broker",
			Name:      "errors_total",
			Help:      "Broker call failures by operation.",
		}, []string{"op"}),
	}

	reg.MustRegister(
		p.CapacityOnlyDispatches,
		p.InfeasibleTotal,
		p.PulseEnqueueSkewMs,
		p.RunCount,
		p.CapAvailable,
		p.BrokerCallDuration,
		p.BrokerErrorsTotal,
	)

	return p
}
