// SPDX-FileCopyrightText: 2025 Jon Thor Kristinsson
// SPDX-License-Identifier: Apache-2.0

// Package normalize implements the CTS normalizer: it merges a node's raw
// span and sample files into the four-file normalized bundle
// (nodes.json, invocations.jsonl, proc_metrics.jsonl, audit_report.md).
package normalize

// NodeDescriptor is one host's hardware facts, rounded per the bundle's
// normalization rules before being written to nodes.json.
type NodeDescriptor struct {
	Node         string `json:"node"`
	Cores        int    `json:"cores"`
	FrequencyMHz int    `json:"frequency_mhz"`
	MemoryMB     int64  `json:"memory_mb"`
	Stage        string `json:"stage,omitempty"`
}

// Invocation is the slim per-span record kept in invocations.jsonl. BytesIn
// and BytesOut are carried through (rather than dropped with the rest of
// the span's transport fields) because the exporter's mem_capacity
// data-size fallback needs them when a task has no matching samples.
type Invocation struct {
	TraceID   string `json:"trace_id"`
	Pid       int    `json:"pid"`
	TsEnqueue int64  `json:"ts_enqueue"`
	TsStart   int64  `json:"ts_start"`
	TsEnd     int64  `json:"ts_end"`
	BytesIn   int64  `json:"bytes_in"`
	BytesOut  int64  `json:"bytes_out"`
}

// ProcMetric is one diffed CPU sample as written to proc_metrics.jsonl.
type ProcMetric struct {
	TsMs  int64 `json:"ts_ms"`
	Pid   int   `json:"pid"`
	DtMs  int64 `json:"dt_ms"`
	CPUMs int64 `json:"cpu_ms"`
	RSSKB int64 `json:"rss_kb"`
}

// AllowedFiles are the only filenames permitted in a normalized bundle
// directory; emit deletes anything else found there.
var AllowedFiles = []string{"nodes.json", "invocations.jsonl", "proc_metrics.jsonl", "audit_report.md"}
