// SPDX-FileCopyrightText: 2025 Jon Thor Kristinsson
// SPDX-License-Identifier: Apache-2.0

// Package span defines the per-invocation span record emitted by the
// instrumentation adapter and any collaborating service, and consumed by
// the normalizer.
package span

import (
	"bufio"
	"encoding/json"
	"io"
	"os"

	distschederrors "github.com/jontk/distsched/pkg/errors"
)

// Span is one invocation record. Field order and names mirror the schema
// used across adapter, collaborator services and normalizer.
type Span struct {
	TraceID    string `json:"trace_id"`
	SpanID     string `json:"span_id,omitempty"`
	ParentID   string `json:"parent_id,omitempty"`
	ModuleID   string `json:"module_id,omitempty"`
	InstanceID string `json:"instance_id,omitempty"`

	TsEnqueue int64 `json:"ts_enqueue"`
	TsStart   int64 `json:"ts_start"`
	TsEnd     int64 `json:"ts_end"`

	Node  string `json:"node"`
	Stage string `json:"stage,omitempty"`

	Method string `json:"method,omitempty"`
	Path   string `json:"path,omitempty"`

	Input  string `json:"input,omitempty"`
	Output string `json:"output,omitempty"`

	Pid      int    `json:"pid"`
	Cpuset   string `json:"cpuset,omitempty"`
	BytesIn  int64  `json:"bytes_in"`
	BytesOut int64  `json:"bytes_out"`
	Status   int    `json:"status"`
}

// Validate checks the invariant ts_enqueue <= ts_start <= ts_end.
func (s *Span) Validate() error {
	if s.TsEnqueue > s.TsStart {
		return distschederrors.New(distschederrors.ErrorCodeMonotonicityViolation, "span: ts_enqueue after ts_start")
	}
	if s.TsStart > s.TsEnd {
		return distschederrors.New(distschederrors.ErrorCodeMonotonicityViolation, "span: ts_start after ts_end")
	}
	return nil
}

// Writer appends spans as JSON Lines to an append-only file, one line per
// invocation, matching the adapter's exactly-one-record contract.
type Writer struct {
	f *os.File
	w *bufio.Writer
}

// NewWriter opens (creating parent-relative) path for line-buffered append.
func NewWriter(path string) (*Writer, error) {
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, distschederrors.NewWithCause(distschederrors.ErrorCodeSpanWrite, "opening span file", err)
	}
	return &Writer{f: f, w: bufio.NewWriter(f)}, nil
}

// Append writes one span record and flushes immediately, matching the
// adapter's "append exactly one line, durably, before process exit" rule.
func (w *Writer) Append(s Span) error {
	data, err := json.Marshal(s)
	if err != nil {
		return distschederrors.NewWithCause(distschederrors.ErrorCodeSpanWrite, "encoding span", err)
	}
	if _, err := w.w.Write(data); err != nil {
		return distschederrors.NewWithCause(distschederrors.ErrorCodeSpanWrite, "writing span", err)
	}
	if err := w.w.WriteByte('\n'); err != nil {
		return distschederrors.NewWithCause(distschederrors.ErrorCodeSpanWrite, "writing span", err)
	}
	if err := w.w.Flush(); err != nil {
		return distschederrors.NewWithCause(distschederrors.ErrorCodeSpanWrite, "flushing span", err)
	}
	return w.f.Sync()
}

// Close closes the underlying file.
func (w *Writer) Close() error {
	return w.f.Close()
}

// ReadAll decodes every span in a JSON-Lines span file.
func ReadAll(r io.Reader) ([]Span, error) {
	var spans []Span
	dec := json.NewDecoder(r)
	for dec.More() {
		var s Span
		if err := dec.Decode(&s); err != nil {
			return nil, distschederrors.NewWithCause(distschederrors.ErrorCodeSchemaViolation, "decoding span", err)
		}
		spans = append(spans, s)
	}
	return spans, nil
}
