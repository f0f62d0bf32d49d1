// SPDX-FileCopyrightText: 2025 Jon Thor Kristinsson
// SPDX-License-Identifier: Apache-2.0

package normalize

import (
	"bufio"
	"encoding/json"
	"os"
	"path/filepath"

	"github.com/jontk/distsched/internal/sampler"
	"github.com/jontk/distsched/internal/span"
	distschederrors "github.com/jontk/distsched/pkg/errors"
)

// WriteBundle merges the node's raw span files and sample set into the
// four-file normalized bundle under dir, then deletes anything else found
// there. Running WriteBundle twice over identical inputs produces
// byte-identical output (idempotent, per the round-trip invariant).
func WriteBundle(dir string, descriptor NodeDescriptor, spanFiles [][]span.Span, samples []sampler.RawSample, clockTicksPerSecond int64) (Audit, error) {
	descriptor.FrequencyMHz = RoundFrequencyMHz(descriptor.FrequencyMHz)
	descriptor.MemoryMB = RoundMemoryMB(descriptor.MemoryMB)

	merged := MergeSpans(spanFiles, descriptor.Node, descriptor.Stage)
	invocations := ToInvocations(merged)
	metrics := DiffSamples(samples, clockTicksPerSecond)
	audit := BuildAudit(invocations, metrics)

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return Audit{}, distschederrors.NewWithCause(distschederrors.ErrorCodeSchemaViolation, "creating bundle dir", err)
	}

	if err := writeJSON(filepath.Join(dir, "nodes.json"), descriptor); err != nil {
		return Audit{}, err
	}
	if err := writeJSONLines(filepath.Join(dir, "invocations.jsonl"), invocations); err != nil {
		return Audit{}, err
	}
	if err := writeJSONLines(filepath.Join(dir, "proc_metrics.jsonl"), metrics); err != nil {
		return Audit{}, err
	}
	if err := os.WriteFile(filepath.Join(dir, "audit_report.md"), []byte(audit.Render()), 0o644); err != nil {
		return Audit{}, distschederrors.NewWithCause(distschederrors.ErrorCodeSchemaViolation, "writing audit report", err)
	}

	if err := pruneExtraFiles(dir); err != nil {
		return Audit{}, err
	}
	return audit, nil
}

func writeJSON(path string, v interface{}) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return distschederrors.NewWithCause(distschederrors.ErrorCodeSchemaViolation, "encoding "+filepath.Base(path), err)
	}
	if err := os.WriteFile(path, append(data, '\n'), 0o644); err != nil {
		return distschederrors.NewWithCause(distschederrors.ErrorCodeSchemaViolation, "writing "+filepath.Base(path), err)
	}
	return nil
}

func writeJSONLines[T any](path string, items []T) error {
	f, err := os.Create(path)
	if err != nil {
		return distschederrors.NewWithCause(distschederrors.ErrorCodeSchemaViolation, "creating "+filepath.Base(path), err)
	}
	defer f.Close()

	w := bufio.NewWriter(f)
	enc := json.NewEncoder(w)
	for _, item := range items {
		if err := enc.Encode(item); err != nil {
			return distschederrors.NewWithCause(distschederrors.ErrorCodeSchemaViolation, "encoding "+filepath.Base(path), err)
		}
	}
	return w.Flush()
}

func pruneExtraFiles(dir string) error {
	allowed := make(map[string]bool, len(AllowedFiles))
	for _, name := range AllowedFiles {
		allowed[name] = true
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		return distschederrors.NewWithCause(distschederrors.ErrorCodeSchemaViolation, "reading bundle dir", err)
	}
	for _, e := range entries {
		if e.IsDir() || allowed[e.Name()] {
			continue
		}
		if err := os.Remove(filepath.Join(dir, e.Name())); err != nil {
			return distschederrors.NewWithCause(distschederrors.ErrorCodeSchemaViolation, "pruning "+e.Name(), err)
		}
	}
	return nil
}
