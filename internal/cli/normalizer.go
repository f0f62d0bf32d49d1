// SPDX-FileCopyrightText: 2025 Jon Thor Kristinsson
// SPDX-License-Identifier: Apache-2.0

package cli

import (
	"bufio"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/jontk/distsched/internal/adapter"
	"github.com/jontk/distsched/internal/normalize"
	"github.com/jontk/distsched/internal/sampler"
	"github.com/jontk/distsched/internal/span"
	"github.com/jontk/distsched/pkg/config"
	"github.com/jontk/distsched/pkg/logging"
)

// NewNormalizerCommand builds the normalizer's cobra command. It expects
// one subdirectory per node under --input-dir, each holding a node.json
// descriptor, one or more spans*.jsonl files, and a samples.jsonl file, and
// merges each into the normalized four-file bundle the exporter consumes.
func NewNormalizerCommand() *cobra.Command {
	var (
		inputDir  string
		outputDir string
		debug     bool
	)

	cmd := &cobra.Command{
		Use:   "normalizer",
		Short: "Normalize raw per-node span and sample files into CTS bundles",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := config.NewDefaultNormalizerConfig()
			cfg.Load()

			if inputDir != "" {
				cfg.InputDir = inputDir
			}
			if outputDir != "" {
				cfg.OutputDir = outputDir
			}
			if debug {
				cfg.Debug = true
			}
			if err := cfg.Validate(); err != nil {
				return err
			}

			level := slog.LevelInfo
			if cfg.Debug {
				level = slog.LevelDebug
			}
			log := logging.NewLogger(&logging.Config{Level: level, Format: logging.FormatJSON, Component: "normalizer"})

			entries, err := os.ReadDir(cfg.InputDir)
			if err != nil {
				return fmt.Errorf("reading input dir: %w", err)
			}

			var failed int
			for _, e := range entries {
				if !e.IsDir() {
					continue
				}
				node := e.Name()
				nodeDir := filepath.Join(cfg.InputDir, node)
				audit, err := normalizeNode(nodeDir, node, filepath.Join(cfg.OutputDir, node))
				if err != nil {
					failed++
					log.Error("normalize failed", "node", node, "error", err)
					continue
				}
				log.Info("normalized node", "node", node, "invocations", audit.TotalInvocations)
			}
			if failed > 0 {
				return fmt.Errorf("%d of %d nodes failed to normalize", failed, len(entries))
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&inputDir, "input-dir", "", "directory holding one subdirectory per node (env: DISTSCHED_NORMALIZE_INPUT_DIR)")
	cmd.Flags().StringVar(&outputDir, "output-dir", "", "directory normalized bundles are written into (env: DISTSCHED_NORMALIZE_OUTPUT_DIR)")
	cmd.Flags().BoolVar(&debug, "debug", false, "enable debug logging")

	return cmd
}

func normalizeNode(nodeDir, node, outDir string) (normalize.Audit, error) {
	descriptor, err := readDescriptor(nodeDir, node)
	if err != nil {
		return normalize.Audit{}, err
	}

	spanFiles, err := readSpanFiles(nodeDir)
	if err != nil {
		return normalize.Audit{}, err
	}

	samples, err := readSamples(filepath.Join(nodeDir, "samples.jsonl"))
	if err != nil {
		return normalize.Audit{}, err
	}

	return normalize.WriteBundle(outDir, descriptor, spanFiles, samples, adapter.ClockTicksPerSecond)
}

func readDescriptor(nodeDir, node string) (normalize.NodeDescriptor, error) {
	data, err := os.ReadFile(filepath.Join(nodeDir, "node.json"))
	if os.IsNotExist(err) {
		return normalize.NodeDescriptor{Node: node}, nil
	}
	if err != nil {
		return normalize.NodeDescriptor{}, fmt.Errorf("reading node.json for %s: %w", node, err)
	}
	var d normalize.NodeDescriptor
	if err := json.Unmarshal(data, &d); err != nil {
		return normalize.NodeDescriptor{}, fmt.Errorf("parsing node.json for %s: %w", node, err)
	}
	if d.Node == "" {
		d.Node = node
	}
	return d, nil
}

func readSpanFiles(nodeDir string) ([][]span.Span, error) {
	entries, err := os.ReadDir(nodeDir)
	if err != nil {
		return nil, fmt.Errorf("reading node dir: %w", err)
	}

	var out [][]span.Span
	for _, e := range entries {
		if e.IsDir() || !strings.HasPrefix(e.Name(), "spans") || !strings.HasSuffix(e.Name(), ".jsonl") {
			continue
		}
		f, err := os.Open(filepath.Join(nodeDir, e.Name()))
		if err != nil {
			return nil, fmt.Errorf("opening %s: %w", e.Name(), err)
		}
		spans, err := span.ReadAll(f)
		f.Close()
		if err != nil {
			return nil, fmt.Errorf("parsing %s: %w", e.Name(), err)
		}
		out = append(out, spans)
	}
	return out, nil
}

func readSamples(path string) ([]sampler.RawSample, error) {
	f, err := os.Open(path)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("opening samples file: %w", err)
	}
	defer f.Close()

	var out []sampler.RawSample
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 1<<20)
	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}
		var s sampler.RawSample
		if err := json.Unmarshal(line, &s); err != nil {
			return nil, fmt.Errorf("parsing sample line: %w", err)
		}
		out = append(out, s)
	}
	return out, scanner.Err()
}
