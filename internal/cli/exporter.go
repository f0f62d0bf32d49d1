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

	"github.com/spf13/cobra"

	"github.com/jontk/distsched/internal/export"
	"github.com/jontk/distsched/internal/normalize"
	"github.com/jontk/distsched/pkg/config"
	"github.com/jontk/distsched/pkg/logging"
)

// NewExporterCommand builds the exporter's cobra command. It reads the
// normalized CTS bundles under --input-dir (one subdirectory per node, as
// written by the normalizer) and writes the simulator-ready
// tasks.parquet, fragments.parquet and small_datacenter.json under
// --output-dir.
func NewExporterCommand() *cobra.Command {
	var (
		inputDir  string
		outputDir string
		idMode    string
		debug     bool
	)

	cmd := &cobra.Command{
		Use:   "exporter",
		Short: "Export normalized CTS bundles to simulator-ready parquet/JSON",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := config.NewDefaultExporterConfig()
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
			log := logging.NewLogger(&logging.Config{Level: level, Format: logging.FormatJSON, Component: "exporter"})

			mode := export.TaskIDMode(idMode)
			switch mode {
			case export.TaskIDModePID, export.TaskIDModeSequential, export.TaskIDModeAuto:
			default:
				return fmt.Errorf("--task-id-mode: invalid value %q", idMode)
			}

			entries, err := os.ReadDir(cfg.InputDir)
			if err != nil {
				return fmt.Errorf("reading input dir: %w", err)
			}

			var bundles []export.NodeBundle
			for _, e := range entries {
				if !e.IsDir() {
					continue
				}
				nodeDir := filepath.Join(cfg.InputDir, e.Name())
				b, err := readNodeBundle(nodeDir)
				if err != nil {
					return fmt.Errorf("reading bundle %s: %w", e.Name(), err)
				}
				bundles = append(bundles, b)
			}
			if len(bundles) == 0 {
				return fmt.Errorf("no normalized bundles found under %s", cfg.InputDir)
			}

			built := export.Build(bundles, mode)
			if err := os.MkdirAll(cfg.OutputDir, 0o755); err != nil {
				return fmt.Errorf("creating output dir: %w", err)
			}
			if err := export.WriteBundle(cfg.OutputDir, built); err != nil {
				return err
			}

			log.Info("export complete", "nodes", len(bundles), "tasks", len(built.Tasks), "fragments", len(built.Fragments))
			return nil
		},
	}

	cmd.Flags().StringVar(&inputDir, "input-dir", "", "directory holding one normalized bundle subdirectory per node (env: DISTSCHED_EXPORT_INPUT_DIR)")
	cmd.Flags().StringVar(&outputDir, "output-dir", "", "directory the export files are written into (env: DISTSCHED_EXPORT_OUTPUT_DIR)")
	cmd.Flags().StringVar(&idMode, "task-id-mode", "auto", "pid, sequential, or auto")
	cmd.Flags().BoolVar(&debug, "debug", false, "enable debug logging")

	return cmd
}

func readNodeBundle(dir string) (export.NodeBundle, error) {
	var b export.NodeBundle

	descData, err := os.ReadFile(filepath.Join(dir, "nodes.json"))
	if err != nil {
		return b, fmt.Errorf("reading nodes.json: %w", err)
	}
	if err := json.Unmarshal(descData, &b.Descriptor); err != nil {
		return b, fmt.Errorf("parsing nodes.json: %w", err)
	}

	invocations, err := readJSONLines[normalize.Invocation](filepath.Join(dir, "invocations.jsonl"))
	if err != nil {
		return b, err
	}
	b.Invocations = invocations

	metrics, err := readJSONLines[normalize.ProcMetric](filepath.Join(dir, "proc_metrics.jsonl"))
	if err != nil {
		return b, err
	}
	b.Metrics = metrics

	return b, nil
}

func readJSONLines[T any](path string) ([]T, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening %s: %w", filepath.Base(path), err)
	}
	defer f.Close()

	var out []T
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 1<<20)
	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}
		var item T
		if err := json.Unmarshal(line, &item); err != nil {
			return nil, fmt.Errorf("parsing %s: %w", filepath.Base(path), err)
		}
		out = append(out, item)
	}
	return out, scanner.Err()
}
