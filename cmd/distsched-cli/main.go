// SPDX-FileCopyrightText: 2025 Jon Thor Kristinsson
// SPDX-License-Identifier: Apache-2.0

// Command distsched-cli is the umbrella binary wrapping the scheduler,
// worker, dispatcher, normalizer and exporter daemons as subcommands of
// one executable, for single-binary deploys and local experimentation.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/jontk/distsched/internal/cli"
)

var (
	// Version information, set at build time.
	Version   = "dev"
	BuildTime = ""
	Commit    = ""
)

var rootCmd = &cobra.Command{
	Use:     "distsched-cli",
	Short:   "Distributed workload scheduling and CPU-tracing harness",
	Long:    `distsched-cli wraps the scheduler, worker, dispatcher, normalizer and exporter daemons as subcommands of one binary.`,
	Version: Version,
}

func init() {
	rootCmd.Version = fmt.Sprintf("%s (commit: %s, built: %s)", Version, Commit, BuildTime)

	rootCmd.AddCommand(cli.NewSchedulerCommand())
	rootCmd.AddCommand(cli.NewWorkerCommand())
	rootCmd.AddCommand(cli.NewDispatcherCommand())
	rootCmd.AddCommand(cli.NewNormalizerCommand())
	rootCmd.AddCommand(cli.NewExporterCommand())
	rootCmd.AddCommand(docsCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
