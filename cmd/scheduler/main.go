// SPDX-FileCopyrightText: 2025 Jon Thor Kristinsson
// SPDX-License-Identifier: Apache-2.0

// Command scheduler runs the central head-of-line dispatch loop against a
// shared broker.
package main

import (
	"fmt"
	"os"

	"github.com/jontk/distsched/internal/cli"
)

func main() {
	if err := cli.NewSchedulerCommand().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
