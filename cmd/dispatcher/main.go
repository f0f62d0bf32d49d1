// SPDX-FileCopyrightText: 2025 Jon Thor Kristinsson
// SPDX-License-Identifier: Apache-2.0

// Command dispatcher submits a batch of jobs under one of the assignment
// policies: round-robin/duration-greedy directly onto node queues, or
// central-fifo/central-pulse into the shared pending queue for the
// scheduler to place.
package main

import (
	"fmt"
	"os"

	"github.com/jontk/distsched/internal/cli"
)

func main() {
	if err := cli.NewDispatcherCommand().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
