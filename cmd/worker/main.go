// SPDX-FileCopyrightText: 2025 Jon Thor Kristinsson
// SPDX-License-Identifier: Apache-2.0

// Command worker runs one node's fetch/executor loop: it registers the
// node's capacity, then launches one instrumented child invocation per
// dispatched task under exclusive cpuset pinning or shared cgroup quotas.
package main

import (
	"fmt"
	"os"

	"github.com/jontk/distsched/internal/cli"
)

func main() {
	if err := cli.NewWorkerCommand().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
