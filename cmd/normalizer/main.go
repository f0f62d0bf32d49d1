// SPDX-FileCopyrightText: 2025 Jon Thor Kristinsson
// SPDX-License-Identifier: Apache-2.0

// Command normalizer merges each node's raw span and sample files into the
// normalized four-file bundle the exporter consumes.
package main

import (
	"fmt"
	"os"

	"github.com/jontk/distsched/internal/cli"
)

func main() {
	if err := cli.NewNormalizerCommand().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
