// SPDX-FileCopyrightText: 2025 Jon Thor Kristinsson
// SPDX-License-Identifier: Apache-2.0

// Command exporter reads normalized CTS bundles and writes simulator-ready
// tasks.parquet, fragments.parquet and small_datacenter.json.
package main

import (
	"fmt"
	"os"

	"github.com/jontk/distsched/internal/cli"
)

func main() {
	if err := cli.NewExporterCommand().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
