// SPDX-FileCopyrightText: 2025 Jon Thor Kristinsson
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"fmt"
	"log"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"github.com/spf13/cobra/doc"
)

var (
	docsOutputDir string
	docsFormat    string
)

func init() {
	docsCmd.Flags().StringVarP(&docsOutputDir, "output", "o", "./docs/cli", "Output directory for documentation")
	docsCmd.Flags().StringVarP(&docsFormat, "format", "f", "markdown", "Documentation format: markdown, man, rest")
}

var docsCmd = &cobra.Command{
	Use:    "generate-docs",
	Short:  "Generate documentation for the CLI",
	Long:   "Generate documentation for distsched-cli and every wrapped subcommand, in markdown, man, or reST format.",
	Hidden: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := os.MkdirAll(docsOutputDir, 0750); err != nil {
			return fmt.Errorf("failed to create output directory: %w", err)
		}

		absPath, err := filepath.Abs(docsOutputDir)
		if err != nil {
			return fmt.Errorf("failed to get absolute path: %w", err)
		}

		log.Printf("Generating %s documentation in: %s", docsFormat, absPath)

		switch docsFormat {
		case "markdown", "md":
			if err := doc.GenMarkdownTree(rootCmd, absPath); err != nil {
				return fmt.Errorf("failed to generate markdown docs: %w", err)
			}
			log.Println("markdown documentation generated successfully")

		case "man":
			header := &doc.GenManHeader{
				Title:   "DISTSCHED-CLI",
				Section: "1",
				Source:  "distsched",
			}
			if err := doc.GenManTree(rootCmd, header, absPath); err != nil {
				return fmt.Errorf("failed to generate man pages: %w", err)
			}
			log.Println("man pages generated successfully")

		case "rest", "rst":
			if err := doc.GenReSTTree(rootCmd, absPath); err != nil {
				return fmt.Errorf("failed to generate ReST docs: %w", err)
			}
			log.Println("ReStructuredText documentation generated successfully")

		default:
			return fmt.Errorf("unsupported format: %s (use: markdown, man, or rest)", docsFormat)
		}

		return nil
	},
}
