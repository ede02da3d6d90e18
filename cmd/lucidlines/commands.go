// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package main

import (
	"github.com/spf13/cobra"
)

var (
	servePort    int
	serveDataDir string
	serveDocsDir string
	serveLimits  string
	logJSON      bool

	rootCmd = &cobra.Command{
		Use:   "lucidlines",
		Short: "A local server for paragraph-synchronized document analysis",
		Long: `LucidLines keeps markdown documents and their per-paragraph AI
analysis in sync through stable paragraph identities, and serves the
analysis API the editor talks to.`,
	}

	serveCmd = &cobra.Command{
		Use:   "serve",
		Short: "Run the analysis HTTP server",
		Run:   runServe, // Defined in cmd_serve.go
	}

	inspectCmd = &cobra.Command{
		Use:   "inspect [document.md]",
		Short: "Print a document's paragraphs and their analysis states",
		Args:  cobra.ExactArgs(1),
		Run:   runInspect, // Defined in cmd_inspect.go
	}
)

func init() {
	serveCmd.Flags().IntVar(&servePort, "port", 0, "HTTP port (overrides LUCIDLINES_PORT)")
	serveCmd.Flags().StringVar(&serveDataDir, "data-dir", "", "BadgerDB directory (overrides LUCIDLINES_DATA_DIR)")
	serveCmd.Flags().StringVar(&serveDocsDir, "documents-dir", "", "watched documents directory (overrides LUCIDLINES_DOCS_DIR)")
	serveCmd.Flags().StringVar(&serveLimits, "limits", "", "YAML limits override file (overrides LUCIDLINES_LIMITS_FILE)")
	rootCmd.PersistentFlags().BoolVar(&logJSON, "log-json", false, "emit JSON logs on stderr")

	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(inspectCmd)
}
