// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Command lucidlines runs the LucidLines analysis server and utility
// commands for paragraph-synchronized markdown documents.
//
// # Environment Variables
//
//   - LUCIDLINES_PORT: HTTP server port (default: 8787)
//   - LUCIDLINES_DATA_DIR: BadgerDB directory (default: ./data/lucidlines)
//   - LUCIDLINES_DOCS_DIR: watched documents directory (optional)
//   - LUCIDLINES_AUTH_TOKEN: pre-shared bearer token (optional)
//   - LUCIDLINES_LIMITS_FILE: YAML limits override file (optional)
//   - OPENAI_API_KEY: enables the remote analyzer (mock otherwise)
//   - OPENAI_MODEL: analysis model (default: gpt-4o-mini)
//
// # Usage
//
//	# Run the server
//	lucidlines serve
//
//	# Inspect a document and its analysis sidecar
//	lucidlines inspect notes/monday.md
package main

import (
	"log"
	"os"
	"strconv"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		log.Fatalf("Error executing command: %v", err)
	}
}

// getEnvString returns the environment variable value or a default.
func getEnvString(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvInt returns the environment variable as int or a default.
func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}
