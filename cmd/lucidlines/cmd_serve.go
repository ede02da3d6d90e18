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
	"log"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/AleutianAI/lucidlines/pkg/logging"
	"github.com/AleutianAI/lucidlines/services/api"
)

// runServe starts the analysis HTTP server and blocks.
func runServe(cmd *cobra.Command, args []string) {
	logger := logging.New(logging.Config{
		Level:   logging.LevelInfo,
		Service: "api",
		JSON:    logJSON,
	})
	defer logger.Close()
	slog.SetDefault(logger.Slog())

	cfg := api.Config{
		Port:          getEnvInt("LUCIDLINES_PORT", 8787),
		DataDir:       getEnvString("LUCIDLINES_DATA_DIR", "./data/lucidlines"),
		DocumentsDir:  os.Getenv("LUCIDLINES_DOCS_DIR"),
		AuthToken:     os.Getenv("LUCIDLINES_AUTH_TOKEN"),
		OpenAIAPIKey:  os.Getenv("OPENAI_API_KEY"),
		OpenAIModel:   getEnvString("OPENAI_MODEL", "gpt-4o-mini"),
		EnableMetrics: true,
	}
	if servePort != 0 {
		cfg.Port = servePort
	}
	if serveDataDir != "" {
		cfg.DataDir = serveDataDir
	}
	if serveDocsDir != "" {
		cfg.DocumentsDir = serveDocsDir
	}

	limitsPath := serveLimits
	if limitsPath == "" {
		limitsPath = os.Getenv("LUCIDLINES_LIMITS_FILE")
	}
	if limitsPath != "" {
		var err error
		cfg, err = api.LoadLimits(cfg, limitsPath)
		if err != nil {
			log.Fatalf("Failed to load limits file: %v", err)
		}
		slog.Info("Loaded limits overrides", "path", limitsPath)
	}

	slog.Info("Starting LucidLines server",
		"port", cfg.Port,
		"data_dir", cfg.DataDir,
		"documents_dir", cfg.DocumentsDir,
		"remote_analyzer", cfg.OpenAIAPIKey != "",
	)

	svc, err := api.New(cfg, nil)
	if err != nil {
		log.Fatalf("Failed to create server: %v", err)
	}

	if err := svc.Run(); err != nil {
		log.Fatalf("Server error: %v", err)
	}
}
