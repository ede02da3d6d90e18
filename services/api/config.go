// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package api

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/AleutianAI/lucidlines/services/analysis"
	"github.com/AleutianAI/lucidlines/services/analysis/admission"
)

// Config holds server configuration options.
//
// Values can be populated from environment variables, an optional YAML
// limits file, or programmatically for testing. Zero values use
// defaults applied by New().
type Config struct {
	// Port is the HTTP server port. Default: 8787
	Port int

	// DataDir is the BadgerDB directory for documents, usage, and the
	// request journal. Default: "./data/lucidlines"
	DataDir string

	// InMemory switches the database to in-memory mode. Testing only.
	InMemory bool

	// OpenAIAPIKey enables the remote analyzer. When empty the
	// heuristic mock analyzer is used instead.
	OpenAIAPIKey string

	// OpenAIModel overrides the analysis model. Default: gpt-4o-mini
	OpenAIModel string

	// DocumentsDir, when set, is watched for external modifications
	// to markdown and sidecar files. Optional.
	DocumentsDir string

	// AuthToken, when set, requires every /v1 request to carry it as a
	// bearer token. Empty means single local user, no auth.
	AuthToken string

	// GinMode sets the Gin framework mode ("debug", "release", "test").
	GinMode string

	// EnableMetrics enables the Prometheus /metrics endpoint.
	// Default: true
	EnableMetrics bool

	// Admission bounds analysis dispatch per user.
	Admission admission.Config

	// DispatchTimeout is the wall-clock ceiling per analysis batch.
	// Default: analysis.DefaultTimeout (10s)
	DispatchTimeout time.Duration
}

// applyConfigDefaults fills in missing configuration values.
func applyConfigDefaults(cfg Config) Config {
	if cfg.Port == 0 {
		cfg.Port = 8787
	}
	if cfg.DataDir == "" {
		cfg.DataDir = "./data/lucidlines"
	}
	if cfg.OpenAIModel == "" {
		cfg.OpenAIModel = "gpt-4o-mini"
	}
	if cfg.Admission == (admission.Config{}) {
		cfg.Admission = admission.DefaultConfig()
	}
	if cfg.DispatchTimeout <= 0 {
		cfg.DispatchTimeout = analysis.DefaultTimeout
	}
	return cfg
}

// limitsFile is the YAML shape of the optional limits override file.
//
//	limits:
//	  per_minute: 10
//	  per_hour: 100
//	  max_concurrent: 2
//	  daily_token_quota: 200000
//	dispatch_timeout: 10s
type limitsFile struct {
	Limits struct {
		PerMinute       *int `yaml:"per_minute"`
		PerHour         *int `yaml:"per_hour"`
		MaxConcurrent   *int `yaml:"max_concurrent"`
		DailyTokenQuota *int `yaml:"daily_token_quota"`
	} `yaml:"limits"`
	DispatchTimeout string `yaml:"dispatch_timeout"`
}

// LoadLimits applies overrides from a YAML file onto cfg. Fields
// absent from the file keep their current values.
func LoadLimits(cfg Config, path string) (Config, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("read limits file %s: %w", path, err)
	}

	var file limitsFile
	if err := yaml.Unmarshal(raw, &file); err != nil {
		return cfg, fmt.Errorf("parse limits file %s: %w", path, err)
	}

	if file.Limits.PerMinute != nil {
		cfg.Admission.PerMinute = *file.Limits.PerMinute
	}
	if file.Limits.PerHour != nil {
		cfg.Admission.PerHour = *file.Limits.PerHour
	}
	if file.Limits.MaxConcurrent != nil {
		cfg.Admission.MaxConcurrent = *file.Limits.MaxConcurrent
	}
	if file.Limits.DailyTokenQuota != nil {
		cfg.Admission.DailyTokenQuota = *file.Limits.DailyTokenQuota
	}
	if file.DispatchTimeout != "" {
		d, err := time.ParseDuration(file.DispatchTimeout)
		if err != nil {
			return cfg, fmt.Errorf("parse dispatch_timeout %q: %w", file.DispatchTimeout, err)
		}
		cfg.DispatchTimeout = d
	}

	return cfg, nil
}
