// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package api provides the LucidLines analysis server.
//
// The server exposes the analysis dispatch and usage endpoints that
// the desktop editor talks to, backed by one BadgerDB instance holding
// documents, the usage ledger, and the request journal.
//
// # Extension Points
//
// The server supports dependency injection via extensions.ServiceOptions.
// The open source build uses the no-op AuthProvider (single local
// user); hosted deployments inject a real one.
//
// # Usage
//
//	cfg := api.Config{Port: 8787}
//	svc, err := api.New(cfg, nil)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	log.Fatal(svc.Run())
package api

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/AleutianAI/lucidlines/pkg/extensions"
	storage "github.com/AleutianAI/lucidlines/pkg/storage/badger"
	"github.com/AleutianAI/lucidlines/services/analysis"
	"github.com/AleutianAI/lucidlines/services/analysis/admission"
	"github.com/AleutianAI/lucidlines/services/analysis/analyzer"
	"github.com/AleutianAI/lucidlines/services/analysis/journal"
	"github.com/AleutianAI/lucidlines/services/analysis/usage"
	"github.com/AleutianAI/lucidlines/services/api/handlers"
	"github.com/AleutianAI/lucidlines/services/api/middleware"
	"github.com/AleutianAI/lucidlines/services/api/observability"
	"github.com/AleutianAI/lucidlines/services/document/watch"
)

// Service defines the contract for the analysis server.
//
// Run() blocks and should only be called once per instance. Router()
// exposes the configured Gin engine for integration tests.
type Service interface {
	// Run starts the HTTP server and blocks until shutdown or error.
	Run() error

	// Router returns the underlying Gin engine for testing.
	// Callers must not modify the routes.
	Router() *gin.Engine
}

// service implements Service for production use.
//
// All fields are read-only after New() returns.
type service struct {
	config     Config
	opts       extensions.ServiceOptions
	router     *gin.Engine
	db         *storage.DB
	guard      *admission.Guard
	ledger     usage.Ledger
	journal    *journal.Journal
	dispatcher *analysis.Dispatcher
	metrics    *observability.Metrics
	watcher    *watch.Watcher
	watchStop  context.CancelFunc
}

// New creates a server with the given configuration.
//
// Initialization order: defaults, database, ledger + journal + guard,
// analyzer runner (remote when an API key is configured, heuristic
// mock otherwise), metrics, routes. If opts is nil, DefaultOptions()
// is used.
func New(cfg Config, opts *extensions.ServiceOptions) (Service, error) {
	s := &service{
		config: applyConfigDefaults(cfg),
	}

	if opts != nil {
		s.opts = *opts
	} else {
		s.opts = extensions.DefaultOptions()
	}
	if err := s.initAuth(); err != nil {
		return nil, err
	}

	if err := s.initStorage(); err != nil {
		return nil, err
	}

	s.ledger = usage.NewBadgerLedger(s.db)
	s.journal = journal.New(s.db)
	s.guard = admission.NewGuard(s.config.Admission, s.ledger)

	runner, err := s.initRunner()
	if err != nil {
		s.cleanup()
		return nil, err
	}
	s.dispatcher = analysis.NewDispatcher(s.guard, s.ledger, runner, s.journal, s.config.DispatchTimeout)

	if s.config.EnableMetrics {
		s.metrics = observability.InitMetrics()
		slog.Info("Initialized Prometheus metrics")
	}

	if err := s.initWatcher(); err != nil {
		s.cleanup()
		return nil, err
	}

	s.initRouter()

	return s, nil
}

// Run starts the HTTP server and blocks until shutdown or error.
// Cleanup is automatic on return.
func (s *service) Run() error {
	defer s.cleanup()

	addr := fmt.Sprintf(":%d", s.config.Port)
	slog.Info("Starting analysis server", "port", s.config.Port)

	return s.router.Run(addr)
}

// Router returns the underlying Gin engine for testing.
func (s *service) Router() *gin.Engine {
	return s.router
}

// initAuth resolves the auth provider: an injected provider wins, a
// configured static token comes next, and the no-op local-user
// provider is the fallback.
func (s *service) initAuth() error {
	if s.opts.AuthProvider != nil {
		if _, isNop := s.opts.AuthProvider.(*extensions.NopAuthProvider); !isNop {
			return nil
		}
	}
	if s.config.AuthToken != "" {
		provider, err := extensions.NewStaticTokenProvider(s.config.AuthToken, "")
		if err != nil {
			return fmt.Errorf("configure static token auth: %w", err)
		}
		s.opts.AuthProvider = provider
		slog.Info("Static token authentication enabled")
		return nil
	}
	if s.opts.AuthProvider == nil {
		s.opts.AuthProvider = &extensions.NopAuthProvider{}
	}
	return nil
}

// initStorage opens the BadgerDB instance shared by documents, usage,
// and the request journal.
func (s *service) initStorage() error {
	var (
		db  *storage.DB
		err error
	)
	if s.config.InMemory {
		db, err = storage.OpenInMemory()
	} else {
		storageCfg := storage.DefaultConfig()
		storageCfg.Path = s.config.DataDir
		db, err = storage.Open(storageCfg)
	}
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	s.db = db
	return nil
}

// initRunner selects the analyzer backend.
func (s *service) initRunner() (analyzer.Runner, error) {
	if s.config.OpenAIAPIKey != "" {
		runner, err := analyzer.NewOpenAIRunner(s.config.OpenAIAPIKey, s.config.OpenAIModel)
		if err != nil {
			return nil, fmt.Errorf("initialize OpenAI analyzer: %w", err)
		}
		slog.Info("Using OpenAI analyzer", "model", s.config.OpenAIModel)
		return runner, nil
	}

	slog.Info("No API key configured, using heuristic mock analyzer")
	return analyzer.NewMockRunner(), nil
}

// initWatcher starts the external-change watcher over DocumentsDir.
// Optional; when the directory is not configured the server runs
// without filesystem watching.
func (s *service) initWatcher() error {
	if s.config.DocumentsDir == "" {
		return nil
	}

	w, err := watch.New(s.config.DocumentsDir)
	if err != nil {
		return fmt.Errorf("watch documents dir %s: %w", s.config.DocumentsDir, err)
	}
	s.watcher = w

	ctx, cancel := context.WithCancel(context.Background())
	s.watchStop = cancel

	go w.Run(ctx)
	go func() {
		for ev := range w.Events() {
			slog.Debug("external document change", "path", ev.Path, "op", ev.Op)
			if s.metrics != nil {
				s.metrics.RecordDocumentEvent(string(ev.Op))
			}
		}
	}()

	slog.Info("Watching documents directory", "dir", s.config.DocumentsDir)
	return nil
}

// initRouter sets up the Gin HTTP router with all routes.
func (s *service) initRouter() {
	if s.config.GinMode != "" {
		gin.SetMode(s.config.GinMode)
	}
	s.router = gin.Default()

	s.router.GET("/health", handlers.Health())
	if s.config.EnableMetrics {
		s.router.GET("/metrics", gin.WrapH(promhttp.Handler()))
	}

	v1 := s.router.Group("/v1")
	v1.Use(middleware.AuthMiddleware(s.opts.AuthProvider))
	v1.POST("/analysis/paragraphs", handlers.AnalyzeParagraphs(s.dispatcher, s.metrics))
	v1.GET("/me/usage", handlers.GetUsage(s.ledger, s.metrics))
}

// cleanup releases all resources held by the service.
func (s *service) cleanup() {
	if s.watchStop != nil {
		s.watchStop()
	}
	if s.watcher != nil {
		if err := s.watcher.Close(); err != nil {
			slog.Warn("watcher close error", "error", err)
		}
	}
	if s.db != nil {
		if err := s.db.Close(); err != nil {
			slog.Warn("database close error", "error", err)
		}
	}
}

var _ Service = (*service)(nil)
