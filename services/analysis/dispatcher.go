// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package analysis drives analysis batches end to end: admission,
// journaling, the timeout race against the runner, usage accounting,
// and the all-or-nothing application of results to the document store.
package analysis

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/AleutianAI/lucidlines/services/analysis/admission"
	"github.com/AleutianAI/lucidlines/services/analysis/analyzer"
	"github.com/AleutianAI/lucidlines/services/analysis/journal"
	"github.com/AleutianAI/lucidlines/services/analysis/usage"
	"github.com/AleutianAI/lucidlines/services/document/datatypes"
)

// DefaultTimeout is the wall-clock ceiling raced against the remote
// analysis call. Exceeding it is treated identically to a remote
// failure.
const DefaultTimeout = 10 * time.Second

// Dispatcher submits one validated, admitted batch to the runner and
// settles the bookkeeping around it. It owns no document state; the
// Orchestrator layers store transitions on top.
type Dispatcher struct {
	guard    *admission.Guard
	ledger   usage.Ledger
	runner   analyzer.Runner
	journal  *journal.Journal
	timeout  time.Duration
	validate *validator.Validate
}

// NewDispatcher wires a dispatcher. The journal may be nil when no
// durable store is attached (pure in-memory runs); timeout 0 selects
// DefaultTimeout.
func NewDispatcher(guard *admission.Guard, ledger usage.Ledger, runner analyzer.Runner, j *journal.Journal, timeout time.Duration) *Dispatcher {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Dispatcher{
		guard:    guard,
		ledger:   ledger,
		runner:   runner,
		journal:  j,
		timeout:  timeout,
		validate: validator.New(),
	}
}

// Dispatch runs one analysis batch for a user.
//
// The sequence is: validate, admit (holding an in-flight slot that is
// released on every exit path), journal, race the runner against the
// timeout, then on success record usage and return the batch result.
// Failures and timeouts surface as an APIError with code
// ANALYSIS_ABORTED; admission rejections pass through with
// RATE_LIMIT_EXCEEDED. Partial results are never returned.
func (d *Dispatcher) Dispatch(ctx context.Context, userID string, req analyzer.Request) (*analyzer.BatchResult, error) {
	if err := d.validate.Struct(req); err != nil {
		return nil, datatypes.NewAPIError(datatypes.CodeValidationError, err.Error())
	}
	if req.RequestID == "" {
		req.RequestID = datatypes.NewRequestID()
	}
	if req.PromptVersion == "" {
		req.PromptVersion = datatypes.PromptVersion
	}

	estimated := analyzer.EstimateRequestTokens(req)
	if err := d.guard.Admit(ctx, userID, estimated); err != nil {
		return nil, err
	}
	defer d.guard.Release(userID)

	d.journalBegin(ctx, userID, req)

	slog.Info("analysis batch dispatched",
		"request_id", req.RequestID,
		"user_id", userID,
		"document_id", req.DocumentID,
		"paragraphs", len(req.Paragraphs),
		"estimated_input_tokens", estimated,
	)

	res, err := d.race(ctx, req)
	if err != nil {
		d.journalFail(ctx, req.RequestID, datatypes.CodeAnalysisAborted)
		slog.Error("analysis batch aborted",
			"request_id", req.RequestID,
			"user_id", userID,
			"error", err,
		)
		return nil, datatypes.NewAPIError(datatypes.CodeAnalysisAborted,
			fmt.Sprintf("analysis aborted: %v", err))
	}

	// Every requested paragraph must be answered; a missing result
	// would leave its paragraph pending, so the batch fails whole.
	if err := coversAll(req, res); err != nil {
		d.journalFail(ctx, req.RequestID, datatypes.CodeAnalysisAborted)
		return nil, datatypes.NewAPIError(datatypes.CodeAnalysisAborted, err.Error())
	}

	delta := usage.Delta{
		InputTokens:   res.InputTokens,
		OutputTokens:  res.OutputTokens,
		EstimatedCost: res.EstimatedCost,
	}
	if err := d.ledger.IncrementUsage(ctx, userID, delta); err != nil {
		// The batch already succeeded; ledger writes are not retried.
		slog.Error("usage ledger write failed",
			"request_id", req.RequestID,
			"user_id", userID,
			"error", err,
		)
	}

	d.journalComplete(ctx, req.RequestID, res)

	slog.Info("analysis batch completed",
		"request_id", req.RequestID,
		"user_id", userID,
		"input_tokens", res.InputTokens,
		"output_tokens", res.OutputTokens,
	)
	return res, nil
}

// race joins the runner against the dispatch timeout; whichever
// finishes first wins. The runner's context is cancelled either way.
func (d *Dispatcher) race(ctx context.Context, req analyzer.Request) (*analyzer.BatchResult, error) {
	tctx, cancel := context.WithTimeout(ctx, d.timeout)
	defer cancel()

	type outcome struct {
		res *analyzer.BatchResult
		err error
	}
	done := make(chan outcome, 1)

	go func() {
		res, err := d.runner.Analyze(tctx, req)
		done <- outcome{res: res, err: err}
	}()

	select {
	case out := <-done:
		return out.res, out.err
	case <-tctx.Done():
		if errors.Is(tctx.Err(), context.DeadlineExceeded) {
			return nil, fmt.Errorf("analysis timed out after %s", d.timeout)
		}
		return nil, tctx.Err()
	}
}

func coversAll(req analyzer.Request, res *analyzer.BatchResult) error {
	answered := make(map[string]bool, len(res.Results))
	for _, r := range res.Results {
		answered[r.ParagraphID] = true
	}
	for _, p := range req.Paragraphs {
		if !answered[p.ParagraphID] {
			return fmt.Errorf("no result for paragraph %s", p.ParagraphID)
		}
	}
	return nil
}

func (d *Dispatcher) journalBegin(ctx context.Context, userID string, req analyzer.Request) {
	if d.journal == nil {
		return
	}
	err := d.journal.Begin(ctx, journal.Record{
		RequestID:      req.RequestID,
		UserID:         userID,
		DocumentID:     req.DocumentID,
		ParagraphCount: len(req.Paragraphs),
		PromptVersion:  req.PromptVersion,
	})
	if err != nil {
		slog.Warn("journal write failed", "request_id", req.RequestID, "error", err)
	}
}

func (d *Dispatcher) journalComplete(ctx context.Context, requestID string, res *analyzer.BatchResult) {
	if d.journal == nil {
		return
	}
	model := ""
	if len(res.Results) > 0 {
		model = res.Results[0].Model
	}
	if err := d.journal.Complete(ctx, requestID, model); err != nil {
		slog.Warn("journal write failed", "request_id", requestID, "error", err)
	}
}

func (d *Dispatcher) journalFail(ctx context.Context, requestID string, code datatypes.ErrorCode) {
	if d.journal == nil {
		return
	}
	if err := d.journal.Fail(ctx, requestID, code); err != nil {
		slog.Warn("journal write failed", "request_id", requestID, "error", err)
	}
}
