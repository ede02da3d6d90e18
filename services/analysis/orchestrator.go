// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package analysis

import (
	"context"
	"errors"
	"log/slog"

	"github.com/AleutianAI/lucidlines/services/analysis/analyzer"
	"github.com/AleutianAI/lucidlines/services/document/datatypes"
	"github.com/AleutianAI/lucidlines/services/document/store"
)

// maxBatchParagraphs caps one dispatch cycle; stale paragraphs beyond
// the cap stay stale and go in the next cycle.
const maxBatchParagraphs = 20

// Orchestrator drives the per-paragraph analysis state machine for one
// open document: stale -> pending -> complete | failed.
type Orchestrator struct {
	store      *store.Store
	dispatcher *Dispatcher
}

// NewOrchestrator wires an orchestrator over a document store.
func NewOrchestrator(st *store.Store, d *Dispatcher) *Orchestrator {
	return &Orchestrator{store: st, dispatcher: d}
}

// AnalyzeStale runs one dispatch cycle over the document's current
// stale paragraph subset.
//
// Every paragraph in the subset moves to pending atomically before any
// remote call, so a reload mid-flight shows "in progress". On success
// all of them move to complete in one visible update; on any failure,
// including admission rejection and timeout, all of them move to
// failed with a shared error code. No paragraph is ever left pending
// after a cycle, and no partial results are applied.
//
// Returns (nil, nil) when nothing is stale.
func (o *Orchestrator) AnalyzeStale(ctx context.Context, userID string) (*analyzer.BatchResult, error) {
	stale := o.store.StaleParagraphs()
	if len(stale) == 0 {
		return nil, nil
	}
	if len(stale) > maxBatchParagraphs {
		stale = stale[:maxBatchParagraphs]
	}

	ids := make([]string, len(stale))
	paragraphs := make([]analyzer.RequestParagraph, len(stale))
	for i, p := range stale {
		ids[i] = p.ID
		order := p.Order
		paragraphs[i] = analyzer.RequestParagraph{
			ParagraphID: p.ID,
			Order:       &order,
			Text:        p.Text,
		}
	}

	if err := o.store.MarkPending(ids); err != nil {
		// Another cycle claimed these paragraphs between the read and
		// the transition; nothing changed, nothing to do.
		slog.Debug("skipping analysis cycle", "reason", err)
		return nil, nil
	}

	doc := o.store.Document()
	req := analyzer.Request{
		DocumentID:    doc.DocumentID,
		PersonaMode:   doc.PersonaMode,
		PromptVersion: datatypes.PromptVersion,
		Paragraphs:    paragraphs,
	}

	res, err := o.dispatcher.Dispatch(ctx, userID, req)
	if err != nil {
		code := datatypes.CodeAnalysisAborted
		var apiErr *datatypes.APIError
		if errors.As(err, &apiErr) {
			code = apiErr.Code
		}
		o.store.FailAnalysis(ids, code, err.Error())
		return nil, err
	}

	states := make(map[string]datatypes.AnalysisState, len(res.Results))
	for _, r := range res.Results {
		analyzedAt := r.AnalyzedAt
		states[r.ParagraphID] = datatypes.AnalysisState{
			Emotion:     r.Emotion,
			Theme:       r.Theme,
			DeepMeaning: r.DeepMeaning,
			Confidence:  r.Confidence,
			Model:       r.Model,
			RequestID:   res.RequestID,
			AnalyzedAt:  &analyzedAt,
		}
	}

	if err := o.store.CompleteAnalysis(states); err != nil {
		// The document changed out from under the batch. Results are
		// discarded whole; the paragraphs must not stay pending.
		o.store.FailAnalysis(ids, datatypes.CodeAnalysisAborted, err.Error())
		return nil, datatypes.NewAPIError(datatypes.CodeAnalysisAborted, err.Error())
	}

	return res, nil
}
