// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package store holds the in-memory authoritative document and its
// mutation operations.
//
// # Description
//
// The Store owns one open document. Mutators (EditParagraph, Reorder,
// Resync) are applied in the order received and each stamps a new
// UpdatedAt. Reads hand out deep copies; callers never share mutable
// state with the store.
//
// Analysis-state transitions are exposed as batch operations
// (MarkPending, CompleteAnalysis, FailAnalysis) that apply atomically
// under the store lock, so observers never see a mix of pending and
// complete for paragraphs submitted together.
//
// # Thread Safety
//
// All methods are safe for concurrent use; a single mutex serializes
// every read and write.
package store

import (
	"fmt"
	"sync"
	"time"

	"github.com/AleutianAI/lucidlines/services/document/datatypes"
)

// Store owns the authoritative in-memory document.
type Store struct {
	mu  sync.Mutex
	doc *datatypes.Document

	// now is swapped in tests for deterministic timestamps.
	now func() time.Time
}

// New creates a store owning a deep copy of the given document.
func New(doc *datatypes.Document) *Store {
	return &Store{
		doc: doc.Clone(),
		now: time.Now,
	}
}

// Document returns a deep copy of the current document.
func (s *Store) Document() *datatypes.Document {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.doc.Clone()
}

// EditParagraph replaces the text of the paragraph with the given id
// and unconditionally resets its analysis to stale; any edit
// invalidates prior analysis regardless of content similarity.
//
// Returns false (no-op) if no paragraph has that id.
func (s *Store) EditParagraph(id, newText string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	idx := s.doc.ParagraphByID(id)
	if idx < 0 {
		return false
	}

	p := &s.doc.Paragraphs[idx]
	p.Text = newText
	p.CharCount = len([]rune(newText))
	p.Analysis = datatypes.StaleAnalysis()
	s.doc.UpdatedAt = s.now().UTC()
	return true
}

// Reorder reassigns Order = 1..N following the given id sequence.
//
// The sequence must be an exact permutation of the current paragraph
// id set; otherwise the call is a no-op and returns false. Analysis
// state is untouched by pure reordering.
func (s *Store) Reorder(orderedIDs []string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(orderedIDs) != len(s.doc.Paragraphs) {
		return false
	}

	byID := make(map[string]datatypes.Paragraph, len(s.doc.Paragraphs))
	for _, p := range s.doc.Paragraphs {
		byID[p.ID] = p
	}

	reordered := make([]datatypes.Paragraph, 0, len(orderedIDs))
	seen := make(map[string]bool, len(orderedIDs))
	for _, id := range orderedIDs {
		p, ok := byID[id]
		if !ok || seen[id] {
			return false
		}
		seen[id] = true
		reordered = append(reordered, p)
	}

	s.doc.Paragraphs = reordered
	s.doc.Renumber()
	s.doc.UpdatedAt = s.now().UTC()
	return true
}

// Resync reconciles a full ordered list of paragraph texts against the
// current paragraphs by position:
//   - same position, same text: paragraph kept untouched, analysis and all
//   - same position, changed text: id kept, analysis reset to stale
//   - position beyond the old list: fresh id, stale analysis
//   - old positions beyond the new list: dropped
//
// An empty input list is replaced with a single whitespace placeholder
// paragraph; the document never has zero paragraphs.
func (s *Store) Resync(texts []string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(texts) == 0 {
		s.doc.Paragraphs = []datatypes.Paragraph{datatypes.PlaceholderParagraph()}
		s.doc.UpdatedAt = s.now().UTC()
		return
	}

	next := make([]datatypes.Paragraph, 0, len(texts))
	for i, text := range texts {
		if i < len(s.doc.Paragraphs) {
			existing := s.doc.Paragraphs[i]
			if existing.Text == text {
				existing.Order = i + 1
				next = append(next, existing)
				continue
			}
			existing.Order = i + 1
			existing.Text = text
			existing.CharCount = len([]rune(text))
			existing.Analysis = datatypes.StaleAnalysis()
			next = append(next, existing)
			continue
		}
		next = append(next, datatypes.NewParagraph(i+1, text))
	}

	s.doc.Paragraphs = next
	s.doc.UpdatedAt = s.now().UTC()
}

// StaleParagraphs returns deep copies of all paragraphs currently in
// stale state, in document order.
func (s *Store) StaleParagraphs() []datatypes.Paragraph {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []datatypes.Paragraph
	for _, p := range s.doc.Paragraphs {
		if p.Analysis.Status == datatypes.StatusStale {
			out = append(out, p.Clone())
		}
	}
	return out
}

// MarkPending atomically transitions every listed paragraph from stale
// to pending. If any id is missing or not stale, nothing changes and
// an error is returned; a reload mid-flight then still shows a
// consistent picture.
func (s *Store) MarkPending(ids []string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	indices := make([]int, 0, len(ids))
	for _, id := range ids {
		idx := s.doc.ParagraphByID(id)
		if idx < 0 {
			return fmt.Errorf("paragraph %s not found", id)
		}
		if s.doc.Paragraphs[idx].Analysis.Status != datatypes.StatusStale {
			return fmt.Errorf("paragraph %s is %s, not stale", id, s.doc.Paragraphs[idx].Analysis.Status)
		}
		indices = append(indices, idx)
	}

	for _, idx := range indices {
		s.doc.Paragraphs[idx].Analysis = datatypes.AnalysisState{Status: datatypes.StatusPending}
	}
	return nil
}

// CompleteAnalysis atomically transitions every listed paragraph from
// pending to complete with its result payload. Every id in results
// must be pending; otherwise nothing changes and an error is returned.
func (s *Store) CompleteAnalysis(results map[string]datatypes.AnalysisState) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	indices := make(map[string]int, len(results))
	for id := range results {
		idx := s.doc.ParagraphByID(id)
		if idx < 0 {
			return fmt.Errorf("paragraph %s not found", id)
		}
		if s.doc.Paragraphs[idx].Analysis.Status != datatypes.StatusPending {
			return fmt.Errorf("paragraph %s is %s, not pending", id, s.doc.Paragraphs[idx].Analysis.Status)
		}
		indices[id] = idx
	}

	for id, idx := range indices {
		state := results[id].Clone()
		state.Status = datatypes.StatusComplete
		state.Error = nil
		s.doc.Paragraphs[idx].Analysis = state
	}
	return nil
}

// FailAnalysis atomically transitions every listed paragraph to failed
// with a shared error code and message. Unknown ids are skipped rather
// than rejected: the failure path must always run to completion so no
// paragraph is left permanently pending.
func (s *Store) FailAnalysis(ids []string, code datatypes.ErrorCode, message string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, id := range ids {
		idx := s.doc.ParagraphByID(id)
		if idx < 0 {
			continue
		}
		s.doc.Paragraphs[idx].Analysis = datatypes.AnalysisState{
			Status: datatypes.StatusFailed,
			Error: &datatypes.AnalysisError{
				Code:    string(code),
				Message: message,
			},
		}
	}
}

// Replace swaps the owned document for a deep copy of the given one.
// Used after an external reload.
func (s *Store) Replace(doc *datatypes.Document) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.doc = doc.Clone()
}
