// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package analyzer performs per-paragraph AI analysis. The Runner
// interface is the remote collaborator boundary; implementations are
// an OpenAI-backed runner and a deterministic heuristic mock used when
// no API key is configured.
package analyzer

import (
	"context"
	"time"

	"github.com/AleutianAI/lucidlines/services/document/datatypes"
)

// RequestParagraph is one paragraph submitted for analysis. Order is
// explicitly optional on the wire; the engine echoes it but resolves
// identity by paragraph id alone.
type RequestParagraph struct {
	ParagraphID string `json:"paragraphId" validate:"required"`
	Order       *int   `json:"order,omitempty"`
	Text        string `json:"text" validate:"max=10000"`
}

// Request is one analysis dispatch: 1..20 paragraphs, each at most
// 10,000 characters.
type Request struct {
	// RequestID is assigned by the dispatcher, not the caller.
	RequestID string `json:"-"`

	DocumentID    string                `json:"documentId" validate:"required"`
	PersonaMode   datatypes.PersonaMode `json:"personaMode" validate:"omitempty,oneof=friendly editor general-reader"`
	PromptVersion string                `json:"promptVersion"`
	Paragraphs    []RequestParagraph    `json:"paragraphs" validate:"required,min=1,max=20,dive"`
}

// Persona returns the request persona, defaulting to general-reader.
func (r Request) Persona() datatypes.PersonaMode {
	if r.PersonaMode.Valid() {
		return r.PersonaMode
	}
	return datatypes.DefaultPersonaMode
}

// Result is the analysis of one paragraph.
type Result struct {
	ParagraphID   string    `json:"paragraphId"`
	Emotion       []string  `json:"emotion"`
	Theme         []string  `json:"theme"`
	DeepMeaning   string    `json:"deepMeaning"`
	Confidence    float64   `json:"confidence"`
	Model         string    `json:"model"`
	AnalyzedAt    time.Time `json:"analyzedAt"`
	PromptVersion string    `json:"promptVersion"`
}

// BatchResult is the outcome of one successful dispatch. A Runner
// returns either a full BatchResult or an error; partial results are
// never surfaced.
type BatchResult struct {
	RequestID     string
	Results       []Result
	InputTokens   int
	OutputTokens  int
	EstimatedCost float64
}

// Runner executes one analysis batch against a backend.
type Runner interface {
	// Analyze processes every paragraph in the request. Any single
	// paragraph failure fails the whole batch: implementations must
	// return an error rather than a partial result set.
	Analyze(ctx context.Context, req Request) (*BatchResult, error)
}
