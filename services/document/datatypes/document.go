// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package datatypes defines the document model shared across the engine:
// documents, paragraphs, analysis state, sidecar files, and error codes.
package datatypes

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// SchemaVersion is the current document/sidecar schema version.
const SchemaVersion = 1

// PromptVersion is the analysis prompt revision carried through
// dispatch requests and responses.
const PromptVersion = "v1.0.0"

// PlaceholderText is the whitespace text of the synthetic paragraph
// inserted when a document would otherwise have zero paragraphs.
const PlaceholderText = " "

// PersonaMode selects the voice the analyzer responds in.
type PersonaMode string

const (
	PersonaFriendly      PersonaMode = "friendly"
	PersonaEditor        PersonaMode = "editor"
	PersonaGeneralReader PersonaMode = "general-reader"
)

// DefaultPersonaMode is applied when a document carries no persona.
const DefaultPersonaMode = PersonaGeneralReader

// Valid reports whether the persona mode is one of the known values.
func (p PersonaMode) Valid() bool {
	switch p {
	case PersonaFriendly, PersonaEditor, PersonaGeneralReader:
		return true
	}
	return false
}

// AnalysisStatus is the per-paragraph analysis state machine value.
//
// Transitions: stale -> pending -> complete | failed. Pending is
// transient; after a batch cycle finishes every paragraph that entered
// pending has left it.
type AnalysisStatus string

const (
	StatusStale    AnalysisStatus = "stale"
	StatusPending  AnalysisStatus = "pending"
	StatusComplete AnalysisStatus = "complete"
	StatusFailed   AnalysisStatus = "failed"
)

// AnalysisError is the terminal error payload on a failed paragraph.
type AnalysisError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// AnalysisState is the tagged analysis variant on a paragraph.
//
// Only complete carries the result payload (emotion/theme/deepMeaning/
// confidence/model/requestId/analyzedAt); only failed carries Error.
// Stale and pending carry the status alone.
type AnalysisState struct {
	Status      AnalysisStatus `json:"status"`
	Emotion     []string       `json:"emotion,omitempty"`
	Theme       []string       `json:"theme,omitempty"`
	DeepMeaning string         `json:"deepMeaning,omitempty"`
	Confidence  float64        `json:"confidence,omitempty"`
	Model       string         `json:"model,omitempty"`
	RequestID   string         `json:"requestId,omitempty"`
	AnalyzedAt  *time.Time     `json:"analyzedAt,omitempty"`
	Error       *AnalysisError `json:"error,omitempty"`
}

// StaleAnalysis returns a fresh stale analysis state with no payload.
func StaleAnalysis() AnalysisState {
	return AnalysisState{Status: StatusStale}
}

// Clone returns a deep copy of the analysis state.
func (a AnalysisState) Clone() AnalysisState {
	out := a
	if a.Emotion != nil {
		out.Emotion = append([]string(nil), a.Emotion...)
	}
	if a.Theme != nil {
		out.Theme = append([]string(nil), a.Theme...)
	}
	if a.AnalyzedAt != nil {
		t := *a.AnalyzedAt
		out.AnalyzedAt = &t
	}
	if a.Error != nil {
		e := *a.Error
		out.Error = &e
	}
	return out
}

// Paragraph is one identity-stable unit of a document.
//
// Invariants: Order values form 1..N contiguous and unique within a
// document; ID is stable across reorders and incremental edits.
type Paragraph struct {
	ID        string        `json:"id"`
	Order     int           `json:"order"`
	Text      string        `json:"text"`
	CharCount int           `json:"charCount"`
	Analysis  AnalysisState `json:"analysis"`
}

// NewParagraph builds a paragraph with a freshly minted id, the given
// order and text, and stale analysis.
func NewParagraph(order int, text string) Paragraph {
	return Paragraph{
		ID:        NewParagraphID(),
		Order:     order,
		Text:      text,
		CharCount: len([]rune(text)),
		Analysis:  StaleAnalysis(),
	}
}

// PlaceholderParagraph returns the synthetic whitespace paragraph used
// when a document would otherwise be empty.
func PlaceholderParagraph() Paragraph {
	return NewParagraph(1, PlaceholderText)
}

// Clone returns a deep copy of the paragraph.
func (p Paragraph) Clone() Paragraph {
	out := p
	out.Analysis = p.Analysis.Clone()
	return out
}

// Document is the authoritative in-memory document representation.
//
// Owned exclusively by the document store while open; reads hand out
// deep copies so no shared mutable state leaks.
type Document struct {
	SchemaVersion int         `json:"schemaVersion"`
	DocumentID    string      `json:"documentId"`
	Title         string      `json:"title"`
	PersonaMode   PersonaMode `json:"personaMode"`
	CreatedAt     time.Time   `json:"createdAt"`
	UpdatedAt     time.Time   `json:"updatedAt"`
	Paragraphs    []Paragraph `json:"paragraphs"`
}

// NewDocument creates a fresh document with one empty placeholder
// paragraph and the default persona.
func NewDocument(title string) *Document {
	now := time.Now().UTC()
	return &Document{
		SchemaVersion: SchemaVersion,
		DocumentID:    NewDocumentID(),
		Title:         title,
		PersonaMode:   DefaultPersonaMode,
		CreatedAt:     now,
		UpdatedAt:     now,
		Paragraphs:    []Paragraph{PlaceholderParagraph()},
	}
}

// Clone returns a deep copy of the document.
func (d *Document) Clone() *Document {
	out := *d
	out.Paragraphs = make([]Paragraph, len(d.Paragraphs))
	for i, p := range d.Paragraphs {
		out.Paragraphs[i] = p.Clone()
	}
	return &out
}

// ParagraphByID returns the index of the paragraph with the given id,
// or -1 if absent.
func (d *Document) ParagraphByID(id string) int {
	for i := range d.Paragraphs {
		if d.Paragraphs[i].ID == id {
			return i
		}
	}
	return -1
}

// Renumber reassigns Order = 1..N following slice order.
func (d *Document) Renumber() {
	for i := range d.Paragraphs {
		d.Paragraphs[i].Order = i + 1
	}
}

// NewParagraphID mints a paragraph identity token.
func NewParagraphID() string {
	return "p_" + shortUUID()
}

// NewDocumentID mints a document identity token.
func NewDocumentID() string {
	return "doc_" + shortUUID()
}

// NewRequestID mints an analysis request identifier.
func NewRequestID() string {
	return "req_" + uuid.NewString()
}

func shortUUID() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")[:12]
}
