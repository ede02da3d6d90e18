// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package datatypes

import (
	"strings"
	"testing"
	"time"
)

func TestNewDocument(t *testing.T) {
	doc := NewDocument("morning pages")

	if doc.Title != "morning pages" {
		t.Errorf("title = %q", doc.Title)
	}
	if doc.SchemaVersion != SchemaVersion {
		t.Errorf("schemaVersion = %d", doc.SchemaVersion)
	}
	if doc.PersonaMode != PersonaGeneralReader {
		t.Errorf("personaMode = %q", doc.PersonaMode)
	}
	if len(doc.Paragraphs) != 1 {
		t.Fatalf("expected one placeholder paragraph, got %d", len(doc.Paragraphs))
	}
	p := doc.Paragraphs[0]
	if p.Text != PlaceholderText {
		t.Errorf("placeholder text = %q", p.Text)
	}
	if p.Order != 1 {
		t.Errorf("placeholder order = %d", p.Order)
	}
	if p.Analysis.Status != StatusStale {
		t.Errorf("placeholder status = %q", p.Analysis.Status)
	}
	if !strings.HasPrefix(doc.DocumentID, "doc_") {
		t.Errorf("documentId = %q", doc.DocumentID)
	}
}

func TestIDPrefixes(t *testing.T) {
	if !strings.HasPrefix(NewParagraphID(), "p_") {
		t.Error("paragraph id missing p_ prefix")
	}
	if !strings.HasPrefix(NewRequestID(), "req_") {
		t.Error("request id missing req_ prefix")
	}
	if NewParagraphID() == NewParagraphID() {
		t.Error("paragraph ids should be unique")
	}
}

func TestDocumentCloneIsDeep(t *testing.T) {
	now := time.Now().UTC()
	doc := NewDocument("t")
	doc.Paragraphs[0].Analysis = AnalysisState{
		Status:     StatusComplete,
		Emotion:    []string{"calm"},
		Theme:      []string{"routine"},
		Confidence: 0.9,
		AnalyzedAt: &now,
	}

	clone := doc.Clone()
	clone.Paragraphs[0].Text = "changed"
	clone.Paragraphs[0].Analysis.Emotion[0] = "angry"
	*clone.Paragraphs[0].Analysis.AnalyzedAt = now.Add(time.Hour)

	if doc.Paragraphs[0].Text == "changed" {
		t.Error("clone shares paragraph slice")
	}
	if doc.Paragraphs[0].Analysis.Emotion[0] != "calm" {
		t.Error("clone shares emotion slice")
	}
	if !doc.Paragraphs[0].Analysis.AnalyzedAt.Equal(now) {
		t.Error("clone shares analyzedAt pointer")
	}
}

func TestPersonaModeValid(t *testing.T) {
	for _, p := range []PersonaMode{PersonaFriendly, PersonaEditor, PersonaGeneralReader} {
		if !p.Valid() {
			t.Errorf("%q should be valid", p)
		}
	}
	if PersonaMode("sarcastic").Valid() {
		t.Error("unknown persona should be invalid")
	}
}

func TestErrorCodeRetryable(t *testing.T) {
	cases := map[ErrorCode]bool{
		CodeValidationError:   false,
		CodeRateLimitExceeded: true,
		CodeAnalysisAborted:   true,
		CodeRevisionMismatch:  false,
		CodeUnauthorized:      false,
		CodeInternalError:     false,
	}
	for code, want := range cases {
		if got := code.Retryable(); got != want {
			t.Errorf("%s.Retryable() = %v, want %v", code, got, want)
		}
	}
}

func TestNewRevisionMismatch(t *testing.T) {
	err := NewRevisionMismatch(7)
	if err.Code != CodeRevisionMismatch {
		t.Errorf("code = %q", err.Code)
	}
	if err.Revision != 7 {
		t.Errorf("revision = %d", err.Revision)
	}
	if !strings.Contains(err.Error(), "REVISION_MISMATCH") {
		t.Errorf("Error() = %q", err.Error())
	}
}
