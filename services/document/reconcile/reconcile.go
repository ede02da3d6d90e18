// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package reconcile

import (
	"time"

	"github.com/AleutianAI/lucidlines/services/document/datatypes"
)

// Paragraphs reconciles raw text against an optional sidecar and
// returns the ordered identity-stable paragraph list.
//
// Identity resolution per run, in priority order:
//  1. An explicit marker id is authoritative.
//  2. Otherwise a sidecar entry whose order equals this run's position
//     and whose id has not been consumed in this pass is adopted
//     (positional recovery after marker loss).
//  3. Otherwise a fresh id is minted.
//
// Analysis is taken from the sidecar entry matching the resolved id,
// defaulting to stale. Zero runs yield exactly one whitespace
// placeholder paragraph; a document never has zero paragraphs.
//
// This runs only on load/import, not on every edit.
func Paragraphs(raw string, sidecar *datatypes.SidecarFile) []datatypes.Paragraph {
	runs := SplitRuns(raw)
	if len(runs) == 0 {
		return []datatypes.Paragraph{datatypes.PlaceholderParagraph()}
	}

	byOrder := make(map[int]datatypes.SidecarParagraph)
	byID := make(map[string]datatypes.SidecarParagraph)
	if sidecar != nil {
		for _, entry := range sidecar.Paragraphs {
			byOrder[entry.Order] = entry
			byID[entry.ParagraphID] = entry
		}
	}

	consumed := make(map[string]bool)
	paragraphs := make([]datatypes.Paragraph, 0, len(runs))

	for i, run := range runs {
		order := i + 1

		id := run.MarkerID
		if id == "" {
			if entry, ok := byOrder[order]; ok && !consumed[entry.ParagraphID] {
				id = entry.ParagraphID
			}
		}
		if id == "" {
			id = datatypes.NewParagraphID()
		}
		consumed[id] = true

		text := run.Text
		if text == "" {
			// A bare marker with no body round-trips as the single
			// space an empty paragraph is persisted with.
			text = datatypes.PlaceholderText
		}

		analysis := datatypes.StaleAnalysis()
		if entry, ok := byID[id]; ok {
			analysis = entry.Analysis.Clone()
		}

		paragraphs = append(paragraphs, datatypes.Paragraph{
			ID:        id,
			Order:     order,
			Text:      text,
			CharCount: len([]rune(text)),
			Analysis:  analysis,
		})
	}

	return paragraphs
}

// Document reconciles raw text plus sidecar into a full document.
//
// Document metadata (id, title, persona, createdAt) is inherited from
// the sidecar when present; otherwise a fresh document id is minted,
// the fallback title is used, and the persona defaults to
// general-reader.
func Document(raw string, sidecar *datatypes.SidecarFile, fallbackTitle string) *datatypes.Document {
	now := time.Now().UTC()
	doc := &datatypes.Document{
		SchemaVersion: datatypes.SchemaVersion,
		DocumentID:    datatypes.NewDocumentID(),
		Title:         fallbackTitle,
		PersonaMode:   datatypes.DefaultPersonaMode,
		CreatedAt:     now,
		UpdatedAt:     now,
		Paragraphs:    Paragraphs(raw, sidecar),
	}

	if sidecar != nil {
		if sidecar.DocumentID != "" {
			doc.DocumentID = sidecar.DocumentID
		}
		if sidecar.Title != "" {
			doc.Title = sidecar.Title
		}
		if sidecar.PersonaMode.Valid() {
			doc.PersonaMode = sidecar.PersonaMode
		}
		if !sidecar.CreatedAt.IsZero() {
			doc.CreatedAt = sidecar.CreatedAt
		}
		if !sidecar.UpdatedAt.IsZero() {
			doc.UpdatedAt = sidecar.UpdatedAt
		}
	}

	return doc
}
