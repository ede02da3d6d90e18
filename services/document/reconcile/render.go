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
	"encoding/json"
	"sort"
	"strings"

	"github.com/AleutianAI/lucidlines/services/document/datatypes"
)

// RenderMarkdown serializes a document to its persisted text form:
// each paragraph as a marker line followed by its text, paragraphs
// separated by a blank line. Empty text is written as a single space
// so the marker keeps a body to bind to.
func RenderMarkdown(doc *datatypes.Document) string {
	ordered := orderedParagraphs(doc)

	var b strings.Builder
	for i, p := range ordered {
		if i > 0 {
			b.WriteString("\n")
		}
		b.WriteString(FormatMarker(p.ID))
		b.WriteString("\n")
		text := p.Text
		if strings.TrimSpace(text) == "" {
			text = datatypes.PlaceholderText
		}
		b.WriteString(text)
		b.WriteString("\n")
	}
	return b.String()
}

// Sidecar builds the analysis sidecar for a document.
func Sidecar(doc *datatypes.Document) *datatypes.SidecarFile {
	ordered := orderedParagraphs(doc)

	entries := make([]datatypes.SidecarParagraph, 0, len(ordered))
	for _, p := range ordered {
		entries = append(entries, datatypes.SidecarParagraph{
			ParagraphID: p.ID,
			Order:       p.Order,
			Analysis:    p.Analysis.Clone(),
		})
	}

	return &datatypes.SidecarFile{
		Version:     datatypes.SchemaVersion,
		DocumentID:  doc.DocumentID,
		Title:       doc.Title,
		PersonaMode: doc.PersonaMode,
		CreatedAt:   doc.CreatedAt,
		UpdatedAt:   doc.UpdatedAt,
		Paragraphs:  entries,
	}
}

// EncodeSidecar marshals a sidecar to indented JSON.
func EncodeSidecar(sc *datatypes.SidecarFile) ([]byte, error) {
	return json.MarshalIndent(sc, "", "  ")
}

// DecodeSidecar parses sidecar JSON tolerantly. Externally-authored
// files may be malformed; any shape mismatch is treated as "absent"
// rather than fatal, preserving the fallback-to-stale behavior:
//   - unparseable JSON yields nil
//   - entries missing a paragraph id or carrying a non-positive order
//     are dropped
//   - entries with an unknown analysis status fall back to stale
func DecodeSidecar(data []byte) *datatypes.SidecarFile {
	var sc datatypes.SidecarFile
	if err := json.Unmarshal(data, &sc); err != nil {
		return nil
	}

	kept := sc.Paragraphs[:0]
	for _, entry := range sc.Paragraphs {
		if entry.ParagraphID == "" || entry.Order <= 0 {
			continue
		}
		switch entry.Analysis.Status {
		case datatypes.StatusStale, datatypes.StatusPending,
			datatypes.StatusComplete, datatypes.StatusFailed:
		default:
			entry.Analysis = datatypes.StaleAnalysis()
		}
		kept = append(kept, entry)
	}
	sc.Paragraphs = kept

	return &sc
}

func orderedParagraphs(doc *datatypes.Document) []datatypes.Paragraph {
	ordered := make([]datatypes.Paragraph, len(doc.Paragraphs))
	copy(ordered, doc.Paragraphs)
	sort.SliceStable(ordered, func(i, j int) bool {
		return ordered[i].Order < ordered[j].Order
	})
	return ordered
}
