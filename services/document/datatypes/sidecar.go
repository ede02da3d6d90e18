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

import "time"

// SidecarSuffix is appended to a document's path stem to derive its
// analysis sidecar path ("journal.md" -> "journal.ll.analysis.json").
const SidecarSuffix = ".ll.analysis.json"

// SidecarParagraph is one persisted paragraph entry in the sidecar.
type SidecarParagraph struct {
	ParagraphID string        `json:"paragraphId"`
	Order       int           `json:"order"`
	Analysis    AnalysisState `json:"analysis"`
}

// SidecarFile is the JSON analysis sidecar stored next to the text
// file. It carries document metadata and per-paragraph analysis so
// identities and results survive a reload.
type SidecarFile struct {
	Version     int                `json:"version"`
	DocumentID  string             `json:"documentId"`
	Title       string             `json:"title"`
	PersonaMode PersonaMode        `json:"personaMode"`
	CreatedAt   time.Time          `json:"createdAt"`
	UpdatedAt   time.Time          `json:"updatedAt"`
	Paragraphs  []SidecarParagraph `json:"paragraphs"`
}
