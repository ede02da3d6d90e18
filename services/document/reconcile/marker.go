// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package reconcile reconstructs stable paragraph identities from raw
// markdown text, optional embedded identity markers, and a previously
// persisted analysis sidecar. It also renders the persisted form back
// out (marker-prefixed markdown plus sidecar JSON).
package reconcile

import (
	"regexp"
	"strings"
)

// markerPattern matches a standalone identity marker line of the exact
// shape `<!-- ll:id=<token> -->`. Leading/trailing whitespace on the
// line is tolerated.
var markerPattern = regexp.MustCompile(`^\s*<!--\s*ll:id=(p_[A-Za-z0-9_-]+)\s*-->\s*$`)

// FormatMarker renders the marker line for a paragraph id.
func FormatMarker(id string) string {
	return "<!-- ll:id=" + id + " -->"
}

// parseMarker returns the paragraph id on a marker line, or "" if the
// line is not a marker.
func parseMarker(line string) string {
	m := markerPattern.FindStringSubmatch(line)
	if m == nil {
		return ""
	}
	return m[1]
}

// Run is one contiguous non-blank block of text, optionally carrying
// the id from a marker line that immediately preceded it.
type Run struct {
	// MarkerID is the id from an explicit marker, or "" if the run
	// had none.
	MarkerID string

	// Text is the run's content with the marker line removed and
	// trailing whitespace trimmed.
	Text string
}

// SplitRuns splits raw text into paragraph runs. A paragraph boundary
// is one or more blank lines (whitespace-only lines count as blank).
// A marker line binds to the run that follows it; a marker followed by
// a blank line yields a run with empty text at the marker's position.
//
// A marker never carries across a blank line: in a marker/blank/text
// sequence the marker's id stays with an empty run and the text
// becomes an unmarked run. The renderer always writes markers directly
// above their paragraph, so this shape only appears in hand-edited
// files, where keeping the id in place beats guessing which later
// paragraph it was meant for.
func SplitRuns(raw string) []Run {
	lines := strings.Split(raw, "\n")

	var runs []Run
	var current []string
	markerID := ""
	inRun := false

	flush := func() {
		if !inRun {
			return
		}
		text := strings.TrimRight(strings.Join(current, "\n"), " \t\r\n")
		runs = append(runs, Run{MarkerID: markerID, Text: text})
		current = nil
		markerID = ""
		inRun = false
	}

	for _, line := range lines {
		if strings.TrimSpace(line) == "" {
			flush()
			continue
		}
		if id := parseMarker(line); id != "" {
			// A marker opens a new run even if text follows with no
			// separating blank line.
			flush()
			markerID = id
			inRun = true
			continue
		}
		inRun = true
		current = append(current, line)
	}
	flush()

	return runs
}
