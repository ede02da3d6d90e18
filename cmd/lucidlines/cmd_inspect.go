// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package main

import (
	"fmt"
	"log"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/AleutianAI/lucidlines/services/document/datatypes"
	"github.com/AleutianAI/lucidlines/services/document/persist"
	"github.com/AleutianAI/lucidlines/services/document/reconcile"
)

// runInspect reconciles a markdown file against its analysis sidecar
// and prints the resulting paragraph table.
func runInspect(cmd *cobra.Command, args []string) {
	path := args[0]

	raw, err := os.ReadFile(path)
	if err != nil {
		log.Fatalf("Failed to read %s: %v", path, err)
	}

	var sidecar *datatypes.SidecarFile
	sidecarPath := persist.SidecarPath(path)
	if data, err := os.ReadFile(sidecarPath); err == nil {
		sidecar = reconcile.DecodeSidecar(data)
		if sidecar == nil {
			fmt.Fprintf(os.Stderr, "warning: sidecar %s is malformed, ignoring\n", sidecarPath)
		}
	}

	doc := reconcile.Document(string(raw), sidecar, persist.TitleFromPath(path))

	fmt.Printf("Document: %s\n", doc.Title)
	fmt.Printf("ID:       %s\n", doc.DocumentID)
	fmt.Printf("Persona:  %s\n", doc.PersonaMode)
	fmt.Printf("Paragraphs: %d\n\n", len(doc.Paragraphs))

	fmt.Printf("%-5s %-16s %-9s %6s  %s\n", "ORDER", "ID", "STATUS", "CHARS", "EMOTION")
	for _, p := range doc.Paragraphs {
		emotion := strings.Join(p.Analysis.Emotion, ", ")
		if emotion == "" {
			emotion = "-"
		}
		fmt.Printf("%-5d %-16s %-9s %6d  %s\n",
			p.Order, p.ID, p.Analysis.Status, p.CharCount, emotion)
	}
}
