// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package persist

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path"
	"strings"
	"sync"

	"github.com/AleutianAI/lucidlines/services/document/datatypes"
	"github.com/AleutianAI/lucidlines/services/document/reconcile"
)

// Service is the revision-checked persistence layer.
//
// Each persisted path carries a revision counter starting at 0 on
// creation and incremented by exactly 1 on every successful save. The
// counter is the sole authority for detecting lost-update conflicts;
// no timestamp or hash comparison is used. Check-and-increment happens
// atomically under the service mutex so two concurrent saves cannot
// both win the conflict check.
type Service struct {
	mu        sync.Mutex
	adapter   Adapter
	revisions map[string]int
}

// NewService creates a Service over the given adapter.
func NewService(adapter Adapter) *Service {
	return &Service{
		adapter:   adapter,
		revisions: make(map[string]int),
	}
}

// SidecarPath derives the analysis sidecar path for a text path:
// same stem, fixed suffix ("notes/day.md" -> "notes/day.ll.analysis.json").
func SidecarPath(textPath string) string {
	stem := strings.TrimSuffix(textPath, path.Ext(textPath))
	return stem + datatypes.SidecarSuffix
}

// TitleFromPath derives a fallback document title from the path stem.
func TitleFromPath(textPath string) string {
	base := path.Base(textPath)
	return strings.TrimSuffix(base, path.Ext(base))
}

// Revision returns the stored revision for a path (0 if never saved).
func (s *Service) Revision(p string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.revisions[p]
}

// Save persists the document at path if expectedRevision matches the
// stored revision.
//
// On a match the text and sidecar are written, the stored revision
// becomes expectedRevision+1, and the new revision is returned. On a
// mismatch nothing is written and the returned error is an APIError
// with code REVISION_MISMATCH carrying the stored revision so the
// caller can reload and retry. No field-level merge is attempted.
func (s *Service) Save(ctx context.Context, p string, doc *datatypes.Document, expectedRevision int) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	stored := s.revisions[p]
	if stored != expectedRevision {
		slog.Warn("save conflict",
			"path", p,
			"expected_revision", expectedRevision,
			"stored_revision", stored,
		)
		return 0, datatypes.NewRevisionMismatch(stored)
	}

	text := reconcile.RenderMarkdown(doc)
	sidecar, err := reconcile.EncodeSidecar(reconcile.Sidecar(doc))
	if err != nil {
		return 0, fmt.Errorf("encode sidecar for %s: %w", p, err)
	}

	if err := s.adapter.Set(ctx, p, []byte(text)); err != nil {
		return 0, fmt.Errorf("write text: %w", err)
	}
	if err := s.adapter.Set(ctx, SidecarPath(p), sidecar); err != nil {
		return 0, fmt.Errorf("write sidecar: %w", err)
	}

	s.revisions[p] = expectedRevision + 1
	slog.Debug("document saved",
		"path", p,
		"revision", s.revisions[p],
		"paragraphs", len(doc.Paragraphs),
	)
	return s.revisions[p], nil
}

// Create persists a new document at path and resets its stored
// revision to 0 unconditionally; creation cannot conflict.
func (s *Service) Create(ctx context.Context, p string, doc *datatypes.Document) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	text := reconcile.RenderMarkdown(doc)
	sidecar, err := reconcile.EncodeSidecar(reconcile.Sidecar(doc))
	if err != nil {
		return fmt.Errorf("encode sidecar for %s: %w", p, err)
	}

	if err := s.adapter.Set(ctx, p, []byte(text)); err != nil {
		return fmt.Errorf("write text: %w", err)
	}
	if err := s.adapter.Set(ctx, SidecarPath(p), sidecar); err != nil {
		return fmt.Errorf("write sidecar: %w", err)
	}

	s.revisions[p] = 0
	slog.Info("document created", "path", p, "document_id", doc.DocumentID)
	return nil
}

// Load reads the text and sidecar at path and reconciles them into a
// document. A missing or malformed sidecar is treated as absent;
// paragraphs then fall back to minted ids and stale analysis. Returns
// the document and its stored revision.
func (s *Service) Load(ctx context.Context, p string) (*datatypes.Document, int, error) {
	text, err := s.adapter.Get(ctx, p)
	if err != nil {
		return nil, 0, fmt.Errorf("load %s: %w", p, err)
	}

	var sidecar *datatypes.SidecarFile
	if raw, err := s.adapter.Get(ctx, SidecarPath(p)); err == nil {
		sidecar = reconcile.DecodeSidecar(raw)
		if sidecar == nil {
			slog.Warn("ignoring malformed sidecar", "path", SidecarPath(p))
		}
	}

	doc := reconcile.Document(string(text), sidecar, TitleFromPath(p))

	s.mu.Lock()
	revision := s.revisions[p]
	s.mu.Unlock()

	slog.Debug("document loaded",
		"path", p,
		"document_id", doc.DocumentID,
		"paragraphs", len(doc.Paragraphs),
		"revision", revision,
	)
	return doc, revision, nil
}

// Rename moves a path and everything nested under it, migrating the
// corresponding revision entries. Sidecars follow their text files.
func (s *Service) Rename(ctx context.Context, oldPath, newPath string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	// Exact file plus its sidecar.
	if err := s.adapter.Rename(ctx, oldPath, newPath); err == nil {
		if err := s.adapter.Rename(ctx, SidecarPath(oldPath), SidecarPath(newPath)); err != nil && !errors.Is(err, ErrNotFound) {
			return fmt.Errorf("rename sidecar: %w", err)
		}
	} else if !errors.Is(err, ErrNotFound) {
		return fmt.Errorf("rename %s: %w", oldPath, err)
	}

	// Nested blobs (directory rename).
	nested, err := s.adapter.List(ctx, oldPath+"/")
	if err != nil {
		return fmt.Errorf("list %s: %w", oldPath, err)
	}
	for _, p := range nested {
		target := newPath + strings.TrimPrefix(p, oldPath)
		if err := s.adapter.Rename(ctx, p, target); err != nil && !errors.Is(err, ErrNotFound) {
			return fmt.Errorf("rename %s: %w", p, err)
		}
	}

	// Revision entries migrate with their paths.
	for key, rev := range s.revisions {
		switch {
		case key == oldPath:
			s.revisions[newPath] = rev
			delete(s.revisions, key)
		case strings.HasPrefix(key, oldPath+"/"):
			s.revisions[newPath+strings.TrimPrefix(key, oldPath)] = rev
			delete(s.revisions, key)
		}
	}

	slog.Info("path renamed", "old_path", oldPath, "new_path", newPath, "nested", len(nested))
	return nil
}

// Remove deletes a path and everything nested under it, clearing the
// corresponding revision entries.
func (s *Service) Remove(ctx context.Context, p string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.adapter.Delete(ctx, p); err != nil {
		return fmt.Errorf("delete %s: %w", p, err)
	}
	if err := s.adapter.Delete(ctx, SidecarPath(p)); err != nil {
		return fmt.Errorf("delete sidecar: %w", err)
	}

	nested, err := s.adapter.List(ctx, p+"/")
	if err != nil {
		return fmt.Errorf("list %s: %w", p, err)
	}
	for _, child := range nested {
		if err := s.adapter.Delete(ctx, child); err != nil {
			return fmt.Errorf("delete %s: %w", child, err)
		}
	}

	for key := range s.revisions {
		if key == p || strings.HasPrefix(key, p+"/") {
			delete(s.revisions, key)
		}
	}

	slog.Info("path removed", "path", p, "nested", len(nested))
	return nil
}
