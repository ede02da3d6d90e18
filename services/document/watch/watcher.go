// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package watch emits events when document files change on disk
// outside the engine, so the owner can reload and re-reconcile.
package watch

import (
	"context"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/fsnotify/fsnotify"

	"github.com/AleutianAI/lucidlines/services/document/datatypes"
)

// Op classifies an external change.
type Op string

const (
	OpWrite  Op = "write"
	OpCreate Op = "create"
	OpRemove Op = "remove"
	OpRename Op = "rename"
)

// Event is one external change to a watched document or sidecar file.
type Event struct {
	// Path is the changed file, relative to the watch root.
	Path string

	// Op is the kind of change.
	Op Op
}

// Watcher observes a documents root directory recursively and reports
// changes to markdown and sidecar files.
type Watcher struct {
	root   string
	fsw    *fsnotify.Watcher
	events chan Event
}

// New creates a watcher rooted at the given directory. Existing
// subdirectories are watched immediately; directories created later
// are added as they appear.
func New(root string) (*Watcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("create watcher: %w", err)
	}

	w := &Watcher{
		root:   root,
		fsw:    fsw,
		events: make(chan Event, 64),
	}

	err = filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return fsw.Add(path)
		}
		return nil
	})
	if err != nil {
		fsw.Close()
		return nil, fmt.Errorf("watch %s: %w", root, err)
	}

	return w, nil
}

// Events returns the channel external changes are delivered on. The
// channel is closed when Run returns.
func (w *Watcher) Events() <-chan Event {
	return w.events
}

// Run pumps filesystem notifications until the context is cancelled or
// the underlying watcher closes. Events for files that are neither
// markdown nor sidecars are dropped; new directories are added to the
// watch set. If the event buffer is full the change is dropped with a
// warning; the next write to the same file produces a fresh event.
func (w *Watcher) Run(ctx context.Context) {
	defer close(w.events)

	for {
		select {
		case <-ctx.Done():
			return

		case ev, ok := <-w.fsw.Events:
			if !ok {
				return
			}
			w.handle(ev)

		case err, ok := <-w.fsw.Errors:
			if !ok {
				return
			}
			slog.Warn("watcher error", "error", err)
		}
	}
}

// Close stops the underlying filesystem watcher.
func (w *Watcher) Close() error {
	return w.fsw.Close()
}

func (w *Watcher) handle(ev fsnotify.Event) {
	if ev.Op.Has(fsnotify.Create) {
		if info, err := os.Stat(ev.Name); err == nil && info.IsDir() {
			if err := w.fsw.Add(ev.Name); err != nil {
				slog.Warn("failed to watch new directory", "path", ev.Name, "error", err)
			}
			return
		}
	}

	if !watchedFile(ev.Name) {
		return
	}

	rel, err := filepath.Rel(w.root, ev.Name)
	if err != nil {
		rel = ev.Name
	}

	var op Op
	switch {
	case ev.Op.Has(fsnotify.Create):
		op = OpCreate
	case ev.Op.Has(fsnotify.Write):
		op = OpWrite
	case ev.Op.Has(fsnotify.Remove):
		op = OpRemove
	case ev.Op.Has(fsnotify.Rename):
		op = OpRename
	default:
		return
	}

	select {
	case w.events <- Event{Path: filepath.ToSlash(rel), Op: op}:
	default:
		slog.Warn("watch event buffer full, dropping", "path", rel, "op", op)
	}
}

func watchedFile(path string) bool {
	return strings.HasSuffix(path, ".md") ||
		strings.HasSuffix(path, datatypes.SidecarSuffix)
}
