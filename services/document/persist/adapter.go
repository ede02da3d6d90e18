// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package persist provides durable document storage guarded by
// per-path revision counters.
//
// The Adapter interface is the narrow external collaborator the engine
// needs: get/set/delete/rename keyed by path. Two implementations are
// provided, an in-memory map for tests and a BadgerDB-backed store.
// The Service layered on top performs the optimistic-concurrency
// checks and text/sidecar composition.
package persist

import (
	"context"
	"errors"
)

// ErrNotFound is returned by adapters when a path has no stored blob.
var ErrNotFound = errors.New("path not found")

// Adapter is the durable blob store consumed by the Service.
//
// Paths are opaque slash-separated keys ("journal/2026-08-30.md").
// Implementations must be safe for concurrent use.
type Adapter interface {
	// Get returns the blob at path, or ErrNotFound.
	Get(ctx context.Context, path string) ([]byte, error)

	// Set writes the blob at path, overwriting any existing value.
	Set(ctx context.Context, path string, data []byte) error

	// Delete removes the blob at path. Deleting a missing path is
	// not an error.
	Delete(ctx context.Context, path string) error

	// Rename moves the blob at oldPath to newPath, overwriting any
	// existing value at newPath. Returns ErrNotFound if oldPath has
	// no blob.
	Rename(ctx context.Context, oldPath, newPath string) error

	// List returns all stored paths beginning with prefix, in
	// unspecified order.
	List(ctx context.Context, prefix string) ([]string, error)
}
