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
	"strings"
	"sync"
)

// MemoryAdapter is a map-backed Adapter for tests and ephemeral use.
type MemoryAdapter struct {
	mu    sync.RWMutex
	blobs map[string][]byte
}

// NewMemoryAdapter creates an empty in-memory adapter.
func NewMemoryAdapter() *MemoryAdapter {
	return &MemoryAdapter{blobs: make(map[string][]byte)}
}

var _ Adapter = (*MemoryAdapter)(nil)

// Get returns the blob at path, or ErrNotFound.
func (m *MemoryAdapter) Get(ctx context.Context, path string) ([]byte, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	data, ok := m.blobs[path]
	if !ok {
		return nil, ErrNotFound
	}
	out := make([]byte, len(data))
	copy(out, data)
	return out, nil
}

// Set writes the blob at path.
func (m *MemoryAdapter) Set(ctx context.Context, path string, data []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	stored := make([]byte, len(data))
	copy(stored, data)
	m.blobs[path] = stored
	return nil
}

// Delete removes the blob at path.
func (m *MemoryAdapter) Delete(ctx context.Context, path string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.blobs, path)
	return nil
}

// Rename moves the blob at oldPath to newPath.
func (m *MemoryAdapter) Rename(ctx context.Context, oldPath, newPath string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	data, ok := m.blobs[oldPath]
	if !ok {
		return ErrNotFound
	}
	m.blobs[newPath] = data
	delete(m.blobs, oldPath)
	return nil
}

// List returns all stored paths beginning with prefix.
func (m *MemoryAdapter) List(ctx context.Context, prefix string) ([]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var paths []string
	for path := range m.blobs {
		if strings.HasPrefix(path, prefix) {
			paths = append(paths, path)
		}
	}
	return paths, nil
}
