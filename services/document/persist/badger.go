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
	"strings"

	badger "github.com/dgraph-io/badger/v4"

	storage "github.com/AleutianAI/lucidlines/pkg/storage/badger"
)

// docKeyPrefix separates document blobs from other keyspaces sharing
// the database (usage/, reqjournal/).
const docKeyPrefix = "doc/"

// BadgerAdapter persists document blobs in BadgerDB.
type BadgerAdapter struct {
	db *storage.DB
}

// NewBadgerAdapter wraps an open database as a document Adapter.
func NewBadgerAdapter(db *storage.DB) *BadgerAdapter {
	return &BadgerAdapter{db: db}
}

var _ Adapter = (*BadgerAdapter)(nil)

func docKey(path string) []byte {
	return []byte(docKeyPrefix + path)
}

// Get returns the blob at path, or ErrNotFound.
func (b *BadgerAdapter) Get(ctx context.Context, path string) ([]byte, error) {
	var data []byte
	err := b.db.WithReadTxn(ctx, func(txn *badger.Txn) error {
		item, err := txn.Get(docKey(path))
		if err != nil {
			return err
		}
		data, err = item.ValueCopy(nil)
		return err
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get %s: %w", path, err)
	}
	return data, nil
}

// Set writes the blob at path.
func (b *BadgerAdapter) Set(ctx context.Context, path string, data []byte) error {
	err := b.db.WithTxn(ctx, func(txn *badger.Txn) error {
		return txn.Set(docKey(path), data)
	})
	if err != nil {
		return fmt.Errorf("set %s: %w", path, err)
	}
	return nil
}

// Delete removes the blob at path.
func (b *BadgerAdapter) Delete(ctx context.Context, path string) error {
	err := b.db.WithTxn(ctx, func(txn *badger.Txn) error {
		err := txn.Delete(docKey(path))
		if errors.Is(err, badger.ErrKeyNotFound) {
			return nil
		}
		return err
	})
	if err != nil {
		return fmt.Errorf("delete %s: %w", path, err)
	}
	return nil
}

// Rename moves the blob at oldPath to newPath in one transaction.
func (b *BadgerAdapter) Rename(ctx context.Context, oldPath, newPath string) error {
	err := b.db.WithTxn(ctx, func(txn *badger.Txn) error {
		item, err := txn.Get(docKey(oldPath))
		if err != nil {
			return err
		}
		data, err := item.ValueCopy(nil)
		if err != nil {
			return err
		}
		if err := txn.Set(docKey(newPath), data); err != nil {
			return err
		}
		return txn.Delete(docKey(oldPath))
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("rename %s to %s: %w", oldPath, newPath, err)
	}
	return nil
}

// List returns all stored paths beginning with prefix.
func (b *BadgerAdapter) List(ctx context.Context, prefix string) ([]string, error) {
	var paths []string
	err := b.db.WithReadTxn(ctx, func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		opts.Prefix = []byte(docKeyPrefix + prefix)

		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Rewind(); it.Valid(); it.Next() {
			key := string(it.Item().Key())
			paths = append(paths, strings.TrimPrefix(key, docKeyPrefix))
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("list %s: %w", prefix, err)
	}
	return paths, nil
}
