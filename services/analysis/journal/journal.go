// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package journal persists one row per analysis request for auditing
// and debugging: who asked, how big the batch was, and how it ended.
package journal

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"time"

	badger "github.com/dgraph-io/badger/v4"

	storage "github.com/AleutianAI/lucidlines/pkg/storage/badger"
	"github.com/AleutianAI/lucidlines/services/document/datatypes"
)

// journalKeyPrefix separates journal rows from other keyspaces sharing
// the database (doc/, usage/).
const journalKeyPrefix = "reqjournal/"

// ErrNotFound is returned when no row exists for a request id.
var ErrNotFound = errors.New("request not found")

// Status of a journaled request.
type Status string

const (
	StatusPending  Status = "pending"
	StatusComplete Status = "complete"
	StatusFailed   Status = "failed"
)

// Record is one journaled analysis request.
type Record struct {
	RequestID      string     `json:"requestId"`
	UserID         string     `json:"userId"`
	DocumentID     string     `json:"documentId"`
	ParagraphCount int        `json:"paragraphCount"`
	Model          string     `json:"model,omitempty"`
	PromptVersion  string     `json:"promptVersion"`
	Status         Status     `json:"status"`
	ErrorCode      string     `json:"errorCode,omitempty"`
	CreatedAt      time.Time  `json:"createdAt"`
	CompletedAt    *time.Time `json:"completedAt,omitempty"`
}

// Journal stores request records in BadgerDB.
type Journal struct {
	db *storage.DB

	now func() time.Time
}

// New wraps an open database as a request journal.
func New(db *storage.DB) *Journal {
	return &Journal{db: db, now: time.Now}
}

func key(requestID string) []byte {
	return []byte(journalKeyPrefix + requestID)
}

// Begin writes a pending row for a freshly admitted request.
func (j *Journal) Begin(ctx context.Context, rec Record) error {
	rec.Status = StatusPending
	rec.CreatedAt = j.now().UTC()
	rec.CompletedAt = nil
	return j.put(ctx, rec)
}

// Complete marks a request finished successfully, recording the model
// that served it.
func (j *Journal) Complete(ctx context.Context, requestID, model string) error {
	return j.finish(ctx, requestID, StatusComplete, model, "")
}

// Fail marks a request finished unsuccessfully with the error code
// surfaced to the caller.
func (j *Journal) Fail(ctx context.Context, requestID string, code datatypes.ErrorCode) error {
	return j.finish(ctx, requestID, StatusFailed, "", string(code))
}

// Get returns the record for a request id, or ErrNotFound.
func (j *Journal) Get(ctx context.Context, requestID string) (Record, error) {
	var rec Record
	err := j.db.WithReadTxn(ctx, func(txn *badger.Txn) error {
		item, err := txn.Get(key(requestID))
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			return json.Unmarshal(val, &rec)
		})
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return Record{}, ErrNotFound
	}
	if err != nil {
		return Record{}, fmt.Errorf("get journal row %s: %w", requestID, err)
	}
	return rec, nil
}

// List returns every journaled record, newest first by CreatedAt.
func (j *Journal) List(ctx context.Context) ([]Record, error) {
	var records []Record
	err := j.db.WithReadTxn(ctx, func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = []byte(journalKeyPrefix)

		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Rewind(); it.Valid(); it.Next() {
			var rec Record
			err := it.Item().Value(func(val []byte) error {
				return json.Unmarshal(val, &rec)
			})
			if err != nil {
				return err
			}
			records = append(records, rec)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("list journal: %w", err)
	}

	sort.Slice(records, func(i, k int) bool {
		return records[i].CreatedAt.After(records[k].CreatedAt)
	})
	return records, nil
}

func (j *Journal) finish(ctx context.Context, requestID string, status Status, model, code string) error {
	rec, err := j.Get(ctx, requestID)
	if err != nil {
		return err
	}
	rec.Status = status
	if model != "" {
		rec.Model = model
	}
	rec.ErrorCode = code
	done := j.now().UTC()
	rec.CompletedAt = &done
	return j.put(ctx, rec)
}

func (j *Journal) put(ctx context.Context, rec Record) error {
	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("encode journal row: %w", err)
	}
	err = j.db.WithTxn(ctx, func(txn *badger.Txn) error {
		return txn.Set(key(rec.RequestID), data)
	})
	if err != nil {
		return fmt.Errorf("write journal row %s: %w", rec.RequestID, err)
	}
	return nil
}
