// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package usage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	badger "github.com/dgraph-io/badger/v4"

	storage "github.com/AleutianAI/lucidlines/pkg/storage/badger"
)

// usageKeyPrefix separates ledger rows from other keyspaces sharing
// the database (doc/, reqjournal/).
const usageKeyPrefix = "usage/"

const dayFormat = "2006-01-02"

// BadgerLedger is the durable Ledger backed by BadgerDB. One row per
// user per day, keyed usage/<userID>/<YYYY-MM-DD>.
type BadgerLedger struct {
	db *storage.DB

	// now is swapped in tests for deterministic day boundaries.
	now func() time.Time
}

// NewBadgerLedger wraps an open database as a usage Ledger.
func NewBadgerLedger(db *storage.DB) *BadgerLedger {
	return &BadgerLedger{db: db, now: time.Now}
}

var _ Ledger = (*BadgerLedger)(nil)

func dayKey(userID string, day time.Time) []byte {
	return []byte(fmt.Sprintf("%s%s/%s", usageKeyPrefix, userID, day.Format(dayFormat)))
}

// IncrementUsage adds the delta to the user's aggregate for today in
// one read-modify-write transaction.
func (l *BadgerLedger) IncrementUsage(ctx context.Context, userID string, delta Delta) error {
	key := dayKey(userID, l.now().UTC())

	err := l.db.WithTxn(ctx, func(txn *badger.Txn) error {
		var agg Aggregate

		item, err := txn.Get(key)
		switch {
		case err == nil:
			err = item.Value(func(val []byte) error {
				return json.Unmarshal(val, &agg)
			})
			if err != nil {
				return fmt.Errorf("decode aggregate: %w", err)
			}
		case errors.Is(err, badger.ErrKeyNotFound):
			// First request of the day.
		default:
			return err
		}

		agg.add(delta)

		data, err := json.Marshal(agg)
		if err != nil {
			return fmt.Errorf("encode aggregate: %w", err)
		}
		return txn.Set(key, data)
	})
	if err != nil {
		return fmt.Errorf("increment usage for %s: %w", userID, err)
	}
	return nil
}

// GetTodayInputTokens returns today's summed input tokens for a user.
func (l *BadgerLedger) GetTodayInputTokens(ctx context.Context, userID string) (int, error) {
	agg, err := l.day(ctx, userID, l.now().UTC())
	if err != nil {
		return 0, err
	}
	return agg.InputTokens, nil
}

// GetUsage returns today's and the current month's aggregates. The
// month rollup sums every daily row sharing the YYYY-MM prefix.
func (l *BadgerLedger) GetUsage(ctx context.Context, userID string) (Usage, error) {
	now := l.now().UTC()

	today, err := l.day(ctx, userID, now)
	if err != nil {
		return Usage{}, err
	}

	var month Aggregate
	monthPrefix := []byte(fmt.Sprintf("%s%s/%s", usageKeyPrefix, userID, now.Format("2006-01")))

	err = l.db.WithReadTxn(ctx, func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = monthPrefix

		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Rewind(); it.Valid(); it.Next() {
			var agg Aggregate
			err := it.Item().Value(func(val []byte) error {
				return json.Unmarshal(val, &agg)
			})
			if err != nil {
				return fmt.Errorf("decode aggregate: %w", err)
			}
			month.merge(agg)
		}
		return nil
	})
	if err != nil {
		return Usage{}, fmt.Errorf("get usage for %s: %w", userID, err)
	}

	return Usage{Today: today, Month: month}, nil
}

func (l *BadgerLedger) day(ctx context.Context, userID string, day time.Time) (Aggregate, error) {
	var agg Aggregate
	err := l.db.WithReadTxn(ctx, func(txn *badger.Txn) error {
		item, err := txn.Get(dayKey(userID, day))
		if errors.Is(err, badger.ErrKeyNotFound) {
			return nil
		}
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			return json.Unmarshal(val, &agg)
		})
	})
	if err != nil {
		return Aggregate{}, fmt.Errorf("read day aggregate for %s: %w", userID, err)
	}
	return agg, nil
}
