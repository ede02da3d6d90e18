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
	"strings"
	"sync"
	"time"
)

// MemoryLedger is a map-backed Ledger for tests.
type MemoryLedger struct {
	mu   sync.Mutex
	days map[string]map[string]Aggregate // userID -> day -> aggregate

	// now is swapped in tests for deterministic day boundaries.
	now func() time.Time

	// FailWrites forces IncrementUsage to return an error, for
	// exercising the log-and-continue path.
	FailWrites error
}

// NewMemoryLedger creates an empty in-memory ledger.
func NewMemoryLedger() *MemoryLedger {
	return &MemoryLedger{
		days: make(map[string]map[string]Aggregate),
		now:  time.Now,
	}
}

var _ Ledger = (*MemoryLedger)(nil)

// IncrementUsage adds the delta to the user's aggregate for today.
func (l *MemoryLedger) IncrementUsage(ctx context.Context, userID string, delta Delta) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.FailWrites != nil {
		return l.FailWrites
	}

	day := l.now().UTC().Format(dayFormat)
	if l.days[userID] == nil {
		l.days[userID] = make(map[string]Aggregate)
	}
	agg := l.days[userID][day]
	agg.add(delta)
	l.days[userID][day] = agg
	return nil
}

// GetTodayInputTokens returns today's summed input tokens for a user.
func (l *MemoryLedger) GetTodayInputTokens(ctx context.Context, userID string) (int, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	day := l.now().UTC().Format(dayFormat)
	return l.days[userID][day].InputTokens, nil
}

// GetUsage returns today's and the current month's aggregates.
func (l *MemoryLedger) GetUsage(ctx context.Context, userID string) (Usage, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now().UTC()
	today := l.days[userID][now.Format(dayFormat)]

	var month Aggregate
	monthPrefix := now.Format("2006-01")
	for day, agg := range l.days[userID] {
		if strings.HasPrefix(day, monthPrefix) {
			month.merge(agg)
		}
	}

	return Usage{Today: today, Month: month}, nil
}
