// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package admission

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AleutianAI/lucidlines/services/analysis/usage"
	"github.com/AleutianAI/lucidlines/services/document/datatypes"
)

func newTestGuard(cfg Config) (*Guard, *usage.MemoryLedger, *time.Time) {
	ledger := usage.NewMemoryLedger()
	guard := NewGuard(cfg, ledger)
	now := time.Date(2026, 8, 30, 10, 0, 0, 0, time.UTC)
	guard.now = func() time.Time { return now }
	return guard, ledger, &now
}

func requireRateLimited(t *testing.T, err error) {
	t.Helper()
	var apiErr *datatypes.APIError
	require.True(t, errors.As(err, &apiErr), "expected APIError, got %v", err)
	assert.Equal(t, datatypes.CodeRateLimitExceeded, apiErr.Code)
}

func TestPerMinuteWindow(t *testing.T) {
	guard, _, now := newTestGuard(DefaultConfig())
	ctx := context.Background()

	for i := 0; i < 10; i++ {
		require.NoError(t, guard.Admit(ctx, "u1", 10), "request %d should pass", i+1)
		guard.Release("u1")
	}

	// Eleventh request inside the same minute is rejected.
	err := guard.Admit(ctx, "u1", 10)
	requireRateLimited(t, err)
	assert.Zero(t, guard.InFlight("u1"), "rejection must not hold a slot")

	// Window expiry resets the count lazily.
	*now = now.Add(61 * time.Second)
	require.NoError(t, guard.Admit(ctx, "u1", 10))
	guard.Release("u1")
}

func TestPerHourWindow(t *testing.T) {
	cfg := DefaultConfig()
	cfg.PerMinute = 1000 // keep the minute window out of the way
	guard, _, now := newTestGuard(cfg)
	ctx := context.Background()

	for i := 0; i < 100; i++ {
		require.NoError(t, guard.Admit(ctx, "u1", 1))
		guard.Release("u1")
		if i%10 == 9 {
			*now = now.Add(2 * time.Minute) // spread within the hour
		}
	}

	requireRateLimited(t, guard.Admit(ctx, "u1", 1))

	*now = now.Add(time.Hour)
	require.NoError(t, guard.Admit(ctx, "u1", 1))
	guard.Release("u1")
}

func TestConcurrencyCap(t *testing.T) {
	guard, _, _ := newTestGuard(DefaultConfig())
	ctx := context.Background()

	require.NoError(t, guard.Admit(ctx, "u1", 1))
	require.NoError(t, guard.Admit(ctx, "u1", 1))
	assert.Equal(t, 2, guard.InFlight("u1"))

	requireRateLimited(t, guard.Admit(ctx, "u1", 1))
	assert.Equal(t, 2, guard.InFlight("u1"))

	guard.Release("u1")
	require.NoError(t, guard.Admit(ctx, "u1", 1))
}

func TestDailyQuota(t *testing.T) {
	cfg := DefaultConfig()
	cfg.DailyTokenQuota = 1000
	guard, ledger, _ := newTestGuard(cfg)
	ctx := context.Background()

	require.NoError(t, ledger.IncrementUsage(ctx, "u1", usage.Delta{InputTokens: 900}))

	t.Run("estimate within quota passes", func(t *testing.T) {
		require.NoError(t, guard.Admit(ctx, "u1", 100))
		guard.Release("u1")
	})

	t.Run("estimate over quota is rejected and releases the slot", func(t *testing.T) {
		err := guard.Admit(ctx, "u1", 101)
		requireRateLimited(t, err)
		assert.Zero(t, guard.InFlight("u1"))
	})

	t.Run("other users have their own quota", func(t *testing.T) {
		require.NoError(t, guard.Admit(ctx, "u2", 500))
		guard.Release("u2")
	})
}

func TestLedgerFailureReleasesSlot(t *testing.T) {
	guard, ledger, _ := newTestGuard(DefaultConfig())
	ledger.FailWrites = nil

	// Force the quota read to fail by using a ledger wrapper.
	failing := &failingLedger{Ledger: ledger}
	guard.ledger = failing

	err := guard.Admit(context.Background(), "u1", 10)
	require.Error(t, err)
	var apiErr *datatypes.APIError
	assert.False(t, errors.As(err, &apiErr), "ledger faults are not rate-limit rejections")
	assert.Zero(t, guard.InFlight("u1"))
}

type failingLedger struct {
	usage.Ledger
}

func (f *failingLedger) GetTodayInputTokens(ctx context.Context, userID string) (int, error) {
	return 0, errors.New("ledger unavailable")
}

func TestReleaseNeverGoesNegative(t *testing.T) {
	guard, _, _ := newTestGuard(DefaultConfig())

	guard.Release("ghost")
	assert.Zero(t, guard.InFlight("ghost"))

	require.NoError(t, guard.Admit(context.Background(), "u1", 1))
	guard.Release("u1")
	guard.Release("u1")
	assert.Zero(t, guard.InFlight("u1"))
}

func TestReset(t *testing.T) {
	guard, _, _ := newTestGuard(DefaultConfig())
	ctx := context.Background()

	for i := 0; i < 10; i++ {
		require.NoError(t, guard.Admit(ctx, "u1", 1))
		guard.Release("u1")
	}
	requireRateLimited(t, guard.Admit(ctx, "u1", 1))

	guard.Reset()
	require.NoError(t, guard.Admit(ctx, "u1", 1))
}

func TestRejectedAttemptConsumesHourBudget(t *testing.T) {
	// A minute-window rejection still counts against the hour window:
	// both windows are hit before either limit is evaluated.
	cfg := DefaultConfig()
	cfg.PerMinute = 1
	cfg.PerHour = 2
	guard, _, now := newTestGuard(cfg)
	ctx := context.Background()

	require.NoError(t, guard.Admit(ctx, "u1", 1))
	guard.Release("u1")

	// Second attempt in the same minute: rejected by the minute
	// window, but the hour window advances to 2.
	requireRateLimited(t, guard.Admit(ctx, "u1", 1))

	// The minute window has reset; the hour window is full.
	*now = now.Add(61 * time.Second)
	err := guard.Admit(ctx, "u1", 1)
	requireRateLimited(t, err)
	assert.Contains(t, err.Error(), "requests per hour")
}

func TestWindowBoundaryBurst(t *testing.T) {
	// Fixed windows allow a burst straddling the boundary: 10 at the
	// end of one window plus 10 at the start of the next.
	guard, _, now := newTestGuard(DefaultConfig())
	ctx := context.Background()

	for i := 0; i < 10; i++ {
		require.NoError(t, guard.Admit(ctx, "u1", 1))
		guard.Release("u1")
	}
	*now = now.Add(60 * time.Second)
	for i := 0; i < 10; i++ {
		require.NoError(t, guard.Admit(ctx, "u1", 1), "post-boundary request %d", i+1)
		guard.Release("u1")
	}
}
