// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package admission gates analysis dispatch behind per-user rate,
// concurrency, and daily token-quota limits.
//
// # Description
//
// The Guard keeps process-wide counters per user: a fixed 60-second
// request window, a fixed 3600-second request window, and an in-flight
// batch count. Windows reset lazily: the first request after a window
// expires resets its count to 1 rather than decaying continuously.
// This permits short bursts straddling a window boundary; that
// behavior is intentional.
//
// Admission order is windows, then concurrency, then the daily input
// token quota. Every attempt increments BOTH windows before either
// limit is evaluated, and counters incremented by a rejected attempt
// are NOT rolled back; the in-flight slot is only held once every
// check has passed, and is released on every exit path of the batch.
//
// # Thread Safety
//
// All state is guarded by one mutex; the Guard is safe for concurrent
// use from every request handler in the process.
package admission

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/AleutianAI/lucidlines/services/analysis/usage"
	"github.com/AleutianAI/lucidlines/services/document/datatypes"
)

// Config bounds analysis dispatch per user.
type Config struct {
	// PerMinute is the request limit in a fixed 60s window.
	PerMinute int

	// PerHour is the request limit in a fixed 3600s window.
	PerHour int

	// MaxConcurrent is the in-flight batch cap.
	MaxConcurrent int

	// DailyTokenQuota is the input-token ceiling per day, checked
	// against the usage ledger plus the batch's estimated size.
	DailyTokenQuota int
}

// DefaultConfig returns the production limits.
func DefaultConfig() Config {
	return Config{
		PerMinute:       10,
		PerHour:         100,
		MaxConcurrent:   2,
		DailyTokenQuota: 200_000,
	}
}

// window is one fixed-window counter.
type window struct {
	count int
	start time.Time
}

// hit applies the lazy-reset increment: an expired window restarts at
// count 1, otherwise the count grows. Returns the new count.
func (w *window) hit(now time.Time, span time.Duration) int {
	if w.start.IsZero() || now.Sub(w.start) >= span {
		w.start = now
		w.count = 1
	} else {
		w.count++
	}
	return w.count
}

// userState holds all counters for one user.
type userState struct {
	minute   window
	hour     window
	inFlight int
}

// Guard is the admission controller. One instance is shared by every
// request handler in the process.
type Guard struct {
	mu     sync.Mutex
	cfg    Config
	users  map[string]*userState
	ledger usage.Ledger

	// now is swapped in tests for deterministic windows.
	now func() time.Time
}

// NewGuard creates a Guard with the given limits. The ledger supplies
// today's input-token totals for quota checks.
func NewGuard(cfg Config, ledger usage.Ledger) *Guard {
	return &Guard{
		cfg:    cfg,
		users:  make(map[string]*userState),
		ledger: ledger,
		now:    time.Now,
	}
}

// Admit decides whether a batch with the given estimated input tokens
// may be dispatched for the user.
//
// On success the user's in-flight slot is held and the caller MUST
// call Release exactly once when the batch concludes, on every exit
// path including timeouts and panics-turned-errors. On rejection the
// returned error is an APIError with code RATE_LIMIT_EXCEEDED and no
// in-flight slot is held.
func (g *Guard) Admit(ctx context.Context, userID string, estimatedInputTokens int) error {
	g.mu.Lock()
	state := g.user(userID)
	now := g.now()

	// Both windows are incremented before either is evaluated, so an
	// attempt rejected by the minute window still consumes hour budget.
	minuteCount := state.minute.hit(now, time.Minute)
	hourCount := state.hour.hit(now, time.Hour)

	if minuteCount > g.cfg.PerMinute {
		g.mu.Unlock()
		slog.Warn("admission rejected", "user_id", userID, "reason", "per_minute", "count", minuteCount)
		return datatypes.NewAPIError(datatypes.CodeRateLimitExceeded,
			fmt.Sprintf("rate limit exceeded: %d requests per minute", g.cfg.PerMinute))
	}
	if hourCount > g.cfg.PerHour {
		g.mu.Unlock()
		slog.Warn("admission rejected", "user_id", userID, "reason", "per_hour", "count", hourCount)
		return datatypes.NewAPIError(datatypes.CodeRateLimitExceeded,
			fmt.Sprintf("rate limit exceeded: %d requests per hour", g.cfg.PerHour))
	}
	if state.inFlight >= g.cfg.MaxConcurrent {
		g.mu.Unlock()
		slog.Warn("admission rejected", "user_id", userID, "reason", "concurrency", "in_flight", state.inFlight)
		return datatypes.NewAPIError(datatypes.CodeRateLimitExceeded,
			fmt.Sprintf("too many concurrent analyses: limit %d", g.cfg.MaxConcurrent))
	}

	state.inFlight++
	g.mu.Unlock()

	// Quota check happens outside the lock: the ledger read may hit
	// disk. The in-flight slot is already held and must be released
	// on any rejection below.
	today, err := g.ledger.GetTodayInputTokens(ctx, userID)
	if err != nil {
		g.Release(userID)
		return fmt.Errorf("read today's usage for %s: %w", userID, err)
	}

	if today+estimatedInputTokens > g.cfg.DailyTokenQuota {
		g.Release(userID)
		slog.Warn("admission rejected", "user_id", userID, "reason", "daily_quota",
			"today_tokens", today, "estimated_tokens", estimatedInputTokens)
		return datatypes.NewAPIError(datatypes.CodeRateLimitExceeded,
			fmt.Sprintf("daily token quota exceeded: %d tokens per day", g.cfg.DailyTokenQuota))
	}

	return nil
}

// Release returns a user's in-flight slot. Safe to call when no slot
// is held; the count never goes negative.
func (g *Guard) Release(userID string) {
	g.mu.Lock()
	defer g.mu.Unlock()

	state, ok := g.users[userID]
	if !ok || state.inFlight == 0 {
		return
	}
	state.inFlight--
}

// InFlight returns the user's current in-flight batch count.
func (g *Guard) InFlight(userID string) int {
	g.mu.Lock()
	defer g.mu.Unlock()

	state, ok := g.users[userID]
	if !ok {
		return 0
	}
	return state.inFlight
}

// Reset clears all counters for all users. Test isolation hook.
func (g *Guard) Reset() {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.users = make(map[string]*userState)
}

// user returns the state for userID, creating it if needed. Caller
// holds the mutex.
func (g *Guard) user(userID string) *userState {
	state, ok := g.users[userID]
	if !ok {
		state = &userState{}
		g.users[userID] = state
	}
	return state
}
