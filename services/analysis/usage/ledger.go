// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package usage tracks per-user, per-day analysis consumption.
//
// The ledger is append-summing: IncrementUsage is called once per
// successfully completed batch and adds the batch's token and cost
// deltas to the caller's daily aggregate. Quota checks read today's
// input-token total; reporting reads today and month rollups. Failed
// ledger writes are logged by callers, never retried by the engine.
package usage

import "context"

// Delta is the consumption of one completed analysis batch.
type Delta struct {
	InputTokens   int     `json:"inputTokens"`
	OutputTokens  int     `json:"outputTokens"`
	EstimatedCost float64 `json:"estimatedCost"`
}

// Aggregate is a summed view over one day or one month.
type Aggregate struct {
	RequestCount  int     `json:"requestCount"`
	InputTokens   int     `json:"inputTokens"`
	OutputTokens  int     `json:"outputTokens"`
	EstimatedCost float64 `json:"estimatedCost"`
}

func (a *Aggregate) add(d Delta) {
	a.RequestCount++
	a.InputTokens += d.InputTokens
	a.OutputTokens += d.OutputTokens
	a.EstimatedCost += d.EstimatedCost
}

func (a *Aggregate) merge(other Aggregate) {
	a.RequestCount += other.RequestCount
	a.InputTokens += other.InputTokens
	a.OutputTokens += other.OutputTokens
	a.EstimatedCost += other.EstimatedCost
}

// Usage is the reporting view returned to callers.
type Usage struct {
	Today Aggregate `json:"today"`
	Month Aggregate `json:"month"`
}

// Ledger is the durable usage store consumed by the engine.
type Ledger interface {
	// IncrementUsage adds one batch's delta to the user's aggregate
	// for today. Called exactly once per successful batch.
	IncrementUsage(ctx context.Context, userID string, delta Delta) error

	// GetTodayInputTokens returns the user's summed input tokens for
	// the current day. Used for daily quota checks.
	GetTodayInputTokens(ctx context.Context, userID string) (int, error)

	// GetUsage returns today's and the current month's aggregates.
	GetUsage(ctx context.Context, userID string) (Usage, error)
}
