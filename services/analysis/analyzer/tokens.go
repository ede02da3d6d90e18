// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package analyzer

import "math"

// Per-token pricing used for cost estimates.
const (
	inputTokenCost  = 0.00000015
	outputTokenCost = 0.0000006
)

// EstimateTokens approximates the token count of a text as
// ceil(len/4). This matches the estimate used for quota admission so
// the quota check and the ledger agree on magnitudes.
func EstimateTokens(text string) int {
	if text == "" {
		return 0
	}
	return (len(text) + 3) / 4
}

// EstimateRequestTokens sums the token estimates of every paragraph
// in a request.
func EstimateRequestTokens(req Request) int {
	total := 0
	for _, p := range req.Paragraphs {
		total += EstimateTokens(p.Text)
	}
	return total
}

// EstimateCost prices a token count pair, rounded to 6 decimals.
func EstimateCost(inputTokens, outputTokens int) float64 {
	cost := float64(inputTokens)*inputTokenCost + float64(outputTokens)*outputTokenCost
	return math.Round(cost*1e6) / 1e6
}
