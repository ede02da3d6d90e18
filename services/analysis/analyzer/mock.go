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

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/AleutianAI/lucidlines/services/document/datatypes"
)

// MockModel is the model name reported by the heuristic runner.
const MockModel = "mock-lucidlines-v1"

// mockConfidence is the fixed confidence of every heuristic result.
const mockConfidence = 0.72

// FailureMarker in a paragraph's text forces the whole batch to fail.
// Exists so the all-or-nothing apply path can be exercised end to end
// without a misbehaving backend.
const FailureMarker = "[[FAIL]]"

// keywordRule maps trigger words to an emotion/theme pair.
type keywordRule struct {
	triggers []string
	emotion  string
	theme    string
}

var mockRules = []keywordRule{
	{[]string{"worry", "worried", "anxious", "anxiety", "afraid", "fear", "nervous"}, "anxious", "uncertainty"},
	{[]string{"happy", "joy", "glad", "grateful", "thankful", "excited"}, "joyful", "gratitude"},
	{[]string{"sad", "grief", "loss", "miss", "lonely", "cry"}, "melancholic", "loss"},
	{[]string{"angry", "frustrated", "furious", "annoyed", "resent"}, "frustrated", "conflict"},
	{[]string{"tired", "exhausted", "drained", "sleep", "rest"}, "weary", "rest"},
	{[]string{"hope", "dream", "plan", "future", "tomorrow", "goal"}, "hopeful", "aspiration"},
}

// MockRunner analyzes paragraphs with keyword heuristics. Used when no
// API key is configured, and throughout the test suite, because its
// output is deterministic.
type MockRunner struct {
	// now is swapped in tests for deterministic timestamps.
	now func() time.Time
}

// NewMockRunner creates a heuristic runner.
func NewMockRunner() *MockRunner {
	return &MockRunner{now: time.Now}
}

var _ Runner = (*MockRunner)(nil)

// Analyze classifies every paragraph by keyword. A paragraph whose
// text contains FailureMarker fails the batch; no results are
// returned in that case.
func (m *MockRunner) Analyze(ctx context.Context, req Request) (*BatchResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	analyzedAt := m.now().UTC()
	results := make([]Result, 0, len(req.Paragraphs))
	inputTokens := 0
	outputTokens := 0

	for _, p := range req.Paragraphs {
		if strings.Contains(p.Text, FailureMarker) {
			return nil, fmt.Errorf("analysis failed for paragraph %s", p.ParagraphID)
		}

		emotion, theme := classify(p.Text)
		deepMeaning := meaningFor(req.Persona(), theme)

		results = append(results, Result{
			ParagraphID:   p.ParagraphID,
			Emotion:       []string{emotion},
			Theme:         []string{theme},
			DeepMeaning:   deepMeaning,
			Confidence:    mockConfidence,
			Model:         MockModel,
			AnalyzedAt:    analyzedAt,
			PromptVersion: req.PromptVersion,
		})

		inputTokens += EstimateTokens(p.Text)
		outputTokens += EstimateTokens(deepMeaning) + 16
	}

	return &BatchResult{
		RequestID:     req.RequestID,
		Results:       results,
		InputTokens:   inputTokens,
		OutputTokens:  outputTokens,
		EstimatedCost: EstimateCost(inputTokens, outputTokens),
	}, nil
}

func classify(text string) (emotion, theme string) {
	lower := strings.ToLower(text)
	for _, rule := range mockRules {
		for _, trigger := range rule.triggers {
			if strings.Contains(lower, trigger) {
				return rule.emotion, rule.theme
			}
		}
	}
	return "reflective", "daily life"
}

func meaningFor(persona datatypes.PersonaMode, theme string) string {
	switch persona {
	case datatypes.PersonaFriendly:
		return fmt.Sprintf("This passage seems to circle around %s; it reads like something worth being gentle with yourself about.", theme)
	case datatypes.PersonaEditor:
		return fmt.Sprintf("The paragraph's central thread is %s; tightening the supporting detail would sharpen it.", theme)
	default:
		return fmt.Sprintf("The writing here centers on %s and what it means to the author.", theme)
	}
}
