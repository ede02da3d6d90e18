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
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AleutianAI/lucidlines/services/document/datatypes"
)

func TestEstimateTokens(t *testing.T) {
	cases := []struct {
		text string
		want int
	}{
		{"", 0},
		{"a", 1},
		{"abcd", 1},
		{"abcde", 2},
		{"12345678", 2},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, EstimateTokens(tc.text), "text %q", tc.text)
	}
}

func TestEstimateCost(t *testing.T) {
	// 1000 in + 1000 out = 0.00015 + 0.0006 = 0.00075
	assert.InDelta(t, 0.00075, EstimateCost(1000, 1000), 1e-9)
	assert.Zero(t, EstimateCost(0, 0))

	// Rounded to six decimals.
	cost := EstimateCost(1, 1)
	assert.InDelta(t, 0.000001, cost, 1e-9)
}

func TestRequestPersonaDefault(t *testing.T) {
	assert.Equal(t, datatypes.DefaultPersonaMode, Request{}.Persona())
	assert.Equal(t, datatypes.PersonaEditor, Request{PersonaMode: datatypes.PersonaEditor}.Persona())
	assert.Equal(t, datatypes.DefaultPersonaMode, Request{PersonaMode: "nope"}.Persona())
}

func TestMockRunnerAnalyze(t *testing.T) {
	ctx := context.Background()
	runner := NewMockRunner()
	fixed := time.Date(2026, 8, 30, 10, 0, 0, 0, time.UTC)
	runner.now = func() time.Time { return fixed }

	req := Request{
		RequestID:     "req_test",
		DocumentID:    "doc_1",
		PromptVersion: datatypes.PromptVersion,
		Paragraphs: []RequestParagraph{
			{ParagraphID: "p_1", Text: "I am so worried about tomorrow's meeting."},
			{ParagraphID: "p_2", Text: "So grateful for the quiet morning."},
			{ParagraphID: "p_3", Text: "Bought groceries and cleaned the kitchen."},
		},
	}

	res, err := runner.Analyze(ctx, req)
	require.NoError(t, err)
	require.Len(t, res.Results, 3)

	assert.Equal(t, "req_test", res.RequestID)
	assert.Equal(t, []string{"anxious"}, res.Results[0].Emotion)
	assert.Equal(t, []string{"joyful"}, res.Results[1].Emotion)
	assert.Equal(t, []string{"reflective"}, res.Results[2].Emotion)

	for _, r := range res.Results {
		assert.Equal(t, MockModel, r.Model)
		assert.Equal(t, mockConfidence, r.Confidence)
		assert.Equal(t, datatypes.PromptVersion, r.PromptVersion)
		assert.True(t, r.AnalyzedAt.Equal(fixed))
		assert.NotEmpty(t, r.DeepMeaning)
	}

	assert.Positive(t, res.InputTokens)
	assert.Positive(t, res.OutputTokens)
	assert.Equal(t, EstimateCost(res.InputTokens, res.OutputTokens), res.EstimatedCost)
}

func TestMockRunnerFailureMarker(t *testing.T) {
	runner := NewMockRunner()
	req := Request{
		RequestID:  "req_fail",
		DocumentID: "doc_1",
		Paragraphs: []RequestParagraph{
			{ParagraphID: "p_ok", Text: "hello"},
			{ParagraphID: "p_fail", Text: "this one " + FailureMarker},
		},
	}

	res, err := runner.Analyze(context.Background(), req)
	require.Error(t, err)
	assert.Nil(t, res, "failed batch must not return partial results")
}

func TestMockRunnerPersonaVoices(t *testing.T) {
	runner := NewMockRunner()
	base := Request{
		DocumentID: "doc_1",
		Paragraphs: []RequestParagraph{{ParagraphID: "p_1", Text: "hopeful about the future"}},
	}

	seen := map[string]bool{}
	for _, persona := range []datatypes.PersonaMode{datatypes.PersonaFriendly, datatypes.PersonaEditor, datatypes.PersonaGeneralReader} {
		req := base
		req.PersonaMode = persona
		res, err := runner.Analyze(context.Background(), req)
		require.NoError(t, err)
		seen[res.Results[0].DeepMeaning] = true
	}
	assert.Len(t, seen, 3, "each persona should produce a distinct voice")
}

func TestMockRunnerHonorsCancelledContext(t *testing.T) {
	runner := NewMockRunner()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := runner.Analyze(ctx, Request{
		DocumentID: "doc_1",
		Paragraphs: []RequestParagraph{{ParagraphID: "p_1", Text: "x"}},
	})
	assert.Error(t, err)
}
