// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package store

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AleutianAI/lucidlines/services/document/datatypes"
)

func threeParagraphDoc() *datatypes.Document {
	doc := datatypes.NewDocument("test")
	doc.Paragraphs = []datatypes.Paragraph{
		{ID: "p_a", Order: 1, Text: "alpha", CharCount: 5, Analysis: datatypes.AnalysisState{
			Status: datatypes.StatusComplete, Emotion: []string{"calm"}, Confidence: 0.8, Model: "m",
		}},
		{ID: "p_b", Order: 2, Text: "beta", CharCount: 4, Analysis: datatypes.StaleAnalysis()},
		{ID: "p_c", Order: 3, Text: "gamma", CharCount: 5, Analysis: datatypes.StaleAnalysis()},
	}
	return doc
}

func TestDocumentReturnsDeepCopy(t *testing.T) {
	s := New(threeParagraphDoc())

	copy1 := s.Document()
	copy1.Paragraphs[0].Text = "mutated"
	copy1.Paragraphs[0].Analysis.Emotion[0] = "angry"

	copy2 := s.Document()
	assert.Equal(t, "alpha", copy2.Paragraphs[0].Text)
	assert.Equal(t, "calm", copy2.Paragraphs[0].Analysis.Emotion[0])
}

func TestEditParagraph(t *testing.T) {
	t.Run("keeps id and forces stale", func(t *testing.T) {
		s := New(threeParagraphDoc())
		before := s.Document().UpdatedAt

		ok := s.EditParagraph("p_a", "rewritten")
		require.True(t, ok)

		doc := s.Document()
		p := doc.Paragraphs[0]
		assert.Equal(t, "p_a", p.ID)
		assert.Equal(t, "rewritten", p.Text)
		assert.Equal(t, 9, p.CharCount)
		assert.Equal(t, datatypes.StatusStale, p.Analysis.Status)
		assert.Nil(t, p.Analysis.Emotion)
		assert.False(t, doc.UpdatedAt.Before(before))
	})

	t.Run("unchanged text still resets analysis", func(t *testing.T) {
		s := New(threeParagraphDoc())
		require.True(t, s.EditParagraph("p_a", "alpha"))
		assert.Equal(t, datatypes.StatusStale, s.Document().Paragraphs[0].Analysis.Status)
	})

	t.Run("unknown id is a no-op", func(t *testing.T) {
		s := New(threeParagraphDoc())
		assert.False(t, s.EditParagraph("p_missing", "x"))
	})
}

func TestReorder(t *testing.T) {
	t.Run("valid permutation preserves ids and analysis", func(t *testing.T) {
		s := New(threeParagraphDoc())
		require.True(t, s.Reorder([]string{"p_c", "p_a", "p_b"}))

		doc := s.Document()
		ids := []string{doc.Paragraphs[0].ID, doc.Paragraphs[1].ID, doc.Paragraphs[2].ID}
		assert.Equal(t, []string{"p_c", "p_a", "p_b"}, ids)
		for i, p := range doc.Paragraphs {
			assert.Equal(t, i+1, p.Order)
		}
		// p_a kept its complete analysis through the move.
		assert.Equal(t, datatypes.StatusComplete, doc.Paragraphs[1].Analysis.Status)
	})

	t.Run("wrong id set is a no-op", func(t *testing.T) {
		s := New(threeParagraphDoc())
		original := s.Document()

		assert.False(t, s.Reorder([]string{"p_a", "p_b", "p_x"}))
		assert.False(t, s.Reorder([]string{"p_a", "p_b"}))
		assert.False(t, s.Reorder([]string{"p_a", "p_b", "p_b"}))

		after := s.Document()
		assert.Equal(t, original.Paragraphs, after.Paragraphs)
	})
}

func TestResync(t *testing.T) {
	t.Run("same text keeps analysis, changed text keeps id", func(t *testing.T) {
		s := New(threeParagraphDoc())
		s.Resync([]string{"alpha", "beta edited", "gamma", "delta"})

		doc := s.Document()
		require.Len(t, doc.Paragraphs, 4)

		assert.Equal(t, "p_a", doc.Paragraphs[0].ID)
		assert.Equal(t, datatypes.StatusComplete, doc.Paragraphs[0].Analysis.Status)

		assert.Equal(t, "p_b", doc.Paragraphs[1].ID)
		assert.Equal(t, "beta edited", doc.Paragraphs[1].Text)
		assert.Equal(t, datatypes.StatusStale, doc.Paragraphs[1].Analysis.Status)

		assert.Equal(t, "p_c", doc.Paragraphs[2].ID)

		assert.NotContains(t, []string{"p_a", "p_b", "p_c"}, doc.Paragraphs[3].ID)
		assert.Equal(t, datatypes.StatusStale, doc.Paragraphs[3].Analysis.Status)

		for i, p := range doc.Paragraphs {
			assert.Equal(t, i+1, p.Order)
		}
	})

	t.Run("shorter list drops trailing paragraphs", func(t *testing.T) {
		s := New(threeParagraphDoc())
		s.Resync([]string{"alpha"})

		doc := s.Document()
		require.Len(t, doc.Paragraphs, 1)
		assert.Equal(t, "p_a", doc.Paragraphs[0].ID)
	})

	t.Run("empty list yields placeholder", func(t *testing.T) {
		s := New(threeParagraphDoc())
		s.Resync(nil)

		doc := s.Document()
		require.Len(t, doc.Paragraphs, 1)
		assert.Equal(t, datatypes.PlaceholderText, doc.Paragraphs[0].Text)
		assert.Equal(t, 1, doc.Paragraphs[0].Order)
		assert.Equal(t, datatypes.StatusStale, doc.Paragraphs[0].Analysis.Status)
	})

	t.Run("order is always contiguous from 1", func(t *testing.T) {
		s := New(threeParagraphDoc())
		s.Resync([]string{"x", "y", "z", "w", "v"})
		doc := s.Document()
		require.GreaterOrEqual(t, len(doc.Paragraphs), 1)
		for i, p := range doc.Paragraphs {
			assert.Equal(t, i+1, p.Order)
		}
	})
}

func TestAnalysisTransitions(t *testing.T) {
	t.Run("MarkPending flips all stale paragraphs", func(t *testing.T) {
		s := New(threeParagraphDoc())
		require.NoError(t, s.MarkPending([]string{"p_b", "p_c"}))

		doc := s.Document()
		assert.Equal(t, datatypes.StatusPending, doc.Paragraphs[1].Analysis.Status)
		assert.Equal(t, datatypes.StatusPending, doc.Paragraphs[2].Analysis.Status)
		assert.Equal(t, datatypes.StatusComplete, doc.Paragraphs[0].Analysis.Status)
	})

	t.Run("MarkPending rejects non-stale without partial change", func(t *testing.T) {
		s := New(threeParagraphDoc())
		err := s.MarkPending([]string{"p_b", "p_a"}) // p_a is complete
		require.Error(t, err)

		doc := s.Document()
		assert.Equal(t, datatypes.StatusStale, doc.Paragraphs[1].Analysis.Status)
	})

	t.Run("CompleteAnalysis applies payload atomically", func(t *testing.T) {
		s := New(threeParagraphDoc())
		require.NoError(t, s.MarkPending([]string{"p_b", "p_c"}))

		now := time.Now().UTC()
		err := s.CompleteAnalysis(map[string]datatypes.AnalysisState{
			"p_b": {Emotion: []string{"hope"}, Theme: []string{"renewal"}, DeepMeaning: "m1", Confidence: 0.9, Model: "mock", RequestID: "req_1", AnalyzedAt: &now},
			"p_c": {Emotion: []string{"doubt"}, Confidence: 0.4, Model: "mock", RequestID: "req_1", AnalyzedAt: &now},
		})
		require.NoError(t, err)

		doc := s.Document()
		assert.Equal(t, datatypes.StatusComplete, doc.Paragraphs[1].Analysis.Status)
		assert.Equal(t, []string{"hope"}, doc.Paragraphs[1].Analysis.Emotion)
		assert.Equal(t, "req_1", doc.Paragraphs[2].Analysis.RequestID)
	})

	t.Run("CompleteAnalysis refuses non-pending paragraphs", func(t *testing.T) {
		s := New(threeParagraphDoc())
		err := s.CompleteAnalysis(map[string]datatypes.AnalysisState{
			"p_b": {Confidence: 1},
		})
		require.Error(t, err)
		assert.Equal(t, datatypes.StatusStale, s.Document().Paragraphs[1].Analysis.Status)
	})

	t.Run("FailAnalysis marks every paragraph with the shared code", func(t *testing.T) {
		s := New(threeParagraphDoc())
		require.NoError(t, s.MarkPending([]string{"p_b", "p_c"}))

		s.FailAnalysis([]string{"p_b", "p_c"}, datatypes.CodeAnalysisAborted, "remote call failed")

		doc := s.Document()
		for _, idx := range []int{1, 2} {
			p := doc.Paragraphs[idx]
			assert.Equal(t, datatypes.StatusFailed, p.Analysis.Status)
			require.NotNil(t, p.Analysis.Error)
			assert.Equal(t, string(datatypes.CodeAnalysisAborted), p.Analysis.Error.Code)
			assert.Equal(t, "remote call failed", p.Analysis.Error.Message)
			assert.Empty(t, p.Analysis.Emotion)
		}
	})
}

func TestStaleParagraphs(t *testing.T) {
	s := New(threeParagraphDoc())
	stale := s.StaleParagraphs()
	require.Len(t, stale, 2)
	assert.Equal(t, "p_b", stale[0].ID)
	assert.Equal(t, "p_c", stale[1].ID)

	// Returned copies don't alias store state.
	stale[0].Text = "mutated"
	assert.Equal(t, "beta", s.Document().Paragraphs[1].Text)
}

func TestReplace(t *testing.T) {
	s := New(threeParagraphDoc())
	fresh := datatypes.NewDocument("other")
	s.Replace(fresh)

	doc := s.Document()
	assert.Equal(t, "other", doc.Title)
	require.Len(t, doc.Paragraphs, 1)

	// Store owns its own copy.
	fresh.Title = "mutated"
	assert.Equal(t, "other", s.Document().Title)
}
