// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package observability

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestMetrics(t *testing.T) *Metrics {
	t.Helper()
	return NewMetrics(prometheus.NewRegistry())
}

func TestRecordRequest(t *testing.T) {
	m := newTestMetrics(t)

	m.RecordRequest(EndpointAnalyze, true)
	m.RecordRequest(EndpointAnalyze, true)
	m.RecordRequest(EndpointAnalyze, false)
	m.RecordRequest(EndpointUsage, true)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.RequestsTotal.WithLabelValues("analyze", "success")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.RequestsTotal.WithLabelValues("analyze", "error")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.RequestsTotal.WithLabelValues("usage", "success")))
}

func TestRecordTokens(t *testing.T) {
	m := newTestMetrics(t)

	m.RecordTokens(100, 40, "gpt-4o-mini")
	m.RecordTokens(50, 10, "gpt-4o-mini")

	assert.Equal(t, 150.0, testutil.ToFloat64(m.TokensTotal.WithLabelValues("input", "gpt-4o-mini")))
	assert.Equal(t, 50.0, testutil.ToFloat64(m.TokensTotal.WithLabelValues("output", "gpt-4o-mini")))
}

func TestRecordError(t *testing.T) {
	m := newTestMetrics(t)

	m.RecordError(EndpointAnalyze, "RATE_LIMIT_EXCEEDED")
	m.RecordError(EndpointAnalyze, "RATE_LIMIT_EXCEEDED")
	m.RecordError(EndpointDocument, "REVISION_MISMATCH")

	assert.Equal(t, 2.0, testutil.ToFloat64(m.ErrorsTotal.WithLabelValues("analyze", "RATE_LIMIT_EXCEEDED")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.ErrorsTotal.WithLabelValues("document", "REVISION_MISMATCH")))
}

func TestActiveBatchesGauge(t *testing.T) {
	m := newTestMetrics(t)

	m.BatchStarted()
	m.BatchStarted()
	assert.Equal(t, 2.0, testutil.ToFloat64(m.ActiveBatches))

	m.BatchEnded(0.5, true)
	assert.Equal(t, 1.0, testutil.ToFloat64(m.ActiveBatches))

	m.BatchEnded(1.2, false)
	assert.Equal(t, 0.0, testutil.ToFloat64(m.ActiveBatches))
}

func TestRecordDocumentEvent(t *testing.T) {
	m := newTestMetrics(t)

	m.RecordDocumentEvent("write")
	m.RecordDocumentEvent("write")
	m.RecordDocumentEvent("rename")

	assert.Equal(t, 2.0, testutil.ToFloat64(m.DocumentEventsTotal.WithLabelValues("write")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.DocumentEventsTotal.WithLabelValues("rename")))
}

func TestSeparateRegistriesDoNotCollide(t *testing.T) {
	// Two instances against distinct registries must not panic on
	// duplicate registration.
	require.NotPanics(t, func() {
		NewMetrics(prometheus.NewRegistry())
		NewMetrics(prometheus.NewRegistry())
	})
}
