// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package observability provides Prometheus metrics for the LucidLines server.
//
// # Description
//
// Metrics cover the analysis pipeline and the HTTP surface:
//   - Request counters (by endpoint, status, error code)
//   - Token usage (input/output tokens by model)
//   - Analysis batch latency histograms
//   - Active analysis gauge
//   - Document watcher event counters
//
// # Integration
//
// Metrics are exposed via the /metrics endpoint. Use with Prometheus +
// Grafana for dashboards and alerting.
//
// # Thread Safety
//
// All metric operations are thread-safe via Prometheus's internal locking.
package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Namespace for all metrics
const metricsNamespace = "lucidlines"

// Subsystem for analysis pipeline metrics
const analysisSubsystem = "analysis"

// Metrics holds all Prometheus metrics for the LucidLines server.
//
// Initialize once at startup via InitMetrics(), or with NewMetrics and
// a private registry in tests.
type Metrics struct {
	// RequestsTotal counts API requests by endpoint and status.
	// Labels: endpoint (analyze, usage, document), status (success, error)
	RequestsTotal *prometheus.CounterVec

	// TokensTotal counts tokens processed by direction and model.
	// Labels: direction (input, output), model
	TokensTotal *prometheus.CounterVec

	// BatchDurationSeconds measures analysis batch duration.
	// Labels: status (success, error)
	BatchDurationSeconds *prometheus.HistogramVec

	// ActiveBatches tracks analysis batches currently in flight.
	ActiveBatches prometheus.Gauge

	// ErrorsTotal counts errors by endpoint and error code.
	// Labels: endpoint, error_code (VALIDATION_ERROR, RATE_LIMIT_EXCEEDED, ...)
	ErrorsTotal *prometheus.CounterVec

	// DocumentEventsTotal counts filesystem watcher events by operation.
	// Labels: op (write, create, remove, rename)
	DocumentEventsTotal *prometheus.CounterVec
}

// DefaultMetrics is the singleton instance registered against the
// default Prometheus registry. Initialized by InitMetrics().
var DefaultMetrics *Metrics

// InitMetrics initializes the default metrics instance.
//
// Call once at application startup. Panics if called twice (duplicate
// registration against the default registry).
func InitMetrics() *Metrics {
	DefaultMetrics = NewMetrics(prometheus.DefaultRegisterer)
	return DefaultMetrics
}

// NewMetrics creates and registers all metrics against the given
// registerer. Tests pass a fresh prometheus.NewRegistry().
func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)

	return &Metrics{
		RequestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Subsystem: analysisSubsystem,
				Name:      "requests_total",
				Help:      "Total API requests by endpoint and status",
			},
			[]string{"endpoint", "status"},
		),

		TokensTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Subsystem: analysisSubsystem,
				Name:      "tokens_total",
				Help:      "Total tokens processed by direction and model",
			},
			[]string{"direction", "model"},
		),

		BatchDurationSeconds: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: metricsNamespace,
				Subsystem: analysisSubsystem,
				Name:      "batch_duration_seconds",
				Help:      "Analysis batch duration in seconds",
				Buckets:   []float64{0.1, 0.25, 0.5, 1.0, 2.5, 5.0, 10.0, 30.0},
			},
			[]string{"status"},
		),

		ActiveBatches: factory.NewGauge(
			prometheus.GaugeOpts{
				Namespace: metricsNamespace,
				Subsystem: analysisSubsystem,
				Name:      "active_batches",
				Help:      "Number of analysis batches currently in flight",
			},
		),

		ErrorsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Subsystem: analysisSubsystem,
				Name:      "errors_total",
				Help:      "Total errors by endpoint and error code",
			},
			[]string{"endpoint", "error_code"},
		),

		DocumentEventsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Subsystem: "documents",
				Name:      "events_total",
				Help:      "Total filesystem watcher events by operation",
			},
			[]string{"op"},
		),
	}
}

// Endpoint represents an API endpoint for metrics labeling.
type Endpoint string

const (
	// EndpointAnalyze is the analysis dispatch endpoint.
	EndpointAnalyze Endpoint = "analyze"

	// EndpointUsage is the usage summary endpoint.
	EndpointUsage Endpoint = "usage"

	// EndpointDocument covers document load/save/rename/delete.
	EndpointDocument Endpoint = "document"
)

// RecordRequest records a completed API request.
func (m *Metrics) RecordRequest(endpoint Endpoint, success bool) {
	status := "success"
	if !success {
		status = "error"
	}
	m.RequestsTotal.WithLabelValues(string(endpoint), status).Inc()
}

// RecordError records an error by its wire-level code.
func (m *Metrics) RecordError(endpoint Endpoint, code string) {
	m.ErrorsTotal.WithLabelValues(string(endpoint), code).Inc()
}

// RecordTokens records token usage for one batch.
func (m *Metrics) RecordTokens(inputTokens, outputTokens int, model string) {
	m.TokensTotal.WithLabelValues("input", model).Add(float64(inputTokens))
	m.TokensTotal.WithLabelValues("output", model).Add(float64(outputTokens))
}

// BatchStarted increments the active batch gauge.
func (m *Metrics) BatchStarted() {
	m.ActiveBatches.Inc()
}

// BatchEnded decrements the active batch gauge and records duration.
func (m *Metrics) BatchEnded(seconds float64, success bool) {
	m.ActiveBatches.Dec()
	status := "success"
	if !success {
		status = "error"
	}
	m.BatchDurationSeconds.WithLabelValues(status).Observe(seconds)
}

// RecordDocumentEvent records one filesystem watcher event.
func (m *Metrics) RecordDocumentEvent(op string) {
	m.DocumentEventsTotal.WithLabelValues(op).Inc()
}
