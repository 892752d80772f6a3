// Copyright (C) 2025 MedInsight AI (engineering@medinsight.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package observability provides metrics and instrumentation for the
// intelligence service.
//
// # Description
//
// This package implements Prometheus metrics for monitoring analysis
// pipelines. Metrics include:
//   - Job counters and duration histograms (by analysis type, status)
//   - Cache operation counters (hit/miss/write/delete by category)
//   - Source failure counters (by source)
//   - Reasoning tier counters (by tier, status)
//   - Active job and stream gauges
//
// # Integration
//
// Metrics are exposed via /metrics endpoint. Use with Prometheus + Grafana
// for dashboards and alerting.
//
// # Thread Safety
//
// All metric operations are thread-safe via Prometheus's internal locking.
package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// =============================================================================
// Metric Definitions
// =============================================================================

// Namespace for all metrics
const metricsNamespace = "medinsight"

// Subsystem for intelligence pipeline metrics
const pipelineSubsystem = "intelligence"

// PipelineMetrics holds all Prometheus metrics for analysis operations.
//
// # Description
//
// Provides counters, histograms, and gauges for monitoring pipeline
// throughput and cache effectiveness. Initialize once at startup via
// InitMetrics().
//
// # Thread Safety
//
// All operations are thread-safe.
type PipelineMetrics struct {
	// JobsTotal counts analysis jobs by terminal status.
	// Labels: analysis_type, status (completed, failed, cached)
	JobsTotal *prometheus.CounterVec

	// JobDurationSeconds measures wall time of full pipeline runs.
	// Labels: analysis_type, status
	JobDurationSeconds *prometheus.HistogramVec

	// ActiveJobs tracks jobs currently queued or in progress.
	ActiveJobs prometheus.Gauge

	// CacheOpsTotal counts cache operations by outcome and category.
	// Labels: op (hit, miss, write, delete), category
	CacheOpsTotal *prometheus.CounterVec

	// CacheErrorsTotal counts cache operations that exhausted retries.
	// Labels: op
	CacheErrorsTotal *prometheus.CounterVec

	// SourceFailuresTotal counts gathering failures by source slot.
	// Labels: source (fda, pubmed, clinical_trials, market, competitors)
	SourceFailuresTotal *prometheus.CounterVec

	// ReasoningCallsTotal counts reasoning invocations by tier and outcome.
	// Labels: tier, status (success, error)
	ReasoningCallsTotal *prometheus.CounterVec

	// ActiveStreams tracks currently open progress streams.
	ActiveStreams prometheus.Gauge

	// StreamEventsTotal counts events delivered over progress streams.
	// Labels: type (progress, done, error)
	StreamEventsTotal *prometheus.CounterVec
}

// DefaultMetrics is the singleton instance of PipelineMetrics.
// Initialized by InitMetrics(); nil when metrics are disabled, so all
// record helpers below tolerate an uninitialized state.
var DefaultMetrics *PipelineMetrics

// InitMetrics initializes the default metrics instance.
//
// # Description
//
// Creates and registers all Prometheus metrics. Idempotent: repeated
// calls return the already-registered instance, so service construction
// in tests does not trip duplicate registration.
func InitMetrics() *PipelineMetrics {
	if DefaultMetrics != nil {
		return DefaultMetrics
	}
	DefaultMetrics = &PipelineMetrics{
		JobsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Subsystem: pipelineSubsystem,
				Name:      "jobs_total",
				Help:      "Total analysis jobs by analysis type and terminal status",
			},
			[]string{"analysis_type", "status"},
		),

		JobDurationSeconds: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: metricsNamespace,
				Subsystem: pipelineSubsystem,
				Name:      "job_duration_seconds",
				Help:      "Wall time of full pipeline runs",
				Buckets:   []float64{0.5, 1, 2.5, 5, 10, 30, 60, 120, 300},
			},
			[]string{"analysis_type", "status"},
		),

		ActiveJobs: promauto.NewGauge(
			prometheus.GaugeOpts{
				Namespace: metricsNamespace,
				Subsystem: pipelineSubsystem,
				Name:      "active_jobs",
				Help:      "Jobs currently queued or in progress",
			},
		),

		CacheOpsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Subsystem: pipelineSubsystem,
				Name:      "cache_ops_total",
				Help:      "Cache operations by outcome and category",
			},
			[]string{"op", "category"},
		),

		CacheErrorsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Subsystem: pipelineSubsystem,
				Name:      "cache_errors_total",
				Help:      "Cache operations that exhausted their retries",
			},
			[]string{"op"},
		),

		SourceFailuresTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Subsystem: pipelineSubsystem,
				Name:      "source_failures_total",
				Help:      "Source gathering failures by slot",
			},
			[]string{"source"},
		),

		ReasoningCallsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Subsystem: pipelineSubsystem,
				Name:      "reasoning_calls_total",
				Help:      "Reasoning invocations by tier and outcome",
			},
			[]string{"tier", "status"},
		),

		ActiveStreams: promauto.NewGauge(
			prometheus.GaugeOpts{
				Namespace: metricsNamespace,
				Subsystem: pipelineSubsystem,
				Name:      "active_streams",
				Help:      "Currently open progress streams",
			},
		),

		StreamEventsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Subsystem: pipelineSubsystem,
				Name:      "stream_events_total",
				Help:      "Events delivered over progress streams",
			},
			[]string{"type"},
		),
	}
	return DefaultMetrics
}

// =============================================================================
// Record Helpers
// =============================================================================

// The helpers below are no-ops when metrics are disabled, so callers can
// record unconditionally.

// RecordCacheOp records one cache operation outcome.
func RecordCacheOp(op, category string) {
	if DefaultMetrics == nil {
		return
	}
	DefaultMetrics.CacheOpsTotal.WithLabelValues(op, category).Inc()
}

// RecordCacheError records one cache operation that exhausted retries.
func RecordCacheError(op string) {
	if DefaultMetrics == nil {
		return
	}
	DefaultMetrics.CacheErrorsTotal.WithLabelValues(op).Inc()
}

// RecordSourceFailure records one failed source slot in a gathering pass.
func RecordSourceFailure(source string) {
	if DefaultMetrics == nil {
		return
	}
	DefaultMetrics.SourceFailuresTotal.WithLabelValues(source).Inc()
}

// RecordReasoningCall records one reasoning invocation outcome.
func RecordReasoningCall(tier, status string) {
	if DefaultMetrics == nil {
		return
	}
	DefaultMetrics.ReasoningCallsTotal.WithLabelValues(tier, status).Inc()
}

// RecordJob records one terminal job with its duration.
func RecordJob(analysisType, status string, seconds float64) {
	if DefaultMetrics == nil {
		return
	}
	DefaultMetrics.JobsTotal.WithLabelValues(analysisType, status).Inc()
	DefaultMetrics.JobDurationSeconds.WithLabelValues(analysisType, status).Observe(seconds)
}

// RecordStreamEvent records one delivered stream event.
func RecordStreamEvent(eventType string) {
	if DefaultMetrics == nil {
		return
	}
	DefaultMetrics.StreamEventsTotal.WithLabelValues(eventType).Inc()
}

// AddActiveJob adjusts the active job gauge.
func AddActiveJob(delta float64) {
	if DefaultMetrics == nil {
		return
	}
	DefaultMetrics.ActiveJobs.Add(delta)
}

// AddActiveStream adjusts the active stream gauge.
func AddActiveStream(delta float64) {
	if DefaultMetrics == nil {
		return
	}
	DefaultMetrics.ActiveStreams.Add(delta)
}
