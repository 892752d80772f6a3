// Copyright (C) 2025 MedInsight AI (engineering@medinsight.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package jobs

import (
	"context"
	"fmt"
	"log/slog"
	"runtime/debug"
	"time"

	"github.com/MedInsightAI/MedInsightHub/services/intelligence/cache"
	"github.com/MedInsightAI/MedInsightHub/services/intelligence/datatypes"
	"github.com/MedInsightAI/MedInsightHub/services/intelligence/observability"
)

// =============================================================================
// Collaborator Interfaces
// =============================================================================

// Collector gathers raw intelligence for a subject from external sources.
type Collector interface {
	Collect(ctx context.Context, subject string) datatypes.AggregatedSources
}

// Analyzer turns gathered sources into a structured analysis and a
// narrative summary.
type Analyzer interface {
	Analyze(ctx context.Context, subject string, agg datatypes.AggregatedSources) datatypes.StructuredAnalysis
	Summarize(ctx context.Context, subject string, analysis datatypes.StructuredAnalysis) string
}

// =============================================================================
// Runner
// =============================================================================

// RunnerConfig holds runner tunables. Zero values pick defaults.
type RunnerConfig struct {
	// Freshness is how recent a cached result must be to satisfy a
	// submission without re-running the pipeline.
	Freshness time.Duration

	// JobTimeout bounds one pipeline run end to end.
	JobTimeout time.Duration
}

func applyRunnerDefaults(cfg *RunnerConfig) {
	if cfg.Freshness <= 0 {
		cfg.Freshness = 6 * time.Hour
	}
	if cfg.JobTimeout <= 0 {
		cfg.JobTimeout = 3 * time.Minute
	}
}

// Runner drives analysis jobs through the gather/analyze/summarize
// pipeline.
//
// # Description
//
// Submit is the single entry point. It satisfies a request from the
// result cache when a fresh result exists, joins an in-flight job for
// the same subject when one is running, and otherwise creates a queued
// job and launches a supervised pipeline goroutine. The pipeline runs
// on its own context, detached from the submitting request, so a client
// disconnect never cancels an analysis other clients may be watching.
//
// # Thread Safety
//
// Safe for concurrent use.
type Runner struct {
	registry  *Registry
	collector Collector
	analyzer  Analyzer
	store     cache.Store
	cfg       RunnerConfig
	now       func() time.Time
}

// NewRunner wires a runner. All collaborators are required.
func NewRunner(registry *Registry, collector Collector, analyzer Analyzer, store cache.Store, cfg RunnerConfig) (*Runner, error) {
	if registry == nil {
		return nil, fmt.Errorf("runner requires a registry")
	}
	if collector == nil {
		return nil, fmt.Errorf("runner requires a collector")
	}
	if analyzer == nil {
		return nil, fmt.Errorf("runner requires an analyzer")
	}
	if store == nil {
		return nil, fmt.Errorf("runner requires a cache store")
	}
	applyRunnerDefaults(&cfg)
	return &Runner{
		registry:  registry,
		collector: collector,
		analyzer:  analyzer,
		store:     store,
		cfg:       cfg,
		now:       time.Now,
	}, nil
}

// Submit starts or joins an analysis for a normalized subject.
//
// Resolution order: fresh cached result, then in-flight job for the
// same subject, then a new job. The returned snapshot is immediately
// usable for status polling and stream subscription.
func (r *Runner) Submit(ctx context.Context, subject string, analysisType datatypes.AnalysisType, forceRefresh bool) datatypes.AnalysisJob {
	if !forceRefresh {
		if result, ok := r.cachedResult(ctx, subject, analysisType); ok {
			slog.Info("Serving analysis from result cache",
				"subject", subject,
				"analysis_type", analysisType)
			return r.registry.CreateCompleted(subject, analysisType, result)
		}
	}

	job, created := r.registry.GetOrCreate(subject, analysisType)
	if !created {
		slog.Info("Joining in-flight analysis",
			"subject", subject,
			"job_id", job.ID)
		return job
	}
	r.writeSession(ctx, job)

	go r.supervise(job)
	return job
}

// cachedResult reads the result cache and checks the freshness window.
// Cache trouble degrades to a miss; a stale entry is left for its TTL.
func (r *Runner) cachedResult(ctx context.Context, subject string, analysisType datatypes.AnalysisType) (*datatypes.AnalysisResult, bool) {
	key := cache.NewKey(cache.CategoryAnalysisResults, subject).WithSub(string(analysisType))

	var result datatypes.AnalysisResult
	lookup := r.store.Read(ctx, key, &result)
	if !lookup.Found() {
		return nil, false
	}
	if !result.Fresh(r.now(), r.cfg.Freshness) {
		return nil, false
	}
	return &result, true
}

// supervise runs the pipeline with panic recovery so a bug in one job
// can never take down the process or strand subscribers without a
// terminal event.
func (r *Runner) supervise(job datatypes.AnalysisJob) {
	start := r.now()
	ctx, cancel := context.WithTimeout(context.Background(), r.cfg.JobTimeout)
	defer cancel()

	defer func() {
		if rec := recover(); rec != nil {
			slog.Error("Analysis pipeline panicked",
				"job_id", job.ID,
				"subject", job.Subject,
				"panic", rec,
				"stack", string(debug.Stack()))
			r.registry.fail(job.ID, "internal error during analysis")
			// The pipeline context may already be dead; the session
			// record must still reflect the failure.
			r.writeSession(context.Background(), mustGet(r.registry, job.ID))
			observability.RecordJob(string(job.AnalysisType), "failed", r.now().Sub(start).Seconds())
		}
	}()

	if err := r.run(ctx, job); err != nil {
		slog.Error("Analysis pipeline failed",
			"job_id", job.ID,
			"subject", job.Subject,
			"error", err)
		r.registry.fail(job.ID, err.Error())
		r.writeSession(context.Background(), mustGet(r.registry, job.ID))
		observability.RecordJob(string(job.AnalysisType), "failed", r.now().Sub(start).Seconds())
		return
	}
	observability.RecordJob(string(job.AnalysisType), "completed", r.now().Sub(start).Seconds())
}

// run executes the pipeline stages, advancing the fixed checkpoints.
func (r *Runner) run(ctx context.Context, job datatypes.AnalysisJob) error {
	r.registry.markInProgress(job.ID)

	r.checkpoint(ctx, job, datatypes.ProgressGathering, datatypes.StepGathering)
	agg := r.collector.Collect(ctx, job.Subject)
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("analysis timed out while gathering sources: %w", err)
	}

	r.checkpoint(ctx, job, datatypes.ProgressAnalyzing, datatypes.StepAnalyzing)
	analysis := r.analyzer.Analyze(ctx, job.Subject, agg)
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("analysis timed out while analyzing: %w", err)
	}

	r.checkpoint(ctx, job, datatypes.ProgressGenerating, datatypes.StepGenerating)
	summary := r.analyzer.Summarize(ctx, job.Subject, analysis)
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("analysis timed out while summarizing: %w", err)
	}

	result := &datatypes.AnalysisResult{
		Subject:          job.Subject,
		AnalysisType:     job.AnalysisType,
		Sources:          agg,
		Analysis:         analysis,
		ExecutiveSummary: summary,
		DegradedSources:  agg.Failed,
		GeneratedAt:      r.now(),
	}

	r.writeResult(ctx, job, result)
	r.registry.complete(job.ID, result)
	r.writeSession(ctx, mustGet(r.registry, job.ID))
	return nil
}

// checkpoint advances the registry and mirrors progress to the cache so
// status survives a process restart.
func (r *Runner) checkpoint(ctx context.Context, job datatypes.AnalysisJob, progress int, step string) {
	r.registry.setProgress(job.ID, progress, step)

	snapshot := map[string]any{
		"job_id":   job.ID,
		"subject":  job.Subject,
		"status":   datatypes.JobInProgress,
		"progress": progress,
		"step":     step,
	}
	key := cache.NewKey(cache.CategoryAnalysisProgress, job.ID)
	if !r.store.Write(ctx, key, snapshot) {
		slog.Warn("Failed to mirror job progress to cache", "job_id", job.ID)
	}
}

// writeResult persists the completed analysis for the memoization
// window. Fallback-only analyses are not persisted so the reasoning
// tiers get retried on the next submission.
func (r *Runner) writeResult(ctx context.Context, job datatypes.AnalysisJob, result *datatypes.AnalysisResult) {
	if result.Analysis.Fallback {
		slog.Info("Skipping result cache write for fallback analysis",
			"job_id", job.ID,
			"subject", job.Subject)
		return
	}
	key := cache.NewKey(cache.CategoryAnalysisResults, job.Subject).WithSub(string(job.AnalysisType))
	if !r.store.Write(ctx, key, result) {
		slog.Warn("Failed to cache analysis result",
			"job_id", job.ID,
			"subject", job.Subject)
	}
}

// writeSession records the job snapshot under session state so clients
// can recover job handles across reconnects.
func (r *Runner) writeSession(ctx context.Context, job datatypes.AnalysisJob) {
	key := cache.NewKey(cache.CategorySessionState, job.ID)
	if !r.store.Write(ctx, key, job) {
		slog.Warn("Failed to cache job session state", "job_id", job.ID)
	}
}

func mustGet(registry *Registry, id string) datatypes.AnalysisJob {
	job, _ := registry.Get(id)
	return job
}
