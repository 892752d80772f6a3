// Copyright (C) 2025 MedInsight AI (engineering@medinsight.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package jobs owns the analysis job lifecycle: the registry of job
// records, the per-job progress broadcast, and the runner that drives
// the gather/analyze/summarize pipeline.
package jobs

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/MedInsightAI/MedInsightHub/services/intelligence/datatypes"
	"github.com/MedInsightAI/MedInsightHub/services/intelligence/observability"
)

// =============================================================================
// Registry
// =============================================================================

// Registry is the in-process store of job records.
//
// # Description
//
// The registry is owned by the service and injected into everything that
// needs job state; there is no package-level instance. It enforces the
// one-way state machine: queued -> in_progress -> completed or failed,
// progress never moving backward, terminal states absorbing. All outside
// observation happens through value snapshots or the event stream.
//
// # Thread Safety
//
// Safe for concurrent use.
type Registry struct {
	mu        sync.RWMutex
	records   map[string]*record
	bySubject map[string]string // normalized subject -> live job id

	retention time.Duration
	now       func() time.Time
}

// record pairs the mutable job state with its event broadcaster.
type record struct {
	job datatypes.AnalysisJob
	bc  *broadcaster
}

// NewRegistry creates a registry whose terminal jobs are retained for
// the given duration before Sweep removes them.
func NewRegistry(retention time.Duration) *Registry {
	if retention <= 0 {
		retention = 24 * time.Hour
	}
	return &Registry{
		records:   make(map[string]*record),
		bySubject: make(map[string]string),
		retention: retention,
		now:       time.Now,
	}
}

// Create registers a new queued job for a normalized subject.
func (r *Registry) Create(subject string, analysisType datatypes.AnalysisType) datatypes.AnalysisJob {
	r.mu.Lock()
	job := r.createLocked(subject, analysisType)
	r.mu.Unlock()

	observability.AddActiveJob(1)
	return job
}

// GetOrCreate returns the live job for a subject, creating a queued one
// when none is running. Lookup and creation share one critical section,
// so two simultaneous submissions of a subject cannot both create a job.
// The second return reports whether this call created the job.
func (r *Registry) GetOrCreate(subject string, analysisType datatypes.AnalysisType) (datatypes.AnalysisJob, bool) {
	r.mu.Lock()
	if id, ok := r.bySubject[subject]; ok {
		if rec, ok := r.records[id]; ok && !rec.job.Status.Terminal() {
			job := rec.job
			r.mu.Unlock()
			return job, false
		}
	}
	job := r.createLocked(subject, analysisType)
	r.mu.Unlock()

	observability.AddActiveJob(1)
	return job, true
}

// createLocked registers a queued job. Callers hold r.mu.
func (r *Registry) createLocked(subject string, analysisType datatypes.AnalysisType) datatypes.AnalysisJob {
	now := r.now()
	job := datatypes.AnalysisJob{
		ID:           uuid.New().String(),
		Subject:      subject,
		AnalysisType: analysisType,
		Status:       datatypes.JobQueued,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	r.records[job.ID] = &record{job: job, bc: newBroadcaster()}
	r.bySubject[subject] = job.ID
	return job
}

// CreateCompleted registers an already-terminal job carrying a cached
// result, so a cache-satisfied submission still has a job handle whose
// status and stream endpoints behave normally.
func (r *Registry) CreateCompleted(subject string, analysisType datatypes.AnalysisType, result *datatypes.AnalysisResult) datatypes.AnalysisJob {
	now := r.now()
	job := datatypes.AnalysisJob{
		ID:           uuid.New().String(),
		Subject:      subject,
		AnalysisType: analysisType,
		Status:       datatypes.JobCompleted,
		Progress:     datatypes.ProgressDone,
		Step:         datatypes.StepDone,
		Cached:       true,
		Result:       result,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	r.mu.Lock()
	r.records[job.ID] = &record{job: job, bc: newBroadcaster()}
	r.mu.Unlock()
	return job
}

// Get returns a snapshot of the job.
func (r *Registry) Get(id string) (datatypes.AnalysisJob, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	rec, ok := r.records[id]
	if !ok {
		return datatypes.AnalysisJob{}, false
	}
	return rec.job, true
}

// LiveBySubject returns the non-terminal job for a subject, if any.
// This is the in-flight dedup lookup: a second submission of the same
// subject joins the running job instead of starting another.
func (r *Registry) LiveBySubject(subject string) (datatypes.AnalysisJob, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	id, ok := r.bySubject[subject]
	if !ok {
		return datatypes.AnalysisJob{}, false
	}
	rec, ok := r.records[id]
	if !ok || rec.job.Status.Terminal() {
		return datatypes.AnalysisJob{}, false
	}
	return rec.job, true
}

// Subscribe attaches to a job's event stream.
//
// For live jobs the channel carries events published after this call.
// For terminal jobs one synthesized terminal event is delivered and the
// channel closes, so late subscribers still learn the outcome. The
// second return is the unsubscribe function; ok is false for unknown ids.
func (r *Registry) Subscribe(id string) (events <-chan datatypes.ProgressEvent, cancel func(), ok bool) {
	r.mu.RLock()
	rec, found := r.records[id]
	r.mu.RUnlock()
	if !found {
		return nil, nil, false
	}

	ch, cancel := rec.bc.subscribe()

	// Re-check under the subscription: the job may have gone terminal
	// just before we attached, in which case the broadcaster already
	// delivered its last event and the channel is closed.
	r.mu.RLock()
	job := rec.job
	r.mu.RUnlock()
	if job.Status.Terminal() {
		cancel()
		replay := make(chan datatypes.ProgressEvent, 1)
		replay <- terminalEvent(job)
		close(replay)
		return replay, func() {}, true
	}
	return ch, cancel, true
}

// =============================================================================
// State Transitions (runner-internal)
// =============================================================================

// markInProgress moves a queued job to in_progress. No event is emitted;
// the first progress checkpoint follows immediately.
func (r *Registry) markInProgress(id string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	rec, ok := r.records[id]
	if !ok || rec.job.Status != datatypes.JobQueued {
		return
	}
	rec.job.Status = datatypes.JobInProgress
	rec.job.UpdatedAt = r.now()
}

// setProgress advances a job to a fixed checkpoint and publishes the
// progress event. Backward or repeated checkpoints are ignored, as are
// updates to terminal jobs.
func (r *Registry) setProgress(id string, progress int, step string) {
	r.mu.Lock()
	rec, ok := r.records[id]
	if !ok || rec.job.Status.Terminal() || progress <= rec.job.Progress {
		r.mu.Unlock()
		return
	}
	rec.job.Progress = progress
	rec.job.Step = step
	rec.job.UpdatedAt = r.now()
	job := rec.job
	bc := rec.bc
	r.mu.Unlock()

	bc.publish(datatypes.ProgressEvent{
		Type:     datatypes.EventProgress,
		JobID:    job.ID,
		Status:   job.Status,
		Progress: job.Progress,
		Step:     job.Step,
	})
}

// complete moves a job to completed at 100% and publishes the terminal
// done event carrying the result.
func (r *Registry) complete(id string, result *datatypes.AnalysisResult) {
	r.mu.Lock()
	rec, ok := r.records[id]
	if !ok || rec.job.Status.Terminal() {
		r.mu.Unlock()
		return
	}
	rec.job.Status = datatypes.JobCompleted
	rec.job.Progress = datatypes.ProgressDone
	rec.job.Step = datatypes.StepDone
	rec.job.Result = result
	rec.job.UpdatedAt = r.now()
	job := rec.job
	bc := rec.bc
	delete(r.bySubject, job.Subject)
	r.mu.Unlock()

	observability.AddActiveJob(-1)
	bc.publish(terminalEvent(job))
}

// fail moves a job to failed and publishes the terminal error event.
// Progress stays where the pipeline stopped.
func (r *Registry) fail(id string, msg string) {
	r.mu.Lock()
	rec, ok := r.records[id]
	if !ok || rec.job.Status.Terminal() {
		r.mu.Unlock()
		return
	}
	rec.job.Status = datatypes.JobFailed
	rec.job.Error = msg
	rec.job.UpdatedAt = r.now()
	job := rec.job
	bc := rec.bc
	delete(r.bySubject, job.Subject)
	r.mu.Unlock()

	observability.AddActiveJob(-1)
	bc.publish(terminalEvent(job))
}

func terminalEvent(job datatypes.AnalysisJob) datatypes.ProgressEvent {
	if job.Status == datatypes.JobFailed {
		return datatypes.ProgressEvent{
			Type:   datatypes.EventError,
			JobID:  job.ID,
			Status: job.Status,
			Error:  job.Error,
		}
	}
	return datatypes.ProgressEvent{
		Type:     datatypes.EventDone,
		JobID:    job.ID,
		Status:   job.Status,
		Progress: job.Progress,
		Step:     job.Step,
		Result:   job.Result,
	}
}

// =============================================================================
// Retention Sweep
// =============================================================================

// Sweep removes terminal jobs untouched for longer than the retention
// window and returns how many were removed. Live jobs are never swept.
func (r *Registry) Sweep() int {
	cutoff := r.now().Add(-r.retention)

	r.mu.Lock()
	defer r.mu.Unlock()

	removed := 0
	for id, rec := range r.records {
		if rec.job.Status.Terminal() && rec.job.UpdatedAt.Before(cutoff) {
			delete(r.records, id)
			removed++
		}
	}
	return removed
}

// RunSweeper sweeps on the given interval until ctx is cancelled.
func (r *Registry) RunSweeper(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = time.Hour
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if removed := r.Sweep(); removed > 0 {
				slog.Info("Swept expired job records", "removed", removed)
			}
		case <-ctx.Done():
			return
		}
	}
}
