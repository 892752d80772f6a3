// Copyright (C) 2025 MedInsight AI (engineering@medinsight.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package datatypes

import "time"

// JobStatus is the lifecycle state of an analysis job.
//
// Transitions are one-way: queued -> in_progress -> completed or failed.
// Terminal states are absorbing; a job never leaves completed or failed.
type JobStatus string

const (
	JobQueued     JobStatus = "queued"
	JobInProgress JobStatus = "in_progress"
	JobCompleted  JobStatus = "completed"
	JobFailed     JobStatus = "failed"
)

// Terminal reports whether the status is absorbing.
func (s JobStatus) Terminal() bool {
	return s == JobCompleted || s == JobFailed
}

// Fixed progress checkpoints for the analysis pipeline. Progress only
// ever takes one of these values and only moves forward.
const (
	ProgressGathering  = 10
	ProgressAnalyzing  = 40
	ProgressGenerating = 70
	ProgressDone       = 100
)

// Human-readable step labels paired with the checkpoints above.
const (
	StepGathering  = "Collecting drug data from multiple sources"
	StepAnalyzing  = "Analyzing market intelligence data"
	StepGenerating = "Generating comprehensive report"
	StepDone       = "Analysis complete"
)

// AnalysisJob is a snapshot of one analysis run. Snapshots are values;
// the registry owns the mutable record and hands out copies.
type AnalysisJob struct {
	ID           string          `json:"job_id"`
	Subject      string          `json:"subject"`
	AnalysisType AnalysisType    `json:"analysis_type"`
	Status       JobStatus       `json:"status"`
	Progress     int             `json:"progress"`
	Step         string          `json:"step"`
	Cached       bool            `json:"cached"`
	Error        string          `json:"error,omitempty"`
	Result       *AnalysisResult `json:"result,omitempty"`
	CreatedAt    time.Time       `json:"created_at"`
	UpdatedAt    time.Time       `json:"updated_at"`
}

// ProgressEvent is one entry in a job's ordered event stream.
//
// Event metadata (Id, CreatedAt, Hash, PrevHash) is populated by the SSE
// writer at delivery time; producers only set the content fields.
type ProgressEvent struct {
	Id        string `json:"id,omitempty"`
	Type      string `json:"type"`
	CreatedAt int64  `json:"created_at,omitempty"`
	Hash      string `json:"hash,omitempty"`
	PrevHash  string `json:"prev_hash,omitempty"`

	JobID    string          `json:"job_id,omitempty"`
	Status   JobStatus       `json:"status,omitempty"`
	Progress int             `json:"progress,omitempty"`
	Step     string          `json:"step,omitempty"`
	Result   *AnalysisResult `json:"result,omitempty"`
	Error    string          `json:"error,omitempty"`
}

// Event types carried on the progress stream.
const (
	EventProgress = "progress"
	EventDone     = "done"
	EventError    = "error"
)
