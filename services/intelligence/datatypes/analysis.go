// Copyright (C) 2025 MedInsight AI (engineering@medinsight.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package datatypes provides data structures for the intelligence service.
//
// This file contains the analysis request and result types. For job and
// progress types, see job.go. For upstream source payloads, see sources.go.
package datatypes

import "time"

// AnalysisType selects the depth of an analysis run.
type AnalysisType string

const (
	AnalysisTypeComprehensive AnalysisType = "comprehensive"
	AnalysisTypeMarket        AnalysisType = "market_only"
	AnalysisTypeClinical      AnalysisType = "clinical_only"
)

// AnalysisRequest is the payload clients send to start an analysis job.
type AnalysisRequest struct {
	// Subject is the drug or medication name. It is normalized before use,
	// so "Aspirin" and "aspirin " address the same analysis.
	Subject string `json:"subject" binding:"required"`

	// AnalysisType defaults to comprehensive when empty.
	AnalysisType AnalysisType `json:"analysis_type,omitempty"`

	// ForceRefresh skips the cached-result short circuit.
	ForceRefresh bool `json:"force_refresh,omitempty"`
}

// AnalysisResponse is returned from the submit endpoint.
type AnalysisResponse struct {
	JobID   string    `json:"job_id"`
	Subject string    `json:"subject"`
	Status  JobStatus `json:"status"`
	// Cached is true when a fresh cached result satisfied the request
	// without running the pipeline.
	Cached    bool   `json:"cached"`
	StreamURL string `json:"stream_url"`
}

// StructuredAnalysis is the analyzed view of the gathered source data.
type StructuredAnalysis struct {
	ClinicalAssessment string         `json:"clinical_assessment"`
	MarketAssessment   string         `json:"market_assessment"`
	SWOT               SWOT           `json:"swot"`
	Trends             []string       `json:"trends,omitempty"`
	RegulatoryUpdates  []string       `json:"regulatory_updates,omitempty"`
	Confidence         float64        `json:"confidence"`
	ModelTier          string         `json:"model_tier"`
	Fallback           bool           `json:"fallback,omitempty"`
	Extra              map[string]any `json:"extra,omitempty"`
}

// SWOT holds the strengths/weaknesses/opportunities/threats breakdown.
type SWOT struct {
	Strengths     []string `json:"strengths"`
	Weaknesses    []string `json:"weaknesses"`
	Opportunities []string `json:"opportunities"`
	Threats       []string `json:"threats"`
}

// AnalysisResult is the terminal output of a completed analysis job.
// It is what gets written to the results cache and replayed for
// subsequent requests inside the freshness window.
type AnalysisResult struct {
	Subject          string             `json:"subject"`
	AnalysisType     AnalysisType       `json:"analysis_type"`
	Sources          AggregatedSources  `json:"sources"`
	Analysis         StructuredAnalysis `json:"analysis"`
	ExecutiveSummary string             `json:"executive_summary"`
	// DegradedSources lists sources that failed during gathering. The
	// result is still valid; consumers can surface reduced confidence.
	DegradedSources []string  `json:"degraded_sources,omitempty"`
	GeneratedAt     time.Time `json:"generated_at"`
}

// Fresh reports whether the result was generated within the window.
func (r *AnalysisResult) Fresh(now time.Time, window time.Duration) bool {
	if r.GeneratedAt.IsZero() {
		return false
	}
	return now.Sub(r.GeneratedAt) < window
}

// InteractionReport is the memoized output of a medication interaction
// analysis. The cache key is derived from the canonical medication list,
// so the same combination in any order reuses one report.
type InteractionReport struct {
	Medications  []string  `json:"medications"`
	Severity     string    `json:"severity"`
	Interactions []string  `json:"interactions"`
	Guidance     string    `json:"guidance"`
	ModelTier    string    `json:"model_tier"`
	Fallback     bool      `json:"fallback,omitempty"`
	GeneratedAt  time.Time `json:"generated_at"`
}
