// Copyright (C) 2025 MedInsight AI (engineering@medinsight.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package handlers contains the gin HTTP handlers for the intelligence
// service: analysis submission, status polling, the SSE progress stream,
// and cache administration.
package handlers

import (
	"fmt"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/MedInsightAI/MedInsightHub/pkg/validation"
	"github.com/MedInsightAI/MedInsightHub/services/intelligence/datatypes"
	"github.com/MedInsightAI/MedInsightHub/services/intelligence/jobs"
)

// HandleSubmitAnalysis starts an analysis job for a drug subject.
//
// Returns 202 with the job handle for new and joined jobs, and 200 when
// a fresh cached result satisfied the request without running the
// pipeline. Invalid subjects are rejected with 400 before any work runs.
func HandleSubmitAnalysis(runner *jobs.Runner) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req datatypes.AnalysisRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body: subject is required"})
			return
		}

		subject := validation.NormalizeSubject(req.Subject)
		if err := validation.ValidateSubject(subject); err != nil {
			slog.Warn("Rejected analysis request",
				"subject", validation.NormalizeSubject(req.Subject),
				"error", err)
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}

		analysisType := req.AnalysisType
		if analysisType == "" {
			analysisType = datatypes.AnalysisTypeComprehensive
		}
		switch analysisType {
		case datatypes.AnalysisTypeComprehensive, datatypes.AnalysisTypeMarket, datatypes.AnalysisTypeClinical:
		default:
			c.JSON(http.StatusBadRequest, gin.H{"error": fmt.Sprintf("unknown analysis_type %q", analysisType)})
			return
		}

		slog.Info("Received analysis request",
			"subject", subject,
			"analysis_type", analysisType,
			"force_refresh", req.ForceRefresh)

		job := runner.Submit(c.Request.Context(), subject, analysisType, req.ForceRefresh)

		resp := datatypes.AnalysisResponse{
			JobID:     job.ID,
			Subject:   job.Subject,
			Status:    job.Status,
			Cached:    job.Cached,
			StreamURL: fmt.Sprintf("/v1/analysis/%s/stream", job.ID),
		}

		status := http.StatusAccepted
		if job.Cached {
			status = http.StatusOK
		}
		c.JSON(status, resp)
	}
}

// HandleAnalysisStatus returns the current snapshot of a job, including
// the result once the job completes.
func HandleAnalysisStatus(registry *jobs.Registry) gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.Param("id")

		job, ok := registry.Get(id)
		if !ok {
			c.JSON(http.StatusNotFound, gin.H{"error": "unknown job id"})
			return
		}
		c.JSON(http.StatusOK, job)
	}
}
