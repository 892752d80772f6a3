// Copyright (C) 2025 MedInsight AI (engineering@medinsight.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package handlers

import (
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/MedInsightAI/MedInsightHub/services/intelligence/analyze"
	"github.com/MedInsightAI/MedInsightHub/services/intelligence/datatypes"
)

// InteractionRequest is the payload for a medication interaction check.
type InteractionRequest struct {
	Medications []string `json:"medications" binding:"required"`
}

// HandleInteractions checks a medication combination for interactions.
// The same combination in any order reuses one memoized report.
func HandleInteractions(analyzer *analyze.Analyzer) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req InteractionRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body: medications is required"})
			return
		}

		report, err := analyzer.AnalyzeInteractions(c.Request.Context(), req.Medications)
		if err != nil {
			slog.Warn("Rejected interaction request", "error", err)
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, report)
	}
}

// HandleHealthProfile produces a personalized assessment for a patient
// profile. Equivalent profiles share one cached assessment.
func HandleHealthProfile(analyzer *analyze.Analyzer) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req datatypes.HealthProfileRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
			return
		}

		assessment, err := analyzer.AnalyzeHealthProfile(c.Request.Context(), req)
		if err != nil {
			slog.Warn("Rejected health profile request", "error", err)
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, assessment)
	}
}
