// Copyright (C) 2025 MedInsight AI (engineering@medinsight.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package datatypes

import "time"

// HealthProfileRequest describes a patient context for a personalized
// assessment. Two requests with the same normalized content share one
// cached assessment regardless of field ordering or capitalization.
type HealthProfileRequest struct {
	Age         int      `json:"age"`
	Conditions  []string `json:"conditions,omitempty"`
	Medications []string `json:"medications,omitempty"`
	Allergies   []string `json:"allergies,omitempty"`
}

// HealthAssessment is the reasoning output for a health profile.
type HealthAssessment struct {
	RiskFactors     []string  `json:"risk_factors"`
	Recommendations []string  `json:"recommendations"`
	Cautions        []string  `json:"cautions,omitempty"`
	ModelTier       string    `json:"model_tier"`
	Fallback        bool      `json:"fallback,omitempty"`
	GeneratedAt     time.Time `json:"generated_at"`
}
