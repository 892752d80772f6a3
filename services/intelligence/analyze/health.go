// Copyright (C) 2025 MedInsight AI (engineering@medinsight.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package analyze

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"github.com/MedInsightAI/MedInsightHub/pkg/validation"
	"github.com/MedInsightAI/MedInsightHub/services/intelligence/cache"
	"github.com/MedInsightAI/MedInsightHub/services/intelligence/datatypes"
)

const healthPromptTemplate = `Assess this patient profile: %s.
Respond with ONLY a JSON object, no prose, matching exactly:
{"risk_factors": ["..."], "recommendations": ["..."], "cautions": ["..."]}`

// AnalyzeHealthProfile produces a personalized assessment for a health
// profile, cached under a fingerprint of the normalized request so
// equivalent profiles share one entry within the category TTL.
func (a *Analyzer) AnalyzeHealthProfile(ctx context.Context, req datatypes.HealthProfileRequest) (datatypes.HealthAssessment, error) {
	if req.Age <= 0 || req.Age > 130 {
		return datatypes.HealthAssessment{}, fmt.Errorf("health profile needs a plausible age, got %d", req.Age)
	}

	key := cache.NewKey(cache.CategoryHealthAnalysis, healthProfileIdentifier(req))

	var cached datatypes.HealthAssessment
	if a.store.Read(ctx, key, &cached).Found() {
		return cached, nil
	}

	assessment := a.generateHealthAssessment(ctx, req)
	assessment.GeneratedAt = a.now()
	if !assessment.Fallback {
		a.store.Write(ctx, key, assessment)
	}

	a.store.Increment(ctx, cache.NewKey(cache.CategoryUsage, "health_assessments"), 1)
	return assessment, nil
}

func (a *Analyzer) generateHealthAssessment(ctx context.Context, req datatypes.HealthProfileRequest) datatypes.HealthAssessment {
	profileJSON, err := json.Marshal(req)
	if err != nil {
		return FallbackHealthAssessment()
	}

	text, tier, err := a.reason(ctx, fmt.Sprintf(healthPromptTemplate, profileJSON), analysisParams())
	if err != nil {
		slog.Warn("Health assessment reasoning unavailable, using fallback", "error", err)
		a.store.Increment(ctx, cache.NewKey(cache.CategoryErrors, "health_generation"), 1)
		return FallbackHealthAssessment()
	}

	var assessment datatypes.HealthAssessment
	if err := json.Unmarshal([]byte(extractJSON(text)), &assessment); err != nil {
		slog.Warn("Undecodable health assessment output, using fallback", "tier", tier, "error", err)
		return FallbackHealthAssessment()
	}
	assessment.ModelTier = tier
	return assessment
}

// healthProfileIdentifier fingerprints the normalized request fields so
// field order and capitalization do not fragment the cache.
func healthProfileIdentifier(req datatypes.HealthProfileRequest) string {
	parts := []string{
		fmt.Sprintf("age=%d", req.Age),
		"conditions=" + strings.Join(validation.NormalizeMedications(req.Conditions), ","),
		"medications=" + strings.Join(validation.NormalizeMedications(req.Medications), ","),
		"allergies=" + strings.Join(validation.NormalizeMedications(req.Allergies), ","),
	}
	return Fingerprint(parts...)
}
