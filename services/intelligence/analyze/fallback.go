// Copyright (C) 2025 MedInsight AI (engineering@medinsight.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package analyze

import (
	"fmt"
	"strings"

	"github.com/MedInsightAI/MedInsightHub/services/intelligence/datatypes"
)

// FallbackTier labels results produced without any reasoning backend.
const FallbackTier = "static_fallback"

// FallbackAnalysis builds a deterministic analysis from whatever source
// data was gathered. It is clearly labeled so consumers never mistake it
// for model output.
func FallbackAnalysis(subject string, agg datatypes.AggregatedSources) datatypes.StructuredAnalysis {
	analysis := datatypes.StructuredAnalysis{
		ClinicalAssessment: fmt.Sprintf(
			"Automated reasoning was unavailable for %s. The clinical assessment below is assembled directly from gathered source data without model interpretation.", subject),
		MarketAssessment: "Market interpretation unavailable. Review the raw market and competitor slots directly.",
		SWOT: datatypes.SWOT{
			Strengths:  []string{"See gathered source data"},
			Weaknesses: []string{"No model interpretation available"},
		},
		Confidence: 0.2,
		ModelTier:  FallbackTier,
		Fallback:   true,
	}

	if agg.FDA != nil {
		var facts []string
		if agg.FDA.BrandName != "" {
			facts = append(facts, "brand "+agg.FDA.BrandName)
		}
		if agg.FDA.Manufacturer != "" {
			facts = append(facts, "manufactured by "+agg.FDA.Manufacturer)
		}
		if len(facts) > 0 {
			analysis.ClinicalAssessment += " FDA label on file: " + strings.Join(facts, ", ") + "."
		}
	}
	if n := len(agg.ClinicalTrials); n > 0 {
		analysis.Trends = append(analysis.Trends,
			fmt.Sprintf("%d registered clinical trials found", n))
	}
	if n := len(agg.PubMed); n > 0 {
		analysis.Trends = append(analysis.Trends,
			fmt.Sprintf("%d recent publications indexed", n))
	}
	if len(agg.Failed) > 0 {
		analysis.RegulatoryUpdates = append(analysis.RegulatoryUpdates,
			"Data gathering was partial: "+strings.Join(agg.Failed, ", ")+" unavailable")
	}
	return analysis
}

// FallbackSummary builds a deterministic executive summary from a
// structured analysis.
func FallbackSummary(subject string, analysis datatypes.StructuredAnalysis) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Executive summary for %s (generated without model assistance). ", subject)
	if analysis.ClinicalAssessment != "" {
		sb.WriteString(analysis.ClinicalAssessment)
		sb.WriteString(" ")
	}
	fmt.Fprintf(&sb, "Confidence: %.0f%%.", analysis.Confidence*100)
	return sb.String()
}

// FallbackInteractions builds a deterministic interaction report that
// directs the reader to authoritative checkers instead of guessing.
func FallbackInteractions(medications []string) datatypes.InteractionReport {
	return datatypes.InteractionReport{
		Medications: medications,
		Severity:    "unknown",
		Interactions: []string{
			"Automated interaction analysis unavailable for: " + strings.Join(medications, ", "),
		},
		Guidance:  "Consult a pharmacist or an authoritative interaction checker before combining these medications.",
		ModelTier: FallbackTier,
		Fallback:  true,
	}
}

// FallbackHealthAssessment builds a deterministic assessment for a
// health profile.
func FallbackHealthAssessment() datatypes.HealthAssessment {
	return datatypes.HealthAssessment{
		RiskFactors:     []string{"Automated assessment unavailable"},
		Recommendations: []string{"Discuss this profile with a qualified clinician"},
		ModelTier:       FallbackTier,
		Fallback:        true,
	}
}
