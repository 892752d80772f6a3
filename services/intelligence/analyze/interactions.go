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

// maxInteractionMedications bounds one interaction request.
const maxInteractionMedications = 20

const interactionsPromptTemplate = `Analyze drug-drug interactions among these medications: %s.
Respond with ONLY a JSON object, no prose, matching exactly:
{"severity": "none|minor|moderate|major", "interactions": ["..."], "guidance": "..."}`

// AnalyzeInteractions produces the interaction report for a medication
// combination.
//
// The report is memoized under the combination's canonical identifier,
// built from the sorted normalized medication names, so the same set in
// any order and capitalization hits one cache entry. The operation is
// fail-open end to end: reasoning failures yield the deterministic
// fallback report, and cache outages just skip memoization.
func (a *Analyzer) AnalyzeInteractions(ctx context.Context, medications []string) (datatypes.InteractionReport, error) {
	canonical := validation.NormalizeMedications(medications)
	if len(canonical) < 2 {
		return datatypes.InteractionReport{}, fmt.Errorf("interaction analysis needs at least 2 distinct medications, got %d", len(canonical))
	}
	if len(canonical) > maxInteractionMedications {
		return datatypes.InteractionReport{}, fmt.Errorf("interaction analysis capped at %d medications, got %d", maxInteractionMedications, len(canonical))
	}

	key := cache.NewKey(cache.CategoryInteractions, interactionIdentifier(canonical))

	var cached datatypes.InteractionReport
	if a.store.Read(ctx, key, &cached).Found() {
		slog.Debug("Interaction report served from cache", "medications", canonical)
		return cached, nil
	}

	report := a.generateInteractions(ctx, canonical)
	report.GeneratedAt = a.now()

	// Fallback reports are not memoized; the next request should try
	// the reasoning tiers again.
	if !report.Fallback {
		a.store.Write(ctx, key, report)
	}

	a.store.Increment(ctx, cache.NewKey(cache.CategoryUsage, "interaction_checks"), 1)
	return report, nil
}

func (a *Analyzer) generateInteractions(ctx context.Context, canonical []string) datatypes.InteractionReport {
	prompt := fmt.Sprintf(interactionsPromptTemplate, strings.Join(canonical, ", "))
	text, tier, err := a.reason(ctx, prompt, analysisParams())
	if err != nil {
		slog.Warn("Interaction reasoning unavailable, using fallback", "error", err)
		a.store.Increment(ctx, cache.NewKey(cache.CategoryErrors, "interaction_generation"), 1)
		return FallbackInteractions(canonical)
	}

	var report datatypes.InteractionReport
	if err := json.Unmarshal([]byte(extractJSON(text)), &report); err != nil {
		slog.Warn("Undecodable interaction output, using fallback", "tier", tier, "error", err)
		a.store.Increment(ctx, cache.NewKey(cache.CategoryErrors, "interaction_decode"), 1)
		return FallbackInteractions(canonical)
	}

	report.Medications = canonical
	report.ModelTier = tier
	return report
}

// interactionIdentifier derives the cache identifier for a canonical
// medication list. Short lists use the readable joined form; longer ones
// fall back to a fingerprint to stay within identifier limits.
func interactionIdentifier(canonical []string) string {
	joined := strings.Join(canonical, "_")
	if len(joined) <= 128 {
		return joined
	}
	return Fingerprint(canonical...)
}
