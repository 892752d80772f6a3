// Copyright (C) 2025 MedInsight AI (engineering@medinsight.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package sources

import (
	"context"
	"log/slog"

	"github.com/MedInsightAI/MedInsightHub/pkg/validation"
	"github.com/MedInsightAI/MedInsightHub/services/intelligence/cache"
)

// WarmMedicationInfo prefetches label data for a list of medications and
// seeds the medication_info cache category, so first lookups for common
// medications hit warm entries instead of the upstream.
//
// Best effort: a medication that fails to fetch or write is logged and
// skipped. Returns the number of entries written.
func WarmMedicationInfo(ctx context.Context, store cache.Store, fetch FDAFetch, medications []string) int {
	if store == nil || fetch == nil {
		return 0
	}

	warmed := 0
	for _, med := range medications {
		normalized, err := validation.SanitizeSubject(med)
		if err != nil {
			slog.Warn("Skipping cache warm entry", "error", err)
			continue
		}

		info, err := fetch(ctx, normalized)
		if err != nil {
			slog.Warn("Cache warm fetch failed", "medication", normalized, "error", err)
			continue
		}
		if store.Write(ctx, cache.NewKey(cache.CategoryMedicationInfo, normalized), info) {
			warmed++
		}
	}

	if warmed > 0 {
		slog.Info("Warmed medication info cache", "entries", warmed, "requested", len(medications))
	}
	return warmed
}
