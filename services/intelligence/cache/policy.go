// Copyright (C) 2025 MedInsight AI (engineering@medinsight.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package cache

import "time"

// ttlPolicy maps each category to its retention. A zero duration means
// the entry persists until explicitly deleted (the usage and error
// counters). Writes resolve their TTL here and only here.
var ttlPolicy = map[Category]time.Duration{
	CategorySessionState:     30 * time.Minute,
	CategoryAnalysisProgress: 5 * time.Minute,
	CategoryAnalysisResults:  24 * time.Hour,
	CategoryAISummary:        2 * time.Hour,
	CategoryHealthAnalysis:   1 * time.Hour,
	CategoryInteractions:     24 * time.Hour,
	CategoryMedicationInfo:   7 * 24 * time.Hour,
	CategoryFDAValidation:    7 * 24 * time.Hour,
	CategoryUsage:            0,
	CategoryErrors:           0,
}

// TTLFor returns the policy TTL for a category. The second return is
// false for categories outside the policy table; such writes are refused
// upstream rather than written unbounded.
func TTLFor(category Category) (time.Duration, bool) {
	ttl, ok := ttlPolicy[category]
	return ttl, ok
}

// Categories returns every category in the policy table, for stats and
// health reporting.
func Categories() []Category {
	out := make([]Category, 0, len(ttlPolicy))
	for c := range ttlPolicy {
		out = append(out, c)
	}
	return out
}
