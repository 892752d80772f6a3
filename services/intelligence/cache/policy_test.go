// Copyright (C) 2025 MedInsight AI (engineering@medinsight.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package cache

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTTLFor(t *testing.T) {
	tests := []struct {
		category Category
		want     time.Duration
	}{
		{CategorySessionState, 30 * time.Minute},
		{CategoryAnalysisProgress, 5 * time.Minute},
		{CategoryAnalysisResults, 24 * time.Hour},
		{CategoryAISummary, 2 * time.Hour},
		{CategoryHealthAnalysis, 1 * time.Hour},
		{CategoryMedicationInfo, 7 * 24 * time.Hour},
		{CategoryFDAValidation, 7 * 24 * time.Hour},
		{CategoryInteractions, 24 * time.Hour},
		{CategoryUsage, 0},
		{CategoryErrors, 0},
	}

	for _, tt := range tests {
		t.Run(string(tt.category), func(t *testing.T) {
			ttl, ok := TTLFor(tt.category)
			require.True(t, ok, "TTLFor(%q) not in policy table", tt.category)
			assert.Equal(t, tt.want, ttl)
		})
	}
}

func TestTTLForUnknownCategory(t *testing.T) {
	_, ok := TTLFor(Category("scratch"))
	assert.False(t, ok, "categories outside the policy table must be refused")
}

func TestCategoriesCoversPolicyTable(t *testing.T) {
	cats := Categories()
	require.Len(t, cats, len(ttlPolicy))
	for _, c := range cats {
		assert.Contains(t, ttlPolicy, c)
	}
}
