// Copyright (C) 2025 MedInsight AI (engineering@medinsight.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package cache

import "testing"

func TestKeyString(t *testing.T) {
	tests := []struct {
		name string
		key  Key
		want string
	}{
		{
			"no sub key",
			NewKey(CategoryAnalysisResults, "aspirin"),
			"medinsight:analysis_results:aspirin",
		},
		{
			"with sub key",
			NewKey(CategorySessionState, "sess-123").WithSub("progress"),
			"medinsight:session_state:sess-123:progress",
		},
		{
			"counter key",
			NewKey(CategoryUsage, "api_calls"),
			"medinsight:usage:api_calls",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.key.String(); got != tt.want {
				t.Errorf("Key.String() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestKeyValid(t *testing.T) {
	tests := []struct {
		name string
		key  Key
		want bool
	}{
		{"known category", NewKey(CategoryAISummary, "ozempic"), true},
		{"sub key ok", NewKey(CategorySessionState, "sess-1").WithSub("state"), true},
		{"unknown category", NewKey(Category("scratch"), "x"), false},
		{"empty identifier", NewKey(CategoryAISummary, ""), false},
		{"separator in identifier", NewKey(CategoryAISummary, "a:b"), false},
		{"separator in sub key", NewKey(CategorySessionState, "s").WithSub("a:b"), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.key.Valid(); got != tt.want {
				t.Errorf("Key.Valid() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestCategoryPattern(t *testing.T) {
	got := CategoryPattern(CategoryMedicationInfo)
	want := "medinsight:medication_info:*"
	if got != want {
		t.Errorf("CategoryPattern() = %q, want %q", got, want)
	}
}

func TestSameSubjectSameKey(t *testing.T) {
	a := NewKey(CategoryAnalysisResults, "ozempic_1mg")
	b := NewKey(CategoryAnalysisResults, "ozempic_1mg")
	if a.String() != b.String() {
		t.Errorf("identical subjects must map to one key, got %q and %q", a, b)
	}
}
